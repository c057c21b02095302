package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCandidateError(t *testing.T) {
	tests := []struct {
		name      string
		candidate TranscriptionCandidate
		err       error
		wantMsg   string
	}{
		{
			name:      "empty service name",
			candidate: TranscriptionCandidate{ID: "c1", ServiceName: "whisper"},
			err:       ErrEmptyServiceName,
			wantMsg:   "candidate rejected: service=whisper, id=c1, err=candidate service name is empty",
		},
		{
			name:      "confidence out of range",
			candidate: TranscriptionCandidate{ID: "c2", ServiceName: "deepgram"},
			err:       ErrConfidenceOutOfRange,
			wantMsg:   "candidate rejected: service=deepgram, id=c2, err=confidence outside [0.0, 1.0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewCandidateError(tt.candidate, tt.err)

			assert.Equal(t, tt.wantMsg, err.Error(), "Error message mismatch")
			assert.Equal(t, tt.candidate.ID, err.CandidateID, "CandidateID mismatch")
			assert.Equal(t, tt.candidate.ServiceName, err.ServiceName, "ServiceName mismatch")

			// Test error unwrapping
			assert.True(t, errors.Is(err, tt.err), "Should unwrap to underlying error")
		})
	}
}

func TestConsistencyError(t *testing.T) {
	err := NewConsistencyError("final text membership", "final text matches no candidate")

	assert.Equal(t,
		"internal consistency violation: final text membership: final text matches no candidate",
		err.Error())
	assert.True(t, errors.Is(err, ErrInternalInconsistency),
		"Should match ErrInternalInconsistency with Is")
}

func TestFallbackError(t *testing.T) {
	violation := NewConsistencyError("final text membership", "final text matches no candidate")
	err := NewFallbackError(violation)

	assert.Equal(t,
		"fallback policy engaged: internal consistency violation: final text membership: final text matches no candidate",
		err.Error())

	// The chain reaches the sentinel through the wrapped violation.
	assert.True(t, errors.Is(err, ErrInternalInconsistency),
		"Should match ErrInternalInconsistency through the cause")
	assert.Equal(t, violation, errors.Unwrap(err), "Should unwrap to the violation")

	var consErr *ConsistencyError
	assert.True(t, errors.As(err, &consErr), "Should expose the ConsistencyError with As")
}

func TestValidationError(t *testing.T) {
	t.Run("single error", func(t *testing.T) {
		err := NewValidationError("consensus config")
		err.AddError("missing agreement threshold")

		assert.Equal(t, "validation error for consensus config: missing agreement threshold", err.Error())
		assert.True(t, err.HasErrors(), "Should have errors")
		assert.Len(t, err.Errors, 1, "Should have one error")
	})

	t.Run("multiple errors", func(t *testing.T) {
		err := NewValidationError("consensus result")
		err.AddError("confidence out of range")
		err.AddError("stats mismatch")

		assert.Contains(t, err.Error(), "validation errors for consensus result")
		assert.True(t, err.HasErrors(), "Should have errors")
		assert.Len(t, err.Errors, 2, "Should have two errors")
	})

	t.Run("no errors", func(t *testing.T) {
		err := NewValidationError("config")

		assert.False(t, err.HasErrors(), "Should not have errors")
		assert.Empty(t, err.Errors, "Errors slice should be empty")
	})
}

func TestCommonDomainErrors(t *testing.T) {
	// Test that common errors are defined and have expected messages
	tests := []struct {
		err     error
		message string
	}{
		{ErrNoValidCandidates, "no valid transcription candidates"},
		{ErrEmptyCandidateID, "candidate id is empty"},
		{ErrEmptyServiceName, "candidate service name is empty"},
		{ErrConfidenceOutOfRange, "confidence outside [0.0, 1.0]"},
		{ErrNegativeProcessingTime, "processing time is negative"},
		{ErrInvalidConfiguration, "invalid configuration"},
		{ErrInternalInconsistency, "internal consistency violation"},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.message, tt.err.Error(), "Error message mismatch")
		})
	}
}

func TestErrorWrapping(t *testing.T) {
	// Test Go 1.13+ error wrapping features
	baseErr := errors.New("base error")
	candErr := NewCandidateError(TranscriptionCandidate{ID: "c1", ServiceName: "whisper"}, baseErr)

	// Test Is functionality
	assert.True(t, errors.Is(candErr, baseErr), "Should match base error with Is")

	// Test Unwrap functionality
	unwrapped := errors.Unwrap(candErr)
	assert.Equal(t, baseErr, unwrapped, "Should unwrap to base error")

	// ConsistencyError unwraps to the sentinel for class matching.
	consErr := NewConsistencyError("confidence range", "value 1.2 above bound")
	assert.True(t, errors.Is(consErr, ErrInternalInconsistency), "Should match sentinel")
	assert.False(t, errors.Is(consErr, baseErr), "Should not match unrelated error")
}
