package domain

import (
	"errors"
	"fmt"
)

// Common domain errors that can occur during consensus evaluation.
var (
	// ErrNoValidCandidates indicates that no usable candidate remained,
	// either because the input was empty or because every supplied
	// candidate failed validation and was filtered out.
	ErrNoValidCandidates = errors.New("no valid transcription candidates")

	// ErrEmptyCandidateID indicates that a candidate is missing its identifier.
	ErrEmptyCandidateID = errors.New("candidate id is empty")

	// ErrEmptyServiceName indicates that a candidate is missing its service name.
	ErrEmptyServiceName = errors.New("candidate service name is empty")

	// ErrConfidenceOutOfRange indicates that a reported confidence falls
	// outside the normalized [0.0, 1.0] range.
	ErrConfidenceOutOfRange = errors.New("confidence outside [0.0, 1.0]")

	// ErrNegativeProcessingTime indicates that a candidate reported a
	// negative processing duration.
	ErrNegativeProcessingTime = errors.New("processing time is negative")

	// ErrInvalidConfiguration indicates that configuration is invalid or incomplete.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrInternalInconsistency indicates that the engine produced a result
	// violating its own output invariants. Seeing this error means a bug
	// in the pipeline, not bad input.
	ErrInternalInconsistency = errors.New("internal consistency violation")
)

// CandidateError reports why a specific candidate was rejected during
// validation. It preserves enough context to identify the offending
// service in logs and metrics.
type CandidateError struct {
	// CandidateID is the identifier of the rejected candidate.
	CandidateID string

	// ServiceName identifies the service that produced the candidate.
	ServiceName string

	// Err is the underlying validation failure.
	Err error
}

// Error implements the error interface for CandidateError.
func (e *CandidateError) Error() string {
	return fmt.Sprintf("candidate rejected: service=%s, id=%s, err=%v", e.ServiceName, e.CandidateID, e.Err)
}

// Unwrap returns the underlying error, supporting Go 1.13+ error unwrapping.
func (e *CandidateError) Unwrap() error { return e.Err }

// NewCandidateError creates a new CandidateError for the given candidate.
func NewCandidateError(c TranscriptionCandidate, err error) *CandidateError {
	return &CandidateError{
		CandidateID: c.ID,
		ServiceName: c.ServiceName,
		Err:         err,
	}
}

// ConsistencyError represents a violated output invariant detected by the
// engine's final self-check. It wraps ErrInternalInconsistency so callers
// can match the whole class with errors.Is.
type ConsistencyError struct {
	// Invariant names the violated check, such as "final text membership".
	Invariant string

	// Detail describes the observed violation.
	Detail string
}

// Error implements the error interface for ConsistencyError.
func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("internal consistency violation: %s: %s", e.Invariant, e.Detail)
}

// Unwrap returns ErrInternalInconsistency, supporting errors.Is matching.
func (e *ConsistencyError) Unwrap() error { return ErrInternalInconsistency }

// NewConsistencyError creates a new ConsistencyError for the given invariant.
func NewConsistencyError(invariant, detail string) *ConsistencyError {
	return &ConsistencyError{Invariant: invariant, Detail: detail}
}

// FallbackError records that the fallback policy rescued an evaluation
// after a consistency violation. The call still succeeded, in degraded
// form; this error is delivered to observers, never returned to callers.
// It wraps the triggering violation, so errors.Is matches
// ErrInternalInconsistency through it.
type FallbackError struct {
	// Cause is the consistency violation that triggered the fallback.
	Cause error
}

// Error implements the error interface for FallbackError.
func (e *FallbackError) Error() string {
	return fmt.Sprintf("fallback policy engaged: %v", e.Cause)
}

// Unwrap returns the triggering violation.
func (e *FallbackError) Unwrap() error { return e.Cause }

// NewFallbackError creates a new FallbackError for the given violation.
func NewFallbackError(cause error) *FallbackError {
	return &FallbackError{Cause: cause}
}

// ValidationError represents an error that occurred during validation.
// It can contain multiple validation failures.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the list of validation error messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Errors: make([]string, 0),
	}
}
