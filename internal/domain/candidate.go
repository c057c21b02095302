package domain

import (
	"fmt"
	"math"
	"time"
)

// MetadataKeyLanguage is the well-known metadata key under which producers
// may record the detected language of a transcription. The consensus
// algorithm never reads metadata values; quality assessment only checks
// whether this key is present.
const MetadataKeyLanguage = "language"

// TranscriptionCandidate represents a single service's transcription of an
// audio input. Candidates are the raw material of consensus evaluation;
// the engine treats them as immutable and never rewrites their text.
type TranscriptionCandidate struct {
	// ID uniquely identifies this candidate within an evaluation
	// (typically a UUID assigned by the producer).
	ID string `json:"id"`

	// ServiceName identifies the transcription service that produced
	// this candidate, such as "whisper" or "deepgram".
	ServiceName string `json:"service_name"`

	// Text is the transcribed text exactly as the service returned it.
	// An empty string is a valid transcription of silent audio.
	Text string `json:"text"`

	// Confidence is the service's self-reported confidence, normalized
	// to [0.0, 1.0] by the producer. A nil pointer means the service
	// reported no confidence at all, which is distinct from a reported
	// confidence of zero.
	Confidence *float64 `json:"confidence,omitempty"`

	// ProcessingTimeMs measures how long the service took to produce
	// this transcription, in milliseconds.
	ProcessingTimeMs int64 `json:"processing_time_ms"`

	// Timestamp records when the transcription completed.
	Timestamp time.Time `json:"timestamp"`

	// Metadata carries optional service-specific attributes such as
	// model name or detected language.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// HasConfidence reports whether the service supplied a confidence value.
func (c TranscriptionCandidate) HasConfidence() bool { return c.Confidence != nil }

// ConfidenceValue returns the reported confidence and whether one was
// reported. When the second return value is false, the first is zero and
// must not be treated as a real confidence.
func (c TranscriptionCandidate) ConfidenceValue() (float64, bool) {
	if c.Confidence == nil {
		return 0, false
	}
	return *c.Confidence, true
}

// Validate checks the structural invariants every candidate must satisfy
// before it can participate in consensus evaluation. It returns the first
// violation found, wrapped so callers can match with errors.Is.
// Empty text is deliberately not a violation; silence is a legitimate
// transcription result.
func (c TranscriptionCandidate) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("candidate from service %q: %w", c.ServiceName, ErrEmptyCandidateID)
	}
	if c.ServiceName == "" {
		return fmt.Errorf("candidate %q: %w", c.ID, ErrEmptyServiceName)
	}
	if c.Confidence != nil {
		v := *c.Confidence
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > 1 {
			return fmt.Errorf("candidate %q from service %q: confidence %v: %w",
				c.ID, c.ServiceName, v, ErrConfidenceOutOfRange)
		}
	}
	if c.ProcessingTimeMs < 0 {
		return fmt.Errorf("candidate %q from service %q: processing time %dms: %w",
			c.ID, c.ServiceName, c.ProcessingTimeMs, ErrNegativeProcessingTime)
	}
	return nil
}

// Float64Ptr returns a pointer to v. It is a convenience for constructing
// candidates whose services reported a confidence value.
func Float64Ptr(v float64) *float64 { return &v }
