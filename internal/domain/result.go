package domain

import (
	"fmt"
	"math"
	"time"
)

// Disagreement records a pair of services whose transcriptions diverged
// below the configured agreement threshold. It preserves both texts so
// downstream consumers can inspect exactly what the services heard.
type Disagreement struct {
	// Services lists the service names involved in the disagreement,
	// in candidate order.
	Services []string `json:"services"`

	// Texts maps each involved service name to the text it produced.
	Texts map[string]string `json:"texts"`

	// Severity quantifies how strongly the transcriptions diverge,
	// computed as 1.0 minus their pairwise similarity. It ranges from
	// 0.0 (identical) to 1.0 (nothing in common).
	Severity float64 `json:"severity"`
}

// ConsensusStats aggregates evaluation-wide metrics over the validated
// candidate set.
type ConsensusStats struct {
	// TotalProcessingTimeMs is the wall-clock cost of the transcription
	// fan-out: the maximum processing time across candidates, since
	// services run in parallel rather than sequentially.
	TotalProcessingTimeMs int64 `json:"total_processing_time_ms"`

	// ServicesUsed counts the candidates that passed validation and
	// participated in consensus.
	ServicesUsed int `json:"services_used"`

	// AverageConfidence is the mean of the reported confidences,
	// computed only over candidates that reported one. It is 0.0 when
	// no candidate reported a confidence.
	AverageConfidence float64 `json:"average_confidence"`

	// DisagreementCount is the number of detected disagreements.
	DisagreementCount int `json:"disagreement_count"`
}

// ConsensusResult is the final outcome of evaluating a set of
// transcription candidates. It contains the selected text, a calibrated
// confidence, the surviving inputs, detected disagreements, aggregate
// statistics, and a full reasoning trace.
type ConsensusResult struct {
	// ID uniquely identifies this result (typically a UUID).
	ID string `json:"id"`

	// FinalText is the transcription selected as consensus. Outside the
	// fallback path it is always the verbatim text of exactly one input
	// candidate; the engine never synthesizes or merges text.
	FinalText string `json:"final_text"`

	// ConsensusConfidence estimates how trustworthy FinalText is,
	// in [0.0, 1.0].
	ConsensusConfidence float64 `json:"consensus_confidence"`

	// IndividualResults contains the candidates that passed validation,
	// unchanged, in their original order.
	IndividualResults []TranscriptionCandidate `json:"individual_results"`

	// Disagreements lists the service pairs whose transcriptions fell
	// below the agreement threshold. It is omitted from JSON when empty.
	Disagreements []Disagreement `json:"disagreements,omitempty"`

	// Stats aggregates evaluation-wide metrics.
	Stats ConsensusStats `json:"stats"`

	// Reasoning explains how FinalText was chosen, step by step.
	Reasoning ReasoningTrace `json:"reasoning"`

	// Timestamp records when this result was produced.
	Timestamp time.Time `json:"timestamp"`
}

// Validate checks the structural invariants every result must satisfy
// before being returned to a caller. It accumulates all violations so a
// consistency failure report names everything wrong at once, not just the
// first problem.
func (r *ConsensusResult) Validate() error {
	verr := NewValidationError("consensus result")

	if r.ID == "" {
		verr.AddError("id is empty")
	}
	if math.IsNaN(r.ConsensusConfidence) || math.IsInf(r.ConsensusConfidence, 0) ||
		r.ConsensusConfidence < 0 || r.ConsensusConfidence > 1 {
		verr.AddError(fmt.Sprintf("consensus confidence %v outside [0.0, 1.0]", r.ConsensusConfidence))
	}
	if len(r.IndividualResults) == 0 {
		verr.AddError("individual results are empty")
	}
	if r.Stats.ServicesUsed != len(r.IndividualResults) {
		verr.AddError(fmt.Sprintf("stats services used %d does not match %d individual results",
			r.Stats.ServicesUsed, len(r.IndividualResults)))
	}
	if r.Stats.DisagreementCount != len(r.Disagreements) {
		verr.AddError(fmt.Sprintf("stats disagreement count %d does not match %d disagreements",
			r.Stats.DisagreementCount, len(r.Disagreements)))
	}
	if r.Stats.TotalProcessingTimeMs < 0 {
		verr.AddError(fmt.Sprintf("total processing time %dms is negative", r.Stats.TotalProcessingTimeMs))
	}
	if math.IsNaN(r.Stats.AverageConfidence) || r.Stats.AverageConfidence < 0 || r.Stats.AverageConfidence > 1 {
		verr.AddError(fmt.Sprintf("average confidence %v outside [0.0, 1.0]", r.Stats.AverageConfidence))
	}
	for i, d := range r.Disagreements {
		if math.IsNaN(d.Severity) || d.Severity < 0 || d.Severity > 1 {
			verr.AddError(fmt.Sprintf("disagreement %d severity %v outside [0.0, 1.0]", i, d.Severity))
		}
		if len(d.Services) < 2 {
			verr.AddError(fmt.Sprintf("disagreement %d involves fewer than two services", i))
		}
	}

	if verr.HasErrors() {
		return verr
	}
	return nil
}

// ContainsText reports whether text matches, byte for byte, the text of
// at least one individual result. The engine uses it to enforce that a
// consensus selection never invents text.
func (r *ConsensusResult) ContainsText(text string) bool {
	for _, c := range r.IndividualResults {
		if c.Text == text {
			return true
		}
	}
	return false
}
