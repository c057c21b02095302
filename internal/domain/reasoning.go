package domain

import "time"

// StepCategory classifies a reasoning step by the pipeline stage that
// produced it.
type StepCategory string

// Reasoning step categories, in the order the pipeline emits them.
const (
	// StepValidation covers input validation and candidate filtering.
	StepValidation StepCategory = "validation"

	// StepSimilarityAnalysis covers pairwise similarity computation.
	StepSimilarityAnalysis StepCategory = "similarity_analysis"

	// StepSelection covers the consensus selection decision.
	StepSelection StepCategory = "selection"

	// StepConflictResolution covers the handling of detected disagreements.
	StepConflictResolution StepCategory = "conflict_resolution"

	// StepFallback marks a degraded result produced by the fallback policy.
	StepFallback StepCategory = "fallback"
)

// ReasoningStep is one entry in the ordered narrative of how a consensus
// was reached.
type ReasoningStep struct {
	// StepNumber orders this step within the trace, starting at 1.
	StepNumber int `json:"step_number"`

	// Description is a human-readable account of what happened.
	Description string `json:"description"`

	// Category classifies the pipeline stage that emitted this step.
	Category StepCategory `json:"category"`

	// Data carries optional structured details, such as scores or counts,
	// for machine consumption. It is omitted from JSON when empty.
	Data map[string]any `json:"data,omitempty"`

	// Timestamp records when this step was emitted.
	Timestamp time.Time `json:"timestamp"`
}

// DecisionFactor describes one weighted input to the selection decision
// and which services it favored.
type DecisionFactor struct {
	// Name identifies the factor, such as "Text Similarity".
	Name string `json:"name"`

	// Weight is the factor's share of the decision, in [0.0, 1.0].
	Weight float64 `json:"weight"`

	// Impact explains in prose how this factor influenced the outcome.
	Impact string `json:"impact"`

	// FavoredServices lists the services this factor ranked highest,
	// best first.
	FavoredServices []string `json:"favored_services,omitempty"`
}

// ConflictResolution documents how one detected disagreement was resolved.
type ConflictResolution struct {
	// Services lists the service names that were in conflict.
	Services []string `json:"services"`

	// WinningService is the service whose text prevailed.
	WinningService string `json:"winning_service"`

	// Method names the strategy used to resolve the conflict.
	Method string `json:"method"`

	// Severity is the disagreement severity that triggered this
	// resolution, in [0.0, 1.0].
	Severity float64 `json:"severity"`
}

// Recommendation is the categorical verdict a quality assessment assigns
// to a service.
type Recommendation string

// Quality recommendations, from best to worst.
const (
	// RecommendationPreferred marks a service whose output should be
	// favored in future routing decisions.
	RecommendationPreferred Recommendation = "preferred"

	// RecommendationAcceptable marks a service that performed adequately.
	RecommendationAcceptable Recommendation = "acceptable"

	// RecommendationAvoid marks a service whose output quality was poor.
	RecommendationAvoid Recommendation = "avoid"
)

// ServiceQualityAssessment scores one candidate's service on the quality
// signals available to the engine: reported confidence and processing speed,
// with text-shape observations as supporting evidence.
type ServiceQualityAssessment struct {
	// ServiceName identifies the assessed service.
	ServiceName string `json:"service_name"`

	// QualityScore is the blended quality estimate, in [0.0, 1.0].
	QualityScore float64 `json:"quality_score"`

	// Strengths lists observed positive signals.
	Strengths []string `json:"strengths,omitempty"`

	// Weaknesses lists observed negative signals. A missing confidence
	// report appears here explicitly; it is never conflated with a
	// reported confidence of zero.
	Weaknesses []string `json:"weaknesses,omitempty"`

	// Recommendation is the categorical verdict derived from QualityScore.
	Recommendation Recommendation `json:"recommendation"`

	// Notes carries free-form context for human reviewers.
	Notes string `json:"notes,omitempty"`
}

// ReasoningTrace explains a consensus decision end to end: an ordered
// narrative of pipeline steps, the weighted factors behind the selection,
// per-conflict resolutions, and a quality assessment of every service.
type ReasoningTrace struct {
	// FinalReasoning is a single human-readable paragraph summarizing
	// the decision.
	FinalReasoning string `json:"final_reasoning"`

	// Steps is the ordered narrative of pipeline stages.
	Steps []ReasoningStep `json:"steps"`

	// DecisionFactors lists the weighted inputs to the selection.
	DecisionFactors []DecisionFactor `json:"decision_factors"`

	// ConflictResolutions documents how each disagreement was resolved.
	// It is omitted from JSON when no disagreements occurred.
	ConflictResolutions []ConflictResolution `json:"conflict_resolutions,omitempty"`

	// QualityAssessment holds one entry per evaluated candidate.
	QualityAssessment []ServiceQualityAssessment `json:"quality_assessment"`
}

// StepsByCategory returns the trace steps matching the given category,
// preserving their order. It is a convenience for callers and tests that
// need to inspect a single pipeline stage, such as checking whether the
// fallback path ran.
func (t ReasoningTrace) StepsByCategory(category StepCategory) []ReasoningStep {
	var steps []ReasoningStep
	for _, s := range t.Steps {
		if s.Category == category {
			steps = append(steps, s)
		}
	}
	return steps
}

// UsedFallback reports whether this trace records a fallback event,
// which marks the result as a degraded success.
func (t ReasoningTrace) UsedFallback() bool {
	return len(t.StepsByCategory(StepFallback)) > 0
}
