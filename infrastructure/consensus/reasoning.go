package consensus

import (
	"fmt"
	"sort"
	"time"

	"github.com/ahrav/go-chorus/internal/domain"
)

// favoredLimit caps how many services a decision factor names as favored.
const favoredLimit = 3

// FilteredCandidate records a candidate excluded during validation,
// together with the reason, for the trace narrative.
type FilteredCandidate struct {
	// Candidate is the rejected candidate.
	Candidate domain.TranscriptionCandidate

	// Reason is the validation failure that excluded it.
	Reason error
}

// TraceInput carries every intermediate the pipeline produced, so the
// reasoning builder can narrate the decision without recomputing anything.
type TraceInput struct {
	// Submitted is the candidate count before validation.
	Submitted int

	// Filtered lists the candidates that failed validation.
	Filtered []FilteredCandidate

	// Candidates is the validated set, in input order.
	Candidates []domain.TranscriptionCandidate

	// Matrix is the shared pairwise similarity matrix.
	Matrix domain.SimilarityMatrix

	// Rankings is the selector's ordering, best first.
	Rankings []RankedCandidate

	// Winner is the selected candidate.
	Winner RankedCandidate

	// Confidence is the estimated consensus confidence.
	Confidence float64

	// Disagreements lists the detected divergences.
	Disagreements []domain.Disagreement

	// Quality holds the per-service assessments.
	Quality []domain.ServiceQualityAssessment

	// Algorithm names the similarity algorithm that scored the pairs.
	Algorithm string
}

// ReasoningBuilder assembles the machine-checkable explanation attached to
// every consensus result: an ordered step narrative, the weighted decision
// factors, one resolution entry per disagreement, and the quality
// assessments. Identical input yields an identical narrative; only the
// step timestamps vary between runs.
type ReasoningBuilder struct {
	// config supplies the decision weights quoted in the factors.
	config Config
}

// NewReasoningBuilder creates a ReasoningBuilder with the given
// configuration. The configuration must already be validated.
func NewReasoningBuilder(config Config) *ReasoningBuilder {
	return &ReasoningBuilder{config: config}
}

// Build produces the full reasoning trace for one evaluation.
func (rb *ReasoningBuilder) Build(in TraceInput) domain.ReasoningTrace {
	steps := rb.buildSteps(in)

	return domain.ReasoningTrace{
		FinalReasoning:      rb.finalReasoning(in),
		Steps:               steps,
		DecisionFactors:     rb.decisionFactors(in),
		ConflictResolutions: rb.conflictResolutions(in),
		QualityAssessment:   in.Quality,
	}
}

// buildSteps emits the ordered narrative: validation, similarity
// analysis, selection, then one entry per resolved disagreement.
func (rb *ReasoningBuilder) buildSteps(in TraceInput) []domain.ReasoningStep {
	var steps []domain.ReasoningStep
	appendStep := func(category domain.StepCategory, description string, data map[string]any) {
		steps = append(steps, domain.ReasoningStep{
			StepNumber:  len(steps) + 1,
			Description: description,
			Category:    category,
			Data:        data,
			Timestamp:   time.Now().UTC(),
		})
	}

	validationData := map[string]any{
		"submitted": in.Submitted,
		"valid":     len(in.Candidates),
		"filtered":  len(in.Filtered),
	}
	if len(in.Filtered) > 0 {
		services := make([]string, len(in.Filtered))
		for i, f := range in.Filtered {
			services[i] = f.Candidate.ServiceName
		}
		validationData["filtered_services"] = services
	}
	appendStep(domain.StepValidation,
		fmt.Sprintf("Validated %d of %d submitted candidates; %d filtered out.",
			len(in.Candidates), in.Submitted, len(in.Filtered)),
		validationData)

	if n := len(in.Candidates); n > 1 {
		pairs := n * (n - 1) / 2
		avg := in.Matrix.AverageOverall()
		appendStep(domain.StepSimilarityAnalysis,
			fmt.Sprintf("Scored %d candidate pairs with the %s similarity algorithm; average pairwise similarity %.2f.",
				pairs, in.Algorithm, avg),
			map[string]any{
				"pairs":              pairs,
				"average_similarity": avg,
				"algorithm":          in.Algorithm,
			})
	} else {
		appendStep(domain.StepSimilarityAnalysis,
			"Similarity analysis skipped; only one valid candidate.",
			map[string]any{"pairs": 0, "algorithm": in.Algorithm})
	}

	selectionData := map[string]any{
		"winning_service":      in.Winner.Candidate.ServiceName,
		"winning_candidate_id": in.Winner.Candidate.ID,
		"agreement_score":      in.Winner.AgreementScore,
		"confidence":           in.Confidence,
	}
	if len(in.Candidates) > 1 {
		appendStep(domain.StepSelection,
			fmt.Sprintf("Selected the transcription from %s with average agreement %.2f; consensus confidence %.2f.",
				in.Winner.Candidate.ServiceName, in.Winner.AgreementScore, in.Confidence),
			selectionData)
	} else {
		appendStep(domain.StepSelection,
			fmt.Sprintf("Selected the transcription from %s as the only valid candidate; consensus confidence %.2f.",
				in.Winner.Candidate.ServiceName, in.Confidence),
			selectionData)
	}

	for _, d := range in.Disagreements {
		appendStep(domain.StepConflictResolution,
			fmt.Sprintf("Resolved disagreement between %s and %s (severity %.2f) in favor of %s.",
				d.Services[0], d.Services[1], d.Severity, in.Winner.Candidate.ServiceName),
			map[string]any{
				"services": d.Services,
				"severity": d.Severity,
			})
	}

	return steps
}

// decisionFactors reports the weighted signals behind the selection and
// the services each one favored.
func (rb *ReasoningBuilder) decisionFactors(in TraceInput) []domain.DecisionFactor {
	return []domain.DecisionFactor{
		{
			Name:   "Text Similarity",
			Weight: rb.config.SimilarityWeight,
			Impact: "Primary signal: candidates are ranked by average pairwise agreement, " +
				"so the text most corroborated by other services wins.",
			FavoredServices: topServicesByAgreement(in.Rankings),
		},
		{
			Name:   "Confidence Score",
			Weight: rb.config.ConfidenceWeight,
			Impact: "Secondary signal and tie-break: reported confidence orders candidates " +
				"whose agreement is equal, with unreported confidences ranking last.",
			FavoredServices: topServicesByConfidence(in.Candidates),
		},
		{
			Name:   "Processing Speed",
			Weight: rb.config.SpeedWeight,
			Impact: "Minor signal: fast transcription earns a small confidence bonus, " +
				"slow transcription a penalty down to a floor.",
			FavoredServices: topServicesBySpeed(in.Candidates),
		},
	}
}

// conflictResolutions documents the outcome of each disagreement. Every
// conflict resolves the same way: the similarity-ranked winner prevails.
func (rb *ReasoningBuilder) conflictResolutions(in TraceInput) []domain.ConflictResolution {
	if len(in.Disagreements) == 0 {
		return nil
	}
	resolutions := make([]domain.ConflictResolution, len(in.Disagreements))
	for i, d := range in.Disagreements {
		resolutions[i] = domain.ConflictResolution{
			Services:       d.Services,
			WinningService: in.Winner.Candidate.ServiceName,
			Method:         "similarity-weighted selection",
			Severity:       d.Severity,
		}
	}
	return resolutions
}

// finalReasoning renders the one-paragraph summary: the winning service,
// its agreement with the other candidates, the resulting confidence,
// whether disagreements occurred, and how much confidence information the
// services supplied.
func (rb *ReasoningBuilder) finalReasoning(in TraceInput) string {
	winner := in.Winner.Candidate
	n := len(in.Candidates)

	if n == 1 {
		opening := fmt.Sprintf(
			"Selected the transcription from %s as the only valid candidate; no cross-service corroboration was available.",
			winner.ServiceName)
		if v, ok := winner.ConfidenceValue(); ok {
			return fmt.Sprintf("%s Its reported confidence %.2f was used as the consensus confidence.", opening, v)
		}
		return fmt.Sprintf(
			"%s No confidence was reported, so the neutral default %.2f was used as the consensus confidence.",
			opening, NeutralConfidence)
	}

	peers := fmt.Sprintf("the %d other candidates", n-1)
	if n == 2 {
		peers = "the other candidate"
	}
	paragraph := fmt.Sprintf(
		"Selected the transcription from %s, whose text agreed most closely with %s (average similarity %.2f). Consensus confidence is %.2f.",
		winner.ServiceName, peers, in.Winner.AgreementScore, in.Confidence)

	switch len(in.Disagreements) {
	case 0:
		paragraph += " No disagreements were detected among the services."
	case 1:
		paragraph += " 1 disagreement was detected and resolved in favor of the winning service."
	default:
		paragraph += fmt.Sprintf(" %d disagreements were detected and resolved in favor of the winning service.",
			len(in.Disagreements))
	}

	reported := domain.CountDefinedConfidences(in.Candidates)
	switch reported {
	case n:
		paragraph += " All services reported confidence scores."
	case 0:
		paragraph += " No service reported a confidence score, so cross-service agreement and processing speed carried the decision."
	default:
		paragraph += fmt.Sprintf(" %d of %d services reported confidence scores.", reported, n)
	}

	return paragraph
}

// topServicesByAgreement lists the best-agreeing services, best first.
func topServicesByAgreement(rankings []RankedCandidate) []string {
	limit := favoredLimit
	if len(rankings) < limit {
		limit = len(rankings)
	}
	services := make([]string, 0, limit)
	for _, r := range rankings[:limit] {
		services = append(services, r.Candidate.ServiceName)
	}
	return services
}

// topServicesByConfidence lists the services with the highest reported
// confidences. Services that reported none are not favored by this factor.
func topServicesByConfidence(candidates []domain.TranscriptionCandidate) []string {
	reporting := make([]domain.TranscriptionCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.HasConfidence() {
			reporting = append(reporting, c)
		}
	}
	sort.SliceStable(reporting, func(i, j int) bool {
		a, b := reporting[i], reporting[j]
		if *a.Confidence != *b.Confidence {
			return *a.Confidence > *b.Confidence
		}
		if a.ServiceName != b.ServiceName {
			return a.ServiceName < b.ServiceName
		}
		return a.ID < b.ID
	})

	limit := favoredLimit
	if len(reporting) < limit {
		limit = len(reporting)
	}
	services := make([]string, 0, limit)
	for _, c := range reporting[:limit] {
		services = append(services, c.ServiceName)
	}
	return services
}

// topServicesBySpeed lists the fastest services, fastest first.
func topServicesBySpeed(candidates []domain.TranscriptionCandidate) []string {
	bySpeed := make([]domain.TranscriptionCandidate, len(candidates))
	copy(bySpeed, candidates)
	sort.SliceStable(bySpeed, func(i, j int) bool {
		a, b := bySpeed[i], bySpeed[j]
		if a.ProcessingTimeMs != b.ProcessingTimeMs {
			return a.ProcessingTimeMs < b.ProcessingTimeMs
		}
		if a.ServiceName != b.ServiceName {
			return a.ServiceName < b.ServiceName
		}
		return a.ID < b.ID
	})

	limit := favoredLimit
	if len(bySpeed) < limit {
		limit = len(bySpeed)
	}
	services := make([]string, 0, limit)
	for _, c := range bySpeed[:limit] {
		services = append(services, c.ServiceName)
	}
	return services
}
