package consensus

import "github.com/ahrav/go-chorus/internal/domain"

// ConfidenceEstimator computes the calibrated confidence attached to a
// consensus result. The estimate leans on cross-service agreement first
// and treats self-reported confidence and processing speed as minor
// corrections, mirroring the selector's priorities.
type ConfidenceEstimator struct {
	// config supplies the decision weights and speed thresholds.
	config Config
}

// NewConfidenceEstimator creates a ConfidenceEstimator with the given
// configuration. The configuration must already be validated.
func NewConfidenceEstimator(config Config) *ConfidenceEstimator {
	return &ConfidenceEstimator{config: config}
}

// Estimate returns the consensus confidence for the winning candidate,
// always in [0.0, 1.0].
//
// With a single candidate there is nothing to corroborate against, so the
// estimate is the candidate's own reported confidence, or NeutralConfidence
// when it reported none.
//
// With multiple candidates the estimate blends three signals: the winner's
// average similarity to its peers, a confidence term, and the winner's
// processing-speed score. The confidence term degrades gracefully as
// information disappears: the winner's own confidence if reported,
// otherwise the mean of the confidences other candidates reported,
// otherwise a neutral midpoint.
func (ce *ConfidenceEstimator) Estimate(winner RankedCandidate, candidates []domain.TranscriptionCandidate, matrix domain.SimilarityMatrix) float64 {
	if len(candidates) == 1 {
		if v, ok := winner.Candidate.ConfidenceValue(); ok {
			return v
		}
		return NeutralConfidence
	}

	avgSimilarity := matrix.AverageFor(winner.Index)

	confidenceTerm := noSignalConfidence
	if v, ok := winner.Candidate.ConfidenceValue(); ok {
		confidenceTerm = v
	} else if domain.CountDefinedConfidences(candidates) > 0 {
		confidenceTerm = domain.MeanDefinedConfidence(candidates)
	}

	speed := ce.config.speedScore(winner.Candidate.ProcessingTimeMs)

	confidence := ce.config.SimilarityWeight*avgSimilarity +
		ce.config.ConfidenceWeight*confidenceTerm +
		ce.config.SpeedWeight*speed

	// Clamp against floating-point drift at the blend boundaries.
	if confidence > 1.0 {
		return 1.0
	}
	if confidence < 0 {
		return 0
	}
	return confidence
}
