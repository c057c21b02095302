package consensus

import "github.com/ahrav/go-chorus/internal/domain"

// StatsAggregator derives the evaluation-wide statistics attached to every
// consensus result. It is pure arithmetic with one deliberate edge case:
// when no candidate reported a confidence, the average confidence is 0
// rather than a mean over a padded denominator.
type StatsAggregator struct{}

// NewStatsAggregator creates a StatsAggregator.
func NewStatsAggregator() *StatsAggregator { return &StatsAggregator{} }

// Aggregate computes the stats for the validated candidate set. The total
// processing time is the maximum across candidates, because services run
// in parallel and the slowest one bounds the wall-clock cost.
func (sa *StatsAggregator) Aggregate(candidates []domain.TranscriptionCandidate, disagreements []domain.Disagreement) domain.ConsensusStats {
	return domain.ConsensusStats{
		TotalProcessingTimeMs: domain.MaxProcessingTime(candidates),
		ServicesUsed:          len(candidates),
		AverageConfidence:     domain.MeanDefinedConfidence(candidates),
		DisagreementCount:     len(disagreements),
	}
}
