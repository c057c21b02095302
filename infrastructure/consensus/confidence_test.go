package consensus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-chorus/internal/domain"
)

// estimateFor runs the rank-then-estimate slice of the pipeline so each
// test can hand-check the blend arithmetic.
func estimateFor(t *testing.T, candidates []domain.TranscriptionCandidate, score func(a, b string) float64) float64 {
	t.Helper()
	matrix := matrixFor(candidates, score)
	ranked := NewSelector().Rank(candidates, matrix)
	require.NotEmpty(t, ranked)
	return NewConfidenceEstimator(DefaultConfig()).Estimate(ranked[0], candidates, matrix)
}

func TestEstimateSingleCandidate(t *testing.T) {
	tests := []struct {
		name       string
		confidence *float64
		expected   float64
	}{
		{
			name:       "uses its own reported confidence",
			confidence: domain.Float64Ptr(0.9),
			expected:   0.9,
		},
		{
			name:       "zero confidence is a report, not an absence",
			confidence: domain.Float64Ptr(0.0),
			expected:   0.0,
		},
		{
			name:       "no report falls back to the neutral default",
			confidence: nil,
			expected:   NeutralConfidence,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidates := []domain.TranscriptionCandidate{
				cand("alpha", "the only text", tt.confidence, 50000),
			}
			got := estimateFor(t, candidates, equalityScore)
			// Speed and agreement play no part with a single candidate.
			assert.InDelta(t, tt.expected, got, 1e-9)
		})
	}
}

func TestEstimateBlendsAgreementConfidenceAndSpeed(t *testing.T) {
	candidates := []domain.TranscriptionCandidate{
		cand("alpha", "cats and dogs", domain.Float64Ptr(0.95), 600),
		cand("bravo", "cats and dogs", domain.Float64Ptr(0.90), 800),
	}

	got := estimateFor(t, candidates, equalityScore)

	// Winner is alpha (higher confidence on identical agreement):
	// 0.7*1.0 + 0.15*0.95 + 0.15*1.0 = 0.9925.
	assert.InDelta(t, 0.9925, got, 1e-9)
}

// middleScore makes the text "middle" moderately similar to everything
// while the remaining texts barely agree with each other, so a candidate
// with no reported confidence can win the ranking.
func middleScore(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "middle" || b == "middle" {
		return 0.8
	}
	return 0.2
}

func TestEstimateWinnerWithoutConfidenceUsesPeerMean(t *testing.T) {
	candidates := []domain.TranscriptionCandidate{
		cand("alpha", "left", domain.Float64Ptr(0.6), 1000),
		cand("bravo", "middle", nil, 1000),
		cand("charlie", "right", domain.Float64Ptr(1.0), 1000),
	}

	got := estimateFor(t, candidates, middleScore)

	// bravo wins with agreement 0.8; its missing confidence is replaced
	// by the mean of the reported ones, (0.6+1.0)/2 = 0.8:
	// 0.7*0.8 + 0.15*0.8 + 0.15*1.0 = 0.83.
	assert.InDelta(t, 0.83, got, 1e-9)
}

func TestEstimateNoConfidenceAnywhereUsesNeutralMidpoint(t *testing.T) {
	candidates := []domain.TranscriptionCandidate{
		cand("alpha", "left", nil, 1000),
		cand("bravo", "middle", nil, 1000),
		cand("charlie", "right", nil, 1000),
	}

	got := estimateFor(t, candidates, middleScore)

	// 0.7*0.8 + 0.15*0.5 + 0.15*1.0 = 0.785.
	assert.InDelta(t, 0.785, got, 1e-9)
}

func TestEstimateSlowWinnerPaysTheSpeedPenalty(t *testing.T) {
	candidates := []domain.TranscriptionCandidate{
		cand("alpha", "cats and dogs", domain.Float64Ptr(1.0), 60000),
		cand("bravo", "cats and dogs", domain.Float64Ptr(0.5), 600),
	}

	got := estimateFor(t, candidates, equalityScore)

	// Alpha still wins on confidence, but its speed term is floored:
	// 0.7*1.0 + 0.15*1.0 + 0.15*0.2 = 0.88.
	assert.InDelta(t, 0.88, got, 1e-9)
}

func TestEstimateStaysInRange(t *testing.T) {
	inputs := [][]domain.TranscriptionCandidate{
		{
			cand("alpha", "a", domain.Float64Ptr(1.0), 0),
			cand("bravo", "a", domain.Float64Ptr(1.0), 0),
		},
		{
			cand("alpha", "a", nil, 90000),
			cand("bravo", "b", nil, 90000),
			cand("charlie", "c", nil, 90000),
		},
	}

	for _, candidates := range inputs {
		got := estimateFor(t, candidates, equalityScore)
		assert.GreaterOrEqual(t, got, 0.0)
		assert.LessOrEqual(t, got, 1.0)
	}
}
