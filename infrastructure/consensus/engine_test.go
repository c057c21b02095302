package consensus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-chorus/infrastructure/scoring"
	"github.com/ahrav/go-chorus/internal/domain"
	"github.com/ahrav/go-chorus/internal/ports"
)

// stubScorer adapts a plain similarity function to the scorer port.
type stubScorer struct {
	name string
	fn   func(a, b string) float64
}

func (s *stubScorer) Name() string { return s.name }

func (s *stubScorer) Score(a, b string) float64 { return s.fn(a, b) }

func newEqualityScorer() *stubScorer {
	return &stubScorer{name: "equality", fn: equalityScore}
}

// mockObserver records every signal the engine emits. The engine is
// synchronous, so no locking is needed.
type mockObserver struct {
	filtered    []error
	completed   int
	lastElapsed time.Duration
	fallbacks   []error
}

func (m *mockObserver) CandidateFiltered(_ context.Context, _ domain.TranscriptionCandidate, reason error) {
	m.filtered = append(m.filtered, reason)
}

func (m *mockObserver) EvaluationCompleted(_ context.Context, _ *domain.ConsensusResult, elapsed time.Duration) {
	m.completed++
	m.lastElapsed = elapsed
}

func (m *mockObserver) FallbackTriggered(_ context.Context, cause error) {
	m.fallbacks = append(m.fallbacks, cause)
}

func newHybridScorer(t *testing.T) ports.SimilarityScorer {
	t.Helper()
	scorer, err := scoring.NewHybridScorer(scoring.DefaultConfig())
	require.NoError(t, err)
	return scorer
}

func TestNewEngine(t *testing.T) {
	tests := []struct {
		name          string
		scorer        ports.SimilarityScorer
		config        Config
		expectedError string
	}{
		{
			name:   "valid construction",
			scorer: newEqualityScorer(),
			config: DefaultConfig(),
		},
		{
			name:          "nil scorer is rejected",
			scorer:        nil,
			config:        DefaultConfig(),
			expectedError: "scorer cannot be nil",
		},
		{
			name:   "invalid config is rejected",
			scorer: newEqualityScorer(),
			config: func() Config {
				c := DefaultConfig()
				c.SimilarityWeight = 0.5
				return c
			}(),
			expectedError: "decision weights sum to",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, err := NewEngine(tt.scorer, tt.config)
			if tt.expectedError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				assert.Nil(t, engine)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, engine)
		})
	}
}

func TestEvaluateSingleCandidate(t *testing.T) {
	tests := []struct {
		name               string
		confidence         *float64
		expectedConfidence float64
	}{
		{
			name:               "reported confidence carries through",
			confidence:         domain.Float64Ptr(0.9),
			expectedConfidence: 0.9,
		},
		{
			name:               "missing confidence defaults to neutral",
			confidence:         nil,
			expectedConfidence: NeutralConfidence,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, err := NewEngine(newEqualityScorer(), DefaultConfig())
			require.NoError(t, err)

			candidates := []domain.TranscriptionCandidate{
				cand("alpha", "turn on the kitchen lights", tt.confidence, 850),
			}

			result, err := engine.Evaluate(context.Background(), candidates)
			require.NoError(t, err)

			assert.Equal(t, "turn on the kitchen lights", result.FinalText)
			assert.InDelta(t, tt.expectedConfidence, result.ConsensusConfidence, 1e-9)
			assert.Equal(t, 1, result.Stats.ServicesUsed)
			assert.Empty(t, result.Disagreements)
			assert.Len(t, result.Reasoning.Steps, 3)
			assert.False(t, result.Reasoning.UsedFallback())
			assert.NotEmpty(t, result.ID)
			assert.False(t, result.Timestamp.IsZero())
		})
	}
}

func TestEvaluateIdenticalTextsAgree(t *testing.T) {
	engine, err := NewEngine(newHybridScorer(t), DefaultConfig())
	require.NoError(t, err)

	candidates := []domain.TranscriptionCandidate{
		cand("alpha", "cats and dogs", domain.Float64Ptr(0.95), 600),
		cand("bravo", "cats and dogs", domain.Float64Ptr(0.90), 800),
	}

	result, err := engine.Evaluate(context.Background(), candidates)
	require.NoError(t, err)

	assert.Equal(t, "cats and dogs", result.FinalText)
	// Perfect agreement, the winner's 0.95 confidence, full speed marks:
	// 0.7*1.0 + 0.15*0.95 + 0.15*1.0 = 0.9925.
	assert.InDelta(t, 0.9925, result.ConsensusConfidence, 1e-9)
	assert.Greater(t, result.ConsensusConfidence, 0.9)

	assert.Empty(t, result.Disagreements)
	assert.Equal(t, 2, result.Stats.ServicesUsed)
	assert.Equal(t, int64(800), result.Stats.TotalProcessingTimeMs)
	assert.InDelta(t, 0.925, result.Stats.AverageConfidence, 1e-9)
	assert.Equal(t, 0, result.Stats.DisagreementCount)

	assert.Equal(t, "hybrid", result.Reasoning.Steps[1].Data["algorithm"])
	assert.Contains(t, result.Reasoning.FinalReasoning, "alpha")
}

func TestEvaluateDivergentTextsDisagree(t *testing.T) {
	scorer := newHybridScorer(t)
	engine, err := NewEngine(scorer, DefaultConfig())
	require.NoError(t, err)

	textA := "aaaa bbbb cccc"
	textB := "xxxx yyyy zzzz"
	candidates := []domain.TranscriptionCandidate{
		cand("alpha", textA, domain.Float64Ptr(0.8), 500),
		cand("bravo", textB, nil, 500),
	}

	result, err := engine.Evaluate(context.Background(), candidates)
	require.NoError(t, err)

	// Agreement ties at the pair similarity, so alpha wins on having
	// reported a confidence at all.
	assert.Equal(t, textA, result.FinalText)

	require.Len(t, result.Disagreements, 1)
	d := result.Disagreements[0]
	assert.Equal(t, []string{"alpha", "bravo"}, d.Services)
	assert.Equal(t, textA, d.Texts["alpha"])
	assert.Equal(t, textB, d.Texts["bravo"])
	assert.InDelta(t, 1.0-scorer.Score(textA, textB), d.Severity, 1e-9)

	assert.Equal(t, 1, result.Stats.DisagreementCount)
	require.Len(t, result.Reasoning.ConflictResolutions, 1)
	assert.Equal(t, "alpha", result.Reasoning.ConflictResolutions[0].WinningService)
}

func TestEvaluateEmptyTextsYieldEmptyConsensus(t *testing.T) {
	engine, err := NewEngine(newHybridScorer(t), DefaultConfig())
	require.NoError(t, err)

	candidates := []domain.TranscriptionCandidate{
		cand("alpha", "", nil, 100),
		cand("bravo", "", nil, 120),
	}

	result, err := engine.Evaluate(context.Background(), candidates)
	require.NoError(t, err)

	// Two services agreeing on silence is still agreement.
	assert.Equal(t, "", result.FinalText)
	assert.True(t, result.ContainsText(result.FinalText))
	// 0.7*1.0 + 0.15*0.5 + 0.15*1.0 = 0.925.
	assert.InDelta(t, 0.925, result.ConsensusConfidence, 1e-9)
	assert.Empty(t, result.Disagreements)
}

func TestEvaluateThreeDissimilarCandidatesPickDeterministically(t *testing.T) {
	engine, err := NewEngine(newEqualityScorer(), DefaultConfig())
	require.NoError(t, err)

	// All pairwise similarities are zero and nobody reported confidence,
	// so the service-name tie-break decides.
	candidates := []domain.TranscriptionCandidate{
		cand("charlie", "play some jazz", nil, 400),
		cand("alpha", "turn up the volume", nil, 900),
		cand("bravo", "what time is it", nil, 650),
	}

	result, err := engine.Evaluate(context.Background(), candidates)
	require.NoError(t, err)

	assert.Equal(t, "turn up the volume", result.FinalText)
	assert.Len(t, result.Disagreements, 3)
}

func TestEvaluateIsDeterministicAcrossRuns(t *testing.T) {
	engine, err := NewEngine(newHybridScorer(t), DefaultConfig())
	require.NoError(t, err)

	candidates := []domain.TranscriptionCandidate{
		cand("alpha", "turn on the kitchen lights", domain.Float64Ptr(0.92), 700),
		cand("bravo", "turn on the kitchen light", nil, 450),
		cand("charlie", "turn off the kitchen lights", domain.Float64Ptr(0.85), 1100),
	}

	first, err := engine.Evaluate(context.Background(), candidates)
	require.NoError(t, err)
	second, err := engine.Evaluate(context.Background(), candidates)
	require.NoError(t, err)

	// Identity fields are fresh per evaluation; everything semantic must
	// be identical.
	assert.NotEqual(t, first.ID, second.ID)

	assert.Equal(t, first.FinalText, second.FinalText)
	assert.Equal(t, first.ConsensusConfidence, second.ConsensusConfidence)
	assert.Equal(t, first.IndividualResults, second.IndividualResults)
	assert.Equal(t, first.Disagreements, second.Disagreements)
	assert.Equal(t, first.Stats, second.Stats)

	assert.Equal(t, first.Reasoning.FinalReasoning, second.Reasoning.FinalReasoning)
	assert.Equal(t, first.Reasoning.DecisionFactors, second.Reasoning.DecisionFactors)
	assert.Equal(t, first.Reasoning.ConflictResolutions, second.Reasoning.ConflictResolutions)
	assert.Equal(t, first.Reasoning.QualityAssessment, second.Reasoning.QualityAssessment)

	require.Equal(t, len(first.Reasoning.Steps), len(second.Reasoning.Steps))
	for i := range first.Reasoning.Steps {
		assert.Equal(t, first.Reasoning.Steps[i].Description, second.Reasoning.Steps[i].Description)
		assert.Equal(t, first.Reasoning.Steps[i].Category, second.Reasoning.Steps[i].Category)
	}
}

func TestEvaluateWinnerIsStableAcrossInputPermutations(t *testing.T) {
	t.Run("ranked by hybrid similarity", func(t *testing.T) {
		engine, err := NewEngine(newHybridScorer(t), DefaultConfig())
		require.NoError(t, err)

		base := []domain.TranscriptionCandidate{
			cand("alpha", "turn on the kitchen lights", domain.Float64Ptr(0.92), 700),
			cand("bravo", "turn on the kitchen light", nil, 450),
			cand("charlie", "turn off the kitchen lights", domain.Float64Ptr(0.85), 1100),
		}
		permutations := [][]domain.TranscriptionCandidate{
			{base[0], base[1], base[2]},
			{base[2], base[1], base[0]},
			{base[1], base[2], base[0]},
			{base[2], base[0], base[1]},
		}

		reference, err := engine.Evaluate(context.Background(), permutations[0])
		require.NoError(t, err)

		for _, candidates := range permutations[1:] {
			result, err := engine.Evaluate(context.Background(), candidates)
			require.NoError(t, err)

			assert.Equal(t, reference.FinalText, result.FinalText)
			assert.Equal(t, reference.ConsensusConfidence, result.ConsensusConfidence)
			assert.Equal(t, reference.Stats, result.Stats)
		}
	})

	t.Run("decided purely by tie-breaks", func(t *testing.T) {
		engine, err := NewEngine(newEqualityScorer(), DefaultConfig())
		require.NoError(t, err)

		// Zero pairwise similarity everywhere and no confidences, so only
		// the service-name tie-break separates the candidates. Alpha must
		// win from every starting order.
		base := []domain.TranscriptionCandidate{
			cand("charlie", "play some jazz", nil, 400),
			cand("alpha", "turn up the volume", nil, 900),
			cand("bravo", "what time is it", nil, 650),
		}
		permutations := [][]domain.TranscriptionCandidate{
			{base[0], base[1], base[2]},
			{base[1], base[2], base[0]},
			{base[2], base[0], base[1]},
			{base[2], base[1], base[0]},
		}

		for _, candidates := range permutations {
			result, err := engine.Evaluate(context.Background(), candidates)
			require.NoError(t, err)
			assert.Equal(t, "turn up the volume", result.FinalText)
		}
	})
}

func TestEvaluateFiltersInvalidCandidates(t *testing.T) {
	observer := &mockObserver{}
	engine, err := NewEngine(newEqualityScorer(), DefaultConfig(), WithObserver(observer))
	require.NoError(t, err)

	missingService := domain.TranscriptionCandidate{
		ID:               "id-unnamed",
		Text:             "ignored",
		ProcessingTimeMs: 100,
	}
	candidates := []domain.TranscriptionCandidate{
		cand("alpha", "hello world", domain.Float64Ptr(0.9), 100),
		missingService,
	}

	result, err := engine.Evaluate(context.Background(), candidates)
	require.NoError(t, err)

	require.Len(t, result.IndividualResults, 1)
	assert.Equal(t, "alpha", result.IndividualResults[0].ServiceName)
	assert.Equal(t, 1, result.Stats.ServicesUsed)

	require.Len(t, observer.filtered, 1)
	assert.ErrorIs(t, observer.filtered[0], domain.ErrEmptyServiceName)

	validation := result.Reasoning.Steps[0]
	assert.Equal(t, 2, validation.Data["submitted"])
	assert.Equal(t, 1, validation.Data["filtered"])
}

func TestEvaluateNoValidCandidates(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		engine, err := NewEngine(newEqualityScorer(), DefaultConfig())
		require.NoError(t, err)

		result, err := engine.Evaluate(context.Background(), nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrNoValidCandidates)
		assert.Nil(t, result)
	})

	t.Run("every candidate filtered", func(t *testing.T) {
		observer := &mockObserver{}
		engine, err := NewEngine(newEqualityScorer(), DefaultConfig(), WithObserver(observer))
		require.NoError(t, err)

		candidates := []domain.TranscriptionCandidate{
			{ServiceName: "alpha", Text: "no id"},
			{ID: "id-2", Text: "no service"},
		}

		result, err := engine.Evaluate(context.Background(), candidates)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrNoValidCandidates)
		assert.Contains(t, err.Error(), "submitted 2, filtered 2")
		assert.Nil(t, result)
		assert.Len(t, observer.filtered, 2)
		assert.Zero(t, observer.completed)
	})
}

func TestEvaluateContextCanceled(t *testing.T) {
	engine, err := NewEngine(newEqualityScorer(), DefaultConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := engine.Evaluate(ctx, []domain.TranscriptionCandidate{
		cand("alpha", "hello", nil, 100),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result)
}

func TestEvaluateFallback(t *testing.T) {
	forced := domain.NewConsistencyError("final text membership", "forced for test")

	t.Run("enabled fallback returns the fastest candidate", func(t *testing.T) {
		observer := &mockObserver{}
		config := DefaultConfig()
		config.EnableFallback = true
		engine, err := NewEngine(newEqualityScorer(), config, WithObserver(observer))
		require.NoError(t, err)
		engine.verify = func(*domain.ConsensusResult) error { return forced }

		candidates := []domain.TranscriptionCandidate{
			cand("alpha", "the slow answer", domain.Float64Ptr(0.99), 5000),
			cand("bravo", "the fast answer", domain.Float64Ptr(0.65), 150),
		}

		result, err := engine.Evaluate(context.Background(), candidates)
		require.NoError(t, err)

		assert.Equal(t, "the fast answer", result.FinalText)
		assert.InDelta(t, 0.65, result.ConsensusConfidence, 1e-9)
		assert.Empty(t, result.Disagreements)
		assert.Equal(t, 2, result.Stats.ServicesUsed)

		assert.True(t, result.Reasoning.UsedFallback())
		require.Len(t, result.Reasoning.Steps, 1)
		step := result.Reasoning.Steps[0]
		assert.Equal(t, domain.StepFallback, step.Category)
		assert.Equal(t, "bravo", step.Data["service"])
		assert.Contains(t, step.Data["cause"], "final text membership")

		require.Len(t, observer.fallbacks, 1)
		var fbErr *domain.FallbackError
		require.ErrorAs(t, observer.fallbacks[0], &fbErr)
		assert.ErrorIs(t, fbErr, domain.ErrInternalInconsistency)
		assert.Equal(t, 1, observer.completed)
	})

	t.Run("fastest candidate without confidence gets the neutral default", func(t *testing.T) {
		config := DefaultConfig()
		config.EnableFallback = true
		engine, err := NewEngine(newEqualityScorer(), config)
		require.NoError(t, err)
		engine.verify = func(*domain.ConsensusResult) error { return forced }

		candidates := []domain.TranscriptionCandidate{
			cand("alpha", "slow", domain.Float64Ptr(0.9), 5000),
			cand("bravo", "fast", nil, 150),
		}

		result, err := engine.Evaluate(context.Background(), candidates)
		require.NoError(t, err)
		assert.Equal(t, "fast", result.FinalText)
		assert.InDelta(t, NeutralConfidence, result.ConsensusConfidence, 1e-9)
	})

	t.Run("disabled fallback surfaces the violation", func(t *testing.T) {
		observer := &mockObserver{}
		config := DefaultConfig()
		config.EnableFallback = false
		engine, err := NewEngine(newEqualityScorer(), config, WithObserver(observer))
		require.NoError(t, err)
		engine.verify = func(*domain.ConsensusResult) error { return forced }

		result, err := engine.Evaluate(context.Background(), []domain.TranscriptionCandidate{
			cand("alpha", "hello", nil, 100),
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInternalInconsistency)
		assert.Nil(t, result)
		assert.Empty(t, observer.fallbacks)
		assert.Zero(t, observer.completed)
	})
}

func TestEvaluateFinalTextAlwaysComesFromACandidate(t *testing.T) {
	engine, err := NewEngine(newHybridScorer(t), DefaultConfig())
	require.NoError(t, err)

	inputs := [][]domain.TranscriptionCandidate{
		{
			cand("alpha", "play the next song", domain.Float64Ptr(0.9), 300),
		},
		{
			cand("alpha", "play the next song", domain.Float64Ptr(0.9), 300),
			cand("bravo", "play the next track", nil, 500),
		},
		{
			cand("alpha", "set a timer", nil, 300),
			cand("bravo", "completely unrelated words", nil, 500),
			cand("charlie", "set a timer for ten minutes", domain.Float64Ptr(0.7), 900),
		},
	}

	for _, candidates := range inputs {
		result, err := engine.Evaluate(context.Background(), candidates)
		require.NoError(t, err)
		assert.True(t, result.ContainsText(result.FinalText))
	}
}

func TestEvaluateNotifiesObserverOnCompletion(t *testing.T) {
	observer := &mockObserver{}
	engine, err := NewEngine(newEqualityScorer(), DefaultConfig(), WithObserver(observer))
	require.NoError(t, err)

	_, err = engine.Evaluate(context.Background(), []domain.TranscriptionCandidate{
		cand("alpha", "hello", nil, 100),
		cand("bravo", "hello", nil, 200),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, observer.completed)
	assert.GreaterOrEqual(t, observer.lastElapsed, time.Duration(0))
	assert.Empty(t, observer.filtered)
	assert.Empty(t, observer.fallbacks)
}

func TestEvaluateResultPassesDomainValidation(t *testing.T) {
	engine, err := NewEngine(newHybridScorer(t), DefaultConfig())
	require.NoError(t, err)

	result, err := engine.Evaluate(context.Background(), []domain.TranscriptionCandidate{
		cand("alpha", "turn on the lights", domain.Float64Ptr(0.9), 400),
		cand("bravo", "turn on the light", domain.Float64Ptr(0.8), 600),
		cand("charlie", "completely different words here", nil, 800),
	})
	require.NoError(t, err)

	require.NoError(t, result.Validate())
	assert.True(t, result.ContainsText(result.FinalText))
}
