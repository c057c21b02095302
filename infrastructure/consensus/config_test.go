package consensus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-chorus/internal/domain"
)

func TestDefaultConfigIsValid(t *testing.T) {
	config := DefaultConfig()
	require.NoError(t, config.Validate())

	assert.InDelta(t, DefaultSimilarityWeight, config.SimilarityWeight, 1e-9)
	assert.InDelta(t, DefaultAgreementThreshold, config.AgreementThreshold, 1e-9)
	assert.False(t, config.EnableFallback, "fallback is opt-in")
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name          string
		mutate        func(*Config)
		expectedError string
		wantSentinel  bool
	}{
		{
			name:   "default config passes",
			mutate: func(c *Config) {},
		},
		{
			name: "decision weights must sum to one",
			mutate: func(c *Config) {
				c.SimilarityWeight = 0.6
			},
			expectedError: "decision weights sum to",
			wantSentinel:  true,
		},
		{
			name: "quality weights must sum to one",
			mutate: func(c *Config) {
				c.QualityConfidenceWeight = 0.6
			},
			expectedError: "quality weights sum to",
			wantSentinel:  true,
		},
		{
			name: "acceptable quality must stay below preferred",
			mutate: func(c *Config) {
				c.AcceptableQuality = 0.8
			},
			expectedError: "acceptable quality",
			wantSentinel:  true,
		},
		{
			name: "low confidence must stay below high",
			mutate: func(c *Config) {
				c.LowConfidence = 0.8
			},
			expectedError: "low confidence",
			wantSentinel:  true,
		},
		{
			name: "fast threshold must stay below slow",
			mutate: func(c *Config) {
				c.FastProcessingMs = 10000
			},
			expectedError: "fast processing threshold",
			wantSentinel:  true,
		},
		{
			name: "weight above one fails range validation",
			mutate: func(c *Config) {
				c.SimilarityWeight = 1.5
			},
			expectedError: "configuration validation failed",
		},
		{
			name: "negative agreement threshold fails range validation",
			mutate: func(c *Config) {
				c.AgreementThreshold = -0.1
			},
			expectedError: "configuration validation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(&config)

			err := config.Validate()
			if tt.expectedError == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedError)
			if tt.wantSentinel {
				assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
			}
		})
	}
}

func TestSpeedScore(t *testing.T) {
	config := DefaultConfig()

	tests := []struct {
		name     string
		timeMs   int64
		expected float64
	}{
		{name: "instant earns full score", timeMs: 0, expected: 1.0},
		{name: "at fast threshold earns full score", timeMs: 2000, expected: 1.0},
		{name: "quarter of the way decays linearly", timeMs: 4000, expected: 0.8},
		{name: "midpoint decays linearly", timeMs: 6000, expected: 0.6},
		{name: "at slow threshold hits the floor", timeMs: 10000, expected: 0.2},
		{name: "beyond slow threshold stays at the floor", timeMs: 60000, expected: 0.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, config.speedScore(tt.timeMs), 1e-9)
		})
	}
}
