// Package consensus implements the agreement engine that merges multiple
// speech-to-text candidates into a single transcription with a calibrated
// confidence, detected disagreements, aggregate statistics, and a full
// reasoning trace. Every evaluation is a pure function of its input; the
// engine carries no state between calls.
package consensus

import (
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-chorus/internal/domain"
)

// Package-level validator instance for configuration validation.
// Uses go-playground/validator v10 for struct tag-based validation.
var validate = validator.New()

// Default configuration values for the consensus engine.
const (
	// DefaultSimilarityWeight makes mutual agreement the dominant signal
	// in the confidence blend, so an overconfident outlier recognizer
	// cannot buy its way to the top.
	DefaultSimilarityWeight = 0.7

	// DefaultConfidenceWeight scales the reported-confidence term of the
	// confidence blend.
	DefaultConfidenceWeight = 0.15

	// DefaultSpeedWeight scales the processing-speed term of the
	// confidence blend.
	DefaultSpeedWeight = 0.15

	// DefaultAgreementThreshold is the pairwise similarity below which
	// two candidates count as disagreeing.
	DefaultAgreementThreshold = 0.3

	// DefaultQualityConfidenceWeight scales the confidence term of the
	// per-service quality score.
	DefaultQualityConfidenceWeight = 0.7

	// DefaultQualitySpeedWeight scales the speed term of the per-service
	// quality score.
	DefaultQualitySpeedWeight = 0.3

	// DefaultAcceptableQuality is the quality score at which a service
	// stops being recommended against.
	DefaultAcceptableQuality = 0.5

	// DefaultPreferredQuality is the quality score at which a service
	// becomes preferred.
	DefaultPreferredQuality = 0.8

	// DefaultLowConfidence is the reported confidence below which a
	// quality assessment records a weakness.
	DefaultLowConfidence = 0.5

	// DefaultHighConfidence is the reported confidence above which a
	// quality assessment records a strength.
	DefaultHighConfidence = 0.8

	// DefaultFastProcessingMs is the processing time at or below which a
	// service earns a full speed score.
	DefaultFastProcessingMs = 2000

	// DefaultSlowProcessingMs is the processing time at or beyond which
	// the speed score bottoms out at the floor.
	DefaultSlowProcessingMs = 10000

	// DefaultSpeedScoreFloor is the lowest speed score a slow service
	// can receive. Slowness degrades a score; it never zeroes it.
	DefaultSpeedScoreFloor = 0.2

	// NeutralConfidence stands in for a missing confidence report when a
	// single value is needed: no corroboration is available, but there
	// is no evidence of error either.
	NeutralConfidence = 0.75

	// noSignalConfidence substitutes for the confidence term of the
	// blend when not a single candidate reported a confidence.
	noSignalConfidence = 0.5

	// weightSumTolerance bounds the floating-point slack allowed when
	// checking that weight groups sum to 1.0.
	weightSumTolerance = 1e-9
)

// Config defines the tunable behavior of a consensus engine instance.
// Configuration is passed in at construction time rather than read from
// ambient globals, so differently tuned engines can run concurrently and
// tests can isolate their settings. All fields are validated during
// engine creation.
type Config struct {
	// SimilarityWeight scales the agreement term of the confidence
	// blend. The three decision weights must sum to 1.0.
	SimilarityWeight float64 `yaml:"similarity_weight" json:"similarity_weight" validate:"min=0.0,max=1.0"`

	// ConfidenceWeight scales the reported-confidence term of the
	// confidence blend.
	ConfidenceWeight float64 `yaml:"confidence_weight" json:"confidence_weight" validate:"min=0.0,max=1.0"`

	// SpeedWeight scales the processing-speed term of the confidence
	// blend.
	SpeedWeight float64 `yaml:"speed_weight" json:"speed_weight" validate:"min=0.0,max=1.0"`

	// AgreementThreshold is the pairwise similarity below which two
	// candidates are recorded as a Disagreement.
	AgreementThreshold float64 `yaml:"agreement_threshold" json:"agreement_threshold" validate:"min=0.0,max=1.0"`

	// QualityConfidenceWeight scales the confidence term of the
	// per-service quality score. The two quality weights must sum to 1.0.
	QualityConfidenceWeight float64 `yaml:"quality_confidence_weight" json:"quality_confidence_weight" validate:"min=0.0,max=1.0"`

	// QualitySpeedWeight scales the speed term of the per-service
	// quality score.
	QualitySpeedWeight float64 `yaml:"quality_speed_weight" json:"quality_speed_weight" validate:"min=0.0,max=1.0"`

	// AcceptableQuality is the quality score at which a service earns an
	// "acceptable" recommendation. Must be strictly below PreferredQuality.
	AcceptableQuality float64 `yaml:"acceptable_quality" json:"acceptable_quality" validate:"min=0.0,max=1.0"`

	// PreferredQuality is the quality score at which a service earns a
	// "preferred" recommendation.
	PreferredQuality float64 `yaml:"preferred_quality" json:"preferred_quality" validate:"min=0.0,max=1.0"`

	// LowConfidence marks reported confidences below it as a weakness.
	// Must be strictly below HighConfidence.
	LowConfidence float64 `yaml:"low_confidence" json:"low_confidence" validate:"min=0.0,max=1.0"`

	// HighConfidence marks reported confidences at or above it as a
	// strength.
	HighConfidence float64 `yaml:"high_confidence" json:"high_confidence" validate:"min=0.0,max=1.0"`

	// FastProcessingMs is the processing time at or below which a
	// candidate earns a full speed score. Must be strictly below
	// SlowProcessingMs.
	FastProcessingMs int64 `yaml:"fast_processing_ms" json:"fast_processing_ms" validate:"min=0"`

	// SlowProcessingMs is the processing time at or beyond which the
	// speed score bottoms out at SpeedScoreFloor.
	SlowProcessingMs int64 `yaml:"slow_processing_ms" json:"slow_processing_ms" validate:"min=0"`

	// SpeedScoreFloor is the minimum speed score, applied at or beyond
	// SlowProcessingMs.
	SpeedScoreFloor float64 `yaml:"speed_score_floor" json:"speed_score_floor" validate:"min=0.0,max=1.0"`

	// EnableFallback turns on the degraded-success policy: when the
	// final consistency check fails, the engine returns the fastest
	// valid candidate with the violation recorded in the reasoning
	// trace instead of failing the call.
	EnableFallback bool `yaml:"enable_fallback" json:"enable_fallback"`
}

// DefaultConfig returns a Config populated with the reference defaults.
// The fallback policy starts disabled; deployments that prefer a degraded
// answer over a failed call opt in explicitly.
func DefaultConfig() Config {
	return Config{
		SimilarityWeight:        DefaultSimilarityWeight,
		ConfidenceWeight:        DefaultConfidenceWeight,
		SpeedWeight:             DefaultSpeedWeight,
		AgreementThreshold:      DefaultAgreementThreshold,
		QualityConfidenceWeight: DefaultQualityConfidenceWeight,
		QualitySpeedWeight:      DefaultQualitySpeedWeight,
		AcceptableQuality:       DefaultAcceptableQuality,
		PreferredQuality:        DefaultPreferredQuality,
		LowConfidence:           DefaultLowConfidence,
		HighConfidence:          DefaultHighConfidence,
		FastProcessingMs:        DefaultFastProcessingMs,
		SlowProcessingMs:        DefaultSlowProcessingMs,
		SpeedScoreFloor:         DefaultSpeedScoreFloor,
		EnableFallback:          false,
	}
}

// Validate checks field ranges and the cross-field consistency rules the
// engine depends on. It must pass before a Config is used.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	if sum := c.SimilarityWeight + c.ConfidenceWeight + c.SpeedWeight; math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("decision weights sum to %g, must sum to 1.0: %w", sum, domain.ErrInvalidConfiguration)
	}
	if sum := c.QualityConfidenceWeight + c.QualitySpeedWeight; math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("quality weights sum to %g, must sum to 1.0: %w", sum, domain.ErrInvalidConfiguration)
	}
	if c.AcceptableQuality >= c.PreferredQuality {
		return fmt.Errorf("acceptable quality %g must be strictly below preferred quality %g: %w",
			c.AcceptableQuality, c.PreferredQuality, domain.ErrInvalidConfiguration)
	}
	if c.LowConfidence >= c.HighConfidence {
		return fmt.Errorf("low confidence %g must be strictly below high confidence %g: %w",
			c.LowConfidence, c.HighConfidence, domain.ErrInvalidConfiguration)
	}
	if c.FastProcessingMs >= c.SlowProcessingMs {
		return fmt.Errorf("fast processing threshold %dms must be strictly below slow threshold %dms: %w",
			c.FastProcessingMs, c.SlowProcessingMs, domain.ErrInvalidConfiguration)
	}
	return nil
}

// speedScore converts a processing time to a score in [SpeedScoreFloor, 1.0]:
// full marks at or below the fast threshold, linear decay in between, and
// the floor at or beyond the slow threshold.
func (c Config) speedScore(processingTimeMs int64) float64 {
	if processingTimeMs <= c.FastProcessingMs {
		return 1.0
	}
	if processingTimeMs >= c.SlowProcessingMs {
		return c.SpeedScoreFloor
	}
	progress := float64(processingTimeMs-c.FastProcessingMs) / float64(c.SlowProcessingMs-c.FastProcessingMs)
	return 1.0 - progress*(1.0-c.SpeedScoreFloor)
}
