// Package fanout runs one audio clip through every configured recognizer
// concurrently and shapes the survivors into transcription candidates for
// the consensus engine. Individual service failures are tolerated; the
// run fails only when fewer services answer than the configured minimum.
package fanout

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-chorus/internal/domain"
	"github.com/ahrav/go-chorus/internal/ports"
)

// Shared validator instance to reduce allocations.
var validate = validator.New()

// ErrTooFewCandidates indicates that fewer recognizers produced a usable
// candidate than the configured minimum.
var ErrTooFewCandidates = errors.New("too few candidates")

// Configuration constants for the fan-out runner.
const (
	// DefaultPerServiceTimeoutMs bounds each recognizer call. It matches
	// the point at which the consensus speed score bottoms out; a service
	// slower than this would contribute a floor-scored candidate anyway.
	DefaultPerServiceTimeoutMs = 10000

	// DefaultMaxConcurrency is the default number of recognizers called
	// in parallel.
	DefaultMaxConcurrency = 5

	// DefaultMinCandidates is the minimum number of successful
	// transcriptions a run must produce.
	DefaultMinCandidates = 1
)

// Config defines the tunable behavior of a fan-out run.
type Config struct {
	// PerServiceTimeoutMs bounds each individual recognizer call.
	PerServiceTimeoutMs int64 `yaml:"per_service_timeout_ms" json:"per_service_timeout_ms" validate:"min=1"`

	// MaxConcurrency caps how many recognizers run at once.
	MaxConcurrency int `yaml:"max_concurrency" json:"max_concurrency" validate:"min=1"`

	// MinCandidates is the minimum number of successful transcriptions
	// required for the run to succeed.
	MinCandidates int `yaml:"min_candidates" json:"min_candidates" validate:"min=1"`
}

// DefaultConfig returns a Config populated with the reference defaults.
func DefaultConfig() Config {
	return Config{
		PerServiceTimeoutMs: DefaultPerServiceTimeoutMs,
		MaxConcurrency:      DefaultMaxConcurrency,
		MinCandidates:       DefaultMinCandidates,
	}
}

// Validate checks that all configuration fields are within range.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("fanout configuration validation failed: %w", err)
	}
	return nil
}

// Runner fans a clip out to a fixed set of recognizers. Candidates come
// back in recognizer registration order regardless of completion order,
// so downstream results are reproducible.
type Runner struct {
	recognizers []ports.Recognizer
	config      Config
	logger      zerolog.Logger
}

// NewRunner creates a Runner over the given recognizers. Returns an error
// when no recognizers are supplied, any of them is nil, or the
// configuration fails validation.
func NewRunner(recognizers []ports.Recognizer, config Config, logger zerolog.Logger) (*Runner, error) {
	if len(recognizers) == 0 {
		return nil, errors.New("at least one recognizer is required")
	}
	for i, r := range recognizers {
		if r == nil {
			return nil, fmt.Errorf("recognizer at index %d is nil", i)
		}
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Runner{
		recognizers: recognizers,
		config:      config,
		logger:      logger,
	}, nil
}

// Run transcribes the clip with every recognizer concurrently and returns
// the successful results as candidates. A failing or timed-out service is
// logged and skipped; Run fails only when the context is done or fewer
// than MinCandidates services produced a transcription.
func (r *Runner) Run(ctx context.Context, clip ports.AudioClip) ([]domain.TranscriptionCandidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timeout := time.Duration(r.config.PerServiceTimeoutMs) * time.Millisecond
	results := make([]*domain.TranscriptionCandidate, len(r.recognizers))

	var g errgroup.Group
	g.SetLimit(r.config.MaxConcurrency)

	for i, rec := range r.recognizers {
		idx, rec := i, rec
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			start := time.Now()
			transcription, err := rec.Transcribe(callCtx, clip)
			elapsed := time.Since(start)

			if err != nil {
				recErr := ports.NewRecognizerError(rec.Name(), err, elapsed)
				r.logger.Warn().
					Str("service", rec.Name()).
					Dur("elapsed", elapsed).
					Bool("retryable", recErr.IsRetryable()).
					Err(err).
					Msg("Recognizer failed, continuing without it")
				return nil
			}

			// A confidence outside [0.0, 1.0] means the service violated
			// its contract; the whole response is suspect, not just the
			// number, so the candidate is dropped like any other failure.
			if c := transcription.Confidence; c != nil && (math.IsNaN(*c) || math.IsInf(*c, 0) || *c < 0 || *c > 1) {
				recErr := ports.NewRecognizerError(rec.Name(),
					fmt.Errorf("confidence %v outside [0.0, 1.0]: %w", *c, ports.ErrInvalidResponse), elapsed)
				r.logger.Warn().
					Str("service", rec.Name()).
					Dur("elapsed", elapsed).
					Bool("retryable", recErr.IsRetryable()).
					Err(recErr).
					Msg("Recognizer returned an invalid response, continuing without it")
				return nil
			}

			results[idx] = &domain.TranscriptionCandidate{
				ID:               uuid.NewString(),
				ServiceName:      rec.Name(),
				Text:             strings.TrimSpace(transcription.Text),
				Confidence:       transcription.Confidence,
				ProcessingTimeMs: elapsed.Milliseconds(),
				Timestamp:        time.Now().UTC(),
				Metadata:         transcription.Metadata,
			}
			return nil
		})
	}

	// Goroutines never return errors; Wait only synchronizes.
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	candidates := make([]domain.TranscriptionCandidate, 0, len(results))
	for _, c := range results {
		if c != nil {
			candidates = append(candidates, *c)
		}
	}

	if len(candidates) < r.config.MinCandidates {
		return nil, fmt.Errorf("%d of %d recognizers produced a candidate, need at least %d: %w",
			len(candidates), len(r.recognizers), r.config.MinCandidates, ErrTooFewCandidates)
	}

	r.logger.Debug().
		Int("requested", len(r.recognizers)).
		Int("produced", len(candidates)).
		Msg("Fan-out run completed")

	return candidates, nil
}
