package consensus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-chorus/internal/domain"
	"github.com/ahrav/go-chorus/internal/ports"
)

var _ ports.ConsensusEngine = (*Engine)(nil)

// Engine merges transcription candidates into one consensus result.
// Each call runs the full pipeline: validate, build the shared similarity
// matrix once, select, estimate confidence, detect disagreements,
// aggregate stats, build reasoning, then verify the output against its
// own invariants before returning it.
//
// The engine is stateless and thread-safe for concurrent execution; all
// intermediates are call-local.
type Engine struct {
	// scorer measures pairwise text similarity.
	scorer ports.SimilarityScorer
	// config contains the validated configuration parameters.
	config Config
	// observer receives filtering, completion, and fallback events.
	observer ports.EvaluationObserver
	// tracer is the OpenTelemetry tracer for observability.
	tracer trace.Tracer

	selector   *Selector
	estimator  *ConfidenceEstimator
	detector   *DisagreementDetector
	aggregator *StatsAggregator
	assessor   *QualityAssessor
	builder    *ReasoningBuilder

	// verify checks a finished result against the output invariants.
	// It is a field so tests can exercise the fallback path.
	verify func(*domain.ConsensusResult) error
}

// Option customizes an Engine at construction time.
type Option func(*Engine)

// WithObserver wires an observability sink into the engine. Passing nil
// leaves the default no-op observer in place.
func WithObserver(observer ports.EvaluationObserver) Option {
	return func(e *Engine) {
		if observer != nil {
			e.observer = observer
		}
	}
}

// NewEngine creates a consensus engine with the given similarity scorer
// and configuration. Returns an error if the scorer is nil or the
// configuration fails validation.
func NewEngine(scorer ports.SimilarityScorer, config Config, opts ...Option) (*Engine, error) {
	if scorer == nil {
		return nil, errors.New("similarity scorer cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		scorer:     scorer,
		config:     config,
		observer:   noopObserver{},
		tracer:     otel.Tracer("consensus-engine"),
		selector:   NewSelector(),
		estimator:  NewConfidenceEstimator(config),
		detector:   NewDisagreementDetector(config),
		aggregator: NewStatsAggregator(),
		assessor:   NewQualityAssessor(config),
		builder:    NewReasoningBuilder(config),
	}
	e.verify = e.verifyResult

	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Evaluate implements ports.ConsensusEngine. Invalid candidates are
// filtered with an observer signal rather than failing the call; the call
// fails only when nothing valid remains (domain.ErrNoValidCandidates),
// when the context is done, or when the output self-check fails and the
// fallback policy is disabled.
func (e *Engine) Evaluate(ctx context.Context, candidates []domain.TranscriptionCandidate) (*domain.ConsensusResult, error) {
	ctx, span := e.tracer.Start(ctx, "ConsensusEngine.Evaluate",
		trace.WithAttributes(
			attribute.Int("eval.candidates_submitted", len(candidates)),
			attribute.String("eval.similarity_algorithm", e.scorer.Name()),
		),
	)
	defer span.End()

	start := time.Now()

	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "context done before evaluation")
		return nil, err
	}

	valid, filtered := e.filterCandidates(ctx, candidates)
	for _, f := range filtered {
		span.AddEvent("candidate.filtered", trace.WithAttributes(
			attribute.String("service", f.Candidate.ServiceName),
			attribute.String("reason", f.Reason.Error()),
		))
	}
	if len(valid) == 0 {
		err := fmt.Errorf("submitted %d, filtered %d: %w",
			len(candidates), len(filtered), domain.ErrNoValidCandidates)
		span.RecordError(err)
		span.SetStatus(codes.Error, "no valid candidates")
		return nil, err
	}

	texts := make([]string, len(valid))
	for i, c := range valid {
		texts[i] = c.Text
	}
	matrix := domain.BuildSimilarityMatrix(texts, e.scorer.Score)

	// The scoring pass is the only part of the pipeline whose cost grows
	// quadratically, so honor cancellation once it is done.
	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "context done during evaluation")
		return nil, err
	}

	rankings := e.selector.Rank(valid, matrix)
	winner := rankings[0]

	confidence := e.estimator.Estimate(winner, valid, matrix)
	disagreements := e.detector.Detect(valid, matrix)
	stats := e.aggregator.Aggregate(valid, disagreements)
	quality := e.assessor.Assess(valid)

	reasoning := e.builder.Build(TraceInput{
		Submitted:     len(candidates),
		Filtered:      filtered,
		Candidates:    valid,
		Matrix:        matrix,
		Rankings:      rankings,
		Winner:        winner,
		Confidence:    confidence,
		Disagreements: disagreements,
		Quality:       quality,
		Algorithm:     e.scorer.Name(),
	})

	result := &domain.ConsensusResult{
		ID:                  uuid.NewString(),
		FinalText:           winner.Candidate.Text,
		ConsensusConfidence: confidence,
		IndividualResults:   valid,
		Disagreements:       disagreements,
		Stats:               stats,
		Reasoning:           reasoning,
		Timestamp:           time.Now().UTC(),
	}

	if err := e.verify(result); err != nil {
		span.RecordError(err)
		if !e.config.EnableFallback {
			span.SetStatus(codes.Error, "output consistency violation")
			return nil, err
		}
		e.observer.FallbackTriggered(ctx, domain.NewFallbackError(err))
		result = e.fallbackResult(valid, len(candidates), err)
		span.AddEvent("fallback.engaged", trace.WithAttributes(
			attribute.String("cause", err.Error()),
		))
		span.SetAttributes(attribute.Bool("eval.fallback", true))
	}

	elapsed := time.Since(start)
	e.observer.EvaluationCompleted(ctx, result, elapsed)

	span.SetAttributes(
		attribute.Float64("eval.confidence", result.ConsensusConfidence),
		attribute.Int64("eval.latency_ms", elapsed.Milliseconds()),
		attribute.Int("eval.services_used", result.Stats.ServicesUsed),
		attribute.Int("eval.disagreements", result.Stats.DisagreementCount),
	)
	span.SetStatus(codes.Ok, "")

	return result, nil
}

// filterCandidates splits the input into valid candidates and rejected
// ones, emitting an observer signal per rejection. Order is preserved.
func (e *Engine) filterCandidates(ctx context.Context, candidates []domain.TranscriptionCandidate) ([]domain.TranscriptionCandidate, []FilteredCandidate) {
	valid := make([]domain.TranscriptionCandidate, 0, len(candidates))
	var filtered []FilteredCandidate

	for _, c := range candidates {
		if err := c.Validate(); err != nil {
			reason := domain.NewCandidateError(c, err)
			filtered = append(filtered, FilteredCandidate{Candidate: c, Reason: reason})
			e.observer.CandidateFiltered(ctx, c, reason)
			continue
		}
		valid = append(valid, c)
	}
	return valid, filtered
}

// verifyResult checks the invariants every returned result must satisfy.
// A failure here means a pipeline bug, not bad input.
func (e *Engine) verifyResult(result *domain.ConsensusResult) error {
	if err := result.Validate(); err != nil {
		return domain.NewConsistencyError("output validation", err.Error())
	}
	if !result.ContainsText(result.FinalText) {
		return domain.NewConsistencyError("final text membership",
			"final text does not match any individual result")
	}
	return nil
}

// fallbackResult builds the degraded-success result: the fastest valid
// candidate becomes the consensus, its reported confidence (or the
// neutral default) becomes the consensus confidence, and the triggering
// violation is embedded in the reasoning trace. Statistics keep their
// reference semantics: total processing time is the max over candidates
// and average confidence covers only reported values.
func (e *Engine) fallbackResult(valid []domain.TranscriptionCandidate, submitted int, cause error) *domain.ConsensusResult {
	fastest := valid[domain.FastestCandidate(valid)]

	confidence := NeutralConfidence
	if v, ok := fastest.ConfidenceValue(); ok {
		confidence = v
	}

	reasoning := domain.ReasoningTrace{
		FinalReasoning: fmt.Sprintf(
			"The consistency check on the consensus result failed, so the fallback policy returned the fastest valid candidate, from %s, with confidence %.2f. Violation: %v",
			fastest.ServiceName, confidence, cause),
		Steps: []domain.ReasoningStep{{
			StepNumber: 1,
			Description: fmt.Sprintf(
				"Consistency check failed; returned the fastest valid candidate from %s (%dms) out of %d submitted.",
				fastest.ServiceName, fastest.ProcessingTimeMs, submitted),
			Category: domain.StepFallback,
			Data: map[string]any{
				"cause":              cause.Error(),
				"service":            fastest.ServiceName,
				"candidate_id":       fastest.ID,
				"processing_time_ms": fastest.ProcessingTimeMs,
			},
			Timestamp: time.Now().UTC(),
		}},
	}

	return &domain.ConsensusResult{
		ID:                  uuid.NewString(),
		FinalText:           fastest.Text,
		ConsensusConfidence: confidence,
		IndividualResults:   valid,
		Stats:               e.aggregator.Aggregate(valid, nil),
		Reasoning:           reasoning,
		Timestamp:           time.Now().UTC(),
	}
}

// noopObserver is the default observer; it discards every event.
type noopObserver struct{}

func (noopObserver) CandidateFiltered(context.Context, domain.TranscriptionCandidate, error) {}
func (noopObserver) EvaluationCompleted(context.Context, *domain.ConsensusResult, time.Duration) {
}
func (noopObserver) FallbackTriggered(context.Context, error) {}
