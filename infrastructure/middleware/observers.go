package middleware

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ahrav/go-chorus/internal/domain"
	"github.com/ahrav/go-chorus/internal/ports"
)

var (
	_ ports.EvaluationObserver = (*LoggingObserver)(nil)
	_ ports.EvaluationObserver = (*MetricsObserver)(nil)
	_ ports.EvaluationObserver = (*MultiObserver)(nil)
)

// LoggingObserver emits a structured log line for every evaluation event.
// Rejections and fallbacks log at warn level so operators can alert on
// them; completions log at info level.
type LoggingObserver struct {
	logger zerolog.Logger
}

// NewLoggingObserver creates a LoggingObserver writing through the given
// logger.
func NewLoggingObserver(logger zerolog.Logger) *LoggingObserver {
	return &LoggingObserver{logger: logger}
}

// CandidateFiltered implements the EvaluationObserver interface.
func (o *LoggingObserver) CandidateFiltered(_ context.Context, candidate domain.TranscriptionCandidate, reason error) {
	o.logger.Warn().
		Str("service", candidate.ServiceName).
		Str("candidateId", candidate.ID).
		Err(reason).
		Msg("Candidate rejected during validation")
}

// EvaluationCompleted implements the EvaluationObserver interface.
func (o *LoggingObserver) EvaluationCompleted(_ context.Context, result *domain.ConsensusResult, elapsed time.Duration) {
	o.logger.Info().
		Str("resultId", result.ID).
		Float64("confidence", result.ConsensusConfidence).
		Int("servicesUsed", result.Stats.ServicesUsed).
		Int("disagreements", result.Stats.DisagreementCount).
		Bool("fallback", result.Reasoning.UsedFallback()).
		Dur("elapsed", elapsed).
		Msg("Consensus evaluation completed")
}

// FallbackTriggered implements the EvaluationObserver interface.
func (o *LoggingObserver) FallbackTriggered(_ context.Context, cause error) {
	o.logger.Warn().
		Err(cause).
		Msg("Consistency check failed, returning fallback result")
}

// MetricsObserver forwards evaluation events to a metrics collector. The
// algorithm label distinguishes engines running different similarity
// scorers side by side.
type MetricsObserver struct {
	metrics   ports.MetricsCollector
	algorithm string
}

// NewMetricsObserver creates a MetricsObserver recording against the given
// collector under the given similarity algorithm label.
func NewMetricsObserver(metrics ports.MetricsCollector, algorithm string) *MetricsObserver {
	return &MetricsObserver{metrics: metrics, algorithm: algorithm}
}

// CandidateFiltered implements the EvaluationObserver interface.
func (o *MetricsObserver) CandidateFiltered(_ context.Context, candidate domain.TranscriptionCandidate, _ error) {
	if o.metrics == nil {
		return
	}
	o.metrics.RecordCounter("candidates_filtered_total", 1, map[string]string{
		"service":   candidate.ServiceName,
		"algorithm": o.algorithm,
	})
}

// EvaluationCompleted implements the EvaluationObserver interface.
func (o *MetricsObserver) EvaluationCompleted(_ context.Context, result *domain.ConsensusResult, elapsed time.Duration) {
	if o.metrics == nil {
		return
	}
	labels := map[string]string{"algorithm": o.algorithm}

	o.metrics.RecordLatency("evaluate", elapsed, labels)
	o.metrics.RecordGauge("consensus_confidence", result.ConsensusConfidence, labels)
	o.metrics.RecordHistogram("consensus_confidence", result.ConsensusConfidence, labels)
	o.metrics.RecordGauge("services_used", float64(result.Stats.ServicesUsed), labels)
	o.metrics.RecordGauge("disagreement_count", float64(result.Stats.DisagreementCount), labels)

	status := "success"
	if result.Reasoning.UsedFallback() {
		status = "fallback"
	}
	o.metrics.RecordCounter("evaluations_total", 1, map[string]string{
		"status":    status,
		"algorithm": o.algorithm,
	})
}

// FallbackTriggered implements the EvaluationObserver interface.
func (o *MetricsObserver) FallbackTriggered(context.Context, error) {
	if o.metrics == nil {
		return
	}
	o.metrics.RecordCounter("fallbacks_total", 1, map[string]string{
		"algorithm": o.algorithm,
	})
}

// MultiObserver fans every event out to a list of observers, so logging
// and metrics can be wired independently. Events are delivered in
// registration order.
type MultiObserver struct {
	observers []ports.EvaluationObserver
}

// NewMultiObserver creates a MultiObserver over the given observers.
// Nil entries are dropped.
func NewMultiObserver(observers ...ports.EvaluationObserver) *MultiObserver {
	kept := make([]ports.EvaluationObserver, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			kept = append(kept, o)
		}
	}
	return &MultiObserver{observers: kept}
}

// CandidateFiltered implements the EvaluationObserver interface.
func (m *MultiObserver) CandidateFiltered(ctx context.Context, candidate domain.TranscriptionCandidate, reason error) {
	for _, o := range m.observers {
		o.CandidateFiltered(ctx, candidate, reason)
	}
}

// EvaluationCompleted implements the EvaluationObserver interface.
func (m *MultiObserver) EvaluationCompleted(ctx context.Context, result *domain.ConsensusResult, elapsed time.Duration) {
	for _, o := range m.observers {
		o.EvaluationCompleted(ctx, result, elapsed)
	}
}

// FallbackTriggered implements the EvaluationObserver interface.
func (m *MultiObserver) FallbackTriggered(ctx context.Context, cause error) {
	for _, o := range m.observers {
		o.FallbackTriggered(ctx, cause)
	}
}
