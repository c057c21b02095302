package ports

import (
	"context"
	"time"

	"github.com/ahrav/go-chorus/internal/domain"
)

// EvaluationObserver receives notifications about notable events inside a
// consensus evaluation. Observability is injected through this interface
// rather than embedded in the engine, so logging, metrics, and tracing
// backends can vary without touching the algorithm.
// Implementations must be safe for concurrent use and must not block;
// the engine calls them inline.
type EvaluationObserver interface {
	// CandidateFiltered fires when a candidate fails validation and is
	// excluded from consensus. The evaluation itself continues.
	CandidateFiltered(ctx context.Context, candidate domain.TranscriptionCandidate, reason error)

	// EvaluationCompleted fires once per successful evaluation, including
	// degraded fallback successes, with the produced result and the
	// engine-side wall-clock duration.
	EvaluationCompleted(ctx context.Context, result *domain.ConsensusResult, elapsed time.Duration)

	// FallbackTriggered fires when the engine detects an internal
	// consistency violation and the configured fallback policy rescues
	// the call with a degraded result. The cause is a
	// *domain.FallbackError wrapping the violation.
	FallbackTriggered(ctx context.Context, cause error)
}

// MetricsCollector defines the interface for collecting operational metrics.
// Implementations should integrate with observability platforms like
// Prometheus, OpenTelemetry, or custom monitoring solutions.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	// The labels map provides additional context for the metric.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	// This is useful for tracking events like filtered candidates,
	// fallbacks, errors, etc.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	// This is useful for tracking values like the most recent consensus
	// confidence.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram.
	// This is useful for tracking distributions like similarity scores
	// or evaluation latencies.
	RecordHistogram(metric string, value float64, labels map[string]string)
}

// ResultPublisher delivers finished consensus results to downstream
// consumers, such as a message broker topic. Publishing failures must not
// corrupt the result; callers decide whether delivery is best-effort.
type ResultPublisher interface {
	// Publish sends one result keyed for partitioning, typically by the
	// originating request or audio stream.
	Publish(ctx context.Context, key string, result *domain.ConsensusResult) error

	// Close flushes buffered messages and releases the underlying
	// transport.
	Close() error
}
