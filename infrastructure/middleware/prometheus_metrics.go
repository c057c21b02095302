// Package middleware provides cross-cutting concerns for the consensus engine.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-chorus/internal/ports"
)

// PrometheusMetrics implements the MetricsCollector interface using Prometheus.
// It provides real-time monitoring of evaluation throughput, candidate
// filtering, consensus confidence, and fallback activity.
type PrometheusMetrics struct {
	evaluationsTotal    *prometheus.CounterVec
	candidatesFiltered  *prometheus.CounterVec
	fallbacksTotal      *prometheus.CounterVec
	evaluationLatency   *prometheus.HistogramVec
	operationCounter    *prometheus.CounterVec
	consensusConfidence *prometheus.GaugeVec
	confidenceSpread    *prometheus.HistogramVec
	systemGauges        *prometheus.GaugeVec
}

// NewPrometheusMetrics creates a new PrometheusMetrics instance and registers
// all required metrics in the global Prometheus registry.
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{
		// Consensus-specific metrics.
		evaluationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "consensus_evaluations_total",
				Help: "Total number of consensus evaluations, labeled by outcome.",
			},
			[]string{"status", "algorithm"},
		),
		candidatesFiltered: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "consensus_candidates_filtered_total",
				Help: "Total number of transcription candidates rejected during validation.",
			},
			[]string{"service", "algorithm"},
		),
		fallbacksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "consensus_fallbacks_total",
				Help: "Total number of evaluations that returned the degraded fallback result.",
			},
			[]string{"algorithm"},
		),

		// General execution metrics for comprehensive observability.
		evaluationLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "consensus_evaluation_duration_seconds",
				Help:    "Execution time of consensus engine operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "algorithm"},
		),
		operationCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "consensus_operations_total",
				Help: "Total number of operations performed by the consensus engine.",
			},
			[]string{"operation", "status", "algorithm"},
		),
		consensusConfidence: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "consensus_confidence",
				Help: "Confidence of the most recent consensus result.",
			},
			[]string{"algorithm"},
		),
		confidenceSpread: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "consensus_confidence_distribution",
				Help:    "Distribution of consensus confidence values.",
				Buckets: prometheus.LinearBuckets(0, 0.1, 11),
			},
			[]string{"algorithm"},
		),
		systemGauges: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "consensus_system_state",
				Help: "Current system state values for the consensus engine.",
			},
			[]string{"metric", "algorithm"},
		),
	}
}

// RecordLatency implements the MetricsCollector interface by recording
// execution latency in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordLatency(
	operation string,
	duration time.Duration,
	labels map[string]string,
) {
	algorithm, ok := labels["algorithm"]
	if !ok {
		algorithm = "unknown"
	}
	pm.evaluationLatency.WithLabelValues(operation, algorithm).Observe(duration.Seconds())
}

// RecordCounter implements the MetricsCollector interface by incrementing
// Prometheus counters.
func (pm *PrometheusMetrics) RecordCounter(
	metric string, value float64, labels map[string]string,
) {
	algorithm, ok := labels["algorithm"]
	if !ok {
		algorithm = "unknown"
	}

	switch metric {
	case "evaluations_total":
		status, ok := labels["status"]
		if !ok {
			status = "success"
		}
		pm.evaluationsTotal.WithLabelValues(status, algorithm).Add(value)
	case "candidates_filtered_total":
		pm.candidatesFiltered.WithLabelValues(labels["service"], algorithm).Add(value)
	case "fallbacks_total":
		pm.fallbacksTotal.WithLabelValues(algorithm).Add(value)
	default:
		pm.operationCounter.WithLabelValues(metric, "success", algorithm).Add(value)
	}
}

// RecordGauge implements the MetricsCollector interface by setting
// Prometheus gauge values.
func (pm *PrometheusMetrics) RecordGauge(
	metric string, value float64, labels map[string]string,
) {
	algorithm, ok := labels["algorithm"]
	if !ok {
		algorithm = "unknown"
	}

	switch metric {
	case "consensus_confidence":
		pm.consensusConfidence.WithLabelValues(algorithm).Set(value)
	default:
		pm.systemGauges.WithLabelValues(metric, algorithm).Set(value)
	}
}

// RecordHistogram implements the MetricsCollector interface by recording
// values in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordHistogram(
	metric string, value float64, labels map[string]string,
) {
	algorithm, ok := labels["algorithm"]
	if !ok {
		algorithm = "unknown"
	}

	switch metric {
	case "consensus_confidence":
		pm.confidenceSpread.WithLabelValues(algorithm).Observe(value)
	default:
		pm.evaluationLatency.WithLabelValues(metric, algorithm).Observe(value)
	}
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
