package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RetryMetrics tracks the bootstrap retry loop that establishes the initial
// cluster facade connection before RefresherCore and ObserverCore start
// polling.
type RetryMetrics struct {
	AttemptsTotal      *prometheus.CounterVec
	DurationSeconds    *prometheus.HistogramVec
	BackoffSeconds     *prometheus.HistogramVec
	FinalAttemptsTotal *prometheus.HistogramVec
}

var (
	retryMetricsInstance *RetryMetrics
	retryMetricsOnce     sync.Once
)

// NewRetryMetrics returns the process-wide RetryMetrics singleton,
// registering it with the default Prometheus registry on first call.
func NewRetryMetrics() *RetryMetrics {
	retryMetricsOnce.Do(func() {
		retryMetricsInstance = &RetryMetrics{
			AttemptsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "clustercore",
					Subsystem: "bootstrap_retry",
					Name:      "attempts_total",
					Help:      "Total number of bootstrap retry attempts by operation, outcome, and error type",
				},
				[]string{"operation", "outcome", "error_type"},
			),
			DurationSeconds: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: "clustercore",
					Subsystem: "bootstrap_retry",
					Name:      "duration_seconds",
					Help:      "Duration of a bootstrap retry attempt",
					Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
				},
				[]string{"operation", "outcome"},
			),
			BackoffSeconds: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: "clustercore",
					Subsystem: "bootstrap_retry",
					Name:      "backoff_seconds",
					Help:      "Backoff delay observed before a bootstrap retry attempt",
					Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.2, 0.5, 1, 2, 5},
				},
				[]string{"operation"},
			),
			FinalAttemptsTotal: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: "clustercore",
					Subsystem: "bootstrap_retry",
					Name:      "final_attempts_total",
					Help:      "Number of attempts made until the bootstrap retry loop stopped",
					Buckets:   []float64{1, 2, 3, 4, 5, 10, 20},
				},
				[]string{"operation", "outcome"},
			),
		}
	})
	return retryMetricsInstance
}

// RecordAttempt records a single bootstrap retry attempt.
func (m *RetryMetrics) RecordAttempt(operation, outcome, errorType string, duration float64) {
	if m == nil {
		return
	}
	m.AttemptsTotal.WithLabelValues(operation, outcome, errorType).Inc()
	m.DurationSeconds.WithLabelValues(operation, outcome).Observe(duration)
}

// RecordBackoff records the backoff delay preceding a retry attempt.
func (m *RetryMetrics) RecordBackoff(operation string, delaySeconds float64) {
	if m == nil {
		return
	}
	m.BackoffSeconds.WithLabelValues(operation).Observe(delaySeconds)
}

// RecordFinalAttempt records the attempt count at loop completion.
func (m *RetryMetrics) RecordFinalAttempt(operation, outcome string, attempts int) {
	if m == nil {
		return
	}
	m.FinalAttemptsTotal.WithLabelValues(operation, outcome).Observe(float64(attempts))
}

// Reset zeroes all bootstrap retry metrics. Used by tests.
func (m *RetryMetrics) Reset() {
	if m == nil {
		return
	}
	m.AttemptsTotal.Reset()
	m.DurationSeconds.Reset()
	m.BackoffSeconds.Reset()
	m.FinalAttemptsTotal.Reset()
}
