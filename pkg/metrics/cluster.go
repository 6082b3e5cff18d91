package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ClusterMetrics instruments RefresherCore and ObserverCore. All metrics
// follow the taxonomy clustercore_<subsystem>_<name>_<unit>.
type ClusterMetrics struct {
	// Refresher subsystem
	RefresherPollAttemptsTotal  *prometheus.CounterVec
	RefresherPollDurationSecond *prometheus.HistogramVec
	RefresherTaintedBuckets     prometheus.Gauge

	// Observer subsystem
	ObserverRoundsTotal        *prometheus.CounterVec
	ObserverRoundDurationSecond *prometheus.HistogramVec
	ObserverBackoffSeconds     prometheus.Histogram

	// Buffer discipline
	BuffersReleasedTotal prometheus.Counter
	BuffersLeakedTotal   prometheus.Counter

	// Configuration acceptance
	ConfigChangedTotal *prometheus.CounterVec
}

var (
	clusterMetricsInstance *ClusterMetrics
	clusterMetricsOnce     sync.Once
)

// NewClusterMetrics returns the process-wide ClusterMetrics singleton,
// registering it with the default Prometheus registry on first call.
func NewClusterMetrics() *ClusterMetrics {
	clusterMetricsOnce.Do(func() {
		clusterMetricsInstance = &ClusterMetrics{
			RefresherPollAttemptsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "clustercore",
					Subsystem: "refresher",
					Name:      "poll_attempts_total",
					Help:      "Total bucket-config poll attempts by bucket and outcome",
				},
				[]string{"bucket", "outcome", "error_type"},
			),
			RefresherPollDurationSecond: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: "clustercore",
					Subsystem: "refresher",
					Name:      "poll_duration_seconds",
					Help:      "Duration of one bucket-config poll round, across every node tried",
					Buckets:   prometheus.DefBuckets,
				},
				[]string{"bucket", "outcome"},
			),
			RefresherTaintedBuckets: promauto.NewGauge(
				prometheus.GaugeOpts{
					Namespace: "clustercore",
					Subsystem: "refresher",
					Name:      "tainted_buckets",
					Help:      "Number of buckets currently marked tainted pending a successful poll",
				},
			),
			ObserverRoundsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "clustercore",
					Subsystem: "observer",
					Name:      "rounds_total",
					Help:      "Total observe rounds by bucket and outcome",
				},
				[]string{"bucket", "outcome"},
			),
			ObserverRoundDurationSecond: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: "clustercore",
					Subsystem: "observer",
					Name:      "round_duration_seconds",
					Help:      "Duration of one observe round across master and replicas",
					Buckets:   prometheus.DefBuckets,
				},
				[]string{"bucket", "outcome"},
			),
			ObserverBackoffSeconds: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Namespace: "clustercore",
					Subsystem: "observer",
					Name:      "backoff_seconds",
					Help:      "Backoff delay observed between unsuccessful observe rounds",
					Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.2, 0.5, 1, 2, 5},
				},
			),
			BuffersReleasedTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "clustercore",
					Subsystem: "buffers",
					Name:      "released_total",
					Help:      "Total response buffers released by the refresher and observer cores",
				},
			),
			BuffersLeakedTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "clustercore",
					Subsystem: "buffers",
					Name:      "leaked_total",
					Help:      "Total response buffers whose refcount had not reached zero immediately after the core's Release call",
				},
			),
			ConfigChangedTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "clustercore",
					Subsystem: "config",
					Name:      "changed_total",
					Help:      "Total accepted bucket-config proposals by whether the topology actually differed from what was stored",
				},
				[]string{"bucket", "changed"},
			),
		}
	})
	return clusterMetricsInstance
}

// RecordPollAttempt records one node's bucket-config poll attempt.
func (m *ClusterMetrics) RecordPollAttempt(bucket, outcome, errorType string) {
	if m == nil {
		return
	}
	m.RefresherPollAttemptsTotal.WithLabelValues(bucket, outcome, errorType).Inc()
}

// RecordPollRound records the duration of a whole poll round for a bucket.
func (m *ClusterMetrics) RecordPollRound(bucket, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.RefresherPollDurationSecond.WithLabelValues(bucket, outcome).Observe(seconds)
}

// SetTaintedBuckets sets the current tainted-bucket gauge.
func (m *ClusterMetrics) SetTaintedBuckets(n int) {
	if m == nil {
		return
	}
	m.RefresherTaintedBuckets.Set(float64(n))
}

// RecordObserveRound records one observe round's outcome and duration.
func (m *ClusterMetrics) RecordObserveRound(bucket, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.ObserverRoundsTotal.WithLabelValues(bucket, outcome).Inc()
	m.ObserverRoundDurationSecond.WithLabelValues(bucket, outcome).Observe(seconds)
}

// RecordObserveBackoff records the delay observed between two rounds.
func (m *ClusterMetrics) RecordObserveBackoff(seconds float64) {
	if m == nil {
		return
	}
	m.ObserverBackoffSeconds.Observe(seconds)
}

// RecordBufferReleased increments the released-buffer counter.
func (m *ClusterMetrics) RecordBufferReleased() {
	if m == nil {
		return
	}
	m.BuffersReleasedTotal.Inc()
}

// RecordBufferLeaked increments the leaked-buffer counter.
func (m *ClusterMetrics) RecordBufferLeaked() {
	if m == nil {
		return
	}
	m.BuffersLeakedTotal.Inc()
}

// RecordConfigChanged records whether an accepted bucket-config proposal's
// topology differed from what was previously stored for that bucket.
func (m *ClusterMetrics) RecordConfigChanged(bucket string, changed bool) {
	if m == nil {
		return
	}
	label := "false"
	if changed {
		label = "true"
	}
	m.ConfigChangedTotal.WithLabelValues(bucket, label).Inc()
}
