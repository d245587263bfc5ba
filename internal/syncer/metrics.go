package syncer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts sync runs by type and result.
type Metrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the sync collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "supplyline_sync_runs_total",
			Help: "Sync runs by sync type and result.",
		}, []string{"type", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "supplyline_sync_duration_seconds",
			Help:    "Duration of sync runs.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"type"}),
	}
	reg.MustRegister(m.runs, m.duration)
	return m
}

func (m *Metrics) observe(t Type, result Result, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(string(t), result.String()).Inc()
	m.duration.WithLabelValues(string(t)).Observe(elapsed.Seconds())
}
