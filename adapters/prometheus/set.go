package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/codewandler/rigcore-go/core/metrics"
	"github.com/codewandler/rigcore-go/core/set"
)

// setMetrics implements set.Metrics using Prometheus.
type setMetrics struct {
	loadsTotal      *prometheus.CounterVec
	mutationsTotal  *prometheus.CounterVec
	persistDuration *prometheus.HistogramVec
	entries         *prometheus.GaugeVec
}

// NewSetMetrics creates a new Prometheus implementation of set.Metrics.
func NewSetMetrics(reg prometheus.Registerer) set.Metrics {
	m := &setMetrics{
		loadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rig_set_loads_total",
			Help: "Total number of set loads",
		}, []string{"set", "success"}),

		mutationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rig_set_mutations_total",
			Help: "Total number of set mutations",
		}, []string{"set", "kind", "success"}),

		persistDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rig_set_persist_duration_seconds",
			Help:    "Time spent persisting a mutation in seconds",
			Buckets: defaultBuckets,
		}, []string{"set"}),

		entries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rig_set_entries",
			Help: "Current number of entries in a set",
		}, []string{"set"}),
	}

	reg.MustRegister(
		m.loadsTotal,
		m.mutationsTotal,
		m.persistDuration,
		m.entries,
	)

	return m
}

func (m *setMetrics) Loaded(name string, entries int, failed bool) {
	m.loadsTotal.WithLabelValues(name, boolToStr(!failed)).Inc()
}

func (m *setMetrics) Mutated(name string, kind set.ChangeKind, success bool) {
	m.mutationsTotal.WithLabelValues(name, kind.String(), boolToStr(success)).Inc()
}

func (m *setMetrics) PersistDuration(name string) metrics.Timer {
	return newTimer(m.persistDuration.WithLabelValues(name))
}

func (m *setMetrics) Size(name string, entries int) {
	m.entries.WithLabelValues(name).Set(float64(entries))
}

var _ set.Metrics = (*setMetrics)(nil)
