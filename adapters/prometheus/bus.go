package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/codewandler/rigcore-go/core/bus"
	"github.com/codewandler/rigcore-go/core/metrics"
)

// busMetrics implements bus.Metrics using Prometheus.
type busMetrics struct {
	commandDuration  *prometheus.HistogramVec
	commandsTotal    *prometheus.CounterVec
	eventsTotal      *prometheus.CounterVec
	eventSubscribers *prometheus.GaugeVec
	subscriberFaults *prometheus.CounterVec
}

// NewBusMetrics creates a new Prometheus implementation of bus.Metrics.
func NewBusMetrics(reg prometheus.Registerer) bus.Metrics {
	m := &busMetrics{
		commandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rig_bus_command_duration_seconds",
			Help:    "Command handling time in seconds",
			Buckets: defaultBuckets,
		}, []string{"command_type"}),

		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rig_bus_commands_total",
			Help: "Total number of executed commands",
		}, []string{"command_type", "success"}),

		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rig_bus_events_published_total",
			Help: "Total number of published events",
		}, []string{"event_type"}),

		eventSubscribers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rig_bus_event_subscribers",
			Help: "Subscribers reached by the last publish of an event type",
		}, []string{"event_type"}),

		subscriberFaults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rig_bus_subscriber_faults_total",
			Help: "Total number of failed or panicking event subscribers",
		}, []string{"event_type"}),
	}

	reg.MustRegister(
		m.commandDuration,
		m.commandsTotal,
		m.eventsTotal,
		m.eventSubscribers,
		m.subscriberFaults,
	)

	return m
}

func (m *busMetrics) CommandDuration(cmdType string) metrics.Timer {
	return newTimer(m.commandDuration.WithLabelValues(cmdType))
}

func (m *busMetrics) CommandExecuted(cmdType string, success bool) {
	m.commandsTotal.WithLabelValues(cmdType, boolToStr(success)).Inc()
}

func (m *busMetrics) EventPublished(eventType string, subscribers int) {
	m.eventsTotal.WithLabelValues(eventType).Inc()
	m.eventSubscribers.WithLabelValues(eventType).Set(float64(subscribers))
}

func (m *busMetrics) SubscriberFault(eventType string) {
	m.subscriberFaults.WithLabelValues(eventType).Inc()
}

var _ bus.Metrics = (*busMetrics)(nil)
