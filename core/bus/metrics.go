package bus

import "github.com/codewandler/rigcore-go/core/metrics"

// Metrics defines the instrumentation of both buses.
// Implementations must be safe for concurrent use.
type Metrics interface {
	CommandDuration(cmdType string) metrics.Timer
	CommandExecuted(cmdType string, success bool)
	EventPublished(eventType string, subscribers int)
	SubscriberFault(eventType string)
}

type nopMetrics struct{}

func (nopMetrics) CommandDuration(string) metrics.Timer { return metrics.NopTimer() }
func (nopMetrics) CommandExecuted(string, bool)         {}
func (nopMetrics) EventPublished(string, int)           {}
func (nopMetrics) SubscriberFault(string)               {}

// NopMetrics returns a Metrics implementation that records nothing.
func NopMetrics() Metrics { return nopMetrics{} }
