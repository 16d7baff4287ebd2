package set

import "github.com/codewandler/rigcore-go/core/metrics"

// Metrics defines the instrumentation of a set.
// Implementations must be safe for concurrent use.
type Metrics interface {
	Loaded(set string, entries int, failed bool)
	Mutated(set string, kind ChangeKind, success bool)
	PersistDuration(set string) metrics.Timer
	Size(set string, entries int)
}

type nopMetrics struct{}

func (nopMetrics) Loaded(string, int, bool)             {}
func (nopMetrics) Mutated(string, ChangeKind, bool)     {}
func (nopMetrics) PersistDuration(string) metrics.Timer { return metrics.NopTimer() }
func (nopMetrics) Size(string, int)                     {}

// NopMetrics returns a Metrics implementation that records nothing.
func NopMetrics() Metrics { return nopMetrics{} }
