// Package metrics holds the instrument types shared by the per-component
// metrics interfaces of the bus and the sets. Concrete backends live in
// adapters/prometheus.
package metrics

// Timer measures one operation. Callers obtain it when the operation starts
// and call ObserveDuration when it ends:
//
//	defer m.PersistDuration(name).ObserveDuration()
type Timer interface {
	ObserveDuration()
}

type nopTimer struct{}

func (nopTimer) ObserveDuration() {}

// NopTimer returns a Timer that records nothing.
func NopTimer() Timer { return nopTimer{} }
