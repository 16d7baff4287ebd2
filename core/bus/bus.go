package bus

import "log/slog"

// Options configures a bus.
type Options struct {
	// Log receives registration and dispatch logs. Defaults to slog.Default().
	Log *slog.Logger
	// Metrics defaults to NopMetrics().
	Metrics Metrics
}

func (o Options) withDefaults() Options {
	if o.Log == nil {
		o.Log = slog.Default()
	}
	if o.Metrics == nil {
		o.Metrics = NopMetrics()
	}
	return o
}

// Bus combines a command bus and an event bus. It satisfies both
// CommandRegistrar and EventRegistrar.
type Bus struct {
	*CommandBus
	*EventBus
}

// New creates a combined bus.
func New(opts Options) *Bus {
	return &Bus{
		CommandBus: NewCommandBus(opts),
		EventBus:   NewEventBus(opts),
	}
}

var (
	_ CommandRegistrar = (*Bus)(nil)
	_ EventRegistrar   = (*Bus)(nil)
)
