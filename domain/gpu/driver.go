package gpu

import (
	"context"
	"log/slog"
)

// LogDriver only logs the profiles it is asked to apply. rigd uses it when no
// hardware driver is attached.
type LogDriver struct {
	Log *slog.Logger
}

func (d LogDriver) OverClock(ctx context.Context, p Profile) error {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	log.InfoContext(ctx, "overclock",
		slog.String("coin", p.CoinID.String()),
		slog.String("slot", p.Slot.String()),
		slog.Int("core_clock_delta", p.CoreClockDelta),
		slog.Int("memory_clock_delta", p.MemoryClockDelta),
		slog.Int("power_capacity", p.PowerCapacity),
		slog.Int("temp_limit", p.TempLimit),
		slog.Int("cool", p.Cool),
	)
	return nil
}
