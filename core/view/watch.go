package view

import (
	"context"
	"log/slog"
)

type watch[W any] struct {
	field string
	// before captures the watched field of w and returns a check that yields
	// the notification to fire if the field differs after the update.
	before func(w W) func(after W) func(context.Context)
}

// Watch calls notify whenever an update changes the value extract returns
// for a cached item. Insertions and removals do not fire. notify runs after
// the cache lock is released and may read the cache.
func Watch[K comparable, T any, W any, F comparable](
	c *Cache[K, T, W],
	field string,
	extract func(W) F,
	notify func(ctx context.Context, w W, prev, cur F),
) {
	wt := &watch[W]{
		field: field,
		before: func(w W) func(W) func(context.Context) {
			old := extract(w)
			return func(after W) func(context.Context) {
				cur := extract(after)
				if cur == old {
					return nil
				}
				return func(ctx context.Context) {
					c.log.Debug("field changed", slog.String("field", field))
					notify(ctx, after, old, cur)
				}
			}
		},
	}

	c.mu.Lock()
	c.watches = append(c.watches, wt)
	c.mu.Unlock()
}
