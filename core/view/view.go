package view

import (
	"context"
	"log/slog"
	"sync"

	"github.com/codewandler/rigcore-go/core/bus"
	"github.com/codewandler/rigcore-go/core/set"
)

// Source is the repository a Cache follows. *set.Set implements it.
type Source[K comparable, T any] interface {
	Name() string
	Entries(ctx context.Context) []set.Entry[K, T]
}

// Options configures a Cache.
type Options[K comparable, T any, W any] struct {
	// Name prefixes the subscription ids. Defaults to the source name.
	Name string
	// Wrap builds the view value of a new entity. Required.
	Wrap func(T) W
	// Apply folds an updated entity into an existing view value. Defaults to
	// replacing it with Wrap.
	Apply func(w W, e T) W
	Log   *slog.Logger
}

// Cache is a derived, keyed view of a Source.
type Cache[K comparable, T any, W any] struct {
	name   string
	source Source[K, T]
	wrap   func(T) W
	apply  func(W, T) W
	log    *slog.Logger

	mu      sync.RWMutex
	items   map[K]W
	watches []*watch[W]

	projMu      sync.Mutex
	projections map[string]invalidator

	subs []*bus.Subscription
}

type invalidator interface{ Invalidate() }

// New subscribes a cache to the events of source and fills it from the
// current entries. Subscription ids are "<name>/added", "<name>/updated",
// "<name>/removed" and "<name>/refreshed".
func New[K comparable, T any, W any](
	ctx context.Context,
	r bus.EventRegistrar,
	source Source[K, T],
	opts Options[K, T, W],
) *Cache[K, T, W] {
	if opts.Wrap == nil {
		panic("view: Wrap is required")
	}
	if opts.Name == "" {
		opts.Name = source.Name()
	}
	if opts.Apply == nil {
		wrap := opts.Wrap
		opts.Apply = func(_ W, e T) W { return wrap(e) }
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}

	c := &Cache[K, T, W]{
		name:        opts.Name,
		source:      source,
		wrap:        opts.Wrap,
		apply:       opts.Apply,
		log:         opts.Log.With(slog.String("view", opts.Name)),
		items:       map[K]W{},
		projections: map[string]invalidator{},
	}

	c.subs = append(c.subs,
		bus.Subscribe(r, c.name+"/added", "add to "+c.name, slog.LevelDebug, c.onAdded),
		bus.Subscribe(r, c.name+"/updated", "update in "+c.name, slog.LevelDebug, c.onUpdated),
		bus.Subscribe(r, c.name+"/removed", "remove from "+c.name, slog.LevelDebug, c.onRemoved),
		bus.Subscribe(r, c.name+"/refreshed", "resync "+c.name, slog.LevelDebug, c.onRefreshed),
	)

	c.resync(ctx)
	return c
}

// Name returns the cache name.
func (c *Cache[K, T, W]) Name() string { return c.name }

// Close unsubscribes the cache from the bus. The cached values stay readable.
func (c *Cache[K, T, W]) Close() {
	for _, s := range c.subs {
		s.Unsubscribe()
	}
}

func (c *Cache[K, T, W]) onAdded(ctx context.Context, e set.Added[K, T]) error {
	if e.Set != c.source.Name() {
		return nil
	}
	c.upsert(ctx, e.Key, e.Entity)
	return nil
}

func (c *Cache[K, T, W]) onUpdated(ctx context.Context, e set.Updated[K, T]) error {
	if e.Set != c.source.Name() {
		return nil
	}
	c.upsert(ctx, e.Key, e.Entity)
	return nil
}

func (c *Cache[K, T, W]) onRemoved(_ context.Context, e set.Removed[K, T]) error {
	if e.Set != c.source.Name() {
		return nil
	}
	c.mu.Lock()
	_, ok := c.items[e.Key]
	delete(c.items, e.Key)
	c.mu.Unlock()

	if ok {
		c.invalidate()
	}
	return nil
}

func (c *Cache[K, T, W]) onRefreshed(ctx context.Context, e set.Refreshed[K, T]) error {
	if e.Set != c.source.Name() {
		return nil
	}
	c.resync(ctx)
	return nil
}

// upsert wraps or applies entity and fires the watches of changed fields
// once the lock is released.
func (c *Cache[K, T, W]) upsert(ctx context.Context, key K, entity T) {
	c.mu.Lock()
	fire := c.applyLocked(key, entity)
	c.mu.Unlock()

	c.invalidate()
	for _, f := range fire {
		f(ctx)
	}
}

func (c *Cache[K, T, W]) applyLocked(key K, entity T) []func(context.Context) {
	w, ok := c.items[key]
	if !ok {
		c.items[key] = c.wrap(entity)
		return nil
	}

	checks := make([]func(W) func(context.Context), 0, len(c.watches))
	for _, wt := range c.watches {
		checks = append(checks, wt.before(w))
	}

	w = c.apply(w, entity)
	c.items[key] = w

	var fire []func(context.Context)
	for _, check := range checks {
		if f := check(w); f != nil {
			fire = append(fire, f)
		}
	}
	return fire
}

func (c *Cache[K, T, W]) resync(ctx context.Context) {
	entries := c.source.Entries(ctx)

	c.mu.Lock()
	seen := make(map[K]struct{}, len(entries))
	var fire []func(context.Context)
	for _, en := range entries {
		seen[en.Key] = struct{}{}
		fire = append(fire, c.applyLocked(en.Key, en.Value)...)
	}
	for k := range c.items {
		if _, ok := seen[k]; !ok {
			delete(c.items, k)
		}
	}
	n := len(c.items)
	c.mu.Unlock()

	c.log.Debug("synced", slog.Int("entries", n))
	c.invalidate()
	for _, f := range fire {
		f(ctx)
	}
}

func (c *Cache[K, T, W]) invalidate() {
	c.projMu.Lock()
	defer c.projMu.Unlock()
	for _, p := range c.projections {
		p.Invalidate()
	}
}

// TryGet returns the view value for key.
func (c *Cache[K, T, W]) TryGet(key K) (W, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	w, ok := c.items[key]
	return w, ok
}

// Len returns the number of cached values.
func (c *Cache[K, T, W]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Items returns the cached values in no particular order.
func (c *Cache[K, T, W]) Items() []W {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]W, 0, len(c.items))
	for _, w := range c.items {
		out = append(out, w)
	}
	return out
}
