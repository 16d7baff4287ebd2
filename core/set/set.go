package set

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/codewandler/rigcore-go/core/ds"
	"github.com/codewandler/rigcore-go/core/sf"
)

// Options configures a Set.
type Options[K comparable, T any] struct {
	// Name identifies the set in events, logs and metrics.
	Name string
	// KeyOf derives the key of an entity. Required.
	KeyOf func(T) K
	// Persister defaults to MemoryPersister.
	Persister Persister[K, T]
	// Publisher receives the set's events. Nil discards them.
	Publisher Publisher
	Log       *slog.Logger
	Metrics   Metrics
}

// Set is a keyed, persisted collection that publishes its changes.
type Set[K comparable, T any] struct {
	name      string
	keyOf     func(T) K
	persister Persister[K, T]
	pub       Publisher
	log       *slog.Logger
	metrics   Metrics

	init    sf.Once[struct{}]
	loadErr error

	// mu guards keys, items and loadErr. Events are published after mu is
	// released, in the order of the tickets drawn under mu.
	mu    sync.RWMutex
	keys  *ds.Set[K]
	items map[K]T
	order *sequencer
}

// New creates a set. Nothing is loaded until the first access.
func New[K comparable, T any](opts Options[K, T]) *Set[K, T] {
	if opts.KeyOf == nil {
		panic("set: KeyOf is required")
	}
	if opts.Persister == nil {
		opts.Persister = MemoryPersister[K, T]()
	}
	if opts.Publisher == nil {
		opts.Publisher = nopPublisher{}
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = NopMetrics()
	}
	return &Set[K, T]{
		name:      opts.Name,
		keyOf:     opts.KeyOf,
		persister: opts.Persister,
		pub:       opts.Publisher,
		log:       opts.Log.With(slog.String("set", opts.Name)),
		metrics:   opts.Metrics,
		keys:      ds.NewSet[K](),
		items:     map[K]T{},
		order:     newSequencer(),
	}
}

// Name returns the name given in Options.
func (s *Set[K, T]) Name() string { return s.name }

// Init loads the set unless that already happened and returns the error of
// the load, if any. A set whose load failed is empty and fully usable.
func (s *Set[K, T]) Init(ctx context.Context) error {
	s.ensure(ctx)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadErr
}

// Loaded reports whether the initial load has run.
func (s *Set[K, T]) Loaded() bool { return s.init.Done() }

func (s *Set[K, T]) ensure(ctx context.Context) {
	_, _ = s.init.Do(func() (struct{}, error) {
		s.load(ctx)
		return struct{}{}, nil
	})
}

func (s *Set[K, T]) load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.keys.Clear()
	clear(s.items)
	s.loadErr = nil

	items, err := s.persister.Load(ctx)
	if err != nil {
		s.loadErr = err
		s.log.Error("load failed, starting empty", slog.Any("error", err))
		s.metrics.Loaded(s.name, 0, true)
		s.metrics.Size(s.name, 0)
		return
	}

	for _, it := range items {
		k := s.keyOf(it)
		if !s.keys.Add(k) {
			s.log.Warn("duplicate key in stored data, keeping last", slog.Any("key", k))
		}
		s.items[k] = it
	}
	s.log.Debug("loaded", slog.Int("entries", len(s.items)))
	s.metrics.Loaded(s.name, len(s.items), false)
	s.metrics.Size(s.name, len(s.items))
}

// Refresh discards the in-memory entries, reloads them and publishes
// Refreshed. A failed reload leaves the set empty, is still announced and
// is returned.
func (s *Set[K, T]) Refresh(ctx context.Context) error {
	s.init.Reset()
	s.ensure(ctx)

	s.mu.Lock()
	err := s.loadErr
	ev := Refreshed[K, T]{Set: s.name, Count: len(s.items)}
	ticket := s.order.draw()
	s.mu.Unlock()

	s.log.Debug("refreshed", slog.Int("entries", ev.Count))
	s.order.run(ticket, func() { s.pub.Publish(ctx, ev) })
	return err
}

// AddOrUpdate inserts entity or replaces the entry with the same key.
func (s *Set[K, T]) AddOrUpdate(ctx context.Context, entity T) (Change[T], error) {
	s.ensure(ctx)
	key := s.keyOf(entity)

	s.mu.Lock()
	if prev, ok := s.items[key]; ok {
		return s.replace(ctx, key, prev, entity)
	}
	return s.insert(ctx, key, entity)
}

// Add inserts entity and fails with ErrAlreadyExists if its key is present.
func (s *Set[K, T]) Add(ctx context.Context, entity T) (Change[T], error) {
	s.ensure(ctx)
	key := s.keyOf(entity)

	s.mu.Lock()
	if _, ok := s.items[key]; ok {
		s.mu.Unlock()
		s.metrics.Mutated(s.name, KindAdded, false)
		return Change[T]{}, fmt.Errorf("%w: %s %v", ErrAlreadyExists, s.name, key)
	}
	return s.insert(ctx, key, entity)
}

// Update replaces the entry with the key of entity and fails with
// ErrNotFound if there is none.
func (s *Set[K, T]) Update(ctx context.Context, entity T) (Change[T], error) {
	s.ensure(ctx)
	key := s.keyOf(entity)

	s.mu.Lock()
	prev, ok := s.items[key]
	if !ok {
		s.mu.Unlock()
		s.metrics.Mutated(s.name, KindUpdated, false)
		return Change[T]{}, fmt.Errorf("%w: %s %v", ErrNotFound, s.name, key)
	}
	return s.replace(ctx, key, prev, entity)
}

// Remove deletes the entry for key. Removing an absent key does nothing and
// returns a zero Change.
func (s *Set[K, T]) Remove(ctx context.Context, key K) (Change[T], error) {
	s.ensure(ctx)

	s.mu.Lock()
	prev, ok := s.items[key]
	if !ok {
		s.mu.Unlock()
		return Change[T]{}, nil
	}

	pos := s.keys.IndexOf(key)
	delete(s.items, key)
	s.keys.Remove(key)

	m := Mutation[K, T]{Kind: KindRemoved, Key: key, Entity: prev}
	undo := func() {
		s.keys.Insert(pos, key)
		s.items[key] = prev
	}
	ev := Removed[K, T]{Set: s.name, Key: key, Entity: prev}
	if err := s.commit(ctx, m, undo, ev); err != nil {
		return Change[T]{}, err
	}
	return Change[T]{Kind: KindRemoved, Old: prev}, nil
}

// insert and replace expect s.mu to be held and release it.
func (s *Set[K, T]) insert(ctx context.Context, key K, entity T) (Change[T], error) {
	s.keys.Add(key)
	s.items[key] = entity

	m := Mutation[K, T]{Kind: KindAdded, Key: key, Entity: entity}
	undo := func() {
		s.keys.Remove(key)
		delete(s.items, key)
	}
	ev := Added[K, T]{Set: s.name, Key: key, Entity: entity}
	if err := s.commit(ctx, m, undo, ev); err != nil {
		return Change[T]{}, err
	}
	return Change[T]{Kind: KindAdded, New: entity}, nil
}

func (s *Set[K, T]) replace(ctx context.Context, key K, prev, entity T) (Change[T], error) {
	s.items[key] = entity

	m := Mutation[K, T]{Kind: KindUpdated, Key: key, Entity: entity}
	undo := func() { s.items[key] = prev }
	ev := Updated[K, T]{Set: s.name, Key: key, Entity: entity, Previous: prev}
	if err := s.commit(ctx, m, undo, ev); err != nil {
		return Change[T]{}, err
	}
	return Change[T]{Kind: KindUpdated, Old: prev, New: entity}, nil
}

// commit persists an applied mutation and publishes ev. It expects s.mu to be
// held and releases it. On failure undo restores the previous state.
func (s *Set[K, T]) commit(ctx context.Context, m Mutation[K, T], undo func(), ev any) error {
	timer := s.metrics.PersistDuration(s.name)
	err := s.persister.Persist(ctx, m, s.valuesLocked)
	timer.ObserveDuration()

	if err != nil {
		undo()
		s.mu.Unlock()
		s.log.Error("persist failed, mutation rolled back",
			slog.String("kind", m.Kind.String()),
			slog.Any("key", m.Key),
			slog.Any("error", err),
		)
		s.metrics.Mutated(s.name, m.Kind, false)
		return fmt.Errorf("%w: %s %s %v: %w", ErrPersistence, s.name, m.Kind, m.Key, err)
	}

	s.metrics.Mutated(s.name, m.Kind, true)
	s.metrics.Size(s.name, len(s.items))

	ticket := s.order.draw()
	s.mu.Unlock()

	s.order.run(ticket, func() { s.pub.Publish(ctx, ev) })
	return nil
}

func (s *Set[K, T]) valuesLocked() []T {
	out := make([]T, 0, len(s.items))
	s.keys.ForEach(func(k K) {
		out = append(out, s.items[k])
	})
	return out
}

// Contains reports whether key is present.
func (s *Set[K, T]) Contains(ctx context.Context, key K) bool {
	s.ensure(ctx)
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.items[key]
	return ok
}

// TryGet returns the entry for key.
func (s *Set[K, T]) TryGet(ctx context.Context, key K) (T, bool) {
	s.ensure(ctx)
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok
}

// All returns the entries in insertion order.
func (s *Set[K, T]) All(ctx context.Context) []T {
	s.ensure(ctx)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.valuesLocked()
}

// Keys returns the keys in insertion order.
func (s *Set[K, T]) Keys(ctx context.Context) []K {
	s.ensure(ctx)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keys.Values()
}

// Len returns the number of entries.
func (s *Set[K, T]) Len(ctx context.Context) int {
	s.ensure(ctx)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Where returns the entries matching pred in insertion order. pred must not
// call back into the set.
func (s *Set[K, T]) Where(ctx context.Context, pred func(T) bool) []T {
	s.ensure(ctx)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []T
	s.keys.ForEach(func(k K) {
		if v := s.items[k]; pred(v) {
			out = append(out, v)
		}
	})
	return out
}

// Entry pairs a key with its entity.
type Entry[K comparable, T any] struct {
	Key   K
	Value T
}

// Entries returns key and entity pairs in insertion order.
func (s *Set[K, T]) Entries(ctx context.Context) []Entry[K, T] {
	s.ensure(ctx)
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry[K, T], 0, len(s.items))
	s.keys.ForEach(func(k K) {
		out = append(out, Entry[K, T]{Key: k, Value: s.items[k]})
	})
	return out
}
