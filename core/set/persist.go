package set

import (
	"context"
	"fmt"

	"github.com/codewandler/rigcore-go/internal/codec"
	"github.com/codewandler/rigcore-go/ports/store"
)

// Mutation is handed to a Persister for every change of a set.
type Mutation[K comparable, T any] struct {
	Kind   ChangeKind
	Key    K
	Entity T
}

// Persister loads and saves the entries of a set.
type Persister[K comparable, T any] interface {
	// Load returns all stored entries in their stored order.
	Load(ctx context.Context) ([]T, error)
	// Persist saves m. snapshot returns the entries of the set after m was
	// applied; whole-collection persisters write it, others may ignore it.
	Persist(ctx context.Context, m Mutation[K, T], snapshot func() []T) error
}

type snapshotDoc[T any] struct {
	Items []T `json:"items" yaml:"items"`
}

type snapshotPersister[K comparable, T any] struct {
	store store.SnapshotStore
	codec codec.Codec
}

// SnapshotPersister rewrites the whole collection as one {"items": [...]}
// document on every mutation.
func SnapshotPersister[K comparable, T any](s store.SnapshotStore, c codec.Codec) Persister[K, T] {
	if c == nil {
		c = codec.JSONCodec{}
	}
	return &snapshotPersister[K, T]{store: s, codec: c}
}

func (p *snapshotPersister[K, T]) Load(ctx context.Context) ([]T, error) {
	doc, _, err := store.Read[snapshotDoc[T]](ctx, p.store, p.codec)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return doc.Items, nil
}

func (p *snapshotPersister[K, T]) Persist(ctx context.Context, _ Mutation[K, T], snapshot func() []T) error {
	items := snapshot()
	if items == nil {
		items = []T{}
	}
	return store.Write(ctx, p.store, p.codec, snapshotDoc[T]{Items: items})
}

type recordPersister[K comparable, T any] struct {
	store store.RecordStore[K, T]
}

// RecordPersister writes one record per mutation.
func RecordPersister[K comparable, T any](s store.RecordStore[K, T]) Persister[K, T] {
	return &recordPersister[K, T]{store: s}
}

func (p *recordPersister[K, T]) Load(ctx context.Context) ([]T, error) {
	return p.store.FindAll(ctx)
}

func (p *recordPersister[K, T]) Persist(ctx context.Context, m Mutation[K, T], _ func() []T) error {
	switch m.Kind {
	case KindAdded:
		return p.store.Insert(ctx, m.Key, m.Entity)
	case KindUpdated:
		return p.store.Update(ctx, m.Key, m.Entity)
	case KindRemoved:
		return p.store.Delete(ctx, m.Key)
	default:
		return fmt.Errorf("unknown mutation kind %d", m.Kind)
	}
}

type memoryPersister[K comparable, T any] struct{}

// MemoryPersister keeps nothing. Sets using it start empty on every load.
func MemoryPersister[K comparable, T any]() Persister[K, T] {
	return memoryPersister[K, T]{}
}

func (memoryPersister[K, T]) Load(context.Context) ([]T, error) { return nil, nil }

func (memoryPersister[K, T]) Persist(context.Context, Mutation[K, T], func() []T) error {
	return nil
}
