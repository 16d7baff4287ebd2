package store

import (
	"context"
	"slices"
	"sync"
)

type MemSnapshot struct {
	mu     sync.RWMutex
	data   []byte
	writes int
}

func NewMemSnapshot(initial []byte) *MemSnapshot {
	return &MemSnapshot{data: slices.Clone(initial)}
}

func (m *MemSnapshot) ReadAll(_ context.Context) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.data), nil
}

func (m *MemSnapshot) WriteAll(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = slices.Clone(data)
	m.writes++
	return nil
}

// Writes returns the number of WriteAll calls.
func (m *MemSnapshot) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

// MemRecords is an in-memory RecordStore that preserves insertion order.
type MemRecords[K comparable, T any] struct {
	mu    sync.RWMutex
	keys  []K
	items map[K]T
}

func NewMemRecords[K comparable, T any]() *MemRecords[K, T] {
	return &MemRecords[K, T]{items: map[K]T{}}
}

func (m *MemRecords[K, T]) Insert(_ context.Context, key K, v T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.items[key] = v
	return nil
}

func (m *MemRecords[K, T]) Update(_ context.Context, key K, v T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[key]; !ok {
		return ErrNotFound
	}
	m.items[key] = v
	return nil
}

func (m *MemRecords[K, T]) Delete(_ context.Context, key K) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[key]; !ok {
		return nil
	}
	delete(m.items, key)
	m.keys = slices.DeleteFunc(m.keys, func(k K) bool { return k == key })
	return nil
}

func (m *MemRecords[K, T]) FindAll(_ context.Context) ([]T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]T, 0, len(m.keys))
	for _, k := range m.keys {
		out = append(out, m.items[k])
	}
	return out, nil
}

var (
	_ SnapshotStore            = (*MemSnapshot)(nil)
	_ RecordStore[string, int] = (*MemRecords[string, int])(nil)
)
