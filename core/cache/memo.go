package cache

import (
	"sync"
	"sync/atomic"
)

// Memo caches the result of compute until invalidated.
type Memo[T any] struct {
	compute func() T

	mu    sync.Mutex
	val   T
	gen   uint64
	valid bool

	stale    atomic.Uint64
	computes atomic.Int64
}

// NewMemo creates a memo that starts invalid.
func NewMemo[T any](compute func() T) *Memo[T] {
	return &Memo[T]{compute: compute}
}

// Get returns the cached value, recomputing it if it was invalidated since
// the last computation.
func (m *Memo[T]) Get() T {
	m.mu.Lock()
	if m.valid && m.gen == m.stale.Load() {
		v := m.val
		m.mu.Unlock()
		return v
	}
	m.mu.Unlock()

	gen := m.stale.Load()
	v := m.compute()
	m.computes.Add(1)

	m.mu.Lock()
	// an invalidation that raced the computation keeps the memo dirty
	if gen == m.stale.Load() {
		m.val, m.gen, m.valid = v, gen, true
	}
	m.mu.Unlock()
	return v
}

// Invalidate marks the cached value dirty.
func (m *Memo[T]) Invalidate() { m.stale.Add(1) }

// Valid reports whether Get would return without recomputing.
func (m *Memo[T]) Valid() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.valid && m.gen == m.stale.Load()
}

// Computes returns how often the compute function ran.
func (m *Memo[T]) Computes() int64 { return m.computes.Load() }
