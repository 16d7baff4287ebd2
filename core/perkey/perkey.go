// Package perkey serializes work per key while work for different keys runs
// concurrently.
//
// The gpu module uses it so that driver calls for the same slot never overlap.
package perkey

import (
	"context"
	"sync"
)

// Locker runs functions such that for any key at most one runs at a time.
// Keys are tracked only while work for them is running or waiting.
type Locker[K comparable] struct {
	mu    sync.Mutex
	slots map[K]*slot
}

type slot struct {
	sem  chan struct{}
	refs int
}

func New[K comparable]() *Locker[K] {
	return &Locker[K]{slots: make(map[K]*slot)}
}

// Do runs fn once no other function holds key and returns its error. It
// returns ctx.Err() if ctx ends while waiting; fn then does not run.
func (l *Locker[K]) Do(ctx context.Context, key K, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s := l.acquire(key)
	defer l.release(key, s)

	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-s.sem }()

	return fn()
}

// Len returns the number of keys with running or waiting work.
func (l *Locker[K]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}

func (l *Locker[K]) acquire(key K) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{sem: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

func (l *Locker[K]) release(key K, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}
