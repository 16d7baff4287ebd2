package sf

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

const onceKey = "once"

// Once runs a load function exactly once and caches its value.
// The zero value is ready to use.
type Once[T any] struct {
	group singleflight.Group
	done  atomic.Bool
	mu    sync.RWMutex
	val   T
	calls atomic.Int64
}

// Do returns the cached value, running fn first if no load has completed yet.
// Concurrent callers block until the single in-flight fn returns.
func (o *Once[T]) Do(fn func() (T, error)) (T, error) {
	if o.done.Load() {
		return o.value(), nil
	}

	v, err, _ := o.group.Do(onceKey, func() (any, error) {
		// a caller may enter after the previous flight finished
		if o.done.Load() {
			return o.value(), nil
		}
		o.calls.Add(1)
		val, err := fn()
		if err != nil {
			return val, err
		}
		o.mu.Lock()
		o.val = val
		o.mu.Unlock()
		o.done.Store(true)
		return val, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Done reports whether a load has completed successfully.
func (o *Once[T]) Done() bool { return o.done.Load() }

// Calls returns how many times a load function has been invoked.
func (o *Once[T]) Calls() int64 { return o.calls.Load() }

// Reset forgets the cached value; the next Do runs its load function again.
func (o *Once[T]) Reset() {
	o.mu.Lock()
	var zero T
	o.val = zero
	o.mu.Unlock()
	o.done.Store(false)
}

func (o *Once[T]) value() T {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.val
}
