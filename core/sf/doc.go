// Package sf provides a single-flight, one-shot initialisation guard.
//
// [Once] runs a load function exactly once across all callers. Concurrent
// first callers share the one in-flight call (via golang.org/x/sync/singleflight)
// and all observe the same result; later callers take a lock-free fast path.
// A failed load does not mark the guard as done, so the next caller retries.
//
//	var once sf.Once[[]Item]
//	items, err := once.Do(func() ([]Item, error) {
//	    return store.Load(ctx)
//	})
//
// [Once.Reset] forgets the loaded value so the next Do loads again, which is
// how repositories implement Refresh.
package sf
