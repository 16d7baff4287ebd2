// Package cache provides memoisation for read-optimised projections.
//
// A [Memo] wraps a compute function whose result stays cached until
// [Memo.Invalidate] is called. Invalidation is cheap (an atomic increment) and
// recomputation is pulled by the next [Memo.Get], so a burst of N
// invalidations costs a single recomputation:
//
//	sorted := cache.NewMemo(func() []*Row {
//	    return sortRows(rows)
//	})
//	sorted.Invalidate() // on every change
//	rows := sorted.Get() // recomputes once
//
// Compute runs outside the memo lock, so it may take locks of its own without
// ordering constraints against callers of Invalidate.
package cache
