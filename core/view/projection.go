package view

import (
	"slices"

	"github.com/codewandler/rigcore-go/core/cache"
)

// Projection is an ordered, filtered sequence of the values of a Cache,
// recomputed on the first read after the cache changed.
type Projection[W any] struct {
	name string
	memo *cache.Memo[[]W]
}

// Projection returns the projection registered under name, creating it on
// first use. cmp orders the values; a nil cmp leaves them unordered. A nil
// filter keeps every value. head items are prepended in the given order.
func (c *Cache[K, T, W]) Projection(name string, cmp func(a, b W) int, filter func(W) bool, head ...W) *Projection[W] {
	c.projMu.Lock()
	defer c.projMu.Unlock()

	if p, ok := c.projections[name]; ok {
		if typed, ok := p.(*Projection[W]); ok {
			return typed
		}
	}

	head = slices.Clone(head)
	p := &Projection[W]{
		name: name,
		memo: cache.NewMemo(func() []W {
			items := c.Items()
			if filter != nil {
				items = slices.DeleteFunc(items, func(w W) bool { return !filter(w) })
			}
			if cmp != nil {
				slices.SortStableFunc(items, cmp)
			}
			return append(slices.Clone(head), items...)
		}),
	}
	c.projections[name] = p
	return p
}

// Name returns the projection name.
func (p *Projection[W]) Name() string { return p.name }

// Items returns the current sequence. Callers must not modify it.
func (p *Projection[W]) Items() []W { return p.memo.Get() }

// Invalidate forces a recomputation on the next read.
func (p *Projection[W]) Invalidate() { p.memo.Invalidate() }

// Computes returns how often the sequence was computed.
func (p *Projection[W]) Computes() int64 { return p.memo.Computes() }
