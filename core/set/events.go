package set

import "context"

// Added is published after an entity was inserted and persisted.
type Added[K comparable, T any] struct {
	Set    string
	Key    K
	Entity T
}

// Updated is published after an entity was replaced and persisted.
type Updated[K comparable, T any] struct {
	Set      string
	Key      K
	Entity   T
	Previous T
}

// Removed is published after an entity was deleted and the deletion persisted.
type Removed[K comparable, T any] struct {
	Set    string
	Key    K
	Entity T
}

// Refreshed is published after the set discarded its memory and reloaded.
type Refreshed[K comparable, T any] struct {
	Set   string
	Count int
}

// Publisher receives the events of a set. *bus.Bus and *bus.EventBus
// implement it.
type Publisher interface {
	Publish(ctx context.Context, event any) int
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, any) int { return 0 }
