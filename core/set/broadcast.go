package set

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Target addresses either one key or every key of a collection.
type Target[K comparable] struct {
	key K
	all bool
}

// Specific targets exactly k.
func Specific[K comparable](k K) Target[K] { return Target[K]{key: k} }

// All targets every key.
func All[K comparable]() Target[K] { return Target[K]{all: true} }

// IsAll reports whether t addresses every key.
func (t Target[K]) IsAll() bool { return t.all }

// Key returns the addressed key. ok is false for All.
func (t Target[K]) Key() (k K, ok bool) {
	if t.all {
		return k, false
	}
	return t.key, true
}

// Matches reports whether k is addressed by t.
func (t Target[K]) Matches(k K) bool { return t.all || t.key == k }

// Expand returns the keys among candidates that t addresses, keeping their
// order.
func (t Target[K]) Expand(candidates []K) []K {
	var out []K
	for _, k := range candidates {
		if t.Matches(k) {
			out = append(out, k)
		}
	}
	return out
}

func (t Target[K]) String() string {
	if t.all {
		return "all"
	}
	return fmt.Sprint(t.key)
}

// FanOutResult lists the outcome of a FanOut per key.
type FanOutResult[K comparable] struct {
	Succeeded []K
	Failed    map[K]error
	failed    []K
}

// Err returns nil if every key succeeded and a *FanOutError otherwise.
func (r FanOutResult[K]) Err() error {
	if len(r.failed) == 0 {
		return nil
	}
	return &FanOutError[K]{Keys: r.failed, Failed: r.Failed}
}

// FanOutError names exactly the keys that failed during a FanOut.
type FanOutError[K comparable] struct {
	// Keys lists the failed keys in the order they were attempted.
	Keys   []K
	Failed map[K]error
}

func (e *FanOutError[K]) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "fan-out failed for %d key(s):", len(e.Keys))
	for _, k := range e.Keys {
		fmt.Fprintf(&sb, " [%v: %v]", k, e.Failed[k])
	}
	return sb.String()
}

func (e *FanOutError[K]) Unwrap() []error {
	out := make([]error, 0, len(e.Keys))
	for _, k := range e.Keys {
		out = append(out, e.Failed[k])
	}
	return out
}

// FanOut calls fn for every key in order. A failing key never stops the
// remaining ones.
func FanOut[K comparable](ctx context.Context, keys []K, fn func(ctx context.Context, k K) error) FanOutResult[K] {
	res := FanOutResult[K]{Failed: map[K]error{}}
	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			res.Failed[k] = err
			res.failed = append(res.failed, k)
			continue
		}
		if err := fn(ctx, k); err != nil {
			res.Failed[k] = err
			res.failed = append(res.failed, k)
			continue
		}
		res.Succeeded = append(res.Succeeded, k)
	}
	return res
}

// AsFanOutError unwraps err into a *FanOutError for keys of type K.
func AsFanOutError[K comparable](err error) (*FanOutError[K], bool) {
	var fe *FanOutError[K]
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
