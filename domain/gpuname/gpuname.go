// Package gpuname collects the GPU models reported by rigs.
//
// A Name is a value object and is its own key, so names are set or removed
// but never updated.
package gpuname

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/codewandler/rigcore-go/core/set"
)

const SetName = "gpu-names"

type Type string

const (
	TypeEmpty  Type = "empty"
	TypeNvidia Type = "nvidia"
	TypeAMD    Type = "amd"
)

type Name struct {
	Type        Type   `json:"type" yaml:"type"`
	Name        string `json:"name" yaml:"name"`
	TotalMemory uint64 `json:"totalMemory" yaml:"totalMemory"`
}

func (n Name) key() Name { return n }

// String renders the name with its memory rounded to whole gibibytes.
func (n Name) String() string {
	return fmt.Sprintf("%s %s %dG", n.Type, n.Name, (n.TotalMemory+(1<<29))>>30)
}

// IsValid reports whether n describes a real card.
func (n Name) IsValid() bool {
	return n.Type != "" && n.Type != TypeEmpty && n.Name != "" && n.TotalMemory > 0
}

// Count is how many times a name was reported.
type Count struct {
	Name
	Count int
}

type Options struct {
	// Persister defaults to a memory persister.
	Persister set.Persister[Name, Name]
	Publisher set.Publisher
	Log       *slog.Logger
	Metrics   set.Metrics
}

// Names holds the stored names and the in-memory report counters.
type Names struct {
	names *set.Set[Name, Name]

	mu     sync.Mutex
	counts map[Name]int
}

func New(opts Options) *Names {
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	return &Names{
		names: set.New(set.Options[Name, Name]{
			Name:      SetName,
			KeyOf:     Name.key,
			Persister: opts.Persister,
			Publisher: opts.Publisher,
			Log:       opts.Log.With(slog.String("module", "gpuname")),
			Metrics:   opts.Metrics,
		}),
		counts: map[Name]int{},
	}
}

// Set stores n. Storing a known name does nothing.
func (s *Names) Set(ctx context.Context, n Name) error {
	if !n.IsValid() || s.names.Contains(ctx, n) {
		return nil
	}
	_, err := s.names.AddOrUpdate(ctx, n)
	return err
}

func (s *Names) Remove(ctx context.Context, n Name) error {
	_, err := s.names.Remove(ctx, n)
	return err
}

// All returns the stored names in the order they were first set.
func (s *Names) All(ctx context.Context) []Name {
	return s.names.All(ctx)
}

// AddCount records one report of a card. Counts are not persisted.
func (s *Names) AddCount(t Type, name string, totalMemory uint64) {
	n := Name{Type: t, Name: name, TotalMemory: totalMemory}
	if !n.IsValid() {
		return
	}
	s.mu.Lock()
	s.counts[n]++
	s.mu.Unlock()
}

// Counts returns the reported names, most reported first.
func (s *Names) Counts() []Count {
	s.mu.Lock()
	out := make([]Count, 0, len(s.counts))
	for n, c := range s.counts {
		out = append(out, Count{Name: n, Count: c})
	}
	s.mu.Unlock()

	slices.SortFunc(out, func(a, b Count) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Type, b.Type); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Name.Name, b.Name.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.TotalMemory, b.TotalMemory)
	})
	return out
}

// ResetCounts clears the report counters.
func (s *Names) ResetCounts() {
	s.mu.Lock()
	clear(s.counts)
	s.mu.Unlock()
}

// Refresh reloads the stored names.
func (s *Names) Refresh(ctx context.Context) error { return s.names.Refresh(ctx) }

// Init loads the stored names.
func (s *Names) Init(ctx context.Context) error { return s.names.Init(ctx) }
