package view

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codewandler/rigcore-go/core/bus"
	"github.com/codewandler/rigcore-go/core/set"
	"github.com/codewandler/rigcore-go/internal/codec"
	"github.com/codewandler/rigcore-go/ports/store"
)

type input struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Args string `json:"args"`
	Dual bool   `json:"dual"`
}

type inputView struct {
	ID   string
	Name string
	Args string
	Dual bool
}

func wrapInput(in input) *inputView {
	return &inputView{ID: in.ID, Name: in.Name, Args: in.Args, Dual: in.Dual}
}

func applyInput(v *inputView, in input) *inputView {
	v.Name, v.Args, v.Dual = in.Name, in.Args, in.Dual
	return v
}

func setup(t *testing.T, initial string) (*bus.Bus, *set.Set[string, input], *Cache[string, input, *inputView], *store.MemSnapshot) {
	t.Helper()
	b := bus.New(bus.Options{})
	ms := store.NewMemSnapshot([]byte(initial))
	src := set.New(set.Options[string, input]{
		Name:      "kernel-inputs",
		KeyOf:     func(in input) string { return in.ID },
		Persister: set.SnapshotPersister[string, input](ms, codec.JSONCodec{}),
		Publisher: b,
	})
	c := New(t.Context(), b, src, Options[string, input, *inputView]{
		Name:  "kernel-input-views",
		Wrap:  wrapInput,
		Apply: applyInput,
	})
	return b, src, c, ms
}

func TestCache_FillsFromSource(t *testing.T) {
	_, _, c, _ := setup(t, `{"items":[{"id":"1","name":"claymore"},{"id":"2","name":"gminer"}]}`)

	require.Equal(t, 2, c.Len())
	v, ok := c.TryGet("2")
	require.True(t, ok)
	require.Equal(t, "gminer", v.Name)
}

func TestCache_FollowsCommands(t *testing.T) {
	b, src, c, _ := setup(t, "")

	bus.MustAccept(b, "add input", slog.LevelDebug, func(ctx context.Context, in input) error {
		_, err := src.AddOrUpdate(ctx, in)
		return err
	})

	require.NoError(t, b.Execute(t.Context(), input{ID: "1", Name: "a"}))
	v, ok := c.TryGet("1")
	require.True(t, ok)
	require.Equal(t, "a", v.Name)

	require.NoError(t, b.Execute(t.Context(), input{ID: "1", Name: "b"}))
	v2, _ := c.TryGet("1")
	require.Same(t, v, v2)
	require.Equal(t, "b", v2.Name)

	_, err := src.Remove(t.Context(), "1")
	require.NoError(t, err)
	_, ok = c.TryGet("1")
	require.False(t, ok)
	require.Zero(t, c.Len())
}

func TestCache_IgnoresOtherSets(t *testing.T) {
	b, _, c, _ := setup(t, "")
	other := set.New(set.Options[string, input]{
		Name:      "other",
		KeyOf:     func(in input) string { return in.ID },
		Publisher: b,
	})

	_, err := other.Add(t.Context(), input{ID: "x"})
	require.NoError(t, err)
	require.Zero(t, c.Len())
}

func TestCache_DuplicateConstructionDeliversOnce(t *testing.T) {
	b, src, _, _ := setup(t, "")

	var adds int
	bus.Subscribe(b, "kernel-input-views/added", "", slog.LevelDebug, func(context.Context, set.Added[string, input]) error {
		adds++
		return nil
	})

	_, err := src.Add(t.Context(), input{ID: "1"})
	require.NoError(t, err)
	require.Zero(t, adds)
}

func TestWatch_FiresOnFieldChange(t *testing.T) {
	_, src, c, _ := setup(t, `{"items":[{"id":"1","name":"a","args":"-x"}]}`)

	type argsChange struct{ prev, cur string }
	var args []argsChange
	var dual []bool
	Watch(c, "args", func(v *inputView) string { return v.Args }, func(_ context.Context, v *inputView, prev, cur string) {
		args = append(args, argsChange{prev, cur})
		// the cache is readable from inside a watch
		got, _ := c.TryGet(v.ID)
		require.Equal(t, cur, got.Args)
	})
	Watch(c, "dual_mine", func(v *inputView) bool { return v.Dual }, func(_ context.Context, _ *inputView, _, cur bool) {
		dual = append(dual, cur)
	})

	_, err := src.Update(t.Context(), input{ID: "1", Name: "renamed", Args: "-x"})
	require.NoError(t, err)
	require.Empty(t, args)
	require.Empty(t, dual)

	_, err = src.Update(t.Context(), input{ID: "1", Name: "renamed", Args: "-y", Dual: true})
	require.NoError(t, err)
	require.Equal(t, []argsChange{{"-x", "-y"}}, args)
	require.Equal(t, []bool{true}, dual)

	_, err = src.Add(t.Context(), input{ID: "2", Args: "-z"})
	require.NoError(t, err)
	require.Len(t, args, 1)
}

func TestProjection(t *testing.T) {
	_, src, c, _ := setup(t, `{"items":[{"id":"1","name":"b"},{"id":"2","name":"a"},{"id":"3","name":"c","dual":true}]}`)

	byName := func(a, b *inputView) int { return cmp.Compare(a.Name, b.Name) }
	pleaseSelect := &inputView{Name: "please select"}

	all := c.Projection("all", byName, nil)
	sel := c.Projection("please-select", byName, nil, pleaseSelect)
	dualOnly := c.Projection("dual", byName, func(v *inputView) bool { return v.Dual })

	names := func(vs []*inputView) []string {
		out := make([]string, 0, len(vs))
		for _, v := range vs {
			out = append(out, v.Name)
		}
		return out
	}

	require.Equal(t, []string{"a", "b", "c"}, names(all.Items()))
	require.Equal(t, []string{"please select", "a", "b", "c"}, names(sel.Items()))
	require.Equal(t, []string{"c"}, names(dualOnly.Items()))
	require.Same(t, all, c.Projection("all", nil, nil))

	all.Items()
	require.EqualValues(t, 1, all.Computes())

	_, err := src.Add(t.Context(), input{ID: "4", Name: "0"})
	require.NoError(t, err)
	require.Equal(t, []string{"0", "a", "b", "c"}, names(all.Items()))
	require.EqualValues(t, 2, all.Computes())

	_, err = src.Remove(t.Context(), "3")
	require.NoError(t, err)
	require.Empty(t, dualOnly.Items())
}

func TestCache_Refreshed(t *testing.T) {
	_, src, c, ms := setup(t, `{"items":[{"id":"1","name":"a"},{"id":"2","name":"b"}]}`)
	v1, _ := c.TryGet("1")

	require.NoError(t, ms.WriteAll(t.Context(), []byte(`{"items":[{"id":"1","name":"A"},{"id":"3","name":"c"}]}`)))
	require.NoError(t, src.Refresh(t.Context()))

	require.Equal(t, 2, c.Len())
	got, ok := c.TryGet("1")
	require.True(t, ok)
	require.Same(t, v1, got)
	require.Equal(t, "A", got.Name)
	_, ok = c.TryGet("2")
	require.False(t, ok)
	_, ok = c.TryGet("3")
	require.True(t, ok)
}

func TestCache_ConcurrentRefreshAndUpdate(t *testing.T) {
	_, src, c, _ := setup(t, `{"items":[{"id":"1","args":"-a0"},{"id":"2","args":"-b0"}]}`)

	var fired atomic.Int64
	Watch(c, "args", func(v *inputView) string { return v.Args }, func(ctx context.Context, v *inputView, _, _ string) {
		// both the cache and its source are readable from inside a watch
		c.TryGet(v.ID)
		src.TryGet(ctx, v.ID)
		fired.Add(1)
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		var wg sync.WaitGroup
		for w, id := range []string{"1", "2", "1", "2"} {
			wg.Add(1)
			go func(w int, id string) {
				defer wg.Done()
				for i := 0; i < 500; i++ {
					_, err := src.Update(context.Background(), input{ID: id, Args: fmt.Sprintf("-%d-%d", w, i)})
					assert.NoError(t, err)
				}
			}(w, id)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				assert.NoError(t, src.Refresh(context.Background()))
			}
		}()
		wg.Wait()
	}()

	select {
	case <-done:
	case <-time.After(20 * time.Second):
		t.Fatal("concurrent refresh and update did not finish")
	}

	require.Positive(t, fired.Load())
	require.Equal(t, src.Len(t.Context()), c.Len())
	for _, in := range src.All(t.Context()) {
		got, ok := c.TryGet(in.ID)
		require.True(t, ok)
		require.Equal(t, in.Args, got.Args)
	}
}

func TestCache_Close(t *testing.T) {
	_, src, c, _ := setup(t, "")
	c.Close()

	_, err := src.Add(t.Context(), input{ID: "1"})
	require.NoError(t, err)
	require.Zero(t, c.Len())
}
