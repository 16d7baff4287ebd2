package app

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/codewandler/rigcore-go/core/bus"
	"github.com/codewandler/rigcore-go/core/set"
	"github.com/codewandler/rigcore-go/domain/gpu"
	"github.com/codewandler/rigcore-go/domain/kernel"
	"github.com/codewandler/rigcore-go/domain/user"
	"github.com/codewandler/rigcore-go/ports/store"
)

type unknownCmd struct{}

func TestRoot_Defaults(t *testing.T) {
	root, err := New(Config{})
	require.NoError(t, err)
	defer root.Close()

	require.NotEmpty(t, root.ID())
	require.NotNil(t, root.Bus())
	require.NoError(t, root.Init(t.Context()))
	require.Len(t, root.Refreshers(), 6)
	require.NoError(t, root.Refresh(t.Context()))

	require.ErrorIs(t, root.Execute(t.Context(), unknownCmd{}), bus.ErrUnhandledCommand)
}

func TestRoot_SeparateRootsDoNotShareHandlers(t *testing.T) {
	a, err := New(Config{ID: "a"})
	require.NoError(t, err)
	defer a.Close()
	b, err := New(Config{ID: "b"})
	require.NoError(t, err)
	defer b.Close()

	in := kernel.Input{ID: uuid.New(), Name: "gminer", Args: "-a eth"}
	require.NoError(t, a.Execute(t.Context(), kernel.AddInput{Input: in}))
	require.True(t, a.Kernel().Inputs.Contains(t.Context(), in.ID))
	require.False(t, b.Kernel().Inputs.Contains(t.Context(), in.ID))
}

func TestRoot_ArgsFollowInputChanges(t *testing.T) {
	root, err := New(Config{})
	require.NoError(t, err)
	defer root.Close()
	ctx := t.Context()

	in := kernel.Input{ID: uuid.New(), Name: "gminer", Args: "-a eth"}
	require.NoError(t, root.Execute(ctx, kernel.AddInput{Input: in}))
	require.NoError(t, root.Execute(ctx, kernel.SelectKernelInput{KernelInputID: in.ID}))
	require.Equal(t, "-a eth", root.ArgsAssembler().Args())

	require.Len(t, root.InputViews().All(), 1)
	require.Len(t, root.InputViews().PleaseSelect(), 2)

	in.Args = "-a etc"
	require.NoError(t, root.Execute(ctx, kernel.UpdateInput{Input: in}))
	require.Equal(t, "-a etc", root.ArgsAssembler().Args())
	require.Equal(t, "-a etc", root.InputViews().All()[0].Args)
}

func TestRoot_PersistAndReload(t *testing.T) {
	inputs := store.NewMemSnapshot(nil)
	users := store.NewMemRecords[string, user.User]()
	persisters := func() Persisters {
		return Persisters{
			KernelInputs: set.SnapshotPersister[uuid.UUID, kernel.Input](inputs, nil),
			Users:        set.RecordPersister[string, user.User](users),
		}
	}
	ctx := t.Context()

	first, err := New(Config{Persisters: persisters()})
	require.NoError(t, err)
	defer first.Close()
	require.NoError(t, first.Init(ctx))

	in := kernel.Input{ID: uuid.New(), Name: "nbminer", Args: "-a kawpow"}
	require.NoError(t, first.Execute(ctx, kernel.AddInput{Input: in}))
	u, err := user.New("admin", "secret", "")
	require.NoError(t, err)
	require.NoError(t, first.Execute(ctx, user.AddUser{User: u}))

	second, err := New(Config{Persisters: persisters()})
	require.NoError(t, err)
	defer second.Close()
	require.NoError(t, second.Init(ctx))

	require.Equal(t, []kernel.Input{in}, second.Kernel().Inputs.All(ctx))
	require.True(t, second.Users().Authenticate(ctx, "admin", "secret"))
	require.Len(t, second.InputViews().All(), 1)

	// a change made through second becomes visible in first after a refresh
	require.NoError(t, second.Execute(ctx, kernel.RemoveInput{ID: in.ID}))
	require.True(t, first.Kernel().Inputs.Contains(ctx, in.ID))
	require.NoError(t, first.Refresh(ctx))
	require.False(t, first.Kernel().Inputs.Contains(ctx, in.ID))
	require.Empty(t, first.InputViews().All())
}

type unreadable[K comparable, T any] struct{ name string }

func (u unreadable[K, T]) Load(context.Context) ([]T, error) {
	return nil, errors.New(u.name + " unreadable")
}

func (unreadable[K, T]) Persist(context.Context, set.Mutation[K, T], func() []T) error { return nil }

func TestRoot_RefreshOrder(t *testing.T) {
	root, err := New(Config{Persisters: Persisters{
		Users:        unreadable[string, user.User]{name: "users"},
		KernelInputs: unreadable[uuid.UUID, kernel.Input]{name: "inputs"},
	}})
	require.NoError(t, err)
	defer root.Close()
	require.Error(t, root.Init(t.Context()))

	want := "kernel-inputs: inputs unreadable\nusers: users unreadable"
	for range 10 {
		err := root.Refresh(t.Context())
		require.EqualError(t, err, want)
	}
}

type recordingDriver struct{ applied []gpu.Profile }

func (d *recordingDriver) OverClock(_ context.Context, p gpu.Profile) error {
	d.applied = append(d.applied, p)
	return nil
}

func TestRoot_Driver(t *testing.T) {
	d := &recordingDriver{}
	root, err := New(Config{Driver: d})
	require.NoError(t, err)
	defer root.Close()

	p := gpu.DefaultProfile(uuid.New(), gpu.Gpu(0))
	require.NoError(t, root.Execute(t.Context(), gpu.OverClock{Profile: p}))
	require.Equal(t, []gpu.Profile{p}, d.applied)
}
