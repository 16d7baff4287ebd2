package kernel

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/codewandler/rigcore-go/core/bus"
	"github.com/codewandler/rigcore-go/core/ds"
	"github.com/codewandler/rigcore-go/core/set"
)

const (
	InputSetName  = "kernel-inputs"
	KernelSetName = "kernels"
)

type Options struct {
	Bus *bus.Bus
	// Inputs and Kernels default to memory persisters.
	Inputs  set.Persister[uuid.UUID, Input]
	Kernels set.Persister[uuid.UUID, Kernel]
	Log     *slog.Logger
	Metrics set.Metrics
}

// Module owns the kernel input and kernel sets and their command handlers.
type Module struct {
	Inputs  *set.Set[uuid.UUID, Input]
	Kernels *set.Set[uuid.UUID, Kernel]
}

// New creates the sets and registers the kernel commands on opts.Bus.
func New(opts Options) (*Module, error) {
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	if opts.Bus == nil {
		opts.Bus = bus.New(bus.Options{Log: opts.Log})
	}
	log := opts.Log.With(slog.String("module", "kernel"))

	m := &Module{
		Inputs: set.New(set.Options[uuid.UUID, Input]{
			Name:      InputSetName,
			KeyOf:     Input.Key,
			Persister: opts.Inputs,
			Publisher: opts.Bus,
			Log:       log,
			Metrics:   opts.Metrics,
		}),
		Kernels: set.New(set.Options[uuid.UUID, Kernel]{
			Name:      KernelSetName,
			KeyOf:     Kernel.Key,
			Persister: opts.Kernels,
			Publisher: opts.Bus,
			Log:       log,
			Metrics:   opts.Metrics,
		}),
	}

	if err := m.register(opts.Bus); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Module) register(b *bus.Bus) error {
	return errors.Join(
		bus.Accept(b, "add kernel input", slog.LevelInfo, func(ctx context.Context, cmd AddInput) error {
			_, err := m.Inputs.Add(ctx, cmd.Input)
			return err
		}),
		bus.Accept(b, "update kernel input", slog.LevelInfo, func(ctx context.Context, cmd UpdateInput) error {
			_, err := m.Inputs.Update(ctx, cmd.Input)
			return err
		}),
		bus.Accept(b, "remove kernel input", slog.LevelInfo, func(ctx context.Context, cmd RemoveInput) error {
			_, err := m.Inputs.Remove(ctx, cmd.ID)
			return err
		}),
		bus.Accept(b, "add kernel", slog.LevelInfo, func(ctx context.Context, cmd AddKernel) error {
			_, err := m.Kernels.Add(ctx, cmd.Kernel)
			return err
		}),
		bus.Accept(b, "update kernel", slog.LevelInfo, func(ctx context.Context, cmd UpdateKernel) error {
			_, err := m.Kernels.Update(ctx, cmd.Kernel)
			return err
		}),
		bus.Accept(b, "remove kernel", slog.LevelInfo, func(ctx context.Context, cmd RemoveKernel) error {
			_, err := m.Kernels.Remove(ctx, cmd.ID)
			return err
		}),
	)
}

// ProcessNames returns the lower-cased process names of all kernels.
func (m *Module) ProcessNames(ctx context.Context) *ds.StringSet {
	names := ds.NewStringSet()
	for _, k := range m.Kernels.All(ctx) {
		if n := k.ProcessName(); n != "" {
			names.Add(strings.ToLower(n))
		}
	}
	return names
}

// IsKernelProcess reports whether name is the process of a known kernel,
// ignoring case.
func (m *Module) IsKernelProcess(ctx context.Context, name string) bool {
	return m.ProcessNames(ctx).Contains(strings.ToLower(name))
}
