package kernel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/codewandler/rigcore-go/core/bus"
	"github.com/codewandler/rigcore-go/core/set"
)

// ArgsAssembler keeps the command line of the selected kernel input.
type ArgsAssembler struct {
	inputs *set.Set[uuid.UUID, Input]
	pub    set.Publisher
	log    *slog.Logger

	mu       sync.Mutex
	selected uuid.UUID
	dual     bool
	args     string
	builds   int
}

// NewArgsAssembler registers the SelectKernelInput and RefreshArgsAssembly
// handlers on b.
func NewArgsAssembler(b *bus.Bus, inputs *set.Set[uuid.UUID, Input], log *slog.Logger) (*ArgsAssembler, error) {
	if log == nil {
		log = slog.Default()
	}
	a := &ArgsAssembler{
		inputs: inputs,
		pub:    b,
		log:    log.With(slog.String("component", "args-assembler")),
	}
	err := errors.Join(
		bus.Accept(b, "select kernel input", slog.LevelInfo, a.onSelect),
		bus.Accept(b, "refresh args assembly", slog.LevelDebug, a.onRefresh),
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (a *ArgsAssembler) onSelect(ctx context.Context, cmd SelectKernelInput) error {
	if cmd.KernelInputID != uuid.Nil && !a.inputs.Contains(ctx, cmd.KernelInputID) {
		return fmt.Errorf("%w: kernel input %s", set.ErrNotFound, cmd.KernelInputID)
	}
	a.mu.Lock()
	a.selected = cmd.KernelInputID
	a.dual = cmd.DualMine
	a.mu.Unlock()
	a.rebuild(ctx)
	return nil
}

func (a *ArgsAssembler) onRefresh(ctx context.Context, cmd RefreshArgsAssembly) error {
	a.mu.Lock()
	selected := a.selected
	a.mu.Unlock()

	if selected == uuid.Nil || cmd.KernelInputID != selected {
		a.log.Debug("ignoring refresh for unselected input", slog.String("kernel_input", cmd.KernelInputID.String()))
		return nil
	}
	a.rebuild(ctx)
	return nil
}

func (a *ArgsAssembler) rebuild(ctx context.Context) {
	a.mu.Lock()
	id, dual := a.selected, a.dual
	a.mu.Unlock()

	var args string
	if in, ok := a.inputs.TryGet(ctx, id); ok {
		args = Assemble(in, dual)
	}

	a.mu.Lock()
	a.args = args
	a.builds++
	a.mu.Unlock()

	a.pub.Publish(ctx, ArgsAssembled{KernelInputID: id, Args: args})
}

// Args returns the assembled command line of the selected input.
func (a *ArgsAssembler) Args() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.args
}

// Selected returns the selected input, uuid.Nil if none.
func (a *ArgsAssembler) Selected() uuid.UUID {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.selected
}

// Builds returns how often the arguments were assembled.
func (a *ArgsAssembler) Builds() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.builds
}

// Assemble returns the command line of in. Dual mining uses DualFullArgs
// when the input supports it and provides them.
func Assemble(in Input, dual bool) string {
	if dual && in.IsSupportDualMine && in.DualFullArgs != "" {
		return in.DualFullArgs
	}
	return in.Args
}
