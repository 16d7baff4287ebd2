package kernel

import (
	"cmp"
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/codewandler/rigcore-go/core/bus"
	"github.com/codewandler/rigcore-go/core/set"
	"github.com/codewandler/rigcore-go/core/view"
)

const InputViewsName = "kernel-input-views"

// InputView is the UI-facing mirror of an Input.
type InputView struct {
	ID                uuid.UUID
	Name              string
	Args              string
	IsSupportDualMine bool
	DualCoinGroupID   uuid.UUID
	DualFullArgs      string
}

// PleaseSelect is the placeholder row shown before an input is chosen.
var PleaseSelect = &InputView{Name: "please select"}

func newInputView(in Input) *InputView {
	v := &InputView{ID: in.ID}
	return v.update(in)
}

func (v *InputView) update(in Input) *InputView {
	v.Name = in.Name
	v.Args = in.Args
	v.IsSupportDualMine = in.IsSupportDualMine
	v.DualCoinGroupID = in.DualCoinGroupID
	v.DualFullArgs = in.DualFullArgs
	return v
}

type argsPair struct {
	Args, DualFullArgs string
}

// InputViews caches the kernel inputs for display.
type InputViews struct {
	*view.Cache[uuid.UUID, Input, *InputView]

	all          *view.Projection[*InputView]
	pleaseSelect *view.Projection[*InputView]
}

// NewInputViews builds the views of inputs. A change of an input's
// arguments executes RefreshArgsAssembly; a change of its dual mining
// support publishes InputDualMineChanged.
func NewInputViews(ctx context.Context, b *bus.Bus, inputs *set.Set[uuid.UUID, Input], log *slog.Logger) *InputViews {
	if log == nil {
		log = slog.Default()
	}
	c := view.New(ctx, b, inputs, view.Options[uuid.UUID, Input, *InputView]{
		Name:  InputViewsName,
		Wrap:  newInputView,
		Apply: (*InputView).update,
		Log:   log,
	})

	view.Watch(c, "args",
		func(v *InputView) argsPair { return argsPair{v.Args, v.DualFullArgs} },
		func(ctx context.Context, v *InputView, _, _ argsPair) {
			if err := b.Execute(ctx, RefreshArgsAssembly{KernelInputID: v.ID}); err != nil {
				log.Warn("refresh args assembly failed", slog.String("kernel_input", v.ID.String()), slog.Any("error", err))
			}
		},
	)
	view.Watch(c, "dual_mine",
		func(v *InputView) bool { return v.IsSupportDualMine },
		func(ctx context.Context, v *InputView, _, cur bool) {
			b.Publish(ctx, InputDualMineChanged{KernelInputID: v.ID, IsSupportDualMine: cur})
		},
	)

	byName := func(a, b *InputView) int {
		if n := cmp.Compare(a.Name, b.Name); n != 0 {
			return n
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	}

	return &InputViews{
		Cache:        c,
		all:          c.Projection("all", byName, nil),
		pleaseSelect: c.Projection("please-select", byName, nil, PleaseSelect),
	}
}

// All returns the views ordered by name.
func (v *InputViews) All() []*InputView { return v.all.Items() }

// PleaseSelect returns PleaseSelect followed by the views ordered by name.
func (v *InputViews) PleaseSelect() []*InputView { return v.pleaseSelect.Items() }
