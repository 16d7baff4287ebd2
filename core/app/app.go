package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/codewandler/rigcore-go/core/bus"
	"github.com/codewandler/rigcore-go/core/set"
	"github.com/codewandler/rigcore-go/domain/gpu"
	"github.com/codewandler/rigcore-go/domain/gpuname"
	"github.com/codewandler/rigcore-go/domain/kernel"
	"github.com/codewandler/rigcore-go/domain/user"
)

// Persisters selects the storage of every collection. Nil entries keep the
// collection in memory.
type Persisters struct {
	KernelInputs   set.Persister[uuid.UUID, kernel.Input]
	Kernels        set.Persister[uuid.UUID, kernel.Kernel]
	Profiles       set.Persister[gpu.ProfileKey, gpu.Profile]
	CoinOverClocks set.Persister[uuid.UUID, gpu.CoinOverClock]
	Users          set.Persister[string, user.User]
	GpuNames       set.Persister[gpuname.Name, gpuname.Name]
}

type Config struct {
	ID         string
	Context    context.Context
	Log        *slog.Logger
	BusMetrics bus.Metrics
	SetMetrics set.Metrics
	Persisters Persisters
	Driver     gpu.Driver
}

// Root owns the bus and every collection of one process.
type Root struct {
	id        string
	ctx       context.Context
	cancelCtx context.CancelFunc
	log       *slog.Logger

	bus        *bus.Bus
	kernel     *kernel.Module
	gpu        *gpu.Module
	users      *user.Users
	gpuNames   *gpuname.Names
	inputViews *kernel.InputViews
	args       *kernel.ArgsAssembler
}

func New(config Config) (root *Root, err error) {
	root = &Root{}

	// === id ===
	root.id = config.ID
	if root.id == "" {
		root.id = fmt.Sprintf("rig-%s", gonanoid.Must(6))
	}

	// === logger ===
	if config.Log == nil {
		config.Log = slog.Default()
	}
	root.log = config.Log.With(slog.String("rig", root.id))

	// === context ===
	if config.Context == nil {
		config.Context = context.Background()
	}
	root.ctx, root.cancelCtx = context.WithCancel(config.Context)

	// === driver ===
	if config.Driver == nil {
		config.Driver = gpu.LogDriver{Log: root.log}
	}

	root.log.Debug("creating root")

	root.bus = bus.New(bus.Options{Log: root.log, Metrics: config.BusMetrics})

	// === collections ===
	p := config.Persisters

	root.kernel, err = kernel.New(kernel.Options{
		Bus:     root.bus,
		Inputs:  p.KernelInputs,
		Kernels: p.Kernels,
		Log:     root.log,
		Metrics: config.SetMetrics,
	})
	if err != nil {
		return nil, fmt.Errorf("kernel: %w", err)
	}

	root.gpu, err = gpu.New(gpu.Options{
		Bus:            root.bus,
		Driver:         config.Driver,
		Profiles:       p.Profiles,
		CoinOverClocks: p.CoinOverClocks,
		Log:            root.log,
		Metrics:        config.SetMetrics,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: %w", err)
	}

	root.users, err = user.NewUsers(user.Options{
		Bus:       root.bus,
		Persister: p.Users,
		Log:       root.log,
		Metrics:   config.SetMetrics,
	})
	if err != nil {
		return nil, fmt.Errorf("user: %w", err)
	}

	root.gpuNames = gpuname.New(gpuname.Options{
		Persister: p.GpuNames,
		Publisher: root.bus,
		Log:       root.log,
		Metrics:   config.SetMetrics,
	})

	// === views ===
	root.args, err = kernel.NewArgsAssembler(root.bus, root.kernel.Inputs, root.log)
	if err != nil {
		return nil, fmt.Errorf("args assembler: %w", err)
	}
	root.inputViews = kernel.NewInputViews(root.ctx, root.bus, root.kernel.Inputs, root.log)

	return root, nil
}

func (r *Root) ID() string { return r.id }
func (r *Root) Context() context.Context { return r.ctx }
func (r *Root) Bus() *bus.Bus { return r.bus }
func (r *Root) Kernel() *kernel.Module { return r.kernel }
func (r *Root) Gpu() *gpu.Module { return r.gpu }
func (r *Root) Users() *user.Users { return r.users }
func (r *Root) GpuNames() *gpuname.Names { return r.gpuNames }
func (r *Root) InputViews() *kernel.InputViews { return r.inputViews }
func (r *Root) ArgsAssembler() *kernel.ArgsAssembler { return r.args }

// Execute executes cmd on the root bus.
func (r *Root) Execute(ctx context.Context, cmd any) error {
	return r.bus.Execute(ctx, cmd)
}

// refreshOrder is the order in which Refresh reloads the collections.
var refreshOrder = []string{
	kernel.InputSetName,
	kernel.KernelSetName,
	gpu.ProfileSetName,
	gpu.CoinOverClockSetName,
	user.SetName,
	gpuname.SetName,
}

// Refreshers returns the reload function of every collection keyed by its
// set name.
func (r *Root) Refreshers() map[string]func(context.Context) error {
	return map[string]func(context.Context) error{
		kernel.InputSetName:      r.kernel.Inputs.Refresh,
		kernel.KernelSetName:     r.kernel.Kernels.Refresh,
		gpu.ProfileSetName:       r.gpu.Profiles.Refresh,
		gpu.CoinOverClockSetName: r.gpu.CoinOverClocks.Refresh,
		user.SetName:             r.users.Refresh,
		gpuname.SetName:          r.gpuNames.Refresh,
	}
}

// Init loads every collection concurrently. Load failures leave the affected
// collection empty; the first one is returned.
func (r *Root) Init(ctx context.Context) error {
	var g errgroup.Group
	for _, load := range []func(context.Context) error{
		r.kernel.Inputs.Init,
		r.kernel.Kernels.Init,
		r.gpu.Profiles.Init,
		r.gpu.CoinOverClocks.Init,
		r.users.Init,
		r.gpuNames.Init,
	} {
		g.Go(func() error { return load(ctx) })
	}
	if err := g.Wait(); err != nil {
		return err
	}
	r.log.Info("root initialized")
	return nil
}

// Refresh reloads every collection from its store, one after another in a
// fixed order, and joins the failures.
func (r *Root) Refresh(ctx context.Context) error {
	refreshers := r.Refreshers()
	var errs []error
	for _, name := range refreshOrder {
		if err := refreshers[name](ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Close stops the views and cancels the root context.
func (r *Root) Close() {
	r.inputViews.Close()
	r.cancelCtx()
}
