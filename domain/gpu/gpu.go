package gpu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/codewandler/rigcore-go/core/bus"
	"github.com/codewandler/rigcore-go/core/perkey"
	"github.com/codewandler/rigcore-go/core/set"
)

const (
	ProfileSetName       = "gpu-profiles"
	CoinOverClockSetName = "coin-overclocks"
)

var ErrNoDriver = errors.New("no overclock driver")

type Options struct {
	Bus    *bus.Bus
	Driver Driver
	// Profiles and CoinOverClocks default to memory persisters.
	Profiles       set.Persister[ProfileKey, Profile]
	CoinOverClocks set.Persister[uuid.UUID, CoinOverClock]
	Log            *slog.Logger
	Metrics        set.Metrics
}

// Module owns the profile and coin overclock sets and their command handlers.
type Module struct {
	Profiles       *set.Set[ProfileKey, Profile]
	CoinOverClocks *set.Set[uuid.UUID, CoinOverClock]

	bus    *bus.Bus
	driver Driver
	slots  *perkey.Locker[Slot]
	log    *slog.Logger
}

// New creates the sets and registers the gpu commands on opts.Bus.
func New(opts Options) (*Module, error) {
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	if opts.Bus == nil {
		opts.Bus = bus.New(bus.Options{Log: opts.Log})
	}
	log := opts.Log.With(slog.String("module", "gpu"))

	m := &Module{
		Profiles: set.New(set.Options[ProfileKey, Profile]{
			Name:      ProfileSetName,
			KeyOf:     Profile.Key,
			Persister: opts.Profiles,
			Publisher: opts.Bus,
			Log:       log,
			Metrics:   opts.Metrics,
		}),
		CoinOverClocks: set.New(set.Options[uuid.UUID, CoinOverClock]{
			Name:      CoinOverClockSetName,
			KeyOf:     CoinOverClock.Key,
			Persister: opts.CoinOverClocks,
			Publisher: opts.Bus,
			Log:       log,
			Metrics:   opts.Metrics,
		}),
		bus:    opts.Bus,
		driver: opts.Driver,
		slots:  perkey.New[Slot](),
		log:    log,
	}

	if err := m.register(opts.Bus); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Module) register(b *bus.Bus) error {
	return errors.Join(
		bus.Accept(b, "add or update gpu profile", slog.LevelInfo, m.onAddOrUpdateProfile),
		bus.Accept(b, "broadcast gpu profile", slog.LevelInfo, m.onBroadcastProfile),
		bus.Accept(b, "overclock", slog.LevelInfo, m.onOverClock),
		bus.Accept(b, "coin overclock", slog.LevelInfo, m.onApplyCoinOverClock),
		bus.Accept(b, "set overclock enabled", slog.LevelInfo, m.onSetOverClockEnabled),
		bus.Accept(b, "set overclock gpu all", slog.LevelInfo, m.onSetOverClockGpuAll),
	)
}

func (m *Module) onAddOrUpdateProfile(ctx context.Context, cmd AddOrUpdateProfile) error {
	_, err := m.Profiles.AddOrUpdate(ctx, cmd.Profile)
	return err
}

// onBroadcastProfile runs one AddOrUpdateProfile per GPU profile of the coin.
// A failing GPU does not stop the others; the returned error is a
// *set.FanOutError[ProfileKey] naming exactly the failed ones.
func (m *Module) onBroadcastProfile(ctx context.Context, cmd BroadcastProfile) error {
	keys := m.gpuKeys(ctx, cmd.CoinID)
	res := set.FanOut(ctx, keys, func(ctx context.Context, k ProfileKey) error {
		p := m.Profile(ctx, k.CoinID, k.Slot)
		p.Values = cmd.Values
		return m.bus.Execute(ctx, AddOrUpdateProfile{Profile: p})
	})
	m.log.Debug("broadcast profile",
		slog.String("coin", cmd.CoinID.String()),
		slog.Int("succeeded", len(res.Succeeded)),
		slog.Int("failed", len(res.Failed)),
	)
	return res.Err()
}

func (m *Module) onOverClock(ctx context.Context, cmd OverClock) error {
	if m.driver == nil {
		return ErrNoDriver
	}
	p := cmd.Profile
	err := m.slots.Do(ctx, p.Slot, func() error { return m.driver.OverClock(ctx, p) })
	if err != nil {
		return fmt.Errorf("overclock %s slot %s: %w", cmd.Profile.CoinID, cmd.Profile.Slot, err)
	}
	return nil
}

func (m *Module) onApplyCoinOverClock(ctx context.Context, cmd ApplyCoinOverClock) error {
	if m.IsOverClockGpuAll(ctx, cmd.CoinID) {
		p, ok := m.Profiles.TryGet(ctx, ProfileKey{CoinID: cmd.CoinID, Slot: AllGpus()})
		if !ok {
			m.log.Debug("no gpu-all profile for coin", slog.String("coin", cmd.CoinID.String()))
			return nil
		}
		return m.bus.Execute(ctx, OverClock{Profile: p})
	}

	res := set.FanOut(ctx, m.gpuKeys(ctx, cmd.CoinID), func(ctx context.Context, k ProfileKey) error {
		p, ok := m.Profiles.TryGet(ctx, k)
		if !ok {
			return nil
		}
		return m.bus.Execute(ctx, OverClock{Profile: p})
	})
	return res.Err()
}

func (m *Module) onSetOverClockEnabled(ctx context.Context, cmd SetOverClockEnabled) error {
	c := m.coinOverClock(ctx, cmd.CoinID)
	c.IsOverClockEnabled = cmd.Enabled
	_, err := m.CoinOverClocks.AddOrUpdate(ctx, c)
	return err
}

func (m *Module) onSetOverClockGpuAll(ctx context.Context, cmd SetOverClockGpuAll) error {
	c := m.coinOverClock(ctx, cmd.CoinID)
	c.IsOverClockGpuAll = cmd.GpuAll
	_, err := m.CoinOverClocks.AddOrUpdate(ctx, c)
	return err
}

// gpuKeys returns the keys of the per-GPU profiles of coinID.
func (m *Module) gpuKeys(ctx context.Context, coinID uuid.UUID) []ProfileKey {
	var keys []ProfileKey
	for _, k := range m.Profiles.Keys(ctx) {
		if k.CoinID == coinID && !k.Slot.IsAll() {
			keys = append(keys, k)
		}
	}
	return keys
}

func (m *Module) coinOverClock(ctx context.Context, coinID uuid.UUID) CoinOverClock {
	if c, ok := m.CoinOverClocks.TryGet(ctx, coinID); ok {
		return c
	}
	return DefaultCoinOverClock(coinID)
}

// Profile returns the profile of slot for coinID, or DefaultProfile.
func (m *Module) Profile(ctx context.Context, coinID uuid.UUID, slot Slot) Profile {
	if p, ok := m.Profiles.TryGet(ctx, ProfileKey{CoinID: coinID, Slot: slot}); ok {
		return p
	}
	return DefaultProfile(coinID, slot)
}

// AllProfiles returns every stored profile.
func (m *Module) AllProfiles(ctx context.Context) []Profile {
	return m.Profiles.All(ctx)
}

// IsOverClockEnabled defaults to false for unknown coins.
func (m *Module) IsOverClockEnabled(ctx context.Context, coinID uuid.UUID) bool {
	return m.coinOverClock(ctx, coinID).IsOverClockEnabled
}

// IsOverClockGpuAll defaults to true for unknown coins.
func (m *Module) IsOverClockGpuAll(ctx context.Context, coinID uuid.UUID) bool {
	return m.coinOverClock(ctx, coinID).IsOverClockGpuAll
}

// Refresh reloads both sets.
func (m *Module) Refresh(ctx context.Context) error {
	return errors.Join(
		m.Profiles.Refresh(ctx),
		m.CoinOverClocks.Refresh(ctx),
	)
}
