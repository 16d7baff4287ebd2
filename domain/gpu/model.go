package gpu

import (
	"context"

	"github.com/google/uuid"

	"github.com/codewandler/rigcore-go/core/set"
)

// Slot addresses either every GPU or one GPU by index.
type Slot = set.Target[int]

// AllGpus addresses every GPU of the rig.
func AllGpus() Slot { return set.All[int]() }

// Gpu addresses the GPU at index i.
func Gpu(i int) Slot { return set.Specific(i) }

// ProfileKey identifies a profile.
type ProfileKey struct {
	CoinID uuid.UUID
	Slot   Slot
}

// Values are the tunables of a profile.
type Values struct {
	CoreClockDelta   int `json:"coreClockDelta" yaml:"coreClockDelta"`
	MemoryClockDelta int `json:"memoryClockDelta" yaml:"memoryClockDelta"`
	PowerCapacity    int `json:"powerCapacity" yaml:"powerCapacity"`
	TempLimit        int `json:"tempLimit" yaml:"tempLimit"`
	Cool             int `json:"cool" yaml:"cool"`
}

// Profile is the overclock setting of one slot for one coin.
type Profile struct {
	CoinID uuid.UUID `json:"coinId" yaml:"coinId"`
	Slot   Slot      `json:"slot" yaml:"slot"`
	Values `yaml:",inline"`
}

func (p Profile) Key() ProfileKey { return ProfileKey{CoinID: p.CoinID, Slot: p.Slot} }

// DefaultProfile is returned for slots that were never configured.
func DefaultProfile(coinID uuid.UUID, slot Slot) Profile {
	return Profile{CoinID: coinID, Slot: slot}
}

// CoinOverClock holds the overclock switches of a coin.
type CoinOverClock struct {
	CoinID             uuid.UUID `json:"coinId" yaml:"coinId"`
	IsOverClockEnabled bool      `json:"isOverClockEnabled" yaml:"isOverClockEnabled"`
	IsOverClockGpuAll  bool      `json:"isOverClockGpuAll" yaml:"isOverClockGpuAll"`
}

func (c CoinOverClock) Key() uuid.UUID { return c.CoinID }

// DefaultCoinOverClock is the setting of a coin that was never configured:
// disabled, in gpu-all mode.
func DefaultCoinOverClock(coinID uuid.UUID) CoinOverClock {
	return CoinOverClock{CoinID: coinID, IsOverClockGpuAll: true}
}

// Driver applies a profile to the hardware.
type Driver interface {
	OverClock(ctx context.Context, p Profile) error
}

type (
	ProfileAdded   = set.Added[ProfileKey, Profile]
	ProfileUpdated = set.Updated[ProfileKey, Profile]

	CoinOverClockAdded   = set.Added[uuid.UUID, CoinOverClock]
	CoinOverClockUpdated = set.Updated[uuid.UUID, CoinOverClock]
)

type (
	AddOrUpdateProfile struct{ Profile Profile }

	// BroadcastProfile writes Values to every per-GPU profile of a coin.
	BroadcastProfile struct {
		CoinID uuid.UUID
		Values Values
	}

	// OverClock applies one profile through the Driver.
	OverClock struct{ Profile Profile }

	// ApplyCoinOverClock applies the profiles of a coin: the AllGpus profile
	// in gpu-all mode, every per-GPU profile otherwise.
	ApplyCoinOverClock struct{ CoinID uuid.UUID }

	SetOverClockEnabled struct {
		CoinID  uuid.UUID
		Enabled bool
	}

	SetOverClockGpuAll struct {
		CoinID uuid.UUID
		GpuAll bool
	}
)
