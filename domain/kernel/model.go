package kernel

import (
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/codewandler/rigcore-go/core/set"
)

// Input is the argument template a kernel is started with.
type Input struct {
	ID                uuid.UUID `json:"id" yaml:"id"`
	Name              string    `json:"name" yaml:"name"`
	Args              string    `json:"args" yaml:"args"`
	IsSupportDualMine bool      `json:"isSupportDualMine" yaml:"isSupportDualMine"`
	DualCoinGroupID   uuid.UUID `json:"dualCoinGroupId" yaml:"dualCoinGroupId"`
	DualFullArgs      string    `json:"dualFullArgs" yaml:"dualFullArgs"`
	DualWeightMin     float64   `json:"dualWeightMin" yaml:"dualWeightMin"`
	DualWeightMax     float64   `json:"dualWeightMax" yaml:"dualWeightMax"`
}

func (i Input) Key() uuid.UUID { return i.ID }

// Kernel is a downloadable miner package bound to an input.
type Kernel struct {
	ID            uuid.UUID `json:"id" yaml:"id"`
	Code          string    `json:"code" yaml:"code"`
	Version       string    `json:"version" yaml:"version"`
	Package       string    `json:"package" yaml:"package"`
	KernelInputID uuid.UUID `json:"kernelInputId" yaml:"kernelInputId"`
}

func (k Kernel) Key() uuid.UUID { return k.ID }

// ProcessName is the package file name without its extension.
func (k Kernel) ProcessName() string {
	name := path.Base(strings.ReplaceAll(k.Package, `\`, "/"))
	if name == "." || name == "/" {
		return ""
	}
	return strings.TrimSuffix(name, path.Ext(name))
}

type (
	InputAdded      = set.Added[uuid.UUID, Input]
	InputUpdated    = set.Updated[uuid.UUID, Input]
	InputRemoved    = set.Removed[uuid.UUID, Input]
	InputsRefreshed = set.Refreshed[uuid.UUID, Input]

	KernelAdded   = set.Added[uuid.UUID, Kernel]
	KernelUpdated = set.Updated[uuid.UUID, Kernel]
	KernelRemoved = set.Removed[uuid.UUID, Kernel]
)

type (
	AddInput    struct{ Input Input }
	UpdateInput struct{ Input Input }
	RemoveInput struct{ ID uuid.UUID }

	AddKernel    struct{ Kernel Kernel }
	UpdateKernel struct{ Kernel Kernel }
	RemoveKernel struct{ ID uuid.UUID }

	// SelectKernelInput makes an input the one whose arguments are assembled.
	SelectKernelInput struct {
		KernelInputID uuid.UUID
		DualMine      bool
	}
	// RefreshArgsAssembly asks for a rebuild after an input's arguments changed.
	RefreshArgsAssembly struct{ KernelInputID uuid.UUID }
)

// InputDualMineChanged is published when an input's dual mining support flips.
type InputDualMineChanged struct {
	KernelInputID     uuid.UUID
	IsSupportDualMine bool
}

// ArgsAssembled is published whenever the assembled arguments were rebuilt.
type ArgsAssembled struct {
	KernelInputID uuid.UUID
	Args          string
}
