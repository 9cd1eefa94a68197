package gpu

import (
	"context"
	"errors"
)

var (
	// ErrNotPowered is returned by a Driver when the device is present but powered down
	ErrNotPowered   = errors.New("nvidia gpu is not powered")
	ErrNoInstance   = errors.New("gpu instance id is unknown")
	ErrInvalidState = errors.New("operation is not allowed in the current gpu state")
)

// Driver is a session with the GPU driver, every Initialize is paired with a Shutdown
type Driver interface {
	Initialize() error
	Shutdown() error
	Device(index int) (Device, error)
}

type Device interface {
	Name() (string, error)
	PerformanceState() (string, error)
	IsDisplayConnected() (bool, error)
	BoundProcesses() ([]Process, error)
	Utilization() (float64, error)
	// PlatformId returns the PCI address of the device, e.g. 0000:01:00.0
	PlatformId() (string, error)
}

// CapabilityProbe checks whether the machine has a discrete GPU at all,
// independent of the state of its driver
type CapabilityProbe interface {
	Probe() (bool, error)
}

type DeviceManager interface {
	Restart(ctx context.Context, instanceId string) error
	Kill(ctx context.Context, process Process) error
}
