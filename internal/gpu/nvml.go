package gpu

import (
	"fmt"

	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

type nvmlError struct {
	ret nvml.Return
}

func (e nvmlError) Error() string {
	return nvml.ErrorString(e.ret)
}

func newNvmlError(ret nvml.Return) error {
	if ret == nvml.SUCCESS {
		return nil
	}
	if ret == nvml.ERROR_GPU_IS_LOST {
		return fmt.Errorf("%w: %s", ErrNotPowered, nvml.ErrorString(ret))
	}
	return nvmlError{ret: ret}
}

// NvmlDriver talks to the NVIDIA driver through libnvidia-ml
type NvmlDriver struct{}

func NewNvmlDriver() *NvmlDriver {
	return &NvmlDriver{}
}

func (d *NvmlDriver) Initialize() error {
	return newNvmlError(nvml.Init())
}

func (d *NvmlDriver) Shutdown() error {
	return newNvmlError(nvml.Shutdown())
}

func (d *NvmlDriver) Device(index int) (Device, error) {
	device, ret := nvml.DeviceGetHandleByIndex(index)
	if err := newNvmlError(ret); err != nil {
		return nil, err
	}
	return &nvmlDevice{device: device}, nil
}

type nvmlDevice struct {
	device nvml.Device
}

func (d *nvmlDevice) Name() (string, error) {
	name, ret := d.device.GetName()
	return name, newNvmlError(ret)
}

func (d *nvmlDevice) PerformanceState() (string, error) {
	state, ret := d.device.GetPerformanceState()
	if err := newNvmlError(ret); err != nil {
		return "", err
	}
	if state == nvml.PSTATE_UNKNOWN {
		return "Unknown", nil
	}
	return fmt.Sprintf("P%d", int(state)), nil
}

func (d *nvmlDevice) IsDisplayConnected() (bool, error) {
	active, ret := d.device.GetDisplayActive()
	if err := newNvmlError(ret); err != nil {
		return false, err
	}
	return active == nvml.FEATURE_ENABLED, nil
}

// BoundProcesses returns compute and graphics processes, each pid once
func (d *nvmlDevice) BoundProcesses() ([]Process, error) {
	compute, ret := d.device.GetComputeRunningProcesses()
	if err := newNvmlError(ret); err != nil {
		return nil, err
	}
	graphics, ret := d.device.GetGraphicsRunningProcesses()
	if err := newNvmlError(ret); err != nil {
		return nil, err
	}

	seen := map[uint32]bool{}
	var result []Process
	for _, info := range append(compute, graphics...) {
		if seen[info.Pid] {
			continue
		}
		seen[info.Pid] = true

		name, ret := nvml.SystemGetProcessName(int(info.Pid))
		if ret != nvml.SUCCESS {
			name = ""
		}
		result = append(result, Process{Pid: info.Pid, Name: name})
	}
	return result, nil
}

func (d *nvmlDevice) Utilization() (float64, error) {
	rates, ret := d.device.GetUtilizationRates()
	if err := newNvmlError(ret); err != nil {
		return 0, err
	}
	return float64(rates.Gpu), nil
}

func (d *nvmlDevice) PlatformId() (string, error) {
	info, ret := d.device.GetPciInfo()
	if err := newNvmlError(ret); err != nil {
		return "", err
	}
	return formatPciAddress(info.Domain, info.Bus, info.Device), nil
}

func formatPciAddress(domain uint32, bus uint32, device uint32) string {
	return fmt.Sprintf("%04x:%02x:%02x.0", domain, bus, device)
}
