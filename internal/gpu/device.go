package gpu

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/vivekchamoli/legion2go/internal/ui"
	"github.com/vivekchamoli/legion2go/internal/util"
)

// time the kernel gets to tear down the device before the bus is rescanned
const rescanDelay = 1 * time.Second

// SysfsDeviceManager restarts the dGPU by removing it from the PCI bus and rescanning
type SysfsDeviceManager struct {
	devicesPath string
	rescanDelay time.Duration
	signal      func(pid int, signal syscall.Signal) error
}

func NewSysfsDeviceManager(devicesPath string) *SysfsDeviceManager {
	if devicesPath == "" {
		devicesPath = PciDevicesPath
	}
	return &SysfsDeviceManager{
		devicesPath: devicesPath,
		rescanDelay: rescanDelay,
		signal:      signalProcess,
	}
}

func signalProcess(pid int, signal syscall.Signal) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return process.Signal(signal)
}

func (m *SysfsDeviceManager) Restart(ctx context.Context, instanceId string) error {
	removePath := filepath.Join(m.devicesPath, instanceId, "remove")
	if !util.FileExists(removePath) {
		return fmt.Errorf("pci device %s not found", instanceId)
	}

	ui.Info("Removing GPU %s from the PCI bus", instanceId)
	if err := util.WriteIntToFile(1, removePath); err != nil {
		return fmt.Errorf("remove pci device %s: %w", instanceId, err)
	}

	timer := time.NewTimer(m.rescanDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		// the device is gone at this point, rescan anyway
		ui.Warning("GPU restart interrupted, rescanning PCI bus immediately")
	case <-timer.C:
	}

	rescanPath := filepath.Join(filepath.Dir(m.devicesPath), "rescan")
	if err := util.WriteIntToFile(1, rescanPath); err != nil {
		return fmt.Errorf("rescan pci bus: %w", err)
	}
	ui.Info("PCI bus rescanned")
	return nil
}

func (m *SysfsDeviceManager) Kill(ctx context.Context, process Process) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ui.Debug("Killing GPU process %d (%s)", process.Pid, process.Name)
	if err := m.signal(int(process.Pid), syscall.SIGKILL); err != nil {
		return fmt.Errorf("kill process %d (%s): %w", process.Pid, process.Name, err)
	}
	return nil
}
