package gpu

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createBus(t *testing.T) (devicesPath string) {
	bus := t.TempDir()
	devicesPath = filepath.Join(bus, "devices")
	require.NoError(t, os.MkdirAll(filepath.Join(devicesPath, "0000:01:00.0"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(devicesPath, "0000:01:00.0", "remove"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(bus, "rescan"), nil, 0644))
	return devicesPath
}

func TestSysfsDeviceManager_Restart(t *testing.T) {
	// GIVEN
	devicesPath := createBus(t)
	manager := NewSysfsDeviceManager(devicesPath)
	manager.rescanDelay = 0

	// WHEN
	err := manager.Restart(context.Background(), "0000:01:00.0")

	// THEN
	assert.NoError(t, err)
	remove, _ := os.ReadFile(filepath.Join(devicesPath, "0000:01:00.0", "remove"))
	rescan, _ := os.ReadFile(filepath.Join(filepath.Dir(devicesPath), "rescan"))
	assert.Equal(t, "1", string(remove))
	assert.Equal(t, "1", string(rescan))
}

func TestSysfsDeviceManager_RestartUnknownDevice(t *testing.T) {
	// GIVEN
	manager := NewSysfsDeviceManager(createBus(t))

	// WHEN
	err := manager.Restart(context.Background(), "0000:02:00.0")

	// THEN
	assert.EqualError(t, err, "pci device 0000:02:00.0 not found")
}

func TestSysfsDeviceManager_Kill(t *testing.T) {
	// GIVEN
	manager := NewSysfsDeviceManager(createBus(t))
	var signaled []int
	manager.signal = func(pid int, signal syscall.Signal) error {
		if pid == 2 {
			return errors.New("operation not permitted")
		}
		signaled = append(signaled, pid)
		return nil
	}

	// WHEN
	first := manager.Kill(context.Background(), Process{Pid: 1, Name: "a"})
	second := manager.Kill(context.Background(), Process{Pid: 2, Name: "b"})

	// THEN
	assert.NoError(t, first)
	assert.EqualError(t, second, "kill process 2 (b): operation not permitted")
	assert.Equal(t, []int{1}, signaled)
}
