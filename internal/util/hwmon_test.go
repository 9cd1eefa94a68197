package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func createHwmonDevice(t *testing.T, base string, dir string, name string) string {
	devicePath := filepath.Join(base, dir)
	assert.NoError(t, os.MkdirAll(devicePath, 0755))
	assert.NoError(t, os.WriteFile(filepath.Join(devicePath, "name"), []byte(name+"\n"), 0644))
	return devicePath
}

func TestFindHwmonDevicePath(t *testing.T) {
	// GIVEN
	base := t.TempDir()
	createHwmonDevice(t, base, "hwmon0", "acpitz")
	expected := createHwmonDevice(t, base, "hwmon3", "legion_laptop")

	// WHEN
	path, found := FindHwmonDevicePath(base, "legion_laptop")

	// THEN
	assert.True(t, found)
	assert.Equal(t, expected, path)
}

func TestFindHwmonDevicePath_Missing(t *testing.T) {
	// GIVEN
	base := t.TempDir()
	createHwmonDevice(t, base, "hwmon0", "acpitz")

	// WHEN
	_, found := FindHwmonDevicePath(base, "legion_laptop")

	// THEN
	assert.False(t, found)
}

func TestGetLabel(t *testing.T) {
	// GIVEN
	base := t.TempDir()
	devicePath := createHwmonDevice(t, base, "hwmon1", "legion_laptop")
	_ = os.WriteFile(filepath.Join(devicePath, "temp1_label"), []byte("CPU Temperature\n"), 0644)

	// WHEN
	label := GetLabel(devicePath, "temp1_input")

	// THEN
	assert.Equal(t, "CPU Temperature", label)
}
