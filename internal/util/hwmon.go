package util

import (
	"os"
	"path/filepath"
	"strings"
)

const HwmonClassPath = "/sys/class/hwmon"

// GetDeviceName read the name of a device
func GetDeviceName(devicePath string) string {
	content, _ := os.ReadFile(filepath.Join(devicePath, "name"))
	return strings.TrimSpace(string(content))
}

// GetLabel read the label of a in/output of a device
func GetLabel(devicePath string, input string) string {
	labelPath := strings.TrimSuffix(filepath.Join(devicePath, input), "input") + "label"

	content, _ := os.ReadFile(labelPath)
	label := string(content)
	if len(label) <= 0 {
		_, label = filepath.Split(devicePath)
	}
	return strings.TrimSpace(label)
}

// GetDeviceModalias read the modalias of a device
func GetDeviceModalias(devicePath string) string {
	content, _ := os.ReadFile(filepath.Join(devicePath, "device", "modalias"))
	return strings.TrimSpace(string(content))
}

// FindHwmonDevicePath returns the path of the first hwmon device below basePath
// whose "name" file equals the given chip name
func FindHwmonDevicePath(basePath string, chipName string) (string, bool) {
	entries, err := os.ReadDir(basePath)
	if err != nil {
		return "", false
	}
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), "hwmon") {
			continue
		}
		devicePath := filepath.Join(basePath, entry.Name())
		if GetDeviceName(devicePath) == chipName {
			return devicePath, true
		}
	}
	return "", false
}
