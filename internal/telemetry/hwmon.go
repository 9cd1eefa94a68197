package telemetry

import (
	"fmt"
	"path/filepath"

	"github.com/vivekchamoli/legion2go/internal/util"
)

// hwmon attribute layout of the legion_laptop EC driver
const (
	inputCpuTemp = "temp1_input"
	inputGpuTemp = "temp2_input"
	inputVrmTemp = "temp4_input"
	inputCpuFan  = "fan1_input"
)

type HwmonSensor struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Input string `json:"input"`
	// divisor applied to the raw value
	Scale float64 `json:"scale"`
}

func newHwmonTempSensor(devicePath string, name string, input string) *HwmonSensor {
	return &HwmonSensor{
		Name:  name,
		Label: util.GetLabel(devicePath, input),
		Input: filepath.Join(devicePath, input),
		Scale: 1000,
	}
}

func newHwmonFanSensor(devicePath string, name string, input string) *HwmonSensor {
	return &HwmonSensor{
		Name:  name,
		Label: util.GetLabel(devicePath, input),
		Input: filepath.Join(devicePath, input),
		Scale: 1,
	}
}

func (sensor HwmonSensor) GetValue() (float64, error) {
	integer, err := util.ReadIntFromFile(sensor.Input)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", sensor.Name, err)
	}
	return float64(integer) / sensor.Scale, nil
}
