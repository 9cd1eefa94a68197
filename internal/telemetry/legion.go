package telemetry

import (
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/vivekchamoli/legion2go/internal/configuration"
	"github.com/vivekchamoli/legion2go/internal/ui"
	"github.com/vivekchamoli/legion2go/internal/util"
)

const attributePerformanceMode = "performance_mode"

// ChipLocator resolves the sysfs path of a hwmon chip by its name
type ChipLocator func(chipName string) (string, bool)

// LegionSource reads telemetry from the legion_laptop hwmon chip,
// the platform driver attributes, /proc/stat and the power supply class
type LegionSource struct {
	cpuTemp *HwmonSensor
	gpuTemp *HwmonSensor
	vrmTemp *HwmonSensor
	fan     *HwmonSensor

	platformPath    string
	powerSupplyPath string

	cpuUtil UtilizationReader
	// nil if no discrete gpu driver is available
	gpuUtil UtilizationReader
}

func NewLegionSource(
	config configuration.TelemetryConfig,
	platformPath string,
	cpuUtil UtilizationReader,
	gpuUtil UtilizationReader,
	fallback ChipLocator,
) (*LegionSource, error) {
	devicePath, found := util.FindHwmonDevicePath(config.HwmonPath, config.HwmonChip)
	if !found && fallback != nil {
		devicePath, found = fallback(config.HwmonChip)
	}
	if !found {
		return nil, fmt.Errorf("hwmon chip '%s' not found, is the kernel module loaded?", config.HwmonChip)
	}
	ui.Debug("Using hwmon chip '%s' at %s", config.HwmonChip, devicePath)

	return &LegionSource{
		cpuTemp:         newHwmonTempSensor(devicePath, "cpu", inputCpuTemp),
		gpuTemp:         newHwmonTempSensor(devicePath, "gpu", inputGpuTemp),
		vrmTemp:         newHwmonTempSensor(devicePath, "vrm", inputVrmTemp),
		fan:             newHwmonFanSensor(devicePath, "fan1", inputCpuFan),
		platformPath:    platformPath,
		powerSupplyPath: config.PowerSupplyPath,
		cpuUtil:         cpuUtil,
		gpuUtil:         gpuUtil,
	}, nil
}

func (s *LegionSource) Read() (Sample, error) {
	cpuTemp, err := s.cpuTemp.GetValue()
	if err != nil {
		return Sample{}, err
	}

	sample := Sample{
		Timestamp: time.Now(),
		CpuTemp:   cpuTemp,
		GpuTemp:   s.readTemperature(s.gpuTemp),
		VrmTemp:   s.readTemperature(s.vrmTemp),
		OnBattery: IsOnBattery(s.powerSupplyPath),
		PowerMode: s.readPowerMode(),
	}
	sample.FanSpeedRpm = s.readOptional(s.fan)

	if s.cpuUtil != nil {
		if value, err := s.cpuUtil.Utilization(); err == nil {
			sample.CpuUtil = value
		} else {
			ui.Debug("Cannot read cpu utilization: %v", err)
		}
	}
	if s.gpuUtil != nil {
		if value, err := s.gpuUtil.Utilization(); err == nil {
			sample.GpuUtil = value
		}
	}

	return sample, nil
}

// readTemperature returns NaN for an unreadable sensor, the control agent
// rejects such a sample instead of treating the sensor as cold
func (s *LegionSource) readTemperature(sensor *HwmonSensor) float64 {
	value, err := sensor.GetValue()
	if err != nil {
		ui.Debug("Cannot read %s: %v", sensor.Name, err)
		return math.NaN()
	}
	return value
}

func (s *LegionSource) readOptional(sensor *HwmonSensor) float64 {
	value, err := sensor.GetValue()
	if err != nil {
		ui.Debug("%v", err)
		return 0
	}
	return value
}

func (s *LegionSource) readPowerMode() configuration.PowerMode {
	text, err := util.ReadStringFromFile(filepath.Join(s.platformPath, attributePerformanceMode))
	if err != nil {
		return configuration.PowerModeBalanced
	}
	mode, err := configuration.ParsePowerMode(text)
	if err != nil {
		return configuration.PowerModeBalanced
	}
	return mode
}
