package configuration

import (
	"time"

	"github.com/spf13/viper"
)

type ThermalConfig struct {
	// interval of the control cycle
	TickRate time.Duration `json:"tickRate"`
	// number of snapshots kept for gain adaptation,
	// the covered time window is HistorySize * TickRate
	HistorySize int `json:"historySize"`
	// gains are adapted every n-th control cycle
	AdaptationInterval int `json:"adaptationInterval"`
	// minimum number of history snapshots before gains are adapted
	MinAdaptationSamples int `json:"minAdaptationSamples"`

	// utilization (in %) above which the workload is considered heavy
	HeavyCpuUtil float64 `json:"heavyCpuUtil"`
	HeavyGpuUtil float64 `json:"heavyGpuUtil"`

	TargetHysteresis HysteresisConfig `json:"targetHysteresis"`

	Cpu AxisConfig `json:"cpu"`
	Gpu AxisConfig `json:"gpu"`

	Targets  TargetsConfig  `json:"targets"`
	Critical CriticalConfig `json:"critical"`
}

type HysteresisConfig struct {
	Policy HysteresisPolicy `json:"policy"`
	// utilization (in %) the load has to drop below the heavy threshold
	// before leaving the heavy workload classification
	Deadband float64 `json:"deadband"`
}

type GainsConfig struct {
	Kp float64 `json:"kp"`
	Ki float64 `json:"ki"`
	Kd float64 `json:"kd"`
}

type RangeConfig struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type AxisConfig struct {
	Gains   GainsConfig `json:"gains"`
	KpRange RangeConfig `json:"kpRange"`
	KiRange RangeConfig `json:"kiRange"`
	KdRange RangeConfig `json:"kdRange"`

	// temperature variance above which the controller is damped
	VarianceHigh float64 `json:"varianceHigh"`
	// temperature variance below which the controller is sharpened
	VarianceLow float64 `json:"varianceLow"`
}

type TargetPair struct {
	Cpu float64 `json:"cpu"`
	Gpu float64 `json:"gpu"`
}

type TargetsConfig struct {
	Balanced TargetPair `json:"balanced"`
	Heavy    TargetPair `json:"heavy"`
	Battery  TargetPair `json:"battery"`
}

type CriticalConfig struct {
	Cpu float64 `json:"cpu"`
	Gpu float64 `json:"gpu"`
	Vrm float64 `json:"vrm"`
}

func DefaultCpuAxisConfig() AxisConfig {
	return AxisConfig{
		Gains:        GainsConfig{Kp: 1.5, Ki: 0.1, Kd: 0.5},
		KpRange:      RangeConfig{Min: 0.5, Max: 3.0},
		KiRange:      RangeConfig{Min: 0.01, Max: 0.5},
		KdRange:      RangeConfig{Min: 0.1, Max: 1.5},
		VarianceHigh: 25,
		VarianceLow:  4,
	}
}

func DefaultGpuAxisConfig() AxisConfig {
	return AxisConfig{
		Gains:        GainsConfig{Kp: 1.2, Ki: 0.08, Kd: 0.4},
		KpRange:      RangeConfig{Min: 0.5, Max: 2.5},
		KiRange:      RangeConfig{Min: 0.01, Max: 0.4},
		KdRange:      RangeConfig{Min: 0.1, Max: 1.2},
		VarianceHigh: 16,
		VarianceLow:  2.25,
	}
}

func DefaultTargetsConfig() TargetsConfig {
	return TargetsConfig{
		Balanced: TargetPair{Cpu: 75, Gpu: 70},
		Heavy:    TargetPair{Cpu: 70, Gpu: 65},
		Battery:  TargetPair{Cpu: 80, Gpu: 75},
	}
}

func DefaultCriticalConfig() CriticalConfig {
	return CriticalConfig{
		Cpu: 90,
		Gpu: 87,
		Vrm: 100,
	}
}

// DefaultThermalConfig returns the thermal configuration used when no config file overrides it
func DefaultThermalConfig() ThermalConfig {
	return ThermalConfig{
		TickRate:             100 * time.Millisecond,
		HistorySize:          300,
		AdaptationInterval:   50,
		MinAdaptationSamples: 100,
		HeavyCpuUtil:         70,
		HeavyGpuUtil:         50,
		TargetHysteresis: HysteresisConfig{
			Policy:   HysteresisPolicyNone,
			Deadband: 10,
		},
		Cpu:      DefaultCpuAxisConfig(),
		Gpu:      DefaultGpuAxisConfig(),
		Targets:  DefaultTargetsConfig(),
		Critical: DefaultCriticalConfig(),
	}
}

func setThermalDefaults() {
	d := DefaultThermalConfig()
	viper.SetDefault("thermal.tickRate", d.TickRate)
	viper.SetDefault("thermal.historySize", d.HistorySize)
	viper.SetDefault("thermal.adaptationInterval", d.AdaptationInterval)
	viper.SetDefault("thermal.minAdaptationSamples", d.MinAdaptationSamples)
	viper.SetDefault("thermal.heavyCpuUtil", d.HeavyCpuUtil)
	viper.SetDefault("thermal.heavyGpuUtil", d.HeavyGpuUtil)
	viper.SetDefault("thermal.targetHysteresis.policy", string(d.TargetHysteresis.Policy))
	viper.SetDefault("thermal.targetHysteresis.deadband", d.TargetHysteresis.Deadband)

	setAxisDefaults("thermal.cpu", d.Cpu)
	setAxisDefaults("thermal.gpu", d.Gpu)

	setTargetDefaults("thermal.targets.balanced", d.Targets.Balanced)
	setTargetDefaults("thermal.targets.heavy", d.Targets.Heavy)
	setTargetDefaults("thermal.targets.battery", d.Targets.Battery)

	viper.SetDefault("thermal.critical.cpu", d.Critical.Cpu)
	viper.SetDefault("thermal.critical.gpu", d.Critical.Gpu)
	viper.SetDefault("thermal.critical.vrm", d.Critical.Vrm)
}

func setAxisDefaults(prefix string, axis AxisConfig) {
	viper.SetDefault(prefix+".gains.kp", axis.Gains.Kp)
	viper.SetDefault(prefix+".gains.ki", axis.Gains.Ki)
	viper.SetDefault(prefix+".gains.kd", axis.Gains.Kd)
	viper.SetDefault(prefix+".kpRange.min", axis.KpRange.Min)
	viper.SetDefault(prefix+".kpRange.max", axis.KpRange.Max)
	viper.SetDefault(prefix+".kiRange.min", axis.KiRange.Min)
	viper.SetDefault(prefix+".kiRange.max", axis.KiRange.Max)
	viper.SetDefault(prefix+".kdRange.min", axis.KdRange.Min)
	viper.SetDefault(prefix+".kdRange.max", axis.KdRange.Max)
	viper.SetDefault(prefix+".varianceHigh", axis.VarianceHigh)
	viper.SetDefault(prefix+".varianceLow", axis.VarianceLow)
}

func setTargetDefaults(prefix string, pair TargetPair) {
	viper.SetDefault(prefix+".cpu", pair.Cpu)
	viper.SetDefault(prefix+".gpu", pair.Gpu)
}
