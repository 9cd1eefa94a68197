package configuration

import (
	"fmt"
)

func Validate() error {
	return validateConfig(&CurrentConfig)
}

func validateConfig(config *Configuration) error {
	err := validateThermal(&config.Thermal)
	if err != nil {
		return err
	}
	err = validateLearning(&config.Learning)
	if err != nil {
		return err
	}
	err = validateGpu(&config.Gpu)
	if err != nil {
		return err
	}
	if config.Fans.MaxRpm <= 0 {
		return fmt.Errorf("fans: maxRpm must be > 0, was %d", config.Fans.MaxRpm)
	}
	err = validatePower(&config.Power)
	if err != nil {
		return err
	}
	if config.History.Enabled {
		if len(config.History.Path) <= 0 {
			return fmt.Errorf("history: path must not be empty")
		}
		if config.History.BatchSize <= 0 {
			return fmt.Errorf("history: batchSize must be > 0")
		}
	}
	if config.Api.Enabled {
		if config.Api.Port <= 0 || config.Api.Port >= 65535 {
			return fmt.Errorf("api: invalid port %d", config.Api.Port)
		}
	}
	return nil
}

func validateThermal(config *ThermalConfig) error {
	if config.TickRate <= 0 {
		return fmt.Errorf("thermal: tickRate must be > 0")
	}
	if config.HistorySize <= 0 {
		return fmt.Errorf("thermal: historySize must be > 0")
	}
	if config.AdaptationInterval <= 0 {
		return fmt.Errorf("thermal: adaptationInterval must be > 0")
	}
	if config.MinAdaptationSamples > config.HistorySize {
		return fmt.Errorf("thermal: minAdaptationSamples (%d) exceeds historySize (%d), gains would never be adapted",
			config.MinAdaptationSamples, config.HistorySize)
	}
	if config.TargetHysteresis.Deadband < 0 {
		return fmt.Errorf("thermal: targetHysteresis.deadband must be >= 0")
	}

	for name, axis := range map[string]AxisConfig{"cpu": config.Cpu, "gpu": config.Gpu} {
		if err := validateAxis(name, axis); err != nil {
			return err
		}
	}

	for name, pair := range map[string]TargetPair{
		"balanced": config.Targets.Balanced,
		"heavy":    config.Targets.Heavy,
		"battery":  config.Targets.Battery,
	} {
		if pair.Cpu >= config.Critical.Cpu {
			return fmt.Errorf("thermal: %s cpu target %.1f must be below critical temperature %.1f", name, pair.Cpu, config.Critical.Cpu)
		}
		if pair.Gpu >= config.Critical.Gpu {
			return fmt.Errorf("thermal: %s gpu target %.1f must be below critical temperature %.1f", name, pair.Gpu, config.Critical.Gpu)
		}
	}
	return nil
}

func validateAxis(name string, axis AxisConfig) error {
	ranges := []struct {
		label string
		value float64
		r     RangeConfig
	}{
		{"kp", axis.Gains.Kp, axis.KpRange},
		{"ki", axis.Gains.Ki, axis.KiRange},
		{"kd", axis.Gains.Kd, axis.KdRange},
	}
	for _, entry := range ranges {
		if entry.r.Min > entry.r.Max {
			return fmt.Errorf("thermal.%s: %sRange min (%v) is greater than max (%v)", name, entry.label, entry.r.Min, entry.r.Max)
		}
		if entry.value < entry.r.Min || entry.value > entry.r.Max {
			return fmt.Errorf("thermal.%s: %s (%v) is outside of its range [%v, %v]", name, entry.label, entry.value, entry.r.Min, entry.r.Max)
		}
	}
	if axis.VarianceLow >= axis.VarianceHigh {
		return fmt.Errorf("thermal.%s: varianceLow (%v) must be lower than varianceHigh (%v)", name, axis.VarianceLow, axis.VarianceHigh)
	}
	return nil
}

func validateLearning(config *LearningConfig) error {
	if !config.Enabled {
		return nil
	}
	if config.SampleInterval <= 0 {
		return fmt.Errorf("learning: sampleInterval must be > 0")
	}
	if config.SaveInterval <= 0 {
		return fmt.Errorf("learning: saveInterval must be > 0")
	}
	if config.SmoothingWindowSize <= 0 {
		return fmt.Errorf("learning: smoothingWindowSize must be > 0")
	}
	return nil
}

func validateGpu(config *GpuConfig) error {
	if !config.Enabled {
		return nil
	}
	if config.RefreshInterval <= 0 {
		return fmt.Errorf("gpu: refreshInterval must be > 0")
	}
	if config.StartDelay < 0 {
		return fmt.Errorf("gpu: startDelay must be >= 0")
	}
	return nil
}

func validatePower(config *PowerConfig) error {
	if config.CpuPl1 < 0 || config.CpuPl2 < 0 || config.GpuTgp < 0 {
		return fmt.Errorf("power: limits must be >= 0")
	}
	if config.CpuPl1 > 0 && config.CpuPl2 > 0 && config.CpuPl1 > config.CpuPl2 {
		return fmt.Errorf("power: cpuPl1 (%d W) must not exceed cpuPl2 (%d W)", config.CpuPl1, config.CpuPl2)
	}
	if config.Mode != "" {
		if _, err := ParsePowerMode(string(config.Mode)); err != nil {
			return fmt.Errorf("power: %w", err)
		}
	}
	return nil
}
