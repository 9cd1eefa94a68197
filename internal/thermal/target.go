package thermal

import (
	"github.com/vivekchamoli/legion2go/internal/configuration"
	"github.com/vivekchamoli/legion2go/internal/telemetry"
)

// TargetAdapter selects the target temperatures of both axes from the
// workload and power source of the latest sample
type TargetAdapter struct {
	targets      configuration.TargetsConfig
	heavyCpuUtil float64
	heavyGpuUtil float64
	hysteresis   configuration.HysteresisConfig

	// classification of the previous cycle, only used by the deadband policy
	heavy bool
}

func NewTargetAdapter(config configuration.ThermalConfig) *TargetAdapter {
	return &TargetAdapter{
		targets:      config.Targets,
		heavyCpuUtil: config.HeavyCpuUtil,
		heavyGpuUtil: config.HeavyGpuUtil,
		hysteresis:   config.TargetHysteresis,
	}
}

// Select classifies the sample and remembers the classification
func (t *TargetAdapter) Select(sample telemetry.Sample) Targets {
	targets, heavy := t.evaluate(sample)
	t.heavy = heavy
	return targets
}

func (t *TargetAdapter) evaluate(sample telemetry.Sample) (Targets, bool) {
	heavy := t.isHeavy(sample)

	var pair configuration.TargetPair
	var workload Workload
	switch {
	case heavy:
		pair, workload = t.targets.Heavy, WorkloadHeavy
	case sample.OnBattery:
		pair, workload = t.targets.Battery, WorkloadBattery
	default:
		pair, workload = t.targets.Balanced, WorkloadBalanced
	}

	return Targets{
		Cpu:      pair.Cpu,
		Gpu:      pair.Gpu,
		Workload: workload,
	}, heavy
}

func (t *TargetAdapter) isHeavy(sample telemetry.Sample) bool {
	cpuThreshold := t.heavyCpuUtil
	gpuThreshold := t.heavyGpuUtil
	if t.hysteresis.Policy == configuration.HysteresisPolicyDeadband && t.heavy {
		cpuThreshold -= t.hysteresis.Deadband
		gpuThreshold -= t.hysteresis.Deadband
	}
	return sample.CpuUtil > cpuThreshold || sample.GpuUtil > gpuThreshold
}

func (t *TargetAdapter) commit(heavy bool) {
	t.heavy = heavy
}
