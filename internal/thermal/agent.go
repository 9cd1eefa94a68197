package thermal

import (
	"errors"
	"fmt"
	"sync"

	"github.com/vivekchamoli/legion2go/internal/alerts"
	"github.com/vivekchamoli/legion2go/internal/configuration"
	"github.com/vivekchamoli/legion2go/internal/fans"
	"github.com/vivekchamoli/legion2go/internal/telemetry"
	"github.com/vivekchamoli/legion2go/internal/ui"
	"github.com/vivekchamoli/legion2go/internal/util"
)

var ErrInvalidSample = errors.New("sample contains non-finite values")

// Agent runs the thermal control cycle: target selection, per axis PID,
// emergency override and periodic gain adaptation.
type Agent struct {
	mu sync.Mutex

	cpu       *PidAxis
	gpu       *PidAxis
	targets   *TargetAdapter
	emergency EmergencyOverride
	adapter   *GainAdapter
	history   *util.RingHistory[ThermalSnapshot]

	fanSink   fans.Sink
	alertSink alerts.Sink

	cycles      int64
	faults      int64
	emergencies int64
	adaptations int64
	lastResult  *CycleResult
}

func NewAgent(config configuration.ThermalConfig, fanSink fans.Sink, alertSink alerts.Sink) *Agent {
	return &Agent{
		cpu:       NewPidAxis(AxisCpu, config.Cpu),
		gpu:       NewPidAxis(AxisGpu, config.Gpu),
		targets:   NewTargetAdapter(config),
		emergency: NewEmergencyOverride(config.Critical),
		adapter:   NewGainAdapter(config.AdaptationInterval, config.MinAdaptationSamples),
		history:   util.NewRingHistory[ThermalSnapshot](config.HistorySize),
		fanSink:   fanSink,
		alertSink: alertSink,
	}
}

// Cycle runs one control cycle for the given sample.
// A failing cycle is counted and skipped without modifying the controller state.
func (a *Agent) Cycle(sample telemetry.Sample) (result CycleResult, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			a.faults++
			err = fmt.Errorf("control cycle failed: %v", r)
		}
	}()

	if !util.IsFinite(sample.CpuTemp, sample.GpuTemp, sample.VrmTemp, sample.CpuUtil, sample.GpuUtil) {
		a.faults++
		return CycleResult{}, ErrInvalidSample
	}

	targets, heavy := a.targets.evaluate(sample)
	cpuState, cpuSpeed := a.cpu.compute(sample.CpuTemp, targets.Cpu)
	gpuState, gpuSpeed := a.gpu.compute(sample.GpuTemp, targets.Gpu)
	alert, emergency := a.emergency.Check(sample)

	result = CycleResult{
		Timestamp:   sample.Timestamp,
		Targets:     targets,
		CpuTemp:     sample.CpuTemp,
		GpuTemp:     sample.GpuTemp,
		VrmTemp:     sample.VrmTemp,
		CpuFanSpeed: cpuSpeed,
		GpuFanSpeed: gpuSpeed,
		Emergency:   emergency,
	}
	if emergency {
		result.CpuFanSpeed = MaxFanSpeed
		result.GpuFanSpeed = MaxFanSpeed
	}

	// commit
	a.targets.commit(heavy)
	a.cpu.state = cpuState
	a.gpu.state = gpuState
	a.history.Add(ThermalSnapshot{
		Timestamp: sample.Timestamp,
		CpuTemp:   sample.CpuTemp,
		GpuTemp:   sample.GpuTemp,
		FanSpeed:  sample.FanSpeedRpm,
	})
	a.cycles++

	if a.adapter.ShouldAdapt(a.cycles, a.history.Len()) {
		adjustments := a.adapter.Adapt(a.history.Snapshot(), a.cpu, a.gpu)
		a.adaptations++
		result.Adapted = true
		for _, adjustment := range adjustments {
			ui.Debug("Gain adaptation %s: variance %.2f, %s, Kp %.3f -> %.3f, Kd %.3f -> %.3f",
				adjustment.Axis, adjustment.Variance, adjustment.Direction,
				adjustment.Before.Kp, adjustment.After.Kp, adjustment.Before.Kd, adjustment.After.Kd)
		}
	}

	if emergency {
		a.emergencies++
		a.fanSink.SetMax()
		if a.alertSink != nil {
			a.alertSink.Publish(alert)
		}
	} else {
		a.fanSink.SetTargets(cpuSpeed, gpuSpeed)
	}

	resultCopy := result
	a.lastResult = &resultCopy

	return result, nil
}

// Gains returns the current gains of both axes
func (a *Agent) Gains() (cpu Gains, gpu Gains) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cpu.Gains(), a.gpu.Gains()
}

// RestoreGains replaces the gains of both axes, e.g. with persisted values
func (a *Agent) RestoreGains(cpu Gains, gpu Gains) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cpu.SetGains(cpu)
	a.gpu.SetGains(gpu)
}

func (a *Agent) History() []ThermalSnapshot {
	return a.history.Snapshot()
}

func (a *Agent) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	stats := Stats{
		Cycles:      a.cycles,
		Faults:      a.faults,
		Emergencies: a.emergencies,
		Adaptations: a.adaptations,
		CpuGains:    a.cpu.Gains(),
		GpuGains:    a.gpu.Gains(),
		CpuState:    a.cpu.State(),
		GpuState:    a.gpu.State(),
		HistorySize: a.history.Len(),
	}
	if a.lastResult != nil {
		last := *a.lastResult
		stats.LastResult = &last
	}
	return stats
}

// FaultCount returns the number of skipped control cycles
func (a *Agent) FaultCount() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.faults
}
