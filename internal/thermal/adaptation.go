package thermal

import (
	"github.com/vivekchamoli/legion2go/internal/util"
)

const (
	dampKp    = 0.95
	dampKd    = 0.9
	sharpenKp = 1.02
	sharpenKd = 1.01
)

type AdaptationDirection string

const (
	AdaptationNone    AdaptationDirection = "none"
	AdaptationDamp    AdaptationDirection = "damp"
	AdaptationSharpen AdaptationDirection = "sharpen"
)

type Adjustment struct {
	Axis      Axis                `json:"axis"`
	Variance  float64             `json:"variance"`
	Direction AdaptationDirection `json:"direction"`
	Before    Gains               `json:"before"`
	After     Gains               `json:"after"`
}

// GainAdapter retunes Kp and Kd of each axis from the temperature variance
// of the recent history. Ki is never touched.
type GainAdapter struct {
	// adapt every n-th cycle
	interval int64
	// minimum history length
	minSamples int
}

func NewGainAdapter(interval int, minSamples int) *GainAdapter {
	if interval <= 0 {
		interval = 1
	}
	return &GainAdapter{
		interval:   int64(interval),
		minSamples: minSamples,
	}
}

// ShouldAdapt reports whether the given cycle is due for adaptation
func (a *GainAdapter) ShouldAdapt(cycle int64, historyLen int) bool {
	return cycle > 0 && cycle%a.interval == 0 && historyLen >= a.minSamples
}

// Adapt adjusts the gains of both axes based on the given history
func (a *GainAdapter) Adapt(history []ThermalSnapshot, cpu *PidAxis, gpu *PidAxis) []Adjustment {
	cpuTemps := make([]float64, 0, len(history))
	gpuTemps := make([]float64, 0, len(history))
	for _, snapshot := range history {
		cpuTemps = append(cpuTemps, snapshot.CpuTemp)
		gpuTemps = append(gpuTemps, snapshot.GpuTemp)
	}

	return []Adjustment{
		adaptAxis(cpu, util.Variance(cpuTemps)),
		adaptAxis(gpu, util.Variance(gpuTemps)),
	}
}

func adaptAxis(p *PidAxis, variance float64) Adjustment {
	before := p.Gains()
	adjusted := before
	direction := AdaptationNone

	switch {
	case variance > p.varianceHigh:
		adjusted.Kp *= dampKp
		adjusted.Kd *= dampKd
		direction = AdaptationDamp
	case variance < p.varianceLow:
		adjusted.Kp *= sharpenKp
		adjusted.Kd *= sharpenKd
		direction = AdaptationSharpen
	}

	p.SetGains(adjusted)

	return Adjustment{
		Axis:      p.Axis(),
		Variance:  variance,
		Direction: direction,
		Before:    before,
		After:     p.Gains(),
	}
}
