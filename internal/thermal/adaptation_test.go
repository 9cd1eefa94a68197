package thermal

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/vivekchamoli/legion2go/internal/configuration"
)

func createHistory(cpuTemps []float64, gpuTemps []float64) []ThermalSnapshot {
	history := make([]ThermalSnapshot, len(cpuTemps))
	for i := range cpuTemps {
		history[i] = ThermalSnapshot{
			Timestamp: time.Unix(int64(i), 0),
			CpuTemp:   cpuTemps[i],
			GpuTemp:   gpuTemps[i],
		}
	}
	return history
}

func constant(value float64, n int) []float64 {
	result := make([]float64, n)
	for i := range result {
		result[i] = value
	}
	return result
}

func oscillating(center float64, amplitude float64, n int) []float64 {
	result := make([]float64, n)
	for i := range result {
		if i%2 == 0 {
			result[i] = center + amplitude
		} else {
			result[i] = center - amplitude
		}
	}
	return result
}

func TestGainAdapter_DampsOscillation(t *testing.T) {
	// GIVEN
	cpu := NewPidAxis(AxisCpu, configuration.DefaultCpuAxisConfig())
	gpu := NewPidAxis(AxisGpu, configuration.DefaultGpuAxisConfig())
	adapter := NewGainAdapter(50, 100)
	// variance 36 for cpu, 25 for gpu
	history := createHistory(oscillating(75, 6, 100), oscillating(70, 5, 100))

	// WHEN
	adjustments := adapter.Adapt(history, cpu, gpu)

	// THEN
	assert.Equal(t, AdaptationDamp, adjustments[0].Direction)
	assert.Equal(t, AdaptationDamp, adjustments[1].Direction)
	assert.InDelta(t, 1.5*0.95, cpu.Gains().Kp, 0.0001)
	assert.InDelta(t, 0.5*0.9, cpu.Gains().Kd, 0.0001)
	assert.Equal(t, 0.1, cpu.Gains().Ki)
	assert.InDelta(t, 1.2*0.95, gpu.Gains().Kp, 0.0001)
	assert.Equal(t, 0.08, gpu.Gains().Ki)
}

func TestGainAdapter_SharpensSluggishControl(t *testing.T) {
	// GIVEN
	cpu := NewPidAxis(AxisCpu, configuration.DefaultCpuAxisConfig())
	gpu := NewPidAxis(AxisGpu, configuration.DefaultGpuAxisConfig())
	adapter := NewGainAdapter(50, 100)
	history := createHistory(constant(75, 100), constant(70, 100))

	// WHEN
	adapter.Adapt(history, cpu, gpu)

	// THEN
	assert.InDelta(t, 1.5*1.02, cpu.Gains().Kp, 0.0001)
	assert.InDelta(t, 0.5*1.01, cpu.Gains().Kd, 0.0001)
	assert.InDelta(t, 1.2*1.02, gpu.Gains().Kp, 0.0001)
	assert.InDelta(t, 0.4*1.01, gpu.Gains().Kd, 0.0001)
}

func TestGainAdapter_PerAxisThresholds(t *testing.T) {
	// GIVEN
	cpu := NewPidAxis(AxisCpu, configuration.DefaultCpuAxisConfig())
	gpu := NewPidAxis(AxisGpu, configuration.DefaultGpuAxisConfig())
	adapter := NewGainAdapter(50, 100)
	// variance 20: between the cpu thresholds, above the gpu high threshold
	history := createHistory(oscillating(75, 4.4721, 100), oscillating(70, 4.4721, 100))

	// WHEN
	adjustments := adapter.Adapt(history, cpu, gpu)

	// THEN
	assert.Equal(t, AdaptationNone, adjustments[0].Direction)
	assert.Equal(t, AdaptationDamp, adjustments[1].Direction)
	assert.Equal(t, 1.5, cpu.Gains().Kp)
}

func TestGainAdapter_GainsStayWithinBounds(t *testing.T) {
	// GIVEN
	cpuConfig := configuration.DefaultCpuAxisConfig()
	gpuConfig := configuration.DefaultGpuAxisConfig()
	cpu := NewPidAxis(AxisCpu, cpuConfig)
	gpu := NewPidAxis(AxisGpu, gpuConfig)
	adapter := NewGainAdapter(1, 0)
	random := rand.New(rand.NewSource(7))

	for i := 0; i < 2000; i++ {
		// WHEN
		amplitude := 0.0
		if random.Intn(2) == 0 {
			amplitude = 10
		}
		history := createHistory(oscillating(75, amplitude, 10), oscillating(70, amplitude, 10))
		adapter.Adapt(history, cpu, gpu)

		// THEN
		assertWithinRange(t, cpu.Gains(), cpuConfig)
		assertWithinRange(t, gpu.Gains(), gpuConfig)
	}
}

func assertWithinRange(t *testing.T, gains Gains, config configuration.AxisConfig) {
	assert.GreaterOrEqual(t, gains.Kp, config.KpRange.Min)
	assert.LessOrEqual(t, gains.Kp, config.KpRange.Max)
	assert.GreaterOrEqual(t, gains.Ki, config.KiRange.Min)
	assert.LessOrEqual(t, gains.Ki, config.KiRange.Max)
	assert.GreaterOrEqual(t, gains.Kd, config.KdRange.Min)
	assert.LessOrEqual(t, gains.Kd, config.KdRange.Max)
}

func TestGainAdapter_ShouldAdapt(t *testing.T) {
	// GIVEN
	adapter := NewGainAdapter(50, 100)

	// THEN
	assert.False(t, adapter.ShouldAdapt(0, 300))
	assert.False(t, adapter.ShouldAdapt(50, 50))
	assert.False(t, adapter.ShouldAdapt(101, 101))
	assert.True(t, adapter.ShouldAdapt(100, 100))
	assert.True(t, adapter.ShouldAdapt(150, 300))
}
