package thermal

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/vivekchamoli/legion2go/internal/configuration"
	"github.com/vivekchamoli/legion2go/internal/fans"
	"github.com/vivekchamoli/legion2go/internal/telemetry"
)

func createSample(cpuTemp float64, gpuTemp float64) telemetry.Sample {
	return telemetry.Sample{
		Timestamp: time.Now(),
		CpuTemp:   cpuTemp,
		GpuTemp:   gpuTemp,
		VrmTemp:   60,
		CpuUtil:   20,
		GpuUtil:   5,
	}
}

func TestAgent_EmergencyTriggersOnlyAboveCeiling(t *testing.T) {
	// GIVEN
	fanSink := &MockFanSink{}
	alertSink := &MockAlertSink{}
	agent := NewAgent(configuration.DefaultThermalConfig(), fanSink, alertSink)

	var results []CycleResult
	for _, temp := range []float64{60, 65, 70, 95} {
		// WHEN
		result, err := agent.Cycle(createSample(temp, 55))
		assert.NoError(t, err)
		results = append(results, result)
	}

	// THEN
	for i, result := range results[:3] {
		assert.False(t, result.Emergency, "cycle %d", i)
		assert.Equal(t, 75.0, result.Targets.Cpu)
		assert.Less(t, result.CpuFanSpeed, MaxFanSpeed)
	}
	last := results[3]
	assert.True(t, last.Emergency)
	assert.Equal(t, MaxFanSpeed, last.CpuFanSpeed)
	assert.Equal(t, MaxFanSpeed, last.GpuFanSpeed)
	assert.Equal(t, fans.Command{Max: true}, fanSink.Last())
	assert.Len(t, alertSink.Alerts, 1)
	assert.Equal(t, 95.0, alertSink.Alerts[0].Readings["cpu"])
}

func TestAgent_EmergencyDoesNotResetPidState(t *testing.T) {
	// GIVEN
	agent := NewAgent(configuration.DefaultThermalConfig(), &MockFanSink{}, &MockAlertSink{})
	_, _ = agent.Cycle(createSample(80, 55))

	// WHEN
	_, _ = agent.Cycle(createSample(95, 55))

	// THEN
	state := agent.Stats().CpuState
	assert.Equal(t, 20.0, state.LastError)
	assert.Equal(t, 25.0, state.Integral)
	assert.Equal(t, int64(1), agent.Stats().Emergencies)
}

func TestAgent_OneAlertPerTriggeringCycle(t *testing.T) {
	// GIVEN
	alertSink := &MockAlertSink{}
	agent := NewAgent(configuration.DefaultThermalConfig(), &MockFanSink{}, alertSink)

	// WHEN
	_, _ = agent.Cycle(createSample(95, 90))
	_, _ = agent.Cycle(createSample(96, 90))
	_, _ = agent.Cycle(createSample(70, 60))

	// THEN
	assert.Len(t, alertSink.Alerts, 2)
}

func TestAgent_CommandsPidSpeeds(t *testing.T) {
	// GIVEN
	fanSink := &MockFanSink{}
	agent := NewAgent(configuration.DefaultThermalConfig(), fanSink, nil)

	// WHEN
	result, err := agent.Cycle(createSample(80, 70))

	// THEN
	assert.NoError(t, err)
	assert.InDelta(t, 2315.0, result.CpuFanSpeed, 0.0001)
	assert.Equal(t, BaseFanSpeed, result.GpuFanSpeed)
	assert.Equal(t, fans.Command{CpuRpm: result.CpuFanSpeed, GpuRpm: result.GpuFanSpeed}, fanSink.Last())
}

func TestAgent_InvalidSampleIsSkipped(t *testing.T) {
	// GIVEN
	fanSink := &MockFanSink{}
	agent := NewAgent(configuration.DefaultThermalConfig(), fanSink, nil)
	_, _ = agent.Cycle(createSample(80, 70))
	before := agent.Stats()

	// WHEN
	_, err := agent.Cycle(createSample(math.NaN(), 70))

	// THEN
	assert.ErrorIs(t, err, ErrInvalidSample)
	after := agent.Stats()
	assert.Equal(t, int64(1), agent.FaultCount())
	assert.Equal(t, before.Cycles, after.Cycles)
	assert.Equal(t, before.CpuState, after.CpuState)
	assert.Equal(t, before.HistorySize, after.HistorySize)
	assert.Len(t, fanSink.Commands, 1)
}

func TestAgent_UnreadableGpuOrVrmSensorIsSkipped(t *testing.T) {
	// GIVEN
	fanSink := &MockFanSink{}
	agent := NewAgent(configuration.DefaultThermalConfig(), fanSink, nil)
	gpuMissing := createSample(80, math.NaN())
	vrmMissing := createSample(80, 70)
	vrmMissing.VrmTemp = math.NaN()

	// WHEN
	_, gpuErr := agent.Cycle(gpuMissing)
	_, vrmErr := agent.Cycle(vrmMissing)

	// THEN
	assert.ErrorIs(t, gpuErr, ErrInvalidSample)
	assert.ErrorIs(t, vrmErr, ErrInvalidSample)
	assert.Equal(t, int64(2), agent.FaultCount())
	assert.Equal(t, int64(0), agent.Stats().Cycles)
	assert.Empty(t, fanSink.Commands)
}

func TestAgent_PanicIsRecoveredAndCounted(t *testing.T) {
	// GIVEN
	agent := NewAgent(configuration.DefaultThermalConfig(), &MockFanSink{panics: true}, nil)

	// WHEN
	_, err := agent.Cycle(createSample(80, 70))

	// THEN
	assert.EqualError(t, err, "control cycle failed: fan sink broken")
	assert.Equal(t, int64(1), agent.FaultCount())

	// the next cycle still runs
	agent.fanSink = &MockFanSink{}
	_, err = agent.Cycle(createSample(80, 70))
	assert.NoError(t, err)
}

func TestAgent_AdaptsGainsPeriodically(t *testing.T) {
	// GIVEN
	config := configuration.DefaultThermalConfig()
	agent := NewAgent(config, &MockFanSink{}, nil)

	// WHEN
	var adaptedCycles []int
	for i := 1; i <= 150; i++ {
		result, err := agent.Cycle(createSample(75, 70))
		assert.NoError(t, err)
		if result.Adapted {
			adaptedCycles = append(adaptedCycles, i)
		}
	}

	// THEN
	assert.Equal(t, []int{100, 150}, adaptedCycles)
	cpuGains, gpuGains := agent.Gains()
	assert.InDelta(t, 1.5*1.02*1.02, cpuGains.Kp, 0.0001)
	assert.InDelta(t, 1.2*1.02*1.02, gpuGains.Kp, 0.0001)
	assert.Equal(t, 0.1, cpuGains.Ki)
	assert.Equal(t, int64(2), agent.Stats().Adaptations)
}

func TestAgent_HistoryIsBounded(t *testing.T) {
	// GIVEN
	config := configuration.DefaultThermalConfig()
	config.HistorySize = 10
	config.MinAdaptationSamples = 10
	agent := NewAgent(config, &MockFanSink{}, nil)

	// WHEN
	for i := 0; i < 25; i++ {
		_, _ = agent.Cycle(createSample(float64(50+i), 60))
	}

	// THEN
	history := agent.History()
	assert.Len(t, history, 10)
	assert.Equal(t, 65.0, history[0].CpuTemp)
	assert.Equal(t, 74.0, history[9].CpuTemp)
}

func TestAgent_RestoreGainsClamps(t *testing.T) {
	// GIVEN
	agent := NewAgent(configuration.DefaultThermalConfig(), &MockFanSink{}, nil)

	// WHEN
	agent.RestoreGains(Gains{Kp: 5, Ki: 0.1, Kd: 0.5}, Gains{Kp: 1, Ki: 0.05, Kd: 0.01})

	// THEN
	cpu, gpu := agent.Gains()
	assert.Equal(t, 3.0, cpu.Kp)
	assert.Equal(t, Gains{Kp: 1, Ki: 0.05, Kd: 0.1}, gpu)
}
