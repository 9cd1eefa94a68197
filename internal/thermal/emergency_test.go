package thermal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vivekchamoli/legion2go/internal/alerts"
	"github.com/vivekchamoli/legion2go/internal/configuration"
	"github.com/vivekchamoli/legion2go/internal/telemetry"
)

func TestEmergencyOverride_BelowCeilings(t *testing.T) {
	// GIVEN
	override := NewEmergencyOverride(configuration.DefaultCriticalConfig())

	// WHEN
	_, triggered := override.Check(telemetry.Sample{CpuTemp: 90, GpuTemp: 87, VrmTemp: 100})

	// THEN
	assert.False(t, triggered)
}

func TestEmergencyOverride_Vrm(t *testing.T) {
	// GIVEN
	override := NewEmergencyOverride(configuration.DefaultCriticalConfig())

	// WHEN
	alert, triggered := override.Check(telemetry.Sample{CpuTemp: 60, GpuTemp: 50, VrmTemp: 101})

	// THEN
	assert.True(t, triggered)
	assert.Equal(t, alerts.KindCriticalTemperature, alert.Kind)
	assert.Equal(t, alerts.SeverityCritical, alert.Severity)
	assert.Equal(t, "VRM 101.0°C > 100.0°C, fans forced to maximum", alert.Message)
	assert.Equal(t, map[string]float64{"cpu": 60, "gpu": 50, "vrm": 101}, alert.Readings)
}

func TestEmergencyOverride_MultipleSensors(t *testing.T) {
	// GIVEN
	override := NewEmergencyOverride(configuration.DefaultCriticalConfig())

	// WHEN
	alert, triggered := override.Check(telemetry.Sample{CpuTemp: 95, GpuTemp: 88})

	// THEN
	assert.True(t, triggered)
	assert.Equal(t, "CPU 95.0°C > 90.0°C, GPU 88.0°C > 87.0°C, fans forced to maximum", alert.Message)
}
