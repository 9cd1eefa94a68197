package thermal

import (
	"fmt"
	"strings"

	"github.com/vivekchamoli/legion2go/internal/alerts"
	"github.com/vivekchamoli/legion2go/internal/configuration"
	"github.com/vivekchamoli/legion2go/internal/telemetry"
)

// EmergencyOverride detects readings above the critical ceilings
type EmergencyOverride struct {
	critical configuration.CriticalConfig
}

func NewEmergencyOverride(critical configuration.CriticalConfig) EmergencyOverride {
	return EmergencyOverride{critical: critical}
}

// Check returns the alert to publish if any reading exceeds its ceiling
func (e EmergencyOverride) Check(sample telemetry.Sample) (alerts.Alert, bool) {
	var exceeded []string
	if sample.CpuTemp > e.critical.Cpu {
		exceeded = append(exceeded, fmt.Sprintf("CPU %.1f°C > %.1f°C", sample.CpuTemp, e.critical.Cpu))
	}
	if sample.GpuTemp > e.critical.Gpu {
		exceeded = append(exceeded, fmt.Sprintf("GPU %.1f°C > %.1f°C", sample.GpuTemp, e.critical.Gpu))
	}
	if sample.VrmTemp > e.critical.Vrm {
		exceeded = append(exceeded, fmt.Sprintf("VRM %.1f°C > %.1f°C", sample.VrmTemp, e.critical.Vrm))
	}
	if len(exceeded) == 0 {
		return alerts.Alert{}, false
	}

	alert := alerts.NewAlert(
		alerts.KindCriticalTemperature,
		alerts.SeverityCritical,
		"Critical temperature",
		strings.Join(exceeded, ", ")+", fans forced to maximum",
		map[string]float64{
			"cpu": sample.CpuTemp,
			"gpu": sample.GpuTemp,
			"vrm": sample.VrmTemp,
		},
	)
	return alert, true
}
