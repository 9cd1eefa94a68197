package telemetry

import (
	"time"

	"github.com/vivekchamoli/legion2go/internal/configuration"
)

// Sample is a single fused reading of all values relevant for thermal control.
// Temperatures are in °C, utilizations in percent.
type Sample struct {
	Timestamp   time.Time               `json:"timestamp"`
	CpuTemp     float64                 `json:"cpuTemp"`
	GpuTemp     float64                 `json:"gpuTemp"`
	VrmTemp     float64                 `json:"vrmTemp"`
	CpuUtil     float64                 `json:"cpuUtil"`
	GpuUtil     float64                 `json:"gpuUtil"`
	OnBattery   bool                    `json:"onBattery"`
	FanSpeedRpm float64                 `json:"fanSpeedRpm"`
	PowerMode   configuration.PowerMode `json:"powerMode"`
}

type Source interface {
	Read() (Sample, error)
}

// UtilizationReader provides a utilization value in percent
type UtilizationReader interface {
	Utilization() (float64, error)
}
