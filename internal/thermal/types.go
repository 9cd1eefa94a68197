package thermal

import "time"

const (
	// fan speed commanded for a zero correction, in RPM
	BaseFanSpeed = 2000.0
	// RPM per unit of PID correction
	CorrectionScale = 30.0
	MinFanSpeed     = 0.0
	MaxFanSpeed     = 5500.0

	// anti-windup bound of the integral accumulator
	IntegralLimit = 100.0
)

type Axis string

const (
	AxisCpu Axis = "cpu"
	AxisGpu Axis = "gpu"
)

// ThermalSnapshot is appended to the history once per control cycle
type ThermalSnapshot struct {
	Timestamp time.Time `json:"timestamp"`
	CpuTemp   float64   `json:"cpuTemp"`
	GpuTemp   float64   `json:"gpuTemp"`
	FanSpeed  float64   `json:"fanSpeed"`
}

type Gains struct {
	Kp float64 `json:"kp"`
	Ki float64 `json:"ki"`
	Kd float64 `json:"kd"`
}

type ControlState struct {
	LastError float64 `json:"lastError"`
	Integral  float64 `json:"integral"`
}

type Workload string

const (
	WorkloadBalanced Workload = "balanced"
	WorkloadHeavy    Workload = "heavy"
	WorkloadBattery  Workload = "battery"
)

type Targets struct {
	Cpu      float64  `json:"cpu"`
	Gpu      float64  `json:"gpu"`
	Workload Workload `json:"workload"`
}

// CycleResult describes the outcome of a single control cycle
type CycleResult struct {
	Timestamp time.Time `json:"timestamp"`
	Targets   Targets   `json:"targets"`
	CpuTemp   float64   `json:"cpuTemp"`
	GpuTemp   float64   `json:"gpuTemp"`
	VrmTemp   float64   `json:"vrmTemp"`
	// commanded fan speeds in RPM
	CpuFanSpeed float64 `json:"cpuFanSpeed"`
	GpuFanSpeed float64 `json:"gpuFanSpeed"`
	Emergency   bool    `json:"emergency"`
	// true if gains were adapted after this cycle
	Adapted bool `json:"adapted"`
}

type Stats struct {
	Cycles      int64        `json:"cycles"`
	Faults      int64        `json:"faults"`
	Emergencies int64        `json:"emergencies"`
	Adaptations int64        `json:"adaptations"`
	CpuGains    Gains        `json:"cpuGains"`
	GpuGains    Gains        `json:"gpuGains"`
	CpuState    ControlState `json:"cpuState"`
	GpuState    ControlState `json:"gpuState"`
	HistorySize int          `json:"historySize"`
	LastResult  *CycleResult `json:"lastResult,omitempty"`
}
