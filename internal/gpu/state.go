package gpu

import (
	"time"
)

type State int

const (
	StateUnknown State = iota
	StateNvidiaGpuNotFound
	StatePoweredOff
	StateInactive
	StateActive
	StateMonitorConnected
)

func (s State) String() string {
	switch s {
	case StateNvidiaGpuNotFound:
		return "NvidiaGpuNotFound"
	case StatePoweredOff:
		return "PoweredOff"
	case StateInactive:
		return "Inactive"
	case StateActive:
		return "Active"
	case StateMonitorConnected:
		return "MonitorConnected"
	default:
		return "Unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Process is a process bound to the GPU
type Process struct {
	Pid  uint32 `json:"pid"`
	Name string `json:"name"`
}

// Status is an immutable snapshot of the GPU lifecycle state
type Status struct {
	State            State     `json:"state"`
	PerformanceState string    `json:"performanceState,omitempty"`
	Processes        []Process `json:"processes,omitempty"`
	DeviceName       string    `json:"deviceName,omitempty"`
	// GPU utilization in percent at the time of the refresh
	Utilization float64 `json:"utilization"`
	// PCI address of the device, only known in Active and Inactive
	InstanceId string    `json:"instanceId,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

func (s Status) copy() Status {
	result := s
	if s.Processes != nil {
		result.Processes = make([]Process, len(s.Processes))
		copy(result.Processes, s.Processes)
	}
	return result
}

// IsManageable reports whether restart and kill operations are allowed
func (s Status) IsManageable() bool {
	return (s.State == StateActive || s.State == StateInactive) && s.InstanceId != ""
}
