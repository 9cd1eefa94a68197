package fans

// Sink receives the commanded fan speeds of the control loop.
// Implementations must not block the caller, failures are logged only.
type Sink interface {
	// SetTargets commands the given speeds in RPM
	SetTargets(cpuRpm float64, gpuRpm float64)
	// SetMax commands the maximum speed on all fans
	SetMax()
}

type Command struct {
	CpuRpm float64 `json:"cpuRpm"`
	GpuRpm float64 `json:"gpuRpm"`
	Max    bool    `json:"max"`
}
