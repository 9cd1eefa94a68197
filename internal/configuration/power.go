package configuration

// PowerConfig holds the platform power settings applied when the daemon starts
type PowerConfig struct {
	// power mode written to the platform driver, empty keeps the current one
	Mode PowerMode `json:"mode"`
	// limits in watts, 0 keeps the current value
	CpuPl1 int `json:"cpuPl1"`
	CpuPl2 int `json:"cpuPl2"`
	GpuTgp int `json:"gpuTgp"`
}
