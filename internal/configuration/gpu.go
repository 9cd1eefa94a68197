package configuration

import "time"

type GpuConfig struct {
	Enabled bool `json:"enabled"`
	// delay before the first refresh
	StartDelay      time.Duration `json:"startDelay"`
	RefreshInterval time.Duration `json:"refreshInterval"`
	// max time to wait for an in-flight refresh on shutdown
	StopTimeout time.Duration `json:"stopTimeout"`
	// time a hybrid graphics capability verdict stays valid
	CapabilityTtl  time.Duration `json:"capabilityTtl"`
	PciDevicesPath string        `json:"pciDevicesPath"`
}
