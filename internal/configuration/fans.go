package configuration

import "time"

type FansConfig struct {
	// sysfs directory of the platform driver exposing fan1_target and fan2_target
	PlatformPath string `json:"platformPath"`
	// fan speed in RPM that corresponds to a target of 100%
	MaxRpm int `json:"maxRpm"`
	// upper bound for retrying a failed write
	RetryMaxElapsed time.Duration `json:"retryMaxElapsed"`
}
