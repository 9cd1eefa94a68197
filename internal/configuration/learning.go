package configuration

import "time"

type LearningConfig struct {
	Enabled bool `json:"enabled"`
	// interval in which observations are derived from telemetry
	SampleInterval time.Duration `json:"sampleInterval"`
	// interval in which learned samples are written to the database
	SaveInterval time.Duration `json:"saveInterval"`
	// number of telemetry samples used to smooth temperatures before recording
	SmoothingWindowSize int `json:"smoothingWindowSize"`
	// power mode used by the cli when none is given
	DefaultMode PowerMode `json:"defaultMode"`
}
