package configuration

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// PowerMode is the platform power profile as exposed by the
// performance_mode attribute of the platform driver.
type PowerMode string

const (
	PowerModeQuiet       PowerMode = "quiet"
	PowerModeBalanced    PowerMode = "balanced"
	PowerModePerformance PowerMode = "performance"
	PowerModeCustom      PowerMode = "custom"
)

// ParsePowerMode accepts the sysfs values as well as a few common aliases
func ParsePowerMode(value string) (PowerMode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "quiet", "silent":
		return PowerModeQuiet, nil
	case "balanced", "balance":
		return PowerModeBalanced, nil
	case "performance":
		return PowerModePerformance, nil
	case "custom":
		return PowerModeCustom, nil
	}
	return "", fmt.Errorf("unknown power mode: %s", value)
}

// HysteresisPolicy controls how the workload classification reacts
// to utilization values close to the heavy workload thresholds.
type HysteresisPolicy string

const (
	// HysteresisPolicyNone reclassifies on every sample
	HysteresisPolicyNone HysteresisPolicy = "none"
	// HysteresisPolicyDeadband keeps a heavy classification until the load
	// drops below threshold - deadband
	HysteresisPolicyDeadband HysteresisPolicy = "deadband"
)

func ParseHysteresisPolicy(value string) (HysteresisPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "none":
		return HysteresisPolicyNone, nil
	case "deadband":
		return HysteresisPolicyDeadband, nil
	}
	return "", fmt.Errorf("unknown hysteresis policy: %s", value)
}

// PowerModeHookFunc returns a mapstructure decode hook that parses PowerMode values
func PowerModeHookFunc() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if t != reflect.TypeOf(PowerMode("")) || f.Kind() != reflect.String {
			return data, nil
		}
		return ParsePowerMode(data.(string))
	}
}

// HysteresisPolicyHookFunc returns a mapstructure decode hook that parses HysteresisPolicy values
func HysteresisPolicyHookFunc() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if t != reflect.TypeOf(HysteresisPolicy("")) || f.Kind() != reflect.String {
			return data, nil
		}
		return ParseHysteresisPolicy(data.(string))
	}
}
