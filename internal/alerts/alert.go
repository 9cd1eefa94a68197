package alerts

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

type Kind string

const (
	KindCriticalTemperature Kind = "critical_temperature"
	KindGpuStateChanged     Kind = "gpu_state_changed"
	KindControlFault        Kind = "control_fault"
)

type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityCritical
)

// Alert is an immutable event payload, readings are copied on creation
type Alert struct {
	Kind     Kind               `json:"kind"`
	Severity Severity           `json:"severity"`
	Time     time.Time          `json:"time"`
	Title    string             `json:"title"`
	Message  string             `json:"message"`
	Readings map[string]float64 `json:"readings,omitempty"`
}

type Sink interface {
	// Publish hands over the alert without blocking the caller
	Publish(alert Alert)
}

func NewAlert(kind Kind, severity Severity, title string, message string, readings map[string]float64) Alert {
	var copied map[string]float64
	if readings != nil {
		copied = make(map[string]float64, len(readings))
		for k, v := range readings {
			copied[k] = v
		}
	}
	return Alert{
		Kind:     kind,
		Severity: severity,
		Time:     time.Now(),
		Title:    title,
		Message:  message,
		Readings: copied,
	}
}

// FormatReadings returns the readings as a stable "key=value" list
func (a Alert) FormatReadings() string {
	keys := make([]string, 0, len(a.Readings))
	for k := range a.Readings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%.1f", k, a.Readings[k]))
	}
	return strings.Join(parts, ", ")
}
