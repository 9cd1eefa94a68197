package internal

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/vivekchamoli/legion2go/internal/alerts"
	"github.com/vivekchamoli/legion2go/internal/telemetry"
	"github.com/vivekchamoli/legion2go/internal/thermal"
	"github.com/vivekchamoli/legion2go/internal/ui"
)

// number of consecutive failed ticks after which a control fault alert is raised
const faultAlertThreshold = 10

type ControlAgent interface {
	Cycle(sample telemetry.Sample) (thermal.CycleResult, error)
}

type SampleObserver interface {
	Observe(sample telemetry.Sample) bool
}

type CycleRecorder interface {
	Record(result thermal.CycleResult) error
}

// TelemetryMonitor reads a telemetry sample every tick and feeds it to the
// control agent, the learning observer and the history recorder
type TelemetryMonitor struct {
	source   telemetry.Source
	agent    ControlAgent
	observer SampleObserver
	recorder CycleRecorder
	alerts   alerts.Sink
	tickRate time.Duration

	ticks             atomic.Int64
	consecutiveFaults int
}

// NewTelemetryMonitor creates a monitor, observer, recorder and alertSink may be nil
func NewTelemetryMonitor(
	source telemetry.Source,
	agent ControlAgent,
	observer SampleObserver,
	recorder CycleRecorder,
	alertSink alerts.Sink,
	tickRate time.Duration,
) *TelemetryMonitor {
	return &TelemetryMonitor{
		source:   source,
		agent:    agent,
		observer: observer,
		recorder: recorder,
		alerts:   alertSink,
		tickRate: tickRate,
	}
}

func (m *TelemetryMonitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.tickRate)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Tick()
		}
	}
}

// Tick runs a single iteration, failures are logged and never end the loop
func (m *TelemetryMonitor) Tick() {
	m.ticks.Add(1)

	sample, err := m.source.Read()
	if err != nil {
		m.fault(fmt.Errorf("read telemetry: %w", err))
		return
	}

	result, err := m.agent.Cycle(sample)
	if err != nil {
		m.fault(err)
		return
	}
	m.consecutiveFaults = 0

	if m.observer != nil {
		m.observer.Observe(sample)
	}
	if m.recorder != nil {
		if err := m.recorder.Record(result); err != nil {
			ui.Warning("Unable to record control cycle: %v", err)
		}
	}
}

func (m *TelemetryMonitor) fault(err error) {
	m.consecutiveFaults++
	ui.Debug("Control tick skipped: %v", err)

	if m.consecutiveFaults != faultAlertThreshold {
		return
	}
	ui.Error("Thermal control skipped %d consecutive ticks: %v", m.consecutiveFaults, err)
	if m.alerts != nil {
		m.alerts.Publish(alerts.NewAlert(
			alerts.KindControlFault,
			alerts.SeverityWarning,
			"Thermal control degraded",
			err.Error(),
			map[string]float64{"consecutiveFaults": float64(m.consecutiveFaults)},
		))
	}
}

// Ticks returns the number of ticks since start
func (m *TelemetryMonitor) Ticks() int64 {
	return m.ticks.Load()
}
