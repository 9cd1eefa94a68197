package gpu

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vivekchamoli/legion2go/internal/alerts"
)

type MockDevice struct {
	name             string
	performanceState string
	display          bool
	displayErr       error
	processes        []Process
	processErr       error
	platformId       string
	utilization      float64
	panics           bool
}

func (d *MockDevice) Name() (string, error) {
	if d.panics {
		panic("driver crashed")
	}
	return d.name, nil
}

func (d *MockDevice) PerformanceState() (string, error) {
	return d.performanceState, nil
}

func (d *MockDevice) IsDisplayConnected() (bool, error) {
	return d.display, d.displayErr
}

func (d *MockDevice) BoundProcesses() ([]Process, error) {
	return d.processes, d.processErr
}

func (d *MockDevice) Utilization() (float64, error) {
	return d.utilization, nil
}

func (d *MockDevice) PlatformId() (string, error) {
	if d.platformId == "" {
		return "", errors.New("no pci info")
	}
	return d.platformId, nil
}

type MockDriver struct {
	mu        sync.Mutex
	initErr    error
	initPanics bool
	deviceErr  error
	device    *MockDevice
	// if set, Initialize signals entered and blocks until gate is closed
	gate    chan struct{}
	entered chan struct{}

	inits     int
	shutdowns int
}

func (d *MockDriver) Initialize() error {
	if d.gate != nil {
		select {
		case d.entered <- struct{}{}:
		default:
		}
		<-d.gate
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inits++
	if d.initPanics {
		panic("driver library missing symbol")
	}
	return d.initErr
}

func (d *MockDriver) Shutdown() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shutdowns++
	return nil
}

func (d *MockDriver) Device(index int) (Device, error) {
	if d.deviceErr != nil {
		return nil, d.deviceErr
	}
	return d.device, nil
}

func (d *MockDriver) counts() (int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inits, d.shutdowns
}

type MockProbe struct {
	capable bool
	err     error
	panics  bool
	calls   int
}

func (p *MockProbe) Probe() (bool, error) {
	p.calls++
	if p.panics {
		panic("unexpected sysfs layout")
	}
	return p.capable, p.err
}

type MockDeviceManager struct {
	restarted  []string
	restartErr error
	killed     []uint32
	killErrs   map[uint32]error
}

func (m *MockDeviceManager) Restart(ctx context.Context, instanceId string) error {
	if m.restartErr != nil {
		return m.restartErr
	}
	m.restarted = append(m.restarted, instanceId)
	return nil
}

func (m *MockDeviceManager) Kill(ctx context.Context, process Process) error {
	if err, ok := m.killErrs[process.Pid]; ok {
		return err
	}
	m.killed = append(m.killed, process.Pid)
	return nil
}

type MockAlertSink struct {
	mu     sync.Mutex
	alerts []alerts.Alert
}

func (s *MockAlertSink) Publish(alert alerts.Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, alert)
}

func (s *MockAlertSink) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.alerts)
}

func createController(driver *MockDriver, probe *MockProbe, devices *MockDeviceManager) *Controller {
	return NewController(driver, NewCapabilityCache(probe, time.Minute), devices, &MockAlertSink{}, time.Second)
}
