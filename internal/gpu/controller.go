package gpu

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/vivekchamoli/legion2go/internal/alerts"
	"github.com/vivekchamoli/legion2go/internal/ui"
)

const DefaultStopTimeout = 5 * time.Second

// Controller tracks the lifecycle state of the NVIDIA dGPU.
// The state is derived from scratch on every refresh.
type Controller struct {
	driver      Driver
	capability  *CapabilityCache
	devices     DeviceManager
	alerts      alerts.Sink
	stopTimeout time.Duration

	// guards the state, held for the duration of a refresh
	mu           sync.Mutex
	status       Status
	refreshCount int

	// guards the refresh loop handles, never held while refreshing
	lifecycle sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	closed    bool

	subscribers  cmap.ConcurrentMap[string, func(Status)]
	subscriberId atomic.Uint64
}

// NewController creates a controller, alertSink may be nil
func NewController(driver Driver, capability *CapabilityCache, devices DeviceManager, alertSink alerts.Sink, stopTimeout time.Duration) *Controller {
	if stopTimeout <= 0 {
		stopTimeout = DefaultStopTimeout
	}
	return &Controller{
		driver:      driver,
		capability:  capability,
		devices:     devices,
		alerts:      alertSink,
		stopTimeout: stopTimeout,
		status:      Status{State: StateUnknown},
		subscribers: cmap.New[func(Status)](),
	}
}

// RefreshNow derives the current state and publishes it to all subscribers
func (c *Controller) RefreshNow(ctx context.Context) (Status, error) {
	if err := ctx.Err(); err != nil {
		return c.LastKnownStatus(), err
	}

	c.mu.Lock()
	previous := c.status.State
	status, err := c.derive()
	status.Timestamp = time.Now()
	c.status = status
	c.refreshCount++
	result := status.copy()
	c.mu.Unlock()

	if err != nil {
		return result, err
	}

	if previous != result.State {
		ui.Info("GPU state changed: %s -> %s", previous, result.State)
		c.publishStateChange(previous, result)
	}
	c.notify(result)
	return result, nil
}

func (c *Controller) derive() (status Status, err error) {
	defer func() {
		if r := recover(); r != nil {
			status = Status{State: StateUnknown}
			err = fmt.Errorf("gpu refresh panicked: %v", r)
		}
	}()

	if err := c.driver.Initialize(); err != nil {
		ui.Debug("NVIDIA driver unavailable: %v", err)
		if c.capability.IsCapable() {
			return Status{State: StatePoweredOff}, nil
		}
		return Status{State: StateNvidiaGpuNotFound}, nil
	}
	defer func() {
		if shutdownErr := c.driver.Shutdown(); shutdownErr != nil {
			ui.Warning("Error shutting down NVIDIA driver session: %v", shutdownErr)
		}
	}()

	device, err := c.driver.Device(0)
	if errors.Is(err, ErrNotPowered) {
		return Status{State: StatePoweredOff}, nil
	} else if err != nil {
		return Status{State: StateUnknown}, fmt.Errorf("get gpu device: %w", err)
	}

	status = Status{State: StateUnknown}
	if status.DeviceName, err = device.Name(); err != nil {
		ui.Debug("Unable to read GPU name: %v", err)
	}
	if status.PerformanceState, err = device.PerformanceState(); err != nil {
		ui.Debug("Unable to read GPU performance state: %v", err)
	}
	if status.Utilization, err = device.Utilization(); err != nil {
		ui.Debug("Unable to read GPU utilization: %v", err)
	}

	displayConnected, err := device.IsDisplayConnected()
	if errors.Is(err, ErrNotPowered) {
		return Status{State: StatePoweredOff}, nil
	} else if err != nil {
		return Status{State: StateUnknown}, fmt.Errorf("read gpu display state: %w", err)
	}
	if displayConnected {
		status.State = StateMonitorConnected
		return status, nil
	}

	processes, err := device.BoundProcesses()
	if err != nil {
		return Status{State: StateUnknown}, fmt.Errorf("read gpu processes: %w", err)
	}
	status.Processes = processes

	if status.InstanceId, err = device.PlatformId(); err != nil {
		ui.Warning("Unable to read GPU PCI address: %v", err)
	}

	if len(processes) > 0 {
		status.State = StateActive
	} else {
		status.State = StateInactive
	}
	return status, nil
}

func (c *Controller) publishStateChange(previous State, status Status) {
	if c.alerts == nil {
		return
	}
	c.alerts.Publish(alerts.NewAlert(
		alerts.KindGpuStateChanged,
		alerts.SeverityInfo,
		"GPU state changed",
		fmt.Sprintf("%s -> %s", previous, status.State),
		map[string]float64{"processes": float64(len(status.Processes))},
	))
}

func (c *Controller) notify(status Status) {
	for item := range c.subscribers.IterBuffered() {
		func() {
			defer func() {
				if r := recover(); r != nil {
					ui.Error("GPU state subscriber %s panicked: %v", item.Key, r)
				}
			}()
			item.Val(status.copy())
		}()
	}
}

// Start spawns the periodic refresh loop, returns false if it is already
// running or a previously stopped loop has not exited yet
func (c *Controller) Start(delay time.Duration, interval time.Duration) bool {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if c.closed || c.cancel != nil || c.loopAlive() {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done

	go c.loop(ctx, delay, interval, done)
	return true
}

// loopAlive reports whether the last spawned loop goroutine is still running,
// the caller must hold lifecycle
func (c *Controller) loopAlive() bool {
	if c.done == nil {
		return false
	}
	select {
	case <-c.done:
		c.done = nil
		return false
	default:
		return true
	}
}

func (c *Controller) loop(ctx context.Context, delay time.Duration, interval time.Duration, done chan struct{}) {
	defer close(done)

	if !sleep(ctx, delay) {
		return
	}
	for {
		if ctx.Err() != nil {
			return
		}
		_, err := c.RefreshNow(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			ui.Warning("GPU refresh failed: %v", err)
		}
		if !sleep(ctx, interval) {
			return
		}
	}
}

// sleep waits for the given duration, returns false if ctx was canceled
func sleep(ctx context.Context, duration time.Duration) bool {
	if duration <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// IsRunning reports whether the refresh loop is started or still exiting
func (c *Controller) IsRunning() bool {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	return c.cancel != nil || c.loopAlive()
}

// Stop cancels the refresh loop. If wait is set, it blocks until the loop
// exited or the stop timeout elapsed, returning false on timeout.
// The loop handle is kept until the goroutine exits, so Start refuses to
// spawn a second loop in the meantime.
func (c *Controller) Stop(wait bool) bool {
	c.lifecycle.Lock()
	cancel, done := c.cancel, c.done
	c.cancel = nil
	c.lifecycle.Unlock()

	if cancel != nil {
		cancel()
	}
	if done == nil || !wait {
		return true
	}

	timer := time.NewTimer(c.stopTimeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		ui.Warning("GPU refresh loop did not stop within %s", c.stopTimeout)
		return false
	}
}

func (c *Controller) manageableStatus() (Status, error) {
	status := c.LastKnownStatus()
	if status.State != StateActive && status.State != StateInactive {
		return status, fmt.Errorf("%w: %s", ErrInvalidState, status.State)
	}
	if status.InstanceId == "" {
		return status, ErrNoInstance
	}
	return status, nil
}

// RestartDevice removes the dGPU from the bus and brings it back
func (c *Controller) RestartDevice(ctx context.Context) error {
	status, err := c.manageableStatus()
	if err != nil {
		return err
	}
	if err := c.devices.Restart(ctx, status.InstanceId); err != nil {
		return fmt.Errorf("restart gpu %s: %w", status.InstanceId, err)
	}
	c.capability.Invalidate()
	return nil
}

// KillBoundProcesses kills all processes of the last refresh, returns the number killed.
// A failed kill does not stop the remaining ones.
func (c *Controller) KillBoundProcesses(ctx context.Context) (int, error) {
	status, err := c.manageableStatus()
	if err != nil {
		return 0, err
	}

	killed := 0
	for _, process := range status.Processes {
		if ctx.Err() != nil {
			return killed, ctx.Err()
		}
		if err := c.devices.Kill(ctx, process); err != nil {
			ui.Warning("Unable to kill GPU process %d (%s): %v", process.Pid, process.Name, err)
			continue
		}
		killed++
	}
	return killed, nil
}

func (c *Controller) LastKnownStatus() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status.copy()
}

// RefreshCount returns the number of refreshes since creation
func (c *Controller) RefreshCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshCount
}

// Utilization returns the GPU utilization captured by the last refresh
func (c *Controller) Utilization() (float64, error) {
	status := c.LastKnownStatus()
	switch status.State {
	case StateActive, StateInactive, StateMonitorConnected:
		return status.Utilization, nil
	default:
		return 0, nil
	}
}

// Subscribe registers fn for every successful refresh, the returned func unregisters it
func (c *Controller) Subscribe(fn func(Status)) (unsubscribe func()) {
	key := strconv.FormatUint(c.subscriberId.Add(1), 10)
	c.subscribers.Set(key, fn)
	return func() {
		c.subscribers.Remove(key)
	}
}

func (c *Controller) SubscriberCount() int {
	return c.subscribers.Count()
}

// InvalidateCapability must be called after a graphics mode change
func (c *Controller) InvalidateCapability() {
	c.capability.Invalidate()
}

// Close stops the loop and drops all subscribers, it is safe to call multiple times
func (c *Controller) Close() {
	c.Stop(true)

	c.lifecycle.Lock()
	c.closed = true
	c.lifecycle.Unlock()

	c.subscribers.Clear()
}
