package gpu

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_InitFailsWithHybridCapability(t *testing.T) {
	// GIVEN
	driver := &MockDriver{initErr: errors.New("driver not loaded")}
	probe := &MockProbe{capable: true}
	controller := createController(driver, probe, &MockDeviceManager{})

	// WHEN
	status, err := controller.RefreshNow(context.Background())

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, StatePoweredOff, status.State)
	_, shutdowns := driver.counts()
	assert.Equal(t, 0, shutdowns)
}

func TestController_InitFailsWithoutHybridCapability(t *testing.T) {
	// GIVEN
	driver := &MockDriver{initErr: errors.New("driver not loaded")}
	controller := createController(driver, &MockProbe{capable: false}, &MockDeviceManager{})

	// WHEN
	status, err := controller.RefreshNow(context.Background())

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, StateNvidiaGpuNotFound, status.State)
}

func TestController_DeviceNotPowered(t *testing.T) {
	// GIVEN
	driver := &MockDriver{deviceErr: ErrNotPowered}
	controller := createController(driver, &MockProbe{}, &MockDeviceManager{})

	// WHEN
	status, err := controller.RefreshNow(context.Background())

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, StatePoweredOff, status.State)
	inits, shutdowns := driver.counts()
	assert.Equal(t, 1, inits)
	assert.Equal(t, 1, shutdowns)
}

func TestController_DeviceError(t *testing.T) {
	// GIVEN
	driver := &MockDriver{deviceErr: errors.New("unknown error")}
	controller := createController(driver, &MockProbe{}, &MockDeviceManager{})
	notified := 0
	controller.Subscribe(func(status Status) { notified++ })

	// WHEN
	status, err := controller.RefreshNow(context.Background())

	// THEN
	assert.EqualError(t, err, "get gpu device: unknown error")
	assert.Equal(t, StateUnknown, status.State)
	assert.Equal(t, 0, notified)
	_, shutdowns := driver.counts()
	assert.Equal(t, 1, shutdowns)
}

func TestController_MonitorConnectedRegardlessOfProcesses(t *testing.T) {
	// GIVEN
	driver := &MockDriver{device: &MockDevice{
		name:             "NVIDIA GeForce RTX 4070 Laptop GPU",
		performanceState: "P0",
		display:          true,
		processes:        []Process{{Pid: 1234, Name: "Xorg"}, {Pid: 4321, Name: "game"}},
		platformId:       "0000:01:00.0",
	}}
	controller := createController(driver, &MockProbe{}, &MockDeviceManager{})

	// WHEN
	status, err := controller.RefreshNow(context.Background())

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, StateMonitorConnected, status.State)
	assert.Equal(t, "NVIDIA GeForce RTX 4070 Laptop GPU", status.DeviceName)
	assert.Equal(t, "P0", status.PerformanceState)
	assert.Empty(t, status.InstanceId)
}

func TestController_Active(t *testing.T) {
	// GIVEN
	driver := &MockDriver{device: &MockDevice{
		performanceState: "P2",
		processes:        []Process{{Pid: 1234, Name: "blender"}},
		platformId:       "0000:01:00.0",
		utilization:      87,
	}}
	controller := createController(driver, &MockProbe{}, &MockDeviceManager{})

	// WHEN
	status, err := controller.RefreshNow(context.Background())

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, StateActive, status.State)
	assert.Equal(t, "0000:01:00.0", status.InstanceId)
	assert.Equal(t, []Process{{Pid: 1234, Name: "blender"}}, status.Processes)
	utilization, err := controller.Utilization()
	assert.NoError(t, err)
	assert.Equal(t, 87.0, utilization)
}

func TestController_Inactive(t *testing.T) {
	// GIVEN
	driver := &MockDriver{device: &MockDevice{
		performanceState: "P8",
		platformId:       "0000:01:00.0",
	}}
	controller := createController(driver, &MockProbe{}, &MockDeviceManager{})

	// WHEN
	status, err := controller.RefreshNow(context.Background())

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, StateInactive, status.State)
	assert.Equal(t, "0000:01:00.0", status.InstanceId)
}

func TestController_PanicIsRecoveredAndDriverShutDown(t *testing.T) {
	// GIVEN
	driver := &MockDriver{device: &MockDevice{panics: true}}
	controller := createController(driver, &MockProbe{}, &MockDeviceManager{})

	// WHEN
	status, err := controller.RefreshNow(context.Background())

	// THEN
	assert.Error(t, err)
	assert.Equal(t, StateUnknown, status.State)
	_, shutdowns := driver.counts()
	assert.Equal(t, 1, shutdowns)
}

func TestController_PanicInDriverInitializeIsRecovered(t *testing.T) {
	// GIVEN
	driver := &MockDriver{initPanics: true}
	controller := createController(driver, &MockProbe{}, &MockDeviceManager{})

	// WHEN
	status, err := controller.RefreshNow(context.Background())

	// THEN
	assert.EqualError(t, err, "gpu refresh panicked: driver library missing symbol")
	assert.Equal(t, StateUnknown, status.State)
	assert.Equal(t, StateUnknown, controller.LastKnownStatus().State)
	assert.Equal(t, 1, controller.RefreshCount())
	_, shutdowns := driver.counts()
	assert.Equal(t, 0, shutdowns)
}

func TestController_PanicInCapabilityCheckIsRecovered(t *testing.T) {
	// GIVEN
	hybrid := &MockProbe{panics: true}
	controller := createController(&MockDriver{initErr: errors.New("libnvidia-ml.so not found")}, hybrid, &MockDeviceManager{})

	// WHEN
	status, err := controller.RefreshNow(context.Background())

	// THEN
	assert.EqualError(t, err, "gpu refresh panicked: unexpected sysfs layout")
	assert.Equal(t, StateUnknown, status.State)
	assert.Equal(t, 1, hybrid.calls)
}

func TestController_LoopSurvivesPanicInDriverInitialize(t *testing.T) {
	// GIVEN
	driver := &MockDriver{initPanics: true}
	controller := createController(driver, &MockProbe{}, &MockDeviceManager{})

	// WHEN
	controller.Start(0, time.Millisecond)

	// THEN
	assert.Eventually(t, func() bool {
		return controller.RefreshCount() >= 3
	}, 2*time.Second, time.Millisecond)
	assert.True(t, controller.Stop(true))
}

func TestController_CanceledContext(t *testing.T) {
	// GIVEN
	driver := &MockDriver{device: &MockDevice{}}
	controller := createController(driver, &MockProbe{}, &MockDeviceManager{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// WHEN
	_, err := controller.RefreshNow(ctx)

	// THEN
	assert.ErrorIs(t, err, context.Canceled)
	inits, _ := driver.counts()
	assert.Equal(t, 0, inits)
}

func TestController_SubscribersReceiveSnapshots(t *testing.T) {
	// GIVEN
	device := &MockDevice{processes: []Process{{Pid: 1, Name: "a"}}, platformId: "0000:01:00.0"}
	controller := createController(&MockDriver{device: device}, &MockProbe{}, &MockDeviceManager{})
	var received []Status
	unsubscribe := controller.Subscribe(func(status Status) {
		status.Processes[0].Name = "modified"
		received = append(received, status)
	})

	// WHEN
	_, _ = controller.RefreshNow(context.Background())
	unsubscribe()
	_, _ = controller.RefreshNow(context.Background())

	// THEN
	assert.Len(t, received, 1)
	assert.Equal(t, StateActive, received[0].State)
	assert.Equal(t, "a", controller.LastKnownStatus().Processes[0].Name)
	assert.Equal(t, 0, controller.SubscriberCount())
}

func TestController_PanickingSubscriberDoesNotAffectOthers(t *testing.T) {
	// GIVEN
	controller := createController(&MockDriver{device: &MockDevice{}}, &MockProbe{}, &MockDeviceManager{})
	controller.Subscribe(func(status Status) { panic("boom") })
	called := false
	controller.Subscribe(func(status Status) { called = true })

	// WHEN
	_, err := controller.RefreshNow(context.Background())

	// THEN
	assert.NoError(t, err)
	assert.True(t, called)
}

func TestController_StateChangePublishesAlert(t *testing.T) {
	// GIVEN
	driver := &MockDriver{device: &MockDevice{platformId: "0000:01:00.0"}}
	sink := &MockAlertSink{}
	controller := NewController(driver, NewCapabilityCache(&MockProbe{}, time.Minute), &MockDeviceManager{}, sink, time.Second)

	// WHEN
	_, _ = controller.RefreshNow(context.Background())
	_, _ = controller.RefreshNow(context.Background())

	// THEN
	assert.Equal(t, 1, sink.Count())
	assert.Equal(t, "Unknown -> Inactive", sink.alerts[0].Message)
}

func TestController_StartIsIdempotent(t *testing.T) {
	// GIVEN
	driver := &MockDriver{device: &MockDevice{}}
	controller := createController(driver, &MockProbe{}, &MockDeviceManager{})

	// WHEN
	first := controller.Start(time.Hour, time.Hour)
	second := controller.Start(0, time.Millisecond)

	// THEN
	assert.True(t, first)
	assert.False(t, second)
	assert.True(t, controller.IsRunning())

	assert.True(t, controller.Stop(true))
	assert.False(t, controller.IsRunning())
	inits, _ := driver.counts()
	assert.Equal(t, 0, inits)
}

func TestController_LoopRefreshesPeriodically(t *testing.T) {
	// GIVEN
	driver := &MockDriver{device: &MockDevice{}}
	controller := createController(driver, &MockProbe{}, &MockDeviceManager{})

	var mu sync.Mutex
	refreshed := make(chan struct{}, 10)
	controller.Subscribe(func(status Status) {
		mu.Lock()
		defer mu.Unlock()
		select {
		case refreshed <- struct{}{}:
		default:
		}
	})

	// WHEN
	controller.Start(0, 5*time.Millisecond)

	// THEN
	for i := 0; i < 3; i++ {
		select {
		case <-refreshed:
		case <-time.After(2 * time.Second):
			t.Fatal("expected periodic refresh")
		}
	}
	assert.True(t, controller.Stop(true))
	assert.GreaterOrEqual(t, controller.RefreshCount(), 3)
}

func TestController_StopWaitIsBounded(t *testing.T) {
	// GIVEN
	gate := make(chan struct{})
	entered := make(chan struct{}, 1)
	driver := &MockDriver{device: &MockDevice{}, gate: gate, entered: entered}
	controller := NewController(driver, NewCapabilityCache(&MockProbe{}, time.Minute), &MockDeviceManager{}, nil, 20*time.Millisecond)
	controller.Start(0, time.Hour)
	defer close(gate)

	<-entered

	// WHEN
	start := time.Now()
	stopped := controller.Stop(true)

	// THEN
	assert.False(t, stopped)
	assert.Less(t, time.Since(start), time.Second)
}

func TestController_StartRefusedUntilTimedOutLoopExits(t *testing.T) {
	// GIVEN
	gate := make(chan struct{})
	entered := make(chan struct{}, 1)
	driver := &MockDriver{device: &MockDevice{}, gate: gate, entered: entered}
	controller := NewController(driver, NewCapabilityCache(&MockProbe{}, time.Minute), &MockDeviceManager{}, nil, 20*time.Millisecond)
	require.True(t, controller.Start(0, time.Hour))
	<-entered
	require.False(t, controller.Stop(true))

	// WHEN
	restarted := controller.Start(0, time.Hour)

	// THEN
	assert.False(t, restarted)
	assert.True(t, controller.IsRunning())

	close(gate)
	assert.Eventually(t, func() bool {
		return !controller.IsRunning()
	}, 2*time.Second, time.Millisecond)
	assert.True(t, controller.Start(time.Hour, time.Hour))
	assert.True(t, controller.Stop(true))
	inits, _ := driver.counts()
	assert.Equal(t, 1, inits)
}

func TestController_StopAfterTimeoutWaitsForSameLoop(t *testing.T) {
	// GIVEN
	gate := make(chan struct{})
	entered := make(chan struct{}, 1)
	driver := &MockDriver{device: &MockDevice{}, gate: gate, entered: entered}
	controller := NewController(driver, NewCapabilityCache(&MockProbe{}, time.Minute), &MockDeviceManager{}, nil, time.Second)
	controller.Start(0, time.Hour)
	<-entered
	controller.stopTimeout = 20 * time.Millisecond
	require.False(t, controller.Stop(true))
	controller.stopTimeout = time.Second

	// WHEN
	close(gate)
	stopped := controller.Stop(true)

	// THEN
	assert.True(t, stopped)
	assert.False(t, controller.IsRunning())
}

func TestController_Close(t *testing.T) {
	// GIVEN
	controller := createController(&MockDriver{device: &MockDevice{}}, &MockProbe{}, &MockDeviceManager{})
	controller.Subscribe(func(status Status) {})
	controller.Start(time.Hour, time.Hour)

	// WHEN
	controller.Close()
	controller.Close()

	// THEN
	assert.False(t, controller.IsRunning())
	assert.Equal(t, 0, controller.SubscriberCount())
	assert.False(t, controller.Start(0, time.Hour))
}

func TestController_RestartDevice(t *testing.T) {
	// GIVEN
	probe := &MockProbe{}
	devices := &MockDeviceManager{}
	controller := createController(&MockDriver{device: &MockDevice{platformId: "0000:01:00.0"}}, probe, devices)
	_, err := controller.RefreshNow(context.Background())
	require.NoError(t, err)

	// WHEN
	err = controller.RestartDevice(context.Background())

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, []string{"0000:01:00.0"}, devices.restarted)
}

func TestController_RestartDeviceInvalidState(t *testing.T) {
	// GIVEN
	devices := &MockDeviceManager{}
	controller := createController(&MockDriver{device: &MockDevice{display: true}}, &MockProbe{}, devices)
	_, _ = controller.RefreshNow(context.Background())

	// WHEN
	err := controller.RestartDevice(context.Background())

	// THEN
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.EqualError(t, err, "operation is not allowed in the current gpu state: MonitorConnected")
	assert.Empty(t, devices.restarted)
}

func TestController_RestartDeviceWithoutInstance(t *testing.T) {
	// GIVEN
	controller := createController(&MockDriver{device: &MockDevice{}}, &MockProbe{}, &MockDeviceManager{})
	_, _ = controller.RefreshNow(context.Background())

	// WHEN
	err := controller.RestartDevice(context.Background())

	// THEN
	assert.ErrorIs(t, err, ErrNoInstance)
}

func TestController_KillBoundProcessesContinuesOnFailure(t *testing.T) {
	// GIVEN
	devices := &MockDeviceManager{killErrs: map[uint32]error{2: errors.New("operation not permitted")}}
	controller := createController(&MockDriver{device: &MockDevice{
		processes:  []Process{{Pid: 1, Name: "a"}, {Pid: 2, Name: "b"}, {Pid: 3, Name: "c"}},
		platformId: "0000:01:00.0",
	}}, &MockProbe{}, devices)
	_, _ = controller.RefreshNow(context.Background())

	// WHEN
	killed, err := controller.KillBoundProcesses(context.Background())

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, 2, killed)
	assert.Equal(t, []uint32{1, 3}, devices.killed)
}

func TestController_InvalidateCapability(t *testing.T) {
	// GIVEN
	probe := &MockProbe{capable: true}
	controller := createController(&MockDriver{initErr: errors.New("no driver")}, probe, &MockDeviceManager{})
	_, _ = controller.RefreshNow(context.Background())
	_, _ = controller.RefreshNow(context.Background())
	assert.Equal(t, 1, probe.calls)

	// WHEN
	probe.capable = false
	controller.InvalidateCapability()
	status, _ := controller.RefreshNow(context.Background())

	// THEN
	assert.Equal(t, 2, probe.calls)
	assert.Equal(t, StateNvidiaGpuNotFound, status.State)
}
