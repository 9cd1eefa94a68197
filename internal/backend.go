package internal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vivekchamoli/legion2go/internal/alerts"
	"github.com/vivekchamoli/legion2go/internal/api"
	"github.com/vivekchamoli/legion2go/internal/configuration"
	"github.com/vivekchamoli/legion2go/internal/fans"
	"github.com/vivekchamoli/legion2go/internal/gpu"
	"github.com/vivekchamoli/legion2go/internal/history"
	"github.com/vivekchamoli/legion2go/internal/hwmon"
	"github.com/vivekchamoli/legion2go/internal/learning"
	"github.com/vivekchamoli/legion2go/internal/persistence"
	"github.com/vivekchamoli/legion2go/internal/power"
	"github.com/vivekchamoli/legion2go/internal/statistics"
	"github.com/vivekchamoli/legion2go/internal/telemetry"
	"github.com/vivekchamoli/legion2go/internal/thermal"
	"github.com/vivekchamoli/legion2go/internal/ui"
	"github.com/vivekchamoli/legion2go/internal/util"
)

const shutdownTimeout = 5 * time.Second

// daemon holds every component of a running daemon
type daemon struct {
	pers     persistence.Persistence
	bus      *alerts.Bus
	fanSink  fans.Sink
	legion   *fans.LegionSink
	power    *power.Writer
	agent    *thermal.Agent
	engine   *learning.Engine
	observer *learning.Observer
	gpu      *gpu.Controller
	recorder *history.Recorder
	monitor  *TelemetryMonitor
}

func RunDaemon() {
	if os.Geteuid() != 0 {
		ui.Fatal("Fan control requires root permissions to be able to modify fan speeds, please run legion2go as root")
	}

	d, err := initializeDaemon(configuration.CurrentConfig)
	if err != nil {
		ui.Fatal("%v", err)
	}
	registerCollectors(d)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var g run.Group
	{
		// === lifetime of all context bound actors
		g.Add(func() error {
			<-ctx.Done()
			return nil
		}, func(err error) {
			cancel()
		})
	}
	{
		g.Add(run.SignalHandler(ctx, os.Interrupt, syscall.SIGTERM))
	}
	if configuration.CurrentConfig.Statistics.Enabled {
		// === Prometheus Exporter
		port := configuration.CurrentConfig.Statistics.Port
		if port <= 0 || port >= 65535 {
			port = 9000
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		server := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}

		g.Add(func() error {
			ui.Info("Serving metrics on %s/metrics", server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("cannot start prometheus metrics endpoint: %w", err)
			}
			return nil
		}, func(err error) {
			shutdownServer(server.Shutdown, "statistics server")
		})
	}
	if configuration.CurrentConfig.Api.Enabled {
		// === REST api
		apiConfig := configuration.CurrentConfig.Api
		rest := api.CreateRestService(apiServices(d))
		addr := fmt.Sprintf("%s:%d", apiConfig.Host, apiConfig.Port)

		g.Add(func() error {
			ui.Info("Serving REST api on %s", addr)
			if err := rest.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("cannot start REST api: %w", err)
			}
			return nil
		}, func(err error) {
			shutdownServer(rest.Shutdown, "REST api")
		})
	}
	{
		g.Add(func() error {
			return d.bus.Run(ctx)
		}, func(err error) {
			cancel()
		})
	}
	if d.legion != nil {
		// === fan writer
		g.Add(func() error {
			err := d.legion.Run(ctx)
			ui.Info("Fan writer stopped.")
			return err
		}, func(err error) {
			cancel()
		})
	}
	if d.gpu != nil {
		// === gpu lifecycle loop
		gpuConfig := configuration.CurrentConfig.Gpu
		g.Add(func() error {
			d.gpu.Start(gpuConfig.StartDelay, gpuConfig.RefreshInterval)
			<-ctx.Done()
			return nil
		}, func(err error) {
			d.gpu.Close()
			ui.Info("GPU controller stopped.")
		})
	}
	if d.recorder != nil {
		// === control cycle history
		g.Add(func() error {
			return d.recorder.Run(ctx)
		}, func(err error) {
			cancel()
		})
	}
	if configuration.CurrentConfig.Learning.Enabled {
		// === periodic save of learned data
		saveInterval := configuration.CurrentConfig.Learning.SaveInterval
		g.Add(func() error {
			ticker := time.NewTicker(saveInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					if err := d.engine.SaveTo(d.pers); err != nil {
						ui.Warning("Unable to save learning data: %v", err)
					}
				}
			}
		}, func(err error) {
			cancel()
		})
	}
	{
		// === thermal control
		g.Add(func() error {
			err := d.monitor.Run(ctx)
			ui.Info("Thermal control stopped.")
			return err
		}, func(err error) {
			cancel()
		})
	}

	err = g.Run()
	shutdownDaemon(d)

	var signalErr run.SignalError
	if err != nil && !errors.As(err, &signalErr) && !errors.Is(err, context.Canceled) {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if errors.As(err, &signalErr) {
		ui.Info("Received %s signal, exiting...", signalErr.Signal)
	}
	ui.Info("Done.")
	os.Exit(0)
}

func initializeDaemon(config configuration.Configuration) (*daemon, error) {
	d := &daemon{}

	d.pers = persistence.NewPersistence(config.DbPath)
	if err := d.pers.Init(); err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	d.bus = alerts.NewBus(config.Alerts.QueueSize)
	d.bus.AddHandler(alerts.LogHandler)
	if config.Alerts.DesktopNotifications {
		d.bus.AddHandler(alerts.NotifyHandler)
	}

	if util.FileExists(config.Fans.PlatformPath) {
		d.legion = fans.NewLegionSink(config.Fans)
		d.fanSink = d.legion
		d.power = power.NewWriter(config.Fans.PlatformPath, config.Fans.RetryMaxElapsed)
		if err := applyPowerConfig(context.Background(), d.power, config.Power); err != nil {
			return nil, err
		}
	} else {
		ui.Warning("Platform driver not found at %s, fan speeds will not be applied", config.Fans.PlatformPath)
		d.fanSink = &fans.DryRunSink{}
	}

	d.agent = thermal.NewAgent(config.Thermal, d.fanSink, d.bus)
	restoreGains(d.pers, d.agent)

	d.engine = learning.NewEngine(config.Learning.Enabled)
	if err := d.engine.LoadFrom(d.pers); err != nil {
		ui.Warning("Unable to load learning data: %v", err)
	}

	var observer SampleObserver
	if config.Learning.Enabled {
		d.observer = learning.NewObserver(d.engine, config.Learning.SampleInterval, config.Learning.SmoothingWindowSize, config.Fans.MaxRpm)
		observer = d.observer
	}

	var gpuUtil telemetry.UtilizationReader
	if config.Gpu.Enabled {
		d.gpu = createGpuController(config.Gpu, d.bus)
		gpuUtil = d.gpu
	}

	cpuUtil, err := telemetry.NewCpuUtilization(config.Telemetry.ProcPath)
	if err != nil {
		return nil, fmt.Errorf("initialize cpu utilization: %w", err)
	}
	source, err := telemetry.NewLegionSource(config.Telemetry, config.Fans.PlatformPath, cpuUtil, gpuUtil, hwmon.FindChipPath)
	if err != nil {
		return nil, err
	}

	var recorder CycleRecorder
	if config.History.Enabled {
		d.recorder, err = history.NewRecorder(config.History)
		if err != nil {
			return nil, fmt.Errorf("initialize history: %w", err)
		}
		recorder = d.recorder
	}

	d.monitor = NewTelemetryMonitor(source, d.agent, observer, recorder, d.bus, config.Thermal.TickRate)
	return d, nil
}

// applyPowerConfig writes the configured power mode and limits, write failures are only logged
func applyPowerConfig(ctx context.Context, writer *power.Writer, config configuration.PowerConfig) error {
	if config.Mode != "" {
		if err := writer.SetMode(ctx, config.Mode); err != nil {
			ui.Warning("Unable to set power mode: %v", err)
		}
	}
	limits := power.LimitsFromConfig(config)
	if limits.IsEmpty() {
		return nil
	}
	if err := limits.Validate(); err != nil {
		return fmt.Errorf("power: %w", err)
	}
	if err := writer.SetLimits(ctx, limits); err != nil {
		ui.Warning("Unable to set power limits: %v", err)
	}
	return nil
}

func createGpuController(config configuration.GpuConfig, alertSink alerts.Sink) *gpu.Controller {
	capability := gpu.NewCapabilityCache(gpu.NewSysfsCapabilityProbe(config.PciDevicesPath), config.CapabilityTtl)
	devices := gpu.NewSysfsDeviceManager(config.PciDevicesPath)
	return gpu.NewController(gpu.NewNvmlDriver(), capability, devices, alertSink, config.StopTimeout)
}

// restoreGains replaces the configured gains with persisted ones, if any
func restoreGains(pers persistence.Persistence, agent *thermal.Agent) {
	cpu, gpuGains := agent.Gains()
	restored := false
	if gains, err := pers.LoadGains(thermal.AxisCpu); err == nil {
		cpu, restored = gains, true
	} else if !errors.Is(err, os.ErrNotExist) {
		ui.Warning("Unable to load cpu gains: %v", err)
	}
	if gains, err := pers.LoadGains(thermal.AxisGpu); err == nil {
		gpuGains, restored = gains, true
	} else if !errors.Is(err, os.ErrNotExist) {
		ui.Warning("Unable to load gpu gains: %v", err)
	}
	if restored {
		ui.Info("Restored PID gains: cpu %+v, gpu %+v", cpu, gpuGains)
		agent.RestoreGains(cpu, gpuGains)
	}
}

// saveState persists the learned data and the adapted gains
func saveState(pers persistence.Persistence, agent *thermal.Agent, engine *learning.Engine) {
	if err := engine.SaveTo(pers); err != nil {
		ui.Warning("Unable to save learning data: %v", err)
	}
	cpu, gpuGains := agent.Gains()
	if err := pers.SaveGains(thermal.AxisCpu, cpu); err != nil {
		ui.Warning("Unable to save cpu gains: %v", err)
	}
	if err := pers.SaveGains(thermal.AxisGpu, gpuGains); err != nil {
		ui.Warning("Unable to save gpu gains: %v", err)
	}
}

func shutdownDaemon(d *daemon) {
	if d.gpu != nil {
		d.gpu.Close()
	}
	saveState(d.pers, d.agent, d.engine)
	if d.recorder != nil {
		if err := d.recorder.Close(); err != nil {
			ui.Warning("Unable to close history: %v", err)
		}
	}
}

func shutdownServer(shutdown func(ctx context.Context) error, name string) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		ui.Warning("Error stopping %s: %v", name, err)
	} else {
		ui.Info("Stopped %s.", name)
	}
}

func registerCollectors(d *daemon) {
	statistics.Register(statistics.NewThermalCollector(d.agent))
	statistics.Register(statistics.NewLearningCollector(d.engine))
	if d.gpu != nil {
		statistics.Register(statistics.NewGpuCollector(d.gpu))
	}
	var sinkStats statistics.FanSinkStatsProvider
	if d.legion != nil {
		sinkStats = d.legion
	}
	statistics.Register(statistics.NewActuationCollector(d.bus, sinkStats))
}

func apiServices(d *daemon) api.Services {
	services := api.Services{
		Thermal:     d.agent,
		Learning:    d.engine,
		DefaultMode: configuration.CurrentConfig.Learning.DefaultMode,
		Registerer:  prometheus.DefaultRegisterer,
	}
	if d.recorder != nil {
		services.History = d.recorder
	}
	if d.observer != nil {
		services.Suggestions = d.observer
	}
	if d.gpu != nil {
		services.Gpu = d.gpu
	}
	if d.power != nil {
		services.Power = d.power
	}
	return services
}
