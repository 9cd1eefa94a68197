package statistics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/vivekchamoli/legion2go/internal/gpu"
)

const gpuSubsystem = "gpu"

var gpuStates = []gpu.State{
	gpu.StateUnknown,
	gpu.StateNvidiaGpuNotFound,
	gpu.StatePoweredOff,
	gpu.StateInactive,
	gpu.StateActive,
	gpu.StateMonitorConnected,
}

type GpuStatusProvider interface {
	LastKnownStatus() gpu.Status
	RefreshCount() int
}

type GpuCollector struct {
	controller GpuStatusProvider

	state       *prometheus.Desc
	processes   *prometheus.Desc
	utilization *prometheus.Desc
	refreshes   *prometheus.Desc
}

func NewGpuCollector(controller GpuStatusProvider) *GpuCollector {
	return &GpuCollector{
		controller: controller,
		state: prometheus.NewDesc(prometheus.BuildFQName(namespace, gpuSubsystem, "state"),
			"1 for the current lifecycle state of the dGPU",
			[]string{"state"}, nil,
		),
		processes: prometheus.NewDesc(prometheus.BuildFQName(namespace, gpuSubsystem, "processes"),
			"Number of processes bound to the dGPU",
			nil, nil,
		),
		utilization: prometheus.NewDesc(prometheus.BuildFQName(namespace, gpuSubsystem, "utilization_percent"),
			"dGPU utilization at the last refresh",
			nil, nil,
		),
		refreshes: prometheus.NewDesc(prometheus.BuildFQName(namespace, gpuSubsystem, "refreshes_total"),
			"Number of dGPU state refreshes",
			nil, nil,
		),
	}
}

func (collector *GpuCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- collector.state
	ch <- collector.processes
	ch <- collector.utilization
	ch <- collector.refreshes
}

func (collector *GpuCollector) Collect(ch chan<- prometheus.Metric) {
	status := collector.controller.LastKnownStatus()
	for _, state := range gpuStates {
		value := 0.0
		if state == status.State {
			value = 1
		}
		ch <- prometheus.MustNewConstMetric(collector.state, prometheus.GaugeValue, value, state.String())
	}
	ch <- prometheus.MustNewConstMetric(collector.processes, prometheus.GaugeValue, float64(len(status.Processes)))
	ch <- prometheus.MustNewConstMetric(collector.utilization, prometheus.GaugeValue, status.Utilization)
	ch <- prometheus.MustNewConstMetric(collector.refreshes, prometheus.CounterValue, float64(collector.controller.RefreshCount()))
}
