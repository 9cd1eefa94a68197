package statistics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/vivekchamoli/legion2go/internal/thermal"
)

const thermalSubsystem = "thermal"

type ThermalStatsProvider interface {
	Stats() thermal.Stats
}

type ThermalCollector struct {
	agent ThermalStatsProvider

	cycles      *prometheus.Desc
	faults      *prometheus.Desc
	emergencies *prometheus.Desc
	adaptations *prometheus.Desc
	gain        *prometheus.Desc
	integral    *prometheus.Desc
	temperature *prometheus.Desc
	target      *prometheus.Desc
	fanSpeed    *prometheus.Desc
}

func NewThermalCollector(agent ThermalStatsProvider) *ThermalCollector {
	return &ThermalCollector{
		agent: agent,
		cycles: prometheus.NewDesc(prometheus.BuildFQName(namespace, thermalSubsystem, "cycles_total"),
			"Number of completed control cycles",
			nil, nil,
		),
		faults: prometheus.NewDesc(prometheus.BuildFQName(namespace, thermalSubsystem, "faults_total"),
			"Number of control cycles skipped because of a fault",
			nil, nil,
		),
		emergencies: prometheus.NewDesc(prometheus.BuildFQName(namespace, thermalSubsystem, "emergencies_total"),
			"Number of control cycles with a critical temperature",
			nil, nil,
		),
		adaptations: prometheus.NewDesc(prometheus.BuildFQName(namespace, thermalSubsystem, "adaptations_total"),
			"Number of gain adaptation passes",
			nil, nil,
		),
		gain: prometheus.NewDesc(prometheus.BuildFQName(namespace, thermalSubsystem, "gain"),
			"Current PID gain",
			[]string{"axis", "term"}, nil,
		),
		integral: prometheus.NewDesc(prometheus.BuildFQName(namespace, thermalSubsystem, "integral"),
			"Current integral accumulator of the PID controller",
			[]string{"axis"}, nil,
		),
		temperature: prometheus.NewDesc(prometheus.BuildFQName(namespace, thermalSubsystem, "temperature_celsius"),
			"Temperature of the last control cycle",
			[]string{"sensor"}, nil,
		),
		target: prometheus.NewDesc(prometheus.BuildFQName(namespace, thermalSubsystem, "target_celsius"),
			"Target temperature of the last control cycle",
			[]string{"axis"}, nil,
		),
		fanSpeed: prometheus.NewDesc(prometheus.BuildFQName(namespace, thermalSubsystem, "fan_speed_rpm"),
			"Fan speed commanded by the last control cycle",
			[]string{"axis"}, nil,
		),
	}
}

func (collector *ThermalCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- collector.cycles
	ch <- collector.faults
	ch <- collector.emergencies
	ch <- collector.adaptations
	ch <- collector.gain
	ch <- collector.integral
	ch <- collector.temperature
	ch <- collector.target
	ch <- collector.fanSpeed
}

func (collector *ThermalCollector) Collect(ch chan<- prometheus.Metric) {
	stats := collector.agent.Stats()

	ch <- prometheus.MustNewConstMetric(collector.cycles, prometheus.CounterValue, float64(stats.Cycles))
	ch <- prometheus.MustNewConstMetric(collector.faults, prometheus.CounterValue, float64(stats.Faults))
	ch <- prometheus.MustNewConstMetric(collector.emergencies, prometheus.CounterValue, float64(stats.Emergencies))
	ch <- prometheus.MustNewConstMetric(collector.adaptations, prometheus.CounterValue, float64(stats.Adaptations))

	for axis, gains := range map[thermal.Axis]thermal.Gains{thermal.AxisCpu: stats.CpuGains, thermal.AxisGpu: stats.GpuGains} {
		ch <- prometheus.MustNewConstMetric(collector.gain, prometheus.GaugeValue, gains.Kp, string(axis), "kp")
		ch <- prometheus.MustNewConstMetric(collector.gain, prometheus.GaugeValue, gains.Ki, string(axis), "ki")
		ch <- prometheus.MustNewConstMetric(collector.gain, prometheus.GaugeValue, gains.Kd, string(axis), "kd")
	}
	ch <- prometheus.MustNewConstMetric(collector.integral, prometheus.GaugeValue, stats.CpuState.Integral, string(thermal.AxisCpu))
	ch <- prometheus.MustNewConstMetric(collector.integral, prometheus.GaugeValue, stats.GpuState.Integral, string(thermal.AxisGpu))

	last := stats.LastResult
	if last == nil {
		return
	}
	ch <- prometheus.MustNewConstMetric(collector.temperature, prometheus.GaugeValue, last.CpuTemp, "cpu")
	ch <- prometheus.MustNewConstMetric(collector.temperature, prometheus.GaugeValue, last.GpuTemp, "gpu")
	ch <- prometheus.MustNewConstMetric(collector.temperature, prometheus.GaugeValue, last.VrmTemp, "vrm")
	ch <- prometheus.MustNewConstMetric(collector.target, prometheus.GaugeValue, last.Targets.Cpu, string(thermal.AxisCpu))
	ch <- prometheus.MustNewConstMetric(collector.target, prometheus.GaugeValue, last.Targets.Gpu, string(thermal.AxisGpu))
	ch <- prometheus.MustNewConstMetric(collector.fanSpeed, prometheus.GaugeValue, last.CpuFanSpeed, string(thermal.AxisCpu))
	ch <- prometheus.MustNewConstMetric(collector.fanSpeed, prometheus.GaugeValue, last.GpuFanSpeed, string(thermal.AxisGpu))
}
