package statistics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/vivekchamoli/legion2go/internal/alerts"
	"github.com/vivekchamoli/legion2go/internal/fans"
)

type AlertCounter interface {
	CountsByKind() map[alerts.Kind]int64
	Dropped() int64
}

type FanSinkStatsProvider interface {
	Stats() fans.SinkStats
}

// ActuationCollector exposes alert and fan write counters
type ActuationCollector struct {
	alerts AlertCounter
	sink   FanSinkStatsProvider

	published *prometheus.Desc
	dropped   *prometheus.Desc
	writes    *prometheus.Desc
	failures  *prometheus.Desc
}

func NewActuationCollector(alertCounter AlertCounter, sink FanSinkStatsProvider) *ActuationCollector {
	return &ActuationCollector{
		alerts: alertCounter,
		sink:   sink,
		published: prometheus.NewDesc(prometheus.BuildFQName(namespace, "alerts", "published_total"),
			"Number of published alerts",
			[]string{"kind"}, nil,
		),
		dropped: prometheus.NewDesc(prometheus.BuildFQName(namespace, "alerts", "dropped_total"),
			"Number of alerts dropped because the queue was full",
			nil, nil,
		),
		writes: prometheus.NewDesc(prometheus.BuildFQName(namespace, "fan", "writes_total"),
			"Number of fan target writes",
			nil, nil,
		),
		failures: prometheus.NewDesc(prometheus.BuildFQName(namespace, "fan", "write_failures_total"),
			"Number of failed fan target writes",
			nil, nil,
		),
	}
}

func (collector *ActuationCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- collector.published
	ch <- collector.dropped
	ch <- collector.writes
	ch <- collector.failures
}

func (collector *ActuationCollector) Collect(ch chan<- prometheus.Metric) {
	for kind, count := range collector.alerts.CountsByKind() {
		ch <- prometheus.MustNewConstMetric(collector.published, prometheus.CounterValue, float64(count), string(kind))
	}
	ch <- prometheus.MustNewConstMetric(collector.dropped, prometheus.CounterValue, float64(collector.alerts.Dropped()))

	if collector.sink == nil {
		return
	}
	stats := collector.sink.Stats()
	ch <- prometheus.MustNewConstMetric(collector.writes, prometheus.CounterValue, float64(stats.Writes))
	ch <- prometheus.MustNewConstMetric(collector.failures, prometheus.CounterValue, float64(stats.Failures))
}
