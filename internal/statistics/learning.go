package statistics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/vivekchamoli/legion2go/internal/learning"
)

const learningSubsystem = "learning"

type LearningStatsProvider interface {
	Stats() learning.Stats
}

type LearningCollector struct {
	engine LearningStatsProvider

	samples       *prometheus.Desc
	buckets       *prometheus.Desc
	effectiveness *prometheus.Desc
	sufficient    *prometheus.Desc
}

func NewLearningCollector(engine LearningStatsProvider) *LearningCollector {
	return &LearningCollector{
		engine: engine,
		samples: prometheus.NewDesc(prometheus.BuildFQName(namespace, learningSubsystem, "samples"),
			"Number of observations merged into the learned curve",
			nil, nil,
		),
		buckets: prometheus.NewDesc(prometheus.BuildFQName(namespace, learningSubsystem, "buckets"),
			"Number of temperature buckets with learned data",
			nil, nil,
		),
		effectiveness: prometheus.NewDesc(prometheus.BuildFQName(namespace, learningSubsystem, "effectiveness"),
			"Average cooling effectiveness over all observations",
			nil, nil,
		),
		sufficient: prometheus.NewDesc(prometheus.BuildFQName(namespace, learningSubsystem, "sufficient_data"),
			"1 if enough observations exist to generate a curve",
			nil, nil,
		),
	}
}

func (collector *LearningCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- collector.samples
	ch <- collector.buckets
	ch <- collector.effectiveness
	ch <- collector.sufficient
}

func (collector *LearningCollector) Collect(ch chan<- prometheus.Metric) {
	stats := collector.engine.Stats()
	sufficient := 0.0
	if stats.HasSufficientData {
		sufficient = 1
	}

	ch <- prometheus.MustNewConstMetric(collector.samples, prometheus.GaugeValue, float64(stats.TotalSamples))
	ch <- prometheus.MustNewConstMetric(collector.buckets, prometheus.GaugeValue, float64(stats.UniqueTemperatureBuckets))
	ch <- prometheus.MustNewConstMetric(collector.effectiveness, prometheus.GaugeValue, stats.AverageEffectiveness)
	ch <- prometheus.MustNewConstMetric(collector.sufficient, prometheus.GaugeValue, sufficient)
}
