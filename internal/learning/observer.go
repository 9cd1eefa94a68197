package learning

import (
	"sync"
	"time"

	"github.com/asecurityteam/rolling"
	"github.com/vivekchamoli/legion2go/internal/configuration"
	"github.com/vivekchamoli/legion2go/internal/telemetry"
	"github.com/vivekchamoli/legion2go/internal/util"
)

// Observer turns the telemetry stream into learning observations.
// Temperatures are smoothed over a rolling window, every interval the smoothed
// temperature, the current fan speed and the resulting effectiveness are recorded.
type Observer struct {
	engine   *Engine
	interval time.Duration
	maxRpm   float64

	mu         sync.Mutex
	windowSize int
	window     *rolling.PointPolicy
	primed     bool

	lastTime     time.Time
	lastTemp     float64
	lastFanSpeed float64
	trend        float64
}

func NewObserver(engine *Engine, interval time.Duration, windowSize int, maxRpm int) *Observer {
	if windowSize <= 0 {
		windowSize = 1
	}
	return &Observer{
		engine:     engine,
		interval:   interval,
		maxRpm:     float64(maxRpm),
		windowSize: windowSize,
		window:     util.CreateRollingWindow(windowSize),
	}
}

// Observe consumes a telemetry sample, returns true if an observation was recorded
func (o *Observer) Observe(sample telemetry.Sample) bool {
	if !util.IsFinite(sample.CpuTemp, sample.FanSpeedRpm) {
		return false
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	fanSpeed := 0.0
	if o.maxRpm > 0 {
		fanSpeed = util.Coerce(sample.FanSpeedRpm/o.maxRpm*100, 0, 100)
	}
	o.lastFanSpeed = fanSpeed

	if !o.primed {
		// fill the whole window so the average is not biased towards zero
		for i := 0; i < o.windowSize; i++ {
			o.window.Append(sample.CpuTemp)
		}
		o.primed = true
		o.lastTime = sample.Timestamp
		o.lastTemp = sample.CpuTemp
		return false
	}
	o.window.Append(sample.CpuTemp)

	elapsed := sample.Timestamp.Sub(o.lastTime)
	if elapsed < o.interval {
		return false
	}

	smoothed := util.GetWindowAvg(o.window)
	effectiveness := CoolingEffectiveness(o.lastTemp, smoothed, fanSpeed, elapsed)

	o.engine.Record(smoothed, fanSpeed, effectiveness)

	o.trend = smoothed - o.lastTemp
	o.lastTemp = smoothed
	o.lastTime = sample.Timestamp
	return true
}

// Trend returns the smoothed temperature change of the last observation interval
func (o *Observer) Trend() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.trend
}

// Temperature returns the last smoothed temperature
func (o *Observer) Temperature() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastTemp
}

// Suggest asks the engine for a recommendation based on the latest observations
func (o *Observer) Suggest(mode configuration.PowerMode) Suggestion {
	o.mu.Lock()
	temperature, fanSpeed, trend := o.lastTemp, o.lastFanSpeed, o.trend
	o.mu.Unlock()
	return o.engine.Suggest(temperature, fanSpeed, trend, mode)
}
