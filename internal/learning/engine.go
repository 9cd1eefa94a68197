package learning

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/vivekchamoli/legion2go/internal/configuration"
	"github.com/vivekchamoli/legion2go/internal/util"
)

const (
	BucketSize = 5
	MaxBuckets = 500
	// minimum number of recorded samples before a curve is generated
	LearningThreshold = 50

	CurveStart = 30
	CurveEnd   = 90
	CurveStep  = 6

	neighborRange = 10.0
	maxNeighbors  = 3

	MinSpeed = 30.0
	MaxSpeed = 100.0

	modeBias = 10.0

	trendThreshold = 2.0
	heatingBoost   = 15.0
	coolingCut     = 10.0
	Deadband       = 5.0

	highTemperature = 80.0
	lowTemperature  = 45.0
)

// Engine learns an empirical temperature -> fan speed curve from observations
type Engine struct {
	mu sync.RWMutex

	enabled bool
	buckets map[int]*DataPoint
	// sum of SampleCount over all buckets
	totalSamples int
	lastLoad     time.Time
}

func NewEngine(enabled bool) *Engine {
	return &Engine{
		enabled: enabled,
		buckets: map[int]*DataPoint{},
	}
}

func bucketOf(temperature float64) int {
	return int(math.Floor(temperature/BucketSize)) * BucketSize
}

// Record merges a single observation, it is ignored while learning is disabled
func (e *Engine) Record(temperature float64, fanSpeed float64, effectiveness float64) {
	if !util.IsFinite(temperature, fanSpeed, effectiveness) {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.enabled {
		return
	}
	e.record(temperature, fanSpeed, effectiveness, 1)
}

func (e *Engine) record(temperature float64, fanSpeed float64, effectiveness float64, weight int) {
	key := bucketOf(temperature)
	point, exists := e.buckets[key]
	if !exists {
		point = &DataPoint{Temperature: key}
		e.buckets[key] = point
	}

	total := float64(point.SampleCount + weight)
	point.FanSpeed = (point.FanSpeed*float64(point.SampleCount) + fanSpeed*float64(weight)) / total
	point.Effectiveness = (point.Effectiveness*float64(point.SampleCount) + effectiveness*float64(weight)) / total
	point.SampleCount += weight
	e.totalSamples += weight

	if len(e.buckets) > MaxBuckets {
		e.evictLeastConfident()
	}
}

func (e *Engine) evictLeastConfident() {
	victim := 0
	found := false
	for key, point := range e.buckets {
		if !found || point.SampleCount < e.buckets[victim].SampleCount ||
			(point.SampleCount == e.buckets[victim].SampleCount && key < victim) {
			victim = key
			found = true
		}
	}
	if found {
		e.totalSamples -= e.buckets[victim].SampleCount
		delete(e.buckets, victim)
	}
}

// GenerateCurve synthesizes fan speeds for 30..90°C in 6°C steps
func (e *Engine) GenerateCurve(mode configuration.PowerMode) ([]CurvePoint, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.totalSamples < LearningThreshold {
		return nil, fmt.Errorf("%w: %d of %d samples", ErrInsufficientData, e.totalSamples, LearningThreshold)
	}

	var curve []CurvePoint
	for temperature := CurveStart; temperature <= CurveEnd; temperature += CurveStep {
		curve = append(curve, CurvePoint{
			Temperature: float64(temperature),
			FanSpeed:    e.optimalSpeedFor(float64(temperature), mode),
		})
	}
	return curve, nil
}

// OptimalSpeedFor returns the fan speed in percent learned for the given temperature
func (e *Engine) OptimalSpeedFor(temperature float64, mode configuration.PowerMode) float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.optimalSpeedFor(temperature, mode)
}

func (e *Engine) optimalSpeedFor(temperature float64, mode configuration.PowerMode) float64 {
	speed, found := e.learnedSpeed(temperature)
	if !found {
		speed = util.Coerce((temperature-30)*2, MinSpeed, MaxSpeed)
	}

	switch mode {
	case configuration.PowerModeQuiet:
		speed = math.Max(speed-modeBias, MinSpeed)
	case configuration.PowerModePerformance:
		speed = math.Min(speed+modeBias, MaxSpeed)
	}
	return speed
}

// learnedSpeed averages the speeds of the nearest buckets within range
func (e *Engine) learnedSpeed(temperature float64) (float64, bool) {
	type neighbor struct {
		distance float64
		point    *DataPoint
	}
	var neighbors []neighbor
	for _, point := range e.buckets {
		distance := math.Abs(float64(point.Temperature) - temperature)
		if distance <= neighborRange {
			neighbors = append(neighbors, neighbor{distance: distance, point: point})
		}
	}
	if len(neighbors) == 0 {
		return 0, false
	}

	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].distance == neighbors[j].distance {
			return neighbors[i].point.Temperature < neighbors[j].point.Temperature
		}
		return neighbors[i].distance < neighbors[j].distance
	})
	if len(neighbors) > maxNeighbors {
		neighbors = neighbors[:maxNeighbors]
	}

	sum := 0.0
	for _, n := range neighbors {
		sum += n.point.FanSpeed
	}
	return sum / float64(len(neighbors)), true
}

// Suggest recommends a fan speed for the current situation.
// trend is the temperature change in °C per observation interval.
func (e *Engine) Suggest(temperature float64, currentSpeed float64, trend float64, mode configuration.PowerMode) Suggestion {
	optimal := e.OptimalSpeedFor(temperature, mode)

	recommended := optimal
	switch {
	case trend > trendThreshold:
		recommended = math.Min(optimal+heatingBoost, MaxSpeed)
	case trend < -trendThreshold:
		recommended = math.Max(optimal-coolingCut, MinSpeed)
	}

	if math.Abs(optimal-currentSpeed) < Deadband || math.Abs(recommended-currentSpeed) < Deadband {
		return Suggestion{
			ShouldAdjust:     false,
			RecommendedSpeed: currentSpeed,
			Reason:           "Current fan speed is within the deadband of the learned optimum",
		}
	}

	return Suggestion{
		ShouldAdjust:     true,
		RecommendedSpeed: recommended,
		Reason:           suggestionReason(temperature, trend),
	}
}

func suggestionReason(temperature float64, trend float64) string {
	switch {
	case trend > trendThreshold:
		return fmt.Sprintf("Temperature rising quickly (+%.1f°C), increasing fan speed ahead of the load", trend)
	case trend < -trendThreshold:
		return fmt.Sprintf("Temperature falling quickly (%.1f°C), reducing fan speed", trend)
	case temperature >= highTemperature:
		return fmt.Sprintf("High temperature (%.1f°C), prioritizing cooling", temperature)
	case temperature <= lowTemperature:
		return fmt.Sprintf("Low temperature (%.1f°C), reducing fan speed to save power", temperature)
	default:
		return fmt.Sprintf("Learned optimum for %.1f°C", temperature)
	}
}

// Load replays previously exported samples, regardless of the enabled state
func (e *Engine) Load(samples []TrainingSample) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, sample := range samples {
		if !util.IsFinite(sample.Temperature, sample.FanSpeed, sample.Effectiveness) {
			continue
		}
		weight := sample.Weight
		if weight <= 0 {
			weight = 1
		}
		e.record(sample.Temperature, sample.FanSpeed, sample.Effectiveness, weight)
	}
	e.lastLoad = time.Now()
}

// Export returns one training sample per bucket
func (e *Engine) Export() []TrainingSample {
	e.mu.RLock()
	defer e.mu.RUnlock()

	now := time.Now()
	result := make([]TrainingSample, 0, len(e.buckets))
	for _, key := range util.SortedKeys(e.buckets) {
		point := e.buckets[key]
		result = append(result, TrainingSample{
			Temperature:   float64(point.Temperature),
			FanSpeed:      point.FanSpeed,
			Effectiveness: point.Effectiveness,
			Weight:        point.SampleCount,
			Timestamp:     now,
		})
	}
	return result
}

// DataPoints returns a copy of all buckets ordered by temperature
func (e *Engine) DataPoints() []DataPoint {
	e.mu.RLock()
	defer e.mu.RUnlock()

	result := make([]DataPoint, 0, len(e.buckets))
	for _, key := range util.SortedKeys(e.buckets) {
		result = append(result, *e.buckets[key])
	}
	return result
}

func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	weighted := 0.0
	for _, point := range e.buckets {
		weighted += point.Effectiveness * float64(point.SampleCount)
	}
	average := 0.0
	if e.totalSamples > 0 {
		average = weighted / float64(e.totalSamples)
	}

	return Stats{
		TotalSamples:             e.totalSamples,
		UniqueTemperatureBuckets: len(e.buckets),
		AverageEffectiveness:     average,
		LearningEnabled:          e.enabled,
		HasSufficientData:        e.totalSamples >= LearningThreshold,
		LastLoadTime:             e.lastLoad,
	}
}

func (e *Engine) SetEnabled(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enabled = enabled
}

func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.buckets = map[int]*DataPoint{}
	e.totalSamples = 0
}

// LoadFrom restores the engine from the given store
func (e *Engine) LoadFrom(store SampleStore) error {
	samples, err := store.LoadTrainingSamples()
	if err != nil {
		return err
	}
	e.Load(samples)
	return nil
}

// SaveTo writes the current state of the engine to the given store
func (e *Engine) SaveTo(store SampleStore) error {
	return store.SaveTrainingSamples(e.Export())
}
