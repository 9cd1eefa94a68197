package learning

import (
	"errors"
	"time"
)

var ErrInsufficientData = errors.New("not enough learning data")

// DataPoint is the learned state of a single temperature bucket
type DataPoint struct {
	// lower bound of the bucket in °C
	Temperature int `json:"temperature"`
	// running average of the fan speed in percent
	FanSpeed float64 `json:"fanSpeed"`
	// running average of the cooling effectiveness (0-100)
	Effectiveness float64 `json:"effectiveness"`
	SampleCount   int     `json:"sampleCount"`
}

// TrainingSample is the persisted form of learned data
type TrainingSample struct {
	Temperature   float64   `json:"temperature"`
	FanSpeed      float64   `json:"fanSpeed"`
	Effectiveness float64   `json:"effectiveness"`
	// number of observations this sample represents, 1 if unset
	Weight    int       `json:"weight,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type CurvePoint struct {
	Temperature float64 `json:"temperature"`
	FanSpeed    float64 `json:"fanSpeed"`
}

type Suggestion struct {
	ShouldAdjust     bool    `json:"shouldAdjust"`
	RecommendedSpeed float64 `json:"recommendedSpeed"`
	Reason           string  `json:"reason"`
}

type Stats struct {
	TotalSamples             int       `json:"totalSamples"`
	UniqueTemperatureBuckets int       `json:"uniqueTemperatureBuckets"`
	AverageEffectiveness     float64   `json:"averageEffectiveness"`
	LearningEnabled          bool      `json:"learningEnabled"`
	HasSufficientData        bool      `json:"hasSufficientData"`
	LastLoadTime             time.Time `json:"lastLoadTime"`
}

// SampleStore persists training samples between runs
type SampleStore interface {
	LoadTrainingSamples() ([]TrainingSample, error)
	SaveTrainingSamples(samples []TrainingSample) error
}
