package util

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Coerce returns value limited to the range [min, max]
func Coerce[T constraints.Integer | constraints.Float](value, min, max T) T {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// Avg calculates the average of all values in the given array
func Avg(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for i := 0; i < len(values); i++ {
		sum += values[i]
	}
	return sum / (float64(len(values)))
}

// Variance calculates the population variance of the given values
func Variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := Avg(values)
	sum := 0.0
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return sum / float64(len(values))
}

// IsFinite returns false for NaN and +/-Inf
func IsFinite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
