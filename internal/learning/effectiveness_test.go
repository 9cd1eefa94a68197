package learning

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCoolingEffectiveness(t *testing.T) {
	// 80% for 10s is expected to drop 4°C
	assert.InDelta(t, 50.0, CoolingEffectiveness(70, 68, 80, 10*time.Second), 0.0001)
	assert.InDelta(t, 100.0, CoolingEffectiveness(70, 60, 80, 10*time.Second), 0.0001)
	assert.InDelta(t, 0.0, CoolingEffectiveness(70, 72, 80, 10*time.Second), 0.0001)
}

func TestCoolingEffectiveness_NoExpectation(t *testing.T) {
	assert.Equal(t, 50.0, CoolingEffectiveness(70, 60, 0, 10*time.Second))
	assert.Equal(t, 50.0, CoolingEffectiveness(70, 60, 80, 0))
	assert.Equal(t, 50.0, CoolingEffectiveness(70, 60, -10, time.Second))
}
