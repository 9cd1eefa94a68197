package learning

import (
	"time"

	"github.com/vivekchamoli/legion2go/internal/util"
)

const (
	// expected temperature drop in °C per second at 100% fan speed
	expectedDropRate = 0.5
	// returned when no meaningful expectation exists
	neutralEffectiveness = 50.0
)

// CoolingEffectiveness scores (0-100) how much of the expected temperature drop
// for the given fan speed (in percent) and duration was actually observed
func CoolingEffectiveness(tempBefore float64, tempAfter float64, fanSpeed float64, duration time.Duration) float64 {
	expected := fanSpeed / 100 * duration.Seconds() * expectedDropRate
	if expected <= 0 {
		return neutralEffectiveness
	}
	actual := tempBefore - tempAfter
	return util.Coerce(actual/expected*100, 0, 100)
}
