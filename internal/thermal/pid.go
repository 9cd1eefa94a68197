package thermal

import (
	"github.com/vivekchamoli/legion2go/internal/configuration"
	"github.com/vivekchamoli/legion2go/internal/util"
)

// PidAxis is the fan controller of a single thermal axis.
// It is not safe for concurrent use, the Agent serializes access.
type PidAxis struct {
	axis Axis

	gains Gains
	// allowed gain ranges
	kpRange configuration.RangeConfig
	kiRange configuration.RangeConfig
	kdRange configuration.RangeConfig

	// temperature variance thresholds for gain adaptation
	varianceHigh float64
	varianceLow  float64

	state ControlState
}

func NewPidAxis(axis Axis, config configuration.AxisConfig) *PidAxis {
	p := &PidAxis{
		axis:         axis,
		kpRange:      config.KpRange,
		kiRange:      config.KiRange,
		kdRange:      config.KdRange,
		varianceHigh: config.VarianceHigh,
		varianceLow:  config.VarianceLow,
	}
	p.SetGains(Gains{
		Kp: config.Gains.Kp,
		Ki: config.Gains.Ki,
		Kd: config.Gains.Kd,
	})
	return p
}

func (p *PidAxis) Axis() Axis {
	return p.axis
}

func (p *PidAxis) Gains() Gains {
	return p.gains
}

// SetGains replaces the current gains, clamped to the configured ranges
func (p *PidAxis) SetGains(gains Gains) {
	p.gains = Gains{
		Kp: util.Coerce(gains.Kp, p.kpRange.Min, p.kpRange.Max),
		Ki: util.Coerce(gains.Ki, p.kiRange.Min, p.kiRange.Max),
		Kd: util.Coerce(gains.Kd, p.kdRange.Min, p.kdRange.Max),
	}
}

func (p *PidAxis) State() ControlState {
	return p.state
}

func (p *PidAxis) Reset() {
	p.state = ControlState{}
}

// Step advances the controller and returns the fan speed in RPM
func (p *PidAxis) Step(current float64, target float64) float64 {
	state, speed := p.compute(current, target)
	p.state = state
	return speed
}

// compute evaluates the control law without modifying the controller
func (p *PidAxis) compute(current float64, target float64) (ControlState, float64) {
	err := current - target

	proportional := p.gains.Kp * err

	integral := util.Coerce(p.state.Integral+err, -IntegralLimit, IntegralLimit)
	integralTerm := p.gains.Ki * integral

	derivative := p.gains.Kd * (err - p.state.LastError)

	correction := proportional + integralTerm + derivative
	speed := util.Coerce(BaseFanSpeed+correction*CorrectionScale, MinFanSpeed, MaxFanSpeed)

	return ControlState{
		LastError: err,
		Integral:  integral,
	}, speed
}
