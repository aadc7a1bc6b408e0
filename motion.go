package particlefilter

import (
	"math"
	"math/rand/v2"
)

// Physical constants of the differential-drive base.
const (
	DefaultWheelRadius = 0.0325
	DefaultWheelBase   = 0.16

	DefaultPositionNoise = 0.01
	DefaultHeadingNoise  = 0.05
)

// MotionCommand is the input to one prediction step: wheel angular speeds
// and the time they were applied for, in seconds.
type MotionCommand struct {
	Left  float64
	Right float64
	DT    float64
}

// Finite reports whether every field of c is a finite number.
func (c MotionCommand) Finite() bool {
	return finite(c.Left) && finite(c.Right) && finite(c.DT)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Velocities converts wheel speeds to body linear and angular velocity.
func (c MotionCommand) Velocities(wheelRadius, wheelBase float64) (linear, angular float64) {
	vLeft := c.Left * wheelRadius
	vRight := c.Right * wheelRadius
	return (vLeft + vRight) / 2, (vRight - vLeft) / wheelBase
}

// MotionModel advances pose hypotheses with differential-drive kinematics
// and uniform process noise.
type MotionModel struct {
	WheelRadius float64
	WheelBase   float64
	// PositionNoise and HeadingNoise are half-widths of the uniform noise
	// added to the x/y and theta rates.
	PositionNoise float64
	HeadingNoise  float64

	rng *rand.Rand
}

// NewMotionModel returns a motion model with the default robot geometry and
// noise, drawing from rng.
func NewMotionModel(rng *rand.Rand) *MotionModel {
	return &MotionModel{
		WheelRadius:   DefaultWheelRadius,
		WheelBase:     DefaultWheelBase,
		PositionNoise: DefaultPositionNoise,
		HeadingNoise:  DefaultHeadingNoise,
		rng:           rng,
	}
}

// Predict integrates one forward-Euler step of the command from p.
func (m *MotionModel) Predict(p Pose, cmd MotionCommand) Pose {
	linear, angular := cmd.Velocities(m.WheelRadius, m.WheelBase)

	noiseX := uniform(m.rng, m.PositionNoise)
	noiseY := uniform(m.rng, m.PositionNoise)
	noiseTheta := uniform(m.rng, m.HeadingNoise)

	return Pose{
		X:     p.X + (linear*math.Cos(p.Theta)+noiseX)*cmd.DT,
		Y:     p.Y + (linear*math.Sin(p.Theta)+noiseY)*cmd.DT,
		Theta: NormalizeAngle(p.Theta + (angular+noiseTheta)*cmd.DT),
	}
}
