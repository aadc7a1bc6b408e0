// Package sim drives a simulated differential-drive agent around a map and
// produces the noisy range readings the localizer consumes. It stands in for
// the robot or simulator I/O layer.
package sim

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	pf "github.com/jhoydich/range-localizer"
)

// GroundTruth is the optional true-position device. Localization never uses
// it; it exists for validation and result logging only.
type GroundTruth interface {
	Position() pf.Pose
}

// World senses from the agent's true pose against a map.
type World struct {
	sensor     *pf.SensorModel
	rangeNoise distuv.Normal
}

// NewWorld builds a world over m whose readings carry Gaussian noise with the
// given standard deviation. A zero sigma gives exact readings.
func NewWorld(m *pf.Map, rangeSigma float64, rng *rand.Rand) *World {
	return &World{
		sensor:     pf.NewSensorModel(m),
		rangeNoise: distuv.Normal{Mu: 0, Sigma: rangeSigma, Src: rng},
	}
}

// Sense returns the clamped reading an agent at p would report.
func (w *World) Sense(p pf.Pose) pf.Reading {
	r := w.sensor.PredictReading(p)
	if w.rangeNoise.Sigma > 0 {
		for i := range r {
			r[i] += w.rangeNoise.Rand()
		}
	}
	return r.Clamp()
}

// Agent is a simulated robot with an exactly known pose.
type Agent struct {
	pose   pf.Pose
	motion *pf.MotionModel
}

// NewAgent places an agent at start. Its motion is noise-free.
func NewAgent(start pf.Pose, rng *rand.Rand) *Agent {
	m := pf.NewMotionModel(rng)
	m.PositionNoise = 0
	m.HeadingNoise = 0
	return &Agent{pose: pf.NewPose(start.X, start.Y, start.Theta), motion: m}
}

// Drive applies one command.
func (a *Agent) Drive(cmd pf.MotionCommand) {
	a.pose = a.motion.Predict(a.pose, cmd)
}

// Position implements GroundTruth.
func (a *Agent) Position() pf.Pose {
	return a.pose
}

// Truth pairs an optional GroundTruth with whether it is present. It is
// resolved once when the harness is set up.
type Truth struct {
	source GroundTruth
}

// WithTruth wraps a present device; a nil device is the same as NoTruth.
func WithTruth(g GroundTruth) Truth { return Truth{source: g} }

// NoTruth is the absent device.
func NoTruth() Truth { return Truth{} }

// Get returns the current true pose and whether a device is present.
func (t Truth) Get() (pf.Pose, bool) {
	if t.source == nil {
		return pf.Pose{}, false
	}
	return t.source.Position(), true
}

// Present reports whether ground truth is available.
func (t Truth) Present() bool { return t.source != nil }
