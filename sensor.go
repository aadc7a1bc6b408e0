package particlefilter

import (
	"math"
)

// Sensor defaults.
const (
	MaxRange         = 5.0
	DefaultSigma     = 0.3
	DefaultHalfWidth = math.Pi / 4
)

// Direction is one of the four fixed relative bearings the range sensor reports.
type Direction int

const (
	Front Direction = iota
	Left
	Right
	Back
)

// Directions lists every Direction in Reading order.
var Directions = [...]Direction{Front, Left, Right, Back}

// Offset is the bearing of d relative to the agent's heading.
func (d Direction) Offset() float64 {
	switch d {
	case Left:
		return math.Pi / 2
	case Right:
		return -math.Pi / 2
	case Back:
		return math.Pi
	default:
		return 0
	}
}

func (d Direction) String() string {
	switch d {
	case Front:
		return "front"
	case Left:
		return "left"
	case Right:
		return "right"
	case Back:
		return "back"
	}
	return "unknown"
}

// Reading holds one range per Direction.
type Reading [4]float64

// NewReading builds a clamped reading.
func NewReading(front, left, right, back float64) Reading {
	return Reading{front, left, right, back}.Clamp()
}

// UniformReading returns a reading with every direction set to v, clamped.
func UniformReading(v float64) Reading {
	return NewReading(v, v, v, v)
}

// Clamp returns r with every range clamped to [0, MaxRange].
func (r Reading) Clamp() Reading {
	for i := range r {
		r[i] = ClampRange(r[i])
	}
	return r
}

// Min is the shortest range in the reading.
func (r Reading) Min() float64 {
	return math.Min(math.Min(r[Front], r[Left]), math.Min(r[Right], r[Back]))
}

// ClampRange maps an unbounded or out-of-range value into [0, MaxRange].
// NaN and +Inf mean "no return" and become MaxRange.
func ClampRange(v float64) float64 {
	switch {
	case math.IsNaN(v), v > MaxRange:
		return MaxRange
	case v < 0:
		return 0
	}
	return v
}

// Scorer assigns an unnormalized plausibility to a pose given an observation.
type Scorer interface {
	Score(p Pose, observed Reading) float64
}

// SensorModel predicts what the range sensor should see from a pose on the
// map and scores observations against that prediction.
type SensorModel struct {
	Map       *Map
	MaxRange  float64
	Sigma     float64
	HalfWidth float64
}

// NewSensorModel returns a sensor model over m with default parameters.
func NewSensorModel(m *Map) *SensorModel {
	return &SensorModel{
		Map:       m,
		MaxRange:  MaxRange,
		Sigma:     DefaultSigma,
		HalfWidth: DefaultHalfWidth,
	}
}

// PredictReading returns, per direction, the distance to the nearest obstacle
// whose bearing from p lies within HalfWidth of that direction, or MaxRange
// when none qualifies.
func (s *SensorModel) PredictReading(p Pose) Reading {
	var out Reading
	for _, d := range Directions {
		out[d] = s.MaxRange
	}
	if s.Map == nil {
		return out
	}

	for _, o := range s.Map.obstacles {
		dx := o.X - p.X
		dy := o.Y - p.Y
		dist := math.Hypot(dx, dy)
		bearing := math.Atan2(dy, dx)
		for _, d := range Directions {
			if dist >= out[d] {
				continue
			}
			if AngleDiff(bearing, p.Theta+d.Offset()) < s.HalfWidth {
				out[d] = dist
			}
		}
	}
	return out
}

// Likelihood scores observed against predicted as the product of one
// unnormalized Gaussian kernel per direction. With several large errors the
// product underflows to exactly zero; callers must tolerate that.
func (s *SensorModel) Likelihood(observed, predicted Reading) float64 {
	likelihood := 1.0
	twoSigmaSq := 2 * s.Sigma * s.Sigma
	for _, d := range Directions {
		err := observed[d] - predicted[d]
		likelihood *= math.Exp(-(err * err) / twoSigmaSq)
	}
	return likelihood
}

// LogLikelihood is the natural log of Likelihood computed without underflow.
// It is reported for diagnostics; the filter weighs in the linear domain.
func (s *SensorModel) LogLikelihood(observed, predicted Reading) float64 {
	total := 0.0
	twoSigmaSq := 2 * s.Sigma * s.Sigma
	for _, d := range Directions {
		err := observed[d] - predicted[d]
		total -= (err * err) / twoSigmaSq
	}
	return total
}

// Score implements Scorer.
func (s *SensorModel) Score(p Pose, observed Reading) float64 {
	return s.Likelihood(observed, s.PredictReading(p))
}
