package particlefilter

import "math"

const twoPi = 2 * math.Pi

// Point is a 2-D map coordinate.
type Point struct {
	X float64
	Y float64
}

// Pose is a position plus heading. Theta is kept in [0, 2π).
type Pose struct {
	X     float64
	Y     float64
	Theta float64
}

// NewPose returns a pose with its heading normalized.
func NewPose(x, y, theta float64) Pose {
	return Pose{X: x, Y: y, Theta: NormalizeAngle(theta)}
}

// Point drops the heading.
func (p Pose) Point() Point {
	return Point{X: p.X, Y: p.Y}
}

// DistanceTo is the planar distance between two poses, ignoring heading.
func (p Pose) DistanceTo(o Pose) float64 {
	return math.Hypot(p.X-o.X, p.Y-o.Y)
}

// NormalizeAngle maps a into [0, 2π).
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a, twoPi)
	if a < 0 {
		a += twoPi
	}
	// math.Mod of a tiny negative value can round up to exactly 2π
	if a >= twoPi {
		a = 0
	}
	return a
}

// AngleDiff returns the unsigned angular distance between a and b in [0, π].
func AngleDiff(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), twoPi)
	return math.Min(d, twoPi-d)
}
