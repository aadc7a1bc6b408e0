package particlefilter

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// EstimatePose reduces a weighted population to one pose: the weighted mean
// position and the weighted circular mean heading. When the weights sum to
// zero there is nothing to average and prev is returned with ok == false.
func EstimatePose(particles []Particle, prev Pose) (est Pose, ok bool) {
	if len(particles) == 0 {
		return prev, false
	}

	xs := make([]float64, len(particles))
	ys := make([]float64, len(particles))
	thetas := make([]float64, len(particles))
	ws := make([]float64, len(particles))
	for i, p := range particles {
		xs[i] = p.X
		ys[i] = p.Y
		thetas[i] = p.Theta
		ws[i] = p.Weight
	}

	if floats.Sum(ws) <= 0 {
		return prev, false
	}

	return Pose{
		X:     stat.Mean(xs, ws),
		Y:     stat.Mean(ys, ws),
		Theta: NormalizeAngle(stat.CircularMean(thetas, ws)),
	}, true
}
