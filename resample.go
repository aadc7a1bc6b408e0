package particlefilter

import (
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Resample replaces the population with N draws taken with replacement in
// proportion to weight. Each copy is fuzzed with a little position and
// heading jitter so duplicates do not collapse onto one point, and every
// weight is reset to 1/N.
func (pf *ParticleFilter) Resample() {
	n := len(pf.particles)
	if n == 0 {
		return
	}

	cum := floats.CumSum(make([]float64, n), pf.weights())
	total := cum[n-1]
	if total <= 0 {
		// nothing to prefer: draw uniformly
		for i := range cum {
			cum[i] = float64(i + 1)
		}
		total = float64(n)
	}

	var indices []int
	if pf.systematic {
		indices = systematicDraw(pf, cum, total)
	} else {
		indices = rouletteDraw(pf, cum, total)
	}

	next := make([]Particle, n)
	uniformWeight := 1 / float64(n)
	for i, idx := range indices {
		src := pf.particles[idx]
		next[i] = Particle{
			Pose: Pose{
				X:     src.X + uniform(pf.rng, pf.cfg.ResamplePositionJitter),
				Y:     src.Y + uniform(pf.rng, pf.cfg.ResamplePositionJitter),
				Theta: NormalizeAngle(src.Theta + uniform(pf.rng, pf.cfg.ResampleHeadingJitter)),
			},
			Weight: uniformWeight,
		}
	}

	pf.particles = next
	pf.logger.Debug("resampled", "cycle", pf.iteration, "particles", n, "systematic", pf.systematic)
}

// rouletteDraw picks, for every output slot, the first particle whose
// cumulative weight reaches an independent uniform draw in [0, total).
func rouletteDraw(pf *ParticleFilter, cum []float64, total float64) []int {
	indices := make([]int, len(cum))
	for i := range indices {
		indices[i] = searchCumulative(cum, uniformRange(pf.rng, 0, total))
	}
	return indices
}

// systematicDraw walks N evenly spaced pointers, offset by one random draw,
// along the cumulative weights.
func systematicDraw(pf *ParticleFilter, cum []float64, total float64) []int {
	n := len(cum)
	step := total / float64(n)
	start := uniformRange(pf.rng, 0, step)

	indices := make([]int, n)
	for i := range indices {
		indices[i] = searchCumulative(cum, start+float64(i)*step)
	}
	return indices
}

// searchCumulative returns the first index whose cumulative weight is >= u.
func searchCumulative(cum []float64, u float64) int {
	idx := sort.SearchFloat64s(cum, u)
	if idx >= len(cum) {
		// rounding can leave u a hair above the last sum
		idx = len(cum) - 1
	}
	return idx
}
