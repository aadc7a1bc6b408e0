package particlefilter

import (
	"fmt"
	"log/slog"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"

	"github.com/jhoydich/range-localizer/internal/log"
)

// Particle is one weighted pose hypothesis.
type Particle struct {
	Pose
	Weight float64
}

// UpdateWeight sets the particle's weight.
func (p *Particle) UpdateWeight(weight float64) {
	p.Weight = weight
}

// ParticleFilter owns a fixed-size population of pose hypotheses and runs the
// predict, weigh, resample and estimate cycle over it.
//
// A ParticleFilter is not safe for concurrent use. It starts no goroutines and
// performs no I/O; one call to Step is one control tick.
type ParticleFilter struct {
	cfg        Config
	worldMap   *Map
	motion     *MotionModel
	sensor     *SensorModel
	scorer     Scorer
	rng        *rand.Rand
	logger     *slog.Logger
	systematic bool
	seed       []Particle

	particles  []Particle
	estimate   Pose
	iteration  int
	degenerate int
}

// Option customizes a ParticleFilter at construction.
type Option func(*ParticleFilter)

// WithLogger sets the logger used for debug diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(pf *ParticleFilter) {
		if l != nil {
			pf.logger = l
		}
	}
}

// WithParticles seeds the population explicitly instead of sampling it from
// the map. The slice must hold exactly NumParticles entries; it is copied.
func WithParticles(particles []Particle) Option {
	return func(pf *ParticleFilter) {
		pf.seed = append([]Particle(nil), particles...)
	}
}

// WithScorer replaces the map-based sensor model as the weighting function.
func WithScorer(s Scorer) Option {
	return func(pf *ParticleFilter) {
		if s != nil {
			pf.scorer = s
		}
	}
}

// WithSystematicResampling switches from multinomial to systematic
// resampling, which draws one random offset per resample instead of N.
func WithSystematicResampling() Option {
	return func(pf *ParticleFilter) {
		pf.systematic = true
	}
}

// New builds a filter over m. A nil or empty map is replaced by FallbackMap.
// All randomness is drawn from rng.
func New(cfg Config, m *Map, rng *rand.Rand, opts ...Option) (*ParticleFilter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid filter config: %w", err)
	}
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}

	m = MapOrFallback(m)

	motion := NewMotionModel(rng)
	motion.WheelRadius = cfg.WheelRadius
	motion.WheelBase = cfg.WheelBase
	motion.PositionNoise = cfg.PositionNoise
	motion.HeadingNoise = cfg.HeadingNoise

	sensor := NewSensorModel(m)
	sensor.MaxRange = cfg.MaxRange
	sensor.Sigma = cfg.Sigma
	sensor.HalfWidth = cfg.HalfWidth

	pf := &ParticleFilter{
		cfg:      cfg,
		worldMap: m,
		motion:   motion,
		sensor:   sensor,
		scorer:   sensor,
		rng:      rng,
		logger:   log.With("component", "particlefilter"),
	}
	for _, opt := range opts {
		opt(pf)
	}

	if pf.seed != nil {
		if len(pf.seed) != cfg.NumParticles {
			return nil, fmt.Errorf("seed population has %d particles, want %d", len(pf.seed), cfg.NumParticles)
		}
		pf.particles = pf.seed
		pf.seed = nil
	} else {
		pf.createSampleList()
	}

	pf.estimate, _ = EstimatePose(pf.particles, Pose{})

	pf.logger.Debug("filter initialized",
		"particles", len(pf.particles),
		"obstacles", m.NumObstacles(),
		"free_space", m.NumFreeSpace(),
		"fallback_map", m.IsFallback())

	return pf, nil
}

// createParticle draws one initial hypothesis: a random free-space point with
// a little jitter, or a point in the fallback square when there is no free
// space, with a uniformly random heading.
func (pf *ParticleFilter) createParticle() Particle {
	var x, y float64
	if free := pf.worldMap.freeSpace; len(free) > 0 {
		pt := free[pf.rng.IntN(len(free))]
		x = pt.X + uniform(pf.rng, pf.cfg.InitJitter)
		y = pt.Y + uniform(pf.rng, pf.cfg.InitJitter)
	} else {
		x = uniform(pf.rng, pf.cfg.FallbackHalfExtent)
		y = uniform(pf.rng, pf.cfg.FallbackHalfExtent)
	}
	heading := NormalizeAngle(uniformRange(pf.rng, 0, twoPi))

	return Particle{
		Pose:   Pose{X: x, Y: y, Theta: heading},
		Weight: 1 / float64(pf.cfg.NumParticles),
	}
}

// create initial sample list
func (pf *ParticleFilter) createSampleList() {
	pf.particles = make([]Particle, pf.cfg.NumParticles)
	for i := range pf.particles {
		pf.particles[i] = pf.createParticle()
	}
}

// SeedRegion returns n particles spread uniformly over the square of the given
// half extent around center, with uniform headings and equal weights.
func SeedRegion(rng *rand.Rand, n int, center Point, halfExtent float64) []Particle {
	particles := make([]Particle, n)
	for i := range particles {
		particles[i] = Particle{
			Pose: Pose{
				X:     center.X + uniform(rng, halfExtent),
				Y:     center.Y + uniform(rng, halfExtent),
				Theta: NormalizeAngle(uniformRange(rng, 0, twoPi)),
			},
			Weight: 1 / float64(n),
		}
	}
	return particles
}

// Predict moves every particle through the motion model. A command with a
// non-finite speed or duration is dropped so it cannot poison the population.
func (pf *ParticleFilter) Predict(cmd MotionCommand) {
	if !cmd.Finite() {
		pf.logger.Debug("dropping non-finite motion command",
			"cycle", pf.iteration,
			"left", cmd.Left,
			"right", cmd.Right,
			"dt", cmd.DT)
		return
	}
	for i := range pf.particles {
		p := &pf.particles[i]
		p.Pose = pf.motion.Predict(p.Pose, cmd)
	}
}

// Weigh scores every particle against the observed reading and normalizes
// the weights to sum to one. If every score is zero the weights are reset to
// 1/N and degenerate is true.
func (pf *ParticleFilter) Weigh(observed Reading) (degenerate bool) {
	total := 0.0
	for i := range pf.particles {
		p := &pf.particles[i]
		p.UpdateWeight(pf.scorer.Score(p.Pose, observed))
		total += p.Weight
	}

	if total > 0 {
		for i := range pf.particles {
			pf.particles[i].Weight /= total
		}
		return false
	}

	uniformWeight := 1 / float64(len(pf.particles))
	for i := range pf.particles {
		pf.particles[i].Weight = uniformWeight
	}
	pf.degenerate++
	pf.logger.Debug("degenerate weights, reset to uniform",
		"cycle", pf.iteration,
		"resets", pf.degenerate)
	return true
}

// Estimate recomputes the pose estimate from the current weights. If the
// weights sum to zero the previous estimate is kept.
func (pf *ParticleFilter) Estimate() Pose {
	if est, ok := EstimatePose(pf.particles, pf.estimate); ok {
		pf.estimate = est
	}
	return pf.estimate
}

// Step runs one full control cycle and returns the new estimate. The
// population is resampled after weighing on the first step and then on
// every ResampleInterval-th step after it (steps 1, K+1, 2K+1, ...).
func (pf *ParticleFilter) Step(cmd MotionCommand, observed Reading) Pose {
	pf.Predict(cmd)
	pf.Weigh(observed)
	if pf.iteration%pf.cfg.ResampleInterval == 0 {
		pf.Resample()
	}
	pf.iteration++
	return pf.Estimate()
}

// Particles returns a copy of the population.
func (pf *ParticleFilter) Particles() []Particle {
	return append([]Particle(nil), pf.particles...)
}

// N is the population size.
func (pf *ParticleFilter) N() int { return len(pf.particles) }

// Cycle is the number of completed Step calls.
func (pf *ParticleFilter) Cycle() int { return pf.iteration }

// DegenerateCount is how many weigh steps fell back to uniform weights.
func (pf *ParticleFilter) DegenerateCount() int { return pf.degenerate }

// Map is the map the filter localizes against.
func (pf *ParticleFilter) Map() *Map { return pf.worldMap }

// SensorModel is the map-based sensor model built for this filter.
func (pf *ParticleFilter) SensorModel() *SensorModel { return pf.sensor }

// LastEstimate returns the most recent estimate without recomputing it.
func (pf *ParticleFilter) LastEstimate() Pose { return pf.estimate }

// EffectiveSampleSize is 1/Σw², a measure of how many particles carry the
// weight. It equals N for uniform weights.
func (pf *ParticleFilter) EffectiveSampleSize() float64 {
	ws := pf.weights()
	sq := floats.Dot(ws, ws)
	if sq == 0 {
		return 0
	}
	return 1 / sq
}

func (pf *ParticleFilter) weights() []float64 {
	ws := make([]float64, len(pf.particles))
	for i, p := range pf.particles {
		ws[i] = p.Weight
	}
	return ws
}
