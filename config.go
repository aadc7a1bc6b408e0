package particlefilter

import (
	"errors"
	"fmt"
)

// Filter defaults.
const (
	DefaultNumParticles           = 100
	DefaultResampleInterval       = 10
	DefaultInitJitter             = 0.2
	DefaultFallbackHalfExtent     = 2.0
	DefaultResamplePositionJitter = 0.05
	DefaultResampleHeadingJitter  = 0.1
)

// Config holds every tunable of a ParticleFilter.
type Config struct {
	// NumParticles is the fixed population size N.
	NumParticles int
	// ResampleInterval is K: the population is resampled on every K-th step.
	ResampleInterval int

	// InitJitter is the half-width of the uniform offset added to free-space
	// seeds. FallbackHalfExtent bounds the square used when there is no free
	// space to seed from.
	InitJitter         float64
	FallbackHalfExtent float64

	ResamplePositionJitter float64
	ResampleHeadingJitter  float64

	WheelRadius   float64
	WheelBase     float64
	PositionNoise float64
	HeadingNoise  float64

	MaxRange  float64
	Sigma     float64
	HalfWidth float64
}

// DefaultConfig returns the configuration the localizer ships with.
func DefaultConfig() Config {
	return Config{
		NumParticles:           DefaultNumParticles,
		ResampleInterval:       DefaultResampleInterval,
		InitJitter:             DefaultInitJitter,
		FallbackHalfExtent:     DefaultFallbackHalfExtent,
		ResamplePositionJitter: DefaultResamplePositionJitter,
		ResampleHeadingJitter:  DefaultResampleHeadingJitter,
		WheelRadius:            DefaultWheelRadius,
		WheelBase:              DefaultWheelBase,
		PositionNoise:          DefaultPositionNoise,
		HeadingNoise:           DefaultHeadingNoise,
		MaxRange:               MaxRange,
		Sigma:                  DefaultSigma,
		HalfWidth:              DefaultHalfWidth,
	}
}

// Validate checks that c describes a usable filter.
func (c Config) Validate() error {
	var errs []error
	if c.NumParticles <= 0 {
		errs = append(errs, fmt.Errorf("num particles must be positive, got %d", c.NumParticles))
	}
	if c.ResampleInterval <= 0 {
		errs = append(errs, fmt.Errorf("resample interval must be positive, got %d", c.ResampleInterval))
	}
	if c.WheelBase <= 0 {
		errs = append(errs, fmt.Errorf("wheel base must be positive, got %f", c.WheelBase))
	}
	if c.Sigma <= 0 {
		errs = append(errs, fmt.Errorf("sigma must be positive, got %f", c.Sigma))
	}
	if c.MaxRange <= 0 {
		errs = append(errs, fmt.Errorf("max range must be positive, got %f", c.MaxRange))
	}
	if c.HalfWidth <= 0 {
		errs = append(errs, fmt.Errorf("half width must be positive, got %f", c.HalfWidth))
	}
	for name, v := range map[string]float64{
		"init jitter":              c.InitJitter,
		"fallback half extent":     c.FallbackHalfExtent,
		"resample position jitter": c.ResamplePositionJitter,
		"resample heading jitter":  c.ResampleHeadingJitter,
		"wheel radius":             c.WheelRadius,
		"position noise":           c.PositionNoise,
		"heading noise":            c.HeadingNoise,
	} {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s must be non-negative, got %f", name, v))
		}
	}
	return errors.Join(errs...)
}
