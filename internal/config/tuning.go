package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	pf "github.com/jhoydich/range-localizer"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// Harness defaults that have no counterpart in the filter itself.
const (
	DefaultControlPeriod = 0.032
	DefaultSensorNoise   = 0.05
	DefaultSeed          = 1
)

// TuningConfig is the on-disk form of the localizer's tunables. Every field
// is optional; the Get* methods fill in defaults for omitted ones, so partial
// files are safe.
type TuningConfig struct {
	// Filter params
	NumParticles         *int  `json:"num_particles,omitempty"`
	ResampleInterval     *int  `json:"resample_interval,omitempty"`
	SystematicResampling *bool `json:"systematic_resampling,omitempty"`

	// Initialization and resampling jitter
	InitJitter             *float64 `json:"init_jitter,omitempty"`
	FallbackHalfExtent     *float64 `json:"fallback_half_extent,omitempty"`
	ResamplePositionJitter *float64 `json:"resample_position_jitter,omitempty"`
	ResampleHeadingJitter  *float64 `json:"resample_heading_jitter,omitempty"`

	// Motion model params
	WheelRadius   *float64 `json:"wheel_radius,omitempty"`
	WheelBase     *float64 `json:"wheel_base,omitempty"`
	PositionNoise *float64 `json:"position_noise,omitempty"`
	HeadingNoise  *float64 `json:"heading_noise,omitempty"`

	// Sensor model params
	MaxRange  *float64 `json:"max_range,omitempty"`
	Sigma     *float64 `json:"sigma,omitempty"`
	HalfWidth *float64 `json:"half_width,omitempty"`

	// Harness params
	ControlPeriod *float64 `json:"control_period,omitempty"` // seconds per control step
	SensorNoise   *float64 `json:"sensor_noise,omitempty"`   // std dev of simulated range noise
	Seed          *uint64  `json:"seed,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrUint64(v uint64) *uint64    { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field set explicitly
// to its default.
func DefaultTuningConfig() *TuningConfig {
	d := pf.DefaultConfig()
	return &TuningConfig{
		NumParticles:           ptrInt(d.NumParticles),
		ResampleInterval:       ptrInt(d.ResampleInterval),
		SystematicResampling:   ptrBool(false),
		InitJitter:             ptrFloat64(d.InitJitter),
		FallbackHalfExtent:     ptrFloat64(d.FallbackHalfExtent),
		ResamplePositionJitter: ptrFloat64(d.ResamplePositionJitter),
		ResampleHeadingJitter:  ptrFloat64(d.ResampleHeadingJitter),
		WheelRadius:            ptrFloat64(d.WheelRadius),
		WheelBase:              ptrFloat64(d.WheelBase),
		PositionNoise:          ptrFloat64(d.PositionNoise),
		HeadingNoise:           ptrFloat64(d.HeadingNoise),
		MaxRange:               ptrFloat64(d.MaxRange),
		Sigma:                  ptrFloat64(d.Sigma),
		HalfWidth:              ptrFloat64(d.HalfWidth),
		ControlPeriod:          ptrFloat64(DefaultControlPeriod),
		SensorNoise:            ptrFloat64(DefaultSensorNoise),
		Seed:                   ptrUint64(DefaultSeed),
	}
}

// maxConfigBytes caps how much of a tuning file is read.
const maxConfigBytes = 1 << 20

// LoadTuningConfig reads and validates the JSON tuning file at path. Only
// .json files are accepted.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	path = filepath.Clean(path)
	if ext := filepath.Ext(path); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	cfg, err := ParseTuningConfig(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseTuningConfig decodes a tuning document from r and validates it.
// Unknown keys are rejected so a misspelt tunable does not silently fall
// back to its default.
func ParseTuningConfig(r io.Reader) (*TuningConfig, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxConfigBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if len(data) > maxConfigBytes {
		return nil, fmt.Errorf("config too large: over %d bytes", maxConfigBytes)
	}

	cfg := EmptyTuningConfig()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the fields that are set, plus the filter config they
// resolve to.
func (c *TuningConfig) Validate() error {
	if c.ControlPeriod != nil && *c.ControlPeriod <= 0 {
		return fmt.Errorf("control_period must be positive, got %f", *c.ControlPeriod)
	}
	if c.SensorNoise != nil && *c.SensorNoise < 0 {
		return fmt.Errorf("sensor_noise must be non-negative, got %f", *c.SensorNoise)
	}
	return c.FilterConfig().Validate()
}

// FilterConfig resolves c into a particle filter configuration.
func (c *TuningConfig) FilterConfig() pf.Config {
	d := pf.DefaultConfig()
	return pf.Config{
		NumParticles:           intOr(c.NumParticles, d.NumParticles),
		ResampleInterval:       intOr(c.ResampleInterval, d.ResampleInterval),
		InitJitter:             floatOr(c.InitJitter, d.InitJitter),
		FallbackHalfExtent:     floatOr(c.FallbackHalfExtent, d.FallbackHalfExtent),
		ResamplePositionJitter: floatOr(c.ResamplePositionJitter, d.ResamplePositionJitter),
		ResampleHeadingJitter:  floatOr(c.ResampleHeadingJitter, d.ResampleHeadingJitter),
		WheelRadius:            floatOr(c.WheelRadius, d.WheelRadius),
		WheelBase:              floatOr(c.WheelBase, d.WheelBase),
		PositionNoise:          floatOr(c.PositionNoise, d.PositionNoise),
		HeadingNoise:           floatOr(c.HeadingNoise, d.HeadingNoise),
		MaxRange:               floatOr(c.MaxRange, d.MaxRange),
		Sigma:                  floatOr(c.Sigma, d.Sigma),
		HalfWidth:              floatOr(c.HalfWidth, d.HalfWidth),
	}
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func floatOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

// GetSystematicResampling returns the systematic_resampling value or the default.
func (c *TuningConfig) GetSystematicResampling() bool {
	if c.SystematicResampling == nil {
		return false // default: multinomial
	}
	return *c.SystematicResampling
}

// GetControlPeriod returns the control_period value or the default.
func (c *TuningConfig) GetControlPeriod() float64 {
	return floatOr(c.ControlPeriod, DefaultControlPeriod)
}

// GetSensorNoise returns the sensor_noise value or the default.
func (c *TuningConfig) GetSensorNoise() float64 {
	return floatOr(c.SensorNoise, DefaultSensorNoise)
}

// GetSeed returns the seed value or the default.
func (c *TuningConfig) GetSeed() uint64 {
	if c.Seed == nil {
		return DefaultSeed
	}
	return *c.Seed
}
