// Package recorder persists and renders localization results. Nothing in the
// filter depends on it; the harness hands it one Result per control cycle.
package recorder

import (
	"errors"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	pf "github.com/jhoydich/range-localizer"
)

// Result is the outcome of one control cycle.
type Result struct {
	Step     int
	Time     float64
	Estimate pf.Pose
	// Truth is nil when no ground-truth device was available.
	Truth *pf.Pose
	// Error is the planar distance between Estimate and Truth, zero without truth.
	Error float64
}

// NewResult builds a Result, filling Error when truth is present.
func NewResult(step int, t float64, est pf.Pose, truth *pf.Pose) Result {
	r := Result{Step: step, Time: t, Estimate: est, Truth: truth}
	if truth != nil {
		r.Error = est.DistanceTo(*truth)
	}
	return r
}

// Recorder receives results as they are produced.
type Recorder interface {
	Record(Result) error
	Close() error
}

// Multi fans every call out to all recorders and joins their errors.
type Multi []Recorder

func (m Multi) Record(r Result) error {
	var errs []error
	for _, rec := range m {
		if err := rec.Record(r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, rec := range m {
		if err := rec.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Memory keeps results in a slice.
type Memory struct {
	Results []Result
}

func (m *Memory) Record(r Result) error {
	m.Results = append(m.Results, r)
	return nil
}

func (m *Memory) Close() error { return nil }

// Summary aggregates the error of the results that carried ground truth.
type Summary struct {
	Count     int
	WithTruth int
	MeanError float64
	MaxError  float64
	MinError  float64
}

// Summarize computes error statistics over results.
func Summarize(results []Result) Summary {
	s := Summary{Count: len(results)}
	var errs []float64
	for _, r := range results {
		if r.Truth != nil {
			errs = append(errs, r.Error)
		}
	}
	s.WithTruth = len(errs)
	if len(errs) == 0 {
		return s
	}
	s.MeanError = stat.Mean(errs, nil)
	s.MaxError = floats.Max(errs)
	s.MinError = floats.Min(errs)
	return s
}
