// Package drivelog reads and writes per-cycle filter inputs: the wheel
// command issued on each control tick, the range reading taken after it, and
// optionally the true pose when a ground-truth device was present.
//
// The format is CSV with a header row:
//
//	step,dt,left_speed,right_speed,front,left,right,back[,true_x,true_y,true_theta]
package drivelog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	pf "github.com/jhoydich/range-localizer"
)

// Columns is the header of a drive log; the last three are optional.
var Columns = []string{
	"step", "dt", "left_speed", "right_speed",
	"front", "left", "right", "back",
	"true_x", "true_y", "true_theta",
}

const (
	requiredColumns = 8
	truthColumns    = 11
)

// Tick is one control cycle's worth of input.
type Tick struct {
	Step    int
	Command pf.MotionCommand
	Reading pf.Reading
	// Truth is nil unless the log carries ground truth for this tick.
	Truth *pf.Pose
}

// Reader yields ticks from a drive log.
type Reader struct {
	csv     *csv.Reader
	header  bool
	skipped int
}

// NewReader wraps r. The header row is consumed on the first call to Next.
func NewReader(r io.Reader) *Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'
	return &Reader{csv: cr}
}

// Skipped is the number of malformed rows dropped so far.
func (r *Reader) Skipped() int { return r.skipped }

// Next returns the next well-formed tick, or io.EOF at the end of input.
// Malformed rows are skipped.
func (r *Reader) Next() (Tick, error) {
	if !r.header {
		if _, err := r.csv.Read(); err != nil {
			if errors.Is(err, io.EOF) {
				return Tick{}, io.EOF
			}
			return Tick{}, fmt.Errorf("reading drive log header: %w", err)
		}
		r.header = true
	}

	for {
		row, err := r.csv.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return Tick{}, io.EOF
			}
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				r.skipped++
				continue
			}
			return Tick{}, fmt.Errorf("reading drive log: %w", err)
		}

		tick, err := parseRow(row)
		if err != nil {
			r.skipped++
			continue
		}
		return tick, nil
	}
}

// ReadAll drains r.
func (r *Reader) ReadAll() ([]Tick, error) {
	var ticks []Tick
	for {
		t, err := r.Next()
		if errors.Is(err, io.EOF) {
			return ticks, nil
		}
		if err != nil {
			return ticks, err
		}
		ticks = append(ticks, t)
	}
}

func parseRow(row []string) (Tick, error) {
	if len(row) < requiredColumns {
		return Tick{}, fmt.Errorf("want at least %d columns, got %d", requiredColumns, len(row))
	}
	step, err := strconv.Atoi(row[0])
	if err != nil {
		return Tick{}, fmt.Errorf("step: %w", err)
	}

	n := requiredColumns
	if len(row) >= truthColumns && !blank(row[requiredColumns:truthColumns]) {
		n = truthColumns
	}
	vals := make([]float64, n)
	for i := 1; i < n; i++ {
		v, err := strconv.ParseFloat(row[i], 64)
		if err != nil {
			return Tick{}, fmt.Errorf("column %s: %w", Columns[i], err)
		}
		vals[i] = v
	}

	tick := Tick{
		Step:    step,
		Command: pf.MotionCommand{DT: vals[1], Left: vals[2], Right: vals[3]},
		Reading: pf.NewReading(vals[4], vals[5], vals[6], vals[7]),
	}
	// Non-finite ranges mean "no return" and are clamped; a non-finite
	// command or truth pose has no such meaning.
	if !tick.Command.Finite() {
		return Tick{}, fmt.Errorf("non-finite command %+v", tick.Command)
	}
	if n == truthColumns {
		for i := requiredColumns; i < truthColumns; i++ {
			if math.IsNaN(vals[i]) || math.IsInf(vals[i], 0) {
				return Tick{}, fmt.Errorf("column %s: non-finite value", Columns[i])
			}
		}
		truth := pf.NewPose(vals[8], vals[9], vals[10])
		tick.Truth = &truth
	}
	return tick, nil
}

func blank(cols []string) bool {
	for _, c := range cols {
		if c != "" {
			return false
		}
	}
	return true
}

// Writer emits a drive log.
type Writer struct {
	csv       *csv.Writer
	withTruth bool
	started   bool
}

// NewWriter returns a writer; withTruth adds the ground-truth columns.
func NewWriter(w io.Writer, withTruth bool) *Writer {
	return &Writer{csv: csv.NewWriter(w), withTruth: withTruth}
}

// Write appends one tick. A tick without Truth written to a truth-carrying
// log gets empty truth columns, which read back as no truth.
func (w *Writer) Write(t Tick) error {
	if !w.started {
		cols := Columns[:requiredColumns]
		if w.withTruth {
			cols = Columns
		}
		if err := w.csv.Write(cols); err != nil {
			return fmt.Errorf("writing drive log header: %w", err)
		}
		w.started = true
	}

	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	row := []string{
		strconv.Itoa(t.Step), f(t.Command.DT), f(t.Command.Left), f(t.Command.Right),
		f(t.Reading[pf.Front]), f(t.Reading[pf.Left]), f(t.Reading[pf.Right]), f(t.Reading[pf.Back]),
	}
	if w.withTruth {
		if t.Truth != nil {
			row = append(row, f(t.Truth.X), f(t.Truth.Y), f(t.Truth.Theta))
		} else {
			row = append(row, "", "", "")
		}
	}
	if err := w.csv.Write(row); err != nil {
		return fmt.Errorf("writing drive log: %w", err)
	}
	return nil
}

// Flush writes any buffered rows.
func (w *Writer) Flush() error {
	w.csv.Flush()
	return w.csv.Error()
}
