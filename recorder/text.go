package recorder

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// TextHeader is the column row of a results file.
const TextHeader = "步数,时间,估计X,估计Y,估计角度,真实X,真实Y,误差距离"

// TextRecorder collects results and writes them as a results file when
// closed: a title, run totals, one row per cycle and error statistics.
type TextRecorder struct {
	w         io.Writer
	closer    io.Closer
	particles int
	results   []Result
}

// NewTextRecorder writes to w on Close. particles is reported in the totals.
func NewTextRecorder(w io.Writer, particles int) *TextRecorder {
	return &TextRecorder{w: w, particles: particles}
}

// CreateTextRecorder creates (or truncates) path and records into it.
func CreateTextRecorder(path string, particles int) (*TextRecorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create results file: %w", err)
	}
	tr := NewTextRecorder(f, particles)
	tr.closer = f
	return tr, nil
}

func (t *TextRecorder) Record(r Result) error {
	t.results = append(t.results, r)
	return nil
}

// Results returns what has been recorded so far.
func (t *TextRecorder) Results() []Result { return t.results }

// Close writes the file and closes the underlying file, if any.
func (t *TextRecorder) Close() error {
	err := t.flush()
	if t.closer != nil {
		if cerr := t.closer.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close results file: %w", cerr)
		}
	}
	return err
}

func (t *TextRecorder) flush() error {
	bw := bufio.NewWriter(t.w)

	fmt.Fprintf(bw, "=== 粒子滤波定位结果 ===\n")
	fmt.Fprintf(bw, "总步数: %d\n", len(t.results))
	fmt.Fprintf(bw, "粒子数量: %d\n\n", t.particles)
	fmt.Fprintln(bw, TextHeader)

	for _, r := range t.results {
		var tx, ty float64
		if r.Truth != nil {
			tx, ty = r.Truth.X, r.Truth.Y
		}
		fmt.Fprintf(bw, "%d,%.2f,%.3f,%.3f,%.3f,%.3f,%.3f,%.3f\n",
			r.Step, r.Time, r.Estimate.X, r.Estimate.Y, r.Estimate.Theta, tx, ty, r.Error)
	}

	if s := Summarize(t.results); s.WithTruth > 0 {
		fmt.Fprintf(bw, "\n=== 统计信息 ===\n")
		fmt.Fprintf(bw, "平均定位误差: %.3f米\n", s.MeanError)
		fmt.Fprintf(bw, "最大定位误差: %.3f米\n", s.MaxError)
		fmt.Fprintf(bw, "最小定位误差: %.3f米\n", s.MinError)
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	return nil
}
