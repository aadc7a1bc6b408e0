package scanlog

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"

	pf "github.com/jhoydich/range-localizer"
)

// Writer buffers scan records and writes them out as a scan log that Parse
// and LoadMap accept.
type Writer struct {
	Title   string
	records []Record
}

// NewWriter returns a writer whose preamble carries title.
func NewWriter(title string) *Writer {
	return &Writer{Title: title}
}

// Add appends a record, filling MinRange from the ranges.
func (w *Writer) Add(rec Record) {
	rec.MinRange = rec.Ranges.Min()
	w.records = append(w.records, rec)
}

// Len is the number of buffered records.
func (w *Writer) Len() int { return len(w.records) }

// WriteTo writes the complete log: preamble, header, records and statistics.
func (w *Writer) WriteTo(dst io.Writer) (int64, error) {
	cw := &countingWriter{w: dst}
	bw := bufio.NewWriter(cw)

	elapsed := 0.0
	if n := len(w.records); n > 0 {
		elapsed = w.records[n-1].Time
	}

	fmt.Fprintf(bw, "=== %s ===\n", w.Title)
	fmt.Fprintf(bw, "总步数: %d\n", len(w.records))
	fmt.Fprintf(bw, "总时间: %.2f秒\n", elapsed)
	fmt.Fprintf(bw, "\n=== 扫描数据 ===\n")
	fmt.Fprintln(bw, strings.Join(HeaderZH, ","))

	var valid []float64
	for _, r := range w.records {
		fmt.Fprintf(bw, "%d,%.2f,%.3f,%.3f,%.3f,%.2f,%.2f,%.2f,%.2f,%.2f\n",
			r.Step, r.Time, r.Pose.X, r.Pose.Y, r.Pose.Theta,
			r.Ranges[pf.Front], r.Ranges[pf.Left], r.Ranges[pf.Right], r.Ranges[pf.Back],
			r.MinRange)
		for _, v := range r.Ranges {
			if v > 0 && !math.IsInf(v, 0) {
				valid = append(valid, v)
			}
		}
	}

	fmt.Fprintf(bw, "\n=== 统计信息 ===\n")
	if len(valid) > 0 {
		fmt.Fprintf(bw, "平均距离: %.2fm\n", floats.Sum(valid)/float64(len(valid)))
		fmt.Fprintf(bw, "最小距离: %.2fm\n", floats.Min(valid))
		fmt.Fprintf(bw, "最大距离: %.2fm\n", floats.Max(valid))
		fmt.Fprintf(bw, "有效测量次数: %d\n", len(valid))
	}

	if err := bw.Flush(); err != nil {
		return cw.n, fmt.Errorf("writing scan log: %w", err)
	}
	return cw.n, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
