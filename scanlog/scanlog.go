// Package scanlog reads and writes the scan logs produced by a mapping run and
// derives the localizer's occupancy map from them.
//
// A scan log is a text file with a free-form preamble, a header row, one
// comma-separated record per scan, and an optional statistics footer
// introduced by a "===" section marker:
//
//	=== 简单建图数据 ===
//	总步数: 2
//
//	=== 扫描数据 ===
//	步数,时间,X,Y,角度,前方,左侧,右侧,后方,最小距离
//	0,0.03,0.000,0.000,0.000,0.80,5.00,5.00,5.00,0.80
//	...
//
//	=== 统计信息 ===
package scanlog

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	pf "github.com/jhoydich/range-localizer"
)

// Header columns recognised as the start of the record block.
var (
	HeaderZH = []string{"步数", "时间", "X", "Y", "角度", "前方", "左侧", "右侧", "后方", "最小距离"}
	HeaderEN = []string{"step", "time", "x", "y", "theta", "front", "left", "right", "back", "min"}
)

const (
	sectionMarker = "==="
	numFields     = 10
)

// Record is one scan: where the agent believed it was and what it saw.
type Record struct {
	Step     int
	Time     float64
	Pose     pf.Pose
	Ranges   pf.Reading
	MinRange float64
}

// Stats describes what a parse saw.
type Stats struct {
	Lines   int
	Records int
	Skipped int
	// HeaderFound is false when the input never reached the record block.
	HeaderFound bool
}

type parseState int

const (
	awaitingHeader parseState = iota
	readingRecords
	finished
)

func (s parseState) String() string {
	switch s {
	case awaitingHeader:
		return "awaiting-header"
	case readingRecords:
		return "reading-records"
	case finished:
		return "finished"
	}
	return "unknown"
}

// Parser is the scan-log state machine. It starts in the awaiting-header
// state, moves to reading-records on a header row and finishes on the first
// section marker after that.
type Parser struct {
	state   parseState
	records []Record
	stats   Stats
}

// NewParser returns a parser awaiting the header row.
func NewParser() *Parser {
	return &Parser{state: awaitingHeader}
}

// Feed consumes one line.
func (p *Parser) Feed(line string) {
	p.stats.Lines++
	line = strings.TrimSpace(line)

	switch p.state {
	case awaitingHeader:
		if isHeader(line) {
			p.state = readingRecords
			p.stats.HeaderFound = true
		}
	case readingRecords:
		switch {
		case line == "":
		case strings.HasPrefix(line, sectionMarker):
			p.state = finished
		default:
			rec, err := parseRecord(line)
			if err != nil {
				p.stats.Skipped++
				return
			}
			p.records = append(p.records, rec)
			p.stats.Records++
		}
	case finished:
	}
}

// Records returns the records accepted so far.
func (p *Parser) Records() []Record {
	return p.records
}

// Stats returns the parse counters.
func (p *Parser) Stats() Stats {
	return p.stats
}

// Parse runs a fresh Parser over r. The only error is a read failure;
// malformed rows are counted in Stats.Skipped and dropped.
func Parse(r io.Reader) ([]Record, Stats, error) {
	p := NewParser()
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		p.Feed(sc.Text())
	}
	if err := sc.Err(); err != nil {
		return p.Records(), p.Stats(), fmt.Errorf("reading scan log: %w", err)
	}
	return p.Records(), p.Stats(), nil
}

func isHeader(line string) bool {
	fields := splitFields(line)
	return fieldsEqual(fields, HeaderZH) || fieldsEqual(fields, HeaderEN)
}

func fieldsEqual(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if !strings.EqualFold(got[i], want[i]) {
			return false
		}
	}
	return true
}

func splitFields(line string) []string {
	fields := strings.Split(line, ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}

func parseRecord(line string) (Record, error) {
	fields := splitFields(line)
	if len(fields) < numFields {
		return Record{}, fmt.Errorf("want %d fields, got %d", numFields, len(fields))
	}

	step, err := strconv.Atoi(fields[0])
	if err != nil {
		return Record{}, fmt.Errorf("step: %w", err)
	}

	var vals [numFields - 1]float64
	for i := range vals {
		v, err := strconv.ParseFloat(fields[i+1], 64)
		if err != nil {
			return Record{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		vals[i] = v
	}

	return Record{
		Step: step,
		Time: vals[0],
		Pose: pf.NewPose(vals[1], vals[2], vals[3]),
		Ranges: pf.Reading{
			pf.Front: vals[4],
			pf.Left:  vals[5],
			pf.Right: vals[6],
			pf.Back:  vals[7],
		},
		MinRange: vals[8],
	}, nil
}
