package drivelog

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pf "github.com/jhoydich/range-localizer"
)

func TestReader_SkipsMalformedRows(t *testing.T) {
	in := strings.Join([]string{
		"step,dt,left_speed,right_speed,front,left,right,back",
		"0,0.032,2,2,1.5,5,5,5",
		"1,0.032,two,2,1.5,5,5,5",
		"# comment",
		"2,0.032,2",
		"3,0.032,-2,2,9.5,5,5,-1",
		"4,NaN,2,2,1.5,5,5,5",
		"5,0.032,Inf,2,1.5,5,5,5",
		"6,0.032,2,-Inf,1.5,5,5,5",
		"7,0.032,2,2,1.5,5,5,5,NaN,0,0",
		"8,0.032,2,2,NaN,5,5,5",
	}, "\n")

	r := NewReader(strings.NewReader(in))
	ticks, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, ticks, 3)
	assert.Equal(t, 6, r.Skipped())

	assert.Equal(t, pf.MotionCommand{Left: 2, Right: 2, DT: 0.032}, ticks[0].Command)
	assert.Nil(t, ticks[0].Truth)
	assert.Equal(t, pf.Reading{pf.MaxRange, 5, 5, 0}, ticks[1].Reading, "readings are clamped")
	assert.Equal(t, 8, ticks[2].Step)
	assert.Equal(t, pf.Reading{pf.MaxRange, 5, 5, 5}, ticks[2].Reading, "a NaN range is no return")
}

func TestReader_Empty(t *testing.T) {
	r := NewReader(strings.NewReader(""))
	_, err := r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestWriterReader_RoundTrip(t *testing.T) {
	truth := pf.NewPose(1, 2, 3)
	ticks := []Tick{
		{Step: 0, Command: pf.MotionCommand{Left: 1, Right: 2, DT: 0.032}, Reading: pf.Reading{1, 2, 3, 4}, Truth: &truth},
		{Step: 1, Command: pf.MotionCommand{Left: -1, Right: 0.5, DT: 0.064}, Reading: pf.Reading{0.25, 5, 5, 5}, Truth: &truth},
	}

	var buf bytes.Buffer
	w := NewWriter(&buf, true)
	for _, tk := range ticks {
		require.NoError(t, w.Write(tk))
	}
	require.NoError(t, w.Flush())
	assert.True(t, strings.HasPrefix(buf.String(), strings.Join(Columns, ",")))

	got, err := NewReader(&buf).ReadAll()
	require.NoError(t, err)
	if diff := cmp.Diff(ticks, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestWriterReader_MissingTruth(t *testing.T) {
	truth := pf.NewPose(0.5, 0, 0)
	ticks := []Tick{
		{Step: 0, Command: pf.MotionCommand{DT: 0.032}, Reading: pf.UniformReading(5), Truth: &truth},
		{Step: 1, Command: pf.MotionCommand{DT: 0.032}, Reading: pf.UniformReading(5)},
	}

	var buf bytes.Buffer
	w := NewWriter(&buf, true)
	for _, tk := range ticks {
		require.NoError(t, w.Write(tk))
	}
	require.NoError(t, w.Flush())

	r := NewReader(&buf)
	got, err := r.ReadAll()
	require.NoError(t, err)
	assert.Zero(t, r.Skipped())
	if diff := cmp.Diff(ticks, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
