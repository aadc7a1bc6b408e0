package sim

import (
	"errors"
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pf "github.com/jhoydich/range-localizer"
	"github.com/jhoydich/range-localizer/drivelog"
)

func TestWorld_SenseExactWithoutNoise(t *testing.T) {
	w := NewWorld(pf.NewMap([]pf.Point{{2, 0}}, nil), 0, pf.NewRand(1))
	assert.Equal(t, pf.Reading{2, 5, 5, 5}, w.Sense(pf.Pose{}))
}

func TestWorld_SenseNoisyButClamped(t *testing.T) {
	w := NewWorld(pf.NewMap([]pf.Point{{0.05, 0}}, nil), 0.5, pf.NewRand(2))
	for i := 0; i < 200; i++ {
		r := w.Sense(pf.Pose{})
		for _, v := range r {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, pf.MaxRange)
		}
	}
}

func TestAgent_DrivesWithoutNoise(t *testing.T) {
	a := NewAgent(pf.Pose{}, pf.NewRand(3))
	for i := 0; i < 10; i++ {
		a.Drive(pf.MotionCommand{Left: 2, Right: 2, DT: 0.1})
	}
	p := a.Position()
	assert.InDelta(t, 10*2*pf.DefaultWheelRadius*0.1, p.X, 1e-12)
	assert.InDelta(t, 0, p.Y, 1e-12)
	assert.InDelta(t, 0, p.Theta, 1e-12)
}

func TestTruth(t *testing.T) {
	_, ok := NoTruth().Get()
	assert.False(t, ok)
	assert.False(t, WithTruth(nil).Present())

	a := NewAgent(pf.NewPose(1, 2, -math.Pi/2), pf.NewRand(4))
	tr := WithTruth(a)
	require.True(t, tr.Present())
	p, ok := tr.Get()
	require.True(t, ok)
	assert.InDelta(t, 3*math.Pi/2, p.Theta, 1e-12)
}

func TestScript(t *testing.T) {
	s := NewScript(0.032, Forward(2), Stop(0), TurnLeft(1))
	assert.Equal(t, 3, s.Len())

	var cmds []pf.MotionCommand
	for {
		cmd, ok := s.Next()
		if !ok {
			break
		}
		cmds = append(cmds, cmd)
	}
	require.Len(t, cmds, 3)
	assert.Equal(t, pf.MotionCommand{Left: CruiseSpeed, Right: CruiseSpeed, DT: 0.032}, cmds[0])
	assert.Equal(t, pf.MotionCommand{Left: -CruiseSpeed, Right: CruiseSpeed, DT: 0.032}, cmds[2])

	_, ok := s.Next()
	assert.False(t, ok)
}

func TestSource(t *testing.T) {
	m := pf.NewMap([]pf.Point{{2, 0}}, nil)
	src := NewSource(NewScript(0.1, Forward(3)), NewAgent(pf.Pose{}, pf.NewRand(5)), NewWorld(m, 0, pf.NewRand(6)))

	var ticks []drivelog.Tick
	for {
		tick, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		ticks = append(ticks, tick)
	}
	require.Len(t, ticks, 3)
	for i, tick := range ticks {
		assert.Equal(t, i+1, tick.Step)
		require.NotNil(t, tick.Truth)
		// the agent moves toward the obstacle, so the front range shrinks
		assert.InDelta(t, 2-tick.Truth.X, tick.Reading[pf.Front], 1e-12)
	}
	assert.InDelta(t, 3*CruiseSpeed*pf.DefaultWheelRadius*0.1, ticks[2].Truth.X, 1e-12)
}

func TestSource_HideTruth(t *testing.T) {
	src := NewSource(NewScript(0.1, Stop(1)), NewAgent(pf.Pose{}, pf.NewRand(7)), NewWorld(pf.FallbackMap(), 0.05, pf.NewRand(8)))
	src.HideTruth()
	tick, err := src.Next()
	require.NoError(t, err)
	assert.Nil(t, tick.Truth)
}
