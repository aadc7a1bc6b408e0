package particlefilter

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
)

func TestClampRange(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{2.5, 2.5},
		{MaxRange, MaxRange},
		{7, MaxRange},
		{math.Inf(1), MaxRange},
		{math.NaN(), MaxRange},
		{-1, 0},
		{math.Inf(-1), 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampRange(tt.in), "ClampRange(%v)", tt.in)
	}
	assert.Equal(t, Reading{1, MaxRange, 0, MaxRange}, NewReading(1, 12, -3, math.Inf(1)))
}

func TestDirection(t *testing.T) {
	assert.Equal(t, "front", Front.String())
	assert.Equal(t, "left", Left.String())
	assert.Equal(t, "right", Right.String())
	assert.Equal(t, "back", Back.String())
	assert.Equal(t, 0.0, Front.Offset())
	assert.Equal(t, math.Pi/2, Left.Offset())
	assert.Equal(t, -math.Pi/2, Right.Offset())
	assert.Equal(t, math.Pi, Back.Offset())
}

func TestPredictReading_SingleObstacleAhead(t *testing.T) {
	s := NewSensorModel(NewMap([]Point{{2, 0}}, nil))

	got := s.PredictReading(Pose{})
	want := Reading{2, MaxRange, MaxRange, MaxRange}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("PredictReading mismatch (-want +got):\n%s", diff)
	}
}

func TestPredictReading_Directions(t *testing.T) {
	m := NewMap([]Point{{1, 0}, {0, 2}, {0, -3}, {-4, 0}}, nil)
	s := NewSensorModel(m)

	tests := []struct {
		name string
		pose Pose
		want Reading
	}{
		{"heading east", Pose{}, Reading{1, 2, 3, 4}},
		{"heading north", Pose{Theta: math.Pi / 2}, Reading{2, 4, 1, 3}},
		{"heading west", Pose{Theta: math.Pi}, Reading{4, 3, 2, 1}},
		{"heading just below two pi", Pose{Theta: 2*math.Pi - 0.01}, Reading{1, 2, 3, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.PredictReading(tt.pose)
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
				t.Errorf("PredictReading mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPredictReading_WindowAndRange(t *testing.T) {
	t.Run("outside the angular window", func(t *testing.T) {
		// bearing of roughly 50 degrees falls in the left window, not the front one
		s := NewSensorModel(NewMap([]Point{{math.Cos(0.87), math.Sin(0.87)}}, nil))
		got := s.PredictReading(Pose{})
		assert.Equal(t, MaxRange, got[Front])
		assert.InDelta(t, 1.0, got[Left], 1e-9)
	})
	t.Run("nearest obstacle wins", func(t *testing.T) {
		s := NewSensorModel(NewMap([]Point{{3, 0}, {1.5, 0.2}, {4, -0.5}}, nil))
		got := s.PredictReading(Pose{})
		assert.InDelta(t, math.Hypot(1.5, 0.2), got[Front], 1e-9)
	})
	t.Run("beyond max range ignored", func(t *testing.T) {
		s := NewSensorModel(NewMap([]Point{{6, 0}}, nil))
		assert.Equal(t, UniformReading(MaxRange), s.PredictReading(Pose{}))
	})
	t.Run("nil map", func(t *testing.T) {
		s := NewSensorModel(nil)
		assert.Equal(t, UniformReading(MaxRange), s.PredictReading(Pose{}))
	})
}

func TestLikelihood(t *testing.T) {
	s := NewSensorModel(nil)
	predicted := Reading{2, 5, 5, 5}

	assert.Equal(t, 1.0, s.Likelihood(predicted, predicted))

	oneOff := Reading{2.3, 5, 5, 5}
	assert.InDelta(t, math.Exp(-0.5), s.Likelihood(oneOff, predicted), 1e-12)

	twoOff := Reading{2.3, 5, 4.7, 5}
	assert.InDelta(t, math.Exp(-1), s.Likelihood(twoOff, predicted), 1e-12)
	assert.InDelta(t, -1.0, s.LogLikelihood(twoOff, predicted), 1e-12)

	// far outside the sensor's range the linear product underflows to exactly
	// zero while the log score stays finite
	absurd := Reading{1e3, 1e3, 1e3, 1e3}
	assert.Equal(t, 0.0, s.Likelihood(absurd, predicted))
	assert.False(t, math.IsInf(s.LogLikelihood(absurd, predicted), 0))
}

func TestSensorModel_Score(t *testing.T) {
	s := NewSensorModel(NewMap([]Point{{2, 0}}, nil))
	observed := Reading{2, 5, 5, 5}

	atOrigin := s.Score(Pose{}, observed)
	facingAway := s.Score(Pose{Theta: math.Pi}, observed)
	shifted := s.Score(Pose{X: 0.5}, observed)

	assert.InDelta(t, 1.0, atOrigin, 1e-12)
	assert.Greater(t, atOrigin, shifted)
	assert.Greater(t, shifted, facingAway)
}
