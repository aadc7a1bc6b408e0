package particlefilter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbackMap(t *testing.T) {
	m := FallbackMap()

	assert.True(t, m.IsFallback())
	assert.False(t, m.IsEmpty())
	assert.Equal(t, 8, m.NumObstacles())
	require.NotZero(t, m.NumFreeSpace())
	// 13x13 grid minus the cells within 0.8 of an obstacle
	assert.Less(t, m.NumFreeSpace(), 13*13)

	for _, p := range m.FreeSpace() {
		for _, o := range m.Obstacles() {
			assert.GreaterOrEqual(t, math.Hypot(p.X-o.X, p.Y-o.Y), fallbackClearance,
				"free cell %v too close to obstacle %v", p, o)
		}
	}
	assert.Contains(t, m.FreeSpace(), Point{X: 0, Y: 0})
	assert.NotContains(t, m.FreeSpace(), Point{X: 2.5, Y: 0.5})
}

func TestNewMap_CopiesInput(t *testing.T) {
	obstacles := []Point{{1, 1}}
	free := []Point{{0, 0}}
	m := NewMap(obstacles, free)

	obstacles[0] = Point{9, 9}
	free[0] = Point{9, 9}
	assert.Equal(t, []Point{{1, 1}}, m.Obstacles())
	assert.Equal(t, []Point{{0, 0}}, m.FreeSpace())

	got := m.Obstacles()
	got[0] = Point{7, 7}
	assert.Equal(t, []Point{{1, 1}}, m.Obstacles(), "accessor must return a copy")
	assert.False(t, m.IsFallback())
}

func TestMapOrFallback(t *testing.T) {
	t.Run("nil map", func(t *testing.T) {
		assert.True(t, MapOrFallback(nil).IsFallback())
	})
	t.Run("empty map", func(t *testing.T) {
		assert.True(t, MapOrFallback(NewMap(nil, nil)).IsFallback())
	})
	t.Run("obstacles only", func(t *testing.T) {
		m := NewMap([]Point{{2, 0}}, nil)
		assert.Same(t, m, MapOrFallback(m))
	})
	t.Run("free space only", func(t *testing.T) {
		m := NewMap(nil, []Point{{0, 0}})
		assert.Same(t, m, MapOrFallback(m))
	})
}
