package particlefilter

import "math"

// fallbackClearance is how close a grid cell may come to a fallback obstacle
// before it stops counting as free space.
const fallbackClearance = 0.8

var fallbackObstacles = []Point{
	{2.5, 0.5}, {2.5, -0.5}, {-2.5, 0.5}, {-2.5, -0.5},
	{0, 2.5}, {0, -2.5}, {1.5, 1.5}, {-1.5, -1.5},
}

// Map is the static occupancy knowledge the filter localizes against:
// points believed occupied and points the agent is known to have visited.
// A Map is never modified after construction.
type Map struct {
	obstacles []Point
	freeSpace []Point
	fallback  bool
}

// NewMap copies the given coordinates into a new Map.
func NewMap(obstacles, freeSpace []Point) *Map {
	return &Map{
		obstacles: append([]Point(nil), obstacles...),
		freeSpace: append([]Point(nil), freeSpace...),
	}
}

// FallbackMap builds the synthetic map used when no scan log is available:
// a handful of fixed obstacles and a 0.5-spaced grid over [-3, 3]² minus the
// cells near them.
func FallbackMap() *Map {
	m := &Map{
		obstacles: append([]Point(nil), fallbackObstacles...),
		fallback:  true,
	}
	for i := -30; i <= 30; i += 5 {
		for j := -30; j <= 30; j += 5 {
			p := Point{X: float64(i) / 10, Y: float64(j) / 10}
			if nearAny(p, m.obstacles, fallbackClearance) {
				continue
			}
			m.freeSpace = append(m.freeSpace, p)
		}
	}
	return m
}

// MapOrFallback returns m, or the synthetic map when m is nil or empty.
func MapOrFallback(m *Map) *Map {
	if m == nil || m.IsEmpty() {
		return FallbackMap()
	}
	return m
}

func nearAny(p Point, pts []Point, radius float64) bool {
	for _, q := range pts {
		if math.Hypot(p.X-q.X, p.Y-q.Y) < radius {
			return true
		}
	}
	return false
}

// Obstacles returns a copy of the obstacle coordinates.
func (m *Map) Obstacles() []Point {
	return append([]Point(nil), m.obstacles...)
}

// FreeSpace returns a copy of the free-space coordinates.
func (m *Map) FreeSpace() []Point {
	return append([]Point(nil), m.freeSpace...)
}

// NumObstacles is the number of obstacle points.
func (m *Map) NumObstacles() int { return len(m.obstacles) }

// NumFreeSpace is the number of free-space points.
func (m *Map) NumFreeSpace() int { return len(m.freeSpace) }

// IsEmpty reports whether the map carries no information at all.
func (m *Map) IsEmpty() bool {
	return len(m.obstacles) == 0 && len(m.freeSpace) == 0
}

// IsFallback reports whether m is the synthetic substitute map.
func (m *Map) IsFallback() bool {
	return m.fallback
}
