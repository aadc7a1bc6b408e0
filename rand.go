package particlefilter

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// NewRand returns a seeded generator. Every random draw the filter makes goes
// through a single *rand.Rand so that a fixed seed reproduces a run exactly.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// uniform draws from U(-halfWidth, halfWidth) using src.
func uniform(src rand.Source, halfWidth float64) float64 {
	return distuv.Uniform{Min: -halfWidth, Max: halfWidth, Src: src}.Rand()
}

// uniformRange draws from U(lo, hi) using src.
func uniformRange(src rand.Source, lo, hi float64) float64 {
	return distuv.Uniform{Min: lo, Max: hi, Src: src}.Rand()
}
