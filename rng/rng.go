// Package rng provides the uniform and Gaussian samples consumed by the
// particle filter's proposal and resampling steps.
//
// The filter itself is agnostic to the underlying generator; dpslam treats
// the choice of generator the way the original program treated its
// Mersenne-Twister driver, as an external source of randomness with two
// guarantees: uniform draws in [0,1) and zero-mean Gaussian draws for a
// given standard deviation. Determinism (same seed, same draw sequence)
// is required for playback runs to be reproducible.
package rng

import (
	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/stat/distuv"
)

// Source draws uniform and Gaussian samples from a single seeded stream.
type Source struct {
	uniform distuv.Uniform
	normal  distuv.Normal
}

// New returns a Source whose draw sequence is fully determined by seed.
func New(seed int64) *Source {
	src := rand.NewSource(uint64(seed))
	return &Source{
		uniform: distuv.Uniform{Min: 0, Max: 1, Src: src},
		normal:  distuv.Normal{Mu: 0, Sigma: 1, Src: src},
	}
}

// Float64 returns a uniform sample in [0,1).
func (s *Source) Float64() float64 {
	v := s.uniform.Rand()
	if v >= 1 {
		// distuv.Uniform can return its upper bound due to floating
		// point rounding; clamp so callers doing a cumulative-weight
		// walk never overshoot the last bucket.
		v = 0.9999999999
	}
	return v
}

// Gaussian returns a zero-mean Gaussian sample scaled to sigma.
func (s *Source) Gaussian(sigma float64) float64 {
	return s.normal.Rand() * sigma
}
