// Package dpm implements the Distributed Particle Map: a grid-based
// occupancy map in which each cell stores, per live particle ancestry, an
// independent (hits, total-traversed-distance) observation pair, together
// with the ancestry tree that lets descendant particles inherit their
// ancestors' observations without copying them.
//
// A Level is one self-contained instance of this machinery. The
// hierarchical coordinator (package hierarchy) runs two Levels at two
// timescales; a Level itself has no notion of "low" or "high", only the
// Config it was built with.
package dpm

import "math"

// Config holds the compile-time constants of the original program,
// reparameterized per level so a single implementation serves both the
// fine, short-horizon level and the coarse, long-horizon one.
type Config struct {
	// Width and Height are the grid extents, in cells.
	Width, Height int

	// Particles is the number of surviving particles kept after each
	// resample (PARTICLE_NUMBER).
	Particles int

	// Samples is the number of proposals drawn per resample; must be
	// >= Particles (SAMPLE_NUMBER).
	Samples int

	// IDs bounds the ancestry ID space (ID_NUMBER). The last ID is
	// reserved for the permanent root ancestor.
	IDs int

	// Beams is the number of laser beams per scan (SENSE_NUMBER).
	Beams int

	// Variance is the radial error variance used when scoring a beam
	// against a traced cell (VARIANCE).
	Variance float64

	// Scale maps metres to grid cells (MAP_SCALE).
	Scale float64

	// TurnRadius is used by the arc-of-turn motion model (TURN_RADIUS).
	TurnRadius float64

	// MaxRange clamps traced and scored beam length (MAX_SENSE_RANGE).
	MaxRange float64

	// Video is the interval, in resample steps, between map snapshots;
	// 0 disables snapshotting.
	Video int

	// Thresh is the log-score culling margin applied each sub-step
	// (THRESH).
	Thresh float64

	// Passes bounds the number of intra-interval scoring sub-steps a
	// single call to RunInterval is expected to carry (PASSES). It is
	// informational for callers composing an interval; RunInterval
	// itself takes as many sub-steps as it is given.
	Passes int

	// PosNoiseSigma and AngleNoiseSigma parameterize the proposal
	// scatter applied to each child at resample time, in grid cells
	// and radians respectively.
	PosNoiseSigma   float64
	AngleNoiseSigma float64
}

// priorDist is PRIOR_DIST: a fixed prior path length folded into the
// distance accumulator of a cell's first-ever observation, so that a
// single grazing trace does not report a spuriously high hit ratio.
const priorDist = 4.0

// prior returns PRIOR: the per-distance log-survival rate assumed for a
// cell that has never been observed by any ancestry.
func (c Config) prior() float64 {
	return -1.0 / (c.Scale * 8.0)
}

// maxTraceError is the probability floor applied to a single beam's
// scored contribution, preventing a single bad beam from driving a
// particle's cumulative log-probability to -Inf.
func (c Config) maxTraceError() float64 {
	return math.Exp(-24.0 / c.Variance)
}

// rangeCap is the distance LineTrace traces out to: a little beyond the
// measured distance, but never past MaxRange.
func (c Config) rangeCap(measured float64) float64 {
	d := measured + 20.0
	if d > c.MaxRange {
		return c.MaxRange
	}
	return d
}

// LowDefault returns the fine, short-horizon level's configuration: a
// smaller grid, fewer particles, resampled on every reading.
func LowDefault() Config {
	return Config{
		Width: 600, Height: 600,
		Particles: 30, Samples: 60,
		IDs:   4000,
		Beams: 180,

		Variance:   40.0,
		Scale:      20.0,
		TurnRadius: 60.0,
		MaxRange:   500.0,
		Video:      0,
		Thresh:     10.0,
		Passes:     1,

		PosNoiseSigma:   0.5,
		AngleNoiseSigma: 0.01,
	}
}

// HighDefault returns the coarse, long-horizon level's configuration: a
// larger grid, more particles, and a wider culling margin to absorb a
// whole aggregated LowDuration window in one resample.
func HighDefault() Config {
	return Config{
		Width: 2000, Height: 2000,
		Particles: 40, Samples: 80,
		IDs:   8000,
		Beams: 180,

		Variance:   40.0,
		Scale:      20.0,
		TurnRadius: 60.0,
		MaxRange:   500.0,
		Video:      1,
		Thresh:     12.0,
		Passes:     9,

		PosNoiseSigma:   0.5,
		AngleNoiseSigma: 0.01,
	}
}
