package dpm

import (
	"fmt"
	"io"

	"github.com/OpenSLAM-org/openslam-dpslam/rng"
)

// Particle is one live hypothesis: a pose, the ancestry node it last
// wrote observations under, and a weight. The weight is the particle's
// normalized (non-log) share from the last resample (1 for the seed
// particle); the log-probabilities accumulated during an interval's
// sub-step scoring live on that interval's proposals, not here.
type Particle struct {
	X, Y, Theta float64
	AncestryID  int
	Weight      float64
}

// Pose is a planar robot pose in grid units and radians.
type Pose struct {
	X, Y, Theta float64
}

// Motion is one interval's odometric delta: forward, lateral and
// rotational components.
type Motion struct {
	D, C, T float64
}

// Beam is one laser return: a relative bearing and a measured distance.
// A distance >= the level's MaxRange is the "no return" sentinel.
type Beam struct {
	Theta    float64
	Distance float64
}

// Scan is one ordered sweep of beams.
type Scan []Beam

// Level is one self-contained instance of the Distributed Particle Map:
// its own grid, ancestry tree, observation cache and particle set. Two
// Levels with different Configs, run by package hierarchy, make up the
// hierarchical SLAM system; a Level in isolation has no notion of which
// tier it serves.
type Level struct {
	cfg  Config
	rng  *rng.Source
	grid *grid
	tree *tree

	particles []Particle
	children  []int

	generation int

	// Fatal records an unrecoverable error (ID exhaustion, an invariant
	// violation) so callers can check it after a Step instead of the
	// package panicking out from under a long-running process.
	Fatal error

	// Diag, if set, receives non-fatal diagnostics (the observation
	// cache growing past the grid area, which is safe to continue past). Library code
	// never writes to stderr directly; a caller that wants these
	// diagnostics surfaced sets Diag to os.Stderr or a log file.
	Diag io.Writer

	cache observationCache
}

// NewLevel builds an empty Level: a single particle at the map's center
// with the ancestry root as its only ancestor, ready to start an
// interval loop.
func NewLevel(cfg Config, source *rng.Source) *Level {
	l := &Level{
		cfg:       cfg,
		rng:       source,
		grid:      newGrid(cfg.Width, cfg.Height),
		tree:      newTree(cfg.IDs),
		particles: make([]Particle, 1, cfg.Particles),
		children:  make([]int, 1, cfg.Particles),
	}
	l.cache.init(cfg.Width, cfg.Height, cfg.IDs)

	l.particles[0] = Particle{
		X:          float64(cfg.Width) / 2,
		Y:          float64(cfg.Height) / 2,
		Theta:      0.001,
		AncestryID: l.tree.rootID,
		Weight:     1,
	}
	l.children[0] = cfg.Samples
	return l
}

// Config returns the level's configuration.
func (l *Level) Config() Config { return l.cfg }

// Particles returns the live particle set. The slice is owned by the
// Level and must not be mutated by the caller.
func (l *Level) Particles() []Particle { return l.particles }

// Best returns the index of the highest-probability live particle.
func (l *Level) Best() int {
	best := 0
	for i, p := range l.particles {
		if p.Weight > l.particles[best].Weight {
			best = i
		}
	}
	return best
}

// Generation returns the number of intervals committed so far: each
// Bootstrap and each RunInterval call counts as one.
func (l *Level) Generation() int { return l.generation }

// fail records a fatal, non-recoverable condition (invariant violation
// or ID exhaustion) for the caller to observe and stop the run.
func (l *Level) fail(format string, args ...any) {
	if l.Fatal == nil {
		l.Fatal = fmt.Errorf(format, args...)
	}
}

// diagf writes a non-fatal diagnostic to Diag, if set, and is silent
// otherwise.
func (l *Level) diagf(format string, args ...any) {
	if l.Diag != nil {
		fmt.Fprintf(l.Diag, format, args...)
	}
}
