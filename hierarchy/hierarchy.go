// Package hierarchy runs two dpm.Level instances at two timescales: a
// fine, short-horizon "low" level that resamples on every incoming
// (motion, scan) reading, and a coarse, long-horizon "high" level that
// resamples once per LowDuration low-level readings, scoring its whole
// accumulated window as a single interval. The two levels share no
// state; the coordinator only decides when to flush the low level's
// window up to the high level.
package hierarchy

import (
	"fmt"

	"github.com/OpenSLAM-org/openslam-dpslam/dpm"
	"github.com/OpenSLAM-org/openslam-dpslam/rng"
)

// Coordinator owns the low and high dpm.Level instances and the
// low-level reading window awaiting flush to the high level.
type Coordinator struct {
	Low, High *dpm.Level

	lowDuration int
	pending     []dpm.Step
	bootstrapped bool
}

// New builds a Coordinator. lowDuration is LOW_DURATION: the number of
// low-level readings aggregated into one high-level interval. Passing
// a very large lowDuration (the high level never flushes) is
// equivalent to disabling hierarchy, per §4.8.
func New(lowCfg, highCfg dpm.Config, lowSeed, highSeed int64, lowDuration int) *Coordinator {
	if lowDuration < 1 {
		lowDuration = 1
	}
	return &Coordinator{
		Low:         dpm.NewLevel(lowCfg, rng.New(lowSeed)),
		High:        dpm.NewLevel(highCfg, rng.New(highSeed)),
		lowDuration: lowDuration,
		pending:     make([]dpm.Step, 0),
	}
}

// Feed advances both levels by one raw (motion, scan) reading. The
// very first reading bootstraps both levels directly, with no scoring,
// since there is nothing yet for a lone seed particle to compete
// against. Every subsequent reading resamples the low level
// immediately; the low level's best-particle pose delta across that
// resample — its local correction of the raw odometry, not the
// odometry itself — is what gets appended to the pending window. Once
// lowDuration readings have accumulated, that whole window (corrected
// motion, original scans) is scored and committed to the high level as
// a single interval, the same way LowSlam's corrected path feeds
// HighSlam rather than the raw reading.
func (c *Coordinator) Feed(step dpm.Step) error {
	if !c.bootstrapped {
		c.Low.Bootstrap([]dpm.Step{step})
		c.High.Bootstrap([]dpm.Step{step})
		c.bootstrapped = true
		return c.Err()
	}

	before := bestPose(c.Low)
	c.Low.RunInterval([]dpm.Step{step})
	after := bestPose(c.Low)

	corrected := dpm.InverseMotion(before, after, c.Low.Config().TurnRadius)
	c.pending = append(c.pending, dpm.Step{Motion: corrected, Scan: step.Scan})

	if len(c.pending) >= c.lowDuration {
		c.High.RunInterval(c.pending)
		c.pending = c.pending[:0]
	}

	return c.Err()
}

// bestPose snapshots a level's highest-weighted particle pose; used to
// read the low level's consensus position before and after a resample,
// and as BestPose's implementation for external callers.
func bestPose(level *dpm.Level) dpm.Pose {
	p := level.Particles()[level.Best()]
	return dpm.Pose{X: p.X, Y: p.Y, Theta: p.Theta}
}

// Err reports the first fatal condition raised by either level, if
// any. Per §7, ancestry ID exhaustion and invariant violations are
// diagnosed but do not themselves halt a Level; a caller driving a long
// run should check Err after every Feed and decide whether to stop.
func (c *Coordinator) Err() error {
	if c.Low.Fatal != nil {
		return fmt.Errorf("low level: %w", c.Low.Fatal)
	}
	if c.High.Fatal != nil {
		return fmt.Errorf("high level: %w", c.High.Fatal)
	}
	return nil
}

// BestPose returns the pose of the highest-weighted particle in the
// level a caller is interested in snapshotting; most UIs want the high
// level's consensus view.
func BestPose(level *dpm.Level) dpm.Pose {
	return bestPose(level)
}
