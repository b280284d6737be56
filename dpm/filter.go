package dpm

import "math"

// culled marks a proposal that fell below the running cull threshold
// partway through an interval; it takes no further part in scoring.
var culled = math.Inf(-1)

// Step is one sub-interval: an odometric advance followed by the scan
// taken at the resulting pose.
type Step struct {
	Motion Motion
	Scan   Scan
}

// proposal is one of SAMPLE_NUMBER candidates drawn at the start of an
// interval: a perturbed copy of a surviving particle's pose, scored
// across every Step before resampling decides which proposals survive.
type proposal struct {
	parent         int // index into the particle set this interval started with
	x, y, theta    float64
	dx, dy, dtheta float64 // perturbation, replayed unscored at commit time
	logProb        float64
}

// survivor is a proposal that won resampling: its replay pose (parent's
// pre-interval pose plus the same perturbation) and the ancestry node
// it will write under once maintenance has run.
type survivor struct {
	x, y, theta float64
	ancestry    int
	weight      float64
	children    int
}

// advance applies the arc-of-turn motion model to a pose.
func advance(x, y, theta float64, m Motion, turnRadius float64) (nx, ny, ntheta float64) {
	moveAngle := theta + m.T/2.0
	nx = x + turnRadius*(math.Cos(theta+m.T)-math.Cos(theta)) + m.D*math.Cos(moveAngle) + m.C*math.Cos(moveAngle+math.Pi/2)
	ny = y + turnRadius*(math.Sin(theta+m.T)-math.Sin(theta)) + m.D*math.Sin(moveAngle) + m.C*math.Sin(moveAngle+math.Pi/2)
	ntheta = theta + m.T
	return
}

// InverseMotion recovers the Motion that advance would need to carry a
// particle from "from" to "to" under the arc-of-turn model, parameterized
// by turnRadius. This is the hierarchy coordinator's consensus-extraction
// step (§4.8): a window's low-level best-particle pose delta gets
// translated back into a Motion so the high level scores the low level's
// corrected trajectory instead of replaying raw odometry.
func InverseMotion(from, to Pose, turnRadius float64) Motion {
	t := to.Theta - from.Theta
	moveAngle := from.Theta + t/2.0

	rx := to.X - from.X - turnRadius*(math.Cos(to.Theta)-math.Cos(from.Theta))
	ry := to.Y - from.Y - turnRadius*(math.Sin(to.Theta)-math.Sin(from.Theta))

	d := rx*math.Cos(moveAngle) + ry*math.Sin(moveAngle)
	c := -rx*math.Sin(moveAngle) + ry*math.Cos(moveAngle)

	return Motion{D: d, C: c, T: t}
}

// Bootstrap commits the very first interval directly under the seed
// particle, with no scoring or resampling: there is nothing yet to
// compare it against.
func (l *Level) Bootstrap(steps []Step) {
	for _, st := range steps {
		l.cache.reset()
		for i := range l.particles {
			p := &l.particles[i]
			p.X, p.Y, p.Theta = advance(p.X, p.Y, p.Theta, st.Motion, l.cfg.TurnRadius)
			for _, b := range st.Scan {
				l.AddTrace(p.X, p.Y, b.Theta+p.Theta, b.Distance, p.AncestryID, b.Distance < l.cfg.MaxRange)
			}
		}
	}
	l.cache.reset()
	l.generation++
}

// score sums the log-probability of every beam in a scan against the
// map as seen by ancestorID, floored so a single bad beam cannot drive
// the running total to -Inf.
func (l *Level) score(x, y, theta float64, scan Scan, ancestorID int) float64 {
	floor := l.cfg.maxTraceError()
	total := 0.0
	for _, b := range scan {
		p := l.LineTrace(x, y, b.Theta+theta, b.Distance, ancestorID)
		total += math.Log(math.Max(floor, p))
	}
	return total
}

// RunInterval runs one full resample cycle: proposal expansion,
// sub-step scoring with log-score culling, multinomial resampling,
// ancestry maintenance, and finally committing the interval's motion
// and scans into the map under the survivors' ancestry IDs.
func (l *Level) RunInterval(steps []Step) {
	proposals := l.expandProposals()

	threshold := math.Inf(-1)
	best := 0
	for _, st := range steps {
		l.cache.reset()
		best = 0
		for i := range proposals {
			s := &proposals[i]
			if s.logProb <= threshold {
				s.logProb = culled
				continue
			}
			s.x, s.y, s.theta = advance(s.x, s.y, s.theta, st.Motion, l.cfg.TurnRadius)
			ancestorID := l.particles[s.parent].AncestryID
			s.logProb += l.score(s.x, s.y, s.theta, st.Scan, ancestorID)
			if s.logProb > proposals[best].logProb {
				best = i
			}
		}
		threshold = proposals[best].logProb - l.cfg.Thresh
	}
	l.cache.reset()

	survivors := l.resample(proposals, best)

	l.pruneDeadBranches()
	l.collapseSingleChildBranches()
	l.assignAncestry(survivors)
	l.reclaimCollapsed()

	// The cache walks l.particles, so the survivors become the particle
	// set before commit traces under their new ancestry IDs.
	l.particles = l.particles[:0]
	l.children = l.children[:0]
	for _, sv := range survivors {
		l.particles = append(l.particles, Particle{AncestryID: sv.ancestry, Weight: sv.weight})
		l.children = append(l.children, sv.children)
	}

	l.commit(survivors, steps)

	for i, sv := range survivors {
		l.particles[i].X, l.particles[i].Y, l.particles[i].Theta = sv.x, sv.y, sv.theta
	}
	l.generation++
}

// expandProposals distributes Samples proposals across the current
// particles according to the child counts fixed at the previous
// resample, scattering each by a Gaussian perturbation that is
// remembered so the commit phase can replay it exactly.
func (l *Level) expandProposals() []proposal {
	proposals := make([]proposal, 0, l.cfg.Samples)
	for i, p := range l.particles {
		for n := 0; n < l.children[i]; n++ {
			dx := l.rng.Gaussian(l.cfg.PosNoiseSigma)
			dy := l.rng.Gaussian(l.cfg.PosNoiseSigma)
			dtheta := l.rng.Gaussian(l.cfg.AngleNoiseSigma)
			proposals = append(proposals, proposal{
				parent: i,
				x:      p.X + dx,
				y:      p.Y + dy,
				theta:  p.Theta + dtheta,
				dx:     dx, dy: dy, dtheta: dtheta,
			})
		}
	}
	return proposals
}

// resample normalizes the scored proposals relative to the best and
// draws until Samples children are allocated across at most Particles
// distinct parents, renormalizing over the chosen set if that cap is
// hit first.
func (l *Level) resample(proposals []proposal, best int) []survivor {
	top := proposals[best].logProb
	probs := make([]float64, len(proposals))
	total := 0.0
	for i, s := range proposals {
		if s.logProb == culled {
			probs[i] = 0
			continue
		}
		probs[i] = math.Exp(s.logProb - top)
		total += probs[i]
	}
	for i := range probs {
		probs[i] /= total
	}

	newChildren := make([]int, len(proposals))
	survivorCount, assigned := 0, 0
	for assigned < l.cfg.Samples && survivorCount < l.cfg.Particles {
		k := l.drawIndex(probs)
		if newChildren[k] == 0 {
			survivorCount++
		}
		newChildren[k]++
		assigned++
	}

	survivors := make([]survivor, 0, survivorCount)
	for i, n := range newChildren {
		if n == 0 {
			continue
		}
		parent := l.particles[proposals[i].parent]
		// Each surviving proposal is a distinct branch off its parent's
		// current ancestry node; maintenance prunes any branch whose
		// count stays at zero and collapses any that stays at one.
		l.tree.node(parent.AncestryID).numChildren++
		survivors = append(survivors, survivor{
			x:        parent.X + proposals[i].dx,
			y:        parent.Y + proposals[i].dy,
			theta:    parent.Theta + proposals[i].dtheta,
			ancestry: parent.AncestryID,
			weight:   probs[i],
			children: n,
		})
	}

	if assigned < l.cfg.Samples {
		total = 0.0
		for _, sv := range survivors {
			total += sv.weight
		}
		survProbs := make([]float64, len(survivors))
		for i, sv := range survivors {
			survProbs[i] = sv.weight / total
		}
		for assigned < l.cfg.Samples {
			k := l.drawIndex(survProbs)
			survivors[k].children++
			assigned++
		}
	}

	return survivors
}

// drawIndex performs the classic cumulative-weight multinomial draw:
// walk weights until the running remainder of a uniform sample goes
// negative.
func (l *Level) drawIndex(weights []float64) int {
	f := l.rng.Float64()
	k := 0
	for k < len(weights)-1 && f > weights[k] {
		f -= weights[k]
		k++
	}
	return k
}

// commit replays each survivor's interval from its pre-interval pose
// plus its remembered perturbation, tracing every beam into the map
// under the ancestry ID maintenance has just assigned it.
func (l *Level) commit(survivors []survivor, steps []Step) {
	for _, st := range steps {
		l.cache.reset()
		for i := range survivors {
			sv := &survivors[i]
			sv.x, sv.y, sv.theta = advance(sv.x, sv.y, sv.theta, st.Motion, l.cfg.TurnRadius)
			for _, b := range st.Scan {
				l.AddTrace(sv.x, sv.y, b.Theta+sv.theta, b.Distance, sv.ancestry, b.Distance < l.cfg.MaxRange)
			}
		}
	}
	l.cache.reset()
}
