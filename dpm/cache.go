package dpm

// observationCache is the per-iteration, per-cell lookup table mapping
// ancestry ID to entry index, described in §4.2. It amortizes the cost
// of walking a cell's entries and then an ancestry chain once per cell
// per iteration, instead of once per particle per cell.
//
// flag[x][y] == 0 means the cell has not been cached yet this
// iteration; a positive value is the index into rows of the row holding
// the cell's answers (row 0 is never used); -2 means the cell is fully observed by every live
// ancestry as zero hits and so contributes no evidence (short-circuit
// to a score of zero in scoring mode).
type observationCache struct {
	width, height int
	idCount       int

	obsID int
	flag  [][]int
	rows  [][]int

	obsX, obsY []int
}

func (c *observationCache) init(width, height, idCount int) {
	c.width, c.height, c.idCount = width, height, idCount
	c.flag = make([][]int, width)
	for x := range c.flag {
		c.flag[x] = make([]int, height)
	}
	c.obsID = 1
	area := width * height
	c.obsX = make([]int, 1, area+1)
	c.obsY = make([]int, 1, area+1)
	c.rows = make([][]int, 1, area+1)
}

// reset tears down the cache built over the last iteration: every
// touched flag cell is cleared and obsID restarts at 1, per §4.2 and
// §5 ("Cache lifetime").
func (c *observationCache) reset() {
	for i := 1; i < c.obsID; i++ {
		c.flag[c.obsX[i]][c.obsY[i]] = 0
	}
	c.obsX = c.obsX[:1]
	c.obsY = c.obsY[:1]
	c.rows = c.rows[:1]
	c.obsID = 1
}

// claim assigns a fresh cache row to (x,y) and returns its row id
// (flag[x][y]'s new value), logging the touched cell so reset can clear
// it cheaply. Growth past the grid's area is diagnosed but not fatal:
// obsID does not wrap, and rows and the touched-cell log grow by
// append, so no cell is ever read out of bounds.
func (l *Level) claim(x, y int) int {
	c := &l.cache
	area := c.width * c.height
	if c.obsID > area {
		l.diagf("observation cache: obsID %d exceeds grid area %d\n", c.obsID, area)
	}
	row := make([]int, c.idCount)
	for i := range row {
		row[i] = -1
	}
	c.rows = append(c.rows, row)
	c.obsX = append(c.obsX, x)
	c.obsY = append(c.obsY, y)
	here := c.obsID
	c.flag[x][y] = here
	c.obsID++
	return here
}

// buildCache fills the cache row for (x,y): it records every ancestry
// ID that has a direct entry in the cell, then walks every live
// particle's ancestry upward, filling gaps with the nearest ancestor's
// answer. forScoring enables the short-circuit: if every live ancestry
// resolves to "observed, zero hits", the cell is marked fully-known-
// empty (-2) and contributes no further evidence.
func (l *Level) buildCache(x, y int, forScoring bool) {
	c := l.grid.at(x, y)
	row := make([]int, l.cache.idCount)
	for i := range row {
		row[i] = -1
	}

	allZeroHits := forScoring
	if c != nil {
		l.fillDirectObservations(x, y, c, row)
		if forScoring {
			for _, e := range c.entries {
				if e.parentGen != tombstone && e.hits > 0 {
					allZeroHits = false
					break
				}
			}
		}
	}

	for i := range l.tree.nodes {
		l.tree.nodes[i].seen = false
	}

	var stack []int
	for _, p := range l.particles {
		lineage := p.AncestryID
		stack = stack[:0]
		for lineage >= 0 {
			n := l.tree.node(lineage)
			if n.seen {
				break
			}
			stack = append(stack, n.id)
			n.seen = true
			lineage = n.parent
		}
		for i := len(stack) - 1; i >= 0; i-- {
			n := l.tree.node(stack[i])
			if row[n.id] != -1 {
				continue
			}
			if n.parent < 0 {
				allZeroHits = false
				continue
			}
			row[n.id] = row[l.tree.node(n.parent).id]
			if row[n.id] == -1 {
				allZeroHits = false
			}
		}
	}

	if forScoring && allZeroHits {
		l.cache.flag[x][y] = -2
		return
	}

	here := l.claim(x, y)
	l.cache.rows[here] = row
}

// fillDirectObservations resolves duplicate same-ID entries within a
// single cell (a possible legacy of earlier collapses) by keeping the
// entry with the shorter distance as canonical and tombstoning the
// longer one, then records each surviving ancestry's direct entry index
// into row.
func (l *Level) fillDirectObservations(x, y int, c *cell, row []int) {
	for i := range c.entries {
		e := &c.entries[i]
		if e.parentGen == tombstone {
			continue
		}
		if prev := row[e.ancestryID]; prev != -1 {
			other := &c.entries[prev]
			if e.distance > other.distance {
				e.parentGen = tombstone
				c.dead++
			} else {
				other.parentGen = tombstone
				c.dead++
				row[e.ancestryID] = i
			}
			continue
		}
		row[e.ancestryID] = i
	}
}

// resolve returns the entry index applicable to ancestry id at (x,y),
// building the cache for the cell on first access this iteration.
// ok is false when the cell is unobserved by id's lineage.
func (l *Level) resolve(x, y, id int, forScoring bool) (index int, shortCircuit, ok bool) {
	if l.cache.flag[x][y] == 0 {
		l.buildCache(x, y, forScoring)
	}
	if l.cache.flag[x][y] == -2 {
		return -1, true, false
	}
	row := l.cache.rows[l.cache.flag[x][y]]
	idx := row[id]
	return idx, false, idx != -1
}
