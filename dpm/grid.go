package dpm

// Entry sentinels for parentGen: which ancestor generation this
// observation supersedes, or whether it has been tombstoned.
const (
	noPredecessor = -2
	tombstone     = -1
)

// entry is a single ancestry's contribution to one grid cell:
// accumulated hits and path length.
type entry struct {
	ancestryID int
	source     int // index into ancestry[ancestryID].cellRefs
	parentGen  int
	hits       float64
	distance   float64
}

// cell is the per-cell sparse observation array. entries always has
// length equal to the cell's logical "total" (tombstones included);
// cap(entries) is the cell's allocated size, grown and shrunk explicitly
// by resize rather than left to Go's append doubling, so the shrink
// threshold in delete can be evaluated against a known capacity.
type cell struct {
	entries []entry
	dead    int
}

func (c *cell) total() int { return len(c.entries) }
func (c *cell) size() int  { return cap(c.entries) }

// grid is the 2D array of optional cell records.
type grid struct {
	width, height int
	cells         [][]*cell
}

func newGrid(width, height int) *grid {
	cells := make([][]*cell, width)
	for x := range cells {
		cells[x] = make([]*cell, height)
	}
	return &grid{width: width, height: height, cells: cells}
}

func (g *grid) at(x, y int) *cell {
	return g.cells[x][y]
}

func (g *grid) ensure(x, y int) *cell {
	c := g.cells[x][y]
	if c == nil {
		c = &cell{}
		g.cells[x][y] = c
	}
	return c
}

func (g *grid) free(x, y int) {
	g.cells[x][y] = nil
}

// appendEntry grows entries geometrically (x1.75, via resize) on
// overflow, then appends e. It returns the index e now lives at.
func (l *Level) appendEntry(x, y int, c *cell, e entry) int {
	if c.total() == c.size() {
		l.resizeCell(x, y, c, -1)
	}
	c.entries = append(c.entries, e)
	return len(c.entries) - 1
}

// resizeCell rebuilds entries, dropping (a) any entry with
// ancestryID == deadID (if deadID >= 0) and (b) all tombstones. When
// several entries for the same ID survive that rule, the one with the
// greatest distance (the most recently deepened) is kept, propagating
// the loser's parentGen. Every surviving entry's back-reference is
// rewritten so invariant (1) holds on exit.
func (l *Level) resizeCell(x, y int, c *cell, deadID int) {
	dead := c.dead
	if deadID >= 0 {
		dead++
	}
	newCap := int(ceil175(float64(c.total() - dead)))
	if newCap < 1 {
		newCap = 1
	}
	rebuilt := make([]entry, 0, newCap)
	from := make([]int, 0, newCap) // old index of each rebuilt entry
	canonical := make(map[int]int, c.total())

	for i, e := range c.entries {
		if e.ancestryID == deadID {
			// The caller is in the process of removing every
			// cell-ref this ancestor owns; mark this one
			// resolved so the pruning walk does not revisit it.
			l.markRefRemoved(e.ancestryID, e.source)
			continue
		}
		if e.parentGen == tombstone {
			l.removeCellRef(e.ancestryID, e.source)
			continue
		}
		if idx, ok := canonical[e.ancestryID]; ok {
			winner := &rebuilt[idx]
			if e.distance > winner.distance {
				loser := *winner
				*winner = e
				from[idx] = i
				if loser.parentGen != noPredecessor {
					winner.parentGen = loser.parentGen
				}
				l.removeCellRef(loser.ancestryID, loser.source)
			} else {
				if e.parentGen != noPredecessor {
					winner.parentGen = e.parentGen
				}
				l.removeCellRef(e.ancestryID, e.source)
			}
			continue
		}
		canonical[e.ancestryID] = len(rebuilt)
		rebuilt = append(rebuilt, e)
		from = append(from, i)
	}

	// removeCellRef fixes up sources in the old slice; re-read them.
	old := c.entries
	c.entries = rebuilt
	c.dead = 0
	for i := range c.entries {
		c.entries[i].source = old[from[i]].source
		l.setCellRefIndex(c.entries[i].ancestryID, c.entries[i].source, x, y, i)
	}
	// Entry indices moved, so a cached row for this cell is stale.
	l.cache.flag[x][y] = 0
}

// deleteEntry removes entries[index] and its owner's cell-ref. The
// entry is swap-removed with back-reference fix-up; when the live
// occupancy drops low relative to capacity, the cell is compacted via
// resizeCell instead; when the cell becomes empty, it is freed.
func (l *Level) deleteEntry(x, y, index int) {
	c := l.grid.at(x, y)
	if c == nil || index < 0 {
		return
	}

	e := &c.entries[index]
	l.removeCellRef(e.ancestryID, e.source)
	e.source = -1
	if e.parentGen != tombstone {
		e.parentGen = tombstone
		c.dead++
	}

	if float64(c.total()-c.dead)*2.5 <= float64(c.size()) {
		l.resizeCell(x, y, c, -1)
		if c.total() == 0 {
			l.grid.free(x, y)
		}
		return
	}

	last := c.total() - 1
	if index != last {
		c.entries[index] = c.entries[last]
		l.setCellRefIndex(c.entries[index].ancestryID, c.entries[index].source, x, y, index)
	}
	c.entries = c.entries[:last]
	c.dead--
}

// ceil175 mirrors the original's growth factor: new capacity is the
// ceiling of 1.75x the live (non-dead) entry count.
func ceil175(liveCount float64) float64 {
	v := liveCount * 1.75
	iv := float64(int(v))
	if iv < v {
		iv++
	}
	return iv
}
