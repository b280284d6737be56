package dpm

import "math"

// updateCell is the write-path primitive behind AddTrace: it resolves
// whichever ancestor entry currently applies to (x,y) for id, then
// either deepens an exact-match entry in place or forks a new one that
// starts from the resolved ancestor's (hits, distance), per §4.3.
func (l *Level) updateCell(x, y int, segment float64, hit int, id int) {
	if x < 0 || y < 0 || x >= l.cfg.Width || y >= l.cfg.Height {
		return
	}
	c := l.grid.ensure(x, y)
	idx, _, ok := l.resolve(x, y, id, false)

	if ok && c.entries[idx].ancestryID == id {
		c.entries[idx].hits += float64(hit)
		c.entries[idx].distance += segment
		return
	}

	var hits, distance float64
	parentGen := noPredecessor
	if ok {
		anc := c.entries[idx]
		hits = anc.hits + float64(hit)
		distance = anc.distance + segment
		parentGen = l.tree.generationOf(anc.ancestryID)
	} else {
		hits = float64(hit)
		distance = segment + priorDist
	}

	newIdx := l.appendEntry(x, y, c, entry{ancestryID: id, parentGen: parentGen, hits: hits, distance: distance})
	source := l.appendCellRef(id, x, y, newIdx)
	c.entries[newIdx].source = source

	if row := l.cacheRow(x, y); row != nil {
		row[id] = newIdx
	}
}

// cacheRow returns the cache's answer row for (x,y) if one has been
// built this iteration, or nil otherwise.
func (l *Level) cacheRow(x, y int) []int {
	f := l.cache.flag[x][y]
	if f <= 0 {
		return nil
	}
	return l.cache.rows[f]
}

// computeProbability is the read-path counterpart used by LineTrace: a
// cell never observed by id's lineage scores against the prior; one
// that is returns the hits/distance survival rate.
func (l *Level) computeProbability(x, y int, distance float64, id int) float64 {
	if x < 0 || y < 0 || x >= l.cfg.Width || y >= l.cfg.Height {
		return 1.0 - math.Exp(l.cfg.prior()*distance)
	}
	c := l.grid.at(x, y)
	if c == nil {
		return 1.0 - math.Exp(l.cfg.prior()*distance)
	}

	idx, shortCircuit, ok := l.resolve(x, y, id, true)
	if shortCircuit {
		return 0
	}
	if !ok {
		return 1.0 - math.Exp(l.cfg.prior()*distance)
	}
	e := c.entries[idx]
	if e.hits == 0 {
		return 0
	}
	return 1.0 - math.Exp(-(e.hits/e.distance)*distance)
}

// Observation returns the (hits, distance) an ancestry currently has on
// record for cell (x,y), resolved through the ancestry chain the same
// way scoring and commit do. ok is false if no ancestor in id's lineage
// has ever touched the cell.
func (l *Level) Observation(x, y, id int) (hits, distance float64, ok bool) {
	c := l.grid.at(x, y)
	if c == nil {
		return 0, 0, false
	}
	idx, shortCircuit, found := l.resolve(x, y, id, false)
	if shortCircuit || !found {
		return 0, 0, false
	}
	e := c.entries[idx]
	return e.hits, e.distance, true
}

// AddTrace commits one beam into the map under ancestorID: every cell
// before the terminal is updated with hit=0, and the terminal cell (the
// one the beam stopped in) with hit=1, but only when addEnd is set —
// i.e. only when measuredDist is a real return, not the sensor's
// out-of-range sentinel. The trace is clamped to MaxRange.
//
// Ported from the Amanatides-Woo-style grid walk of the reference
// implementation: the axis of greater displacement drives the step
// count; the other axis's crossing is folded in as an "overflow" carry
// that may trigger a second update within the same outer step.
func (l *Level) AddTrace(startX, startY, theta, measuredDist float64, ancestorID int, addEnd bool) {
	secant := 1.0 / math.Abs(math.Cos(theta))
	cosecant := 1.0 / math.Abs(math.Sin(theta))

	dist := math.Min(measuredDist, l.cfg.MaxRange)
	dx := startX + math.Cos(theta)*dist
	dy := startY + math.Sin(theta)*dist

	endX := int(dx)
	endY := int(dy)

	var incX, incY, xEdge, yEdge int
	if startX > dx {
		incX, xEdge = -1, 1
	} else {
		incX, xEdge = 1, 0
	}
	if startY > dy {
		incY, yEdge = -1, 1
	} else {
		incY, yEdge = 1, 0
	}

	if math.Abs(startX-dx) > math.Abs(startY-dy) {
		y := int(startY)
		overflow := startY - float64(y)
		if incY == 1 {
			overflow = 1.0 - overflow
		}
		slope := math.Abs(math.Tan(theta))
		if slope > 1.0 {
			slope = math.Abs((startY - dy) / (startX - dx))
		}

		// The starting square is partial in both axes; this first,
		// irregular step is not traced at all (its contribution is
		// negligible and the original implementation skips it too).
		step := math.Abs(float64(int(startX)+incX+xEdge) - startX)
		overflow -= slope * step
		if overflow < 0.0 {
			y += incY
			overflow += 1.0
		}

		stdDist := secant
		x := int(startX)

		for x = int(startX) + incX; x != endX; x += incX {
			overflow -= slope
			var segment float64
			if overflow < 0.0 {
				segment = (overflow + slope) * cosecant
			} else {
				segment = stdDist
			}
			l.updateCell(x, y, segment, 0, ancestorID)

			if overflow < 0.0 {
				y += incY
				segment = -overflow * cosecant
				overflow += 1.0
				l.updateCell(x, y, segment, 0, ancestorID)
			}
		}

		if addEnd {
			var segment float64
			if incX < 0 {
				segment = math.Abs(float64(endX+1)-dx) * secant
			} else {
				segment = math.Abs(dx-float64(endX)) * secant
			}
			l.updateCell(endX, endY, segment, 1, ancestorID)
		}
		return
	}

	x := int(startX)
	overflow := startX - float64(x)
	if incX == 1 {
		overflow = 1.0 - overflow
	}
	slope := 1.0 / math.Abs(math.Tan(theta))

	step := math.Abs(float64(int(startY)+incY+yEdge) - startY)
	overflow -= step * slope
	if overflow < 0.0 {
		x += incX
		overflow += 1.0
	}

	stdDist := slope * secant
	y := int(startY)

	for y = int(startY) + incY; y != endY; y += incY {
		overflow -= slope
		var segment float64
		if overflow < 0.0 {
			segment = (overflow + slope) * secant
		} else {
			segment = stdDist
		}
		l.updateCell(x, y, segment, 0, ancestorID)

		if overflow < 0.0 {
			x += incX
			segment = -overflow * secant
			overflow += 1.0
			l.updateCell(x, y, segment, 0, ancestorID)
		}
	}

	if addEnd {
		var segment float64
		if incY < 0 {
			segment = math.Abs((float64(endY+1) - dy) / math.Sin(theta))
		} else {
			segment = math.Abs((dy - float64(endY)) / math.Sin(theta))
		}
		l.updateCell(endX, endY, segment, 1, ancestorID)
	}
}

// LineTrace scores one beam against the map under ancestorID's lineage,
// returning an unnormalized probability in [0,1]. It traces a little
// past the measured distance (capped at MaxRange) so a beam that
// stopped early still gets credit from the cells just beyond its
// return, and weights each cell's stopping probability by how close
// that cell's distance along the ray is to the measured distance.
func (l *Level) LineTrace(startX, startY, theta, measuredDist float64, ancestorID int) float64 {
	eval := 0.0
	totalProb := 1.0
	secant := 1.0 / math.Abs(math.Cos(theta))
	cosecant := 1.0 / math.Abs(math.Sin(theta))
	variance2 := 2 * l.cfg.Variance

	dist := l.cfg.rangeCap(measuredDist)
	dx := startX + math.Cos(theta)*dist
	dy := startY + math.Sin(theta)*dist

	endX := int(dx)
	endY := int(dy)

	var incX, incY int
	var xBlock, yBlock float64
	if startX > dx {
		incX, xBlock = -1, -startX
	} else {
		incX, xBlock = 1, 1.0-startX
	}
	if startY > dy {
		incY, yBlock = -1, -startY
	} else {
		incY, yBlock = 1, 1.0-startY
	}

	if math.Abs(startX-dx) > math.Abs(startY-dy) {
		y := int(startY)
		overflow := startY - float64(y)
		if incY == 1 {
			overflow = 1.0 - overflow
		}
		slope := math.Abs(math.Tan(theta))
		if slope > 1.0 {
			slope = math.Abs((startY - dy) / (startX - dx))
		}

		firstDX := math.Abs(float64(int(startX)) + xBlock)
		firstDY := math.Abs(math.Tan(theta) * firstDX)
		if overflow-firstDY < 0.0 {
			y += incY
			overflow = (overflow - firstDY) + 1.0
		} else {
			overflow -= firstDY
		}

		standardDist := secant
		xMotion := -math.Abs(math.Abs((float64(int(startX))+xBlock)*secant) - measuredDist)
		yMotion := -math.Abs(math.Abs((float64(y)+yBlock)*cosecant) - measuredDist)

		for x := int(startX) + incX; x != endX; x += incX {
			overflow -= slope
			xMotion += secant
			var segment, errv float64
			if overflow < 0.0 {
				errv = math.Abs(yMotion)
				segment = (overflow + slope) * cosecant
			} else {
				errv = math.Abs(xMotion)
				segment = standardDist
			}

			prob := totalProb * l.computeProbability(x, y, segment, ancestorID)
			if errv < 20.0 {
				eval += prob * math.Exp(-(errv*errv)/variance2)
			}
			totalProb -= prob

			if overflow < 0.0 {
				y += incY
				yMotion += cosecant
				errv = math.Abs(xMotion)

				segment = -overflow * cosecant
				overflow += 1.0

				prob = totalProb * l.computeProbability(x, y, segment, ancestorID)
				if errv < 20.0 {
					eval += prob * math.Exp(-(errv*errv)/variance2)
				}
				totalProb -= prob
			}
		}
	} else {
		x := int(startX)
		overflow := startX - float64(x)
		if incX == 1 {
			overflow = 1.0 - overflow
		}
		slope := 1.0 / math.Abs(math.Tan(theta))

		firstDY := math.Abs(float64(int(startY)) + yBlock)
		firstDX := math.Abs(firstDY / math.Tan(theta))
		if overflow-firstDX < 0.0 {
			x += incX
			overflow = (overflow - firstDX) + 1.0
		} else {
			overflow -= firstDX
		}

		standardDist := slope * secant
		xMotion := -math.Abs(math.Abs((float64(x)+xBlock)*secant) - measuredDist)
		yMotion := -math.Abs(math.Abs((float64(int(startY))+yBlock)*cosecant) - measuredDist)

		for y := int(startY) + incY; y != endY; y += incY {
			yMotion += cosecant
			overflow -= slope
			var segment, errv float64
			if overflow < 0.0 {
				errv = math.Abs(xMotion)
				segment = (overflow + slope) * secant
			} else {
				errv = math.Abs(yMotion)
				segment = standardDist
			}

			prob := totalProb * l.computeProbability(x, y, segment, ancestorID)
			if errv < 20.0 {
				eval += prob * math.Exp(-(errv*errv)/variance2)
			}
			totalProb -= prob

			if overflow < 0.0 {
				x += incX
				xMotion += secant
				errv = math.Abs(yMotion)

				segment = -overflow * secant
				overflow += 1.0

				prob = totalProb * l.computeProbability(x, y, segment, ancestorID)
				if errv < 20.0 {
					eval += prob * math.Exp(-(errv*errv)/variance2)
				}
				totalProb -= prob
			}
		}
	}

	if measuredDist >= l.cfg.MaxRange {
		return eval + totalProb
	}
	if totalProb == 1 {
		return 0
	}
	return eval / (1.0 - totalProb)
}
