package dpm

// This file holds the bookkeeping that keeps a cell entry and its
// owning ancestor's cellRefs in sync (invariant 1): every mutation of
// one side is mirrored on the other within the same call.

// setCellRefIndex rewrites ancestor id's cellRefs[source] to point at
// the entry's new home, used whenever a cell's entries slice is
// rebuilt or swap-compacted.
func (l *Level) setCellRefIndex(id, source, x, y, index int) {
	n := l.tree.node(id)
	if source < 0 || source >= len(n.cellRefs) {
		l.fail("invariant violation: cellRefs[%d] out of range for ancestor %d", source, id)
		return
	}
	n.cellRefs[source] = cellRef{x: x, y: y, index: index}
}

// appendCellRef records that ancestor id now owns the entry at
// (x,y,index), returning the new cellRefs slot ("source").
func (l *Level) appendCellRef(id, x, y, index int) int {
	n := l.tree.node(id)
	n.cellRefs = append(n.cellRefs, cellRef{x: x, y: y, index: index})
	return len(n.cellRefs) - 1
}

// removeCellRef swap-removes ancestor id's cellRefs[source], fixing up
// whichever cell entry the moved-in ref now points to.
func (l *Level) removeCellRef(id, source int) {
	n := l.tree.node(id)
	if source < 0 || source >= len(n.cellRefs) {
		return
	}
	last := len(n.cellRefs) - 1
	if source != last {
		moved := n.cellRefs[last]
		n.cellRefs[source] = moved
		if c := l.grid.at(moved.x, moved.y); c != nil && moved.index < len(c.entries) {
			c.entries[moved.index].source = source
		}
	}
	n.cellRefs = n.cellRefs[:last]
}

// markRefRemoved records that ancestor id's cellRefs[source] has
// already been dropped by the caller (a full-branch prune in progress),
// so later bookkeeping does not try to remove it a second time.
func (l *Level) markRefRemoved(id, source int) {
	n := l.tree.node(id)
	if source < 0 || source >= len(n.cellRefs) {
		return
	}
	n.cellRefs[source] = cellRef{x: -1, y: -1, index: -1}
}
