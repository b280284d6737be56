package dpm

// pruneDeadBranches walks upward from every particle's (pre-resample)
// ancestry node, reclaiming any node whose child count stayed at zero
// this interval: every cell-ref it owns is deleted and its ID returned
// to the free list, and the parent's count is decremented in turn, so
// a whole dead chain unwinds in one pass.
func (l *Level) pruneDeadBranches() {
	for i := range l.particles {
		id := l.particles[i].AncestryID
		for {
			n := l.tree.node(id)
			if n.numChildren != 0 || n.id == l.tree.rootID {
				break
			}
			for len(n.cellRefs) > 0 {
				ref := n.cellRefs[len(n.cellRefs)-1]
				l.deleteEntry(ref.x, ref.y, ref.index)
			}
			parent := n.parent
			l.tree.release(n.id)
			if parent < 0 {
				break
			}
			l.tree.nodes[parent].numChildren--
			id = parent
		}
	}
}

// collapseSingleChildBranches merges every live node whose parent now
// has exactly one remaining child into that parent: the child's
// cell-refs move to the parent, any parent entry the child has more
// recently observed is tombstoned, and the child is marked with
// collapsedGen so any lingering reference forwards through it. A
// second pass forwards references that were resolved before a later
// collapse in the same scan.
func (l *Level) collapseSingleChildBranches() {
	for id := 0; id < l.cfg.IDs-1; id++ {
		n := &l.tree.nodes[id]
		if n.id != id || n.parent < 0 {
			continue
		}
		for l.tree.nodes[n.parent].generation == collapsedGen {
			n.parent = l.tree.nodes[n.parent].parent
		}
		parent := &l.tree.nodes[n.parent]
		if parent.numChildren != 1 {
			continue
		}
		l.mergeIntoParent(n, parent)
	}

	for id := 0; id < l.cfg.IDs-1; id++ {
		n := &l.tree.nodes[id]
		if n.id != id || n.parent < 0 {
			continue
		}
		for l.tree.nodes[n.parent].generation == collapsedGen {
			n.parent = l.tree.nodes[n.parent].parent
		}
	}
}

// mergeIntoParent moves every cell-ref child owns onto parent,
// tombstoning any parent entry the child's observation supersedes, then
// retires child as a forwarding stub.
func (l *Level) mergeIntoParent(child, parent *ancestor) {
	refs := child.cellRefs
	child.cellRefs = nil
	for _, ref := range refs {
		c := l.grid.at(ref.x, ref.y)
		e := &c.entries[ref.index]
		e.ancestryID = parent.id
		e.source = len(parent.cellRefs)
		parent.cellRefs = append(parent.cellRefs, ref)

		if e.parentGen >= parent.generation {
			for j := range c.entries {
				o := &c.entries[j]
				if j != ref.index && o.ancestryID == parent.id && o.parentGen != tombstone {
					o.parentGen = tombstone
					c.dead++
				}
			}
		}
	}

	// Compaction runs only after every moved ref has its final ID and
	// source, since resizeCell reads both while rebuilding a cell.
	seen := make(map[[2]int]bool, len(refs))
	for _, ref := range refs {
		key := [2]int{ref.x, ref.y}
		if seen[key] {
			continue
		}
		seen[key] = true
		c := l.grid.at(ref.x, ref.y)
		if c == nil {
			continue
		}
		if float64(c.total()-c.dead)*2.5 < float64(c.size()) {
			l.resizeCell(ref.x, ref.y, c, -1)
		}
	}

	parent.numChildren = child.numChildren
	child.generation = collapsedGen
}

// assignAncestry gives every survivor its ancestry node for the
// interval just committed: a branch that is its parent's only
// surviving child inherits that node directly (stamped with the
// current generation and reset to zero children); one of several
// siblings gets a freshly allocated node as a child of the shared
// parent.
func (l *Level) assignAncestry(survivors []survivor) {
	gen := l.generation + 1
	for i := range survivors {
		node := l.tree.node(survivors[i].ancestry)
		if node.numChildren == 1 {
			node.generation = gen
			node.numChildren = 0
			survivors[i].ancestry = node.id
			continue
		}

		id, ok := l.tree.alloc()
		if !ok {
			l.fail("ancestry ID exhaustion: free list underflow")
			survivors[i].ancestry = l.tree.rootID
			continue
		}
		l.tree.nodes[id] = ancestor{id: id, parent: node.id, generation: gen, numChildren: 0}
		survivors[i].ancestry = id
	}
}

// reclaimCollapsed sweeps every node retired by a collapse this
// interval and returns its ID to the free list.
func (l *Level) reclaimCollapsed() {
	for id := 0; id < l.cfg.IDs-1; id++ {
		if l.tree.nodes[id].generation == collapsedGen {
			l.tree.release(id)
		}
	}
}
