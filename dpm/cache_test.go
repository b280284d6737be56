package dpm

import (
	"testing"

	"github.com/OpenSLAM-org/openslam-dpslam/rng"
)

func TestResolveUnobservedCell(t *testing.T) {
	l := NewLevel(testConfig(), rng.New(3))
	id := l.particles[0].AncestryID

	_, shortCircuit, ok := l.resolve(20, 20, id, false)
	if ok {
		t.Fatalf("resolve() on a never-touched cell should report ok=false")
	}
	if shortCircuit {
		t.Fatalf("non-scoring resolve should never short-circuit")
	}
}

func TestResolveAfterUpdate(t *testing.T) {
	l := NewLevel(testConfig(), rng.New(4))
	id := l.particles[0].AncestryID

	l.updateCell(20, 20, 1.0, 1, id)
	l.cache.reset()

	idx, shortCircuit, ok := l.resolve(20, 20, id, false)
	if !ok || shortCircuit {
		t.Fatalf("resolve() after an update should find the entry: ok=%v shortCircuit=%v", ok, shortCircuit)
	}
	c := l.grid.at(20, 20)
	if c.entries[idx].ancestryID != id {
		t.Fatalf("resolve() returned an entry for a different ancestry")
	}
}

func TestCacheResetClearsFlags(t *testing.T) {
	l := NewLevel(testConfig(), rng.New(5))
	id := l.particles[0].AncestryID

	l.updateCell(9, 9, 1.0, 0, id)
	l.resolve(9, 9, id, false)
	if l.cache.flag[9][9] == 0 {
		t.Fatalf("resolve() should have built a cache row and set the flag")
	}
	l.cache.reset()
	if l.cache.flag[9][9] != 0 {
		t.Fatalf("reset() should clear every touched flag cell")
	}
}

// TestScoringShortCircuit checks that a cell every live ancestry has
// observed as zero hits resolves to shortCircuit=true in scoring mode,
// per §4.2.
func TestScoringShortCircuit(t *testing.T) {
	l := NewLevel(testConfig(), rng.New(6))
	id := l.particles[0].AncestryID

	l.updateCell(11, 11, 1.0, 0, id)
	l.cache.reset()

	_, shortCircuit, ok := l.resolve(11, 11, id, true)
	if !shortCircuit {
		t.Fatalf("an all-zero-hits cell should short-circuit in scoring mode")
	}
	if ok {
		t.Fatalf("short-circuited resolve should report ok=false")
	}
}

// TestOccupancyShortCircuitIsKnownEmpty checks that Occupancy reports a
// scoring-mode short-circuit cell as known and empty rather than
// unknown: resolve's -2 answer means every live ancestry has observed
// zero hits there, which is evidence, not an absence of it.
func TestOccupancyShortCircuitIsKnownEmpty(t *testing.T) {
	l := NewLevel(testConfig(), rng.New(7))
	id := l.particles[0].AncestryID

	l.updateCell(12, 12, 1.0, 0, id)
	l.cache.reset()
	l.resolve(12, 12, id, true)

	p, known := l.Occupancy(12, 12, id)
	if !known {
		t.Fatalf("a short-circuited cell should report known=true")
	}
	if p != 0 {
		t.Fatalf("a short-circuited cell should report occupancy 0, got %v", p)
	}
}
