package dpm_test

import (
	"testing"

	"github.com/OpenSLAM-org/openslam-dpslam/dpm"
	"github.com/OpenSLAM-org/openslam-dpslam/rng"
)

func TestOccupancyUnknownCell(t *testing.T) {
	cfg := smallConfig()
	l := dpm.NewLevel(cfg, rng.New(20))
	id := l.Particles()[0].AncestryID

	_, known := l.Occupancy(5, 5, id)
	if known {
		t.Fatalf("an untouched cell should report known=false")
	}
}

func TestOccupancyAfterTrace(t *testing.T) {
	cfg := smallConfig()
	l := dpm.NewLevel(cfg, rng.New(21))
	id := l.Particles()[0].AncestryID

	l.AddTrace(100, 100, 0, 10, id, true)

	p, known := l.Occupancy(110, 100, id)
	if !known {
		t.Fatalf("the terminal cell of a committed trace should be known")
	}
	if p <= 0 {
		t.Fatalf("occupancy of a hit cell should be positive, got %v", p)
	}

	_, known = l.Occupancy(102, 100, id)
	if !known {
		t.Fatalf("a traversed cell should be known even with zero hits")
	}
}

func TestResetCacheClearsBetweenScans(t *testing.T) {
	cfg := smallConfig()
	l := dpm.NewLevel(cfg, rng.New(22))
	id := l.Particles()[0].AncestryID

	l.AddTrace(100, 100, 0, 10, id, true)
	l.Occupancy(100, 100, id)
	l.ResetCache()
	// A second pass after reset should produce the same answer, not a
	// stale short-circuit from the first scan.
	p, known := l.Occupancy(110, 100, id)
	if !known || p <= 0 {
		t.Fatalf("Occupancy after ResetCache = (%v, %v), want a known positive value", p, known)
	}
}
