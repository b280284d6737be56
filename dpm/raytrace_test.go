package dpm_test

import (
	"math"
	"testing"

	"github.com/OpenSLAM-org/openslam-dpslam/dpm"
	"github.com/OpenSLAM-org/openslam-dpslam/rng"
)

func TestAddTraceHitsTerminalCell(t *testing.T) {
	cfg := smallConfig()
	l := dpm.NewLevel(cfg, rng.New(10))
	id := l.Particles()[0].AncestryID

	startX, startY := 100.0, 100.0
	l.AddTrace(startX, startY, 0, 5, id, true)

	hits, _, ok := l.Observation(105, 100, id)
	if !ok {
		t.Fatalf("terminal cell (105,100) should have an observation")
	}
	if hits != 1 {
		t.Fatalf("terminal cell hits = %v, want 1", hits)
	}

	hits, _, ok = l.Observation(102, 100, id)
	if !ok {
		t.Fatalf("traversed cell (102,100) should have an observation")
	}
	if hits != 0 {
		t.Fatalf("traversed cell hits = %v, want 0", hits)
	}
}

func TestAddTraceNoReturnSkipsTerminal(t *testing.T) {
	cfg := smallConfig()
	l := dpm.NewLevel(cfg, rng.New(11))
	id := l.Particles()[0].AncestryID

	l.AddTrace(50, 100, 0, cfg.MaxRange, id, false)

	endX := 50 + int(cfg.MaxRange)
	if _, _, ok := l.Observation(endX, 100, id); ok {
		t.Fatalf("a no-return beam should not add a terminal-cell observation")
	}
}

func TestLineTraceBoundedProbability(t *testing.T) {
	cfg := smallConfig()
	l := dpm.NewLevel(cfg, rng.New(12))
	id := l.Particles()[0].AncestryID

	l.AddTrace(100, 100, 0, 30, id, true)

	p := l.LineTrace(100, 100, 0, 30, id)
	if p < 0 || p > 1 {
		t.Fatalf("LineTrace() = %v, want in [0,1]", p)
	}
	if math.IsNaN(p) {
		t.Fatalf("LineTrace() returned NaN")
	}
}

func TestLineTraceAllUnknownMap(t *testing.T) {
	cfg := smallConfig()
	l := dpm.NewLevel(cfg, rng.New(13))
	id := l.Particles()[0].AncestryID

	p := l.LineTrace(100, 100, 0, 30, id)
	if p < 0 || p > 1 {
		t.Fatalf("LineTrace() on an unknown map = %v, want in [0,1]", p)
	}
}
