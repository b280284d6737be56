package dpm_test

import (
	"math"
	"testing"

	"github.com/OpenSLAM-org/openslam-dpslam/dpm"
	"github.com/OpenSLAM-org/openslam-dpslam/rng"
)

func smallConfig() dpm.Config {
	return dpm.Config{
		Width: 200, Height: 200,
		Particles: 5, Samples: 10,
		IDs:   40,
		Beams: 6,

		Variance:   40.0,
		Scale:      20.0,
		TurnRadius: 60.0,
		MaxRange:   100.0,
		Thresh:     10.0,
		Passes:     1,

		PosNoiseSigma:   0.5,
		AngleNoiseSigma: 0.01,
	}
}

func straightScan(n int, dist float64) dpm.Scan {
	scan := make(dpm.Scan, n)
	span := math.Pi
	step := span / float64(n-1)
	for i := range scan {
		scan[i] = dpm.Beam{Theta: -span/2 + step*float64(i), Distance: dist}
	}
	return scan
}

func TestBootstrapThenRunInterval(t *testing.T) {
	cfg := smallConfig()
	l := dpm.NewLevel(cfg, rng.New(1))

	step := dpm.Step{Motion: dpm.Motion{D: 1, C: 0, T: 0.01}, Scan: straightScan(cfg.Beams, 50)}
	l.Bootstrap([]dpm.Step{step})

	if l.Generation() != 1 {
		t.Fatalf("Generation() after Bootstrap = %d, want 1", l.Generation())
	}
	if len(l.Particles()) != 1 {
		t.Fatalf("Bootstrap should not change the particle count")
	}

	l.RunInterval([]dpm.Step{step})
	if l.Fatal != nil {
		t.Fatalf("RunInterval reported a fatal error: %v", l.Fatal)
	}
	if l.Generation() != 2 {
		t.Fatalf("Generation() after RunInterval = %d, want 2", l.Generation())
	}

	totalChildren := 0
	for range l.Particles() {
		totalChildren++
	}
	if len(l.Particles()) == 0 {
		t.Fatalf("RunInterval left no surviving particles")
	}
	if len(l.Particles()) > cfg.Particles {
		t.Fatalf("surviving particle count %d exceeds Particles budget %d", len(l.Particles()), cfg.Particles)
	}

	best := l.Best()
	if best < 0 || best >= len(l.Particles()) {
		t.Fatalf("Best() = %d out of range", best)
	}
}

func TestInverseMotionRecoversAdvance(t *testing.T) {
	cfg := smallConfig()
	l := dpm.NewLevel(cfg, rng.New(2))

	from := dpm.Pose{X: l.Particles()[0].X, Y: l.Particles()[0].Y, Theta: l.Particles()[0].Theta}
	motion := dpm.Motion{D: 12, C: -3, T: 0.2}
	l.Bootstrap([]dpm.Step{{Motion: motion, Scan: straightScan(cfg.Beams, 40)}})

	p := l.Particles()[0]
	to := dpm.Pose{X: p.X, Y: p.Y, Theta: p.Theta}

	got := dpm.InverseMotion(from, to, cfg.TurnRadius)
	const tol = 1e-6
	if math.Abs(got.D-motion.D) > tol || math.Abs(got.C-motion.C) > tol || math.Abs(got.T-motion.T) > tol {
		t.Fatalf("InverseMotion() = %+v, want %+v", got, motion)
	}
}

func TestRunIntervalManyGenerationsNoFatal(t *testing.T) {
	cfg := smallConfig()
	l := dpm.NewLevel(cfg, rng.New(9))

	step := dpm.Step{Motion: dpm.Motion{D: 2, C: 0, T: 0.05}, Scan: straightScan(cfg.Beams, 60)}
	l.Bootstrap([]dpm.Step{step})

	for i := 0; i < 25; i++ {
		l.RunInterval([]dpm.Step{step})
		if l.Fatal != nil {
			t.Fatalf("generation %d: fatal error: %v", i, l.Fatal)
		}
		if len(l.Particles()) == 0 {
			t.Fatalf("generation %d: no surviving particles", i)
		}
	}
}
