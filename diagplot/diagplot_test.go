package diagplot_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/OpenSLAM-org/openslam-dpslam/diagplot"
	"github.com/OpenSLAM-org/openslam-dpslam/dpm"
	"github.com/OpenSLAM-org/openslam-dpslam/rng"
)

func TestWeightHistogramWritesFile(t *testing.T) {
	cfg := dpm.Config{
		Width: 60, Height: 60,
		Particles: 4, Samples: 8,
		IDs:   20,
		Beams: 4,

		Variance:   40.0,
		Scale:      20.0,
		TurnRadius: 60.0,
		MaxRange:   50.0,
		Thresh:     10.0,
		Passes:     1,

		PosNoiseSigma:   0.5,
		AngleNoiseSigma: 0.01,
	}
	l := dpm.NewLevel(cfg, rng.New(1))

	dir := t.TempDir()
	name := filepath.Join(dir, "weights.png")
	if err := diagplot.WeightHistogram(l, name); err != nil {
		t.Fatalf("WeightHistogram returned error: %v", err)
	}

	info, err := os.Stat(name)
	if err != nil {
		t.Fatalf("expected %q to exist: %v", name, err)
	}
	if info.Size() == 0 {
		t.Fatalf("%q is empty", name)
	}
}
