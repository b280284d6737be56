package robotlog_test

import (
	"bytes"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/OpenSLAM-org/openslam-dpslam/dpm"
	"github.com/OpenSLAM-org/openslam-dpslam/robotlog"
)

func TestWriteThenReadRoundTrip(t *testing.T) {
	const scale = 20.0
	angles := []float64{-0.5, 0, 0.5}

	steps := []dpm.Step{
		{
			Motion: dpm.Motion{D: 1.5, C: -0.2, T: 0.03},
			Scan:   dpm.Scan{{Theta: angles[0], Distance: 40}, {Theta: angles[1], Distance: 100}, {Theta: angles[2], Distance: 500}},
		},
		{
			Motion: dpm.Motion{D: 0, C: 0, T: -0.1},
			Scan:   dpm.Scan{{Theta: angles[0], Distance: 10}, {Theta: angles[1], Distance: 10}, {Theta: angles[2], Distance: 10}},
		},
	}

	var buf bytes.Buffer
	w := robotlog.NewWriter(&buf, scale)
	for _, s := range steps {
		if err := w.WriteStep(s); err != nil {
			t.Fatalf("WriteStep returned error: %v", err)
		}
	}

	r := robotlog.NewReader(&buf, scale, angles)
	for i, want := range steps {
		got, err := r.ReadStep()
		if err != nil {
			t.Fatalf("ReadStep %d returned error: %v", i, err)
		}
		if math.Abs(got.Motion.D-want.Motion.D) > 1e-6 ||
			math.Abs(got.Motion.C-want.Motion.C) > 1e-6 ||
			math.Abs(got.Motion.T-want.Motion.T) > 1e-6 {
			t.Fatalf("step %d: Motion = %+v, want %+v", i, got.Motion, want.Motion)
		}
		if len(got.Scan) != len(want.Scan) {
			t.Fatalf("step %d: scan length = %d, want %d", i, len(got.Scan), len(want.Scan))
		}
		for j := range want.Scan {
			if math.Abs(got.Scan[j].Distance-want.Scan[j].Distance) > 1e-3 {
				t.Fatalf("step %d beam %d: distance = %v, want %v", i, j, got.Scan[j].Distance, want.Scan[j].Distance)
			}
		}
	}

	if _, err := r.ReadStep(); !errors.Is(err, io.EOF) {
		t.Fatalf("ReadStep at end of log returned %v, want io.EOF", err)
	}
}

func TestReadStepMalformedOdometry(t *testing.T) {
	r := robotlog.NewReader(bytes.NewBufferString("Odometry 1 2\n"), 20, nil)
	if _, err := r.ReadStep(); err == nil {
		t.Fatalf("ReadStep should reject a short Odometry line")
	}
}

func TestReadStepTruncatedRecord(t *testing.T) {
	r := robotlog.NewReader(bytes.NewBufferString("Odometry 1 2 3\n"), 20, nil)
	if _, err := r.ReadStep(); err == nil {
		t.Fatalf("ReadStep should fail when the Laser line is missing")
	}
}
