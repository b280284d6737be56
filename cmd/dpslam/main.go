// Dpslam runs hierarchical Rao-Blackwellized particle-filter SLAM over
// a recorded run of (odometry, laser) readings, played back from a log
// file, and writes a best-estimate map image after every high-level
// resample.
package main

import (
	"errors"
	"fmt"
	"image/png"
	"io"
	"math"
	"os"

	"github.com/js-arias/command"

	"github.com/OpenSLAM-org/openslam-dpslam/diagplot"
	"github.com/OpenSLAM-org/openslam-dpslam/dpm"
	"github.com/OpenSLAM-org/openslam-dpslam/hierarchy"
	"github.com/OpenSLAM-org/openslam-dpslam/mapimage"
	"github.com/OpenSLAM-org/openslam-dpslam/robotlog"
	"github.com/OpenSLAM-org/openslam-dpslam/rng"
)

var app = &command.Command{
	Usage: `dpslam [-R] [-r <file>] [-P] [-p <file>]
	[--low-duration <value>] [--seed <value>] [--out <prefix>]`,
	Short: "run hierarchical particle-filter SLAM over a logged run",
	Long: `
Command dpslam plays back a recorded run of odometry and laser readings and
runs two-timescale particle-filter SLAM over it, the low level resampling on
every reading and the high level resampling once every --low-duration
readings.

There is no live hardware collaborator in this repository (out of scope, per
the design notes); dpslam always runs in playback mode. Use the flag -P to
play back current.log, or -p to name a different file.

The flags -R and -r name a file dpslam re-records the played-back run to, the
same log format it reads: a recording pass over a prior run, not a capture
from a live sensor.

By default a map snapshot is written every time the high level resamples
(VIDEO == 1). Snapshots are named '<prefix><generation>.png', the generation
written with at least two digits; use --out to change the prefix, which
defaults to "hmap".
	`,
	SetFlags: setFlags,
	Run:      run,
}

var (
	recordFlag  bool
	recordFile  string
	playFlag    bool
	playFile    string
	lowDuration int
	seed        int64
	outPrefix   string
	plotWeights bool
)

func setFlags(c *command.Command) {
	c.Flags().BoolVar(&recordFlag, "R", false, "")
	c.Flags().StringVar(&recordFile, "r", "", "")
	c.Flags().BoolVar(&playFlag, "P", false, "")
	c.Flags().StringVar(&playFile, "p", "", "")
	c.Flags().IntVar(&lowDuration, "low-duration", 10, "")
	c.Flags().Int64Var(&seed, "seed", 1, "")
	c.Flags().StringVar(&outPrefix, "out", "hmap", "")
	c.Flags().BoolVar(&plotWeights, "plot-weights", false, "")
}

func run(c *command.Command, args []string) error {
	in := playFile
	if in == "" {
		in = "current.log"
	}
	f, err := os.Open(in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dpslam: robot init failure: %v\n", err)
		os.Exit(-1)
	}
	defer f.Close()

	lowCfg, highCfg := dpm.LowDefault(), dpm.HighDefault()
	coord := hierarchy.New(lowCfg, highCfg, seed, seed+1, lowDuration)

	reader := robotlog.NewReader(f, lowCfg.Scale, defaultBeamAngles(lowCfg.Beams))

	var writer *robotlog.Writer
	if recordFlag || recordFile != "" {
		out := recordFile
		if out == "" {
			out = "current.log"
		}
		of, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("dpslam: opening record file: %w", err)
		}
		defer of.Close()
		writer = robotlog.NewWriter(of, lowCfg.Scale)
	}

	lastSnapshot := -1
	for {
		step, err := reader.ReadStep()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("dpslam: reading log: %w", err)
		}

		if err := coord.Feed(step); err != nil {
			return fmt.Errorf("dpslam: %w", err)
		}
		if writer != nil {
			if err := writer.WriteStep(step); err != nil {
				return fmt.Errorf("dpslam: writing record: %w", err)
			}
		}

		if highCfg.Video > 0 && coord.High.Generation()%highCfg.Video == 0 && coord.High.Generation() != lastSnapshot {
			lastSnapshot = coord.High.Generation()
			if err := writeSnapshot(coord.High, lastSnapshot); err != nil {
				return fmt.Errorf("dpslam: writing snapshot: %w", err)
			}
			if plotWeights {
				name := fmt.Sprintf("%s%.2d-weights.png", outPrefix, lastSnapshot)
				if err := diagplot.WeightHistogram(coord.High, name); err != nil {
					return fmt.Errorf("dpslam: %w", err)
				}
			}
		}
	}

	best := hierarchy.BestPose(coord.High)
	fmt.Fprintf(os.Stdout, "final pose: x=%.3f y=%.3f theta=%.3f\n", best.X, best.Y, best.Theta)
	return nil
}

// writeSnapshot renders the high level's best-particle lineage and
// writes it as a PNG, named the way the reference renderer named its
// PPM snapshots.
func writeSnapshot(level *dpm.Level, generation int) (err error) {
	best := level.Particles()[level.Best()]
	img := &mapimage.Image{Level: level, AncestryID: best.AncestryID}
	img.Format()

	name := fmt.Sprintf("%s%.2d.png", outPrefix, generation)
	f, ferr := os.Create(name)
	if ferr != nil {
		return ferr
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return png.Encode(f, img)
}

// defaultBeamAngles spreads n beams evenly across a 180-degree forward
// field of view, the fixed sensor geometry a playback log assumes on
// both ends of a recording.
func defaultBeamAngles(n int) []float64 {
	if n <= 1 {
		return []float64{0}
	}
	angles := make([]float64, n)
	span := math.Pi
	step := span / float64(n-1)
	for i := range angles {
		angles[i] = -span/2 + step*float64(i)
	}
	return angles
}

func main() {
	app.Main()
}
