// Package diagplot renders particle-weight diagnostics for a dpm.Level
// as PNG charts. It has no bearing on the filter itself; it exists so
// a long-running SLAM session can be watched for weight collapse (the
// posterior concentrating on very few particles) without instrumenting
// the filter loop.
package diagplot

import (
	"fmt"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/OpenSLAM-org/openslam-dpslam/dpm"
)

// WeightHistogram writes a bar chart of level's particle weights,
// sorted from heaviest to lightest, to name. A posterior concentrated
// on very few particles shows as a tall first bar and a long
// near-zero tail.
func WeightHistogram(level *dpm.Level, name string) error {
	particles := level.Particles()
	vals := make([]float64, len(particles))
	for i, p := range particles {
		vals[i] = p.Weight
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(vals)))

	p := plot.New()
	p.Title.Text = fmt.Sprintf("particle weights, generation %d", level.Generation())
	p.X.Label.Text = "particle rank"
	p.Y.Label.Text = "weight"

	bars, err := plotter.NewBarChart(plotter.Values(vals), vg.Points(3))
	if err != nil {
		return fmt.Errorf("diagplot: building chart: %w", err)
	}
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)

	if err := p.Save(6*vg.Inch, 3*vg.Inch, name); err != nil {
		return fmt.Errorf("diagplot: saving %q: %w", name, err)
	}
	return nil
}
