package report

import (
	"errors"
	"fmt"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/irtrace/internal/pulse"
)

// ErrNoSamples is returned when there is nothing to plot.
var ErrNoSamples = errors.New("no samples to plot")

// WriteHistogramPNG plots a histogram of space durations up to durationCap
// and writes it to w as a PNG.
func WriteHistogramPNG(w io.Writer, title string, samples []pulse.Sample, bins int) error {
	values := make(plotter.Values, 0, len(samples))
	for _, s := range samples {
		if s.IsMark() || s.Duration > durationCap {
			continue
		}
		values = append(values, float64(s.Duration))
	}
	if len(values) == 0 {
		return ErrNoSamples
	}
	if bins <= 0 {
		bins = 100
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "space duration (us)"
	p.Y.Label.Text = "count"

	h, err := plotter.NewHist(values, bins)
	if err != nil {
		return fmt.Errorf("failed to build histogram: %w", err)
	}
	p.Add(h)

	wt, err := p.WriterTo(10*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("failed to render histogram: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}
