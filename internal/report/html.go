package report

import (
	"fmt"
	"io"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/irtrace/internal/pulse"
)

// Meta labels a rendered report.
type Meta struct {
	Session   string
	Driver    string
	Device    string
	StartedAt time.Time
}

func (m Meta) subtitle(n int) string {
	return fmt.Sprintf("session=%s driver=%s device=%s started=%s samples=%d",
		m.Session, m.Driver, m.Device, m.StartedAt.Format(time.RFC3339), n)
}

// durationCap keeps long gaps from flattening the scatter.
const durationCap = 20000

// WriteHTML renders a page with a scatter of durations by sample index, split
// by polarity, and a bar chart of per-bucket mean durations.
func WriteHTML(w io.Writer, meta Meta, samples []pulse.Sample, th pulse.Thresholds) error {
	marks := make([]opts.ScatterData, 0, len(samples)/2+1)
	spaces := make([]opts.ScatterData, 0, len(samples)/2+1)
	for i, s := range samples {
		d := s.Duration
		if d > durationCap {
			d = durationCap
		}
		pt := opts.ScatterData{Value: []interface{}{i, d, th.Classify(s.Duration).String()}}
		if s.IsMark() {
			marks = append(marks, pt)
		} else {
			spaces = append(spaces, pt)
		}
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "IR Trace", Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Sample durations", Subtitle: meta.subtitle(len(samples))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "sample", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "duration (us)", NameLocation: "middle", NameGap: 50, Max: durationCap}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
	)
	scatter.AddSeries("pulse", marks, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))
	scatter.AddSeries("space", spaces, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))

	stats := Summarize(samples, th)
	labels := make([]string, 0, len(stats))
	means := make([]opts.BarData, 0, len(stats))
	for _, s := range stats {
		labels = append(labels, fmt.Sprintf("%s %s", s.Polarity, s.Bucket))
		means = append(means, opts.BarData{Value: fmt.Sprintf("%.1f", s.Mean), Name: fmt.Sprintf("n=%d sd=%.1f", s.Count, s.StdDev)})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "Mean duration per bucket"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(labels).
		AddSeries("mean", means,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	page := components.NewPage()
	page.PageTitle = "IR Trace " + meta.Session
	page.AddCharts(scatter, bar)
	return page.Render(w)
}
