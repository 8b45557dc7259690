// Package report renders recorded sample streams for offline inspection.
package report

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/irtrace/internal/pulse"
)

// BucketStats describes the samples of one polarity that fell into one
// bucket.
type BucketStats struct {
	Bucket   pulse.Bucket
	Polarity pulse.Polarity
	Count    int
	Mean     float64
	StdDev   float64
	Min      uint32
	Max      uint32
}

// Summarize groups samples by polarity and bucket. Groups are ordered mark
// first, then by pulse.Buckets; empty groups are omitted.
func Summarize(samples []pulse.Sample, th pulse.Thresholds) []BucketStats {
	type key struct {
		b pulse.Bucket
		p pulse.Polarity
	}
	groups := make(map[key][]float64)
	for _, s := range samples {
		k := key{th.Classify(s.Duration), s.Polarity}
		groups[k] = append(groups[k], float64(s.Duration))
	}

	var out []BucketStats
	for _, p := range []pulse.Polarity{pulse.Mark, pulse.Space} {
		for _, b := range pulse.Buckets {
			xs := groups[key{b, p}]
			if len(xs) == 0 {
				continue
			}
			mean, std := stat.MeanStdDev(xs, nil)
			if len(xs) == 1 {
				std = 0
			}
			lo, hi := xs[0], xs[0]
			for _, x := range xs[1:] {
				lo = math.Min(lo, x)
				hi = math.Max(hi, x)
			}
			out = append(out, BucketStats{
				Bucket:   b,
				Polarity: p,
				Count:    len(xs),
				Mean:     mean,
				StdDev:   std,
				Min:      uint32(lo),
				Max:      uint32(hi),
			})
		}
	}
	return out
}

// WriteSummary prints stats as an aligned table.
func WriteSummary(w io.Writer, stats []BucketStats) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "polarity\tbucket\tcount\tmean\tstddev\tmin\tmax\t")
	for _, s := range stats {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.1f\t%.1f\t%d\t%d\t\n",
			s.Polarity, s.Bucket, s.Count, s.Mean, s.StdDev, s.Min, s.Max)
	}
	return tw.Flush()
}
