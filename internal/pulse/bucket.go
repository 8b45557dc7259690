package pulse

import "fmt"

// Bucket is the timing class of a duration.
type Bucket int

const (
	Unclassified Bucket = iota
	Short
	Long
	Preamble
	Noise
)

func (b Bucket) String() string {
	switch b {
	case Short:
		return "short"
	case Long:
		return "long"
	case Preamble:
		return "preamble"
	case Noise:
		return "noise"
	default:
		return "unclassified"
	}
}

// Buckets lists every bucket in a stable order.
var Buckets = []Bucket{Short, Long, Preamble, Noise, Unclassified}

// Range is an inclusive duration interval in microseconds.
type Range struct {
	Min uint32
	Max uint32
}

// Contains reports whether d lies in [Min, Max].
func (r Range) Contains(d uint32) bool {
	return d >= r.Min && d <= r.Max
}

func (r Range) overlaps(o Range) bool {
	return r.Min <= o.Max && o.Min <= r.Max
}

// Thresholds holds the bucket boundaries. Anything above NoiseAbove is noise;
// anything outside every range is unclassified.
type Thresholds struct {
	Short      Range
	Long       Range
	Preamble   Range
	NoiseAbove uint32
}

// Default thresholds in microseconds.
const (
	DefaultShortMin    = 450
	DefaultShortMax    = 650
	DefaultLongMin     = 1500
	DefaultLongMax     = 1750
	DefaultPreambleMin = 5000
	DefaultPreambleMax = 8000
	DefaultNoiseAbove  = 10000
)

// DefaultThresholds returns the stock bucket boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Short:      Range{Min: DefaultShortMin, Max: DefaultShortMax},
		Long:       Range{Min: DefaultLongMin, Max: DefaultLongMax},
		Preamble:   Range{Min: DefaultPreambleMin, Max: DefaultPreambleMax},
		NoiseAbove: DefaultNoiseAbove,
	}
}

// Validate checks that the ranges are well formed, disjoint and lie below the
// noise floor, so every duration maps to exactly one bucket.
func (t Thresholds) Validate() error {
	named := []struct {
		name string
		r    Range
	}{{"short", t.Short}, {"long", t.Long}, {"preamble", t.Preamble}}

	for i, a := range named {
		if a.r.Min > a.r.Max {
			return fmt.Errorf("%s range inverted: min %d > max %d", a.name, a.r.Min, a.r.Max)
		}
		if a.r.Max > t.NoiseAbove {
			return fmt.Errorf("%s range max %d exceeds noise threshold %d", a.name, a.r.Max, t.NoiseAbove)
		}
		for _, b := range named[i+1:] {
			if a.r.overlaps(b.r) {
				return fmt.Errorf("%s range %v overlaps %s range %v", a.name, a.r, b.name, b.r)
			}
		}
	}
	return nil
}

// Classify maps a duration to its bucket. Noise is tested first.
func (t Thresholds) Classify(d uint32) Bucket {
	switch {
	case d > t.NoiseAbove:
		return Noise
	case t.Short.Contains(d):
		return Short
	case t.Long.Contains(d):
		return Long
	case t.Preamble.Contains(d):
		return Preamble
	default:
		return Unclassified
	}
}

// Classify maps a duration to its bucket using DefaultThresholds.
func Classify(d uint32) Bucket {
	return DefaultThresholds().Classify(d)
}
