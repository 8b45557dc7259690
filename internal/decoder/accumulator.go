// Package decoder turns classified mark/space samples into rows of bits and
// renders each row against the one before it, so timing drift between
// repeated transmissions stands out.
package decoder

import (
	"github.com/banshee-data/irtrace/internal/pulse"
)

// Sink receives the events produced by an Accumulator. The slices passed to
// Line are only valid for the duration of the call.
type Sink interface {
	// Anomaly reports a sample whose duration fits no bucket.
	Anomaly(s pulse.Sample) error
	// Line reports a completed row together with the previously completed
	// row, which is empty for the first row.
	Line(current, previous []byte) error
}

// Accumulator collects bits decoded from space durations into bytes and
// bytes into rows. It is not safe for concurrent use.
type Accumulator struct {
	thresholds pulse.Thresholds
	layout     Layout
	sink       Sink

	bits     int
	bytes    int
	current  []byte
	previous []byte
}

// NewAccumulator returns an Accumulator emitting to sink.
func NewAccumulator(th pulse.Thresholds, layout Layout, sink Sink) *Accumulator {
	width := layout.LineWidth()
	return &Accumulator{
		thresholds: th,
		layout:     layout,
		sink:       sink,
		current:    make([]byte, 0, width),
		previous:   make([]byte, 0, width),
	}
}

// Feed classifies one sample and advances the decoder state. It returns the
// bucket the sample fell into and any error reported by the sink.
func (a *Accumulator) Feed(s pulse.Sample) (pulse.Bucket, error) {
	b := a.thresholds.Classify(s.Duration)
	if b == pulse.Noise {
		return b, nil
	}

	if s.IsMark() {
		// marks only carry sync information in this encoding
		if b == pulse.Unclassified {
			return b, a.sink.Anomaly(s)
		}
		return b, nil
	}

	switch b {
	case pulse.Short:
		a.appendBit('0')
	case pulse.Long:
		a.appendBit('1')
	case pulse.Preamble:
		return b, nil
	default:
		return b, a.sink.Anomaly(s)
	}

	if a.bits%a.layout.BitsPerByte != 0 {
		return b, nil
	}
	a.current = append(a.current, a.layout.Separator)
	a.bytes++
	if a.bytes < a.layout.BytesPerLine {
		return b, nil
	}
	return b, a.completeLine()
}

// Handle feeds s and discards the bucket.
func (a *Accumulator) Handle(s pulse.Sample) error {
	_, err := a.Feed(s)
	return err
}

func (a *Accumulator) appendBit(c byte) {
	a.current = append(a.current, c)
	a.bits++
}

func (a *Accumulator) completeLine() error {
	err := a.sink.Line(a.current, a.previous)

	a.bits = 0
	a.bytes = 0
	a.previous, a.current = a.current, a.previous[:0]
	return err
}

// BitCount returns the number of bits in the current row.
func (a *Accumulator) BitCount() int { return a.bits }

// ByteCount returns the number of completed bytes in the current row.
func (a *Accumulator) ByteCount() int { return a.bytes }

// Current returns the partial row being accumulated.
func (a *Accumulator) Current() string { return string(a.current) }

// Previous returns the last completed row.
func (a *Accumulator) Previous() string { return string(a.previous) }
