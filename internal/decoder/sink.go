package decoder

import (
	"errors"
	"io"
	"strconv"

	"github.com/banshee-data/irtrace/internal/pulse"
)

// TextSink renders decoder events as text. Anomalies are written inline as
// "P <duration> " for marks and "S <duration> " for spaces; rows are written
// through AppendDiff.
type TextSink struct {
	w   io.Writer
	h   Highlighter
	buf []byte
}

// NewTextSink returns a TextSink writing to w. A nil highlighter means
// PlainHighlighter.
func NewTextSink(w io.Writer, h Highlighter) *TextSink {
	if h == nil {
		h = PlainHighlighter{}
	}
	return &TextSink{w: w, h: h}
}

func (t *TextSink) Anomaly(s pulse.Sample) error {
	t.buf = AppendAnomaly(t.buf[:0], s)
	_, err := t.w.Write(t.buf)
	return err
}

func (t *TextSink) Line(current, previous []byte) error {
	t.buf = AppendDiff(t.buf[:0], current, previous, t.h)
	_, err := t.w.Write(t.buf)
	return err
}

// AppendAnomaly appends the inline rendering of an unclassified sample.
func AppendAnomaly(dst []byte, s pulse.Sample) []byte {
	if s.IsMark() {
		dst = append(dst, 'P', ' ')
	} else {
		dst = append(dst, 'S', ' ')
	}
	dst = strconv.AppendUint(dst, uint64(s.Duration), 10)
	return append(dst, ' ')
}

type multiSink []Sink

// Tee returns a Sink that forwards every event to each of sinks in order.
// All sinks see every event; their errors are joined.
func Tee(sinks ...Sink) Sink {
	return multiSink(sinks)
}

func (m multiSink) Anomaly(s pulse.Sample) error {
	var errs []error
	for _, sk := range m {
		if err := sk.Anomaly(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m multiSink) Line(current, previous []byte) error {
	var errs []error
	for _, sk := range m {
		if err := sk.Line(current, previous); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
