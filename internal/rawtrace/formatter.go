// Package rawtrace prints raw mark/space durations in fixed-width records,
// flagging samples that break strict mark/space alternation. The layout
// follows the raw code blocks of irrecord configuration files.
package rawtrace

import (
	"fmt"
	"io"

	"github.com/banshee-data/irtrace/internal/pulse"
)

// Layout controls record width and the gap that separates transmissions.
type Layout struct {
	// RecordWidth is the number of samples after which a space ends the
	// row.
	RecordWidth int
	// GapAbove is the space duration, in microseconds, above which a space
	// is treated as the gap between two transmissions.
	GapAbove uint32
	// FieldWidth is the width each duration is right-justified in.
	FieldWidth int
}

const (
	DefaultRecordWidth = 6
	DefaultGapAbove    = 50000
	DefaultFieldWidth  = 8
)

// DefaultLayout returns six samples per row and a 50ms transmission gap.
func DefaultLayout() Layout {
	return Layout{
		RecordWidth: DefaultRecordWidth,
		GapAbove:    DefaultGapAbove,
		FieldWidth:  DefaultFieldWidth,
	}
}

// Validate rejects layouts that cannot produce rows.
func (l Layout) Validate() error {
	if l.RecordWidth < 1 {
		return fmt.Errorf("record width must be positive, got %d", l.RecordWidth)
	}
	if l.FieldWidth < 1 {
		return fmt.Errorf("field width must be positive, got %d", l.FieldWidth)
	}
	return nil
}

// Order violation markers.
const (
	PulseOutOfOrder = "-pulse"
	SpaceOutOfOrder = "-space"
)

// Formatter writes the raw trace of a sample stream. It is not safe for
// concurrent use.
type Formatter struct {
	w      io.Writer
	layout Layout
	parity int
}

// New returns a Formatter writing to w.
func New(w io.Writer, layout Layout) *Formatter {
	return &Formatter{w: w, layout: layout}
}

// Position is the 1-based position of the last sample within the current
// record, or 0 right after a line break.
func (f *Formatter) Position() int { return f.parity }

// Handle writes one sample. Marks are expected at odd positions and spaces at
// even positions. Rows end on a space that either exceeds the gap threshold,
// followed by an extra blank line, or fills the record.
func (f *Formatter) Handle(s pulse.Sample) error {
	buf := fmt.Appendf(nil, " %*d", f.layout.FieldWidth, s.Duration)
	f.parity++

	if s.IsMark() {
		if f.parity%2 == 0 {
			buf = append(buf, PulseOutOfOrder...)
		}
		_, err := f.w.Write(buf)
		return err
	}

	if f.parity%2 == 1 {
		buf = append(buf, SpaceOutOfOrder...)
	}
	gap := s.Duration > f.layout.GapAbove
	if gap || f.parity >= f.layout.RecordWidth {
		buf = append(buf, '\n')
		if gap {
			buf = append(buf, '\n')
		}
		f.parity = 0
	}
	_, err := f.w.Write(buf)
	return err
}
