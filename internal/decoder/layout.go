package decoder

import (
	"fmt"
	"strings"
)

// Layout describes how decoded bits are grouped into rows.
type Layout struct {
	// BitsPerByte is the number of bits between separators.
	BitsPerByte int
	// BytesPerLine is the number of bytes that complete a row.
	BytesPerLine int
	// Separator is appended after every byte.
	Separator byte
}

const (
	DefaultBitsPerByte  = 8
	DefaultBytesPerLine = 13
)

// DefaultLayout returns 13 bytes of 8 bits per row, separated by spaces.
func DefaultLayout() Layout {
	return Layout{
		BitsPerByte:  DefaultBitsPerByte,
		BytesPerLine: DefaultBytesPerLine,
		Separator:    ' ',
	}
}

// Validate rejects layouts that could never complete a row.
func (l Layout) Validate() error {
	if l.BitsPerByte < 1 {
		return fmt.Errorf("bits per byte must be positive, got %d", l.BitsPerByte)
	}
	if l.BytesPerLine < 1 {
		return fmt.Errorf("bytes per line must be positive, got %d", l.BytesPerLine)
	}
	return nil
}

// LineWidth is the number of characters in a completed row, separators
// included.
func (l Layout) LineWidth() int {
	return l.BytesPerLine * (l.BitsPerByte + 1)
}

// Header returns the two ruler rows printed above decoded output: the tens
// digit of every tenth bit index, then the units digit of every bit index.
func (l Layout) Header() string {
	var tens, units strings.Builder
	bit := 0
	for b := 0; b < l.BytesPerLine; b++ {
		for i := 0; i < l.BitsPerByte; i++ {
			if bit%10 == 0 && bit > 0 {
				fmt.Fprintf(&tens, "%d", (bit/10)%10)
			} else {
				tens.WriteByte(' ')
			}
			fmt.Fprintf(&units, "%d", bit%10)
			bit++
		}
		tens.WriteByte(' ')
		units.WriteByte(' ')
	}
	return tens.String() + "\n" + units.String() + "\n"
}
