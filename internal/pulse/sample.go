// Package pulse defines the timing samples produced by infrared receivers and
// the duration buckets used to interpret them.
package pulse

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// Polarity tells whether a sample measured carrier presence or absence.
type Polarity uint8

const (
	// Space is the "signal absent" interval following a mark.
	Space Polarity = iota
	// Mark is the "signal present" interval of a pulse/space transmission.
	Mark
)

func (p Polarity) String() string {
	if p == Mark {
		return "pulse"
	}
	return "space"
}

// Sample is a single duration measurement in microseconds.
type Sample struct {
	Duration uint32
	Polarity Polarity
}

// IsMark reports whether the sample is a mark.
func (s Sample) IsMark() bool { return s.Polarity == Mark }

func (s Sample) String() string {
	return fmt.Sprintf("%s %d", s.Polarity, s.Duration)
}

// LIRC mode2 words carry the polarity in bit 24 and the duration in the low 24
// bits.
const (
	PulseBit  uint32 = 0x01000000
	PulseMask uint32 = 0x00FFFFFF

	// WordSize is the size of one encoded mode2 word in bytes.
	WordSize = 4
)

// FromWord decodes a raw mode2 word.
func FromWord(w uint32) Sample {
	s := Sample{Duration: w & PulseMask, Polarity: Space}
	if w&PulseBit != 0 {
		s.Polarity = Mark
	}
	return s
}

// Word encodes the sample as a raw mode2 word. Durations wider than 24 bits
// are truncated.
func (s Sample) Word() uint32 {
	w := s.Duration & PulseMask
	if s.Polarity == Mark {
		w |= PulseBit
	}
	return w
}

// DecodeWord decodes a little-endian mode2 word from b, which must hold at
// least WordSize bytes.
func DecodeWord(b []byte) Sample {
	return FromWord(binary.LittleEndian.Uint32(b))
}

// AppendWord appends the little-endian mode2 encoding of s to b.
func AppendWord(b []byte, s Sample) []byte {
	return binary.LittleEndian.AppendUint32(b, s.Word())
}

// ParseLine parses the textual mode2 form "pulse 560" / "space 1690". The
// keywords are matched case-insensitively.
func ParseLine(line string) (Sample, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return Sample{}, fmt.Errorf("invalid sample %q: expected 2 fields", line)
	}

	var s Sample
	switch strings.ToLower(fields[0]) {
	case "pulse":
		s.Polarity = Mark
	case "space":
		s.Polarity = Space
	default:
		return Sample{}, fmt.Errorf("invalid sample %q: unknown polarity %q", line, fields[0])
	}

	d, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return Sample{}, fmt.Errorf("invalid sample %q: %w", line, err)
	}
	s.Duration = uint32(d)
	return s, nil
}
