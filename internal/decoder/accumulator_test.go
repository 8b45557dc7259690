package decoder

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/irtrace/internal/pulse"
)

type recordingSink struct {
	anomalies []pulse.Sample
	lines     []string
	previous  []string
}

func (r *recordingSink) Anomaly(s pulse.Sample) error {
	r.anomalies = append(r.anomalies, s)
	return nil
}

func (r *recordingSink) Line(current, previous []byte) error {
	r.lines = append(r.lines, string(current))
	r.previous = append(r.previous, string(previous))
	return nil
}

func space(d uint32) pulse.Sample { return pulse.Sample{Duration: d, Polarity: pulse.Space} }
func mark(d uint32) pulse.Sample  { return pulse.Sample{Duration: d, Polarity: pulse.Mark} }

// bitsToSpaces converts a string of '0'/'1' into short/long space samples,
// each preceded by a short mark as a real receiver would report.
func bitsToSpaces(bits string) []pulse.Sample {
	out := make([]pulse.Sample, 0, 2*len(bits))
	for _, c := range bits {
		out = append(out, mark(560))
		if c == '1' {
			out = append(out, space(1690))
		} else {
			out = append(out, space(560))
		}
	}
	return out
}

func feedAll(t *testing.T, a *Accumulator, samples []pulse.Sample) {
	t.Helper()
	for _, s := range samples {
		if _, err := a.Feed(s); err != nil {
			t.Fatalf("Feed(%v): %v", s, err)
		}
	}
}

func TestAccumulatorCompletesLineAfter104Bits(t *testing.T) {
	sink := &recordingSink{}
	a := NewAccumulator(pulse.DefaultThresholds(), DefaultLayout(), sink)

	bits := strings.Repeat("10110010", 13)
	feedAll(t, a, bitsToSpaces(bits))

	if len(sink.lines) != 1 {
		t.Fatalf("got %d line events, want 1", len(sink.lines))
	}
	if a.BitCount() != 0 || a.ByteCount() != 0 {
		t.Errorf("counters after line = (%d, %d), want (0, 0)", a.BitCount(), a.ByteCount())
	}
	if a.Current() != "" {
		t.Errorf("current line not cleared: %q", a.Current())
	}

	want := strings.Repeat("10110010 ", 13)
	if diff := cmp.Diff(want, sink.lines[0]); diff != "" {
		t.Errorf("line mismatch (-want +got):\n%s", diff)
	}
	if sink.previous[0] != "" {
		t.Errorf("first line previous = %q, want empty", sink.previous[0])
	}
	if a.Previous() != want {
		t.Errorf("Previous() = %q, want %q", a.Previous(), want)
	}
	if len(sink.anomalies) != 0 {
		t.Errorf("unexpected anomalies: %v", sink.anomalies)
	}
}

func TestAccumulatorByteSeparators(t *testing.T) {
	sink := &recordingSink{}
	a := NewAccumulator(pulse.DefaultThresholds(), DefaultLayout(), sink)

	feedAll(t, a, bitsToSpaces("0000000"))
	if a.ByteCount() != 0 || a.BitCount() != 7 {
		t.Fatalf("counters = (%d bits, %d bytes), want (7, 0)", a.BitCount(), a.ByteCount())
	}
	feedAll(t, a, bitsToSpaces("1"))
	if a.ByteCount() != 1 {
		t.Errorf("ByteCount() = %d, want 1", a.ByteCount())
	}
	if a.Current() != "00000001 " {
		t.Errorf("Current() = %q, want %q", a.Current(), "00000001 ")
	}
}

func TestAccumulatorSecondLineKeepsPrevious(t *testing.T) {
	sink := &recordingSink{}
	a := NewAccumulator(pulse.DefaultThresholds(), DefaultLayout(), sink)

	first := strings.Repeat("0", 104)
	second := "1" + strings.Repeat("0", 103)
	feedAll(t, a, bitsToSpaces(first))
	feedAll(t, a, bitsToSpaces(second))

	if len(sink.lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(sink.lines))
	}
	if sink.previous[1] != sink.lines[0] {
		t.Errorf("second line compared against %q, want %q", sink.previous[1], sink.lines[0])
	}
}

func TestAccumulatorIgnoresNoise(t *testing.T) {
	sink := &recordingSink{}
	a := NewAccumulator(pulse.DefaultThresholds(), DefaultLayout(), sink)
	feedAll(t, a, bitsToSpaces("101"))

	for _, s := range []pulse.Sample{mark(10001), space(10001), space(45000), mark(pulse.PulseMask)} {
		b, err := a.Feed(s)
		if err != nil {
			t.Fatal(err)
		}
		if b != pulse.Noise {
			t.Errorf("Feed(%v) bucket = %v, want noise", s, b)
		}
	}
	if a.BitCount() != 3 || a.Current() != "101" {
		t.Errorf("noise changed state: bits=%d current=%q", a.BitCount(), a.Current())
	}
	if len(sink.anomalies) != 0 {
		t.Errorf("noise produced anomalies: %v", sink.anomalies)
	}
}

func TestAccumulatorMarks(t *testing.T) {
	sink := &recordingSink{}
	a := NewAccumulator(pulse.DefaultThresholds(), DefaultLayout(), sink)

	feedAll(t, a, []pulse.Sample{mark(560), mark(1600), mark(8000), mark(3000)})
	if a.BitCount() != 0 {
		t.Errorf("marks appended bits: %d", a.BitCount())
	}
	want := []pulse.Sample{mark(3000)}
	if diff := cmp.Diff(want, sink.anomalies); diff != "" {
		t.Errorf("anomalies mismatch (-want +got):\n%s", diff)
	}
}

func TestAccumulatorSpaceAnomaly(t *testing.T) {
	var out bytes.Buffer
	a := NewAccumulator(pulse.DefaultThresholds(), DefaultLayout(), NewTextSink(&out, ANSIHighlighter{}))
	feedAll(t, a, bitsToSpaces("11"))

	b, err := a.Feed(space(2000))
	if err != nil {
		t.Fatal(err)
	}
	if b != pulse.Unclassified {
		t.Errorf("bucket = %v, want unclassified", b)
	}
	if got := out.String(); got != "S 2000 " {
		t.Errorf("output = %q, want %q", got, "S 2000 ")
	}
	if a.BitCount() != 2 {
		t.Errorf("BitCount() = %d, want 2", a.BitCount())
	}
}

func TestAccumulatorPreambleSpaceIsSilent(t *testing.T) {
	sink := &recordingSink{}
	a := NewAccumulator(pulse.DefaultThresholds(), DefaultLayout(), sink)
	feedAll(t, a, []pulse.Sample{mark(7000), space(5000), space(8000)})
	if a.BitCount() != 0 || len(sink.anomalies) != 0 {
		t.Errorf("preamble left state bits=%d anomalies=%v", a.BitCount(), sink.anomalies)
	}
}

func TestAccumulatorNoSeparatorForNonBitAtByteBoundary(t *testing.T) {
	sink := &recordingSink{}
	a := NewAccumulator(pulse.DefaultThresholds(), DefaultLayout(), sink)
	feedAll(t, a, bitsToSpaces("00000000"))
	if a.Current() != "00000000 " || a.ByteCount() != 1 {
		t.Fatalf("after one byte: Current() = %q, ByteCount() = %d", a.Current(), a.ByteCount())
	}

	// preamble then unclassified space while the bit count is a whole byte
	feedAll(t, a, []pulse.Sample{space(6000), space(2000)})

	if got, want := a.Current(), "00000000 "; got != want {
		t.Errorf("Current() = %q, want %q", got, want)
	}
	if a.ByteCount() != 1 {
		t.Errorf("ByteCount() = %d, want 1", a.ByteCount())
	}
	if a.BitCount() != 8 {
		t.Errorf("BitCount() = %d, want 8", a.BitCount())
	}
	if diff := cmp.Diff([]pulse.Sample{space(2000)}, sink.anomalies); diff != "" {
		t.Errorf("anomalies mismatch (-want +got):\n%s", diff)
	}
}

func TestAccumulatorCustomLayout(t *testing.T) {
	sink := &recordingSink{}
	layout := Layout{BitsPerByte: 4, BytesPerLine: 2, Separator: '|'}
	a := NewAccumulator(pulse.DefaultThresholds(), layout, sink)
	feedAll(t, a, bitsToSpaces("10100101"))

	if diff := cmp.Diff([]string{"1010|0101|"}, sink.lines); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}
}

func TestAccumulatorRendersDiffedRows(t *testing.T) {
	var out bytes.Buffer
	a := NewAccumulator(pulse.DefaultThresholds(), DefaultLayout(), NewTextSink(&out, ANSIHighlighter{}))

	feedAll(t, a, bitsToSpaces(strings.Repeat("0", 104)))
	feedAll(t, a, bitsToSpaces("00000001"+strings.Repeat("0", 96)))

	rows := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2: %q", len(rows), out.String())
	}
	if strings.Contains(rows[0], ansiRed) {
		t.Errorf("first row should not be highlighted: %q", rows[0])
	}
	if n := strings.Count(rows[1], ansiRed); n != 1 {
		t.Errorf("second row has %d highlights, want 1: %q", n, rows[1])
	}
	if !strings.HasPrefix(rows[1], "0000000"+ansiRed+"1"+ansiReset+" ") {
		t.Errorf("unexpected second row %q", rows[1])
	}
}
