package report

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/banshee-data/irtrace/internal/pulse"
)

func necFrame() []pulse.Sample {
	s := []pulse.Sample{
		{Duration: 9000, Polarity: pulse.Mark},
		{Duration: 4500, Polarity: pulse.Space},
	}
	for i := 0; i < 4; i++ {
		s = append(s, pulse.Sample{Duration: 560, Polarity: pulse.Mark})
		if i%2 == 0 {
			s = append(s, pulse.Sample{Duration: 540, Polarity: pulse.Space})
		} else {
			s = append(s, pulse.Sample{Duration: 1700, Polarity: pulse.Space})
		}
	}
	return append(s, pulse.Sample{Duration: 40000, Polarity: pulse.Space})
}

func TestSummarize(t *testing.T) {
	got := Summarize(necFrame(), pulse.DefaultThresholds())
	want := []BucketStats{
		{Bucket: pulse.Short, Polarity: pulse.Mark, Count: 4, Mean: 560, Min: 560, Max: 560},
		{Bucket: pulse.Preamble, Polarity: pulse.Mark, Count: 1, Mean: 9000, Min: 9000, Max: 9000},
		{Bucket: pulse.Short, Polarity: pulse.Space, Count: 2, Mean: 540, Min: 540, Max: 540},
		{Bucket: pulse.Long, Polarity: pulse.Space, Count: 2, Mean: 1700, Min: 1700, Max: 1700},
		{Bucket: pulse.Noise, Polarity: pulse.Space, Count: 1, Mean: 40000, Min: 40000, Max: 40000},
		{Bucket: pulse.Unclassified, Polarity: pulse.Space, Count: 1, Mean: 4500, Min: 4500, Max: 4500},
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("Summarize mismatch (-want +got):\n%s", diff)
	}
}

func TestSummarize_StdDev(t *testing.T) {
	samples := []pulse.Sample{
		{Duration: 500, Polarity: pulse.Space},
		{Duration: 600, Polarity: pulse.Space},
	}
	got := Summarize(samples, pulse.DefaultThresholds())
	if len(got) != 1 {
		t.Fatalf("expected one group, got %d", len(got))
	}
	if got[0].Mean != 550 {
		t.Errorf("mean = %v, want 550", got[0].Mean)
	}
	// sample standard deviation of {500, 600}
	if want := 50 * math.Sqrt2; math.Abs(got[0].StdDev-want) > 1e-9 {
		t.Errorf("stddev = %v, want %v", got[0].StdDev, want)
	}
	if got[0].Min != 500 || got[0].Max != 600 {
		t.Errorf("range = [%d, %d], want [500, 600]", got[0].Min, got[0].Max)
	}
}

func TestSummarize_Empty(t *testing.T) {
	if got := Summarize(nil, pulse.DefaultThresholds()); len(got) != 0 {
		t.Errorf("expected no groups, got %v", got)
	}
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSummary(&buf, Summarize(necFrame(), pulse.DefaultThresholds())); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 7 {
		t.Fatalf("expected header plus 6 rows, got %d:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "polarity") || !strings.Contains(lines[0], "stddev") {
		t.Errorf("unexpected header %q", lines[0])
	}
	if f := strings.Fields(lines[1]); len(f) != 7 || f[0] != "pulse" || f[1] != "short" || f[2] != "4" {
		t.Errorf("unexpected first row %q", lines[1])
	}
}

func TestWriteHTML(t *testing.T) {
	var buf bytes.Buffer
	meta := Meta{
		Session:   "0f7c",
		Driver:    "default",
		Device:    "/dev/lirc0",
		StartedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := WriteHTML(&buf, meta, necFrame(), pulse.DefaultThresholds()); err != nil {
		t.Fatalf("WriteHTML: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"<html", "echarts", "Sample durations", "session=0f7c", "Mean duration per bucket", "space long"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestWriteHistogramPNG(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHistogramPNG(&buf, "test", necFrame(), 20); err != nil {
		t.Fatalf("WriteHistogramPNG: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG\r\n\x1a\n")) {
		t.Errorf("output is not a PNG")
	}

	marksOnly := []pulse.Sample{{Duration: 560, Polarity: pulse.Mark}}
	if err := WriteHistogramPNG(&buf, "test", marksOnly, 0); err != ErrNoSamples {
		t.Errorf("expected ErrNoSamples, got %v", err)
	}
}
