package decoder

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/banshee-data/irtrace/internal/pulse"
)

type sliceReader struct {
	samples []pulse.Sample
	codes   [][]byte
	err     error
}

func (r *sliceReader) ReadSample() (pulse.Sample, error) {
	if len(r.samples) == 0 {
		return pulse.Sample{}, r.err
	}
	s := r.samples[0]
	r.samples = r.samples[1:]
	return s, nil
}

func (r *sliceReader) ReadCode() ([]byte, error) {
	if len(r.codes) == 0 {
		return nil, r.err
	}
	c := r.codes[0]
	r.codes = r.codes[1:]
	return c, nil
}

type countingObserver struct{ n int }

func (c *countingObserver) ObserveSample(pulse.Sample) { c.n++ }

func TestRunStopsOnReadError(t *testing.T) {
	r := &sliceReader{samples: bitsToSpaces("01"), err: io.ErrUnexpectedEOF}
	var handled []pulse.Sample
	obs := &countingObserver{}

	err := Run(context.Background(), r, HandlerFunc(func(s pulse.Sample) error {
		handled = append(handled, s)
		return nil
	}), obs)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("Run error = %v, want wrapped ErrUnexpectedEOF", err)
	}
	if len(handled) != 4 || obs.n != 4 {
		t.Errorf("handled %d samples, observed %d, want 4", len(handled), obs.n)
	}
}

func TestRunStopsOnHandlerError(t *testing.T) {
	r := &sliceReader{samples: bitsToSpaces("0101")}
	boom := errors.New("boom")
	err := Run(context.Background(), r, HandlerFunc(func(pulse.Sample) error { return boom }))
	if !errors.Is(err, boom) {
		t.Fatalf("Run error = %v, want boom", err)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &sliceReader{samples: bitsToSpaces("0")}
	if err := Run(ctx, r, HandlerFunc(func(pulse.Sample) error {
		t.Error("handler called after cancel")
		return nil
	})); err != nil {
		t.Errorf("Run on cancelled context = %v, want nil", err)
	}
}

func TestRunCodes(t *testing.T) {
	r := &sliceReader{codes: [][]byte{{0x20, 0xdf, 0x10, 0xef}, {0x01}}, err: io.EOF}
	var out bytes.Buffer
	err := RunCodes(context.Background(), r, &out)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("RunCodes error = %v", err)
	}
	if want := "code: 0x20df10ef\ncode: 0x01\n"; out.String() != want {
		t.Errorf("RunCodes wrote %q, want %q", out.String(), want)
	}
}

func TestTeeForwardsToAllSinks(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	sink := Tee(a, b)
	if err := sink.Anomaly(space(2000)); err != nil {
		t.Fatal(err)
	}
	if err := sink.Line([]byte("1 "), nil); err != nil {
		t.Fatal(err)
	}
	for _, r := range []*recordingSink{a, b} {
		if len(r.anomalies) != 1 || len(r.lines) != 1 {
			t.Errorf("sink got %d anomalies, %d lines", len(r.anomalies), len(r.lines))
		}
	}
}
