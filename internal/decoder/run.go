package decoder

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/banshee-data/irtrace/internal/pulse"
)

// SampleReader is the blocking acquisition side of a sample source.
type SampleReader interface {
	ReadSample() (pulse.Sample, error)
}

// Handler consumes samples one at a time.
type Handler interface {
	Handle(s pulse.Sample) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(s pulse.Sample) error

func (f HandlerFunc) Handle(s pulse.Sample) error { return f(s) }

// Observer is notified of every sample before it is handled.
type Observer interface {
	ObserveSample(s pulse.Sample)
}

// Run reads samples from r and hands each to h until the context is
// cancelled or acquisition fails. Cancellation is not an error; the caller is
// expected to unblock a pending read, typically by closing the source.
func Run(ctx context.Context, r SampleReader, h Handler, observers ...Observer) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		s, err := r.ReadSample()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read sample: %w", err)
		}

		for _, o := range observers {
			o.ObserveSample(s)
		}
		if err := h.Handle(s); err != nil {
			return fmt.Errorf("handle %v: %w", s, err)
		}
	}
}

// CodeReader reads fixed-width codes from receivers that do not report
// timing pairs.
type CodeReader interface {
	ReadCode() ([]byte, error)
}

// RunCodes prints every code read from r as "code: 0x<hex>" until the context
// is cancelled or acquisition fails.
func RunCodes(ctx context.Context, r CodeReader, w io.Writer) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		code, err := r.ReadCode()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read code: %w", err)
		}
		if _, err := fmt.Fprintf(w, "code: 0x%s\n", hex.EncodeToString(code)); err != nil {
			return err
		}
	}
}
