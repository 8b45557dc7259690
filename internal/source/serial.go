package source

import (
	"fmt"
	"io"

	"go.bug.st/serial"

	"github.com/banshee-data/irtrace/internal/monitoring"
	"github.com/banshee-data/irtrace/internal/pulse"
)

// SerialPorter defines the minimal interface needed for a serial port.
// This abstraction enables unit testing without real serial hardware.
type SerialPorter interface {
	io.ReadWriter
	io.Closer
}

// SerialPortOpener opens a serial port at path.
type SerialPortOpener func(path string, opts PortOptions) (SerialPorter, error)

// OpenSerialPort opens a real serial port with go.bug.st/serial.
func OpenSerialPort(path string, opts PortOptions) (SerialPorter, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}
	return serial.Open(path, mode)
}

type inputResetter interface {
	ResetInputBuffer() error
}

// SerialSource reads mode2 text ("pulse 560" / "space 1690" lines) from a
// serial infrared receiver.
type SerialSource struct {
	path string
	opts PortOptions
	open SerialPortOpener
	logf monitoring.Logf

	port SerialPorter
	text *TextSource
}

// NewSerialSource returns an unopened SerialSource. A nil opener means
// OpenSerialPort.
func NewSerialSource(path string, opts PortOptions, open SerialPortOpener, logf monitoring.Logf) *SerialSource {
	if open == nil {
		open = OpenSerialPort
	}
	if logf == nil {
		logf = monitoring.Discard
	}
	return &SerialSource{path: path, opts: opts, open: open, logf: logf}
}

func (s *SerialSource) String() string { return s.path }

// Init opens the port and discards anything buffered before it was opened.
func (s *SerialSource) Init() error {
	if _, err := s.opts.Normalise(); err != nil {
		return fmt.Errorf("serial options for %s: %w", s.path, err)
	}
	port, err := s.open(s.path, s.opts)
	if err != nil {
		return fmt.Errorf("error opening %s: %w", s.path, err)
	}
	if r, ok := port.(inputResetter); ok {
		if err := r.ResetInputBuffer(); err != nil {
			s.logf("failed to reset input buffer on %s: %v", s.path, err)
		}
	}
	s.port = port
	s.text = NewTextSource(s.path, port, s.logf)
	return nil
}

func (s *SerialSource) Mode() ReceiveMode  { return ModeMode2 }
func (s *SerialSource) CodeLength() uint32 { return 0 }

func (s *SerialSource) ReadSample() (pulse.Sample, error) {
	if s.text == nil {
		return pulse.Sample{}, fmt.Errorf("serial source %s not initialised", s.path)
	}
	return s.text.ReadSample()
}

func (s *SerialSource) Close() error {
	if s.port == nil {
		return nil
	}
	return s.port.Close()
}
