// Package source acquires mark/space samples from infrared receivers: LIRC
// character devices, serial receivers that print mode2 text, recorded trace
// files and capture databases.
package source

import (
	"errors"
	"fmt"

	"github.com/banshee-data/irtrace/internal/pulse"
)

// ReceiveMode is the kind of data a receiver delivers.
type ReceiveMode uint32

// Receive modes, numbered as the LIRC driver API numbers them.
const (
	ModeMode2    ReceiveMode = 0x00000004
	ModeLIRCCode ReceiveMode = 0x00000010
)

func (m ReceiveMode) String() string {
	switch m {
	case ModeMode2:
		return "mode2"
	case ModeLIRCCode:
		return "lirccode"
	default:
		return fmt.Sprintf("mode(%#x)", uint32(m))
	}
}

// MaxCodeLength is the widest code, in bits, that can be read in
// ModeLIRCCode.
const MaxCodeLength = 64

var (
	// ErrShortRead is returned when a read delivers fewer bytes than one
	// sample or code.
	ErrShortRead = errors.New("short read")
	// ErrUnsupportedMode is returned when a receiver does not support the
	// requested receive mode.
	ErrUnsupportedMode = errors.New("unsupported receive mode")
	// ErrNotCharDevice is returned when a raw device path is neither a
	// character device nor a FIFO.
	ErrNotCharDevice = errors.New("not a character device")
	// ErrLircdSocket is returned for the lircd socket, which speaks a
	// different protocol.
	ErrLircdSocket = errors.New("refusing to connect to lircd socket")
	// ErrCodeLength is returned for codes wider than MaxCodeLength.
	ErrCodeLength = errors.New("code length not supported")
)

// Source supplies samples one at a time.
type Source interface {
	// Init prepares the source. A failure is fatal to the caller.
	Init() error
	// ReadSample blocks until the next sample is available.
	ReadSample() (pulse.Sample, error)
	// Mode reports the receive mode established by Init.
	Mode() ReceiveMode
	// CodeLength is the code width in bits when Mode is ModeLIRCCode.
	CodeLength() uint32
	Close() error
}

// CodeSource is implemented by sources able to deliver fixed-width codes.
type CodeSource interface {
	Source
	ReadCode() ([]byte, error)
}
