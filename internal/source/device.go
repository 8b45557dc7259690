package source

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"

	"github.com/banshee-data/irtrace/internal/fdwait"
	"github.com/banshee-data/irtrace/internal/monitoring"
	"github.com/banshee-data/irtrace/internal/pulse"
)

const (
	// DefaultDevicePath is the LIRC character device opened by default.
	DefaultDevicePath = "/dev/lirc0"
	// LircdSocket is the lircd client socket, which cannot be read as a
	// device.
	LircdSocket = "/var/run/lirc/lircd"
)

// LIRC ioctl requests: _IOR('i', n, __u32).
const (
	lircGetRecMode = 0x80046902
	lircGetLength  = 0x8004690f
)

// DeviceOptions configures a DeviceSource.
type DeviceOptions struct {
	Path string
	// Raw opens the device directly and accepts any receive mode the
	// driver reports. Without Raw only ModeMode2 receivers are accepted.
	Raw bool
	// Poll gates every read on readiness of the descriptor.
	Poll       bool
	WaitPolicy fdwait.Policy
	Logf       monitoring.Logf
}

// DeviceSource reads LIRC mode2 words, or fixed-width codes, from a
// character device or FIFO.
type DeviceSource struct {
	opts       DeviceOptions
	f          *os.File
	mode       ReceiveMode
	codeLength uint32
	waiter     *fdwait.Waiter
	word       [pulse.WordSize]byte

	// ioctl is swapped in tests.
	ioctl func(fd int, req uint) (uint32, error)
}

// NewDeviceSource returns an unopened DeviceSource.
func NewDeviceSource(opts DeviceOptions) *DeviceSource {
	if opts.Path == "" {
		opts.Path = DefaultDevicePath
	}
	if opts.Logf == nil {
		opts.Logf = monitoring.Discard
	}
	return &DeviceSource{opts: opts, ioctl: unix.IoctlGetUint32}
}

func (d *DeviceSource) String() string { return d.opts.Path }

// Init opens the device and establishes its receive mode. FIFOs carry mode2
// words and are not queried.
func (d *DeviceSource) Init() error {
	if d.opts.Path == LircdSocket {
		return ErrLircdSocket
	}

	f, err := os.OpenFile(d.opts.Path, os.O_RDONLY, 0)
	if err != nil {
		return fmt.Errorf("error opening %s: %w", d.opts.Path, err)
	}

	if err := d.queryMode(f); err != nil {
		f.Close()
		return err
	}
	if d.opts.Poll {
		err := control(f, func(fd int) (err error) {
			d.waiter, err = fdwait.New(fd, d.opts.WaitPolicy, d.opts.Logf)
			return err
		})
		if err != nil {
			f.Close()
			return fmt.Errorf("%s: %w", d.opts.Path, err)
		}
	}
	d.f = f
	return nil
}

// control runs fn on the descriptor behind f. Unlike f.Fd it leaves the
// descriptor in non-blocking mode, so Close still interrupts a pending read.
func control(f *os.File, fn func(fd int) error) error {
	rc, err := f.SyscallConn()
	if err != nil {
		return err
	}
	var fnErr error
	if err := rc.Control(func(fd uintptr) { fnErr = fn(int(fd)) }); err != nil {
		return err
	}
	return fnErr
}

func (d *DeviceSource) queryMode(f *os.File) error {
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", d.opts.Path, err)
	}
	m := info.Mode()
	if m&os.ModeNamedPipe != 0 {
		// no ioctls on a pipe
		d.mode = ModeMode2
		return nil
	}
	if m&os.ModeCharDevice == 0 {
		return fmt.Errorf("%s: %w", d.opts.Path, ErrNotCharDevice)
	}

	var mode uint32
	err = control(f, func(fd int) (err error) {
		mode, err = d.ioctl(fd, lircGetRecMode)
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w: receiver does not support the pulse/space layer: %v", d.opts.Path, ErrUnsupportedMode, err)
	}
	d.mode = ReceiveMode(mode)

	switch {
	case d.mode == ModeMode2:
		return nil
	case d.mode == ModeLIRCCode && d.opts.Raw:
		var length uint32
		err := control(f, func(fd int) (err error) {
			length, err = d.ioctl(fd, lircGetLength)
			return err
		})
		if err != nil {
			return fmt.Errorf("%s: could not get code length: %w", d.opts.Path, err)
		}
		if length > MaxCodeLength {
			return fmt.Errorf("%s: %w: cannot handle %d bit codes", d.opts.Path, ErrCodeLength, length)
		}
		d.codeLength = length
		return nil
	case d.opts.Raw:
		return fmt.Errorf("%s: %w: %v", d.opts.Path, ErrUnsupportedMode, d.mode)
	default:
		return fmt.Errorf("%s: %w: %v receivers are not supported, use the --raw option to access the device directly", d.opts.Path, ErrUnsupportedMode, d.mode)
	}
}

func (d *DeviceSource) Mode() ReceiveMode  { return d.mode }
func (d *DeviceSource) CodeLength() uint32 { return d.codeLength }

func (d *DeviceSource) wait() error {
	if d.waiter == nil {
		return nil
	}
	_, err := d.waiter.Wait(0)
	if errors.Is(err, fdwait.ErrStopped) {
		return os.ErrClosed
	}
	return err
}

func (d *DeviceSource) readFull(p []byte) error {
	if d.f == nil {
		return os.ErrClosed
	}
	if err := d.wait(); err != nil {
		return err
	}
	n, err := io.ReadFull(d.f, p)
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: got %d of %d bytes", ErrShortRead, n, len(p))
	}
	return err
}

// ReadSample reads one little-endian mode2 word.
func (d *DeviceSource) ReadSample() (pulse.Sample, error) {
	if err := d.readFull(d.word[:]); err != nil {
		return pulse.Sample{}, err
	}
	return pulse.DecodeWord(d.word[:]), nil
}

// ReadCode reads one code of CodeLength bits, rounded up to whole bytes.
func (d *DeviceSource) ReadCode() ([]byte, error) {
	code := make([]byte, (d.codeLength+7)/8)
	if err := d.readFull(code); err != nil {
		return nil, err
	}
	return code, nil
}

// Close releases the device. A ReadSample or ReadCode blocked in another
// goroutine returns an error wrapping os.ErrClosed.
func (d *DeviceSource) Close() error {
	if d.f == nil {
		return nil
	}
	var waitErr error
	if d.waiter != nil {
		waitErr = d.waiter.Close()
	}
	return errors.Join(d.f.Close(), waitErr)
}
