package source

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/banshee-data/irtrace/internal/fdwait"
	"github.com/banshee-data/irtrace/internal/monitoring"
)

// DefaultDriver is used when no driver is named.
const DefaultDriver = "default"

// ErrUnknownDriver is returned by Lookup for names not in Drivers.
var ErrUnknownDriver = errors.New("unknown driver")

// Options are the settings a driver may use to build its source.
type Options struct {
	// Device overrides the driver's default device. For the file driver
	// "-" means standard input.
	Device string
	// Raw bypasses the driver and reads the device directly.
	Raw        bool
	Serial     PortOptions
	WaitPolicy fdwait.Policy
	// Session selects a capture session; empty means the latest.
	Session string
	Logf    monitoring.Logf
}

// Driver describes one way of acquiring samples.
type Driver struct {
	Name          string
	Description   string
	DefaultDevice string
	New           func(Options) (Source, error)
}

// Drivers lists the available drivers by name.
var Drivers = map[string]Driver{
	DefaultDriver: {
		Name:          DefaultDriver,
		Description:   "LIRC mode2 character device",
		DefaultDevice: DefaultDevicePath,
		New: func(o Options) (Source, error) {
			if o.WaitPolicy == (fdwait.Policy{}) {
				o.WaitPolicy = fdwait.DefaultPolicy()
			}
			return NewDeviceSource(DeviceOptions{
				Path:       o.Device,
				Poll:       true,
				WaitPolicy: o.WaitPolicy,
				Logf:       o.Logf,
			}), nil
		},
	},
	"serial": {
		Name:          "serial",
		Description:   "serial receiver printing pulse/space lines",
		DefaultDevice: "/dev/ttyUSB0",
		New: func(o Options) (Source, error) {
			return NewSerialSource(o.Device, o.Serial, nil, o.Logf), nil
		},
	},
	"file": {
		Name:          "file",
		Description:   "replay pulse/space lines from a file",
		DefaultDevice: "-",
		New: func(o Options) (Source, error) {
			if o.Device == "-" {
				return NewTextSource("stdin", io.NopCloser(os.Stdin), o.Logf), nil
			}
			f, err := os.Open(o.Device)
			if err != nil {
				return nil, fmt.Errorf("error opening %s: %w", o.Device, err)
			}
			return NewTextSource(o.Device, f, o.Logf), nil
		},
	},
	"capture": {
		Name:          "capture",
		Description:   "replay a session from a capture database",
		DefaultDevice: "irtrace.db",
		New: func(o Options) (Source, error) {
			return NewCaptureSource(o.Device, o.Session), nil
		},
	},
}

// Lookup returns the named driver. An empty name selects DefaultDriver.
func Lookup(name string) (Driver, error) {
	if name == "" {
		name = DefaultDriver
	}
	d, ok := Drivers[name]
	if !ok {
		return Driver{}, fmt.Errorf("%w: %q", ErrUnknownDriver, name)
	}
	return d, nil
}

// DriverNames returns the registered driver names in sorted order.
func DriverNames() []string {
	names := make([]string, 0, len(Drivers))
	for name := range Drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PrintDrivers writes the driver list, one per line.
func PrintDrivers(w io.Writer) {
	fmt.Fprintln(w, "Supported drivers:")
	for _, name := range DriverNames() {
		d := Drivers[name]
		fmt.Fprintf(w, "\t%-10s %s (default device %s)\n", d.Name, d.Description, d.DefaultDevice)
	}
}

// Open builds an uninitialised source for the named driver. With Raw set the
// driver is bypassed and opts.Device is read as a LIRC device.
func Open(driver string, opts Options) (Source, error) {
	if opts.Logf == nil {
		opts.Logf = monitoring.Discard
	}
	if opts.Raw {
		if opts.Device == "" {
			opts.Device = DefaultDevicePath
		}
		return NewDeviceSource(DeviceOptions{
			Path: opts.Device,
			Raw:  true,
			Logf: opts.Logf,
		}), nil
	}
	d, err := Lookup(driver)
	if err != nil {
		return nil, err
	}
	if opts.Device == "" {
		opts.Device = d.DefaultDevice
	}
	return d.New(opts)
}
