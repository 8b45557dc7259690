package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"

	"github.com/banshee-data/irtrace/internal/capture"
	"github.com/banshee-data/irtrace/internal/config"
	"github.com/banshee-data/irtrace/internal/decoder"
	"github.com/banshee-data/irtrace/internal/monitor"
	"github.com/banshee-data/irtrace/internal/monitoring"
	"github.com/banshee-data/irtrace/internal/rawtrace"
	"github.com/banshee-data/irtrace/internal/source"
	"github.com/banshee-data/irtrace/internal/version"
)

const (
	exitSuccess = 0
	exitFailure = 1
)

func runTrace(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	prog := version.Progname

	opts, err := parseTraceFlags(args, stderr)
	if err != nil {
		fmt.Fprintf(stdout, "Usage: %s [options]\n", prog)
		return exitFailure
	}
	if opts.help {
		printTraceUsage(stdout)
		return exitSuccess
	}
	if opts.version {
		if opts.verbose {
			fmt.Fprintln(stdout, version.Long())
		} else {
			fmt.Fprintln(stdout, version.String())
		}
		return exitSuccess
	}
	if opts.driver == "help" {
		source.PrintDrivers(stdout)
		return exitSuccess
	}
	driver, err := source.Lookup(opts.driver)
	if err != nil {
		fmt.Fprintf(stderr, "Driver `%s' not supported.\n", opts.driver)
		source.PrintDrivers(stderr)
		return exitFailure
	}
	if len(opts.args) > 0 {
		fmt.Fprintf(stderr, "%s: too many arguments\n", prog)
		return exitFailure
	}
	if opts.device == source.LircdSocket {
		fmt.Fprintf(stderr, "%s: refusing to connect to lircd socket\n", prog)
		return exitFailure
	}

	logCtx := monitoring.Context{
		Progname:   prog,
		Daemonized: opts.daemonize,
		Verbosity:  monitoring.PriorityInfo,
		Stderr:     stderr,
	}
	if opts.verbose {
		logCtx.Verbosity = monitoring.PriorityDebug
	}
	if opts.logFile != "" {
		f, err := os.OpenFile(opts.logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(stderr, "%s: could not open log file %s: %v\n", prog, opts.logFile, err)
			return exitFailure
		}
		defer f.Close()
		hostname, _ := os.Hostname()
		logCtx.LogFile = f
		logCtx.Hostname = hostname
	}
	logger := monitoring.New(logCtx)
	defer logger.RedirectStdLog(monitoring.PriorityInfo)()

	cfg := config.EmptyDecoderConfig()
	if opts.config != "" {
		if cfg, err = config.LoadDecoderConfig(opts.config); err != nil {
			logger.Perror("config", err)
			return exitFailure
		}
	}

	device := opts.device
	if device == "" && !opts.raw {
		device = driver.DefaultDevice
	}
	if device == "" {
		device = source.DefaultDevicePath
	}
	src, err := source.Open(driver.Name, source.Options{
		Device:     device,
		Raw:        opts.raw,
		Serial:     source.PortOptions{BaudRate: cfg.GetSerialBaudRate()},
		WaitPolicy: cfg.WaitPolicy(),
		Session:    opts.session,
		Logf:       logger.Logf(monitoring.PriorityWarning),
	})
	if err != nil {
		logger.Errorf("%v", err)
		return exitFailure
	}
	if err := src.Init(); err != nil {
		explainInitFailure(stdout, stderr, driver.Name, opts.raw, err)
		logger.Errorf("%v", err)
		return exitFailure
	}
	var closeOnce sync.Once
	closeSource := func() {
		closeOnce.Do(func() {
			if err := src.Close(); err != nil {
				logger.Debugf("close %s: %v", device, err)
			}
		})
	}
	defer closeSource()
	logger.Debugf("reading %v from %s", src.Mode(), device)
	if replay, ok := src.(*source.CaptureSource); ok {
		logger.Infof("replaying session %s", replay.Session())
	}

	var (
		store *capture.Store
		hub   *monitor.Hub
		stats *monitor.Metrics
	)
	if opts.record != "" && src.Mode() != source.ModeMode2 {
		logger.Warnf("not recording: only %v sessions can be recorded", source.ModeMode2)
	} else if opts.record != "" {
		if store, err = capture.Open(opts.record); err != nil {
			logger.Perror(opts.record, err)
			return exitFailure
		}
		defer store.Close()
		driverName := driver.Name
		if opts.raw {
			driverName = "raw"
		}
		sess, err := store.BeginSession(driverName, device, opts.note)
		if err != nil {
			logger.Perror(opts.record, err)
			return exitFailure
		}
		defer func() {
			if err := sess.Close(); err != nil {
				logger.Perror(opts.record, err)
			}
			logger.Infof("recorded %d samples to session %s", sess.Count(), sess.ID)
		}()
		logger.Infof("recording session %s to %s", sess.ID, opts.record)
		src = source.Record(src, sess)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var wg sync.WaitGroup
	defer wg.Wait()

	if opts.listen != "" {
		hub = monitor.NewHub()
		defer hub.Close()
		stats = monitor.NewMetrics(cfg.Thresholds())
		mux := http.NewServeMux()
		monitor.AttachAdminRoutes(mux, hub, stats, monitor.Info{Driver: driver.Name, Device: device})
		if store != nil {
			if err := store.AttachAdminRoutes(mux); err != nil {
				logger.Warnf("capture admin routes: %v", err)
			}
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := monitor.Serve(ctx, opts.listen, mux, logger.Logf(monitoring.PriorityInfo)); err != nil {
				logger.Perror("debug server", err)
			}
		}()
	}

	// a blocked read only returns once the source is closed
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		closeSource()
	}()

	err = decode(ctx, src, cfg, opts, stdout, hub, stats)
	cancel()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return exitSuccess
		}
		logger.Errorf("%v", err)
		return exitFailure
	}
	return exitSuccess
}

// decode runs the display selected by opts until ctx is cancelled or the
// source fails. hub and stats may be nil.
func decode(ctx context.Context, src source.Source, cfg *config.DecoderConfig, opts *traceOptions, stdout io.Writer, hub *monitor.Hub, stats *monitor.Metrics) error {
	out := stdout
	if hub != nil {
		out = io.MultiWriter(stdout, hub)
	}

	if src.Mode() == source.ModeLIRCCode {
		codes, ok := src.(source.CodeSource)
		if !ok {
			return fmt.Errorf("%w: source cannot deliver codes", source.ErrUnsupportedMode)
		}
		return decoder.RunCodes(ctx, codes, out)
	}

	var observers []decoder.Observer
	if stats != nil {
		observers = append(observers, stats)
	}

	if opts.altMode {
		layout := cfg.RawLayout()
		if err := layout.Validate(); err != nil {
			return err
		}
		return decoder.Run(ctx, src, rawtrace.New(out, layout), observers...)
	}

	layout := cfg.Layout()
	if err := layout.Validate(); err != nil {
		return err
	}
	var h decoder.Highlighter = decoder.ANSIHighlighter{}
	if opts.plain {
		h = decoder.PlainHighlighter{}
	}
	sinks := []decoder.Sink{decoder.NewTextSink(stdout, h)}
	if hub != nil {
		sinks = append(sinks, decoder.NewTextSink(hub, decoder.PlainHighlighter{}))
	}
	if stats != nil {
		sinks = append(sinks, stats)
	}

	if _, err := io.WriteString(out, layout.Header()); err != nil {
		return err
	}
	acc := decoder.NewAccumulator(cfg.Thresholds(), layout, decoder.Tee(sinks...))
	return decoder.Run(ctx, src, acc, observers...)
}

// explainInitFailure prints the hints for receivers this tool cannot read.
func explainInitFailure(stdout, stderr io.Writer, driver string, raw bool, err error) {
	prog := version.Progname
	switch {
	case errors.Is(err, source.ErrNotCharDevice):
		fmt.Fprintf(stderr, "%s: use the -d option to specify the correct device\n", prog)
	case errors.Is(err, source.ErrUnsupportedMode) && raw:
		fmt.Fprintf(stdout, "This program is only intended for receivers supporting the pulse/space layer.\n")
		fmt.Fprintf(stdout, "Note that this is no error, but this program simply makes no sense for your\nreceiver.\n")
	case errors.Is(err, source.ErrUnsupportedMode) && driver == source.DefaultDriver:
		fmt.Fprintf(stdout, "Please use the --raw option to access the device directly instead through\nthe abstraction layer.\n")
	case errors.Is(err, source.ErrUnsupportedMode):
		fmt.Fprintf(stdout, "This program does not work for this hardware yet\n")
	}
}
