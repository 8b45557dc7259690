package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/banshee-data/irtrace/internal/capture"
	"github.com/banshee-data/irtrace/internal/config"
	"github.com/banshee-data/irtrace/internal/monitoring"
	"github.com/banshee-data/irtrace/internal/report"
	"github.com/banshee-data/irtrace/internal/version"
)

// commandLogger logs subcommand failures to stderr and takes over the
// standard log package until the returned restore func runs.
func commandLogger(stderr io.Writer) (*monitoring.Logger, func()) {
	logger := monitoring.New(monitoring.Context{
		Progname:  version.Progname,
		Verbosity: monitoring.PriorityInfo,
		Stderr:    stderr,
	})
	return logger, logger.RedirectStdLog(monitoring.PriorityInfo)
}

func runSessions(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("sessions", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dbPath := fs.String("capture", "irtrace.db", "capture database")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return exitSuccess
		}
		return exitFailure
	}

	logger, restore := commandLogger(stderr)
	defer restore()

	store, err := capture.OpenExisting(*dbPath)
	if err != nil {
		logger.Perror("failed to open capture database", err)
		return exitFailure
	}
	defer store.Close()

	sessions, err := store.Sessions()
	if err != nil {
		logger.Perror("failed to list sessions", err)
		return exitFailure
	}
	tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tSTARTED\tDRIVER\tDEVICE\tSAMPLES\tNOTE")
	for _, s := range sessions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			s.ID, s.StartedAt.Local().Format(time.DateTime), s.Driver, s.Device, s.Samples, s.Note)
	}
	tw.Flush()
	return exitSuccess
}

func runReport(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dbPath := fs.String("capture", "irtrace.db", "capture database")
	sessionID := fs.String("session", "", "session to render (default latest)")
	outPath := fs.String("out", "", "write the HTML report to this file")
	pngPath := fs.String("png", "", "also write a space duration histogram PNG")
	bins := fs.Int("bins", 100, "histogram bins")
	configPath := fs.String("config", "", "decoder configuration file (.json or .yaml)")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return exitSuccess
		}
		return exitFailure
	}

	logger, restore := commandLogger(stderr)
	defer restore()

	cfg := config.EmptyDecoderConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadDecoderConfig(*configPath); err != nil {
			logger.Perror("config", err)
			return exitFailure
		}
	}

	store, err := capture.OpenExisting(*dbPath)
	if err != nil {
		logger.Perror("failed to open capture database", err)
		return exitFailure
	}
	defer store.Close()

	info, err := findSession(store, *sessionID)
	if err != nil {
		logger.Perror("", err)
		return exitFailure
	}
	samples, err := store.Samples(info.ID)
	if err != nil {
		logger.Perror("failed to load samples", err)
		return exitFailure
	}

	th := cfg.Thresholds()
	fmt.Fprintf(stdout, "session %s: %d samples from %s on %s\n", info.ID, len(samples), info.Driver, info.Device)
	if err := report.WriteSummary(stdout, report.Summarize(samples, th)); err != nil {
		logger.Perror("", err)
		return exitFailure
	}

	if *outPath != "" {
		meta := report.Meta{Session: info.ID, Driver: info.Driver, Device: info.Device, StartedAt: info.StartedAt}
		if err := writeFile(*outPath, func(w io.Writer) error {
			return report.WriteHTML(w, meta, samples, th)
		}); err != nil {
			logger.Perror("failed to write report", err)
			return exitFailure
		}
		fmt.Fprintf(stdout, "wrote %s\n", *outPath)
	}
	if *pngPath != "" {
		if err := writeFile(*pngPath, func(w io.Writer) error {
			return report.WriteHistogramPNG(w, "session "+info.ID, samples, *bins)
		}); err != nil {
			logger.Perror("failed to write histogram", err)
			return exitFailure
		}
		fmt.Fprintf(stdout, "wrote %s\n", *pngPath)
	}
	return exitSuccess
}

func findSession(store *capture.Store, id string) (capture.SessionInfo, error) {
	if id == "" {
		return store.LatestSession()
	}
	sessions, err := store.Sessions()
	if err != nil {
		return capture.SessionInfo{}, err
	}
	for _, s := range sessions {
		if s.ID == id {
			return s, nil
		}
	}
	return capture.SessionInfo{}, fmt.Errorf("session %q not found", id)
}

func writeFile(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
