package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/banshee-data/irtrace/internal/version"
)

// traceOptions are the command line settings of the decode command.
type traceOptions struct {
	help      bool
	version   bool
	device    string
	driver    string
	altMode   bool
	raw       bool
	session   string
	record    string
	note      string
	listen    string
	config    string
	plain     bool
	logFile   string
	verbose   bool
	daemonize bool
	args      []string
}

func newTraceFlagSet(o *traceOptions, output io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(version.Progname, flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {}

	// short and long spellings share a destination
	fs.BoolVar(&o.help, "h", false, "display usage summary")
	fs.BoolVar(&o.help, "help", false, "display usage summary")
	fs.BoolVar(&o.version, "v", false, "display version")
	fs.BoolVar(&o.version, "version", false, "display version")
	fs.StringVar(&o.device, "d", "", "read from given device")
	fs.StringVar(&o.device, "device", "", "read from given device")
	fs.StringVar(&o.driver, "H", "", "use given driver")
	fs.StringVar(&o.driver, "driver", "", "use given driver")
	fs.BoolVar(&o.altMode, "m", false, "enable alternative display mode")
	fs.BoolVar(&o.altMode, "mode", false, "enable alternative display mode")
	fs.BoolVar(&o.raw, "r", false, "access device directly")
	fs.BoolVar(&o.raw, "raw", false, "access device directly")

	fs.StringVar(&o.session, "session", "", "capture session to replay with the capture driver (default latest)")
	fs.StringVar(&o.record, "record", "", "also record samples into this capture database")
	fs.StringVar(&o.note, "note", "", "note stored with the recorded session")
	fs.StringVar(&o.listen, "listen", "", "serve /debug/ and /metrics on this address")
	fs.StringVar(&o.config, "config", "", "decoder configuration file (.json or .yaml)")
	fs.BoolVar(&o.plain, "plain", false, "do not highlight changed bits")
	fs.StringVar(&o.logFile, "log-file", "", "append log messages to this file")
	fs.BoolVar(&o.verbose, "verbose", false, "log debug messages")
	fs.BoolVar(&o.daemonize, "quiet", false, "do not log to stderr")
	return fs
}

// parseTraceFlags parses args. A parse failure has already been described on
// output.
func parseTraceFlags(args []string, output io.Writer) (*traceOptions, error) {
	o := &traceOptions{}
	fs := newTraceFlagSet(o, output)
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			o.help = true
			return o, nil
		}
		return nil, err
	}
	o.args = fs.Args()
	return o, nil
}

func printTraceUsage(w io.Writer) {
	fmt.Fprintf(w, "Usage: %s [options]\n", version.Progname)
	fmt.Fprintf(w, "\t -h --help\t\tdisplay usage summary\n")
	fmt.Fprintf(w, "\t -v --version\t\tdisplay version\n")
	fmt.Fprintf(w, "\t -d --device=device\tread from given device\n")
	fmt.Fprintf(w, "\t -H --driver=driver\tuse given driver (-H help lists drivers)\n")
	fmt.Fprintf(w, "\t -m --mode\t\tenable alternative display mode\n")
	fmt.Fprintf(w, "\t -r --raw\t\taccess device directly\n")
	fmt.Fprintf(w, "\t --session=id\t\tcapture session to replay\n")
	fmt.Fprintf(w, "\t --record=db\t\talso record samples into a capture database\n")
	fmt.Fprintf(w, "\t --note=text\t\tnote stored with the recorded session\n")
	fmt.Fprintf(w, "\t --listen=addr\t\tserve /debug/ and /metrics\n")
	fmt.Fprintf(w, "\t --config=file\t\tdecoder configuration (.json, .yaml)\n")
	fmt.Fprintf(w, "\t --plain\t\tdo not highlight changed bits\n")
	fmt.Fprintf(w, "\t --log-file=file\tappend log messages to file\n")
	fmt.Fprintf(w, "\t --verbose\t\tlog debug messages\n")
	fmt.Fprintf(w, "\t --quiet\t\tdo not log to stderr\n")
	fmt.Fprintf(w, "\nCommands:\n")
	fmt.Fprintf(w, "\t %s sessions -capture db\t\t\tlist recorded sessions\n", version.Progname)
	fmt.Fprintf(w, "\t %s report -capture db -out file.html\trender a recorded session\n", version.Progname)
}
