// Package monitoring carries the process-wide logging context: who is
// logging, where to, and how much.
package monitoring

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/banshee-data/irtrace/internal/timeutil"
)

// Logf is the logging hook accepted by packages that report diagnostics.
type Logf func(format string, v ...interface{})

// Discard is a Logf that drops everything.
func Discard(string, ...interface{}) {}

// Priority orders log messages by severity.
type Priority int

const (
	PriorityError Priority = iota
	PriorityWarning
	PriorityInfo
	PriorityDebug
)

// Context describes the logging process. The zero value logs to stderr with
// no program prefix.
type Context struct {
	// Progname prefixes every message.
	Progname string
	// Hostname is written to the log file only.
	Hostname string
	// LogFile, when set, receives timestamped copies of every message.
	LogFile io.Writer
	// Daemonized suppresses stderr output.
	Daemonized bool
	// Verbosity is the highest priority that is emitted.
	Verbosity Priority
	// Stderr overrides os.Stderr.
	Stderr io.Writer
	// Clock overrides the wall clock used for log file timestamps.
	Clock timeutil.Clock
}

// Logger writes messages in the format of classic daemon logs: file lines are
// "Jan _2 15:04:05 host prog: msg" and stderr lines are "prog: msg". Warnings
// carry a "WARNING: " prefix on both.
type Logger struct {
	mu  sync.Mutex
	ctx Context
}

// New returns a Logger for ctx.
func New(ctx Context) *Logger {
	if ctx.Stderr == nil {
		ctx.Stderr = os.Stderr
	}
	if ctx.Clock == nil {
		ctx.Clock = timeutil.RealClock{}
	}
	return &Logger{ctx: ctx}
}

// Printf logs at the given priority.
func (l *Logger) Printf(prio Priority, format string, v ...interface{}) {
	if prio > l.ctx.Verbosity {
		return
	}
	msg := strings.TrimRight(fmt.Sprintf(format, v...), "\n")
	if prio == PriorityWarning {
		msg = "WARNING: " + msg
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ctx.LogFile != nil {
		stamp := l.ctx.Clock.Now().Format(time.Stamp)
		fmt.Fprintf(l.ctx.LogFile, "%s %s %s: %s\n", stamp, l.ctx.Hostname, l.ctx.Progname, msg)
	}
	if !l.ctx.Daemonized {
		if l.ctx.Progname != "" {
			fmt.Fprintf(l.ctx.Stderr, "%s: %s\n", l.ctx.Progname, msg)
		} else {
			fmt.Fprintln(l.ctx.Stderr, msg)
		}
	}
}

func (l *Logger) Errorf(format string, v ...interface{}) { l.Printf(PriorityError, format, v...) }
func (l *Logger) Warnf(format string, v ...interface{})  { l.Printf(PriorityWarning, format, v...) }
func (l *Logger) Infof(format string, v ...interface{})  { l.Printf(PriorityInfo, format, v...) }
func (l *Logger) Debugf(format string, v ...interface{}) { l.Printf(PriorityDebug, format, v...) }

// Logf returns a hook that logs at prio.
func (l *Logger) Logf(prio Priority) Logf {
	return func(format string, v ...interface{}) {
		l.Printf(prio, format, v...)
	}
}

// Perror logs err at PriorityError, prefixed with s when s is not empty.
func (l *Logger) Perror(s string, err error) {
	if s != "" {
		l.Errorf("%s: %v", s, err)
		return
	}
	l.Errorf("%v", err)
}

// Writer returns an io.Writer that logs each write at prio, suitable for
// log.SetOutput.
func (l *Logger) Writer(prio Priority) io.Writer {
	return writerFunc(func(p []byte) (int, error) {
		l.Printf(prio, "%s", p)
		return len(p), nil
	})
}

// RedirectStdLog sends output of the standard log package through l at prio
// until the returned restore func is called.
func (l *Logger) RedirectStdLog(prio Priority) (restore func()) {
	out, flags, prefix := log.Writer(), log.Flags(), log.Prefix()
	log.SetOutput(l.Writer(prio))
	log.SetFlags(0)
	log.SetPrefix("")
	return func() {
		log.SetOutput(out)
		log.SetFlags(flags)
		log.SetPrefix(prefix)
	}
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }
