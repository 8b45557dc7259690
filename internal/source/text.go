package source

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/banshee-data/irtrace/internal/monitoring"
	"github.com/banshee-data/irtrace/internal/pulse"
)

// TextSource reads samples printed one per line as "pulse <us>" or
// "space <us>". Blank lines and lines starting with '#' are skipped, as are
// lines that do not parse, which are logged.
type TextSource struct {
	name   string
	r      io.Reader
	closer io.Closer
	scan   *bufio.Scanner
	logf   monitoring.Logf
	line   int
}

// NewTextSource returns a TextSource over r. If r is an io.Closer it is
// closed by Close.
func NewTextSource(name string, r io.Reader, logf monitoring.Logf) *TextSource {
	if logf == nil {
		logf = monitoring.Discard
	}
	t := &TextSource{name: name, r: r, logf: logf, scan: bufio.NewScanner(r)}
	if c, ok := r.(io.Closer); ok {
		t.closer = c
	}
	return t
}

func (t *TextSource) String() string { return t.name }

func (t *TextSource) Init() error        { return nil }
func (t *TextSource) Mode() ReceiveMode  { return ModeMode2 }
func (t *TextSource) CodeLength() uint32 { return 0 }

// ReadSample returns the next parsable sample, or io.EOF at the end of input.
func (t *TextSource) ReadSample() (pulse.Sample, error) {
	for t.scan.Scan() {
		t.line++
		text := strings.TrimSpace(t.scan.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		s, err := pulse.ParseLine(text)
		if err != nil {
			t.logf("%s:%d: skipping: %v", t.name, t.line, err)
			continue
		}
		return s, nil
	}
	if err := t.scan.Err(); err != nil {
		return pulse.Sample{}, fmt.Errorf("%s: %w", t.name, err)
	}
	return pulse.Sample{}, io.EOF
}

func (t *TextSource) Close() error {
	if t.closer == nil {
		return nil
	}
	return t.closer.Close()
}
