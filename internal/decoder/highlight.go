package decoder

// Highlighter decorates columns that changed between two lines.
type Highlighter interface {
	// Highlight appends the highlighted form of c to dst.
	Highlight(dst []byte, c byte) []byte
}

// ANSI color escapes.
const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
)

// ANSIHighlighter paints changed columns red on a terminal.
type ANSIHighlighter struct{}

func (ANSIHighlighter) Highlight(dst []byte, c byte) []byte {
	dst = append(dst, ansiRed...)
	dst = append(dst, c)
	return append(dst, ansiReset...)
}

// PlainHighlighter leaves changed columns untouched, for output that is not
// a terminal.
type PlainHighlighter struct{}

func (PlainHighlighter) Highlight(dst []byte, c byte) []byte {
	return append(dst, c)
}
