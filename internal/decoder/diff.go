package decoder

import "io"

// AppendDiff appends current to dst, passing every column that differs from
// previous through h, and terminates the row with a newline. Lines of unequal
// length cannot be compared column by column, so current is appended as is.
func AppendDiff(dst, current, previous []byte, h Highlighter) []byte {
	if len(current) != len(previous) {
		dst = append(dst, current...)
		return append(dst, '\n')
	}
	for i, c := range current {
		if c == previous[i] {
			dst = append(dst, c)
			continue
		}
		dst = h.Highlight(dst, c)
	}
	return append(dst, '\n')
}

// WriteDiff writes the highlighted row for current to w.
func WriteDiff(w io.Writer, current, previous []byte, h Highlighter) error {
	_, err := w.Write(AppendDiff(nil, current, previous, h))
	return err
}

// ChangedColumns counts the columns of current that differ from previous. It
// returns -1 when the lines have different lengths.
func ChangedColumns(current, previous []byte) int {
	if len(current) != len(previous) {
		return -1
	}
	n := 0
	for i := range current {
		if current[i] != previous[i] {
			n++
		}
	}
	return n
}
