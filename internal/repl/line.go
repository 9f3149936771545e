package repl

import "strings"

// Line is one unit of input, owned by a single loop iteration.
type Line struct {
	Text       string // content without the line terminator
	Terminator string // "\n", "\r\n", or "" for a final unterminated line
}

// Raw returns the line exactly as it was read from the stream.
func (l Line) Raw() string {
	return l.Text + l.Terminator
}

// splitLine separates a raw line into text and terminator.
func splitLine(raw string) Line {
	switch {
	case strings.HasSuffix(raw, "\r\n"):
		return Line{Text: raw[:len(raw)-2], Terminator: "\r\n"}
	case strings.HasSuffix(raw, "\n"):
		return Line{Text: raw[:len(raw)-1], Terminator: "\n"}
	default:
		return Line{Text: raw}
	}
}
