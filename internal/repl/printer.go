package repl

import "io"

// Printer writes evaluation results, one per line.
type Printer struct {
	w io.Writer
}

// NewPrinter creates a printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Print writes s followed by a newline. Buffered writers are flushed so the
// echo is visible before the next prompt.
func (p *Printer) Print(s string) error {
	if _, err := io.WriteString(p.w, s+"\n"); err != nil {
		return err
	}
	return flush(p.w)
}
