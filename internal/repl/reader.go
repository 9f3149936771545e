package repl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sync"
)

// DefaultPrompt is written before every read.
const DefaultPrompt = "user> "

// Reader produces one line per call. It returns io.EOF once the input is
// exhausted and *InputError when the input stream fails. Failing to show the
// prompt is an output error and is returned as is.
type Reader interface {
	Read() (Line, error)
	SetPrompt(prompt string)
}

type flusher interface {
	Flush() error
}

func flush(w io.Writer) error {
	if f, ok := w.(flusher); ok {
		return f.Flush()
	}
	return nil
}

// LineReader reads lines from a plain stream and writes the prompt to out.
type LineReader struct {
	in  *bufio.Reader
	out io.Writer

	mu     sync.RWMutex
	prompt string
}

// NewLineReader creates a reader over in that prompts on out.
func NewLineReader(in io.Reader, out io.Writer, prompt string) *LineReader {
	return &LineReader{
		in:     bufio.NewReader(in),
		out:    out,
		prompt: prompt,
	}
}

// SetPrompt replaces the prompt used by subsequent reads.
func (r *LineReader) SetPrompt(prompt string) {
	r.mu.Lock()
	r.prompt = prompt
	r.mu.Unlock()
}

// Prompt returns the current prompt.
func (r *LineReader) Prompt() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.prompt
}

// Read writes the prompt, flushes it, then blocks until a full line is
// available or the stream ends.
func (r *LineReader) Read() (Line, error) {
	if _, err := io.WriteString(r.out, r.Prompt()); err != nil {
		return Line{}, fmt.Errorf("prompt: %w", err)
	}
	if err := flush(r.out); err != nil {
		return Line{}, fmt.Errorf("prompt: %w", err)
	}

	raw, err := r.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			if raw == "" {
				return Line{}, io.EOF
			}
			// Unterminated last line; the following read reports EOF.
			return splitLine(raw), nil
		}
		return Line{}, &InputError{Err: err}
	}
	return splitLine(raw), nil
}
