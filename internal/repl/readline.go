package repl

import (
	"errors"
	"io"

	"github.com/chzyer/readline"
)

// TerminalReader reads from an interactive terminal with line editing and
// optional history.
type TerminalReader struct {
	rl *readline.Instance
}

// TerminalConfig configures a TerminalReader.
type TerminalConfig struct {
	Prompt      string
	HistoryFile string // empty disables persistent history
	Stdin       io.ReadCloser
	Stdout      io.Writer
	Stderr      io.Writer
}

// NewTerminalReader creates a line-editing reader.
func NewTerminalReader(cfg TerminalConfig) (*TerminalReader, error) {
	return newTerminalReader(cfg, nil)
}

// newTerminalReader lets tests swap the terminal hooks of the readline config.
func newTerminalReader(cfg TerminalConfig, adjust func(*readline.Config)) (*TerminalReader, error) {
	rlCfg := &readline.Config{
		Prompt:            cfg.Prompt,
		HistoryFile:       cfg.HistoryFile,
		Stdin:             cfg.Stdin,
		Stdout:            cfg.Stdout,
		Stderr:            cfg.Stderr,
		InterruptPrompt:   "^C",
		EOFPrompt:         "",
		HistorySearchFold: true,
	}
	if adjust != nil {
		adjust(rlCfg)
	}

	rl, err := readline.NewEx(rlCfg)
	if err != nil {
		return nil, err
	}
	return &TerminalReader{rl: rl}, nil
}

// SetPrompt replaces the prompt used by subsequent reads.
func (r *TerminalReader) SetPrompt(prompt string) {
	r.rl.SetPrompt(prompt)
}

// Read blocks for one edited line. Ctrl+D, or Ctrl+C on an empty line, ends
// input; Ctrl+C with pending text discards it and prompts again.
func (r *TerminalReader) Read() (Line, error) {
	for {
		line, retry, err := readlineResult(r.rl.Readline())
		if !retry {
			return line, err
		}
	}
}

// readlineResult maps one Readline call onto the Reader contract. retry is
// true when a pending line was interrupted and the read should start over.
func readlineResult(text string, err error) (Line, bool, error) {
	switch {
	case err == nil:
		return Line{Text: text, Terminator: "\n"}, false, nil
	case errors.Is(err, readline.ErrInterrupt):
		if text == "" {
			return Line{}, false, io.EOF
		}
		return Line{}, true, nil
	case errors.Is(err, io.EOF):
		return Line{}, false, io.EOF
	default:
		return Line{}, false, &InputError{Err: err}
	}
}

// Close restores the terminal state.
func (r *TerminalReader) Close() error {
	return r.rl.Close()
}
