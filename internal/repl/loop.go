package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// LoopConfig wires the collaborators of a Loop.
type LoopConfig struct {
	Reader  Reader
	Eval    EvalFunc  // nil means Identity
	Printer *Printer
	Stderr  io.Writer // receives "error: ..." on input failure; nil means io.Discard
	Tracer  trace.Tracer
	Logger  *slog.Logger
}

// Loop drives read, eval and print until the input is exhausted.
type Loop struct {
	reader  Reader
	eval    EvalFunc
	printer *Printer
	stderr  io.Writer
	tracer  trace.Tracer
	logger  *slog.Logger

	state State
	lines int
}

// NewLoop creates a loop from cfg.
func NewLoop(cfg LoopConfig) *Loop {
	l := &Loop{
		reader:  cfg.Reader,
		eval:    cfg.Eval,
		printer: cfg.Printer,
		stderr:  cfg.Stderr,
		tracer:  cfg.Tracer,
		logger:  cfg.Logger,
		state:   StatePrompting,
	}
	if l.eval == nil {
		l.eval = Identity
	}
	if l.stderr == nil {
		l.stderr = io.Discard
	}
	if l.tracer == nil {
		l.tracer = noop.NewTracerProvider().Tracer("malrepl")
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	return l
}

// State returns the phase the loop is in.
func (l *Loop) State() State { return l.state }

// Lines returns how many lines have been echoed.
func (l *Loop) Lines() int { return l.lines }

// Run loops until end of input. A failing input stream is reported on the
// error stream and ends the loop like end of input. Output failures, for the
// prompt or the echo, are returned. Cancellation is observed between iterations only.
func (l *Loop) Run(ctx context.Context) error {
	defer l.transition(StateTerminated)

	for {
		if ctx.Err() != nil {
			l.logger.Debug("repl stopped", "reason", ctx.Err(), "lines", l.lines)
			return nil
		}

		done, err := l.iterate(ctx)
		if err != nil {
			return err
		}
		if done {
			l.logger.Debug("repl finished", "lines", l.lines)
			return nil
		}
	}
}

func (l *Loop) iterate(ctx context.Context) (bool, error) {
	_, span := l.tracer.Start(ctx, "repl.iteration",
		trace.WithAttributes(attribute.Int("repl.iteration", l.lines+1)),
	)
	defer span.End()

	l.transition(StatePrompting)
	l.transition(StateReading)
	line, err := l.reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			span.SetAttributes(attribute.Bool("repl.eof", true))
			return true, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		var inErr *InputError
		if !errors.As(err, &inErr) {
			return true, err
		}
		l.logger.Warn("input stream failed", "error", err)
		fmt.Fprintf(l.stderr, "error: %v\n", err)
		return true, nil
	}

	l.transition(StateEvaluating)
	out := l.eval(line.Text)

	l.transition(StatePrinting)
	if err := l.printer.Print(out); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return true, fmt.Errorf("print: %w", err)
	}

	l.lines++
	span.SetAttributes(attribute.Int("repl.line_bytes", len(line.Text)))
	return false, nil
}

func (l *Loop) transition(next State) {
	if l.state == next {
		return
	}
	l.logger.Debug("repl state", "from", l.state, "to", next)
	l.state = next
}
