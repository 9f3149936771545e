package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/malrepl/internal/config"
	"github.com/nextlevelbuilder/malrepl/internal/repl"
	"github.com/nextlevelbuilder/malrepl/internal/tracing/otelexport"
)

type replOptions struct {
	eval          string
	evalSet       bool
	watchConfig   bool
	noLineEditing bool
}

func runREPL(cmd *cobra.Command, cfgPath string, opts replOptions) error {
	in, out, errOut := cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr()

	// One-shot mode needs no config.
	if opts.evalSet {
		return repl.NewPrinter(out).Print(repl.Identity(opts.eval))
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	sessionID := uuid.NewString()[:8]
	logger := slog.Default().With("session", sessionID)

	exp := initTelemetry(ctx, cfg, sessionID)
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := exp.Shutdown(sctx); err != nil {
			logger.Warn("otel shutdown failed", "error", err)
		}
	}()

	reader, closeReader := newReader(cfg, in, out, errOut, opts.noLineEditing, logger)
	defer closeReader()

	if opts.watchConfig {
		stop := watchPrompt(cfgPath, reader, logger)
		defer stop()
	}

	logger.Debug("repl starting", "config", cfgPath, "prompt", cfg.Prompt)

	loop := repl.NewLoop(repl.LoopConfig{
		Reader:  reader,
		Eval:    repl.Identity,
		Printer: repl.NewPrinter(out),
		Stderr:  errOut,
		Tracer:  exp.Tracer(),
		Logger:  logger,
	})
	return loop.Run(ctx)
}

// newReader picks line editing when both ends are terminals, and a plain
// line reader otherwise.
func newReader(cfg *config.Config, in io.Reader, out, errOut io.Writer, noLineEditing bool, logger *slog.Logger) (repl.Reader, func()) {
	plain := func() (repl.Reader, func()) {
		return repl.NewLineReader(in, out, cfg.Prompt), func() {}
	}

	if noLineEditing || !cfg.LineEditing {
		return plain()
	}
	inFile, ok := in.(*os.File)
	if !ok || !isTerminal(inFile) || !isTerminal(out) {
		return plain()
	}

	history := cfg.HistoryPath()
	if history != "" {
		if err := os.MkdirAll(filepath.Dir(history), 0o755); err != nil {
			logger.Warn("history disabled", "path", history, "error", err)
			history = ""
		}
	}

	tr, err := repl.NewTerminalReader(repl.TerminalConfig{
		Prompt:      cfg.Prompt,
		HistoryFile: history,
		Stdin:       inFile,
		Stdout:      out,
		Stderr:      errOut,
	})
	if err != nil {
		logger.Warn("line editing unavailable, using plain input", "error", err)
		return plain()
	}
	return tr, func() {
		if err := tr.Close(); err != nil {
			logger.Debug("terminal reader close", "error", err)
		}
	}
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// watchPrompt applies prompt changes from the config file to reader.
func watchPrompt(cfgPath string, reader repl.Reader, logger *slog.Logger) func() {
	w, err := config.NewWatcher(cfgPath)
	if err != nil {
		logger.Warn("config watch disabled", "error", err)
		return func() {}
	}
	w.OnChange(func(cfg *config.Config) {
		reader.SetPrompt(cfg.Prompt)
		logger.Info("prompt updated", "prompt", cfg.Prompt)
	})
	if err := w.Start(); err != nil {
		logger.Warn("config watch disabled", "path", cfgPath, "error", err)
		w.Stop()
		return func() {}
	}
	return w.Stop
}

// initTelemetry returns nil (a no-op tracer source) unless telemetry is
// enabled and the exporter can be created.
func initTelemetry(ctx context.Context, cfg *config.Config, sessionID string) *otelexport.Exporter {
	if !cfg.Telemetry.Enabled {
		return nil
	}
	exp, err := otelexport.New(ctx, otelexport.Config{
		Endpoint:    cfg.Telemetry.Endpoint,
		Protocol:    cfg.Telemetry.Protocol,
		Insecure:    cfg.Telemetry.Insecure,
		ServiceName: cfg.Telemetry.ServiceName,
		Headers:     cfg.Telemetry.Headers,
		SessionID:   sessionID,
		Version:     Version,
	})
	if err != nil {
		slog.Warn("failed to create OTel exporter", "error", err)
		return nil
	}
	slog.Debug("OpenTelemetry OTLP export enabled",
		"endpoint", cfg.Telemetry.Endpoint,
		"protocol", cfg.Telemetry.Protocol,
	)
	return exp
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the malrepl version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "malrepl %s\n", Version)
		},
	}
}
