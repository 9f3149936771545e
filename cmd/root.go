package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/malrepl/internal/config"
)

// Version is set at build time with -ldflags "-X .../cmd.Version=...".
var Version = "dev"

var (
	cfgFile string
	verbose bool
)

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var opts replOptions

	cmd := &cobra.Command{
		Use:   "malrepl",
		Short: "Read-eval-print loop that echoes each input line",
		Long: `malrepl reads a line, evaluates it and prints the result until input ends.
The evaluator is currently the identity function.

Examples:
  malrepl                      # Interactive loop (Ctrl+D to quit)
  printf 'a\nb\n' | malrepl    # Piped input
  malrepl -e "(+ 1 2)"         # Evaluate once and exit`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// A broken config is reported by the command that needs it.
			lc := config.Default().Log
			if cfg, err := config.Load(resolveConfigPath()); err == nil {
				lc = cfg.Log
			}
			setupLogging(cmd.ErrOrStderr(), lc, verbose)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.evalSet = cmd.Flags().Changed("eval")
			return runREPL(cmd, resolveConfigPath(), opts)
		},
	}

	cmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: $MALREPL_CONFIG or ~/.malrepl/config.json5)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging on stderr")

	cmd.Flags().StringVarP(&opts.eval, "eval", "e", "", "evaluate one line, print the result and exit")
	cmd.Flags().BoolVar(&opts.watchConfig, "watch-config", false, "reload the prompt when the config file changes")
	cmd.Flags().BoolVar(&opts.noLineEditing, "no-line-editing", false, "disable terminal line editing and history")

	cmd.AddCommand(configCmd())
	cmd.AddCommand(doctorCmd())
	cmd.AddCommand(versionCmd())

	return cmd
}

// resolveConfigPath picks the config file: --config, then $MALREPL_CONFIG,
// then the default location.
func resolveConfigPath() string {
	if cfgFile != "" {
		return config.ExpandHome(cfgFile)
	}
	if v := os.Getenv("MALREPL_CONFIG"); v != "" {
		return config.ExpandHome(v)
	}
	return config.DefaultPath()
}

func setupLogging(w io.Writer, lc config.LogConfig, debug bool) {
	level := parseLevel(lc.Level)
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if strings.EqualFold(lc.Format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(h))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
