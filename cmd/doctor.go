package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/malrepl/internal/config"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check terminal environment and configuration health",
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor(cmd.OutOrStdout(), cmd.InOrStdin(), resolveConfigPath())
		},
	}
}

type doctorStyles struct {
	title lipgloss.Style
	label lipgloss.Style
	ok    lipgloss.Style
	warn  lipgloss.Style
}

func newDoctorStyles(w io.Writer) doctorStyles {
	r := lipgloss.NewRenderer(w)
	return doctorStyles{
		title: r.NewStyle().Bold(true),
		label: r.NewStyle().Width(14),
		ok:    r.NewStyle().Foreground(lipgloss.Color("2")),
		warn:  r.NewStyle().Foreground(lipgloss.Color("3")),
	}
}

func runDoctor(w io.Writer, in io.Reader, cfgPath string) {
	st := newDoctorStyles(w)
	line := func(label, value string) {
		fmt.Fprintf(w, "  %s%s\n", st.label.Render(label+":"), value)
	}

	fmt.Fprintln(w, st.title.Render("malrepl doctor"))
	line("Version", Version)
	line("OS", runtime.GOOS+"/"+runtime.GOARCH)
	line("Go", runtime.Version())
	fmt.Fprintln(w)

	if _, err := os.Stat(cfgPath); err != nil {
		line("Config", cfgPath+" "+st.warn.Render("(NOT FOUND, using defaults)"))
	} else {
		line("Config", cfgPath+" "+st.ok.Render("(OK)"))
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		line("Config error", st.warn.Render(err.Error()))
		return
	}
	line("Prompt", fmt.Sprintf("%q", cfg.Prompt))

	fmt.Fprintln(w)
	fmt.Fprintln(w, st.title.Render("  Terminal"))
	line("stdin", ttyStatus(st, in))
	line("stdout", ttyStatus(st, w))
	switch {
	case !cfg.LineEditing:
		line("Line editing", "disabled")
	case isTerminal(in) && isTerminal(w):
		line("Line editing", st.ok.Render("enabled"))
	default:
		line("Line editing", "enabled (inactive, not a terminal)")
	}

	if hp := cfg.HistoryPath(); hp != "" {
		if _, err := os.Stat(filepath.Dir(hp)); err != nil {
			line("History", hp+" "+st.warn.Render("(directory missing, created on first run)"))
		} else {
			line("History", hp+" "+st.ok.Render("(OK)"))
		}
	} else {
		line("History", "disabled")
	}

	fmt.Fprintln(w)
	if cfg.Telemetry.Enabled {
		line("Telemetry", fmt.Sprintf("%s (%s)", cfg.Telemetry.Endpoint, protocolName(cfg.Telemetry.Protocol)))
	} else {
		line("Telemetry", "disabled")
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Doctor check complete.")
}

func ttyStatus(st doctorStyles, v any) string {
	if isTerminal(v) {
		return st.ok.Render("terminal")
	}
	return "not a terminal"
}

func protocolName(p string) string {
	if p == "" {
		return "grpc"
	}
	return p
}
