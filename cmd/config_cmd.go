package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/malrepl/internal/config"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and manage configuration",
	}
	cmd.AddCommand(configShowCmd())
	cmd.AddCommand(configPathCmd())
	cmd.AddCommand(configValidateCmd())
	cmd.AddCommand(configInitCmd())
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display current configuration (telemetry headers redacted)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			data, err := json.MarshalIndent(redactConfig(cfg), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

func configPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), resolveConfigPath())
		},
	}
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			if _, err := config.Load(cfgPath); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config at %s is valid.\n", cfgPath)
			return nil
		},
	}
}

func configInitCmd() *cobra.Command {
	var (
		useDefaults bool
		force       bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file, interactively unless --defaults is given",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()

			if _, err := os.Stat(cfgPath); err == nil && !force {
				if useDefaults {
					return fmt.Errorf("%s already exists (use --force to overwrite)", cfgPath)
				}
				ok, err := promptConfirm(fmt.Sprintf("Overwrite %s?", cfgPath), false)
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}

			cfg := config.Default()
			if !useDefaults {
				if err := runConfigWizard(cfg); err != nil {
					return err
				}
			}

			if err := config.Save(cfgPath, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", cfgPath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&useDefaults, "defaults", false, "write the default config without prompting")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}

func runConfigWizard(cfg *config.Config) error {
	prompt, err := promptString("Prompt", "Text shown before each input line", cfg.Prompt)
	if err != nil {
		return err
	}
	cfg.Prompt = prompt

	if cfg.LineEditing, err = promptConfirm("Enable line editing in terminals?", cfg.LineEditing); err != nil {
		return err
	}
	if cfg.LineEditing {
		if cfg.History.Enabled, err = promptConfirm("Keep input history?", cfg.History.Enabled); err != nil {
			return err
		}
	}

	levels := []SelectOption[string]{
		{Label: "warn (default)", Value: "warn"},
		{Label: "info", Value: "info"},
		{Label: "debug", Value: "debug"},
		{Label: "error", Value: "error"},
	}
	if cfg.Log.Level, err = promptSelect("Log level", levels, 0); err != nil {
		return err
	}
	return nil
}

// redactConfig returns a JSON-safe copy with header values masked.
func redactConfig(cfg *config.Config) interface{} {
	data, _ := json.Marshal(cfg)
	var raw map[string]interface{}
	json.Unmarshal(data, &raw)
	redactMap(raw)
	return raw
}

func redactMap(m map[string]interface{}) {
	for k, v := range m {
		sub, ok := v.(map[string]interface{})
		if !ok {
			continue
		}
		if k == "headers" {
			for hk, hv := range sub {
				sub[hk] = maskSecret(hv)
			}
			continue
		}
		redactMap(sub)
	}
}

func maskSecret(v interface{}) interface{} {
	s, ok := v.(string)
	if !ok || s == "" {
		return v
	}
	if len(s) > 8 {
		return s[:4] + "****" + s[len(s)-4:]
	}
	return "****"
}
