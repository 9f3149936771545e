package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/titanous/json5"
	"gopkg.in/yaml.v3"
)

// DefaultPrompt matches the prompt the REPL shows without a config file.
const DefaultPrompt = "user> "

// Config is the malrepl configuration file.
type Config struct {
	Prompt      string          `json:"prompt" yaml:"prompt"`
	LineEditing bool            `json:"lineEditing" yaml:"lineEditing"`
	History     HistoryConfig   `json:"history" yaml:"history"`
	Log         LogConfig       `json:"log" yaml:"log"`
	Telemetry   TelemetryConfig `json:"telemetry" yaml:"telemetry"`
}

// HistoryConfig controls persistent line history for terminal sessions.
type HistoryConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	File    string `json:"file,omitempty" yaml:"file,omitempty"`
}

// LogConfig controls the structured logger on stderr.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`   // debug, info, warn, error
	Format string `json:"format" yaml:"format"` // text, json
}

// TelemetryConfig enables OTLP export of per-iteration spans.
type TelemetryConfig struct {
	Enabled     bool              `json:"enabled" yaml:"enabled"`
	Endpoint    string            `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Protocol    string            `json:"protocol,omitempty" yaml:"protocol,omitempty"` // grpc (default) or http
	Insecure    bool              `json:"insecure,omitempty" yaml:"insecure,omitempty"`
	ServiceName string            `json:"serviceName,omitempty" yaml:"serviceName,omitempty"`
	Headers     map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Prompt:      DefaultPrompt,
		LineEditing: true,
		History: HistoryConfig{
			Enabled: true,
			File:    "~/.malrepl/history",
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// DefaultPath is the config location when neither flag nor env var is set.
func DefaultPath() string {
	return filepath.Join(ExpandHome("~/.malrepl"), "config.json5")
}

// Load reads the config at path on top of Default(). A missing file is not
// an error. YAML is chosen by extension, everything else is parsed as JSON5.
// An empty prompt falls back to DefaultPrompt.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json5.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Prompt == "" {
		cfg.Prompt = DefaultPrompt
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path, creating parent directories.
func Save(path string, cfg *Config) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// Validate checks enumerated fields and telemetry requirements.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log.level %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid log.format %q", c.Log.Format)
	}
	switch c.Telemetry.Protocol {
	case "", "grpc", "http":
	default:
		return fmt.Errorf("invalid telemetry.protocol %q", c.Telemetry.Protocol)
	}
	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		return errors.New("telemetry.enabled requires telemetry.endpoint")
	}
	return nil
}

// HistoryPath returns the expanded history file, or "" when history is off.
func (c *Config) HistoryPath() string {
	if !c.History.Enabled || c.History.File == "" {
		return ""
	}
	return ExpandHome(c.History.File)
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
