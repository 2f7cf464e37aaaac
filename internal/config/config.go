package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultMaxHistory     = 16
	DefaultScratchpadMark = "scratchpad"
	DefaultKeycode        = 56
	DefaultResetMode      = "default"
	DefaultLogLevel       = "info"
)

// Config is the top-level configuration document.
type Config struct {
	Backend        string          `yaml:"backend"`
	Dispatch       string          `yaml:"dispatch"`
	SocketPath     string          `yaml:"socketPath"`
	MaxHistory     int             `yaml:"maxHistory"`
	ScratchpadMark string          `yaml:"scratchpadMark"`
	RedactTitles   bool            `yaml:"redactTitles"`
	LogLevel       string          `yaml:"logLevel"`
	LogFormat      string          `yaml:"logFormat"`
	Telemetry      TelemetryConfig `yaml:"telemetry"`
	Status         StatusConfig    `yaml:"status"`
	Keys           KeysConfig      `yaml:"keys"`
}

// TelemetryConfig toggles the in-process counters.
type TelemetryConfig struct {
	Enabled bool `yaml:"enabled"`
}

// StatusConfig configures the optional HTTP status API.
type StatusConfig struct {
	// Listen is a host:port address; empty disables the API.
	Listen string `yaml:"listen"`
}

// KeysConfig configures the key-release trigger.
type KeysConfig struct {
	Keycode   int    `yaml:"keycode"`
	Device    string `yaml:"device"`
	ResetMode string `yaml:"resetMode"`
}

// LintError captures a single validation issue with an optional path.
type LintError struct {
	Path    string
	Message string
}

func (e LintError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		MaxHistory:     DefaultMaxHistory,
		ScratchpadMark: DefaultScratchpadMark,
		LogLevel:       DefaultLogLevel,
		Keys: KeysConfig{
			Keycode:   DefaultKeycode,
			ResetMode: DefaultResetMode,
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/wincycler/config.yaml, falling back to
// ~/.config.
func DefaultPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".config", "wincycler", "config.yaml")
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "wincycler", "config.yaml")
}

// Load reads and validates a configuration file. A missing file yields the
// defaults and nil raw bytes.
func Load(path string) (*Config, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil, nil
		}
		return nil, nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, nil, err
	}
	return cfg, data, nil
}

// Parse decodes YAML over the defaults and validates the result. Unknown
// fields are rejected.
func Parse(data []byte) (*Config, error) {
	cfg, err := decode(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LintData decodes data and returns every validation issue. Decoding errors
// are returned as err.
func LintData(data []byte) (*Config, []LintError, error) {
	cfg, err := decode(data)
	if err != nil {
		return nil, nil, err
	}
	return cfg, cfg.Lint(), nil
}

func decode(data []byte) (*Config, error) {
	return decodeWith(data, true)
}

func decodeWith(data []byte, strict bool) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(strict)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ScratchpadMark == "" {
		c.ScratchpadMark = DefaultScratchpadMark
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Keys.ResetMode == "" {
		c.Keys.ResetMode = DefaultResetMode
	}
}

// Validate performs basic sanity checks and returns the first issue found.
func (c *Config) Validate() error {
	if errs := c.Lint(); len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// Lint returns every validation issue in the configuration.
func (c *Config) Lint() []LintError {
	var errs []LintError
	add := func(path, format string, args ...any) {
		errs = append(errs, LintError{Path: path, Message: fmt.Sprintf(format, args...)})
	}
	switch strings.ToLower(c.Backend) {
	case "", "auto", "i3", "hyprland":
	default:
		add("backend", "must be auto, i3 or hyprland, got %q", c.Backend)
	}
	switch strings.ToLower(c.Dispatch) {
	case "", "socket", "hyprctl":
	default:
		add("dispatch", "must be socket or hyprctl, got %q", c.Dispatch)
	}
	if c.MaxHistory <= 0 {
		add("maxHistory", "must be positive, got %d", c.MaxHistory)
	}
	if strings.ContainsAny(c.ScratchpadMark, " \t,") {
		add("scratchpadMark", "cannot contain whitespace or commas")
	}
	switch strings.ToLower(c.LogLevel) {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		add("logLevel", "unknown level %q", c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "console", "json":
	default:
		add("logFormat", "must be console or json, got %q", c.LogFormat)
	}
	if c.Keys.Keycode <= 0 {
		add("keys.keycode", "must be positive, got %d", c.Keys.Keycode)
	}
	if c.Status.Listen != "" && !strings.Contains(c.Status.Listen, ":") {
		add("status.listen", "must be host:port, got %q", c.Status.Listen)
	}
	return errs
}

// Marshal serializes the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
