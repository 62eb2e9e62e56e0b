// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the geoalg configuration.
type Config struct {
	// Log configures the command logger.
	Log LogConfig `yaml:"log"`

	// Docs configures documentation links in usage output.
	Docs DocsConfig `yaml:"docs"`

	// Options holds configuration options consulted by drivers and
	// algorithms, keyed by upper-case name (ALLOW_WRITES_IN_STREAM,
	// GRC_DEFAULT_COMPRESS, ...). Values from --config KEY=VALUE on
	// the command line are layered on top with SetOption.
	Options map[string]string `yaml:"options"`
}

// LogConfig configures the command logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error. Default: warn.
	Level string `yaml:"level"`

	// Format is one of auto, text, json. "auto" picks text when
	// stderr is a terminal and JSON otherwise. Default: auto.
	Format string `yaml:"format"`
}

// DocsConfig configures documentation links.
type DocsConfig struct {
	// BaseURL is prefixed to each algorithm's help URL in the
	// "For more details, consult" footer and in JSON usage.
	BaseURL string `yaml:"base_url"`
}

// DefaultDocURL is the documentation root used when none is configured.
const DefaultDocURL = "https://geoalg.bureau.foundation"

// Default returns the built-in configuration used when no file exists.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "warn",
			Format: "auto",
		},
		Docs: DocsConfig{
			BaseURL: DefaultDocURL,
		},
		Options: map[string]string{},
	}
}

// Load loads configuration from the file named by GEOALG_CONFIG, or
// from ~/.config/geoalg/config.yaml when that exists. With neither,
// it returns the defaults. Environment overrides are applied last.
func Load() (*Config, error) {
	if path := os.Getenv("GEOALG_CONFIG"); path != "" {
		return LoadFile(path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, ".config", "geoalg", "config.yaml")
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	cfg := Default()
	cfg.applyEnvironment()
	return cfg, nil
}

// LoadFile loads configuration from a specific file path, merged over
// the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if cfg.Options == nil {
		cfg.Options = map[string]string{}
	}

	cfg.normalizeOptionKeys()
	cfg.expandVariables()
	cfg.applyEnvironment()
	return cfg, nil
}

// applyEnvironment applies GEOALG_LOG_LEVEL, GEOALG_LOG_FORMAT and
// GEOALG_DOC_URL when set.
func (c *Config) applyEnvironment() {
	if value := os.Getenv("GEOALG_LOG_LEVEL"); value != "" {
		c.Log.Level = value
	}
	if value := os.Getenv("GEOALG_LOG_FORMAT"); value != "" {
		c.Log.Format = value
	}
	if value := os.Getenv("GEOALG_DOC_URL"); value != "" {
		c.Docs.BaseURL = value
	}
}

func (c *Config) normalizeOptionKeys() {
	normalized := make(map[string]string, len(c.Options))
	for key, value := range c.Options {
		normalized[strings.ToUpper(key)] = value
	}
	c.Options = normalized
}

// expandVariables expands ${VAR} and ${VAR:-default} in the doc URL
// and in option values.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.Docs.BaseURL = expandVars(c.Docs.BaseURL, vars)
	for key, value := range c.Options {
		c.Options[key] = expandVars(value, vars)
	}
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

var (
	validLevels  = []string{"debug", "info", "warn", "error"}
	validFormats = []string{"auto", "text", "json"}
)

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []error

	if !slices.Contains(validLevels, strings.ToLower(c.Log.Level)) {
		errs = append(errs, fmt.Errorf("log.level must be one of: %v", validLevels))
	}
	if !slices.Contains(validFormats, strings.ToLower(c.Log.Format)) {
		errs = append(errs, fmt.Errorf("log.format must be one of: %v", validFormats))
	}
	if c.Docs.BaseURL == "" {
		errs = append(errs, fmt.Errorf("docs.base_url is required"))
	}
	for key := range c.Options {
		if key == "" || strings.ContainsAny(key, "= \t") {
			errs = append(errs, fmt.Errorf("options: invalid key %q", key))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// SlogLevel returns Log.Level as a slog level. Unknown values map to
// warn.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
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

// Option returns the named option, or fallback when unset.
func (c *Config) Option(key, fallback string) string {
	if value, ok := c.Options[strings.ToUpper(key)]; ok {
		return value
	}
	return fallback
}

// OptionBool interprets the named option as a boolean. YES, ON, TRUE
// and 1 are true, case-insensitively; anything else, including unset,
// is false.
func (c *Config) OptionBool(key string) bool {
	switch strings.ToUpper(c.Option(key, "")) {
	case "YES", "ON", "TRUE", "1":
		return true
	}
	return false
}

// SetOption sets an option for the rest of the process.
func (c *Config) SetOption(key, value string) {
	if c.Options == nil {
		c.Options = map[string]string{}
	}
	c.Options[strings.ToUpper(key)] = value
}

// Clone returns a deep copy, so per-invocation overrides do not leak
// into the loaded configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Options = maps.Clone(c.Options)
	if clone.Options == nil {
		clone.Options = map[string]string{}
	}
	return &clone
}
