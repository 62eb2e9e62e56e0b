// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want warn", cfg.Log.Level)
	}
	if cfg.Docs.BaseURL != DefaultDocURL {
		t.Errorf("Docs.BaseURL = %q, want %q", cfg.Docs.BaseURL, DefaultDocURL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate(Default()) = %v", err)
	}
}

func TestLoad_WithGeoalgConfig(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
options:
  grc_default_compress: LZ4
`)
	t.Setenv("GEOALG_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("SlogLevel = %v, want debug", cfg.SlogLevel())
	}
	if got := cfg.Option("GRC_DEFAULT_COMPRESS", "NONE"); got != "LZ4" {
		t.Errorf("Option(GRC_DEFAULT_COMPRESS) = %q, want LZ4 (keys are case-insensitive)", got)
	}
}

func TestLoad_NoFile(t *testing.T) {
	t.Setenv("GEOALG_CONFIG", "")
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Log.Format != "auto" {
		t.Errorf("Log.Format = %q, want auto", cfg.Log.Format)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("LoadFile of a missing file succeeded")
	}
}

func TestExpandVariables(t *testing.T) {
	t.Setenv("GEOALG_TEST_DOCS", "https://docs.example")
	path := writeConfig(t, `
docs:
  base_url: ${GEOALG_TEST_DOCS}/geoalg
options:
  SCRATCH: ${GEOALG_TEST_UNSET:-/tmp/scratch}
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Docs.BaseURL != "https://docs.example/geoalg" {
		t.Errorf("Docs.BaseURL = %q", cfg.Docs.BaseURL)
	}
	if got := cfg.Option("SCRATCH", ""); got != "/tmp/scratch" {
		t.Errorf("SCRATCH = %q, want default expansion", got)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, "log:\n  format: text\n")
	t.Setenv("GEOALG_LOG_FORMAT", "json")
	t.Setenv("GEOALG_LOG_LEVEL", "error")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want json from environment", cfg.Log.Format)
	}
	if cfg.SlogLevel() != slog.LevelError {
		t.Errorf("SlogLevel = %v, want error", cfg.SlogLevel())
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "loud"
	cfg.Log.Format = "xml"
	cfg.Docs.BaseURL = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate accepted invalid config")
	}
	for _, want := range []string{"log.level", "log.format", "docs.base_url"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate error %q does not mention %s", err, want)
		}
	}
}

func TestOptionBool(t *testing.T) {
	cfg := Default()
	cfg.SetOption("allow_writes_in_stream", "yes")
	if !cfg.OptionBool("ALLOW_WRITES_IN_STREAM") {
		t.Error("OptionBool(yes) = false")
	}
	cfg.SetOption("ALLOW_WRITES_IN_STREAM", "NO")
	if cfg.OptionBool("ALLOW_WRITES_IN_STREAM") {
		t.Error("OptionBool(NO) = true")
	}
	if cfg.OptionBool("UNSET") {
		t.Error("OptionBool(unset) = true")
	}
}

func TestClone_Isolated(t *testing.T) {
	cfg := Default()
	cfg.SetOption("A", "1")
	clone := cfg.Clone()
	clone.SetOption("A", "2")
	if cfg.Option("A", "") != "1" {
		t.Error("Clone shares the options map")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}
