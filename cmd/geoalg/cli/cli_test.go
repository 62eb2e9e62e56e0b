// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"testing"

	"github.com/bureau-foundation/geoalg/lib/algorithm"
	"github.com/bureau-foundation/geoalg/lib/config"
	"github.com/bureau-foundation/geoalg/lib/testutil"
)

func TestParseGeneral(t *testing.T) {
	options, rest, err := ParseGeneral([]string{
		"--debug", "--config", "GRC_DEFAULT_COMPRESS=LZ4", "--config=ALLOW_WRITES_IN_STREAM=YES",
		"--log-format", "json", "raster", "info", "--debug", "in.grc",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !options.Debug {
		t.Error("Debug = false, want true")
	}
	if options.LogFormat != "json" {
		t.Errorf("LogFormat = %q, want json", options.LogFormat)
	}
	if want := []string{"GRC_DEFAULT_COMPRESS=LZ4", "ALLOW_WRITES_IN_STREAM=YES"}; !slices.Equal(options.Configs, want) {
		t.Errorf("Configs = %q, want %q", options.Configs, want)
	}
	if want := []string{"raster", "info", "--debug", "in.grc"}; !slices.Equal(rest, want) {
		t.Errorf("rest = %q, want %q", rest, want)
	}
}

func TestParseGeneral_LeavesAlgorithmOptions(t *testing.T) {
	_, rest, err := ParseGeneral([]string{"--version"})
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(rest, []string{"--version"}) {
		t.Errorf("rest = %q", rest)
	}
}

func TestParseGeneral_MissingValue(t *testing.T) {
	if _, _, err := ParseGeneral([]string{"--config-file"}); err == nil {
		t.Error("expected an error for --config-file without a value")
	}
}

func TestLoadConfig(t *testing.T) {
	path := testutil.WriteFile(t, "config.yaml", "log:\n  level: info\noptions:\n  grc_default_compress: ZSTD\n")
	options := GeneralOptions{ConfigFile: path, Configs: []string{"ALLOW_WRITES_IN_STREAM=YES"}}
	cfg, err := options.LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.Option("GRC_DEFAULT_COMPRESS", ""); got != "ZSTD" {
		t.Errorf("GRC_DEFAULT_COMPRESS = %q, want ZSTD", got)
	}
	if !cfg.OptionBool("ALLOW_WRITES_IN_STREAM") {
		t.Error("ALLOW_WRITES_IN_STREAM not set from --config")
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}

	options = GeneralOptions{ConfigFile: path, Configs: []string{"NOEQUALS"}}
	if _, err := options.LoadConfig(); err == nil {
		t.Error("expected an error for a --config value without '='")
	}
}

func TestNewCommandLogger(t *testing.T) {
	var buffer bytes.Buffer
	logger, err := NewCommandLogger(&buffer, config.LogConfig{Level: "warn", Format: "auto"}, true)
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("step starting", "step", "read")
	// A buffer is not a terminal, so auto selects JSON.
	if !strings.HasPrefix(buffer.String(), "{") || !strings.Contains(buffer.String(), `"step":"read"`) {
		t.Errorf("log output = %q, want a JSON record", buffer.String())
	}

	buffer.Reset()
	logger, err = NewCommandLogger(&buffer, config.LogConfig{Level: "warn", Format: "text"}, false)
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("hidden")
	logger.Warn("shown")
	if strings.Contains(buffer.String(), "hidden") || !strings.Contains(buffer.String(), "msg=shown") {
		t.Errorf("log output = %q", buffer.String())
	}

	if _, err := NewCommandLogger(&buffer, config.LogConfig{Format: "xml"}, false); err == nil {
		t.Error("expected an error for an unknown format")
	}
	if logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("warn-level logger enabled at info")
	}
}

func TestExitCodeFor(t *testing.T) {
	base := &algorithm.Base{}
	base.Init("info", "", "")
	for _, tc := range []struct {
		err  error
		want int
	}{
		{nil, 0},
		{base.Parsef("bad"), ExitUsage},
		{base.Validationf("bad"), ExitUsage},
		{base.Executionf("bad"), ExitFailure},
		{fmt.Errorf("wrapped: %w", context.Canceled), ExitCancelled},
		{&ExitError{Code: 3}, 3},
		{errors.New("plain"), ExitFailure},
	} {
		if got := ExitCodeFor(tc.err); got != tc.want {
			t.Errorf("ExitCodeFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
