// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/bureau-foundation/geoalg/lib/config"
)

// NewCommandLogger creates the structured logger handed to algorithms
// through their environment. With format "auto" it uses a TextHandler
// when w is a terminal and a JSONHandler otherwise, so logs piped into
// other tools stay machine-parseable. debug forces the Debug level.
//
// Algorithms scope the logger with the command path:
//
//	logger.With("command", "geoalg raster pipeline")
func NewCommandLogger(w io.Writer, settings config.LogConfig, debug bool) (*slog.Logger, error) {
	level := (&config.Config{Log: settings}).SlogLevel()
	if debug {
		level = slog.LevelDebug
	}
	options := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(settings.Format) {
	case "", "auto":
		if isTerminal(w) {
			handler = slog.NewTextHandler(w, options)
		} else {
			handler = slog.NewJSONHandler(w, options)
		}
	case "text":
		handler = slog.NewTextHandler(w, options)
	case "json":
		handler = slog.NewJSONHandler(w, options)
	default:
		return nil, fmt.Errorf("unknown log format %q (expected auto, text or json)", settings.Format)
	}
	return slog.New(handler), nil
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}
