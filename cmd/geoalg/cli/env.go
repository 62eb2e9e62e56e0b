// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"io"
	"log/slog"
	"os"

	"github.com/bureau-foundation/geoalg/lib/algorithm"
	"github.com/bureau-foundation/geoalg/lib/clock"
	"github.com/bureau-foundation/geoalg/lib/config"
	"github.com/bureau-foundation/geoalg/lib/helpdoc"
)

// NewEnv returns the environment handed to the root algorithm. Help
// documents are rendered for the terminal when stdout is one.
func NewEnv(cfg *config.Config, logger *slog.Logger, stdout, stderr io.Writer) *algorithm.Env {
	env := &algorithm.Env{
		Logger: logger,
		Stdout: stdout,
		Stderr: stderr,
		Config: cfg,
		Clock:  clock.Real(),
	}
	if file, ok := stdout.(*os.File); ok {
		renderer := helpdoc.Detect(file)
		env.RenderMarkdown = renderer.Markdown
		env.RenderJSON = renderer.JSON
	}
	return env
}
