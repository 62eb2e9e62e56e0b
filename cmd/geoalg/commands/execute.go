// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/bureau-foundation/geoalg/cmd/geoalg/cli"
	"github.com/bureau-foundation/geoalg/lib/algorithm"
	"github.com/bureau-foundation/geoalg/lib/dataset"
	"github.com/bureau-foundation/geoalg/lib/progress"
	"github.com/bureau-foundation/geoalg/lib/version"
)

// Execute runs one command line. Errors are reported on stderr before
// returning, so the returned error only carries the exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	general, rest, err := cli.ParseGeneral(args)
	if err != nil {
		return report(stderr, &cli.ExitError{Code: cli.ExitUsage, Err: err})
	}
	cfg, err := general.LoadConfig()
	if err != nil {
		return report(stderr, &cli.ExitError{Code: cli.ExitFailure, Err: err})
	}
	logger, err := cli.NewCommandLogger(stderr, cfg.Log, general.Debug)
	if err != nil {
		return report(stderr, &cli.ExitError{Code: cli.ExitFailure, Err: err})
	}
	return Run(ctx, cli.NewEnv(cfg, logger, stdout, stderr), rest)
}

// Run parses args against a fresh command tree and executes the
// selected algorithm in env.
func Run(ctx context.Context, env *algorithm.Env, args []string) (err error) {
	root := NewRoot()
	root.Core().SetEnv(env)

	leaf, err := algorithm.ParseCommandLine(root, args)
	defer func() {
		if finalizeErr := algorithm.Finalize(leaf); finalizeErr != nil && err == nil {
			err = report(env.Stderr, finalizeErr)
		}
	}()
	if err != nil {
		reported := report(env.Stderr, err)
		if !algorithm.UsageSuppressed(err) {
			fmt.Fprint(env.Stderr, "\n"+algorithm.Usage(leaf, true))
		}
		return reported
	}

	switch leaf.Core().SpecialAction() {
	case algorithm.SpecialVersion:
		_, err := fmt.Fprintf(env.Stdout, "%s %s\n", ProgramName, version.Info())
		return err
	case algorithm.SpecialDrivers:
		return writeDrivers(env)
	}

	if err := algorithm.Run(ctx, leaf, progressFor(leaf, env)); err != nil {
		return report(env.Stderr, err)
	}
	if text := leaf.Core().OutputString(); text != "" {
		if _, err := io.WriteString(env.Stdout, text); err != nil {
			return err
		}
	}
	return nil
}

// progressFor returns a terminal progress bar when the algorithm was
// asked for one and not silenced.
func progressFor(alg algorithm.Algorithm, env *algorithm.Env) progress.Func {
	b := alg.Core()
	requested := b.Arg("progress")
	if requested == nil || !requested.Bool() {
		return nil
	}
	if quiet := b.Arg("quiet"); quiet != nil && quiet.Bool() {
		return nil
	}
	return progress.Terminal(env.Stderr)
}

func writeDrivers(env *algorithm.Env) error {
	document, err := json.MarshalIndent(dataset.Describe(), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding driver list: %w", err)
	}
	document = append(document, '\n')
	if env.RenderJSON != nil {
		return env.RenderJSON(env.Stdout, document)
	}
	_, err = env.Stdout.Write(document)
	return err
}

// report prints err on w and returns it. Errors carrying an exit code
// are returned as they are; others are wrapped with the code their
// kind maps to.
func report(w io.Writer, err error) error {
	fmt.Fprintf(w, "ERROR: %v\n", err)
	var exit *cli.ExitError
	if errors.As(err, &exit) {
		return err
	}
	return &cli.ExitError{Code: cli.ExitCodeFor(err), Err: err}
}
