// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/geoalg/lib/algorithm"
)

// Exit codes.
const (
	ExitFailure   = 1
	ExitUsage     = 2
	ExitCancelled = 130
)

// ExitError carries the exit code for an error that has already been
// reported, so main exits without printing it again.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit code %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode returns the exit code. main checks for this interface on
// returned errors.
func (e *ExitError) ExitCode() int { return e.Code }

// ExitCodeFor maps an error to the process exit code: parse and
// validation errors are usage errors, cancellation exits like an
// interrupted process, and everything else is a failure.
func ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	switch algorithm.KindOf(err) {
	case algorithm.KindParse, algorithm.KindValidation:
		return ExitUsage
	case algorithm.KindCancelled:
		return ExitCancelled
	}
	return ExitFailure
}
