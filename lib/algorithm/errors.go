// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package algorithm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bureau-foundation/geoalg/lib/progress"
)

// ErrorKind classifies algorithm errors so callers can map them to exit
// statuses without parsing message text.
type ErrorKind string

const (
	// KindParse: unknown option, wrong-shape value, wrong arity,
	// out-of-range or unlisted value, ambiguous positional declaration.
	KindParse ErrorKind = "parse"

	// KindValidation: missing required argument, conflicting mutually
	// exclusive arguments, unopenable dataset, incompatible adjacent
	// pipeline steps.
	KindValidation ErrorKind = "validation"

	// KindExecution: an I/O or driver failure while running.
	KindExecution ErrorKind = "execution"

	// KindCancelled: the progress callback or the context asked to stop.
	KindCancelled ErrorKind = "cancelled"

	// KindSerialization: an argument cannot be represented in a
	// descriptor, or the descriptor would overwrite an existing file.
	KindSerialization ErrorKind = "serialization"
)

// ErrCancelled is matched by errors.Is for every cancelled run.
var ErrCancelled = progress.ErrInterrupted

// Error is a categorized algorithm error. Every line of the message is
// prefixed with the algorithm name when formatted.
type Error struct {
	Kind ErrorKind

	// Name is the algorithm that reported the error.
	Name string

	// CallPath is the command words from the root to that algorithm.
	CallPath []string

	// SuppressUsage is set when the message already tells the user
	// which command to run instead, so the generic usage is not shown.
	SuppressUsage bool

	Err error
}

func (e *Error) Error() string { return prefixLines(e.Name, e.Err.Error()) }

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }

// Qualified formats the message with the full command path instead of
// the algorithm name.
func (e *Error) Qualified() string {
	if len(e.CallPath) == 0 {
		return e.Error()
	}
	return prefixLines(strings.Join(e.CallPath, " "), e.Err.Error())
}

// Is makes errors.Is(err, ErrCancelled) hold for cancelled errors whose
// cause is a context error.
func (e *Error) Is(target error) bool {
	return target == ErrCancelled && e.Kind == KindCancelled
}

func prefixLines(prefix, message string) string {
	if prefix == "" {
		return message
	}
	lines := strings.Split(message, "\n")
	for i, line := range lines {
		lines[i] = prefix + ": " + line
	}
	return strings.Join(lines, "\n")
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindExecution for foreign errors.
func KindOf(err error) ErrorKind {
	var algErr *Error
	if errors.As(err, &algErr) {
		return algErr.Kind
	}
	if isCancellation(err) {
		return KindCancelled
	}
	return KindExecution
}

// UsageSuppressed reports whether err asks for the usage text to be
// left out of the error report.
func UsageSuppressed(err error) bool {
	var algErr *Error
	return errors.As(err, &algErr) && algErr.SuppressUsage
}

func isCancellation(err error) bool {
	return errors.Is(err, progress.ErrInterrupted) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func (b *Base) newError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Name: b.name, CallPath: b.CallPath(), Err: err}
}

// Parsef returns a parse error reported by b.
func (b *Base) Parsef(format string, args ...any) *Error {
	return b.newError(KindParse, fmt.Errorf(format, args...))
}

// Validationf returns a validation error reported by b.
func (b *Base) Validationf(format string, args ...any) *Error {
	return b.newError(KindValidation, fmt.Errorf(format, args...))
}

// Executionf returns an execution error reported by b. Use %w to keep
// driver errors in the chain.
func (b *Base) Executionf(format string, args ...any) *Error {
	return b.newError(KindExecution, fmt.Errorf(format, args...))
}

// Serializationf returns a serialization error reported by b.
func (b *Base) Serializationf(format string, args ...any) *Error {
	return b.newError(KindSerialization, fmt.Errorf(format, args...))
}

// wrap attributes err to b unless it already carries an algorithm
// error, turning cancellations into KindCancelled.
func (b *Base) wrap(kind ErrorKind, err error) error {
	if err == nil {
		return nil
	}
	var algErr *Error
	if errors.As(err, &algErr) {
		return err
	}
	if isCancellation(err) {
		kind = KindCancelled
	}
	return b.newError(kind, err)
}
