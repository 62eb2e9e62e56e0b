// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package progress

import (
	"context"
	"errors"
	"sync"
)

// Func reports progress. complete is in [0, 1]. Returning false asks
// the caller to stop as soon as possible.
type Func func(complete float64, message string) bool

// ErrInterrupted is returned by [Report] when the callback asked to
// stop.
var ErrInterrupted = errors.New("interrupted by user")

// Report calls fn and converts a false return into ErrInterrupted. A
// nil fn always succeeds.
func Report(fn Func, complete float64, message string) error {
	if fn == nil {
		return nil
	}
	if !fn(complete, message) {
		return ErrInterrupted
	}
	return nil
}

// Nop accepts every report.
func Nop(float64, string) bool { return true }

// Scaled returns a callback that maps [0, 1] onto [min, max] of
// parent. A nil parent yields nil so callers can skip reporting
// entirely.
func Scaled(parent Func, min, max float64) Func {
	if parent == nil {
		return nil
	}
	if min == 0 && max == 1 {
		return parent
	}
	return func(complete float64, message string) bool {
		return parent(min+clamp(complete)*(max-min), message)
	}
}

// Monotonic returns a callback that never forwards a value lower than
// one it already forwarded, and clamps values to [0, 1].
func Monotonic(parent Func) Func {
	if parent == nil {
		return nil
	}
	var (
		mu   sync.Mutex
		last float64
	)
	return func(complete float64, message string) bool {
		mu.Lock()
		complete = clamp(complete)
		if complete < last {
			complete = last
		}
		last = complete
		mu.Unlock()
		return parent(complete, message)
	}
}

// WithContext returns a callback that reports cancellation once ctx is
// done, in addition to whatever parent decides. A nil parent still
// yields a callback so that context cancellation is observed.
func WithContext(ctx context.Context, parent Func) Func {
	return func(complete float64, message string) bool {
		if ctx.Err() != nil {
			return false
		}
		if parent == nil {
			return true
		}
		return parent(complete, message)
	}
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
