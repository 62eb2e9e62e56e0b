// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"sync"
	"testing"
)

// ProgressRecorder records every progress report it receives.
type ProgressRecorder struct {
	mu       sync.Mutex
	values   []float64
	messages []string

	// CancelAt, when positive, makes the callback return false for
	// the first report at or beyond this fraction.
	CancelAt float64
}

// Func returns a progress callback that records into r. Its signature
// matches progress.Func.
func (r *ProgressRecorder) Func() func(complete float64, message string) bool {
	return func(complete float64, message string) bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.values = append(r.values, complete)
		r.messages = append(r.messages, message)
		return r.CancelAt <= 0 || complete < r.CancelAt
	}
}

// Values returns a copy of the recorded fractions.
func (r *ProgressRecorder) Values() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]float64(nil), r.values...)
}

// Last returns the last recorded fraction, or -1 when nothing was
// recorded.
func (r *ProgressRecorder) Last() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.values) == 0 {
		return -1
	}
	return r.values[len(r.values)-1]
}

// RequireMonotonic fails the test when the recorded fractions ever
// decrease or leave [0, 1].
func (r *ProgressRecorder) RequireMonotonic(t *testing.T) {
	t.Helper()
	values := r.Values()
	previous := 0.0
	for i, value := range values {
		if value < 0 || value > 1 {
			t.Fatalf("progress[%d] = %v, outside [0, 1]", i, value)
		}
		if value < previous {
			t.Fatalf("progress[%d] = %v after %v: not monotonic (all: %v)", i, value, previous, values)
		}
		previous = value
	}
}
