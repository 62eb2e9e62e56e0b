// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package progress defines the synchronous progress callback threaded
// through algorithm and pipeline execution.
//
// A [Func] receives a completion fraction in [0, 1] and an optional
// message, and returns false to request cancellation. Callers turn a
// false return into [ErrInterrupted] with [Report].
//
// [Scaled] maps a callback onto a sub-range so that a pipeline can give
// each step its own slice of the overall range. [Monotonic] guarantees
// that the values a consumer sees never decrease. [Terminal] renders
// the classic "0...10...20...100 - done." line.
package progress
