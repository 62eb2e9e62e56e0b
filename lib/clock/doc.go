// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Production code holds a Clock instead of calling time.Now directly.
// Real() returns the standard library clock; Fake() returns a clock
// that moves only when the test says so:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	c.AutoAdvance(time.Second)
//	start := c.Now()
//	elapsed := clock.Since(c, start) // one second
package clock
