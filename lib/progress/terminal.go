// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package progress

import (
	"fmt"
	"io"
	"sync"
)

// ticks is the resolution of the terminal bar: one tick per 2.5%.
const ticks = 40

// Terminal returns a callback that draws "0...10...20...100 - done."
// on w as progress advances. Each tick is written at most once, so
// the output is suitable for logs as well as terminals.
func Terminal(w io.Writer) Func {
	var (
		mu       sync.Mutex
		lastTick = -1
		done     bool
	)
	return func(complete float64, message string) bool {
		mu.Lock()
		defer mu.Unlock()
		if done {
			return true
		}
		tick := int(clamp(complete) * ticks)
		for lastTick < tick {
			lastTick++
			if lastTick%4 == 0 {
				fmt.Fprintf(w, "%d", lastTick/4*10)
			} else {
				io.WriteString(w, ".")
			}
		}
		if tick == ticks {
			io.WriteString(w, " - done.\n")
			done = true
		}
		return true
	}
}
