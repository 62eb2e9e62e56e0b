// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"strings"
)

// Set with -ldflags "-X github.com/bureau-foundation/geoalg/lib/version.Version=..."
// by release builds.
var (
	Version   = "0.1.0-dev"
	GitCommit = ""
	GitDirty  = ""
	BuildDate = ""
)

// Info is the --version line: the version, the build date when known,
// and the commit it was built from.
func Info() string {
	var out strings.Builder
	out.WriteString(Version)
	if BuildDate != "" {
		fmt.Fprintf(&out, ", built %s", BuildDate)
	}
	if GitCommit != "" {
		out.WriteString(" (" + GitCommit)
		if GitDirty == "true" {
			out.WriteString("-dirty")
		}
		out.WriteString(")")
	}
	return out.String()
}

// Full adds the toolchain and platform to Info, for bug reports.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s", Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Short is the bare version number recorded in deferred-execution
// descriptors and compared by [NewerThanRunning].
func Short() string {
	return Version
}
