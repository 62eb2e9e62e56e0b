// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version provides build version information for the geoalg
// binary.
//
// Four package-level variables are injected at build time via
// -ldflags -X:
//
//	go build -ldflags "-X github.com/bureau-foundation/geoalg/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// [Info] formats the --version line and [Short] is the marker written
// into deferred-execution descriptors. [NewerThanRunning] lets the
// descriptor reader warn when a descriptor comes from a newer release.
package version
