// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli holds the process-level plumbing of the geoalg command:
// general options that precede the command name, the command logger,
// the algorithm environment and the mapping of algorithm errors to
// exit codes.
//
// General options are parsed with pflag and must come before the
// first command word:
//
//	geoalg --debug --config GRC_DEFAULT_COMPRESS=LZ4 raster convert in.grc out.grc
//
// Everything from the command word on is handed to the algorithm
// tree untouched.
package cli
