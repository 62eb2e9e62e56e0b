// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package gdalg reads and writes deferred-execution descriptors: small
// JSON documents (conventionally named *.gdalg.json) that record a
// fully-specified command line to be replayed when the descriptor is
// opened as a dataset.
//
//	{
//	  "type": "gdal_streamed_alg",
//	  "command_line": "geoalg raster pipeline ! read in.grc ! scale --factor 2",
//	  "gdal_version": "0.1.0"
//	}
//
// Descriptors are authored by tools but may be hand-edited, so [Parse]
// accepts JSONC (comments and trailing commas). [Quote] and
// [Tokenize] are inverse operations for individual command-line
// values.
package gdalg
