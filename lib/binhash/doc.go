// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package binhash computes BLAKE3 digests of files, byte buffers and
// raster sample buffers.
//
// Raster and vector info use these digests to report content
// checksums that are stable across drivers: the same samples written
// to MEM and to a GRC container hash identically.
package binhash
