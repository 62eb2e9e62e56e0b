// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR encoding configuration shared by the
// on-disk raster container (GRC) and anything else that persists
// binary structures.
//
// JSON is used for external interfaces: CLI output, JSON usage,
// GeoJSON, and GDALG descriptors. CBOR is used for the raster
// container, whose band payloads are opaque byte strings.
//
//	data, err := codec.Marshal(header)
//	err = codec.Unmarshal(data, &header)
//
// For streamed container sections:
//
//	encoder := codec.NewEncoder(file)
//	decoder := codec.NewDecoder(file)
//
// Types only ever written as CBOR carry `cbor` struct tags. Types
// also rendered as JSON (for example in `raster info --format json`)
// carry `json` tags, which fxamacker/cbor reads as a fallback.
package codec
