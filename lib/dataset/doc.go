// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package dataset is the in-process data model that algorithms read
// and write: reference-counted datasets holding raster bands and/or
// vector layers, plus a registry of drivers that open and create them.
//
// A [Dataset] starts with one reference. [Dataset.Reference] adds one,
// [Dataset.Release] drops one and, at zero, runs the close hooks the
// driver installed (flushing an update, releasing a lock, closing a
// connection pool).
//
// Raster bands and vector layers may be lazy: their samples or
// features are produced by a source function on first read. Pipeline
// steps use this to chain without materializing intermediate results.
//
// Built-in drivers:
//
//   - MEM: in-process datasets named mem://<id>
//   - GRC: single-file raster container (.grc), CBOR encoded with
//     optional zstd or LZ4 band compression
//   - GeoJSON: single-layer vector files (.geojson, .json)
//   - SQLite: multi-layer vector files (.gpkg, .sqlite)
//
// Other packages add drivers with [Register].
//
// [Open] keeps a process-wide table of datasets opened for update: a
// second update open of the same path shares the existing object
// instead of creating another write-capable handle. File-backed
// drivers also hold an advisory lock while open for update.
package dataset
