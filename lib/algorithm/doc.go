// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package algorithm is the command framework behind geoalg: typed,
// self-describing arguments, a tree of algorithms with command-line
// parsing and validation, content-sensitive dispatch between raster
// and vector siblings, usage rendering, and serialization of an
// unexecuted invocation into a deferred-execution descriptor.
//
// # Arguments
//
// Each [Arg] owns its value. [Arg.Set] coerces where the conversion is
// unambiguous, runs the built-in checks (choices, numeric range,
// minimum length, element count) followed by registered [Validator]
// records, and only then commits the value and runs [Action] records.
// A failed Set leaves the previous value and the explicit bit
// untouched.
//
// # Algorithms
//
// A concrete algorithm embeds [Base] and declares its arguments in its
// constructor. [ParseCommandLine] walks the command tree: every node
// either delegates to a child with the remaining tokens or resolves to
// the algorithm that consumed them. [Run] executes the resolved
// algorithm and [Finalize] releases every dataset it holds.
//
//	leaf, err := algorithm.ParseCommandLine(root, os.Args[1:])
//	if err != nil {
//	    return err
//	}
//	defer algorithm.Finalize(leaf)
//	return algorithm.Run(ctx, leaf, progress.Terminal(os.Stderr))
//
// # Datasets
//
// Dataset arguments hold a [DatasetHandle]: a name, an opened
// [dataset.Dataset], or both. Validation opens named inputs through the
// driver registry in lib/dataset, sharing one update-mode object when
// input and output name the same file.
package algorithm
