// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package pipeline chains algorithms into a linear sequence of steps:
//
//	geoalg raster pipeline ! read in.grc ! clip --bbox 0,0,10,10 ! write out.grc
//
// A [Step] embeds [StepBase], which records where the step may appear,
// which dataset kinds it consumes and produces, and whether it is
// natively streaming (its output is evaluated lazily, so it does no
// work of its own). [Pipeline] resolves step names in an
// [algorithm.Registry], checks the composition, feeds every step the
// output of the previous one and divides progress between the steps
// that do measurable work.
//
// A step may negotiate to push its result straight into the next step
// ([Step.CanHandleNextStep]); the pair then runs as one segment, the
// producer reporting on the first half of the segment's range and the
// consumer on the second.
//
// Steps constructed as standalone are full commands: running one wraps
// it between an implicit read and write.
//
// A pipeline whose final write names a .gdalg.json file is not run:
// its steps are serialized into a deferred-execution descriptor, which
// a later pipeline (or the GDALG driver) replays in stream execution.
package pipeline
