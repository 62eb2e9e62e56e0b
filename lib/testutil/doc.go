// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides helpers shared by package tests: scratch
// paths, unique names and a progress recorder.
//
// It imports no other geoalg package so any package may use it from
// internal tests without creating an import cycle.
package testutil
