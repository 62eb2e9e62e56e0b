// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// TempPath returns a path named name inside a per-test temporary
// directory. The file is not created.
func TempPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name)
}

// WriteFile writes content to a fresh temporary file named name and
// returns its path.
func WriteFile(t *testing.T, name, content string) string {
	t.Helper()
	path := TempPath(t, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

// Chdir changes the working directory for the duration of the test.
func Chdir(t *testing.T, directory string) {
	t.Helper()
	previous, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(directory); err != nil {
		t.Fatalf("Chdir(%s): %v", directory, err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(previous)
	})
}
