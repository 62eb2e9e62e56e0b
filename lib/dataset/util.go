// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"slices"
	"strings"
)

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

// hasSuffixFold reports whether name ends with any of the suffixes,
// ignoring case.
func hasSuffixFold(name string, suffixes ...string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range suffixes {
		if strings.HasSuffix(lower, strings.ToLower(suffix)) {
			return true
		}
	}
	return false
}

// option returns options[key] matched case-insensitively.
func option(options map[string]string, key, fallback string) string {
	for k, v := range options {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return fallback
}
