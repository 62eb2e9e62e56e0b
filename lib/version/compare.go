// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Semver is a parsed MAJOR.MINOR.PATCH version. Pre-release and build
// suffixes are kept verbatim and only compared for presence: a
// pre-release sorts before the same release.
type Semver struct {
	Major, Minor, Patch int
	PreRelease          string
}

// Parse parses versions of the form "1.2.3", "1.2.3-dev" or
// "v1.2". Missing minor and patch components are zero.
func Parse(s string) (Semver, error) {
	var v Semver
	rest := strings.TrimPrefix(strings.TrimSpace(s), "v")
	if plus := strings.IndexByte(rest, '+'); plus >= 0 {
		rest = rest[:plus]
	}
	if dash := strings.IndexByte(rest, '-'); dash >= 0 {
		v.PreRelease = rest[dash+1:]
		rest = rest[:dash]
	}
	parts := strings.Split(rest, ".")
	if len(parts) == 0 || len(parts) > 3 || parts[0] == "" {
		return Semver{}, fmt.Errorf("invalid version %q", s)
	}
	fields := []*int{&v.Major, &v.Minor, &v.Patch}
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return Semver{}, fmt.Errorf("invalid version %q: component %q", s, part)
		}
		*fields[i] = n
	}
	return v, nil
}

// Compare returns -1, 0 or +1 as a is older than, equal to, or newer
// than b.
func Compare(a, b Semver) int {
	for _, pair := range [][2]int{{a.Major, b.Major}, {a.Minor, b.Minor}, {a.Patch, b.Patch}} {
		switch {
		case pair[0] < pair[1]:
			return -1
		case pair[0] > pair[1]:
			return 1
		}
	}
	switch {
	case a.PreRelease == b.PreRelease:
		return 0
	case a.PreRelease == "":
		return 1
	case b.PreRelease == "":
		return -1
	case a.PreRelease < b.PreRelease:
		return -1
	default:
		return 1
	}
}

// NewerThanRunning reports whether a version recorded in a descriptor
// was written by a newer release than the running binary. Unparseable
// versions are never considered newer.
func NewerThanRunning(recorded string) bool {
	theirs, err := Parse(recorded)
	if err != nil {
		return false
	}
	ours, err := Parse(Version)
	if err != nil {
		return false
	}
	return Compare(theirs, ours) > 0
}
