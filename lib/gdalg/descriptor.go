// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gdalg

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/geoalg/lib/version"
)

// Type is the value of the "type" member of every descriptor.
const Type = "gdal_streamed_alg"

// Extension is the conventional descriptor file suffix.
const Extension = ".gdalg.json"

// Descriptor is a deferred-execution document.
type Descriptor struct {
	Type        string `json:"type"`
	CommandLine string `json:"command_line"`
	Version     string `json:"gdal_version,omitempty"`

	// RelativePaths says whether relative dataset names in the command
	// line are relative to the descriptor's directory. Absent means
	// true.
	RelativePaths *bool `json:"relative_paths_relative_to_this_file,omitempty"`
}

// New returns a descriptor for commandLine stamped with the running
// version. Relative names in commandLine are taken as relative to the
// working directory of the replaying process.
func New(commandLine string) *Descriptor {
	relative := false
	return &Descriptor{
		Type:          Type,
		CommandLine:   commandLine,
		Version:       version.Short(),
		RelativePaths: &relative,
	}
}

// RelativeToFile reports whether relative dataset names resolve
// against the descriptor's directory.
func (d *Descriptor) RelativeToFile() bool {
	return d.RelativePaths == nil || *d.RelativePaths
}

// HasExtension reports whether name ends with .gdalg.json.
func HasExtension(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), Extension)
}

// Parse strips JSONC comments and trailing commas from data, then
// decodes the descriptor. source names the document in errors.
func Parse(data []byte, source string) (*Descriptor, error) {
	var descriptor Descriptor
	if err := json.Unmarshal(jsonc.ToJSON(data), &descriptor); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", source, err)
	}
	if descriptor.Type != Type {
		return nil, fmt.Errorf("%s: type is %q, expected %q", source, descriptor.Type, Type)
	}
	if strings.TrimSpace(descriptor.CommandLine) == "" {
		return nil, fmt.Errorf("command_line missing in %s", source)
	}
	return &descriptor, nil
}

// ReadFile reads and parses a descriptor file.
func ReadFile(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(data, path)
}

// Sniff reports whether data looks like a descriptor, without fully
// decoding it.
func Sniff(data []byte) bool {
	return strings.Contains(string(data), `"`+Type+`"`)
}

// Marshal encodes the descriptor as indented JSON with a trailing
// newline.
func (d *Descriptor) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding descriptor: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteFile writes the descriptor to path, replacing any existing
// file.
func (d *Descriptor) WriteFile(path string) error {
	data, err := d.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Args splits the command line into tokens.
func (d *Descriptor) Args() ([]string, error) {
	return Tokenize(d.CommandLine)
}
