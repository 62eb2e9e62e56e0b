// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gdalg

import (
	"fmt"
	"strings"
)

// Quote returns value ready to be placed in a command line. Values
// containing a double quote, space, backslash or comma are wrapped in
// double quotes with backslashes and quotes escaped.
//
// Packed list values are quoted twice: each element first, then the
// comma-joined result, so that Tokenize followed by list splitting
// recovers elements that themselves contain commas.
func Quote(value string) string {
	if !strings.ContainsAny(value, "\" \\,") {
		return value
	}
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range value {
		if r == '"' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}

// Tokenize splits a command line on unquoted whitespace and removes
// one level of quoting: double-quoted sections may contain whitespace,
// and inside them a backslash escapes the next character.
func Tokenize(commandLine string) ([]string, error) {
	var (
		tokens  []string
		current strings.Builder
		inToken bool
		quoted  bool
	)
	runes := []rune(commandLine)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case quoted && r == '\\' && i+1 < len(runes):
			i++
			current.WriteRune(runes[i])
		case quoted && r == '"':
			quoted = false
		case quoted:
			current.WriteRune(r)
		case r == '"':
			quoted, inToken = true, true
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			if inToken {
				tokens = append(tokens, current.String())
				current.Reset()
				inToken = false
			}
		default:
			inToken = true
			current.WriteRune(r)
		}
	}
	if quoted {
		return nil, fmt.Errorf("unterminated quote in command line %q", commandLine)
	}
	if inToken {
		tokens = append(tokens, current.String())
	}
	return tokens, nil
}
