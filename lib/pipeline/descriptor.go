// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/bureau-foundation/geoalg/lib/algorithm"
	"github.com/bureau-foundation/geoalg/lib/dataset"
	"github.com/bureau-foundation/geoalg/lib/gdalg"
)

// descriptorReference reports whether tokens name a descriptor file
// instead of spelling out steps: no separator, and a first token that
// is a .json file name. The remaining tokens are returned as trailing.
func descriptorReference(tokens []string) (path string, trailing []string, ok bool) {
	if len(tokens) == 0 || slices.ContainsFunc(tokens, isSeparator) {
		return "", nil, false
	}
	first := tokens[0]
	if strings.HasPrefix(first, "-") || !strings.HasSuffix(strings.ToLower(first), ".json") {
		return "", nil, false
	}
	return first, tokens[1:], true
}

// loadDescriptor returns the step tokens replayed by the descriptor at
// path. The "geoalg [raster|vector] pipeline" prefix and the streamed
// output clause are dropped. Trailing tokens are appended to the last
// step, after adding a write step when the last one cannot end a
// pipeline. Relative names then resolve against the descriptor's
// directory when it says so.
func (p *Pipeline) loadDescriptor(path string, trailing []string) ([]string, error) {
	env := p.Env()
	resolved := env.ResolveName(path)
	descriptor, err := gdalg.ReadFile(resolved)
	if err != nil {
		return nil, p.Validationf("%w", err)
	}
	tokens, err := descriptor.Args()
	if err != nil {
		return nil, p.Validationf("%s: %w", path, err)
	}
	tokens, ok := stripPipelinePrefix(tokens)
	if !ok {
		return nil, p.Validationf("%s does not describe a pipeline: %s", path, descriptor.CommandLine)
	}
	tokens = removeStreamClause(tokens)

	if len(trailing) > 0 {
		groups := splitSteps(tokens)
		if len(groups) > 0 && len(groups[len(groups)-1]) > 0 {
			lastStep, err := p.resolveStep(groups[len(groups)-1][0], dataset.Raster|dataset.Vector)
			if err == nil && !lastStep.StepCore().CanBeLast() {
				tokens = append(tokens, "!", "write")
			}
		}
		tokens = append(tokens, trailing...)
	}

	if descriptor.RelativeToFile() {
		replay := *env
		replay.ReferenceDir = filepath.Dir(resolved)
		p.SetEnv(&replay)
	}
	p.Logger().Debug("pipeline loaded from descriptor", "path", resolved, "command_line", descriptor.CommandLine)
	return tokens, nil
}

// stripPipelinePrefix removes the program name, an optional kind
// word and "pipeline" from a descriptor command line.
func stripPipelinePrefix(tokens []string) ([]string, bool) {
	if len(tokens) < 2 {
		return nil, false
	}
	rest := tokens[1:]
	if rest[0] == "raster" || rest[0] == "vector" {
		rest = rest[1:]
	}
	if len(rest) == 0 || rest[0] != "pipeline" {
		return nil, false
	}
	return rest[1:], true
}

// removeStreamClause drops the tokens that direct the result to the
// in-memory stream, wherever they appear.
func removeStreamClause(tokens []string) []string {
	formatOptions := []string{"--" + algorithm.ArgOutputFormat, "-f", "--of", "--format"}
	var out []string
	for i := 0; i < len(tokens); i++ {
		token := tokens[i]
		switch {
		case slices.Contains(formatOptions, token) && i+1 < len(tokens) && strings.EqualFold(tokens[i+1], algorithm.FormatStream):
			i++
		case strings.EqualFold(token, "--"+algorithm.ArgOutputFormat+"="+algorithm.FormatStream):
		case token == "--"+algorithm.ArgOutput+"="+algorithm.StreamedDatasetName:
		case token == "--"+algorithm.ArgOutput && i+1 < len(tokens) && tokens[i+1] == algorithm.StreamedDatasetName:
			i++
		case token == algorithm.StreamedDatasetName:
		default:
			out = append(out, token)
		}
	}
	return out
}
