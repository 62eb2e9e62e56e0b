// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package algorithm

import (
	"strconv"
	"strings"

	"github.com/bureau-foundation/geoalg/lib/dataset"
	"github.com/bureau-foundation/geoalg/lib/gdalg"
)

// StreamedDatasetName is the output name written at the end of a
// descriptor command line. The replay keeps the result in memory
// under this name instead of writing it.
const StreamedDatasetName = "streamed_dataset"

// DescriptorSource is implemented by every algorithm through Base.
// Pipelines override it to describe their steps.
type DescriptorSource interface {
	// DescriptorOutput returns the descriptor file to write instead
	// of running, and whether replacing an existing file is allowed.
	// ok is false when the algorithm should run normally.
	DescriptorOutput() (name string, overwrite, ok bool)

	// DescriptorCommandLine returns the command line a descriptor
	// replays.
	DescriptorCommandLine() (string, error)
}

// DescriptorOutput is eligible when the algorithm supports streamed
// output and either --output-format is GDALG or no format is given and
// the output name ends in .gdalg.json.
func (b *Base) DescriptorOutput() (string, bool, bool) {
	if !b.streamedOutput {
		return "", false, false
	}
	output := b.Arg(ArgOutput)
	if output == nil || output.typ != TypeDataset {
		return "", false, false
	}
	name := output.Dataset().Name()
	if name == "" {
		return "", false, false
	}
	format := b.Arg(ArgOutputFormat)
	explicitFormat := format != nil && format.explicit && format.String() != ""
	switch {
	case explicitFormat && strings.EqualFold(format.String(), FormatGDALG):
	case !explicitFormat && gdalg.HasExtension(name):
	default:
		return "", false, false
	}
	return name, b.boolArg(ArgOverwrite), true
}

// DescriptorCommandLine returns the call path followed by the
// serialized arguments and the streamed output clause.
func (b *Base) DescriptorCommandLine() (string, error) {
	tokens, err := SerializeArgs(b)
	if err != nil {
		return "", err
	}
	words := append(append([]string(nil), b.callPath...), tokens...)
	words = append(words, "--"+ArgOutputFormat, FormatStream, StreamedDatasetName)
	return strings.Join(words, " "), nil
}

// Excluded from descriptors: the replay supplies its own output.
var unserializedArgs = map[string]bool{
	ArgOutput:       true,
	ArgOutputFormat: true,
	ArgUpdate:       true,
	ArgAppend:       true,
	ArgOverwrite:    true,
}

// SerializeArgs renders the explicitly set arguments of alg as
// command-line tokens. Values are quoted with [gdalg.Quote]. Lists use
// the packed form when allowed. A dataset object without a name cannot
// be serialized.
func SerializeArgs(alg Algorithm) ([]string, error) {
	b := alg.Core()
	var tokens []string
	for _, a := range b.args {
		if !a.explicit || unserializedArgs[a.name] || a.onlyForCLI || a.IsHiddenForCLI() {
			continue
		}
		option := "--" + a.name
		switch a.typ {
		case TypeBoolean:
			switch {
			case a.Bool():
				tokens = append(tokens, option)
			case a.hasDefault && a.defaultValue == true:
				tokens = append(tokens, option+"=false")
			}
		case TypeString:
			tokens = append(tokens, option, gdalg.Quote(a.String()))
		case TypeInteger:
			tokens = append(tokens, option, strconv.Itoa(a.Int()))
		case TypeReal:
			tokens = append(tokens, option, formatReal(a.Float()))
		case TypeDataset:
			name, err := serializableName(b, a, a.Dataset())
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, option, gdalg.Quote(name))
		default:
			values, err := listValues(b, a)
			if err != nil {
				return nil, err
			}
			if a.packedValuesAllowed {
				quoted := make([]string, len(values))
				for i, value := range values {
					quoted[i] = gdalg.Quote(value)
				}
				tokens = append(tokens, option, gdalg.Quote(strings.Join(quoted, ",")))
			} else {
				for _, value := range values {
					tokens = append(tokens, option, gdalg.Quote(value))
				}
			}
		}
	}
	return tokens, nil
}

func listValues(b *Base, a *Arg) ([]string, error) {
	var values []string
	switch a.typ {
	case TypeStringList:
		values = a.Strings()
	case TypeIntegerList:
		for _, v := range a.Ints() {
			values = append(values, strconv.Itoa(v))
		}
	case TypeRealList:
		for _, v := range a.Floats() {
			values = append(values, formatReal(v))
		}
	case TypeDatasetList:
		for _, h := range a.Datasets() {
			name, err := serializableName(b, a, h)
			if err != nil {
				return nil, err
			}
			values = append(values, name)
		}
	}
	return values, nil
}

func serializableName(b *Base, a *Arg, h *DatasetHandle) (string, error) {
	if h.Name() == "" {
		return "", b.Serializationf("Cannot serialize argument %s", a.name)
	}
	return h.Name(), nil
}

// writeDescriptor writes the descriptor of alg to name.
func writeDescriptor(alg Algorithm, source DescriptorSource, name string, overwrite bool) error {
	b := alg.Core()
	if dataset.Exists(name) && !overwrite {
		return b.Validationf("File '%s' already exists. Specify the --overwrite option to overwrite it.", name)
	}
	commandLine, err := source.DescriptorCommandLine()
	if err != nil {
		return b.wrap(KindSerialization, err)
	}
	if err := gdalg.New(commandLine).WriteFile(name); err != nil {
		return b.newError(KindSerialization, err)
	}
	b.Logger().Debug("descriptor written", "path", name, "command_line", commandLine)
	return nil
}
