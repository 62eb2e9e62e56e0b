// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"

	"github.com/bureau-foundation/geoalg/lib/algorithm"
	"github.com/bureau-foundation/geoalg/lib/dataset"
	"github.com/bureau-foundation/geoalg/lib/progress"
)

// ReadStep opens the pipeline input. Its output is the opened dataset
// itself, so it does no work at run time.
type ReadStep struct {
	StepBase
}

// NewReadStep returns a read step accepting kinds.
func NewReadStep(kinds dataset.Kind) *ReadStep {
	s := &ReadStep{}
	s.InitStep(s, "read", "Read a dataset.", "/programs/pipeline.html#read", Config{
		Input:             kinds,
		First:             true,
		NativelyStreaming: true,
	})
	s.SetInputArg(s.AddInputDatasetArg(kinds, true))
	s.AddOpenOptionsArg()
	s.AddInputFormatsArg()
	return s
}

func (s *ReadStep) RunStep(ctx context.Context, rc *RunContext) error {
	return s.SetOutput(s.Input())
}

// WriteStep writes its input with a driver, or passes it through
// unchanged with --output-format stream.
type WriteStep struct {
	StepBase
}

// NewWriteStep returns a write step for kinds.
func NewWriteStep(kinds dataset.Kind) *WriteStep {
	s := &WriteStep{}
	s.InitStep(s, "write", "Write a dataset.", "/programs/pipeline.html#write", Config{
		Input:       kinds,
		Last:        true,
		WritesFiles: true,
	})
	s.declareWriteArgs(kinds)
	s.SetSupportsStreamedOutput(true)
	s.AddValidator("output-exists", s.checkStandaloneOutput)
	return s
}

// IsStreamOutput reports whether the step passes its input through
// instead of writing it.
func (s *WriteStep) IsStreamOutput() bool { return s.streamOutput() }

func (s *WriteStep) RunStep(ctx context.Context, rc *RunContext) error {
	src := s.Input()
	if s.streamOutput() {
		return s.SetOutput(src)
	}

	if s.updatesOutput() {
		return s.writeIntoExisting(src, rc)
	}

	env := s.Env()
	output := s.Arg(algorithm.ArgOutput).Dataset()
	name := env.ResolveName(output.Name())
	if s.Arg(algorithm.ArgOverwrite).Bool() {
		if err := dataset.Delete(name); err != nil {
			return err
		}
	}

	format := s.Arg(algorithm.ArgOutputFormat).String()
	options := dataset.CreateOptions{
		Options:  algorithm.KeyValues(s.Arg("creation-option").Strings()),
		Config:   env.Config.Options,
		Progress: rc.Progress,
		Logger:   s.Logger(),
	}
	if lco := s.Arg("layer-creation-option"); lco != nil {
		options.LayerOptions = algorithm.KeyValues(lco.Strings())
	}

	written, err := dataset.CreateCopy(format, name, src, options)
	if err != nil {
		return err
	}
	defer written.Release()
	if err := output.SetObject(written); err != nil {
		return err
	}
	return s.SetOutput(written)
}

// writeIntoExisting adds the layers of src to the output opened for
// update. A layer already present is an error unless --append is set,
// in which case the features are appended with fresh IDs. The driver
// flushes the output when its last reference is released.
func (s *WriteStep) writeIntoExisting(src *dataset.Dataset, rc *RunContext) error {
	out := s.Arg(algorithm.ArgOutput).Dataset().Object()
	if out == nil {
		return s.Executionf("output dataset was not opened for update")
	}
	if out == src {
		s.Logger().Debug("input and output are the same dataset", "name", out.Name())
		return s.SetOutput(out)
	}

	appending := s.Arg(algorithm.ArgAppend).Bool()
	layers := src.Layers()
	for i, layer := range layers {
		features, err := layer.Features()
		if err != nil {
			return err
		}
		copied := make([]*dataset.Feature, len(features))
		for j, feature := range features {
			copied[j] = feature.Clone()
			copied[j].ID = 0
		}

		existing := out.Layer(layer.Name)
		switch {
		case existing == nil:
			fields := append([]dataset.Field(nil), layer.Fields...)
			if err := out.AddLayer(dataset.NewLayer(layer.Name, layer.GeometryType, fields, nil)); err != nil {
				return err
			}
			if err := out.Layer(layer.Name).Append(copied...); err != nil {
				return err
			}
		case appending:
			if err := existing.Append(copied...); err != nil {
				return err
			}
		default:
			return s.Validationf("Layer '%s' already exists in '%s'. Specify the --append option to append features to it.", layer.Name, out.Name())
		}
		if err := progress.Report(rc.Progress, float64(i+1)/float64(len(layers)), layer.Name); err != nil {
			return err
		}
	}
	out.MarkModified()
	s.Logger().Debug("updated existing dataset", "name", out.Name(), "layers", len(layers), "append", appending)
	return s.SetOutput(out)
}

// isFileWrite reports whether step is a write whose output is an
// actual file, as opposed to a streamed pass-through.
func isFileWrite(step Step) bool {
	write, ok := step.(*WriteStep)
	return ok && !write.IsStreamOutput()
}
