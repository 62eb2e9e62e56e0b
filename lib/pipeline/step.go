// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/bureau-foundation/geoalg/lib/algorithm"
	"github.com/bureau-foundation/geoalg/lib/dataset"
	"github.com/bureau-foundation/geoalg/lib/progress"
)

// AllowWritesInStream is the config option that lifts the write
// restrictions of stream execution.
const AllowWritesInStream = "ALLOW_WRITES_IN_STREAM"

// State is the lifecycle position of a step.
type State int

const (
	Unconfigured State = iota
	Validated
	Executed
	Finalized
)

func (s State) String() string {
	switch s {
	case Unconfigured:
		return "unconfigured"
	case Validated:
		return "validated"
	case Executed:
		return "executed"
	case Finalized:
		return "finalized"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Step is one stage of a pipeline. Concrete steps embed [StepBase],
// call InitStep from their constructor and implement RunStep.
type Step interface {
	algorithm.Algorithm

	// StepCore returns the embedded StepBase.
	StepCore() *StepBase

	// RunStep produces the step's output from its input, reporting
	// through rc.Progress. When rc.Next is set the step must hand its
	// result to the next step with rc.RunNext.
	RunStep(ctx context.Context, rc *RunContext) error

	// CanHandleNextStep reports whether the step can push its result
	// straight into next instead of producing an output of its own.
	// StepBase never negotiates.
	CanHandleNextStep(next Step) bool
}

// Config describes how a step composes with its neighbours.
type Config struct {
	// Input is the set of kinds accepted from the previous step.
	Input dataset.Kind

	// Output is the kind produced. Zero means the input kind.
	Output dataset.Kind

	// Positions the step may take in a pipeline.
	First, Middle, Last bool

	// NativelyStreaming steps produce a lazily evaluated dataset, so
	// they do no measurable work of their own.
	NativelyStreaming bool

	// Standalone steps are invoked directly from the command line and
	// declare positional input and output plus the write options.
	Standalone bool

	// WritesFiles marks steps that create files named by the user
	// other than through the final write.
	WritesFiles bool
}

// StepBase carries the composition rules and lifecycle of a step.
type StepBase struct {
	algorithm.Base

	self   Step
	config Config
	state  State
	input  *algorithm.Arg
	output *algorithm.DatasetHandle
}

// InitStep initializes the algorithm identity and declares the input
// argument the pipeline feeds. self is the concrete step embedding s.
func (s *StepBase) InitStep(self Step, name, description, helpURL string, config Config) {
	s.self = self
	s.config = config
	s.output = algorithm.NewDatasetHandle("")
	s.Init(name, description, helpURL)

	switch {
	case config.Standalone:
		s.input = s.AddInputDatasetArg(config.Input, true)
		s.AddOpenOptionsArg()
		s.AddInputFormatsArg()
		s.declareWriteArgs(s.OutputKind())
		s.SetSupportsStreamedOutput(true)
		s.AddValidator("output-exists", s.checkStandaloneOutput)
	case !config.First:
		s.input = s.AddInputDatasetArg(config.Input, false).SetHidden()
		s.SetPipelineStepUsage(true)
	default:
		s.SetPipelineStepUsage(true)
	}
}

// declareWriteArgs declares the options of a step that writes kind.
func (s *StepBase) declareWriteArgs(kind dataset.Kind) {
	s.AddOutputDatasetArg(kind, true)
	s.AddOutputFormatArg(dataset.CanCreateCopy, algorithm.FormatStream, algorithm.FormatGDALG)
	s.AddCreationOptionsArg()
	if kind.Has(dataset.Vector) {
		s.AddLayerCreationOptionsArg()
	}
	s.AddOverwriteArg().SetMutualExclusionGroup("overwrite-update")
	if kind.Has(dataset.Vector) {
		s.AddUpdateArg().SetMutualExclusionGroup("overwrite-update")
		s.AddAppendArg()
	}
}

// updatesOutput reports whether the output is opened for update
// instead of being created.
func (s *StepBase) updatesOutput() bool {
	update := s.Arg(algorithm.ArgUpdate)
	return update != nil && update.Bool()
}

// SetInputArg records a that the pipeline feeds, for steps that
// declare their input themselves.
func (s *StepBase) SetInputArg(a *algorithm.Arg) { s.input = a }

func (s *StepBase) StepCore() *StepBase { return s }

// CanHandleNextStep is the default: no negotiation.
func (s *StepBase) CanHandleNextStep(Step) bool { return false }

func (s *StepBase) State() State { return s.state }

func (s *StepBase) InputKinds() dataset.Kind { return s.config.Input }

// OutputKind returns the kind the step produces.
func (s *StepBase) OutputKind() dataset.Kind {
	if s.config.Output == 0 {
		return s.config.Input
	}
	return s.config.Output
}

func (s *StepBase) CanBeFirst() bool        { return s.config.First }
func (s *StepBase) CanBeMiddle() bool       { return s.config.Middle }
func (s *StepBase) CanBeLast() bool         { return s.config.Last }
func (s *StepBase) NativelyStreaming() bool { return s.config.NativelyStreaming }
func (s *StepBase) Standalone() bool        { return s.config.Standalone }
func (s *StepBase) WritesFiles() bool       { return s.config.WritesFiles }

// Input returns the dataset the step reads, or nil before it is fed.
func (s *StepBase) Input() *dataset.Dataset {
	if s.input == nil {
		return nil
	}
	return s.input.Dataset().Object()
}

// OutputDataset returns the dataset the step produced, or nil.
func (s *StepBase) OutputDataset() *dataset.Dataset { return s.output.Object() }

// SetOutput records ds as the step's result, taking a reference.
func (s *StepBase) SetOutput(ds *dataset.Dataset) error { return s.output.SetObject(ds) }

// feed hands the previous step's output to the input argument. Steps
// whose input was given explicitly do not consume it.
func (s *StepBase) feed(ds *dataset.Dataset) error {
	if s.input == nil || s.input.IsExplicitlySet() {
		return errNotFed
	}
	return s.input.Set(ds)
}

var errNotFed = fmt.Errorf("input not fed")

// validate checks the arguments once the input is known.
func (s *StepBase) validate() error {
	if s.state == Finalized {
		return s.Executionf("step has been finalized")
	}
	if err := algorithm.Validate(s.self); err != nil {
		return err
	}
	s.state = Validated
	return nil
}

// FinalizeImpl releases the produced dataset. The state is terminal.
func (s *StepBase) FinalizeImpl() error {
	s.state = Finalized
	return s.output.Close()
}

// RunImpl runs a standalone step by wrapping it between an implicit
// read and write, or runs a pipeline-mode step on its own input.
func (s *StepBase) RunImpl(ctx context.Context, pfn progress.Func) error {
	if s.state == Finalized {
		return s.Executionf("step has been finalized")
	}
	if s.config.Standalone {
		return s.runStandalone(ctx, pfn)
	}
	return runStep(ctx, s.self, &RunContext{Progress: pfn})
}

func (s *StepBase) streamOutput() bool {
	format := s.Arg(algorithm.ArgOutputFormat)
	return format != nil && strings.EqualFold(format.String(), algorithm.FormatStream)
}

// checkStandaloneOutput refuses to replace an existing output without
// --overwrite. Streamed and descriptor outputs are exempt.
func (s *StepBase) checkStandaloneOutput() error {
	if s.streamOutput() {
		return nil
	}
	if _, _, ok := s.DescriptorOutput(); ok {
		return nil
	}
	if s.updatesOutput() {
		return nil
	}
	return s.CheckOverwrite(s.Arg(algorithm.ArgOutput).Dataset().Name())
}

// runStandalone synthesizes read → s → write and runs them as one
// pipeline. Explicit arguments of s are forwarded to the synthesized
// steps that declare an argument of the same name and type. With
// --output-format stream the write is left out and s keeps its result.
func (s *StepBase) runStandalone(ctx context.Context, pfn progress.Func) error {
	env := s.Env()
	stream := s.streamOutput()
	if env.StreamExecution && !stream && !env.Config.OptionBool(AllowWritesInStream) {
		return s.Validationf("in streamed execution, --output-format stream should be used")
	}

	read := NewReadStep(s.config.Input)
	read.SetEnv(env)
	read.SetCallPath(append(append([]string(nil), s.CallPath()...), read.Name()))
	if err := forwardExplicit(s.Core(), read.Core()); err != nil {
		return s.Executionf("%w", err)
	}
	steps := []Step{read, s.self}

	if !stream {
		write := NewWriteStep(s.OutputKind())
		write.SetEnv(env)
		write.SetCallPath(append(append([]string(nil), s.CallPath()...), write.Name()))
		if err := forwardExplicit(s.Core(), write.Core()); err != nil {
			return s.Executionf("%w", err)
		}
		steps = append(steps, write)
		defer algorithm.Finalize(write)
	}
	defer algorithm.Finalize(read)

	// The read step now holds its own reference on the input.
	if err := s.input.Reset(); err != nil {
		return s.Executionf("%w", err)
	}
	for _, step := range steps {
		if step != s.self {
			if err := step.StepCore().validate(); err != nil {
				return err
			}
		}
	}

	result, _, err := run(ctx, s.Logger(), steps, pfn)
	if err != nil {
		return err
	}
	return s.SetOutput(result)
}

// forwardExplicit copies every explicitly set argument of from onto
// the visible argument of to with the same name and type.
func forwardExplicit(from, to *algorithm.Base) error {
	for _, a := range from.Args() {
		if !a.IsExplicitlySet() || a.IsOnlyForCLI() {
			continue
		}
		target := to.Arg(a.Name())
		if target == nil || target.IsHidden() || target.Type() != a.Type() {
			continue
		}
		if err := algorithm.Forward(a, target); err != nil {
			return err
		}
	}
	return nil
}
