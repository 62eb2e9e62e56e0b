// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"math"
	"slices"
	"strings"
	"testing"

	"github.com/bureau-foundation/geoalg/lib/algorithm"
	"github.com/bureau-foundation/geoalg/lib/config"
	"github.com/bureau-foundation/geoalg/lib/dataset"
	"github.com/bureau-foundation/geoalg/lib/gdalg"
	"github.com/bureau-foundation/geoalg/lib/testutil"
)

func TestPipeline_NegotiatedPairShareOneSegment(t *testing.T) {
	input := storeRaster(t)
	output := outputName(t)
	p := newTestPipeline()
	if _, err := parsePipeline(t, p, "read", input, "!", "push", "--factor", "2", "!", "scale", "--factor", "3", "!", "write", output); err != nil {
		t.Fatal(err)
	}
	defer algorithm.Finalize(p)

	var recorder testutil.ProgressRecorder
	if err := algorithm.Run(context.Background(), p, recorder.Func()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	recorder.RequireMonotonic(t)
	if recorder.Last() != 1 {
		t.Errorf("last progress = %v, want 1", recorder.Last())
	}

	// read does no work; push+scale share the first half, write the
	// second.
	want := []float64{0.0625, 0.125, 0.25, 0.3125, 0.375, 0.5}
	values := recorder.Values()
	if len(values) < len(want) {
		t.Fatalf("progress = %v", values)
	}
	for i, w := range want {
		if math.Abs(values[i]-w) > 1e-9 {
			t.Errorf("progress[%d] = %v, want %v (all: %v)", i, values[i], w, values)
		}
	}

	if got := samples(t, p.OutputDataset()); !slices.Equal(got, []float64{6, 12, 18, 24}) {
		t.Errorf("samples = %v, want [6 12 18 24]", got)
	}
	if !dataset.Exists(output) {
		t.Errorf("%s not written", output)
	}
}

func TestPipeline_ProducerFeedingWriteGetsFullRange(t *testing.T) {
	input := storeRaster(t)
	output := outputName(t)
	p := newTestPipeline()
	if _, err := parsePipeline(t, p, "read", input, "!", "push", "--factor", "2", "!", "write", output); err != nil {
		t.Fatal(err)
	}
	defer algorithm.Finalize(p)

	var recorder testutil.ProgressRecorder
	if err := algorithm.Run(context.Background(), p, recorder.Func()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	recorder.RequireMonotonic(t)

	want := []float64{0.25, 0.5, 1}
	values := recorder.Values()
	if len(values) < len(want) {
		t.Fatalf("progress = %v", values)
	}
	for i, w := range want {
		if math.Abs(values[i]-w) > 1e-9 {
			t.Errorf("progress[%d] = %v, want %v (all: %v)", i, values[i], w, values)
		}
	}
	for _, v := range values[len(want):] {
		if v != 1 {
			t.Errorf("progress after the producer finished = %v, want 1 (all: %v)", v, values)
		}
	}
	if !dataset.Exists(output) {
		t.Errorf("%s not written", output)
	}
}

func TestPipeline_NoNegotiationWithStreamedWrite(t *testing.T) {
	steps := []Step{NewReadStep(dataset.Raster), newScaleStep("push", true, false), NewWriteStep(dataset.Raster)}
	if err := steps[2].Core().Arg(algorithm.ArgOutputFormat).Set(algorithm.FormatStream); err != nil {
		t.Fatal(err)
	}
	segments := plan(algorithm.DefaultEnv().Logger, steps)
	if len(segments) != 3 {
		t.Errorf("segments = %d, want 3", len(segments))
	}
}

func TestPipeline_WriteRefusesExistingOutput(t *testing.T) {
	input := storeRaster(t)
	output := outputName(t)

	p := newTestPipeline()
	if _, err := parsePipeline(t, p, "read", input, "!", "write", output); err != nil {
		t.Fatal(err)
	}
	if err := algorithm.Run(context.Background(), p, nil); err != nil {
		t.Fatalf("first run: %v", err)
	}
	_ = algorithm.Finalize(p)

	p = newTestPipeline()
	_, err := parsePipeline(t, p, "read", input, "!", "write", output)
	want := "File '" + output + "' already exists. Specify the --overwrite option to overwrite it."
	if err == nil || !strings.HasSuffix(err.Error(), want) {
		t.Fatalf("error = %v, want suffix %q", err, want)
	}
	if algorithm.KindOf(err) != algorithm.KindValidation {
		t.Errorf("KindOf = %s, want validation", algorithm.KindOf(err))
	}

	p = newTestPipeline()
	if _, err := parsePipeline(t, p, "read", input, "!", "write", output, "--overwrite"); err != nil {
		t.Fatalf("with --overwrite: %v", err)
	}
	if err := algorithm.Run(context.Background(), p, nil); err != nil {
		t.Fatalf("run with --overwrite: %v", err)
	}
	_ = algorithm.Finalize(p)
}

func TestPipeline_CompositionErrors(t *testing.T) {
	input := storeRaster(t)
	output := outputName(t)
	for _, test := range []struct {
		name string
		args []string
		want string
	}{
		{"single step", []string{"read", input}, "At least 2 steps must be provided"},
		{"write first", []string{"write", output, "!", "read", input}, "First step should be 'read'"},
		{"read in the middle", []string{"read", input, "!", "read", input, "!", "write", output}, "Only first step can be 'read'"},
		{"write in the middle", []string{"read", input, "!", "write", output, "!", "write", output}, "Only last step can be 'write'"},
		{"no final write", []string{"read", input, "!", "scale"}, "Last step should be 'report' or 'write'"},
		{"unknown step", []string{"read", input, "!", "scael", "!", "write", output}, "unknown step name: scael. Do you mean 'scale'?"},
		{"kind mismatch", []string{"read", input, "!", "layers", "!", "write", output},
			"Step 'layers' expects a vector input dataset, but previous step 'read' produces a raster dataset."},
		{"missing name", []string{"read", input, "!", "!", "write", output}, "Step nr 1 is missing a step name"},
	} {
		t.Run(test.name, func(t *testing.T) {
			_, err := parsePipeline(t, newTestPipeline(), test.args...)
			if err == nil || !strings.Contains(err.Error(), test.want) {
				t.Errorf("error = %v, want %q", err, test.want)
			}
		})
	}
}

func TestPipeline_SeparatorsAndLeadingOptions(t *testing.T) {
	input := storeRaster(t)
	output := outputName(t)
	p := newTestPipeline()
	if _, err := parsePipeline(t, p, "--progress", "!", "read", input, "|", "scale", "--factor", "2", "!", "write", output); err != nil {
		t.Fatal(err)
	}
	defer algorithm.Finalize(p)
	if !p.Arg(algorithm.ArgProgress).Bool() {
		t.Error("--progress not taken by the pipeline")
	}
	var names []string
	for _, step := range p.Steps() {
		names = append(names, step.Core().Name())
	}
	if !slices.Equal(names, []string{"read", "scale", "write"}) {
		t.Errorf("steps = %q", names)
	}
	if got := strings.Join(p.Steps()[1].Core().CallPath(), " "); got != "geoalg raster pipeline scale" {
		t.Errorf("CallPath = %q", got)
	}
}

func TestPipeline_PipelineArgumentAsString(t *testing.T) {
	input := storeRaster(t)
	output := outputName(t)
	p := newTestPipeline()
	if err := p.Arg(ArgPipeline).Set("read " + input + " ! scale --factor 4 ! write " + output); err != nil {
		t.Fatal(err)
	}
	if err := algorithm.Run(context.Background(), p, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	defer algorithm.Finalize(p)
	if got := samples(t, p.OutputDataset()); !slices.Equal(got, []float64{4, 8, 12, 16}) {
		t.Errorf("samples = %v", got)
	}

	p = newTestPipeline()
	err := algorithm.Run(context.Background(), p, nil)
	if err == nil || !strings.Contains(err.Error(), "'pipeline' argument not set") {
		t.Errorf("error = %v", err)
	}
}

func TestPipeline_OutputStringStep(t *testing.T) {
	input := storeRaster(t)
	p := newTestPipeline()
	if _, err := parsePipeline(t, p, "read", input, "!", "report"); err != nil {
		t.Fatal(err)
	}
	defer algorithm.Finalize(p)
	if err := algorithm.Run(context.Background(), p, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := p.OutputString(); got != "2x2, 1 band(s)\n" {
		t.Errorf("OutputString = %q", got)
	}
}

func TestPipeline_ExplicitInputOnLaterStep(t *testing.T) {
	input := storeRaster(t)
	output := outputName(t)
	p := newTestPipeline()
	if _, err := parsePipeline(t, p, "read", input, "!", "scale", "--input", input, "!", "write", output); err != nil {
		t.Fatal(err)
	}
	defer algorithm.Finalize(p)
	err := algorithm.Run(context.Background(), p, nil)
	want := "Step nr 1 (scale) does not use input dataset from previous step"
	if err == nil || !strings.Contains(err.Error(), want) {
		t.Errorf("error = %v, want %q", err, want)
	}
}

func TestPipeline_CancellationStopsAndFinalizes(t *testing.T) {
	input := storeRaster(t)
	output := outputName(t)
	p := newTestPipeline()
	if _, err := parsePipeline(t, p, "read", input, "!", "scale", "!", "write", output); err != nil {
		t.Fatal(err)
	}
	recorder := testutil.ProgressRecorder{CancelAt: 0.3}
	err := algorithm.Run(context.Background(), p, recorder.Func())
	if !errors.Is(err, algorithm.ErrCancelled) {
		t.Fatalf("error = %v, want cancellation", err)
	}
	if algorithm.KindOf(err) != algorithm.KindCancelled {
		t.Errorf("KindOf = %s, want cancelled", algorithm.KindOf(err))
	}
	if dataset.Exists(output) {
		t.Error("write ran after cancellation")
	}

	if err := algorithm.Finalize(p); err != nil {
		t.Fatal(err)
	}
	for _, step := range p.Steps() {
		if step.StepCore().State() != Finalized {
			t.Errorf("step %s state = %s, want finalized", step.Core().Name(), step.StepCore().State())
		}
	}
	if p.Steps()[0].StepCore().Input() != nil {
		t.Error("read step still holds its input after Finalize")
	}
}

func TestPipeline_StepHelp(t *testing.T) {
	input := storeRaster(t)
	p := newTestPipeline()
	leaf, err := parsePipeline(t, p, "read", input, "!", "scale", "--help")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := leaf.(*scaleStep); !ok {
		t.Fatalf("leaf = %T, want the scale step", leaf)
	}
	if err := algorithm.Run(context.Background(), leaf, nil); err != nil {
		t.Fatal(err)
	}
	stdout := p.Env().Stdout.(*bytes.Buffer).String()
	if !strings.HasPrefix(stdout, "* geoalg raster pipeline scale [OPTIONS]") {
		t.Errorf("usage = %q", stdout)
	}
}

func TestPipeline_Usage(t *testing.T) {
	usage := newTestPipeline().Usage(false)
	for _, want := range []string{
		"Usage: geoalg raster pipeline [OPTIONS] <PIPELINE>",
		"<PIPELINE> is of the form: read [READ-OPTIONS] ( ! <STEP-NAME> [STEP-OPTIONS] )* ! report|write [WRITE-OPTIONS]",
		"Potential steps are:",
		"* read [OPTIONS] <INPUT>",
		"* write [OPTIONS] <OUTPUT>",
	} {
		if !strings.Contains(usage, want) {
			t.Errorf("usage lacks %q:\n%s", want, usage)
		}
	}

	document := algorithm.BuildUsageDocument(newTestPipeline())
	if len(document.PipelineAlgorithms) != 7 {
		t.Errorf("pipeline_algorithms = %d entries, want 7", len(document.PipelineAlgorithms))
	}
}

func TestPipeline_DescriptorRoundTrip(t *testing.T) {
	input := storeRaster(t)
	path := testutil.TempPath(t, "chain.gdalg.json")

	p := newTestPipeline()
	if _, err := parsePipeline(t, p, "read", input, "!", "scale", "--factor", "2", "!", "write", path); err != nil {
		t.Fatal(err)
	}
	if err := algorithm.Run(context.Background(), p, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	_ = algorithm.Finalize(p)

	descriptor, err := gdalg.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "geoalg raster pipeline ! read --input " + input + " ! scale --factor 2"
	if descriptor.CommandLine != want {
		t.Errorf("command_line = %q, want %q", descriptor.CommandLine, want)
	}
	if descriptor.RelativeToFile() {
		t.Error("descriptor resolves names against its own directory")
	}

	output := outputName(t)
	replay := newTestPipeline()
	if _, err := parsePipeline(t, replay, path, output); err != nil {
		t.Fatalf("replay parse: %v", err)
	}
	defer algorithm.Finalize(replay)
	var names []string
	for _, step := range replay.Steps() {
		names = append(names, step.Core().Name())
	}
	if !slices.Equal(names, []string{"read", "scale", "write"}) {
		t.Errorf("replayed steps = %q", names)
	}
	if err := algorithm.Run(context.Background(), replay, nil); err != nil {
		t.Fatalf("replay run: %v", err)
	}
	if got := samples(t, replay.OutputDataset()); !slices.Equal(got, []float64{2, 4, 6, 8}) {
		t.Errorf("samples = %v", got)
	}
}

func TestPipeline_DescriptorWithStreamClause(t *testing.T) {
	input := storeRaster(t)
	path := testutil.WriteFile(t, "streamed.gdalg.json", `{
	  // written by hand
	  "type": "gdal_streamed_alg",
	  "command_line": "geoalg raster pipeline ! read `+input+` ! write --output-format stream streamed_dataset",
	}`)
	output := outputName(t)
	p := newTestPipeline()
	if _, err := parsePipeline(t, p, path, output, "--overwrite"); err != nil {
		t.Fatalf("parse: %v", err)
	}
	defer algorithm.Finalize(p)
	write := p.Steps()[len(p.Steps())-1]
	if got := write.Core().Arg(algorithm.ArgOutput).Dataset().Name(); got != output {
		t.Errorf("write output = %q, want %q", got, output)
	}
	if write.Core().Arg(algorithm.ArgOutputFormat).IsExplicitlySet() {
		t.Error("stream format kept from the descriptor")
	}
	if !write.Core().Arg(algorithm.ArgOverwrite).Bool() {
		t.Error("trailing --overwrite not given to write")
	}
}

func TestPipeline_StreamExecutionGuard(t *testing.T) {
	input := storeRaster(t)
	output := outputName(t)

	newStreamPipeline := func(allow bool) *Pipeline {
		env := testEnv()
		env.StreamExecution = true
		env.Config = config.Default()
		if allow {
			env.Config.SetOption(AllowWritesInStream, "YES")
		}
		p := New("pipeline", "Process a raster dataset.", "/programs/raster_pipeline.html", dataset.Raster, testRegistry())
		p.SetEnv(env)
		return p
	}

	p := newStreamPipeline(false)
	if _, err := parsePipeline(t, p, "read", input, "!", "write", output); err != nil {
		t.Fatal(err)
	}
	err := algorithm.Run(context.Background(), p, nil)
	if err == nil || !strings.Contains(err.Error(), "in streamed execution, --output-format stream should be used") {
		t.Errorf("error = %v", err)
	}
	_ = algorithm.Finalize(p)

	p = newStreamPipeline(false)
	if _, err := parsePipeline(t, p, "read", input, "!", "export"); err != nil {
		t.Fatal(err)
	}
	err = algorithm.Run(context.Background(), p, nil)
	want := "Step 'export' not allowed in stream execution, unless the ALLOW_WRITES_IN_STREAM configuration option is set."
	if err == nil || !strings.Contains(err.Error(), want) {
		t.Errorf("error = %v", err)
	}
	_ = algorithm.Finalize(p)

	p = newStreamPipeline(false)
	if _, err := parsePipeline(t, p, "read", input, "!", "scale", "--factor", "2"); err != nil {
		t.Fatalf("pipeline without write: %v", err)
	}
	if err := algorithm.Run(context.Background(), p, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := samples(t, p.OutputDataset()); !slices.Equal(got, []float64{2, 4, 6, 8}) {
		t.Errorf("samples = %v", got)
	}
	_ = algorithm.Finalize(p)

	p = newStreamPipeline(true)
	if _, err := parsePipeline(t, p, "read", input, "!", "write", output); err != nil {
		t.Fatal(err)
	}
	if err := algorithm.Run(context.Background(), p, nil); err != nil {
		t.Errorf("with %s: %v", AllowWritesInStream, err)
	}
	_ = algorithm.Finalize(p)
}

func TestPipeline_GenericResolvesByContent(t *testing.T) {
	registry := algorithm.NewRegistry()
	registry.Register("read", func() algorithm.Algorithm { return NewReadStep(dataset.Raster | dataset.Vector) })
	registry.Register("scale", func() algorithm.Algorithm { return newScaleStep("scale", false, false) })
	registry.Register("layers", func() algorithm.Algorithm { return newLayersStep() })
	registry.Register("write-raster", func() algorithm.Algorithm { return NewWriteStep(dataset.Raster) })
	registry.Register("write-vector", func() algorithm.Algorithm { return NewWriteStep(dataset.Vector) })
	newGeneric := func() *Pipeline {
		p := New("pipeline", "Process a dataset.", "/programs/pipeline.html", dataset.Raster|dataset.Vector, registry)
		p.SetCallPath([]string{"geoalg", "pipeline"})
		p.SetEnv(testEnv())
		return p
	}

	vector := storeVector(t)
	output := outputName(t)
	p := newGeneric()
	if _, err := parsePipeline(t, p, "read", vector, "!", "layers", "!", "write", output); err != nil {
		t.Fatal(err)
	}
	write := p.Steps()[2].StepCore()
	if write.InputKinds() != dataset.Vector {
		t.Errorf("write resolved for %s, want vector", write.InputKinds())
	}
	if err := algorithm.Run(context.Background(), p, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	_ = algorithm.Finalize(p)

	_, err := parsePipeline(t, newGeneric(), "read", vector, "!", "scale", "!", "write", outputName(t))
	want := "Step 'scale' expects a raster input dataset, but previous step 'read' produces a vector dataset."
	if err == nil || !strings.Contains(err.Error(), want) {
		t.Errorf("error = %v, want %q", err, want)
	}
}
