// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"slices"
	"strings"
	"testing"

	"github.com/bureau-foundation/geoalg/lib/algorithm"
	"github.com/bureau-foundation/geoalg/lib/config"
	"github.com/bureau-foundation/geoalg/lib/dataset"
	"github.com/bureau-foundation/geoalg/lib/gdalg"
	"github.com/bureau-foundation/geoalg/lib/testutil"
)

func newStandaloneScale() *scaleStep {
	s := newScaleStep("scale", false, true)
	s.SetCallPath([]string{"geoalg", "raster", "scale"})
	s.SetEnv(testEnv())
	return s
}

func TestState_String(t *testing.T) {
	for state, want := range map[State]string{
		Unconfigured: "unconfigured",
		Validated:    "validated",
		Executed:     "executed",
		Finalized:    "finalized",
		State(9):     "State(9)",
	} {
		if got := state.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}

func TestStandalone_WrapsReadAndWrite(t *testing.T) {
	input := storeRaster(t)
	output := outputName(t)
	s := newStandaloneScale()
	if _, err := algorithm.ParseCommandLine(s, []string{input, output, "--factor", "3"}); err != nil {
		t.Fatal(err)
	}

	var recorder testutil.ProgressRecorder
	if err := algorithm.Run(context.Background(), s, recorder.Func()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	recorder.RequireMonotonic(t)
	if recorder.Last() != 1 {
		t.Errorf("last progress = %v, want 1", recorder.Last())
	}

	written, err := dataset.Open(output, dataset.OpenOptions{Kinds: dataset.Raster})
	if err != nil {
		t.Fatal(err)
	}
	defer written.Release()
	if got := samples(t, written); !slices.Equal(got, []float64{3, 6, 9, 12}) {
		t.Errorf("samples = %v, want [3 6 9 12]", got)
	}
	if s.OutputDataset() == nil {
		t.Error("standalone step kept no output")
	}

	if err := algorithm.Finalize(s); err != nil {
		t.Fatal(err)
	}
	if s.State() != Finalized {
		t.Errorf("State = %s, want finalized", s.State())
	}
	if s.OutputDataset() != nil {
		t.Error("output still held after Finalize")
	}
	if err := algorithm.Run(context.Background(), s, nil); err == nil {
		t.Error("finalized step ran again")
	}
}

func TestStandalone_ForwardsOverwrite(t *testing.T) {
	input := storeRaster(t)
	output := outputName(t)
	for _, args := range [][]string{
		{input, output},
		{input, output, "--overwrite", "--factor", "2"},
	} {
		s := newStandaloneScale()
		if _, err := algorithm.ParseCommandLine(s, args); err != nil {
			t.Fatalf("%q: %v", args, err)
		}
		if err := algorithm.Run(context.Background(), s, nil); err != nil {
			t.Fatalf("%q: %v", args, err)
		}
		_ = algorithm.Finalize(s)
	}

	s := newStandaloneScale()
	_, err := algorithm.ParseCommandLine(s, []string{input, output})
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("error = %v", err)
	}
}

func TestStandalone_StreamFormatKeepsResult(t *testing.T) {
	input := storeRaster(t)
	s := newStandaloneScale()
	if _, err := algorithm.ParseCommandLine(s, []string{input, algorithm.StreamedDatasetName, "--output-format", "stream", "--factor", "5"}); err != nil {
		t.Fatal(err)
	}
	defer algorithm.Finalize(s)
	if err := algorithm.Run(context.Background(), s, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := samples(t, s.OutputDataset()); !slices.Equal(got, []float64{5, 10, 15, 20}) {
		t.Errorf("samples = %v", got)
	}
	if dataset.Exists(algorithm.StreamedDatasetName) {
		t.Error("streamed output written to a file")
	}
}

func TestStandalone_StreamExecutionRequiresStreamFormat(t *testing.T) {
	input := storeRaster(t)
	output := outputName(t)
	s := newScaleStep("scale", false, true)
	env := testEnv()
	env.StreamExecution = true
	env.Config = config.Default()
	s.SetEnv(env)
	if _, err := algorithm.ParseCommandLine(s, []string{input, output}); err != nil {
		t.Fatal(err)
	}
	defer algorithm.Finalize(s)
	err := algorithm.Run(context.Background(), s, nil)
	if err == nil || !strings.Contains(err.Error(), "in streamed execution, --output-format stream should be used") {
		t.Errorf("error = %v", err)
	}
}

func TestStandalone_WritesDescriptor(t *testing.T) {
	input := storeRaster(t)
	path := testutil.TempPath(t, "scaled.gdalg.json")
	s := newStandaloneScale()
	if _, err := algorithm.ParseCommandLine(s, []string{input, path, "--factor", "2"}); err != nil {
		t.Fatal(err)
	}
	if err := algorithm.Run(context.Background(), s, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	_ = algorithm.Finalize(s)

	descriptor, err := gdalg.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "geoalg raster scale --input " + input + " --factor 2 --output-format stream streamed_dataset"
	if descriptor.CommandLine != want {
		t.Errorf("command_line = %q, want %q", descriptor.CommandLine, want)
	}
}

func TestStep_FeedRefusesExplicitInput(t *testing.T) {
	input := storeRaster(t)
	s := newScaleStep("scale", false, false)
	s.SetEnv(testEnv())
	if err := s.Arg(algorithm.ArgInput).Set(input); err != nil {
		t.Fatal(err)
	}
	if err := s.feed(nil); err != errNotFed {
		t.Errorf("feed = %v, want errNotFed", err)
	}
	_ = algorithm.Finalize(s)
}
