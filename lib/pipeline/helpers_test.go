// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/bureau-foundation/geoalg/lib/algorithm"
	"github.com/bureau-foundation/geoalg/lib/dataset"
	"github.com/bureau-foundation/geoalg/lib/progress"
	"github.com/bureau-foundation/geoalg/lib/testutil"
)

// scaleStep multiplies every sample by --factor, reporting progress in
// three increments. With negotiate set it pushes its result into the
// next step.
type scaleStep struct {
	StepBase
	negotiate bool
	factor    *algorithm.Arg
}

func newScaleStep(name string, negotiate, standalone bool) *scaleStep {
	s := &scaleStep{negotiate: negotiate}
	s.InitStep(s, name, "Scale sample values.", "/programs/"+name+".html", Config{
		Input:      dataset.Raster,
		Middle:     true,
		Standalone: standalone,
	})
	s.factor = s.AddArg("factor", 0, "Multiplier", algorithm.TypeReal).SetDefault(1.0)
	return s
}

func (s *scaleStep) CanHandleNextStep(next Step) bool { return s.negotiate }

func (s *scaleStep) RunStep(ctx context.Context, rc *RunContext) error {
	for _, complete := range []float64{0.25, 0.5, 1} {
		if err := progress.Report(rc.Progress, complete, s.Name()); err != nil {
			return err
		}
	}
	src := s.Input().Raster()
	bands := make([]*dataset.Band, len(src.Bands))
	for i, band := range src.Bands {
		samples, err := band.Read()
		if err != nil {
			return err
		}
		scaled := make([]float64, len(samples))
		for j, v := range samples {
			scaled[j] = v * s.factor.Float()
		}
		width, height := band.Size()
		bands[i] = dataset.NewBand(band.DataType, width, height, scaled)
	}
	out := dataset.New("MEM", "", dataset.Raster)
	out.SetRaster(&dataset.Grid{Width: src.Width, Height: src.Height, GeoTransform: src.GeoTransform, Bands: bands})
	defer out.Release()
	if rc.Next != nil {
		return rc.RunNext(ctx, out)
	}
	return s.SetOutput(out)
}

// reportStep ends a pipeline with a line of text instead of a dataset.
type reportStep struct {
	StepBase
}

func newReportStep() *reportStep {
	s := &reportStep{}
	s.InitStep(s, "report", "Describe the dataset.", "/programs/report.html", Config{
		Input: dataset.Raster,
		Last:  true,
	})
	s.AddOutputStringArg()
	return s
}

func (s *reportStep) RunStep(ctx context.Context, rc *RunContext) error {
	r := s.Input().Raster()
	return s.Arg(algorithm.ArgOutputString).Set(fmt.Sprintf("%dx%d, %d band(s)\n", r.Width, r.Height, len(r.Bands)))
}

// layersStep consumes vector datasets.
type layersStep struct {
	StepBase
}

func newLayersStep() *layersStep {
	s := &layersStep{}
	s.InitStep(s, "layers", "Keep layers.", "/programs/layers.html", Config{
		Input:             dataset.Vector,
		Middle:            true,
		NativelyStreaming: true,
	})
	return s
}

func (s *layersStep) RunStep(ctx context.Context, rc *RunContext) error {
	return s.SetOutput(s.Input())
}

// exportStep writes a side file named by the user.
type exportStep struct {
	StepBase
}

func newExportStep() *exportStep {
	s := &exportStep{}
	s.InitStep(s, "export", "Export a side file.", "/programs/export.html", Config{
		Input:       dataset.Raster,
		Middle:      true,
		WritesFiles: true,
	})
	return s
}

func (s *exportStep) RunStep(ctx context.Context, rc *RunContext) error {
	return s.SetOutput(s.Input())
}

func testRegistry() *algorithm.Registry {
	r := algorithm.NewRegistry()
	r.Register("read", func() algorithm.Algorithm { return NewReadStep(dataset.Raster) })
	r.Register("scale", func() algorithm.Algorithm { return newScaleStep("scale", false, false) })
	r.Register("push", func() algorithm.Algorithm { return newScaleStep("push", true, false) })
	r.Register("report", func() algorithm.Algorithm { return newReportStep() })
	r.Register("layers", func() algorithm.Algorithm { return newLayersStep() })
	r.Register("export", func() algorithm.Algorithm { return newExportStep() })
	r.Register("write", func() algorithm.Algorithm { return NewWriteStep(dataset.Raster) })
	return r
}

func testEnv() *algorithm.Env {
	return &algorithm.Env{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}
}

func newTestPipeline() *Pipeline {
	p := New("pipeline", "Process a raster dataset.", "/programs/raster_pipeline.html", dataset.Raster, testRegistry())
	p.SetCallPath([]string{"geoalg", "raster", "pipeline"})
	p.SetEnv(testEnv())
	return p
}

func parsePipeline(t *testing.T, p *Pipeline, args ...string) (algorithm.Algorithm, error) {
	t.Helper()
	return algorithm.ParseCommandLine(p, args)
}

// storeRaster stores a 2x2 single-band raster and returns its name.
func storeRaster(t *testing.T) string {
	t.Helper()
	name := "mem://" + testutil.UniqueID("raster")
	ds := dataset.New("MEM", name, dataset.Raster|dataset.Vector)
	ds.SetRaster(&dataset.Grid{
		Width: 2, Height: 2,
		GeoTransform: dataset.DefaultGeoTransform,
		Bands:        []*dataset.Band{dataset.NewBand(dataset.Float32, 2, 2, []float64{1, 2, 3, 4})},
	})
	store(t, ds)
	return name
}

// storeVector stores a dataset with one empty layer and returns its
// name.
func storeVector(t *testing.T) string {
	t.Helper()
	name := "mem://" + testutil.UniqueID("vector")
	ds := dataset.New("MEM", name, dataset.Raster|dataset.Vector)
	if err := ds.AddLayer(dataset.NewLayer("points", "Point", nil, nil)); err != nil {
		t.Fatal(err)
	}
	store(t, ds)
	return name
}

func store(t *testing.T, ds *dataset.Dataset) {
	t.Helper()
	if err := dataset.Store(ds); err != nil {
		t.Fatalf("Store: %v", err)
	}
	_ = ds.Release()
	t.Cleanup(func() { _ = dataset.Delete(ds.Name()) })
}

// outputName returns a fresh in-memory output name removed at the end
// of the test.
func outputName(t *testing.T) string {
	name := "mem://" + testutil.UniqueID("out")
	t.Cleanup(func() { _ = dataset.Delete(name) })
	return name
}

func samples(t *testing.T, ds *dataset.Dataset) []float64 {
	t.Helper()
	values, err := ds.Raster().Bands[0].Read()
	if err != nil {
		t.Fatal(err)
	}
	return values
}
