// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package algorithm

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/bureau-foundation/geoalg/lib/dataset"
	"github.com/bureau-foundation/geoalg/lib/progress"
	"github.com/bureau-foundation/geoalg/lib/testutil"
)

// testAlg is a runnable algorithm whose arguments are declared by the
// test.
type testAlg struct {
	Base
	runs int
}

func newTestAlg(name string, declare func(b *Base)) *testAlg {
	a := &testAlg{}
	a.Init(name, "Test algorithm.", "/programs/"+name+".html")
	if declare != nil {
		declare(&a.Base)
	}
	a.SetEnv(&Env{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}})
	return a
}

func (a *testAlg) RunImpl(ctx context.Context, pfn progress.Func) error {
	a.runs++
	return progress.Report(pfn, 1, "")
}

func (a *testAlg) stdout() string {
	return a.Env().Stdout.(*bytes.Buffer).String()
}

// storeRaster stores a raster-only in-memory dataset and returns its
// name.
func storeRaster(t *testing.T) string {
	t.Helper()
	name := "mem://" + testutil.UniqueID("raster")
	ds := dataset.New("MEM", name, dataset.Raster|dataset.Vector)
	ds.SetRaster(&dataset.Grid{
		Width: 2, Height: 2,
		GeoTransform: dataset.DefaultGeoTransform,
		Bands:        []*dataset.Band{dataset.NewBand(dataset.Byte, 2, 2, []float64{1, 2, 3, 4})},
	})
	storeDataset(t, ds)
	return name
}

// storeVector stores a vector-only in-memory dataset and returns its
// name.
func storeVector(t *testing.T) string {
	t.Helper()
	name := "mem://" + testutil.UniqueID("vector")
	ds := dataset.New("MEM", name, dataset.Raster|dataset.Vector)
	addLayer(t, ds)
	storeDataset(t, ds)
	return name
}

// storeMixed stores a dataset with both raster and vector content.
func storeMixed(t *testing.T) string {
	t.Helper()
	name := "mem://" + testutil.UniqueID("mixed")
	ds := dataset.New("MEM", name, dataset.Raster|dataset.Vector)
	ds.SetRaster(&dataset.Grid{
		Width: 1, Height: 1,
		GeoTransform: dataset.DefaultGeoTransform,
		Bands:        []*dataset.Band{dataset.NewBand(dataset.Byte, 1, 1, []float64{7})},
	})
	addLayer(t, ds)
	storeDataset(t, ds)
	return name
}

func addLayer(t *testing.T, ds *dataset.Dataset) {
	t.Helper()
	coordinates, _ := json.Marshal([]float64{1, 2})
	features := []*dataset.Feature{{
		ID:         1,
		Properties: map[string]any{"name": "a"},
		Geometry:   &dataset.Geometry{Type: "Point", Coordinates: coordinates},
	}}
	if err := ds.AddLayer(dataset.NewLayer("points", "Point", dataset.InferFields(features), features)); err != nil {
		t.Fatalf("AddLayer: %v", err)
	}
}

func storeDataset(t *testing.T, ds *dataset.Dataset) {
	t.Helper()
	if err := dataset.Store(ds); err != nil {
		t.Fatalf("Store: %v", err)
	}
	_ = ds.Release()
	t.Cleanup(func() { _ = dataset.Delete(ds.Name()) })
}

// countingDriver opens any name ending in .count as a small raster
// and counts the opens.
type countingDriver struct {
	opens atomic.Int32
}

func (d *countingDriver) Name() string                     { return "COUNTING" }
func (d *countingDriver) LongName() string                 { return "Open counter" }
func (d *countingDriver) Kinds() dataset.Kind              { return dataset.Raster }
func (d *countingDriver) Extensions() []string             { return []string{".count"} }
func (d *countingDriver) Capabilities() dataset.Capability { return dataset.CanOpen | dataset.CanUpdate }

func (d *countingDriver) Identify(name string) bool {
	return strings.HasSuffix(name, ".count")
}

func (d *countingDriver) Open(name string, options dataset.OpenOptions) (*dataset.Dataset, error) {
	d.opens.Add(1)
	ds := dataset.New("COUNTING", name, dataset.Raster)
	ds.SetRaster(&dataset.Grid{
		Width: 1, Height: 1,
		GeoTransform: dataset.DefaultGeoTransform,
		Bands:        []*dataset.Band{dataset.NewBand(dataset.Byte, 1, 1, []float64{0})},
	})
	return ds, nil
}

func (d *countingDriver) CreateCopy(name string, src *dataset.Dataset, options dataset.CreateOptions) (*dataset.Dataset, error) {
	return nil, nil
}

func registerCountingDriver(t *testing.T) *countingDriver {
	t.Helper()
	driver := &countingDriver{}
	dataset.Register(driver)
	return driver
}
