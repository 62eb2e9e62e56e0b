// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/bureau-foundation/geoalg/lib/algorithm"
	"github.com/bureau-foundation/geoalg/lib/config"
	"github.com/bureau-foundation/geoalg/lib/dataset"
	"github.com/bureau-foundation/geoalg/lib/testutil"
)

// northUp is the transform of the test rasters: one unit pixels with
// the top-left corner at (0, 2).
var northUp = [6]float64{0, 1, 0, 2, 0, -1}

// run executes args against a fresh command tree and returns what was
// written to stdout and stderr.
func run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	env := &algorithm.Env{Stdout: &out, Stderr: &errOut, Config: config.Default()}
	err = Run(context.Background(), env, args)
	return out.String(), errOut.String(), err
}

// mustRun is run failing the test on error.
func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	stdout, stderr, err := run(t, args...)
	if err != nil {
		t.Fatalf("%v: %v\nstderr:\n%s", args, err, stderr)
	}
	return stdout
}

// storeRaster stores a 2x2 Float32 raster holding 1, 2, 3, 4 and
// returns its name.
func storeRaster(t *testing.T) string {
	t.Helper()
	name := "mem://" + testutil.UniqueID("raster")
	ds := dataset.New("MEM", name, dataset.Raster)
	ds.SetRaster(&dataset.Grid{
		Width: 2, Height: 2,
		GeoTransform: northUp,
		Bands:        []*dataset.Band{dataset.NewBand(dataset.Float32, 2, 2, []float64{1, 2, 3, 4})},
	})
	store(t, ds)
	return name
}

// storeVector stores one "places" layer of three points and returns
// its name.
func storeVector(t *testing.T) string {
	t.Helper()
	name := "mem://" + testutil.UniqueID("vector")
	ds := dataset.New("MEM", name, dataset.Vector)
	fields := []dataset.Field{
		{Name: "name", Type: dataset.FieldString},
		{Name: "population", Type: dataset.FieldInteger},
		{Name: "region", Type: dataset.FieldString},
	}
	features := []*dataset.Feature{
		place(1, "alpha", 100, "north", 1, 1),
		place(2, "beta", 250, "south", 5, 5),
		place(3, "gamma", 40, "north", 9, 9),
	}
	if err := ds.AddLayer(dataset.NewLayer("places", "Point", fields, features)); err != nil {
		t.Fatal(err)
	}
	store(t, ds)
	return name
}

func place(id int64, name string, population float64, region string, x, y float64) *dataset.Feature {
	coordinates, _ := json.Marshal([]float64{x, y})
	return &dataset.Feature{
		ID:         id,
		Properties: map[string]any{"name": name, "population": population, "region": region},
		Geometry:   &dataset.Geometry{Type: "Point", Coordinates: coordinates},
	}
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

// open opens name read-only and releases it at the end of the test.
func open(t *testing.T, name string) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.Open(name, dataset.OpenOptions{})
	if err != nil {
		t.Fatalf("Open(%s): %v", name, err)
	}
	t.Cleanup(func() { _ = ds.Release() })
	return ds
}

func samples(t *testing.T, ds *dataset.Dataset) []float64 {
	t.Helper()
	if ds.Raster() == nil {
		t.Fatalf("%s has no raster", ds.Name())
	}
	values, err := ds.Raster().Bands[0].Read()
	if err != nil {
		t.Fatal(err)
	}
	return values
}

// featureNames returns the "name" property of every feature of the
// first layer of ds.
func featureNames(t *testing.T, ds *dataset.Dataset) []string {
	t.Helper()
	layers := ds.Layers()
	if len(layers) == 0 {
		t.Fatalf("%s has no layers", ds.Name())
	}
	features, err := layers[0].Features()
	if err != nil {
		t.Fatal(err)
	}
	names := make([]string, 0, len(features))
	for _, feature := range features {
		name, _ := feature.Properties["name"].(string)
		names = append(names, name)
	}
	return names
}
