// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/bureau-foundation/geoalg/lib/dataset"
	"github.com/bureau-foundation/geoalg/lib/gdalg"
	"github.com/bureau-foundation/geoalg/lib/testutil"
)

func TestGDALG_WriteThenReplay(t *testing.T) {
	input := storeRaster(t)
	descriptor := testutil.TempPath(t, "scaled.gdalg.json")
	mustRun(t, "raster", "scale", "--factor", "2", input, descriptor)

	d, err := gdalg.ReadFile(descriptor)
	if err != nil {
		t.Fatal(err)
	}
	want := "geoalg raster scale --input " + input + " --factor 2 --output-format stream streamed_dataset"
	if d.CommandLine != want {
		t.Errorf("command line = %q, want %q", d.CommandLine, want)
	}
	if d.RelativeToFile() {
		t.Error("written descriptors resolve names against the working directory")
	}

	if got := samples(t, open(t, descriptor)); !slices.Equal(got, []float64{2, 4, 6, 8}) {
		t.Errorf("replayed samples = %v, want [2 4 6 8]", got)
	}

	stdout := mustRun(t, "info", descriptor)
	if !strings.Contains(stdout, "Size is 2, 2") {
		t.Errorf("info on descriptor = %q", stdout)
	}
}

func TestGDALG_PipelineDescriptor(t *testing.T) {
	input := storeVector(t)
	descriptor := testutil.TempPath(t, "north.gdalg.json")
	mustRun(t, "vector", "pipeline", "read", input, "!", "filter", "--where", "region=north", "!", "select", "--fields", "name", "!", "write", descriptor)

	ds := open(t, descriptor)
	if got := featureNames(t, ds); !slices.Equal(got, []string{"alpha", "gamma"}) {
		t.Errorf("features = %v, want [alpha gamma]", got)
	}
	if fields := ds.Layers()[0].Fields; len(fields) != 1 || fields[0].Name != "name" {
		t.Errorf("fields = %v, want [name]", fields)
	}
}

func TestGDALG_NamesRelativeToDescriptor(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, "raster", "convert", storeRaster(t), filepath.Join(dir, "in.grc"))

	descriptor := filepath.Join(dir, "tripled.gdalg.json")
	writeDescriptor(t, descriptor, "geoalg raster scale --input in.grc --factor 3 --output-format stream streamed_dataset")
	if got := samples(t, open(t, descriptor)); !slices.Equal(got, []float64{3, 6, 9, 12}) {
		t.Errorf("samples = %v, want [3 6 9 12]", got)
	}
}

func TestGDALG_RefusesSelfReference(t *testing.T) {
	dir := t.TempDir()
	descriptor := filepath.Join(dir, "self.gdalg.json")
	writeDescriptor(t, descriptor, "geoalg raster scale --input self.gdalg.json --factor 2 --output-format stream streamed_dataset")
	if ds, err := dataset.Open(descriptor, dataset.OpenOptions{}); err == nil {
		_ = ds.Release()
		t.Fatal("expected a self-referencing descriptor to fail")
	}
}

func TestGDALG_RefusesFileWrites(t *testing.T) {
	input := storeRaster(t)
	dir := t.TempDir()
	descriptor := filepath.Join(dir, "writes.gdalg.json")
	writeDescriptor(t, descriptor, "geoalg raster pipeline read "+input+" ! write "+filepath.Join(dir, "side.grc"))

	_, err := dataset.Open(descriptor, dataset.OpenOptions{})
	if err == nil {
		t.Fatal("expected replay writing a file to fail")
	}
	if !strings.Contains(err.Error(), "--output-format stream should be used") {
		t.Errorf("err = %v", err)
	}
	if dataset.Exists(filepath.Join(dir, "side.grc")) {
		t.Error("side.grc was written during replay")
	}
}

func TestGDALG_RejectsForeignProgram(t *testing.T) {
	dir := t.TempDir()
	descriptor := filepath.Join(dir, "foreign.gdalg.json")
	writeDescriptor(t, descriptor, "gdal raster info in.tif")
	if _, err := dataset.Open(descriptor, dataset.OpenOptions{}); err == nil {
		t.Fatal("expected an error")
	}
}

func TestGDALG_IdentifyBySniffing(t *testing.T) {
	path := testutil.WriteFile(t, "deferred.json", `{
  // produced by hand
  "type": "gdal_streamed_alg",
  "command_line": "geoalg raster info x",
}`)
	if !(gdalgDriver{}).Identify(path) {
		t.Error("descriptor content not identified")
	}
	plain := testutil.WriteFile(t, "plain.json", `{"type": "FeatureCollection", "features": []}`)
	if (gdalgDriver{}).Identify(plain) {
		t.Error("GeoJSON identified as a descriptor")
	}
}

func writeDescriptor(t *testing.T, path, commandLine string) {
	t.Helper()
	d := gdalg.New(commandLine)
	d.RelativePaths = nil
	if err := d.WriteFile(path); err != nil {
		t.Fatal(err)
	}
}
