// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package algorithm

import (
	"slices"
	"strings"
	"testing"

	"github.com/bureau-foundation/geoalg/lib/dataset"
)

type commonParams struct {
	Input *DatasetHandle `arg:"input"`
}

func TestDecodeParams(t *testing.T) {
	name := storeRaster(t)
	alg := newTestAlg("t", func(b *Base) {
		b.AddInputDatasetArg(dataset.Raster, true)
		b.AddArg("band", 'b', "Band", TypeInteger)
		b.AddArg("factor", 0, "Factor", TypeReal)
		b.AddArg("exact", 0, "Exact", TypeBoolean)
		b.AddArg("fields", 0, "Fields", TypeStringList)
		b.AddArg("size", 0, "Size", TypeIntegerList)
	})
	if _, err := ParseCommandLine(alg, []string{name, "-b", "2", "--factor=1.5", "--exact", "--fields=a,b", "--size=3,4"}); err != nil {
		t.Fatal(err)
	}
	defer Finalize(alg)

	var params struct {
		commonParams
		Band    int       `arg:"band"`
		Factor  float64   `arg:"factor"`
		Exact   bool      `arg:"exact"`
		Fields  []string  `arg:"fields"`
		Size    []int     `arg:"size"`
		Ignored string
	}
	if err := DecodeParams(alg, &params); err != nil {
		t.Fatal(err)
	}
	if params.Input == nil || params.Input.Name() != name {
		t.Errorf("Input = %v", params.Input)
	}
	if params.Band != 2 || params.Factor != 1.5 || !params.Exact {
		t.Errorf("Band = %d Factor = %v Exact = %v", params.Band, params.Factor, params.Exact)
	}
	if !slices.Equal(params.Fields, []string{"a", "b"}) || !slices.Equal(params.Size, []int{3, 4}) {
		t.Errorf("Fields = %v Size = %v", params.Fields, params.Size)
	}
}

func TestDecodeParams_Errors(t *testing.T) {
	alg := newTestAlg("t", func(b *Base) {
		b.AddArg("band", 0, "Band", TypeInteger)
	})

	var mismatched struct {
		Band string `arg:"band"`
	}
	err := DecodeParams(alg, &mismatched)
	if err == nil || !strings.Contains(err.Error(), "does not match") {
		t.Errorf("mismatched type: %v", err)
	}

	var undeclared struct {
		Layer string `arg:"layer"`
	}
	err = DecodeParams(alg, &undeclared)
	if err == nil || !strings.Contains(err.Error(), "argument 'layer' is not declared") {
		t.Errorf("undeclared: %v", err)
	}

	if err := DecodeParams(alg, mismatched); err == nil {
		t.Error("non-pointer accepted")
	}
}
