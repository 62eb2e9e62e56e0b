// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"

	"github.com/bureau-foundation/geoalg/lib/dataset"
	"github.com/bureau-foundation/geoalg/lib/pipeline"
)

// convertStep copies its input unchanged. Run standalone, the implicit
// write does the conversion, so convert accepts every write option.
type convertStep struct {
	pipeline.StepBase
}

func newConvert(kind dataset.Kind) *convertStep {
	s := &convertStep{}
	description := "Convert a raster dataset."
	example := "geoalg raster convert --co COMPRESS=LZ4 in.grc out.grc"
	if kind == dataset.Vector {
		description = "Convert a vector dataset."
		example = "geoalg vector convert in.geojson out.gpkg"
	}
	s.InitStep(s, "convert", description, "/programs/geoalg_"+kind.String()+"_convert.html", pipeline.Config{
		Input:             kind,
		NativelyStreaming: true,
		Standalone:        true,
	})
	s.AddProgressArg()
	s.AddExample("Convert to another format", example)
	return s
}

func (s *convertStep) RunStep(ctx context.Context, rc *pipeline.RunContext) error {
	return s.SetOutput(s.Input())
}
