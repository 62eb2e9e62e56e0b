// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bureau-foundation/geoalg/lib/algorithm"
	"github.com/bureau-foundation/geoalg/lib/binhash"
	"github.com/bureau-foundation/geoalg/lib/dataset"
	"github.com/bureau-foundation/geoalg/lib/pipeline"
	"github.com/bureau-foundation/geoalg/lib/progress"
)

// vectorInfo describes the layers of a vector dataset.
type vectorInfo struct {
	pipeline.StepBase
	format   *algorithm.Arg
	layers   *algorithm.Arg
	features *algorithm.Arg
	checksum *algorithm.Arg
}

func newVectorInfo(step bool) *vectorInfo {
	s := &vectorInfo{}
	s.InitStep(s, "info", "Return information on a vector dataset.", "/programs/geoalg_vector_info.html", pipeline.Config{
		Input: dataset.Vector,
		First: !step,
		Last:  true,
	})
	defaultFormat := "json"
	if !step {
		defaultFormat = "text"
		s.SetPipelineStepUsage(false)
		s.SetInputArg(s.AddInputDatasetArg(dataset.Vector, true))
		s.AddOpenOptionsArg()
		s.AddInputFormatsArg()
	}
	s.format = s.AddArg("format", 'f', "Output format", algorithm.TypeString).
		AddAlias("of").
		SetChoices("json", "text").
		SetDefault(defaultFormat)
	s.layers = s.AddLayerNameArg(true).SetDescription("Layer name(s) to report")
	s.features = s.AddArg("features", 0, "List all features", algorithm.TypeBoolean)
	s.checksum = s.AddArg("checksum", 0, "Compute a checksum of each layer's features", algorithm.TypeBoolean)
	s.AddOutputStringArg()
	return s
}

type vectorInfoLayer struct {
	Name         string             `json:"name"`
	GeometryType string             `json:"geometry_type"`
	FeatureCount int                `json:"feature_count"`
	Extent       *dataset.Envelope  `json:"extent,omitempty"`
	Fields       []dataset.Field    `json:"fields"`
	Checksum     string             `json:"checksum,omitempty"`
	Features     []*dataset.Feature `json:"features,omitempty"`
}

type vectorInfoDocument struct {
	Description string            `json:"description"`
	Driver      string            `json:"driver_short_name"`
	DriverLong  string            `json:"driver_long_name"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Layers      []vectorInfoLayer `json:"layers"`
}

func (s *vectorInfo) RunStep(ctx context.Context, rc *pipeline.RunContext) error {
	ds := s.Input()
	document := vectorInfoDocument{
		Description: ds.Name(),
		Driver:      ds.Driver(),
		Metadata:    ds.Metadata(),
		Layers:      []vectorInfoLayer{},
	}
	if driver, ok := dataset.Lookup(ds.Driver()); ok {
		document.DriverLong = driver.LongName()
	}

	layers := ds.Layers()
	if s.layers.IsExplicitlySet() {
		layers = nil
		for _, name := range s.layers.Strings() {
			layer := ds.Layer(name)
			if layer == nil {
				return s.Validationf("Couldn't fetch requested layer %s.", name)
			}
			layers = append(layers, layer)
		}
	}

	for i, layer := range layers {
		features, err := layer.Features()
		if err != nil {
			return s.Executionf("reading layer %s: %w", layer.Name, err)
		}
		entry := vectorInfoLayer{
			Name:         layer.Name,
			GeometryType: layer.GeometryType,
			FeatureCount: len(features),
			Fields:       layer.Fields,
		}
		if entry.Fields == nil {
			entry.Fields = []dataset.Field{}
		}
		if extent, ok, err := layer.Extent(); err == nil && ok {
			entry.Extent = &extent
		}
		if s.features.Bool() {
			entry.Features = features
		}
		if s.checksum.Bool() {
			encoded, err := json.Marshal(features)
			if err != nil {
				return s.Executionf("%w", err)
			}
			entry.Checksum = binhash.Sum(encoded).String()
		}
		document.Layers = append(document.Layers, entry)
		if err := progress.Report(rc.Progress, float64(i+1)/float64(len(layers)), layer.Name); err != nil {
			return err
		}
	}

	var text string
	if s.format.String() == "json" {
		encoded, err := json.MarshalIndent(document, "", "  ")
		if err != nil {
			return s.Executionf("%w", err)
		}
		text = string(encoded) + "\n"
	} else {
		text = document.text()
	}
	return s.Arg(algorithm.ArgOutputString).Set(text)
}

func (d vectorInfoDocument) text() string {
	var out strings.Builder
	fmt.Fprintf(&out, "INFO: Open of `%s'\n      using driver `%s' successful.\n", d.Description, d.Driver)
	for _, layer := range d.Layers {
		fmt.Fprintf(&out, "\nLayer name: %s\n", layer.Name)
		fmt.Fprintf(&out, "Geometry: %s\n", layer.GeometryType)
		fmt.Fprintf(&out, "Feature Count: %d\n", layer.FeatureCount)
		if e := layer.Extent; e != nil {
			fmt.Fprintf(&out, "Extent: (%.6f, %.6f) - (%.6f, %.6f)\n", e.MinX, e.MinY, e.MaxX, e.MaxY)
		}
		if layer.Checksum != "" {
			fmt.Fprintf(&out, "Checksum: %s\n", layer.Checksum)
		}
		for _, field := range layer.Fields {
			fmt.Fprintf(&out, "%s: %s\n", field.Name, field.Type)
		}
		for _, feature := range layer.Features {
			fmt.Fprintf(&out, "Feature(%s):%d\n", layer.Name, feature.ID)
			for _, field := range layer.Fields {
				if v, ok := feature.Properties[field.Name]; ok && v != nil {
					fmt.Fprintf(&out, "  %s (%s) = %s\n", field.Name, field.Type, formatProperty(v))
				}
			}
			if feature.Geometry != nil {
				fmt.Fprintf(&out, "  %s %s\n", strings.ToUpper(feature.Geometry.Type), feature.Geometry.Coordinates)
			}
		}
	}
	return out.String()
}
