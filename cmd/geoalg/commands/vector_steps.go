// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/bureau-foundation/geoalg/lib/algorithm"
	"github.com/bureau-foundation/geoalg/lib/dataset"
	"github.com/bureau-foundation/geoalg/lib/pipeline"
)

// lazyVector returns a MEM dataset with one lazily evaluated layer per
// layer of src. transform maps a source layer to the output schema and
// a per-feature function returning the kept feature, or nil.
func lazyVector(src *dataset.Dataset, transform func(*dataset.Layer) ([]dataset.Field, func(*dataset.Feature) *dataset.Feature, error)) (*dataset.Dataset, error) {
	out := dataset.New("MEM", "", dataset.Vector)
	for _, layer := range src.Layers() {
		fields, keep, err := transform(layer)
		if err != nil {
			_ = out.Release()
			return nil, err
		}
		lazy := dataset.NewLazyLayer(layer.Name, layer.GeometryType, fields, func() ([]*dataset.Feature, error) {
			features, err := layer.Features()
			if err != nil {
				return nil, err
			}
			var kept []*dataset.Feature
			for _, feature := range features {
				if f := keep(feature); f != nil {
					kept = append(kept, f)
				}
			}
			return kept, nil
		})
		if err := out.AddLayer(lazy); err != nil {
			_ = out.Release()
			return nil, err
		}
	}
	retain(out, src)
	return out, nil
}

// filterStep keeps the features matching a bounding box and an
// attribute equality.
type filterStep struct {
	pipeline.StepBase
	bbox  *algorithm.Arg
	where *algorithm.Arg
}

func newFilter(standalone bool) *filterStep {
	s := &filterStep{}
	s.InitStep(s, "filter", "Filter a vector dataset.", "/programs/geoalg_vector_filter.html", pipeline.Config{
		Input:             dataset.Vector,
		Middle:            true,
		NativelyStreaming: true,
		Standalone:        standalone,
	})
	s.bbox = s.AddBBOXArg("Keep features whose envelope intersects xmin,ymin,xmax,ymax")
	s.where = s.AddArg("where", 0, "Keep features whose field equals a value", algorithm.TypeString).
		SetMetaVar("<FIELD>=<VALUE>").
		AddValidator("field-equals-value", func(a *algorithm.Arg) error {
			if field, _, ok := strings.Cut(a.String(), "="); !ok || field == "" {
				return fmt.Errorf("Invalid value for argument 'where'. <FIELD>=<VALUE> expected")
			}
			return nil
		})
	if standalone {
		s.AddProgressArg()
	}
	s.AddExample("Keep the features of one region", "geoalg vector filter --where region=north --bbox 0,0,10,10 in.geojson out.gpkg")
	return s
}

func (s *filterStep) RunStep(ctx context.Context, rc *pipeline.RunContext) error {
	var window *dataset.Envelope
	if s.bbox.IsExplicitlySet() {
		v := s.bbox.Floats()
		window = &dataset.Envelope{MinX: v[0], MinY: v[1], MaxX: v[2], MaxY: v[3]}
	}
	field, value, hasWhere := strings.Cut(s.where.String(), "=")

	out, err := lazyVector(s.Input(), func(layer *dataset.Layer) ([]dataset.Field, func(*dataset.Feature) *dataset.Feature, error) {
		if hasWhere {
			if _, ok := layer.Field(field); !ok {
				return nil, nil, s.Executionf("Field '%s' does not exist in layer '%s'", field, layer.Name)
			}
		}
		return layer.Fields, func(feature *dataset.Feature) *dataset.Feature {
			if window != nil {
				envelope, ok := feature.Geometry.Envelope()
				if !ok || !envelope.Intersects(*window) {
					return nil
				}
			}
			if hasWhere {
				property, ok := feature.Properties[field]
				if !ok || property == nil || formatProperty(property) != value {
					return nil
				}
			}
			return feature
		}, nil
	})
	if err != nil {
		return err
	}
	defer out.Release()
	return s.SetOutput(out)
}

// formatProperty renders an attribute value the way it is written on
// the command line: integral reals without a fractional part.
func formatProperty(v any) string {
	if f, ok := v.(float64); ok && f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprint(v)
}

// selectStep keeps or drops attribute fields.
type selectStep struct {
	pipeline.StepBase
	fields        *algorithm.Arg
	exclude       *algorithm.Arg
	ignoreMissing *algorithm.Arg
}

func newSelect(standalone bool) *selectStep {
	s := &selectStep{}
	s.InitStep(s, "select", "Select a subset of fields from a vector dataset.", "/programs/geoalg_vector_select.html", pipeline.Config{
		Input:             dataset.Vector,
		Middle:            true,
		NativelyStreaming: true,
		Standalone:        standalone,
	})
	s.fields = s.AddArg("fields", 0, "Fields to select (or exclude if --exclude)", algorithm.TypeStringList).
		SetMetaVar("<FIELD>").
		SetPackedValuesAllowed(true).
		SetRequired()
	s.exclude = s.AddArg("exclude", 0, "Exclude the specified fields instead of keeping them", algorithm.TypeBoolean).
		SetMutualExclusionGroup("exclude-ignore")
	s.ignoreMissing = s.AddArg("ignore-missing-fields", 0, "Ignore requested fields a layer does not have", algorithm.TypeBoolean).
		SetMutualExclusionGroup("exclude-ignore")
	if standalone {
		s.AddProgressArg()
	}
	return s
}

func (s *selectStep) RunStep(ctx context.Context, rc *pipeline.RunContext) error {
	requested := s.fields.Strings()
	exclude := s.exclude.Bool()

	out, err := lazyVector(s.Input(), func(layer *dataset.Layer) ([]dataset.Field, func(*dataset.Feature) *dataset.Feature, error) {
		if !exclude && !s.ignoreMissing.Bool() {
			for _, name := range requested {
				if _, ok := layer.Field(name); !ok {
					return nil, nil, s.Executionf("Field '%s' does not exist in layer '%s'", name, layer.Name)
				}
			}
		}
		var kept []dataset.Field
		var names []string
		for _, field := range layer.Fields {
			if slices.Contains(requested, field.Name) != exclude {
				kept = append(kept, field)
				names = append(names, field.Name)
			}
		}
		return kept, func(feature *dataset.Feature) *dataset.Feature {
			selected := &dataset.Feature{ID: feature.ID, Geometry: feature.Geometry, Properties: map[string]any{}}
			for _, name := range names {
				if v, ok := feature.Properties[name]; ok {
					selected.Properties[name] = v
				}
			}
			return selected
		}, nil
	})
	if err != nil {
		return err
	}
	defer out.Release()
	return s.SetOutput(out)
}
