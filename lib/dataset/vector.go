// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"sync"
)

// FieldType is the type of an attribute field.
type FieldType string

const (
	FieldString  FieldType = "String"
	FieldInteger FieldType = "Integer"
	FieldReal    FieldType = "Real"
)

// Field describes one attribute column.
type Field struct {
	Name string    `json:"name"`
	Type FieldType `json:"type"`
}

// Geometry is a GeoJSON geometry kept in its encoded form. Drivers
// and steps only need its type and envelope.
type Geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// Envelope returns the bounding box of the geometry coordinates, and
// false for empty geometries.
func (g *Geometry) Envelope() (Envelope, bool) {
	if g == nil || len(g.Coordinates) == 0 {
		return Envelope{}, false
	}
	var coordinates any
	if err := json.Unmarshal(g.Coordinates, &coordinates); err != nil {
		return Envelope{}, false
	}
	envelope := emptyEnvelope()
	walkPositions(coordinates, func(x, y float64) {
		envelope.extend(x, y)
	})
	return envelope, !envelope.empty()
}

func walkPositions(node any, visit func(x, y float64)) {
	items, ok := node.([]any)
	if !ok || len(items) == 0 {
		return
	}
	if x, ok := items[0].(float64); ok {
		if len(items) >= 2 {
			if y, ok := items[1].(float64); ok {
				visit(x, y)
			}
		}
		return
	}
	for _, item := range items {
		walkPositions(item, visit)
	}
}

// Envelope is an axis-aligned bounding box.
type Envelope struct {
	MinX float64 `json:"minx"`
	MinY float64 `json:"miny"`
	MaxX float64 `json:"maxx"`
	MaxY float64 `json:"maxy"`
}

func emptyEnvelope() Envelope {
	return Envelope{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
}

func (e *Envelope) extend(x, y float64) {
	e.MinX = math.Min(e.MinX, x)
	e.MinY = math.Min(e.MinY, y)
	e.MaxX = math.Max(e.MaxX, x)
	e.MaxY = math.Max(e.MaxY, y)
}

func (e Envelope) empty() bool { return e.MinX > e.MaxX || e.MinY > e.MaxY }

// Intersects reports whether the two envelopes overlap, edges
// included.
func (e Envelope) Intersects(other Envelope) bool {
	return e.MinX <= other.MaxX && other.MinX <= e.MaxX &&
		e.MinY <= other.MaxY && other.MinY <= e.MaxY
}

// Union returns the smallest envelope covering both.
func (e Envelope) Union(other Envelope) Envelope {
	return Envelope{
		MinX: math.Min(e.MinX, other.MinX), MinY: math.Min(e.MinY, other.MinY),
		MaxX: math.Max(e.MaxX, other.MaxX), MaxY: math.Max(e.MaxY, other.MaxY),
	}
}

// Feature is one vector record.
type Feature struct {
	ID         int64          `json:"id"`
	Properties map[string]any `json:"properties"`
	Geometry   *Geometry      `json:"geometry"`
}

// Clone returns a copy sharing the immutable geometry encoding.
func (f *Feature) Clone() *Feature {
	clone := &Feature{ID: f.ID, Properties: maps.Clone(f.Properties)}
	if f.Geometry != nil {
		geometry := *f.Geometry
		clone.Geometry = &geometry
	}
	return clone
}

// Layer is a named collection of features with a common schema.
// Features may be produced lazily.
type Layer struct {
	Name         string
	GeometryType string
	Fields       []Field

	mu       sync.Mutex
	source   func() ([]*Feature, error)
	features []*Feature
	err      error
	loaded   bool
}

// NewLayer returns a layer holding features.
func NewLayer(name, geometryType string, fields []Field, features []*Feature) *Layer {
	return &Layer{
		Name:         name,
		GeometryType: geometryType,
		Fields:       fields,
		features:     features,
		loaded:       true,
	}
}

// NewLazyLayer returns a layer whose features are produced by source
// on first access. The result, or error, is cached.
func NewLazyLayer(name, geometryType string, fields []Field, source func() ([]*Feature, error)) *Layer {
	return &Layer{
		Name:         name,
		GeometryType: geometryType,
		Fields:       fields,
		source:       source,
	}
}

// Features returns the layer features. Callers must not modify the
// returned features.
func (l *Layer) Features() ([]*Feature, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.loaded {
		l.features, l.err = l.source()
		l.loaded = true
		l.source = nil
	}
	return l.features, l.err
}

// FeatureCount returns the number of features.
func (l *Layer) FeatureCount() (int, error) {
	features, err := l.Features()
	return len(features), err
}

// Append adds features. Features with a zero ID get the next free ID.
func (l *Layer) Append(features ...*Feature) error {
	existing, err := l.Features()
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	var next int64 = 1
	for _, f := range existing {
		next = max(next, f.ID+1)
	}
	for _, f := range features {
		if f.ID == 0 {
			f.ID = next
		}
		next = max(next, f.ID+1)
	}
	l.features = append(existing, features...)
	return nil
}

// Extent returns the union of feature envelopes, and false when no
// feature has a geometry.
func (l *Layer) Extent() (Envelope, bool, error) {
	features, err := l.Features()
	if err != nil {
		return Envelope{}, false, err
	}
	extent := emptyEnvelope()
	found := false
	for _, f := range features {
		if envelope, ok := f.Geometry.Envelope(); ok {
			extent = extent.Union(envelope)
			found = true
		}
	}
	return extent, found, nil
}

// Field returns the named field and whether it exists.
func (l *Layer) Field(name string) (Field, bool) {
	for _, field := range l.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return Field{}, false
}

func (l *Layer) clone() (*Layer, error) {
	features, err := l.Features()
	if err != nil {
		return nil, fmt.Errorf("layer %s: %w", l.Name, err)
	}
	cloned := make([]*Feature, len(features))
	for i, f := range features {
		cloned[i] = f.Clone()
	}
	return NewLayer(l.Name, l.GeometryType, append([]Field(nil), l.Fields...), cloned), nil
}

// InferFields derives a schema from feature properties, in first-seen
// order. A property holding both integers and reals becomes Real; any
// other mix becomes String.
func InferFields(features []*Feature) []Field {
	var fields []Field
	index := map[string]int{}
	for _, f := range features {
		for _, name := range sortedKeys(f.Properties) {
			fieldType := fieldTypeOf(f.Properties[name])
			position, seen := index[name]
			if !seen {
				index[name] = len(fields)
				fields = append(fields, Field{Name: name, Type: fieldType})
				continue
			}
			fields[position].Type = widen(fields[position].Type, fieldType)
		}
	}
	return fields
}

func fieldTypeOf(v any) FieldType {
	switch value := v.(type) {
	case float64:
		if value == math.Trunc(value) && math.Abs(value) < 1<<53 {
			return FieldInteger
		}
		return FieldReal
	case int, int64:
		return FieldInteger
	case json.Number:
		if _, err := value.Int64(); err == nil {
			return FieldInteger
		}
		return FieldReal
	default:
		return FieldString
	}
}

func widen(a, b FieldType) FieldType {
	switch {
	case a == b:
		return a
	case (a == FieldInteger && b == FieldReal) || (a == FieldReal && b == FieldInteger):
		return FieldReal
	default:
		return FieldString
	}
}
