// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/geoalg/lib/progress"
)

type geojsonDocument struct {
	Type     string           `json:"type"`
	Name     string           `json:"name,omitempty"`
	Features []geojsonFeature `json:"features"`
}

type geojsonFeature struct {
	Type       string         `json:"type"`
	ID         *int64         `json:"id,omitempty"`
	Properties map[string]any `json:"properties"`
	Geometry   *Geometry      `json:"geometry"`
}

type geojsonDriver struct{ baseDriver }

func (d *geojsonDriver) Identify(name string) bool {
	if hasSuffixFold(name, ".gdalg.json") {
		return false
	}
	if hasSuffixFold(name, ".geojson") {
		return true
	}
	file, err := os.Open(name)
	if err != nil {
		return false
	}
	defer file.Close()
	head := make([]byte, 4096)
	n, _ := io.ReadFull(file, head)
	head = head[:n]
	return bytes.Contains(head, []byte(`"FeatureCollection"`)) && !bytes.Contains(head, []byte("gdal_streamed_alg"))
}

func (d *geojsonDriver) Open(name string, options OpenOptions) (*Dataset, error) {
	var (
		lock *fileLock
		data []byte
		err  error
	)
	if options.Update {
		if lock, err = lockForUpdate(name); err != nil {
			return nil, err
		}
		data, err = io.ReadAll(lock.File())
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		if lock != nil {
			lock.Unlock()
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	layer, err := decodeGeoJSON(name, data)
	if err != nil {
		if lock != nil {
			lock.Unlock()
		}
		return nil, err
	}
	ds := New("GeoJSON", name, Vector)
	ds.layers = []*Layer{layer}

	if lock != nil {
		ds.update = true
		ds.OnClose(lock.Unlock)
		ds.OnClose(func() error {
			if !ds.Modified() {
				return nil
			}
			encoded, err := encodeGeoJSON(ds, nil)
			if err != nil {
				return err
			}
			file := lock.File()
			if err := file.Truncate(0); err != nil {
				return fmt.Errorf("truncating %s: %w", name, err)
			}
			if _, err := file.WriteAt(encoded, 0); err != nil {
				return fmt.Errorf("writing %s: %w", name, err)
			}
			return file.Sync()
		})
	}
	return ds, nil
}

func decodeGeoJSON(name string, data []byte) (*Layer, error) {
	var document geojsonDocument
	decoder := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	decoder.UseNumber()
	if err := decoder.Decode(&document); err != nil {
		return nil, fmt.Errorf("parsing GeoJSON %s: %w", name, err)
	}
	if document.Type != "FeatureCollection" {
		return nil, fmt.Errorf("%s: expected a FeatureCollection, got %q", name, document.Type)
	}

	layerName := document.Name
	if layerName == "" {
		layerName = strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	}

	features := make([]*Feature, 0, len(document.Features))
	geometryType := ""
	for i, stored := range document.Features {
		feature := &Feature{ID: int64(i + 1), Properties: normalizeNumbers(stored.Properties), Geometry: stored.Geometry}
		if stored.ID != nil {
			feature.ID = *stored.ID
		}
		if feature.Properties == nil {
			feature.Properties = map[string]any{}
		}
		geometryType = mergeGeometryType(geometryType, stored.Geometry)
		features = append(features, feature)
	}
	if geometryType == "" {
		geometryType = "None"
	}
	return NewLayer(layerName, geometryType, InferFields(features), features), nil
}

// normalizeNumbers turns json.Number values into int64 or float64.
func normalizeNumbers(properties map[string]any) map[string]any {
	for key, value := range properties {
		if number, ok := value.(json.Number); ok {
			if n, err := number.Int64(); err == nil {
				properties[key] = n
			} else if f, err := number.Float64(); err == nil {
				properties[key] = f
			}
		}
	}
	return properties
}

func mergeGeometryType(current string, geometry *Geometry) string {
	if geometry == nil {
		return current
	}
	switch current {
	case "":
		return geometry.Type
	case geometry.Type:
		return current
	default:
		return "Unknown"
	}
}

func (d *geojsonDriver) CreateCopy(name string, src *Dataset, options CreateOptions) (*Dataset, error) {
	data, err := encodeGeoJSON(src, options.Progress)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(name, data, 0o644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", name, err)
	}
	options.logger().Debug("vector written", "name", name, "bytes", len(data))
	return d.Open(name, OpenOptions{Logger: options.Logger})
}

func encodeGeoJSON(src *Dataset, pfn progress.Func) ([]byte, error) {
	layers := src.Layers()
	if len(layers) != 1 {
		return nil, fmt.Errorf("GeoJSON driver supports a single layer only, but %s has %d", src.Name(), len(layers))
	}
	layer := layers[0]
	features, err := layer.Features()
	if err != nil {
		return nil, fmt.Errorf("reading layer %s: %w", layer.Name, err)
	}

	document := geojsonDocument{
		Type:     "FeatureCollection",
		Name:     layer.Name,
		Features: make([]geojsonFeature, 0, len(features)),
	}
	for i, f := range features {
		id := f.ID
		document.Features = append(document.Features, geojsonFeature{
			Type:       "Feature",
			ID:         &id,
			Properties: f.Properties,
			Geometry:   f.Geometry,
		})
		if i%1000 == 999 {
			if err := progress.Report(pfn, float64(i+1)/float64(len(features)), ""); err != nil {
				return nil, err
			}
		}
	}
	data, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding GeoJSON: %w", err)
	}
	if err := progress.Report(pfn, 1, ""); err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
