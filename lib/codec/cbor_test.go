// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"strings"
	"testing"
)

type sampleHeader struct {
	Width    int       `cbor:"width"`
	Height   int       `cbor:"height"`
	DataType string    `cbor:"data_type"`
	Geo      []float64 `cbor:"geo,omitempty"`
}

type sampleJSONTagged struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestMarshalUnmarshal(t *testing.T) {
	original := sampleHeader{Width: 20, Height: 10, DataType: "Byte", Geo: []float64{0, 1, 0, 10, 0, -1}}
	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded sampleHeader
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Width != 20 || decoded.Height != 10 || decoded.DataType != "Byte" || len(decoded.Geo) != 6 {
		t.Errorf("decoded = %+v, want %+v", decoded, original)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	value := map[string]any{"b": 2, "a": 1, "c": "x"}
	first, err := Marshal(value)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for range 10 {
		again, err := Marshal(value)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatal("map encoding is not deterministic")
		}
	}
}

func TestJSONTagFallback(t *testing.T) {
	data, err := Marshal(sampleJSONTagged{Name: "band", Count: 3})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	diagnostic, err := Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if !strings.Contains(diagnostic, `"name"`) || !strings.Contains(diagnostic, `"count"`) {
		t.Errorf("Diagnose = %s, want json tag names as keys", diagnostic)
	}
}

func TestUnmarshalAnyMap(t *testing.T) {
	data, err := Marshal(map[string]any{"AREA_OR_POINT": "Area"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	m, ok := decoded.(map[string]any)
	if !ok {
		t.Fatalf("decoded type = %T, want map[string]any", decoded)
	}
	if m["AREA_OR_POINT"] != "Area" {
		t.Errorf("AREA_OR_POINT = %v, want Area", m["AREA_OR_POINT"])
	}
}
