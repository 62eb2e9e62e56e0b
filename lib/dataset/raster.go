// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"fmt"
	"math"
	"sync"
)

// Grid is the raster content of a dataset: one or more bands sharing size and
// georeferencing.
type Grid struct {
	Width  int
	Height int

	// GeoTransform maps pixel/line to georeferenced coordinates:
	// Xgeo = GT[0] + P*GT[1] + L*GT[2], Ygeo = GT[3] + P*GT[4] + L*GT[5].
	GeoTransform [6]float64

	Bands []*Band
}

// DefaultGeoTransform is the identity-like transform used when a
// raster has no georeferencing.
var DefaultGeoTransform = [6]float64{0, 1, 0, 0, 0, 1}

// Band returns the 1-based band n.
func (r *Grid) Band(n int) (*Band, error) {
	if n < 1 || n > len(r.Bands) {
		return nil, fmt.Errorf("band %d does not exist (raster has %d band(s))", n, len(r.Bands))
	}
	return r.Bands[n-1], nil
}

// Extent returns the georeferenced envelope of a north-up raster.
func (r *Grid) Extent() Envelope {
	gt := r.GeoTransform
	x0, x1 := gt[0], gt[0]+float64(r.Width)*gt[1]
	y0, y1 := gt[3], gt[3]+float64(r.Height)*gt[5]
	return Envelope{
		MinX: math.Min(x0, x1), MaxX: math.Max(x0, x1),
		MinY: math.Min(y0, y1), MaxY: math.Max(y0, y1),
	}
}

// Band is one sample grid. Samples are held as float64 in row-major
// order and may be produced lazily.
type Band struct {
	DataType    DataType
	NoData      *float64
	Description string

	width  int
	height int

	mu     sync.Mutex
	source func() ([]float64, error)
	data   []float64
	err    error
	loaded bool
}

// NewBand returns a band holding data, which must have width*height
// samples.
func NewBand(dataType DataType, width, height int, data []float64) *Band {
	return &Band{
		DataType: dataType,
		width:    width,
		height:   height,
		data:     data,
		loaded:   true,
	}
}

// NewLazyBand returns a band whose samples are computed by source on
// first Read. The result, or error, is cached.
func NewLazyBand(dataType DataType, width, height int, source func() ([]float64, error)) *Band {
	return &Band{
		DataType: dataType,
		width:    width,
		height:   height,
		source:   source,
	}
}

// Size returns the band width and height.
func (b *Band) Size() (width, height int) { return b.width, b.height }

// Loaded reports whether samples have been computed.
func (b *Band) Loaded() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loaded
}

// Read returns the samples. Callers must not modify the slice.
func (b *Band) Read() ([]float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.loaded {
		b.data, b.err = b.source()
		b.loaded = true
		b.source = nil
		if b.err == nil && len(b.data) != b.width*b.height {
			b.err = fmt.Errorf("band source produced %d samples, want %d", len(b.data), b.width*b.height)
		}
	}
	return b.data, b.err
}

// Write replaces the samples, clamped to the band data type.
func (b *Band) Write(data []float64) error {
	if len(data) != b.width*b.height {
		return fmt.Errorf("writing %d samples into a %dx%d band", len(data), b.width, b.height)
	}
	clamped := make([]float64, len(data))
	for i, v := range data {
		clamped[i] = b.DataType.Clamp(v)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data, b.err, b.loaded, b.source = clamped, nil, true, nil
	return nil
}

// IsNoData reports whether v equals the band nodata value.
func (b *Band) IsNoData(v float64) bool {
	if b.NoData == nil {
		return false
	}
	if math.IsNaN(*b.NoData) {
		return math.IsNaN(v)
	}
	return v == *b.NoData
}

// Statistics holds band statistics over valid samples.
type Statistics struct {
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Mean       float64 `json:"mean"`
	StdDev     float64 `json:"stddev"`
	ValidCount int     `json:"valid_count"`
}

// ComputeStatistics scans the band, skipping nodata samples.
func (b *Band) ComputeStatistics() (Statistics, error) {
	data, err := b.Read()
	if err != nil {
		return Statistics{}, err
	}
	stats := Statistics{Min: math.Inf(1), Max: math.Inf(-1)}
	var sum, sumSquares float64
	for _, v := range data {
		if b.IsNoData(v) || math.IsNaN(v) {
			continue
		}
		stats.ValidCount++
		sum += v
		sumSquares += v * v
		stats.Min = math.Min(stats.Min, v)
		stats.Max = math.Max(stats.Max, v)
	}
	if stats.ValidCount == 0 {
		return Statistics{}, fmt.Errorf("band has no valid samples")
	}
	n := float64(stats.ValidCount)
	stats.Mean = sum / n
	stats.StdDev = math.Sqrt(math.Max(0, sumSquares/n-stats.Mean*stats.Mean))
	return stats, nil
}

// clone returns a materialized copy of the band.
func (b *Band) clone() (*Band, error) {
	data, err := b.Read()
	if err != nil {
		return nil, err
	}
	copyBand := NewBand(b.DataType, b.width, b.height, append([]float64(nil), data...))
	copyBand.Description = b.Description
	if b.NoData != nil {
		noData := *b.NoData
		copyBand.NoData = &noData
	}
	return copyBand, nil
}
