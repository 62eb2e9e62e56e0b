// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"fmt"
	"math"
	"strings"
)

// Kind is a set of dataset content kinds.
type Kind uint8

const (
	Raster Kind = 1 << iota
	Vector
	MultiDimRaster
)

// Has reports whether k shares any kind with other.
func (k Kind) Has(other Kind) bool { return k&other != 0 }

// Names returns the kind names used in JSON usage: raster, vector,
// muldim_raster.
func (k Kind) Names() []string {
	var names []string
	if k.Has(Raster) {
		names = append(names, "raster")
	}
	if k.Has(Vector) {
		names = append(names, "vector")
	}
	if k.Has(MultiDimRaster) {
		names = append(names, "muldim_raster")
	}
	return names
}

func (k Kind) String() string {
	names := k.Names()
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// DataType is the storage type of raster samples. Samples are always
// handled as float64 in memory; the data type governs rounding,
// clamping and the on-disk encoding.
type DataType string

const (
	Byte    DataType = "Byte"
	Int16   DataType = "Int16"
	Int32   DataType = "Int32"
	Float32 DataType = "Float32"
	Float64 DataType = "Float64"
)

// DataTypes lists the supported data types in widening order.
var DataTypes = []DataType{Byte, Int16, Int32, Float32, Float64}

// ParseDataType parses a data type name case-insensitively.
func ParseDataType(name string) (DataType, error) {
	for _, dt := range DataTypes {
		if strings.EqualFold(string(dt), name) {
			return dt, nil
		}
	}
	return "", fmt.Errorf("unknown data type %q", name)
}

// Size returns the encoded size of one sample in bytes.
func (dt DataType) Size() int {
	switch dt {
	case Byte:
		return 1
	case Int16:
		return 2
	case Int32, Float32:
		return 4
	default:
		return 8
	}
}

// IsInteger reports whether samples of this type are integral.
func (dt DataType) IsInteger() bool {
	return dt == Byte || dt == Int16 || dt == Int32
}

// Range returns the representable value range.
func (dt DataType) Range() (min, max float64) {
	switch dt {
	case Byte:
		return 0, math.MaxUint8
	case Int16:
		return math.MinInt16, math.MaxInt16
	case Int32:
		return math.MinInt32, math.MaxInt32
	case Float32:
		return -math.MaxFloat32, math.MaxFloat32
	default:
		return -math.MaxFloat64, math.MaxFloat64
	}
}

// Clamp converts v to the nearest value representable in dt:
// integer types round half away from zero and saturate.
func (dt DataType) Clamp(v float64) float64 {
	if math.IsNaN(v) {
		if dt.IsInteger() {
			return 0
		}
		return v
	}
	min, max := dt.Range()
	if dt.IsInteger() {
		v = math.Round(v)
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	if dt == Float32 {
		return float64(float32(v))
	}
	return v
}
