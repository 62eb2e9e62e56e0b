// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package algorithm

import "math"

// ArgType is the declared type of an argument value.
type ArgType int

const (
	TypeBoolean ArgType = iota
	TypeString
	TypeInteger
	TypeReal
	TypeDataset
	TypeStringList
	TypeIntegerList
	TypeRealList
	TypeDatasetList
)

var argTypeNames = [...]string{
	TypeBoolean:     "boolean",
	TypeString:      "string",
	TypeInteger:     "integer",
	TypeReal:        "real",
	TypeDataset:     "dataset",
	TypeStringList:  "string_list",
	TypeIntegerList: "integer_list",
	TypeRealList:    "real_list",
	TypeDatasetList: "dataset_list",
}

// String returns the name used in JSON usage.
func (t ArgType) String() string {
	if t < 0 || int(t) >= len(argTypeNames) {
		return "unknown"
	}
	return argTypeNames[t]
}

// IsList reports whether t holds a sequence of values.
func (t ArgType) IsList() bool { return t >= TypeStringList }

// Element returns the scalar type of a list type, or t itself.
func (t ArgType) Element() ArgType {
	switch t {
	case TypeStringList:
		return TypeString
	case TypeIntegerList:
		return TypeInteger
	case TypeRealList:
		return TypeReal
	case TypeDatasetList:
		return TypeDataset
	}
	return t
}

// Unbounded is the maximum value count of a list with no upper limit.
const Unbounded = math.MaxInt32

// Argument categories, listed in usage in this order with custom
// categories between Advanced and Esoteric.
const (
	CategoryCommon   = "Common"
	CategoryBase     = "Base"
	CategoryAdvanced = "Advanced"
	CategoryEsoteric = "Esoteric"
)

// IOFlags says whether a dataset argument accepts or yields a name, an
// object, or both.
type IOFlags uint8

const (
	FlagName IOFlags = 1 << iota
	FlagObject
)

// Names returns "name" and/or "dataset", as listed in JSON usage.
func (f IOFlags) Names() []string {
	var names []string
	if f&FlagName != 0 {
		names = append(names, "name")
	}
	if f&FlagObject != 0 {
		names = append(names, "dataset")
	}
	return names
}

// Well-known argument names shared between algorithms, pipeline steps
// and the descriptor serializer.
const (
	ArgInput        = "input"
	ArgOutput       = "output"
	ArgOutputFormat = "output-format"
	ArgInputFormat  = "input-format"
	ArgOpenOption   = "open-option"
	ArgUpdate       = "update"
	ArgAppend       = "append"
	ArgOverwrite    = "overwrite"
	ArgOutputString = "output-string"
	ArgProgress     = "progress"
)

// Metadata keys recognized on arguments.
const (
	// MetaRequiredCapabilities lists the driver capabilities an
	// output format must expose.
	MetaRequiredCapabilities = "required_capabilities"
)
