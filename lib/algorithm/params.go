// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package algorithm

import (
	"fmt"
	"reflect"
	"slices"
)

// DecodeParams copies argument values of alg into the tagged fields of
// params, which must be a pointer to a struct:
//
//	var params struct {
//	    Input  *algorithm.DatasetHandle `arg:"input"`
//	    Band   int                      `arg:"band"`
//	    Layers []string                 `arg:"layer"`
//	}
//	if err := algorithm.DecodeParams(alg, &params); err != nil { ... }
//
// Field types must match the argument type: bool, string, int,
// float64, *DatasetHandle and their slices. Embedded structs are
// decoded recursively. Slices are copies; dataset handles are shared
// with the argument and stay owned by it.
func DecodeParams(alg Algorithm, params any) error {
	value := reflect.ValueOf(params)
	if value.Kind() != reflect.Ptr || value.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("params must be a pointer to a struct, got %T", params)
	}
	return decodeStructFields(alg.Core(), value.Elem())
}

func decodeStructFields(b *Base, structValue reflect.Value) error {
	structType := structValue.Type()
	for i := range structType.NumField() {
		field := structType.Field(i)
		fieldValue := structValue.Field(i)

		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			if err := decodeStructFields(b, fieldValue); err != nil {
				return fmt.Errorf("embedded %s: %w", field.Name, err)
			}
			continue
		}

		name := field.Tag.Get("arg")
		if name == "" {
			continue
		}
		if !field.IsExported() {
			return fmt.Errorf("field %s: not exported", field.Name)
		}
		a := b.Arg(name)
		if a == nil {
			return fmt.Errorf("field %s: argument '%s' is not declared", field.Name, name)
		}
		if err := decodeField(fieldValue, a); err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}
	}
	return nil
}

func decodeField(fieldValue reflect.Value, a *Arg) error {
	var decoded any
	switch fieldValue.Addr().Interface().(type) {
	case *bool:
		if a.typ == TypeBoolean {
			decoded = a.Bool()
		}
	case *string:
		if a.typ == TypeString {
			decoded = a.String()
		}
	case *int:
		if a.typ == TypeInteger {
			decoded = a.Int()
		}
	case *float64:
		if a.typ == TypeReal {
			decoded = a.Float()
		}
	case **DatasetHandle:
		if a.typ == TypeDataset {
			decoded = a.Dataset()
		}
	case *[]string:
		if a.typ == TypeStringList {
			decoded = slices.Clone(a.Strings())
		}
	case *[]int:
		if a.typ == TypeIntegerList {
			decoded = slices.Clone(a.Ints())
		}
	case *[]float64:
		if a.typ == TypeRealList {
			decoded = slices.Clone(a.Floats())
		}
	case *[]*DatasetHandle:
		if a.typ == TypeDatasetList {
			decoded = slices.Clone(a.Datasets())
		}
	default:
		return fmt.Errorf("unsupported type %s for argument '%s'", fieldValue.Type(), a.name)
	}
	if decoded == nil {
		return fmt.Errorf("type %s does not match %s argument '%s'", fieldValue.Type(), a.typ, a.name)
	}
	fieldValue.Set(reflect.ValueOf(decoded))
	return nil
}
