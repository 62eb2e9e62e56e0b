// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package algorithm

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/bureau-foundation/geoalg/lib/dataset"
)

// Validator is a named check run against the tentative value of an
// argument during Set, and again during global validation. A non-nil
// error rejects the value.
type Validator struct {
	Name  string
	Check func(a *Arg) error
}

// Action is a named side effect run after a value passed validation.
type Action struct {
	Name string
	Run  func(a *Arg)
}

// Arg is one declared argument of an algorithm together with its
// value. Declaration setters return the receiver so that declarations
// read as one chain:
//
//	b.AddArg("band", 'b', "Band number", TypeInteger).
//	    SetMinValueIncluded(1).
//	    SetCategory(CategoryAdvanced)
type Arg struct {
	name          string
	shortName     rune
	aliases       []string
	hiddenAliases []string
	description   string
	metaVar       string
	typ           ArgType

	minCount, maxCount int
	required           bool
	positional         bool
	choices            []string
	hiddenChoices      []string

	minValue, maxValue         float64
	hasMinValue, hasMaxValue   bool
	minIncluded, maxIncluded   bool
	minCharCount               int
	mutualExclusionGroup       string
	category                   string
	isInput, isOutput          bool
	packedValuesAllowed        bool
	repeatedArgAllowed         bool
	displayHintAboutRepetition bool
	hidden                     bool
	hiddenForCLI               bool
	onlyForCLI                 bool
	hasDefault                 bool
	defaultValue               any
	metadata                   map[string][]string
	metadataOrder              []string

	datasetKinds dataset.Kind
	inputFlags   IOFlags
	outputFlags  IOFlags
	autoOpen     bool

	value      any
	explicit   bool
	validators []Validator
	actions    []Action

	owner *Base
}

func newArg(name string, shortName rune, description string, typ ArgType) *Arg {
	a := &Arg{
		name:                       name,
		shortName:                  shortName,
		description:                description,
		typ:                        typ,
		minCount:                   1,
		maxCount:                   1,
		category:                   CategoryBase,
		isInput:                    true,
		displayHintAboutRepetition: true,
		autoOpen:                   true,
	}
	if typ.IsList() {
		a.minCount = 0
		a.maxCount = Unbounded
		a.packedValuesAllowed = true
		a.repeatedArgAllowed = true
	}
	if typ != TypeBoolean {
		a.metaVar = strings.ToUpper(name)
	}
	if typ == TypeDataset || typ == TypeDatasetList {
		a.datasetKinds = dataset.Raster | dataset.Vector
		a.inputFlags = FlagName | FlagObject
		a.outputFlags = FlagObject
	}
	a.value = zeroValue(typ)
	return a
}

func zeroValue(typ ArgType) any {
	switch typ {
	case TypeBoolean:
		return false
	case TypeString:
		return ""
	case TypeInteger:
		return 0
	case TypeReal:
		return 0.0
	case TypeDataset:
		return &DatasetHandle{}
	case TypeStringList:
		return []string(nil)
	case TypeIntegerList:
		return []int(nil)
	case TypeRealList:
		return []float64(nil)
	case TypeDatasetList:
		return []*DatasetHandle(nil)
	}
	return nil
}

// Declaration accessors.

func (a *Arg) Name() string            { return a.name }
func (a *Arg) ShortName() rune         { return a.shortName }
func (a *Arg) Aliases() []string       { return a.aliases }
func (a *Arg) HiddenAliases() []string { return a.hiddenAliases }
func (a *Arg) Description() string     { return a.description }
func (a *Arg) MetaVar() string         { return a.metaVar }
func (a *Arg) Type() ArgType           { return a.typ }
func (a *Arg) MinCount() int           { return a.minCount }
func (a *Arg) MaxCount() int           { return a.maxCount }
func (a *Arg) IsRequired() bool        { return a.required }
func (a *Arg) IsPositional() bool      { return a.positional }
func (a *Arg) Choices() []string       { return a.choices }
func (a *Arg) HiddenChoices() []string { return a.hiddenChoices }
func (a *Arg) Category() string        { return a.category }
func (a *Arg) IsInput() bool           { return a.isInput }
func (a *Arg) IsOutput() bool          { return a.isOutput }
func (a *Arg) IsHidden() bool          { return a.hidden }
func (a *Arg) IsHiddenForCLI() bool    { return a.hidden || a.hiddenForCLI }
func (a *Arg) IsOnlyForCLI() bool      { return a.onlyForCLI }
func (a *Arg) HasDefault() bool        { return a.hasDefault }
func (a *Arg) Default() any            { return a.defaultValue }
func (a *Arg) MutualExclusionGroup() string {
	return a.mutualExclusionGroup
}
func (a *Arg) PackedValuesAllowed() bool { return a.packedValuesAllowed }
func (a *Arg) RepeatedArgAllowed() bool  { return a.repeatedArgAllowed }
func (a *Arg) DatasetKinds() dataset.Kind {
	return a.datasetKinds
}
func (a *Arg) InputFlags() IOFlags  { return a.inputFlags }
func (a *Arg) OutputFlags() IOFlags { return a.outputFlags }
func (a *Arg) AutoOpen() bool       { return a.autoOpen }

// MinValue returns the lower bound and whether it is inclusive. ok is
// false when no bound is declared.
func (a *Arg) MinValue() (value float64, included, ok bool) {
	return a.minValue, a.minIncluded, a.hasMinValue
}

// MaxValue returns the upper bound and whether it is inclusive.
func (a *Arg) MaxValue() (value float64, included, ok bool) {
	return a.maxValue, a.maxIncluded, a.hasMaxValue
}

// Metadata returns the values of a metadata item.
func (a *Arg) Metadata(key string) ([]string, bool) {
	values, ok := a.metadata[key]
	return values, ok
}

// IsCreatedByAlgorithm reports whether a dataset argument only
// receives an object produced by its algorithm.
func (a *Arg) IsCreatedByAlgorithm() bool {
	return a.inputFlags == FlagName && a.outputFlags == FlagObject
}

// Declaration setters.

func (a *Arg) AddAlias(alias string) *Arg {
	a.aliases = append(a.aliases, alias)
	if a.owner != nil {
		a.owner.registerAlias(a, alias)
	}
	return a
}

func (a *Arg) AddHiddenAlias(alias string) *Arg {
	a.hiddenAliases = append(a.hiddenAliases, alias)
	if a.owner != nil {
		a.owner.registerAlias(a, alias)
	}
	return a
}

func (a *Arg) SetMetaVar(metaVar string) *Arg {
	a.metaVar = metaVar
	return a
}

func (a *Arg) SetDescription(description string) *Arg {
	a.description = description
	return a
}

// SetMinCount sets the minimum number of values of a list argument.
func (a *Arg) SetMinCount(count int) *Arg {
	if !a.typ.IsList() {
		a.declarationError("SetMinCount() illegal on scalar argument '%s'", a.name)
		return a
	}
	a.minCount = count
	return a
}

// SetMaxCount sets the maximum number of values of a list argument.
func (a *Arg) SetMaxCount(count int) *Arg {
	if !a.typ.IsList() {
		a.declarationError("SetMaxCount() illegal on scalar argument '%s'", a.name)
		return a
	}
	a.maxCount = count
	return a
}

func (a *Arg) SetRequired() *Arg {
	a.required = true
	return a
}

// SetPositional marks the argument as filled by leftover tokens, in
// declaration order.
func (a *Arg) SetPositional() *Arg {
	if a.positional {
		return a
	}
	a.positional = true
	if a.owner != nil {
		a.owner.addPositional(a)
	}
	return a
}

func (a *Arg) SetChoices(choices ...string) *Arg {
	a.choices = choices
	return a
}

// SetHiddenChoices adds accepted values that usage does not list.
func (a *Arg) SetHiddenChoices(choices ...string) *Arg {
	a.hiddenChoices = choices
	return a
}

func (a *Arg) SetMinValueIncluded(v float64) *Arg {
	a.minValue, a.minIncluded, a.hasMinValue = v, true, true
	return a
}

func (a *Arg) SetMinValueExcluded(v float64) *Arg {
	a.minValue, a.minIncluded, a.hasMinValue = v, false, true
	return a
}

func (a *Arg) SetMaxValueIncluded(v float64) *Arg {
	a.maxValue, a.maxIncluded, a.hasMaxValue = v, true, true
	return a
}

func (a *Arg) SetMaxValueExcluded(v float64) *Arg {
	a.maxValue, a.maxIncluded, a.hasMaxValue = v, false, true
	return a
}

// SetMinCharCount sets the minimum length of string values.
func (a *Arg) SetMinCharCount(count int) *Arg {
	a.minCharCount = count
	return a
}

func (a *Arg) SetMutualExclusionGroup(group string) *Arg {
	a.mutualExclusionGroup = group
	return a
}

func (a *Arg) SetCategory(category string) *Arg {
	a.category = category
	return a
}

func (a *Arg) SetIsInput(input bool) *Arg {
	a.isInput = input
	return a
}

func (a *Arg) SetIsOutput(output bool) *Arg {
	a.isOutput = output
	return a
}

func (a *Arg) SetPackedValuesAllowed(allowed bool) *Arg {
	a.packedValuesAllowed = allowed
	return a
}

func (a *Arg) SetRepeatedArgAllowed(allowed bool) *Arg {
	a.repeatedArgAllowed = allowed
	return a
}

func (a *Arg) SetDisplayHintAboutRepetition(display bool) *Arg {
	a.displayHintAboutRepetition = display
	return a
}

// SetHidden hides the argument from every usage output.
func (a *Arg) SetHidden() *Arg {
	a.hidden = true
	return a
}

// SetHiddenForCLI hides the argument from text usage and rejects it on
// the command line; it stays available programmatically.
func (a *Arg) SetHiddenForCLI() *Arg {
	a.hiddenForCLI = true
	return a
}

// SetOnlyForCLI omits the argument from JSON usage and descriptors.
func (a *Arg) SetOnlyForCLI() *Arg {
	a.onlyForCLI = true
	return a
}

func (a *Arg) SetDatasetKinds(kinds dataset.Kind) *Arg {
	a.datasetKinds = kinds
	return a
}

func (a *Arg) SetDatasetInputFlags(flags IOFlags) *Arg {
	a.inputFlags = flags
	return a
}

func (a *Arg) SetDatasetOutputFlags(flags IOFlags) *Arg {
	a.outputFlags = flags
	return a
}

// SetAutoOpen controls whether validation opens a named dataset.
func (a *Arg) SetAutoOpen(autoOpen bool) *Arg {
	a.autoOpen = autoOpen
	return a
}

// AddMetadataItem attaches free-form metadata, listed in JSON usage.
func (a *Arg) AddMetadataItem(key string, values ...string) *Arg {
	if a.metadata == nil {
		a.metadata = map[string][]string{}
	}
	if _, ok := a.metadata[key]; !ok {
		a.metadataOrder = append(a.metadataOrder, key)
	}
	a.metadata[key] = values
	return a
}

// SetDefault sets the default value. The value is coerced as by Set
// and becomes the current value without marking the argument as
// explicitly set.
func (a *Arg) SetDefault(v any) *Arg {
	coerced, err := a.coerce(v)
	if err != nil {
		a.declarationError("%v", err)
		return a
	}
	if !a.explicit {
		a.value = coerced
	}
	a.defaultValue = coerced
	a.hasDefault = true
	return a
}

// AddValidator appends a named validator.
func (a *Arg) AddValidator(name string, check func(a *Arg) error) *Arg {
	a.validators = append(a.validators, Validator{Name: name, Check: check})
	return a
}

// AddAction appends a named side effect.
func (a *Arg) AddAction(name string, run func(a *Arg)) *Arg {
	a.actions = append(a.actions, Action{Name: name, Run: run})
	return a
}

func (a *Arg) declarationError(format string, args ...any) {
	if a.owner != nil {
		a.owner.declarationError(format, args...)
	}
}

// Value accessors.

// IsExplicitlySet reports whether a value was assigned by Set, SetFrom
// or command-line parsing, as opposed to a default.
func (a *Arg) IsExplicitlySet() bool { return a.explicit }

// Value returns the current payload: bool, string, int, float64,
// *DatasetHandle, []string, []int, []float64 or []*DatasetHandle.
func (a *Arg) Value() any { return a.value }

func (a *Arg) Bool() bool {
	v, _ := a.value.(bool)
	return v
}

func (a *Arg) String() string {
	v, _ := a.value.(string)
	return v
}

func (a *Arg) Int() int {
	v, _ := a.value.(int)
	return v
}

func (a *Arg) Float() float64 {
	v, _ := a.value.(float64)
	return v
}

// Dataset returns the handle of a dataset argument. A successful Set
// replaces the handle; fetch it again after setting.
func (a *Arg) Dataset() *DatasetHandle {
	v, _ := a.value.(*DatasetHandle)
	return v
}

func (a *Arg) Strings() []string {
	v, _ := a.value.([]string)
	return v
}

func (a *Arg) Ints() []int {
	v, _ := a.value.([]int)
	return v
}

func (a *Arg) Floats() []float64 {
	v, _ := a.value.([]float64)
	return v
}

func (a *Arg) Datasets() []*DatasetHandle {
	v, _ := a.value.([]*DatasetHandle)
	return v
}

// Count returns the number of values held by a list argument, or 1
// for a scalar.
func (a *Arg) Count() int {
	switch v := a.value.(type) {
	case []string:
		return len(v)
	case []int:
		return len(v)
	case []float64:
		return len(v)
	case []*DatasetHandle:
		return len(v)
	}
	return 1
}

// Set assigns v after coercion and validation. On failure nothing
// changes: the previous value and explicit bit stay, and no action
// runs.
func (a *Arg) Set(v any) error {
	if a.explicit && !a.typ.IsList() && !a.repeatedArgAllowed {
		return fmt.Errorf("Argument '%s' has already been specified.", a.name)
	}
	if ds, ok := v.(*dataset.Dataset); ok && a.IsCreatedByAlgorithm() {
		return fmt.Errorf("Dataset object '%s' is created by algorithm and cannot be set as an input.", ds.Name())
	}
	coerced, err := a.coerce(v)
	if err != nil {
		return err
	}
	return a.commit(coerced)
}

// SetFrom copies other's value into a. Scalars are copied by value;
// dataset objects are shared.
func (a *Arg) SetFrom(other *Arg) error {
	if a.typ != other.typ {
		return fmt.Errorf("Calling SetFrom() on argument '%s' of type %s whereas other argument type is %s is not supported",
			a.name, a.typ, other.typ)
	}
	return a.Set(other.value)
}

// Forward clears dst's explicit bit, then sets it from src. It is the
// one sanctioned way to overwrite an explicitly set scalar, used when
// an outer algorithm hands its arguments to an inner one.
func Forward(src, dst *Arg) error {
	explicit := dst.explicit
	dst.explicit = false
	if err := dst.SetFrom(src); err != nil {
		dst.explicit = explicit
		return err
	}
	return nil
}

// Reset restores the default, or the zero value, and clears the
// explicit bit. Dataset objects held by the previous value are
// released.
func (a *Arg) Reset() error {
	previous := a.value
	if a.hasDefault {
		a.value = a.defaultValue
	} else {
		a.value = zeroValue(a.typ)
	}
	a.explicit = false
	return closeValue(previous)
}

func (a *Arg) commit(v any) error {
	previous, explicit := a.value, a.explicit
	a.value, a.explicit = v, true
	if err := a.validate(); err != nil {
		a.value, a.explicit = previous, explicit
		_ = closeValue(v)
		return err
	}
	_ = closeValue(previous)
	for _, action := range a.actions {
		action.Run(a)
	}
	return nil
}

func closeValue(v any) error {
	switch v := v.(type) {
	case *DatasetHandle:
		return v.Close()
	case []*DatasetHandle:
		var firstErr error
		for _, h := range v {
			if err := h.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}
	return nil
}

// validate runs the built-in checks then the registered validators
// against the current value.
func (a *Arg) validate() error {
	if err := a.checkRange(); err != nil {
		return err
	}
	if err := a.checkCharCount(); err != nil {
		return err
	}
	if err := a.checkCount(); err != nil {
		return err
	}
	for _, validator := range a.validators {
		if err := validator.Check(a); err != nil {
			return err
		}
	}
	return nil
}

func (a *Arg) checkRange() error {
	if !a.hasMinValue && !a.hasMaxValue {
		return nil
	}
	var values []float64
	switch v := a.value.(type) {
	case int:
		values = []float64{float64(v)}
	case float64:
		values = []float64{v}
	case []int:
		for _, x := range v {
			values = append(values, float64(x))
		}
	case []float64:
		values = v
	default:
		return nil
	}
	for _, v := range values {
		if a.hasMinValue {
			if a.minIncluded && !(v >= a.minValue) {
				return fmt.Errorf("Value of argument '%s' is %s, but should be >= %s", a.name, formatReal(v), formatReal(a.minValue))
			}
			if !a.minIncluded && !(v > a.minValue) {
				return fmt.Errorf("Value of argument '%s' is %s, but should be > %s", a.name, formatReal(v), formatReal(a.minValue))
			}
		}
		if a.hasMaxValue {
			if a.maxIncluded && !(v <= a.maxValue) {
				return fmt.Errorf("Value of argument '%s' is %s, but should be <= %s", a.name, formatReal(v), formatReal(a.maxValue))
			}
			if !a.maxIncluded && !(v < a.maxValue) {
				return fmt.Errorf("Value of argument '%s' is %s, but should be < %s", a.name, formatReal(v), formatReal(a.maxValue))
			}
		}
	}
	return nil
}

func (a *Arg) checkCharCount() error {
	if a.minCharCount <= 0 {
		return nil
	}
	var values []string
	switch v := a.value.(type) {
	case string:
		values = []string{v}
	case []string:
		values = v
	}
	for _, v := range values {
		if utf8.RuneCountInString(v) < a.minCharCount {
			return fmt.Errorf("Value of argument '%s' is '%s', but should have at least %d character(s)", a.name, v, a.minCharCount)
		}
	}
	return nil
}

func (a *Arg) checkCount() error {
	if !a.typ.IsList() {
		return nil
	}
	count := a.Count()
	switch {
	case a.minCount == a.maxCount && count != a.minCount:
		return fmt.Errorf("%s specified for argument '%s', whereas exactly %d were expected.",
			countPhrase(count), a.name, a.minCount)
	case count < a.minCount:
		return fmt.Errorf("Only %s specified for argument '%s', whereas at least %d were expected.",
			countPhrase(count), a.name, a.minCount)
	case count > a.maxCount:
		return fmt.Errorf("%s specified for argument '%s', whereas at most %d were expected.",
			countPhrase(count), a.name, a.maxCount)
	}
	return nil
}

func countPhrase(count int) string {
	if count == 1 {
		return "1 value has been"
	}
	return strconv.Itoa(count) + " values have been"
}

func formatReal(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// coerce converts v to the payload type of a, canonicalizing choice
// values. The result never aliases caller-owned slices.
func (a *Arg) coerce(v any) (any, error) {
	unsupported := func() error {
		return fmt.Errorf("Calling Set(%T) on argument '%s' of type %s is not supported", v, a.name, a.typ)
	}

	switch a.typ {
	case TypeBoolean:
		switch v := v.(type) {
		case bool:
			return v, nil
		case string:
			if b, ok := parseBool(v); ok {
				return b, nil
			}
			return nil, fmt.Errorf("Invalid value '%s' for boolean argument '%s'. Should be 'true' or 'false'.", v, a.name)
		case []bool:
			if len(v) == 1 {
				return v[0], nil
			}
		case []string:
			if len(v) == 1 {
				return a.coerce(v[0])
			}
		}
		return nil, unsupported()

	case TypeString:
		var s string
		switch v := v.(type) {
		case string:
			s = v
		case []string:
			if len(v) != 1 {
				return nil, unsupported()
			}
			s = v[0]
		default:
			return nil, unsupported()
		}
		return a.canonicalChoice(s)

	case TypeInteger:
		switch v := v.(type) {
		case int:
			return v, nil
		case int32:
			return int(v), nil
		case int64:
			if v < math.MinInt32 || v > math.MaxInt32 {
				return nil, fmt.Errorf("Value %d is out of range for integer argument '%s'", v, a.name)
			}
			return int(v), nil
		case string:
			n, err := parseInt(v)
			if err != nil {
				return nil, fmt.Errorf("Expected integer value for argument '%s', but got '%s'.", a.name, v)
			}
			return n, nil
		case []int:
			if len(v) == 1 {
				return v[0], nil
			}
		case []string:
			if len(v) == 1 {
				return a.coerce(v[0])
			}
		}
		return nil, unsupported()

	case TypeReal:
		switch v := v.(type) {
		case float64:
			return v, nil
		case float32:
			return float64(v), nil
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		case string:
			f, err := parseReal(v)
			if err != nil {
				return nil, fmt.Errorf("Expected real value for argument '%s', but got '%s'.", a.name, v)
			}
			return f, nil
		case []float64:
			if len(v) == 1 {
				return v[0], nil
			}
		case []int:
			if len(v) == 1 {
				return float64(v[0]), nil
			}
		case []string:
			if len(v) == 1 {
				return a.coerce(v[0])
			}
		}
		return nil, unsupported()

	case TypeDataset:
		switch v := v.(type) {
		case string:
			return NewDatasetHandle(v), nil
		case *dataset.Dataset:
			return HandleFor(v), nil
		case *DatasetHandle:
			h := &DatasetHandle{}
			h.SetFrom(v)
			return h, nil
		case []string:
			if len(v) == 1 {
				return NewDatasetHandle(v[0]), nil
			}
		case []*DatasetHandle:
			if len(v) == 1 {
				return a.coerce(v[0])
			}
		}
		return nil, unsupported()

	case TypeStringList:
		switch v := v.(type) {
		case string:
			return a.canonicalChoices([]string{v})
		case []string:
			return a.canonicalChoices(v)
		}
		return nil, unsupported()

	case TypeIntegerList:
		switch v := v.(type) {
		case int:
			return []int{v}, nil
		case []int:
			return slices.Clone(v), nil
		case string:
			return a.coerce([]string{v})
		case []string:
			out := make([]int, 0, len(v))
			for _, s := range v {
				n, err := parseInt(s)
				if err != nil {
					return nil, fmt.Errorf("Expected list of integer value for argument '%s', but got '%s'.", a.name, s)
				}
				out = append(out, n)
			}
			return out, nil
		}
		return nil, unsupported()

	case TypeRealList:
		switch v := v.(type) {
		case float64:
			return []float64{v}, nil
		case int:
			return []float64{float64(v)}, nil
		case []float64:
			return slices.Clone(v), nil
		case []int:
			out := make([]float64, len(v))
			for i, n := range v {
				out[i] = float64(n)
			}
			return out, nil
		case string:
			return a.coerce([]string{v})
		case []string:
			out := make([]float64, 0, len(v))
			for _, s := range v {
				f, err := parseReal(s)
				if err != nil {
					return nil, fmt.Errorf("Expected list of real value for argument '%s', but got '%s'.", a.name, s)
				}
				out = append(out, f)
			}
			return out, nil
		}
		return nil, unsupported()

	case TypeDatasetList:
		switch v := v.(type) {
		case string:
			return []*DatasetHandle{NewDatasetHandle(v)}, nil
		case []string:
			out := make([]*DatasetHandle, len(v))
			for i, name := range v {
				out[i] = NewDatasetHandle(name)
			}
			return out, nil
		case *dataset.Dataset:
			return []*DatasetHandle{HandleFor(v)}, nil
		case *DatasetHandle:
			h := &DatasetHandle{}
			h.SetFrom(v)
			return []*DatasetHandle{h}, nil
		case []*DatasetHandle:
			out := make([]*DatasetHandle, len(v))
			for i, other := range v {
				out[i] = &DatasetHandle{}
				out[i].SetFrom(other)
			}
			return out, nil
		}
		return nil, unsupported()
	}
	return nil, unsupported()
}

func (a *Arg) canonicalChoice(s string) (string, error) {
	if len(a.choices) == 0 {
		return s, nil
	}
	for _, choice := range a.choices {
		if strings.EqualFold(choice, s) {
			return choice, nil
		}
	}
	for _, choice := range a.hiddenChoices {
		if strings.EqualFold(choice, s) {
			return choice, nil
		}
	}
	quoted := make([]string, len(a.choices))
	for i, choice := range a.choices {
		quoted[i] = "'" + choice + "'"
	}
	return "", fmt.Errorf("Invalid value '%s' for string argument '%s'. Should be one among %s.",
		s, a.name, strings.Join(quoted, ", "))
}

func (a *Arg) canonicalChoices(values []string) ([]string, error) {
	out := make([]string, len(values))
	for i, v := range values {
		c, err := a.canonicalChoice(v)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true", "1", "yes", "on":
		return true, true
	case "false", "0", "no", "off":
		return false, true
	}
	return false, false
}

func parseInt(s string) (int, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func parseReal(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
