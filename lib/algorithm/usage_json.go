// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package algorithm

import (
	"encoding/json"
)

// UsageDocument is the --json-usage description of an algorithm.
type UsageDocument struct {
	Name                 string            `json:"name"`
	FullPath             []string          `json:"full_path"`
	Description          string            `json:"description"`
	ShortURL             string            `json:"short_url,omitempty"`
	URL                  string            `json:"url,omitempty"`
	SubAlgorithms        []UsageDocument   `json:"sub_algorithms"`
	InputArguments       []ArgumentUsage   `json:"input_arguments"`
	OutputArguments      []ArgumentUsage   `json:"output_arguments"`
	InputOutputArguments []ArgumentUsage   `json:"input_output_arguments"`
	PipelineAlgorithms   []UsageDocument   `json:"pipeline_algorithms,omitempty"`
}

// ArgumentUsage describes one argument in a UsageDocument.
type ArgumentUsage struct {
	Name                 string              `json:"name"`
	Type                 string              `json:"type"`
	Description          string              `json:"description"`
	Alias                []string            `json:"alias,omitempty"`
	ShortAlias           []string            `json:"short_alias,omitempty"`
	MetaVar              string              `json:"metavar,omitempty"`
	Choices              []string            `json:"choices,omitempty"`
	Default              any                 `json:"default,omitempty"`
	MinValue             *float64            `json:"min_value,omitempty"`
	MinValueIsIncluded   *bool               `json:"min_value_is_included,omitempty"`
	MaxValue             *float64            `json:"max_value,omitempty"`
	MaxValueIsIncluded   *bool               `json:"max_value_is_included,omitempty"`
	Required             bool                `json:"required"`
	PackedValuesAllowed  *bool               `json:"packed_values_allowed,omitempty"`
	RepeatedArgAllowed   *bool               `json:"repeated_arg_allowed,omitempty"`
	MinCount             *int                `json:"min_count,omitempty"`
	MaxCount             *int                `json:"max_count,omitempty"`
	Category             string              `json:"category"`
	MutualExclusionGroup string              `json:"mutual_exclusion_group,omitempty"`
	DatasetType          []string            `json:"dataset_type,omitempty"`
	InputFlags           []string            `json:"input_flags,omitempty"`
	OutputFlags          []string            `json:"output_flags,omitempty"`
	Metadata             map[string][]string `json:"metadata,omitempty"`
}

// UsageDocumentExtender is implemented by algorithms that add to their
// JSON usage, such as pipelines listing their steps.
type UsageDocumentExtender interface {
	ExtendUsageDocument(doc *UsageDocument)
}

// BuildUsageDocument describes alg and its sub-algorithms.
func BuildUsageDocument(alg Algorithm) UsageDocument {
	b := alg.Core()
	doc := UsageDocument{
		Name:                 b.name,
		FullPath:             append([]string(nil), b.callPath...),
		Description:          b.description,
		SubAlgorithms:        []UsageDocument{},
		InputArguments:       []ArgumentUsage{},
		OutputArguments:      []ArgumentUsage{},
		InputOutputArguments: []ArgumentUsage{},
	}
	if b.helpURL != "" {
		doc.ShortURL = b.helpURL
		doc.URL = b.HelpFullURL()
	}

	for _, name := range b.ChildNames() {
		child, err := b.InstantiateChild(name)
		if err != nil {
			continue
		}
		doc.SubAlgorithms = append(doc.SubAlgorithms, BuildUsageDocument(child))
	}

	for _, a := range b.args {
		if a.IsHidden() || a.IsOnlyForCLI() {
			continue
		}
		usage := argumentUsage(a)
		switch {
		case a.isInput && a.isOutput:
			doc.InputOutputArguments = append(doc.InputOutputArguments, usage)
		case a.isOutput:
			doc.OutputArguments = append(doc.OutputArguments, usage)
		default:
			doc.InputArguments = append(doc.InputArguments, usage)
		}
	}

	if extender, ok := alg.(UsageDocumentExtender); ok {
		extender.ExtendUsageDocument(&doc)
	}
	return doc
}

func argumentUsage(a *Arg) ArgumentUsage {
	usage := ArgumentUsage{
		Name:                 a.name,
		Type:                 a.typ.String(),
		Description:          a.description,
		Alias:                a.aliases,
		MetaVar:              a.metaVar,
		Choices:              a.choices,
		Required:             a.required,
		Category:             a.category,
		MutualExclusionGroup: a.mutualExclusionGroup,
	}
	if a.shortName != 0 {
		usage.ShortAlias = []string{string(a.shortName)}
	}
	if a.hasDefault && !a.typ.IsList() {
		usage.Default = a.defaultValue
	}
	if a.hasMinValue {
		v, included := a.minValue, a.minIncluded
		usage.MinValue, usage.MinValueIsIncluded = &v, &included
	}
	if a.hasMaxValue {
		v, included := a.maxValue, a.maxIncluded
		usage.MaxValue, usage.MaxValueIsIncluded = &v, &included
	}
	if a.typ.IsList() {
		packed, repeated := a.packedValuesAllowed, a.repeatedArgAllowed
		usage.PackedValuesAllowed, usage.RepeatedArgAllowed = &packed, &repeated
		minCount, maxCount := a.minCount, a.maxCount
		usage.MinCount = &minCount
		if maxCount < Unbounded {
			usage.MaxCount = &maxCount
		}
	}
	if a.typ == TypeDataset || a.typ == TypeDatasetList {
		usage.DatasetType = a.datasetKinds.Names()
		usage.InputFlags = a.inputFlags.Names()
		usage.OutputFlags = a.outputFlags.Names()
	}
	if len(a.metadataOrder) > 0 {
		usage.Metadata = map[string][]string{}
		for _, key := range a.metadataOrder {
			usage.Metadata[key] = a.metadata[key]
		}
	}
	return usage
}

// UsageJSON returns the indented JSON usage document of alg.
func UsageJSON(alg Algorithm) ([]byte, error) {
	document, err := json.MarshalIndent(BuildUsageDocument(alg), "", "  ")
	if err != nil {
		return nil, alg.Core().newError(KindSerialization, err)
	}
	return append(document, '\n'), nil
}
