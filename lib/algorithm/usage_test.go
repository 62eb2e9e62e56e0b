// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package algorithm

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/bureau-foundation/geoalg/lib/dataset"
)

func newInfoAlg() *testAlg {
	return newTestAlg("info", func(b *Base) {
		b.AddInputDatasetArg(dataset.Raster, true)
		b.AddArg("format", 0, "Output format", TypeString).SetChoices("text", "json").SetDefault("text")
		b.AddArg("band", 'b', "Band number", TypeInteger).SetMinValueIncluded(1)
		b.AddArg("stats", 0, "Compute statistics", TypeBoolean).SetMutualExclusionGroup("compute")
		b.AddArg("checksum", 0, "Compute checksum", TypeBoolean).SetMutualExclusionGroup("compute")
		b.AddArg("size", 0, "Size", TypeIntegerList).SetMinCount(2).SetMaxCount(2).SetCategory(CategoryAdvanced)
		b.AddArg("tag", 0, "Tag", TypeStringList).SetCategory("Tagging")
		b.AddArg("debug-level", 0, "Debug level", TypeInteger).SetCategory(CategoryEsoteric)
	})
}

func TestUsage_FullText(t *testing.T) {
	usage := Usage(newInfoAlg(), false)
	for _, want := range []string{
		"Usage: info [OPTIONS] <INPUT>\n",
		"\nTest algorithm.\n",
		"\nPositional arguments:\n  -i, --input <INPUT>",
		"Input raster dataset [required]\n",
		"\nCommon Options:\n  -h, --help",
		"\nOptions:\n",
		". FORMAT=text|json (default: text)\n",
		"Mutually exclusive with --checksum\n",
		"\nAdvanced Options:\n",
		"Size [2 values]\n",
		"\nTagging Options:\n",
		"Tag [may be repeated]\n",
		"\nEsoteric Options:\n",
		"\nFor more details, consult https://geoalg.bureau.foundation/programs/info.html\n",
	} {
		if !strings.Contains(usage, want) {
			t.Errorf("usage lacks %q:\n%s", want, usage)
		}
	}
	if strings.Contains(usage, "help-doc") {
		t.Error("hidden argument listed")
	}
	order := []string{"Common Options:", "\nOptions:", "Advanced Options:", "Tagging Options:", "Esoteric Options:"}
	last := -1
	for _, section := range order {
		index := strings.Index(usage, section)
		if index < last {
			t.Errorf("section %q out of order", section)
		}
		last = index
	}
}

func TestUsage_ShortText(t *testing.T) {
	usage := Usage(newInfoAlg(), true)
	want := "Usage: info [OPTIONS] <INPUT>\nTry 'info --help' for help.\n"
	if usage != want {
		t.Errorf("usage = %q, want %q", usage, want)
	}
}

func TestUsage_PipelineStepOmitsCommonOptions(t *testing.T) {
	usage := UsageWith(newInfoAlg(), false, UsageOptions{PipelineStep: true})
	if !strings.HasPrefix(usage, "* info [OPTIONS] <INPUT>\n-----") {
		t.Errorf("usage header = %q", usage[:min(len(usage), 60)])
	}
	if strings.Contains(usage, "Common Options:") {
		t.Error("pipeline step usage lists Common options")
	}
}

func TestUsage_ChildListing(t *testing.T) {
	root := newGroup("geoalg")
	root.AddChild("raster", func() Algorithm { return newGroup("raster") }, "r")
	root.AddChild("vector", func() Algorithm { return newGroup("vector") })
	usage := Usage(root, true)
	for _, want := range []string{
		"Usage: geoalg <COMMAND> [OPTIONS]\n",
		"where <COMMAND> is one of:\n",
		"  - raster: Group. (alias: r)\n",
		"  - vector: Group.\n",
		"Try 'geoalg --help' for help.\n",
	} {
		if !strings.Contains(usage, want) {
			t.Errorf("usage lacks %q:\n%s", want, usage)
		}
	}
}

func TestRun_HelpPrintsUsage(t *testing.T) {
	alg := newInfoAlg()
	if _, err := ParseCommandLine(alg, []string{"--help"}); err != nil {
		t.Fatal(err)
	}
	if err := Run(context.Background(), alg, nil); err != nil {
		t.Fatal(err)
	}
	if alg.runs != 0 {
		t.Error("algorithm ran on --help")
	}
	if !strings.HasPrefix(alg.stdout(), "Usage: info") {
		t.Errorf("stdout = %q", alg.stdout())
	}
}

func TestUsageJSON_Document(t *testing.T) {
	document, err := UsageJSON(newInfoAlg())
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(document, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["name"] != "info" || decoded["url"] != "https://geoalg.bureau.foundation/programs/info.html" {
		t.Errorf("name = %v url = %v", decoded["name"], decoded["url"])
	}

	var doc UsageDocument
	if err := json.Unmarshal(document, &doc); err != nil {
		t.Fatal(err)
	}
	args := map[string]ArgumentUsage{}
	for _, arg := range doc.InputArguments {
		args[arg.Name] = arg
	}
	if _, ok := args["config"]; ok {
		t.Error("CLI-only argument listed")
	}
	input, ok := args["input"]
	if !ok {
		t.Fatal("input argument missing")
	}
	if input.Type != "dataset" || !input.Required || len(input.DatasetType) != 1 || input.DatasetType[0] != "raster" {
		t.Errorf("input = %+v", input)
	}
	band := args["band"]
	if band.MinValue == nil || *band.MinValue != 1 || band.MinValueIsIncluded == nil || !*band.MinValueIsIncluded {
		t.Errorf("band = %+v", band)
	}
	if args["format"].Default != "text" {
		t.Errorf("format default = %v", args["format"].Default)
	}
	size := args["size"]
	if size.MinCount == nil || *size.MinCount != 2 || size.MaxCount == nil || *size.MaxCount != 2 {
		t.Errorf("size = %+v", size)
	}
	if args["tag"].MaxCount != nil {
		t.Error("unbounded list reports max_count")
	}
}
