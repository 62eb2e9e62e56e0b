// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package algorithm

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/bureau-foundation/geoalg/lib/dataset"
)

func parseErr(t *testing.T, alg Algorithm, args ...string) error {
	t.Helper()
	_, err := ParseCommandLine(alg, args)
	if err == nil {
		t.Fatalf("ParseCommandLine(%q) succeeded, want error", args)
	}
	return err
}

func TestParse_PackedAndRepeatedListsAreEquivalent(t *testing.T) {
	declare := func(b *Base) {
		b.AddArg("field", 0, "Field", TypeStringList)
	}
	packed := newTestAlg("t", declare)
	if _, err := ParseCommandLine(packed, []string{"--field=a,b", "--field", "c"}); err != nil {
		t.Fatalf("packed: %v", err)
	}
	repeated := newTestAlg("t", declare)
	if _, err := ParseCommandLine(repeated, []string{"--field", "a", "--field=b", "--field", "c"}); err != nil {
		t.Fatalf("repeated: %v", err)
	}
	want := []string{"a", "b", "c"}
	if got := packed.Arg("field").Strings(); !slices.Equal(got, want) {
		t.Errorf("packed = %v, want %v", got, want)
	}
	if got := repeated.Arg("field").Strings(); !slices.Equal(got, want) {
		t.Errorf("repeated = %v, want %v", got, want)
	}
}

func TestParse_QuotedPackedValueKeepsComma(t *testing.T) {
	alg := newTestAlg("t", func(b *Base) {
		b.AddArg("field", 0, "Field", TypeStringList)
	})
	if _, err := ParseCommandLine(alg, []string{`--field="a,b",c`}); err != nil {
		t.Fatal(err)
	}
	want := []string{"a,b", "c"}
	if got := alg.Arg("field").Strings(); !slices.Equal(got, want) {
		t.Errorf("Strings = %q, want %q", got, want)
	}
}

func TestParse_UnknownOptionSuggests(t *testing.T) {
	alg := newTestAlg("info", func(b *Base) {
		b.AddArg("format", 0, "Format", TypeString)
	})
	err := parseErr(t, alg, "--formta", "json")
	want := "info: Option '--formta' is unknown. Do you mean '--format'?"
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err, want)
	}
	if KindOf(err) != KindParse {
		t.Errorf("KindOf = %s, want parse", KindOf(err))
	}
}

func TestParse_UnknownShortOptionSuggestsLongName(t *testing.T) {
	alg := newTestAlg("convert", func(b *Base) {
		b.AddArg("of", 0, "Output format", TypeString)
	})
	err := parseErr(t, alg, "-of", "GRC")
	want := "convert: Short name option 'o' is unknown. Do you mean '--of' (with leading double dash) ?"
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err, want)
	}
}

func TestParse_ShortBooleanCluster(t *testing.T) {
	alg := newTestAlg("t", func(b *Base) {
		b.AddArg("all", 'a', "All", TypeBoolean)
		b.AddArg("quiet", 'q', "Quiet", TypeBoolean)
		b.AddArg("band", 'b', "Band", TypeInteger)
	})
	if _, err := ParseCommandLine(alg, []string{"-aqb", "2"}); err != nil {
		t.Fatal(err)
	}
	if !alg.Arg("all").Bool() || !alg.Arg("quiet").Bool() || alg.Arg("band").Int() != 2 {
		t.Errorf("all=%v quiet=%v band=%d", alg.Arg("all").Bool(), alg.Arg("quiet").Bool(), alg.Arg("band").Int())
	}
}

func TestParse_MissingValue(t *testing.T) {
	alg := newTestAlg("t", func(b *Base) {
		b.AddArg("band", 0, "Band", TypeInteger)
	})
	err := parseErr(t, alg, "--band")
	if !strings.HasSuffix(err.Error(), "Expected value for argument '--band', but ran short of tokens") {
		t.Errorf("error = %q", err)
	}
}

func TestParse_TypedValueErrors(t *testing.T) {
	alg := newTestAlg("t", func(b *Base) {
		b.AddArg("band", 0, "Band", TypeInteger)
	})
	err := parseErr(t, alg, "--band=x")
	if !strings.HasSuffix(err.Error(), "Expected integer value for argument '--band', but got 'x'.") {
		t.Errorf("error = %q", err)
	}
}

func TestParse_OnlyOnce(t *testing.T) {
	alg := newTestAlg("t", nil)
	if _, err := ParseCommandLine(alg, nil); err != nil {
		t.Fatal(err)
	}
	err := parseErr(t, alg)
	if !strings.Contains(err.Error(), "can only be called once per instance") {
		t.Errorf("error = %q", err)
	}
}

func TestParse_Positionals(t *testing.T) {
	alg := newTestAlg("t", func(b *Base) {
		b.AddArg("inputs", 0, "Inputs", TypeStringList).SetPositional().SetMinCount(1)
		b.AddArg("output", 0, "Output", TypeString).SetPositional().SetRequired()
	})
	if _, err := ParseCommandLine(alg, []string{"a", "b", "c", "out"}); err != nil {
		t.Fatal(err)
	}
	if got := alg.Arg("inputs").Strings(); !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Errorf("inputs = %v", got)
	}
	if alg.Arg("output").String() != "out" {
		t.Errorf("output = %q", alg.Arg("output").String())
	}
}

func TestParse_PositionalErrors(t *testing.T) {
	declare := func(b *Base) {
		b.AddArg("source", 0, "Source", TypeString).SetPositional().SetRequired()
		b.AddArg("target", 0, "Target", TypeString).SetPositional().SetRequired()
	}

	err := parseErr(t, newTestAlg("t", declare), "a", "b", "c")
	if !strings.HasSuffix(err.Error(), "Positional values starting at 'c' are not expected.") {
		t.Errorf("extra: %q", err)
	}
	err = parseErr(t, newTestAlg("t", declare), "a")
	if !strings.HasSuffix(err.Error(), "Positional arguments starting at 'TARGET' have not been specified.") {
		t.Errorf("missing: %q", err)
	}
}

func TestParse_NamedArgumentSkipsPositional(t *testing.T) {
	alg := newTestAlg("t", func(b *Base) {
		b.AddArg("source", 0, "Source", TypeString).SetPositional().SetRequired()
		b.AddArg("target", 0, "Target", TypeString).SetPositional().SetRequired()
	})
	if _, err := ParseCommandLine(alg, []string{"--source=a", "b"}); err != nil {
		t.Fatal(err)
	}
	if alg.Arg("source").String() != "a" || alg.Arg("target").String() != "b" {
		t.Errorf("source=%q target=%q", alg.Arg("source").String(), alg.Arg("target").String())
	}
}

func TestParse_AmbiguousPositionalDeclaration(t *testing.T) {
	alg := newTestAlg("t", func(b *Base) {
		b.AddArg("first", 0, "First", TypeString).SetPositional()
		b.AddArg("middle", 0, "Middle", TypeStringList).SetPositional()
		b.AddArg("last", 0, "Last", TypeString).SetPositional()
	})
	err := parseErr(t, alg, "x")
	if !strings.Contains(err.Error(), "Ambiguity in definition of positional arguments") {
		t.Errorf("error = %q", err)
	}
}

func TestParse_HelpSkipsValidation(t *testing.T) {
	alg := newTestAlg("t", func(b *Base) {
		b.AddArg("source", 0, "Source", TypeString).SetPositional().SetRequired()
	})
	leaf, err := ParseCommandLine(alg, []string{"--help"})
	if err != nil {
		t.Fatal(err)
	}
	if leaf.Core().SpecialAction() != SpecialHelp {
		t.Errorf("SpecialAction = %q, want help", leaf.Core().SpecialAction())
	}
}

func TestParse_ConfigOption(t *testing.T) {
	alg := newTestAlg("t", nil)
	if _, err := ParseCommandLine(alg, []string{"--config", "ALLOW_WRITES_IN_STREAM=YES"}); err != nil {
		t.Fatal(err)
	}
	if got := alg.Env().Config.Option("ALLOW_WRITES_IN_STREAM", ""); got != "YES" {
		t.Errorf("config option = %q, want YES", got)
	}
	err := parseErr(t, newTestAlg("t", nil), "--config", "novalue")
	if !strings.Contains(err.Error(), "<KEY>=<VALUE> expected") {
		t.Errorf("error = %q", err)
	}
}

type groupAlg struct{ Base }

func newGroup(name string) *groupAlg {
	g := &groupAlg{}
	g.Init(name, "Group.", "")
	return g
}

func TestParse_ChildDelegation(t *testing.T) {
	root := newGroup("geoalg")
	raster := newGroup("raster")
	root.AddChild("raster", func() Algorithm { return raster })
	raster.AddChild("info", func() Algorithm {
		return newTestAlg("info", func(b *Base) {
			b.AddInputDatasetArg(dataset.Raster, true)
		})
	})

	name := storeRaster(t)
	leaf, err := ParseCommandLine(root, []string{"raster", "info", name})
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(leaf.Core().CallPath(), " "); got != "geoalg raster info" {
		t.Errorf("CallPath = %q", got)
	}
	if leaf.Core().Arg(ArgInput).Dataset().Object() == nil {
		t.Error("input dataset not opened")
	}
	if err := Finalize(leaf); err != nil {
		t.Errorf("Finalize: %v", err)
	}
}

func TestParse_UnknownCommandSuggests(t *testing.T) {
	root := newGroup("geoalg")
	root.AddChild("raster", func() Algorithm { return newGroup("raster") })
	root.AddChild("vector", func() Algorithm { return newGroup("vector") })

	failed, err := ParseCommandLine(root, []string{"rastr"})
	if err == nil {
		t.Fatal("unknown command accepted")
	}
	if failed != root {
		t.Error("failing node is not the root")
	}
	want := "geoalg: Unknown command: 'rastr'. Do you mean 'raster'?"
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err, want)
	}

	_, err = ParseCommandLine(newGroupWithChild(), nil)
	if err == nil || !strings.HasSuffix(err.Error(), "Missing command name.") {
		t.Errorf("error = %v", err)
	}
}

func newGroupWithChild() *groupAlg {
	g := newGroup("geoalg")
	g.AddChild("raster", func() Algorithm { return newGroup("raster") })
	return g
}

func TestError_QualifiedUsesCallPath(t *testing.T) {
	root := newGroup("geoalg")
	root.AddChild("info", func() Algorithm {
		return newTestAlg("info", func(b *Base) {
			b.AddArg("format", 0, "Format", TypeString)
		})
	})
	_, err := ParseCommandLine(root, []string{"info", "--formt", "x"})
	var algErr *Error
	if !errors.As(err, &algErr) {
		t.Fatalf("error %v is not *Error", err)
	}
	if !strings.HasPrefix(algErr.Qualified(), "geoalg info: Option '--formt' is unknown.") {
		t.Errorf("Qualified = %q", algErr.Qualified())
	}
}
