// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package algorithm

import (
	"fmt"
	"slices"
	"strings"

	"github.com/bureau-foundation/geoalg/lib/dataset"
)

// Pseudo output formats understood by algorithms that support
// streamed output. They are not registered drivers.
const (
	FormatStream = "stream"
	FormatGDALG  = "GDALG"
)

func kindLabel(kinds dataset.Kind) string {
	return strings.Join(kinds.Names(), " or ")
}

// AddInputDatasetArg declares --input/-i for a dataset of the given
// kinds.
func (b *Base) AddInputDatasetArg(kinds dataset.Kind, positionalAndRequired bool) *Arg {
	a := b.AddArg(ArgInput, 'i', fmt.Sprintf("Input %s dataset", kindLabel(kinds)), TypeDataset).
		SetDatasetKinds(kinds)
	if positionalAndRequired {
		a.SetPositional().SetRequired()
	}
	return a
}

// AddOutputDatasetArg declares --output/-o. The algorithm creates the
// output object; only a name is accepted from outside.
func (b *Base) AddOutputDatasetArg(kinds dataset.Kind, positionalAndRequired bool) *Arg {
	a := b.AddArg(ArgOutput, 'o', fmt.Sprintf("Output %s dataset", kindLabel(kinds)), TypeDataset).
		SetDatasetKinds(kinds).
		SetDatasetInputFlags(FlagName).
		SetDatasetOutputFlags(FlagObject).
		SetIsInput(true).
		SetIsOutput(true)
	if positionalAndRequired {
		a.SetPositional().SetRequired()
	}
	return a
}

// AddOverwriteArg declares --overwrite.
func (b *Base) AddOverwriteArg() *Arg {
	return b.AddArg(ArgOverwrite, 0, "Whether overwriting existing output is allowed", TypeBoolean).
		SetDefault(false)
}

// AddUpdateArg declares --update.
func (b *Base) AddUpdateArg() *Arg {
	return b.AddArg(ArgUpdate, 0, "Whether to open existing dataset in update mode", TypeBoolean).
		SetDefault(false)
}

// AddAppendArg declares --append, which implies --update when that
// is declared too.
func (b *Base) AddAppendArg() *Arg {
	return b.AddArg(ArgAppend, 0, "Whether to append features to existing layers", TypeBoolean).
		SetDefault(false).
		AddAction("implies-update", func(a *Arg) {
			update := b.Arg(ArgUpdate)
			if a.Bool() && update != nil && !update.IsExplicitlySet() {
				_ = update.Set(true)
			}
		})
}

// AddOpenOptionsArg declares --open-option/--oo.
func (b *Base) AddOpenOptionsArg() *Arg {
	return b.AddArg(ArgOpenOption, 0, "Open options", TypeStringList).
		AddAlias("oo").
		SetMetaVar("<KEY>=<VALUE>").
		SetCategory(CategoryAdvanced).
		AddValidator("key-value", validateKeyValue)
}

// AddInputFormatsArg declares --input-format/--if, restricting the
// drivers tried when opening inputs.
func (b *Base) AddInputFormatsArg() *Arg {
	return b.AddArg(ArgInputFormat, 0, "Input formats", TypeStringList).
		AddAlias("if").
		SetCategory(CategoryAdvanced).
		AddValidator("driver-exists", func(a *Arg) error {
			return validateFormats(a, 0, nil)
		})
}

// AddOutputFormatArg declares --output-format/-f/--of/--format. The
// named driver must exist and expose required. Names listed in
// pseudo are accepted as well.
func (b *Base) AddOutputFormatArg(required dataset.Capability, pseudo ...string) *Arg {
	a := b.AddArg(ArgOutputFormat, 'f', "Output format", TypeString).
		AddAlias("of").
		AddAlias("format")
	if names := required.Names(); len(names) > 0 {
		a.AddMetadataItem(MetaRequiredCapabilities, names...)
	}
	return a.AddValidator("driver-capabilities", func(a *Arg) error {
		return validateFormats(a, required, pseudo)
	})
}

func validateFormats(a *Arg, required dataset.Capability, pseudo []string) error {
	values := a.Strings()
	if a.typ == TypeString {
		values = []string{a.String()}
	}
	for _, value := range values {
		if slices.ContainsFunc(pseudo, func(p string) bool { return strings.EqualFold(p, value) }) {
			continue
		}
		driver, ok := dataset.Lookup(value)
		if !ok {
			return fmt.Errorf("Invalid value for argument '%s'. Driver '%s' does not exist", a.name, value)
		}
		for _, capability := range []dataset.Capability{dataset.CanOpen, dataset.CanUpdate, dataset.CanCreateCopy} {
			if required&capability != 0 && driver.Capabilities()&capability == 0 {
				return fmt.Errorf("Invalid value for argument '%s'. Driver '%s' does not expose the required '%s' capability.",
					a.name, value, capability.Names()[0])
			}
		}
	}
	return nil
}

// AddCreationOptionsArg declares --creation-option/--co.
func (b *Base) AddCreationOptionsArg() *Arg {
	return b.AddArg("creation-option", 0, "Creation option", TypeStringList).
		AddAlias("co").
		SetMetaVar("<KEY>=<VALUE>").
		AddValidator("key-value", validateKeyValue)
}

// AddLayerCreationOptionsArg declares --layer-creation-option/--lco.
func (b *Base) AddLayerCreationOptionsArg() *Arg {
	return b.AddArg("layer-creation-option", 0, "Layer creation option", TypeStringList).
		AddAlias("lco").
		SetMetaVar("<KEY>=<VALUE>").
		AddValidator("key-value", validateKeyValue)
}

func validateKeyValue(a *Arg) error {
	values := a.Strings()
	if a.typ == TypeString {
		values = []string{a.String()}
	}
	for _, value := range values {
		if !strings.Contains(value, "=") {
			return fmt.Errorf("Invalid value for argument '%s'. <KEY>=<VALUE> expected", a.name)
		}
	}
	return nil
}

// AddLayerNameArg declares --layer/-l, as a list when multiple.
func (b *Base) AddLayerNameArg(multiple bool) *Arg {
	typ := TypeString
	if multiple {
		typ = TypeStringList
	}
	return b.AddArg("layer", 'l', "Layer name", typ)
}

// AddBBOXArg declares --bbox as four reals.
func (b *Base) AddBBOXArg(description string) *Arg {
	if description == "" {
		description = "Bounding box as xmin,ymin,xmax,ymax"
	}
	return b.AddArg("bbox", 0, description, TypeRealList).
		SetRepeatedArgAllowed(false).
		SetMinCount(4).
		SetMaxCount(4).
		SetDisplayHintAboutRepetition(false).
		AddValidator("bbox-order", func(a *Arg) error {
			v := a.Floats()
			if !(v[0] <= v[2]) || !(v[1] <= v[3]) {
				return fmt.Errorf("Value of 'bbox' should be xmin,ymin,xmax,ymax with xmin <= xmax and ymin <= ymax")
			}
			return nil
		})
}

// AddProgressArg declares --progress.
func (b *Base) AddProgressArg() *Arg {
	return b.AddArg(ArgProgress, 0, "Display progress bar", TypeBoolean).
		SetOnlyForCLI().
		SetCategory(CategoryCommon)
}

// AddOutputStringArg declares the hidden output-string argument that
// receives textual results.
func (b *Base) AddOutputStringArg() *Arg {
	a := b.AddArg(ArgOutputString, 0, "Output string, in which the result is placed", TypeString).
		SetHiddenForCLI().
		SetIsInput(false).
		SetIsOutput(true)
	b.setOutputStringArg(a)
	return a
}

// CheckOverwrite fails when name exists and --overwrite was not given.
func (b *Base) CheckOverwrite(name string) error {
	if dataset.Exists(name) && !b.boolArg(ArgOverwrite) {
		return b.Validationf("File '%s' already exists. Specify the --overwrite option to overwrite it.", name)
	}
	return nil
}
