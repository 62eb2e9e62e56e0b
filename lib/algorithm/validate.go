// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package algorithm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bureau-foundation/geoalg/lib/dataset"
)

// Validate checks alg's arguments as a whole and opens named input
// datasets. Every independent problem is reported, joined into one
// KindValidation error.
func Validate(alg Algorithm) error {
	return alg.Core().validate()
}

func (b *Base) validate() error {
	if b.special != "" {
		return nil
	}

	var errs []error
	groups := map[string]string{}
	for _, a := range b.args {
		if a.explicit && a.mutualExclusionGroup != "" {
			if other, used := groups[a.mutualExclusionGroup]; used {
				errs = append(errs, fmt.Errorf("Argument '--%s' is mutually exclusive with '--%s'.", a.name, other))
			} else {
				groups[a.mutualExclusionGroup] = a.name
			}
		}

		if a.required && !a.explicit && !a.hasDefault {
			errs = append(errs, fmt.Errorf("Required argument '--%s' has not been specified.", a.name))
			continue
		}
		if !a.explicit {
			continue
		}

		switch a.typ {
		case TypeDataset:
			if err := b.processDatasetArg(a); err != nil {
				errs = append(errs, err)
				continue
			}
		case TypeDatasetList:
			if err := b.processDatasetList(a); err != nil {
				errs = append(errs, err)
				continue
			}
		}

		if err := a.validate(); err != nil {
			errs = append(errs, err)
		}
	}

	// Algorithm-level checks may assume well-formed arguments.
	if len(errs) == 0 {
		for _, validator := range b.validators {
			if err := validator.check(); err != nil {
				errs = append(errs, err)
			}
		}
	}

	if len(errs) > 0 {
		b.validated = false
		return b.newError(KindValidation, flattenErrors(errs))
	}
	b.validated = true
	return nil
}

// flattenErrors joins errs, unwrapping algorithm errors raised by
// validators so that each message is prefixed once.
func flattenErrors(errs []error) error {
	flat := make([]error, len(errs))
	for i, err := range errs {
		var algErr *Error
		if errors.As(err, &algErr) {
			flat[i] = algErr.Err
		} else {
			flat[i] = err
		}
	}
	return errors.Join(flat...)
}

func (b *Base) boolArg(name string) bool {
	a := b.Arg(name)
	return a != nil && a.typ == TypeBoolean && a.Bool()
}

// processDatasetArg opens the dataset named by a, when a is an input
// or the output of an update. When input and output name the same
// file in update mode, the input is opened once for update and the
// object is shared with the output argument.
func (b *Base) processDatasetArg(a *Arg) error {
	h := a.Dataset()
	if h.Object() != nil {
		return nil
	}
	if !h.IsNameSet() || h.Name() == "" {
		return fmt.Errorf("Argument '%s' has no dataset object or dataset name.", a.name)
	}
	if !a.autoOpen {
		return nil
	}

	update := b.boolArg(ArgUpdate)
	overwrite := a.isOutput && b.boolArg(ArgOverwrite)
	outputArg := b.Arg(ArgOutput)
	if a.isOutput && !(a == outputArg && update && !overwrite) {
		return nil
	}

	options := b.openOptions(a)
	assignToOutput := false
	if a.name == ArgInput && update && !b.boolArg(ArgOverwrite) && outputArg != nil && outputArg.typ == TypeDataset {
		out := outputArg.Dataset()
		if out.Object() == nil && out.Name() == h.Name() {
			assignToOutput = true
			options.Update = true
		}
	}
	if (a == outputArg || outputArg == nil) && update {
		options.Update = true
	}

	ds, err := dataset.Open(b.Env().ResolveName(h.Name()), options)
	if err != nil {
		return err
	}
	if assignToOutput {
		b.Logger().Debug("sharing update-mode dataset between input and output", "name", ds.Name())
		if err := outputArg.Dataset().SetObject(ds); err != nil {
			return err
		}
	}
	return h.adopt(ds)
}

func (b *Base) processDatasetList(a *Arg) error {
	options := b.openOptions(a)
	options.Update = a.name == ArgInput && b.boolArg(ArgUpdate)
	var errs []error
	for _, h := range a.Datasets() {
		if h.Object() != nil {
			continue
		}
		if h.Name() == "" {
			errs = append(errs, fmt.Errorf("Argument '%s' has no dataset object or dataset name.", a.name))
			continue
		}
		if !a.autoOpen {
			continue
		}
		ds, err := dataset.Open(b.Env().ResolveName(h.Name()), options)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := h.adopt(ds); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *Base) openOptions(a *Arg) dataset.OpenOptions {
	options := dataset.OpenOptions{
		Kinds:  a.datasetKinds,
		Config: b.Env().Config.Options,
		Logger: b.Logger(),
	}
	if a.name == ArgInput {
		if oo := b.Arg(ArgOpenOption); oo != nil {
			options.Options = KeyValues(oo.Strings())
		}
		if formats := b.Arg(ArgInputFormat); formats != nil {
			options.AllowedDrivers = formats.Strings()
		}
	}
	return options
}

// KeyValues converts KEY=VALUE strings to a map. Keys are upper-cased.
func KeyValues(list []string) map[string]string {
	if len(list) == 0 {
		return nil
	}
	out := make(map[string]string, len(list))
	for _, kv := range list {
		key, value, _ := strings.Cut(kv, "=")
		out[strings.ToUpper(key)] = value
	}
	return out
}
