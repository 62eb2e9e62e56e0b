// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package algorithm

import (
	"slices"
	"strings"

	"github.com/bureau-foundation/geoalg/lib/dataset"
)

// Dispatcher forwards to a raster or a vector sibling depending on
// what the input dataset contains. Parsing resolves to the selected
// sibling; the dispatcher itself never runs.
type Dispatcher struct {
	Base

	newRaster func() Algorithm
	newVector func() Algorithm
	selected  Algorithm
}

// NewDispatcher returns a dispatcher choosing between the algorithms
// built by newRaster and newVector. Both must declare an input dataset
// argument.
func NewDispatcher(name, description, helpURL string, newRaster, newVector func() Algorithm) *Dispatcher {
	d := &Dispatcher{newRaster: newRaster, newVector: newVector}
	d.Init(name, description, helpURL)
	return d
}

// Selected returns the sibling chosen by parsing, or nil.
func (d *Dispatcher) Selected() Algorithm { return d.selected }

var dispatcherSpecialTokens = []string{"help", "-h", "--help", "--help-doc", "--json-usage"}

// ParseNode tries the raster sibling first. When its input holds only
// raster content it is selected. Otherwise the most dataset-like token
// is opened directly and, when it holds vector content, handed to the
// vector sibling as an object while the remaining tokens are parsed.
func (d *Dispatcher) ParseNode(args []string) (Outcome, error) {
	if len(args) == 1 && slices.Contains(dispatcherSpecialTokens, args[0]) {
		return d.Base.ParseNode(args)
	}
	if err := d.beginParse(); err != nil {
		return Outcome{}, err
	}
	logger := d.Logger()

	raster := d.sibling(d.newRaster, "raster")
	rasterErr := raster.Core().ParseArguments(args)
	if rasterErr == nil {
		if ds := inputObject(raster); ds != nil {
			hasRaster, hasVector := contentOf(ds)
			switch {
			case hasRaster && hasVector:
				_ = Finalize(raster)
				return Outcome{}, d.bothKindsError(ds.Name())
			case hasRaster || !hasVector:
				logger.Debug("dispatching to raster algorithm", "dataset", ds.Name())
				d.selected = raster
				return Resolved(raster), nil
			}
		} else {
			d.selected = raster
			return Resolved(raster), nil
		}
	} else if len(args) > 1 {
		// Muted: the failure may belong to the vector sibling.
		logger.Debug("raster parse failed", "error", rasterErr)
	}
	_ = Finalize(raster)

	token, index, count := likelyDatasetToken(args)
	var discarded error
	if count > 0 {
		ds, err := dataset.Open(token, dataset.OpenOptions{
			Config: d.Env().Config.Options,
			Logger: logger,
		})
		if err == nil {
			hasRaster, hasVector := contentOf(ds)
			switch {
			case hasRaster && hasVector:
				_ = ds.Release()
				return Outcome{}, d.bothKindsError(token)
			case hasRaster:
				_ = ds.Release()
				return Outcome{}, rasterErr
			}
			vector, err := d.parseVectorWithObject(ds, withoutToken(args, index))
			_ = ds.Release()
			if err != nil {
				return Outcome{}, err
			}
			logger.Debug("dispatching to vector algorithm", "dataset", token)
			d.selected = vector
			return Resolved(vector), nil
		}
		discarded = err
	}

	vector := d.sibling(d.newVector, "vector")
	vectorErr := vector.Core().ParseArguments(args)
	if vectorErr == nil {
		d.selected = vector
		return Resolved(vector), nil
	}
	_ = Finalize(vector)

	if count == 1 && discarded != nil && strings.HasPrefix(discarded.Error(), token) {
		return Outcome{}, d.newError(KindValidation, discarded)
	}
	if len(args) <= 1 && rasterErr != nil {
		return Outcome{}, rasterErr
	}
	return Outcome{}, vectorErr
}

// parseVectorWithObject parses rest on a new vector sibling whose
// input already holds ds.
func (d *Dispatcher) parseVectorWithObject(ds *dataset.Dataset, rest []string) (Algorithm, error) {
	vector := d.sibling(d.newVector, "vector")
	input := vector.Core().Arg(ArgInput)
	if input == nil {
		return nil, d.Executionf("vector algorithm has no '%s' argument", ArgInput)
	}
	if err := input.Set(ds); err != nil {
		_ = Finalize(vector)
		return nil, err
	}
	if err := vector.Core().ParseArguments(rest); err != nil {
		_ = Finalize(vector)
		return nil, err
	}
	return vector, nil
}

func (d *Dispatcher) sibling(factory func() Algorithm, tag string) Algorithm {
	alg := factory()
	core := alg.Core()
	core.callPath = append(append([]string(nil), d.callPath...), tag)
	if core.env == nil {
		core.env = d.env
	}
	return alg
}

func (d *Dispatcher) bothKindsError(name string) error {
	err := d.Validationf("Dataset '%s' contains both raster and vector content. Use 'geoalg raster %s' or 'geoalg vector %s'.",
		name, d.name, d.name)
	err.SuppressUsage = true
	return err
}

// Usage lists both siblings, or the selected one after parsing.
func (d *Dispatcher) Usage(short bool) string {
	if d.selected != nil {
		return Usage(d.selected, short)
	}
	raster := d.sibling(d.newRaster, "raster")
	vector := d.sibling(d.newVector, "vector")
	return Usage(raster, short) + "\nor\n\n" + Usage(vector, short)
}

// ExtendUsageDocument lists both siblings as sub-algorithms.
func (d *Dispatcher) ExtendUsageDocument(doc *UsageDocument) {
	doc.SubAlgorithms = append(doc.SubAlgorithms,
		BuildUsageDocument(d.sibling(d.newRaster, "raster")),
		BuildUsageDocument(d.sibling(d.newVector, "vector")))
}

func inputObject(alg Algorithm) *dataset.Dataset {
	input := alg.Core().Arg(ArgInput)
	if input == nil || input.typ != TypeDataset {
		return nil
	}
	return input.Dataset().Object()
}

func contentOf(ds *dataset.Dataset) (hasRaster, hasVector bool) {
	return ds.Raster() != nil, len(ds.Layers()) > 0
}

// likelyDatasetToken returns the token that most looks like a dataset
// name, its index, and how many tokens looked like one. Existing
// datasets win over names that merely carry an extension; among
// equals the first one wins.
func likelyDatasetToken(args []string) (token string, index, count int) {
	index = -1
	bestScore := 0
	for i, arg := range args {
		if strings.HasPrefix(arg, "-") {
			continue
		}
		score := 0
		switch {
		case dataset.Exists(arg):
			score = 2
		case strings.Contains(arg, "."):
			score = 1
		default:
			continue
		}
		count++
		if score > bestScore {
			token, index, bestScore = arg, i, score
		}
	}
	return token, index, count
}

// withoutToken removes args[index], together with a preceding --input
// or -i option.
func withoutToken(args []string, index int) []string {
	start := index
	if index > 0 && (args[index-1] == "--"+ArgInput || args[index-1] == "-i") {
		start = index - 1
	}
	return append(append([]string(nil), args[:start]...), args[index+1:]...)
}
