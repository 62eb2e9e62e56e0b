// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"github.com/bureau-foundation/geoalg/lib/algorithm"
	"github.com/bureau-foundation/geoalg/lib/dataset"
	"github.com/bureau-foundation/geoalg/lib/pipeline"
)

// ProgramName is the first word of every command line, including the
// ones recorded in descriptors.
const ProgramName = "geoalg"

// group is a node that only selects among its children.
type group struct {
	algorithm.Base
}

func newGroup(name, description, helpURL string) *group {
	g := &group{}
	g.Init(name, description, helpURL)
	return g
}

// NewRoot returns the root of the command tree.
func NewRoot() algorithm.Algorithm {
	root := newGroup(ProgramName, "Geospatial algorithms on raster and vector datasets.", "/programs/geoalg.html")
	root.AddSpecialFlag(algorithm.SpecialVersion, 0, "Display version and exit")
	root.AddSpecialFlag(algorithm.SpecialDrivers, 0, "Display driver list as JSON document and exit")

	root.AddChild("info", func() algorithm.Algorithm {
		return algorithm.NewDispatcher("info", "Return information on a dataset.", "/programs/geoalg_info.html",
			func() algorithm.Algorithm { return newRasterInfo(false) },
			func() algorithm.Algorithm { return newVectorInfo(false) })
	})
	root.AddChild("convert", func() algorithm.Algorithm {
		return algorithm.NewDispatcher("convert", "Convert a dataset.", "/programs/geoalg_convert.html",
			func() algorithm.Algorithm { return newConvert(dataset.Raster) },
			func() algorithm.Algorithm { return newConvert(dataset.Vector) })
	})
	root.AddChild("pipeline", func() algorithm.Algorithm {
		return pipeline.New("pipeline", "Process a dataset applying several steps.", "/programs/geoalg_pipeline.html",
			dataset.Raster|dataset.Vector, genericSteps())
	})
	root.AddChild("raster", func() algorithm.Algorithm { return newRasterGroup() })
	root.AddChild("vector", func() algorithm.Algorithm { return newVectorGroup() })
	return root
}

func newRasterGroup() *group {
	g := newGroup("raster", "Raster commands.", "/programs/geoalg_raster.html")
	g.AddChild("info", func() algorithm.Algorithm { return newRasterInfo(false) })
	g.AddChild("convert", func() algorithm.Algorithm { return newConvert(dataset.Raster) })
	g.AddChild("pipeline", func() algorithm.Algorithm {
		return pipeline.New("pipeline", "Process a raster dataset applying several steps.", "/programs/geoalg_raster_pipeline.html",
			dataset.Raster, rasterSteps())
	})
	g.AddChild("scale", func() algorithm.Algorithm { return newScale(true) })
	g.AddChild("clip", func() algorithm.Algorithm { return newClip(true) })
	g.AddChild("resize", func() algorithm.Algorithm { return newResize(true) })
	return g
}

func newVectorGroup() *group {
	g := newGroup("vector", "Vector commands.", "/programs/geoalg_vector.html")
	g.AddChild("info", func() algorithm.Algorithm { return newVectorInfo(false) })
	g.AddChild("convert", func() algorithm.Algorithm { return newConvert(dataset.Vector) })
	g.AddChild("pipeline", func() algorithm.Algorithm {
		return pipeline.New("pipeline", "Process a vector dataset applying several steps.", "/programs/geoalg_vector_pipeline.html",
			dataset.Vector, vectorSteps())
	})
	g.AddChild("filter", func() algorithm.Algorithm { return newFilter(true) })
	g.AddChild("select", func() algorithm.Algorithm { return newSelect(true) })
	return g
}

func rasterSteps() *algorithm.Registry {
	r := algorithm.NewRegistry()
	r.Register("read", func() algorithm.Algorithm { return pipeline.NewReadStep(dataset.Raster) })
	registerRasterSteps(r)
	r.Register("info", func() algorithm.Algorithm { return newRasterInfo(true) })
	r.Register("write", func() algorithm.Algorithm { return pipeline.NewWriteStep(dataset.Raster) })
	return r
}

func vectorSteps() *algorithm.Registry {
	r := algorithm.NewRegistry()
	r.Register("read", func() algorithm.Algorithm { return pipeline.NewReadStep(dataset.Vector) })
	registerVectorSteps(r)
	r.Register("info", func() algorithm.Algorithm { return newVectorInfo(true) })
	r.Register("write", func() algorithm.Algorithm { return pipeline.NewWriteStep(dataset.Vector) })
	return r
}

// genericSteps serves the mixed pipeline, where the kind flowing
// through is only known once the input is open. Steps existing for
// both kinds carry a -raster or -vector suffix and are resolved by the
// kind of the previous step's output.
func genericSteps() *algorithm.Registry {
	r := algorithm.NewRegistry()
	r.Register("read", func() algorithm.Algorithm { return pipeline.NewReadStep(dataset.Raster | dataset.Vector) })
	registerRasterSteps(r)
	registerVectorSteps(r)
	r.Register("info-raster", func() algorithm.Algorithm { return newRasterInfo(true) })
	r.Register("info-vector", func() algorithm.Algorithm { return newVectorInfo(true) })
	r.Register("write-raster", func() algorithm.Algorithm { return pipeline.NewWriteStep(dataset.Raster) })
	r.Register("write-vector", func() algorithm.Algorithm { return pipeline.NewWriteStep(dataset.Vector) })
	return r
}

func registerRasterSteps(r *algorithm.Registry) {
	r.Register("scale", func() algorithm.Algorithm { return newScale(false) })
	r.Register("clip", func() algorithm.Algorithm { return newClip(false) })
	r.Register("resize", func() algorithm.Algorithm { return newResize(false) })
}

func registerVectorSteps(r *algorithm.Registry) {
	r.Register("filter", func() algorithm.Algorithm { return newFilter(false) })
	r.Register("select", func() algorithm.Algorithm { return newSelect(false) })
}
