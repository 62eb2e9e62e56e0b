// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/bureau-foundation/geoalg/lib/algorithm"
	"github.com/bureau-foundation/geoalg/lib/binhash"
	"github.com/bureau-foundation/geoalg/lib/dataset"
	"github.com/bureau-foundation/geoalg/lib/pipeline"
	"github.com/bureau-foundation/geoalg/lib/progress"
)

// rasterInfo describes a raster dataset. As a command it takes the
// dataset as positional input; as a pipeline step it ends the
// pipeline with the description as output string.
type rasterInfo struct {
	pipeline.StepBase
	format   *algorithm.Arg
	band     *algorithm.Arg
	checksum *algorithm.Arg
	stats    *algorithm.Arg
}

func newRasterInfo(step bool) *rasterInfo {
	s := &rasterInfo{}
	s.InitStep(s, "info", "Return information on a raster dataset.", "/programs/geoalg_raster_info.html", pipeline.Config{
		Input: dataset.Raster,
		First: !step,
		Last:  true,
	})
	if !step {
		s.SetPipelineStepUsage(false)
		s.SetInputArg(s.AddInputDatasetArg(dataset.Raster, true))
		s.AddOpenOptionsArg()
		s.AddInputFormatsArg()
	}
	// Commands default to text, pipeline steps to JSON.
	defaultFormat := "json"
	if !step {
		defaultFormat = "text"
	}
	s.format = s.AddArg("format", 'f', "Output format", algorithm.TypeString).
		AddAlias("of").
		SetChoices("json", "text").
		SetDefault(defaultFormat)
	s.band = s.AddArg("band", 'b', "Only report the given band", algorithm.TypeInteger).
		SetMinValueIncluded(1)
	s.checksum = s.AddArg("checksum", 0, "Compute a checksum of each band", algorithm.TypeBoolean)
	s.stats = s.AddArg("stats", 0, "Compute statistics of each band", algorithm.TypeBoolean)
	s.AddOutputStringArg()
	if !step {
		s.AddExample("Describe a raster with statistics", "geoalg raster info --stats dem.grc")
	}
	return s
}

type rasterInfoBand struct {
	Band        int                 `json:"band"`
	Type        dataset.DataType    `json:"type"`
	Description string              `json:"description,omitempty"`
	NoData      *float64            `json:"no_data_value,omitempty"`
	Checksum    string              `json:"checksum,omitempty"`
	Statistics  *dataset.Statistics `json:"statistics,omitempty"`
}

type rasterInfoDocument struct {
	Description  string            `json:"description"`
	Driver       string            `json:"driver_short_name"`
	DriverLong   string            `json:"driver_long_name"`
	Size         [2]int            `json:"size"`
	GeoTransform [6]float64        `json:"geo_transform"`
	Extent       dataset.Envelope  `json:"extent"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	Bands        []rasterInfoBand  `json:"bands"`
}

func (s *rasterInfo) RunStep(ctx context.Context, rc *pipeline.RunContext) error {
	ds := s.Input()
	r := ds.Raster()
	if r == nil {
		return s.Executionf("%s has no raster content", ds.Name())
	}

	document := rasterInfoDocument{
		Description:  ds.Name(),
		Driver:       ds.Driver(),
		Size:         [2]int{r.Width, r.Height},
		GeoTransform: r.GeoTransform,
		Extent:       r.Extent(),
		Metadata:     ds.Metadata(),
	}
	if driver, ok := dataset.Lookup(ds.Driver()); ok {
		document.DriverLong = driver.LongName()
	}

	numbers := make([]int, 0, len(r.Bands))
	if s.band.IsExplicitlySet() {
		if _, err := r.Band(s.band.Int()); err != nil {
			return s.Validationf("%w", err)
		}
		numbers = append(numbers, s.band.Int())
	} else {
		for i := range r.Bands {
			numbers = append(numbers, i+1)
		}
	}

	for i, number := range numbers {
		band, _ := r.Band(number)
		entry := rasterInfoBand{Band: number, Type: band.DataType, Description: band.Description, NoData: band.NoData}
		if s.checksum.Bool() || s.stats.Bool() {
			data, err := band.Read()
			if err != nil {
				return s.Executionf("reading band %d: %w", number, err)
			}
			if s.checksum.Bool() {
				entry.Checksum = binhash.SumFloats(data).String()
			}
			if s.stats.Bool() {
				stats, err := band.ComputeStatistics()
				if err != nil {
					return s.Executionf("band %d: %w", number, err)
				}
				entry.Statistics = &stats
			}
		}
		document.Bands = append(document.Bands, entry)
		if err := progress.Report(rc.Progress, float64(i+1)/float64(len(numbers)), ""); err != nil {
			return err
		}
	}

	var text string
	if s.format.String() == "json" {
		encoded, err := json.MarshalIndent(document, "", "  ")
		if err != nil {
			return s.Executionf("%w", err)
		}
		text = string(encoded) + "\n"
	} else {
		text = document.text()
	}
	return s.Arg(algorithm.ArgOutputString).Set(text)
}

func (d rasterInfoDocument) text() string {
	var out strings.Builder
	fmt.Fprintf(&out, "Driver: %s/%s\n", d.Driver, d.DriverLong)
	fmt.Fprintf(&out, "Files: %s\n", d.Description)
	fmt.Fprintf(&out, "Size is %d, %d\n", d.Size[0], d.Size[1])
	gt := d.GeoTransform
	fmt.Fprintf(&out, "Origin = (%.15g,%.15g)\n", gt[0], gt[3])
	fmt.Fprintf(&out, "Pixel Size = (%.15g,%.15g)\n", gt[1], gt[5])
	if len(d.Metadata) > 0 {
		out.WriteString("Metadata:\n")
		keys := make([]string, 0, len(d.Metadata))
		for key := range d.Metadata {
			keys = append(keys, key)
		}
		slices.Sort(keys)
		for _, key := range keys {
			fmt.Fprintf(&out, "  %s=%s\n", key, d.Metadata[key])
		}
	}
	fmt.Fprintf(&out, "Extent: (%.15g, %.15g) - (%.15g, %.15g)\n", d.Extent.MinX, d.Extent.MinY, d.Extent.MaxX, d.Extent.MaxY)
	for _, band := range d.Bands {
		fmt.Fprintf(&out, "Band %d Type=%s\n", band.Band, band.Type)
		if band.Description != "" {
			fmt.Fprintf(&out, "  Description = %s\n", band.Description)
		}
		if band.NoData != nil {
			fmt.Fprintf(&out, "  NoData Value=%.15g\n", *band.NoData)
		}
		if band.Checksum != "" {
			fmt.Fprintf(&out, "  Checksum=%s\n", band.Checksum)
		}
		if stats := band.Statistics; stats != nil {
			fmt.Fprintf(&out, "  Minimum=%.3f, Maximum=%.3f, Mean=%.3f, StdDev=%.3f\n", stats.Min, stats.Max, stats.Mean, stats.StdDev)
		}
	}
	return out.String()
}
