// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"math"

	"github.com/bureau-foundation/geoalg/lib/algorithm"
	"github.com/bureau-foundation/geoalg/lib/dataset"
	"github.com/bureau-foundation/geoalg/lib/pipeline"
	"github.com/bureau-foundation/geoalg/lib/progress"
)

var dataTypeChoices = func() []string {
	names := make([]string, len(dataset.DataTypes))
	for i, dt := range dataset.DataTypes {
		names[i] = string(dt)
	}
	return names
}()

// retain keeps src open for as long as out, whose content is computed
// from src on demand.
func retain(out, src *dataset.Dataset) {
	src.Reference()
	out.OnClose(src.Release)
}

// lazyRaster returns a MEM dataset whose bands are computed from the
// raster of ds on first read by sample, which receives the source band
// and its samples.
func lazyRaster(ds *dataset.Dataset, width, height int, geoTransform [6]float64, dataType func(*dataset.Band) dataset.DataType,
	sample func(band *dataset.Band, data []float64) ([]float64, error)) *dataset.Dataset {
	src := ds.Raster()
	bands := make([]*dataset.Band, len(src.Bands))
	for i, band := range src.Bands {
		dt := dataType(band)
		lazy := dataset.NewLazyBand(dt, width, height, func() ([]float64, error) {
			data, err := band.Read()
			if err != nil {
				return nil, err
			}
			out, err := sample(band, data)
			if err != nil {
				return nil, err
			}
			for j, v := range out {
				if !band.IsNoData(v) {
					out[j] = dt.Clamp(v)
				}
			}
			return out, nil
		})
		lazy.NoData = band.NoData
		lazy.Description = band.Description
		bands[i] = lazy
	}
	out := dataset.New("MEM", "", dataset.Raster)
	out.SetRaster(&dataset.Grid{Width: width, Height: height, GeoTransform: geoTransform, Bands: bands})
	retain(out, ds)
	return out
}

// keepOrOverride returns the band data type unless arg names another.
func keepOrOverride(arg *algorithm.Arg) func(*dataset.Band) dataset.DataType {
	return func(band *dataset.Band) dataset.DataType {
		if arg.IsExplicitlySet() {
			if dt, err := dataset.ParseDataType(arg.String()); err == nil {
				return dt
			}
		}
		return band.DataType
	}
}

// scaleStep applies a linear transform to every valid sample.
type scaleStep struct {
	pipeline.StepBase
	factor   *algorithm.Arg
	offset   *algorithm.Arg
	dataType *algorithm.Arg
}

func newScale(standalone bool) *scaleStep {
	s := &scaleStep{}
	s.InitStep(s, "scale", "Scale and offset raster sample values.", "/programs/geoalg_raster_scale.html", pipeline.Config{
		Input:             dataset.Raster,
		Middle:            true,
		NativelyStreaming: true,
		Standalone:        standalone,
	})
	s.factor = s.AddArg("factor", 0, "Multiplier applied to every sample", algorithm.TypeReal).SetDefault(1.0)
	s.offset = s.AddArg("offset", 0, "Value added after scaling", algorithm.TypeReal).SetDefault(0.0)
	s.dataType = s.AddArg("output-data-type", 0, "Output data type", algorithm.TypeString).
		AddAlias("ot").
		SetChoices(dataTypeChoices...)
	if standalone {
		s.AddProgressArg()
	}
	s.AddExample("Convert decimetres to metres", "geoalg raster scale --factor 0.1 --ot Float32 dem_dm.grc dem_m.grc")
	return s
}

func (s *scaleStep) RunStep(ctx context.Context, rc *pipeline.RunContext) error {
	src := s.Input().Raster()
	if src == nil {
		return s.Executionf("input dataset has no raster content")
	}
	factor, offset := s.factor.Float(), s.offset.Float()
	out := lazyRaster(s.Input(), src.Width, src.Height, src.GeoTransform, keepOrOverride(s.dataType),
		func(band *dataset.Band, data []float64) ([]float64, error) {
			scaled := make([]float64, len(data))
			for i, v := range data {
				if band.IsNoData(v) {
					scaled[i] = v
					continue
				}
				scaled[i] = v*factor + offset
			}
			return scaled, nil
		})
	defer out.Release()
	return s.SetOutput(out)
}

// clipStep keeps the pixels of a north-up raster that fall within a
// georeferenced window.
type clipStep struct {
	pipeline.StepBase
	bbox *algorithm.Arg
}

func newClip(standalone bool) *clipStep {
	s := &clipStep{}
	s.InitStep(s, "clip", "Clip a raster dataset to a bounding box.", "/programs/geoalg_raster_clip.html", pipeline.Config{
		Input:             dataset.Raster,
		Middle:            true,
		NativelyStreaming: true,
		Standalone:        standalone,
	})
	s.bbox = s.AddBBOXArg("Clipping window as xmin,ymin,xmax,ymax, in georeferenced coordinates").SetRequired()
	if standalone {
		s.AddProgressArg()
	}
	return s
}

// pixelWindow converts the georeferenced bbox to a pixel window of r,
// clamped to the raster.
func pixelWindow(r *dataset.Grid, bbox []float64) (x0, y0, x1, y1 int, err error) {
	gt := r.GeoTransform
	if gt[2] != 0 || gt[4] != 0 || gt[1] == 0 || gt[5] == 0 {
		return 0, 0, 0, 0, fmt.Errorf("clipping requires a north-up raster")
	}
	px := func(x float64) float64 { return (x - gt[0]) / gt[1] }
	py := func(y float64) float64 { return (y - gt[3]) / gt[5] }
	left, right := math.Min(px(bbox[0]), px(bbox[2])), math.Max(px(bbox[0]), px(bbox[2]))
	top, bottom := math.Min(py(bbox[1]), py(bbox[3])), math.Max(py(bbox[1]), py(bbox[3]))

	x0 = max(int(math.Floor(left+1e-9)), 0)
	y0 = max(int(math.Floor(top+1e-9)), 0)
	x1 = min(int(math.Ceil(right-1e-9)), r.Width)
	y1 = min(int(math.Ceil(bottom-1e-9)), r.Height)
	if x0 >= x1 || y0 >= y1 {
		return 0, 0, 0, 0, fmt.Errorf("clipping window does not intersect the raster extent")
	}
	return x0, y0, x1, y1, nil
}

func (s *clipStep) RunStep(ctx context.Context, rc *pipeline.RunContext) error {
	src := s.Input().Raster()
	if src == nil {
		return s.Executionf("input dataset has no raster content")
	}
	x0, y0, x1, y1, err := pixelWindow(src, s.bbox.Floats())
	if err != nil {
		return s.Executionf("%w", err)
	}
	width, height := x1-x0, y1-y0
	gt := src.GeoTransform
	clipped := [6]float64{gt[0] + float64(x0)*gt[1], gt[1], 0, gt[3] + float64(y0)*gt[5], 0, gt[5]}
	out := lazyRaster(s.Input(), width, height, clipped,
		func(band *dataset.Band) dataset.DataType { return band.DataType },
		func(band *dataset.Band, data []float64) ([]float64, error) {
			window := make([]float64, 0, width*height)
			for row := y0; row < y1; row++ {
				window = append(window, data[row*src.Width+x0:row*src.Width+x1]...)
			}
			return window, nil
		})
	defer out.Release()
	return s.SetOutput(out)
}

// resizeStep resamples to a new size. The samples are computed when
// the step runs, so it reports progress, and it can hand its result
// straight to a file write.
type resizeStep struct {
	pipeline.StepBase
	size       *algorithm.Arg
	resampling *algorithm.Arg
}

func newResize(standalone bool) *resizeStep {
	s := &resizeStep{}
	s.InitStep(s, "resize", "Resize a raster dataset.", "/programs/geoalg_raster_resize.html", pipeline.Config{
		Input:      dataset.Raster,
		Middle:     true,
		Standalone: standalone,
	})
	s.size = s.AddArg("size", 0, "Target size in pixels", algorithm.TypeIntegerList).
		SetMetaVar("<width>,<height>").
		SetMinCount(2).
		SetMaxCount(2).
		SetRepeatedArgAllowed(false).
		SetDisplayHintAboutRepetition(false).
		SetMinValueIncluded(1).
		SetRequired()
	s.resampling = s.AddArg("resampling", 'r', "Resampling method", algorithm.TypeString).
		SetChoices("nearest", "bilinear").
		SetDefault("nearest")
	if standalone {
		s.AddProgressArg()
	}
	return s
}

// CanHandleNextStep accepts a following write: the resized bands go
// straight to the output driver.
func (s *resizeStep) CanHandleNextStep(next pipeline.Step) bool {
	_, ok := next.(*pipeline.WriteStep)
	return ok
}

func (s *resizeStep) RunStep(ctx context.Context, rc *pipeline.RunContext) error {
	src := s.Input().Raster()
	if src == nil {
		return s.Executionf("input dataset has no raster content")
	}
	size := s.size.Ints()
	width, height := size[0], size[1]
	bilinear := s.resampling.String() == "bilinear"

	bands := make([]*dataset.Band, len(src.Bands))
	total := len(src.Bands) * height
	done := 0
	for i, band := range src.Bands {
		data, err := band.Read()
		if err != nil {
			return s.Executionf("reading band %d: %w", i+1, err)
		}
		resized := make([]float64, width*height)
		for row := range height {
			for col := range width {
				var v float64
				if bilinear {
					v = sampleBilinear(band, data, src.Width, src.Height, col, row, width, height)
				} else {
					v = sampleNearest(data, src.Width, src.Height, col, row, width, height)
				}
				resized[row*width+col] = v
			}
			done++
			if err := progress.Report(rc.Progress, float64(done)/float64(total), ""); err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		out := dataset.NewBand(band.DataType, width, height, nil)
		if err := out.Write(resized); err != nil {
			return s.Executionf("%w", err)
		}
		out.NoData = band.NoData
		out.Description = band.Description
		bands[i] = out
	}

	gt := src.GeoTransform
	gt[1] *= float64(src.Width) / float64(width)
	gt[2] *= float64(src.Height) / float64(height)
	gt[4] *= float64(src.Width) / float64(width)
	gt[5] *= float64(src.Height) / float64(height)
	out := dataset.New("MEM", "", dataset.Raster)
	out.SetRaster(&dataset.Grid{Width: width, Height: height, GeoTransform: gt, Bands: bands})
	defer out.Release()

	if rc.Next != nil {
		return rc.RunNext(ctx, out)
	}
	return s.SetOutput(out)
}

func sampleNearest(data []float64, srcWidth, srcHeight, col, row, width, height int) float64 {
	x := min(int((float64(col)+0.5)*float64(srcWidth)/float64(width)), srcWidth-1)
	y := min(int((float64(row)+0.5)*float64(srcHeight)/float64(height)), srcHeight-1)
	return data[y*srcWidth+x]
}

func sampleBilinear(band *dataset.Band, data []float64, srcWidth, srcHeight, col, row, width, height int) float64 {
	x := (float64(col)+0.5)*float64(srcWidth)/float64(width) - 0.5
	y := (float64(row)+0.5)*float64(srcHeight)/float64(height) - 0.5
	x = math.Max(0, math.Min(x, float64(srcWidth-1)))
	y = math.Max(0, math.Min(y, float64(srcHeight-1)))
	x0, y0 := int(x), int(y)
	x1, y1 := min(x0+1, srcWidth-1), min(y0+1, srcHeight-1)
	fx, fy := x-float64(x0), y-float64(y0)

	var sum, weights float64
	for _, corner := range []struct {
		x, y int
		w    float64
	}{
		{x0, y0, (1 - fx) * (1 - fy)},
		{x1, y0, fx * (1 - fy)},
		{x0, y1, (1 - fx) * fy},
		{x1, y1, fx * fy},
	} {
		v := data[corner.y*srcWidth+corner.x]
		if corner.w == 0 || band.IsNoData(v) {
			continue
		}
		sum += v * corner.w
		weights += corner.w
	}
	if weights == 0 {
		return sampleNearest(data, srcWidth, srcHeight, col, row, width, height)
	}
	return sum / weights
}
