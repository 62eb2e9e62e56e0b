// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/bureau-foundation/geoalg/lib/algorithm"
	"github.com/bureau-foundation/geoalg/lib/clock"
	"github.com/bureau-foundation/geoalg/lib/dataset"
	"github.com/bureau-foundation/geoalg/lib/progress"
)

// RunContext is what a step receives when it runs.
type RunContext struct {
	// Progress receives the step's own progress. Nil when nobody
	// listens or the segment does not report.
	Progress progress.Func

	// Next is the step the running step negotiated to feed directly,
	// or nil.
	Next Step

	producer *StepBase
	segment  progress.Func

	// nextFrom is where the consumer's share of the segment starts.
	nextFrom float64
}

// RunNext feeds ds to rc.Next, runs it on the rest of the segment's
// progress range and records its output as the producer's.
func (rc *RunContext) RunNext(ctx context.Context, ds *dataset.Dataset) error {
	if rc.Next == nil {
		return errors.New("no next step negotiated")
	}
	next := rc.Next.StepCore()
	if err := next.feed(ds); err != nil {
		return err
	}
	if err := next.validate(); err != nil {
		return err
	}
	if err := runStep(ctx, rc.Next, &RunContext{Progress: progress.Scaled(rc.segment, rc.nextFrom, 1)}); err != nil {
		return err
	}
	if rc.producer != nil {
		return rc.producer.SetOutput(next.OutputDataset())
	}
	return nil
}

// runStep runs a fed and validated step and advances its state.
func runStep(ctx context.Context, step Step, rc *RunContext) error {
	s := step.StepCore()
	if s.state == Finalized {
		return s.Executionf("step has been finalized")
	}
	env := s.Env()
	start := env.Clock.Now()
	s.Logger().Debug("step starting", "step", s.Name())
	if err := step.RunStep(ctx, rc); err != nil {
		return err
	}
	s.state = Executed
	s.Logger().Debug("step finished", "step", s.Name(), "duration", clock.Since(env.Clock, start))
	return nil
}

// segment is a step run on its own, or a producer with the consumer it
// negotiated to feed.
type segment struct {
	index int
	steps []Step
}

func (g segment) reportsProgress() bool {
	for _, step := range g.steps {
		if !step.StepCore().NativelyStreaming() {
			return true
		}
	}
	return false
}

// plan groups steps into segments. A step is paired with the next one
// when it can handle it, unless the next one streams its result out.
func plan(logger *slog.Logger, steps []Step) []segment {
	var segments []segment
	for i := 0; i < len(steps); i++ {
		if i+1 < len(steps) && steps[i].CanHandleNextStep(steps[i+1]) {
			if write, ok := steps[i+1].(*WriteStep); !ok || !write.IsStreamOutput() {
				logger.Debug("steps negotiated", "producer", steps[i].Core().Name(), "consumer", steps[i+1].Core().Name())
				segments = append(segments, segment{index: i, steps: steps[i : i+2]})
				i++
				continue
			}
		}
		segments = append(segments, segment{index: i, steps: steps[i : i+1]})
	}
	return segments
}

// run executes steps in order, feeding each one the output of the
// previous. Every segment that does measurable work gets an equal
// share of pfn's range. It returns the final dataset, without an extra
// reference, and the concatenated output strings.
func run(ctx context.Context, logger *slog.Logger, steps []Step, pfn progress.Func) (*dataset.Dataset, string, error) {
	segments := plan(logger, steps)
	counted := 0
	for _, g := range segments {
		if g.reportsProgress() {
			counted++
		}
	}
	counted = max(counted, 1)

	var (
		output   strings.Builder
		previous *dataset.Dataset
		done     int
	)
	for _, g := range segments {
		step := g.steps[0]
		s := step.StepCore()

		if g.index > 0 {
			if err := s.feed(previous); err != nil {
				if errors.Is(err, errNotFed) {
					return nil, "", s.Executionf("Step nr %d (%s) does not use input dataset from previous step", g.index, s.Name())
				}
				return nil, "", stepError(s, err)
			}
			if err := s.validate(); err != nil {
				return nil, "", err
			}
		}

		var segmentProgress progress.Func
		if g.reportsProgress() {
			segmentProgress = progress.Scaled(pfn, float64(done)/float64(counted), float64(done+1)/float64(counted))
			done++
		}
		rc := &RunContext{Progress: segmentProgress, producer: s, segment: segmentProgress}
		if len(g.steps) == 2 {
			rc.Next = g.steps[1]
			rc.nextFrom = 0.5
			if feedsTerminalSink(g, len(steps)) {
				rc.nextFrom = 1
			}
			rc.Progress = progress.Scaled(segmentProgress, 0, rc.nextFrom)
		}

		if err := runStep(ctx, step, rc); err != nil {
			return nil, "", stepError(s, err)
		}
		for _, member := range g.steps {
			output.WriteString(member.Core().OutputString())
		}

		previous = s.OutputDataset()
		last := g.index+len(g.steps) == len(steps)
		if previous == nil && !(last && producesNothingByDesign(g.steps[len(g.steps)-1])) {
			return nil, "", s.Executionf("Step nr %d (%s) failed to produce an output dataset", g.index, s.Name())
		}
	}

	if pfn != nil && output.Len() == 0 {
		_ = progress.Report(pfn, 1.0, "")
	}
	return previous, output.String(), nil
}

// feedsTerminalSink reports whether g pairs a producer with the
// pipeline's final write, which then gets no share of the progress.
func feedsTerminalSink(g segment, total int) bool {
	if g.index+len(g.steps) != total {
		return false
	}
	_, ok := g.steps[len(g.steps)-1].(*WriteStep)
	return ok
}

// producesNothingByDesign reports whether a last step may end without
// an output dataset: it either writes to a named output or produces
// text.
func producesNothingByDesign(step Step) bool {
	b := step.Core()
	return b.Arg(algorithm.ArgOutput) != nil || b.Arg(algorithm.ArgOutputString) != nil
}

// stepError attributes err to s, keeping algorithm errors and
// cancellations as they are.
func stepError(s *StepBase, err error) error {
	var algErr *algorithm.Error
	if errors.As(err, &algErr) || algorithm.KindOf(err) == algorithm.KindCancelled {
		return err
	}
	return s.Executionf("%w", err)
}
