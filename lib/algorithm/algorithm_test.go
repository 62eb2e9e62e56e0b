// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package algorithm

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/geoalg/lib/clock"
	"github.com/bureau-foundation/geoalg/lib/progress"
	"github.com/bureau-foundation/geoalg/lib/testutil"
)

type steppingAlg struct {
	Base
	steps int
}

func (a *steppingAlg) RunImpl(ctx context.Context, pfn progress.Func) error {
	for i := 1; i <= a.steps; i++ {
		if err := progress.Report(pfn, float64(i)/float64(a.steps), ""); err != nil {
			return err
		}
	}
	return nil
}

func newSteppingAlg(steps int) *steppingAlg {
	a := &steppingAlg{steps: steps}
	a.Init("steps", "Reports progress.", "")
	return a
}

func TestRun_ProgressIsMonotonic(t *testing.T) {
	alg := newSteppingAlg(4)
	recorder := &testutil.ProgressRecorder{}
	if err := Run(context.Background(), alg, recorder.Func()); err != nil {
		t.Fatal(err)
	}
	recorder.RequireMonotonic(t)
	if recorder.Last() != 1 {
		t.Errorf("last progress = %v, want 1", recorder.Last())
	}
}

func TestRun_LogsDurationFromClock(t *testing.T) {
	var logs bytes.Buffer
	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	fake.AutoAdvance(3 * time.Second)

	alg := newSteppingAlg(2)
	alg.SetEnv(&Env{
		Logger: slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
		Clock:  fake,
	})
	if err := Run(context.Background(), alg, nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(logs.String(), `msg="algorithm finished"`) || !strings.Contains(logs.String(), "duration=3s") {
		t.Errorf("logs = %q, want a finish record with duration=3s", logs.String())
	}
}

func TestRun_CancelledByProgress(t *testing.T) {
	alg := newSteppingAlg(4)
	recorder := &testutil.ProgressRecorder{CancelAt: 0.5}
	err := Run(context.Background(), alg, recorder.Func())
	if err == nil {
		t.Fatal("Run succeeded after cancellation")
	}
	if KindOf(err) != KindCancelled || !errors.Is(err, ErrCancelled) {
		t.Errorf("err = %v (kind %s), want cancelled", err, KindOf(err))
	}
}

func TestRun_CancelledByContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Run(ctx, newSteppingAlg(2), nil)
	if KindOf(err) != KindCancelled {
		t.Errorf("err = %v (kind %s), want cancelled", err, KindOf(err))
	}
}

func TestRun_ValidatesWhenNotParsed(t *testing.T) {
	alg := newTestAlg("t", func(b *Base) {
		b.AddArg("source", 0, "Source", TypeString).SetRequired()
	})
	err := Run(context.Background(), alg, nil)
	if KindOf(err) != KindValidation {
		t.Errorf("err = %v, want validation error", err)
	}
	if alg.runs != 0 {
		t.Error("algorithm ran with invalid arguments")
	}
}

func TestRun_GroupWithoutCommand(t *testing.T) {
	root := newGroupWithChild()
	err := Run(context.Background(), root, nil)
	if err == nil || !strings.HasSuffix(err.Error(), "Missing command name.") {
		t.Errorf("err = %v", err)
	}
}

func TestDeclaration_DuplicateNames(t *testing.T) {
	alg := newTestAlg("t", func(b *Base) {
		b.AddArg("band", 'b', "Band", TypeInteger)
		b.AddArg("band", 0, "Band again", TypeInteger)
		b.AddArg("bias", 'b', "Bias", TypeReal)
	})
	err := alg.DeclarationError()
	if err == nil {
		t.Fatal("duplicate declarations accepted")
	}
	if !strings.Contains(err.Error(), "Long name 'band' already declared") ||
		!strings.Contains(err.Error(), "Short name 'b' already declared") {
		t.Errorf("error = %q", err)
	}
}

var registerPlugin sync.Once

func TestInstantiateChild_GlobalRegistry(t *testing.T) {
	registerPlugin.Do(func() {
		RegisterGlobal([]string{"geoalg-test", "plugin"}, func() Algorithm { return newTestAlg("plugin", nil) })
	})
	root := newGroup("geoalg-test")
	if !root.HasChildren() {
		t.Fatal("global child not visible")
	}
	child, err := root.InstantiateChild("plugin")
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(child.Core().CallPath(), " "); got != "geoalg-test plugin" {
		t.Errorf("CallPath = %q", got)
	}
	_, err = root.InstantiateChild("plugn")
	if err == nil || !strings.HasSuffix(err.Error(), "Algorithm 'plugn' is unknown. Do you mean 'plugin'?") {
		t.Errorf("error = %v", err)
	}
}
