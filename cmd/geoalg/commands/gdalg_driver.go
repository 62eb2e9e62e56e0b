// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/bureau-foundation/geoalg/lib/algorithm"
	"github.com/bureau-foundation/geoalg/lib/config"
	"github.com/bureau-foundation/geoalg/lib/dataset"
	"github.com/bureau-foundation/geoalg/lib/gdalg"
	"github.com/bureau-foundation/geoalg/lib/version"
)

// gdalgDriver opens deferred-execution descriptors by replaying their
// command line in stream mode. It lives beside the command tree
// because opening needs the whole tree.
type gdalgDriver struct{}

func init() {
	dataset.Register(gdalgDriver{})
}

func (gdalgDriver) Name() string                     { return "GDALG" }
func (gdalgDriver) LongName() string                 { return "Deferred algorithm execution" }
func (gdalgDriver) Kinds() dataset.Kind              { return dataset.Raster | dataset.Vector }
func (gdalgDriver) Extensions() []string             { return []string{gdalg.Extension} }
func (gdalgDriver) Capabilities() dataset.Capability { return dataset.CanOpen }

func (gdalgDriver) Identify(name string) bool {
	if gdalg.HasExtension(name) {
		return true
	}
	file, err := os.Open(name)
	if err != nil {
		return false
	}
	defer file.Close()
	head := make([]byte, 4096)
	n, _ := io.ReadFull(file, head)
	return gdalg.Sniff(head[:n])
}

// Descriptors being replayed, by absolute path. A descriptor whose
// command line reaches itself would otherwise recurse forever.
var replaying struct {
	sync.Mutex
	paths map[string]bool
}

func enterReplay(path string) (leave func(), ok bool) {
	replaying.Lock()
	defer replaying.Unlock()
	if replaying.paths[path] {
		return nil, false
	}
	if replaying.paths == nil {
		replaying.paths = map[string]bool{}
	}
	replaying.paths[path] = true
	return func() {
		replaying.Lock()
		delete(replaying.paths, path)
		replaying.Unlock()
	}, true
}

func (gdalgDriver) Open(name string, options dataset.OpenOptions) (*dataset.Dataset, error) {
	if options.Update {
		return nil, fmt.Errorf("%s: GDALG datasets are read-only", name)
	}
	descriptor, err := gdalg.ReadFile(name)
	if err != nil {
		return nil, err
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if version.NewerThanRunning(descriptor.Version) {
		logger.Warn("descriptor was written by a newer version",
			"name", name, "written_by", descriptor.Version, "running", version.Short())
	}

	absolute, err := filepath.Abs(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	leave, ok := enterReplay(absolute)
	if !ok {
		return nil, fmt.Errorf("%s: descriptor refers to itself", name)
	}
	defer leave()

	args, err := descriptor.Args()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if len(args) == 0 || args[0] != ProgramName {
		return nil, fmt.Errorf("%s: command line must start with %q", name, ProgramName)
	}

	cfg := config.Default()
	for key, value := range options.Config {
		cfg.SetOption(key, value)
	}
	env := &algorithm.Env{
		Logger:          logger,
		Stdout:          io.Discard,
		Stderr:          io.Discard,
		Config:          cfg,
		StreamExecution: true,
	}
	if descriptor.RelativeToFile() {
		env.ReferenceDir = filepath.Dir(absolute)
	}
	return replay(env, args[1:], name)
}

// replay runs args against a fresh command tree and returns a new
// reference to the streamed output.
func replay(env *algorithm.Env, args []string, name string) (ds *dataset.Dataset, err error) {
	root := NewRoot()
	root.Core().SetEnv(env)
	leaf, err := algorithm.ParseCommandLine(root, args)
	defer func() {
		err = errors.Join(err, algorithm.Finalize(leaf))
		if err != nil && ds != nil {
			_ = ds.Release()
			ds = nil
		}
	}()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if err := algorithm.Run(context.Background(), leaf, nil); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	producer, ok := leaf.(interface{ OutputDataset() *dataset.Dataset })
	if !ok || producer.OutputDataset() == nil {
		return nil, fmt.Errorf("%s: algorithm %s produces no dataset", name, leaf.Core().Name())
	}
	return producer.OutputDataset().Reference(), nil
}

func (gdalgDriver) CreateCopy(name string, _ *dataset.Dataset, _ dataset.CreateOptions) (*dataset.Dataset, error) {
	return nil, fmt.Errorf("%s: GDALG datasets are written with --output-format GDALG on an algorithm", name)
}
