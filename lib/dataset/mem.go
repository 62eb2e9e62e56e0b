// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/bureau-foundation/geoalg/lib/progress"
)

const memPrefix = "mem://"

// memStore holds datasets written under mem:// names. The store owns
// one reference to each.
var memStore = &memoryStore{datasets: map[string]*Dataset{}}

type memoryStore struct {
	mu       sync.Mutex
	datasets map[string]*Dataset
}

func (s *memoryStore) get(name string) *Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.datasets[name]
}

func (s *memoryStore) put(name string, ds *Dataset) {
	s.mu.Lock()
	previous := s.datasets[name]
	s.datasets[name] = ds
	s.mu.Unlock()
	if previous != nil {
		_ = previous.Release()
	}
}

func (s *memoryStore) delete(name string) {
	s.mu.Lock()
	previous := s.datasets[name]
	delete(s.datasets, name)
	s.mu.Unlock()
	if previous != nil {
		_ = previous.Release()
	}
}

// NewMemory returns an empty in-memory dataset with a fresh mem://
// name. It is not visible to Open until stored with [Store].
func NewMemory() *Dataset {
	return New("MEM", memPrefix+uuid.NewString(), Raster|Vector)
}

// Store makes ds reachable by Open under its name, which must start
// with mem://. The store takes its own reference.
func Store(ds *Dataset) error {
	if !strings.HasPrefix(ds.Name(), memPrefix) {
		return fmt.Errorf("in-memory dataset names must start with %s: %q", memPrefix, ds.Name())
	}
	memStore.put(ds.Name(), ds.Reference())
	return nil
}

type memDriver struct{ baseDriver }

func (d *memDriver) Identify(name string) bool {
	return strings.HasPrefix(name, memPrefix)
}

func (d *memDriver) Open(name string, options OpenOptions) (*Dataset, error) {
	ds := memStore.get(name)
	if ds == nil {
		return nil, fmt.Errorf("%s: No such file or directory", name)
	}
	return ds.Reference(), nil
}

// CreateCopy materializes src into a new in-memory dataset. An empty
// name or bare "mem://" gets a generated one.
func (d *memDriver) CreateCopy(name string, src *Dataset, options CreateOptions) (*Dataset, error) {
	if name == "" || name == memPrefix {
		name = memPrefix + uuid.NewString()
	}
	copied, err := Materialize(src, "MEM", name, options.Progress)
	if err != nil {
		return nil, err
	}
	if err := Store(copied); err != nil {
		_ = copied.Release()
		return nil, err
	}
	return copied, nil
}

// Materialize returns a deep copy of src whose lazy bands and layers
// have all been evaluated. Progress advances per band and per layer.
func Materialize(src *Dataset, driver, name string, pfn progress.Func) (*Dataset, error) {
	copied := New(driver, name, src.capable)
	for key, value := range src.metadata {
		copied.metadata[key] = value
	}

	steps := len(src.layers)
	if src.raster != nil {
		steps += len(src.raster.Bands)
	}
	done := 0
	advance := func(what string) error {
		done++
		return progress.Report(pfn, float64(done)/float64(max(steps, 1)), what)
	}

	if src.raster != nil {
		raster := &Grid{
			Width:        src.raster.Width,
			Height:       src.raster.Height,
			GeoTransform: src.raster.GeoTransform,
		}
		for i, band := range src.raster.Bands {
			cloned, err := band.clone()
			if err != nil {
				return nil, fmt.Errorf("reading band %d of %s: %w", i+1, src.Name(), err)
			}
			raster.Bands = append(raster.Bands, cloned)
			if err := advance(""); err != nil {
				return nil, err
			}
		}
		copied.raster = raster
	}
	for _, layer := range src.layers {
		cloned, err := layer.clone()
		if err != nil {
			return nil, err
		}
		copied.layers = append(copied.layers, cloned)
		if err := advance(""); err != nil {
			return nil, err
		}
	}
	if steps == 0 {
		if err := progress.Report(pfn, 1, ""); err != nil {
			return nil, err
		}
	}
	copied.modified.Store(false)
	return copied, nil
}
