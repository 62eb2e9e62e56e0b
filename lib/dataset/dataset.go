// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
)

// Dataset is a reference-counted container of raster and/or vector
// content. A new Dataset holds one reference owned by its creator.
type Dataset struct {
	name     string
	driver   string
	capable  Kind
	raster   *Grid
	layers   []*Layer
	metadata map[string]string
	update   bool
	modified atomic.Bool

	refs atomic.Int32

	mu      sync.Mutex
	onClose []func() error
	closed  bool
}

// New returns a dataset owned by the named driver. capable is the set
// of kinds the driver can hold; it is reported by Kind while the
// dataset has no content yet.
func New(driver, name string, capable Kind) *Dataset {
	d := &Dataset{
		name:     name,
		driver:   driver,
		capable:  capable,
		metadata: map[string]string{},
	}
	d.refs.Store(1)
	return d
}

// Name returns the dataset name: a file path or mem:// URI.
func (d *Dataset) Name() string { return d.name }

// SetName renames the dataset. Used when an in-memory result is
// about to be described under its eventual output name.
func (d *Dataset) SetName(name string) { d.name = name }

// Driver returns the short name of the owning driver.
func (d *Dataset) Driver() string { return d.driver }

// Kind returns the kinds of content present. An empty dataset reports
// the kinds its driver can hold.
func (d *Dataset) Kind() Kind {
	var kind Kind
	if d.raster != nil {
		kind |= Raster
	}
	if len(d.layers) > 0 {
		kind |= Vector
	}
	if kind == 0 {
		return d.capable
	}
	return kind
}

// Raster returns the raster content, or nil.
func (d *Dataset) Raster() *Grid { return d.raster }

// SetRaster replaces the raster content.
func (d *Dataset) SetRaster(r *Grid) {
	d.raster = r
	d.MarkModified()
}

// Layers returns the vector layers in order.
func (d *Dataset) Layers() []*Layer { return d.layers }

// Layer returns the named layer, or nil.
func (d *Dataset) Layer(name string) *Layer {
	for _, layer := range d.layers {
		if layer.Name == name {
			return layer
		}
	}
	return nil
}

// AddLayer appends a layer. A layer with the same name is an error.
func (d *Dataset) AddLayer(layer *Layer) error {
	if d.Layer(layer.Name) != nil {
		return fmt.Errorf("layer %q already exists in %s", layer.Name, d.name)
	}
	d.layers = append(d.layers, layer)
	d.MarkModified()
	return nil
}

// RemoveLayer deletes the named layer and reports whether it existed.
func (d *Dataset) RemoveLayer(name string) bool {
	index := slices.IndexFunc(d.layers, func(l *Layer) bool { return l.Name == name })
	if index < 0 {
		return false
	}
	d.layers = slices.Delete(d.layers, index, index+1)
	d.MarkModified()
	return true
}

// Metadata returns a copy of the dataset-level metadata.
func (d *Dataset) Metadata() map[string]string { return maps.Clone(d.metadata) }

// SetMetadataItem sets one metadata entry.
func (d *Dataset) SetMetadataItem(key, value string) { d.metadata[key] = value }

// Update reports whether the dataset was opened for update.
func (d *Dataset) Update() bool { return d.update }

// MarkModified records that content changed, so drivers flush on
// close of an update-mode dataset.
func (d *Dataset) MarkModified() { d.modified.Store(true) }

// Modified reports whether content changed since open.
func (d *Dataset) Modified() bool { return d.modified.Load() }

// OnClose registers fn to run when the last reference is released.
// Hooks run in reverse registration order.
func (d *Dataset) OnClose(fn func() error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onClose = append(d.onClose, fn)
}

// Reference adds a reference and returns d.
func (d *Dataset) Reference() *Dataset {
	d.refs.Add(1)
	return d
}

// RefCount returns the current number of references.
func (d *Dataset) RefCount() int { return int(d.refs.Load()) }

// Closed reports whether the last reference has been released.
func (d *Dataset) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// ErrOverReleased is returned when Release is called on a dataset
// that has already been closed.
var ErrOverReleased = errors.New("dataset released more times than referenced")

// Release drops a reference. Dropping the last one runs the close
// hooks and returns their combined error.
func (d *Dataset) Release() error {
	remaining := d.refs.Add(-1)
	if remaining > 0 {
		return nil
	}
	d.mu.Lock()
	if d.closed || remaining < 0 {
		d.mu.Unlock()
		return fmt.Errorf("%s: %w", d.name, ErrOverReleased)
	}
	d.closed = true
	hooks := d.onClose
	d.onClose = nil
	d.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
