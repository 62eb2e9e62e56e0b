// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package algorithm

import (
	"runtime"

	"github.com/bureau-foundation/geoalg/lib/dataset"
)

// DatasetHandle is the value of a dataset argument: a name, an opened
// dataset, or both. While an object is held the name is the object's
// name.
//
// A handle owns one reference on its object. SetObject and SetFrom
// take a new reference; Close gives it back, running the dataset's
// close protocol when it was the last. A handle that becomes
// unreachable without being closed releases its reference through a
// runtime cleanup. Close is idempotent.
type DatasetHandle struct {
	name    string
	nameSet bool
	object  *dataset.Dataset
	cleanup runtime.Cleanup
}

// NewDatasetHandle returns a handle holding only a name. An empty
// name yields an empty handle.
func NewDatasetHandle(name string) *DatasetHandle {
	return &DatasetHandle{name: name, nameSet: name != ""}
}

// HandleFor returns a handle holding a new reference on ds.
func HandleFor(ds *dataset.Dataset) *DatasetHandle {
	h := &DatasetHandle{}
	h.SetObject(ds)
	return h
}

// Name returns the dataset name, derived from the object when one is
// held.
func (h *DatasetHandle) Name() string {
	if h.object != nil {
		return h.object.Name()
	}
	return h.name
}

// IsNameSet reports whether the handle carries a name or an object.
func (h *DatasetHandle) IsNameSet() bool { return h.nameSet || h.object != nil }

// Object returns the held dataset, or nil. The handle keeps its
// reference; callers that retain the object beyond the handle's
// lifetime take their own with Reference.
func (h *DatasetHandle) Object() *dataset.Dataset { return h.object }

// SetName drops any held object and records name.
func (h *DatasetHandle) SetName(name string) error {
	err := h.Close()
	h.name = name
	h.nameSet = true
	return err
}

// SetObject drops any held object and takes a new reference on ds. A
// nil ds leaves the handle empty.
func (h *DatasetHandle) SetObject(ds *dataset.Dataset) error {
	if ds != nil {
		ds.Reference()
	}
	return h.adopt(ds)
}

// adopt stores ds, taking over a reference the caller already owns.
func (h *DatasetHandle) adopt(ds *dataset.Dataset) error {
	err := h.Close()
	h.object = ds
	if ds == nil {
		h.name = ""
		h.nameSet = false
		return err
	}
	h.name = ds.Name()
	h.nameSet = true
	h.cleanup = runtime.AddCleanup(h, releaseForgotten, ds)
	return err
}

func releaseForgotten(ds *dataset.Dataset) { _ = ds.Release() }

// SetFrom makes h share other's object, or copy its name when other
// holds no object.
func (h *DatasetHandle) SetFrom(other *DatasetHandle) error {
	if other == h {
		return nil
	}
	if other.object != nil {
		return h.SetObject(other.object)
	}
	err := h.Close()
	h.name = other.name
	h.nameSet = other.nameSet
	return err
}

// Close releases the held object, keeping the name. It reports the
// close error of the dataset when this was the last reference.
func (h *DatasetHandle) Close() error {
	if h.object == nil {
		return nil
	}
	ds := h.object
	h.cleanup.Stop()
	h.object = nil
	h.name = ds.Name()
	return ds.Release()
}
