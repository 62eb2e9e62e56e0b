// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/bureau-foundation/geoalg/lib/progress"
)

// Capability is a set of operations a driver supports.
type Capability uint8

const (
	CanOpen Capability = 1 << iota
	CanUpdate
	CanCreateCopy
)

// Names returns the capability names used by the driver listing.
func (c Capability) Names() []string {
	var names []string
	if c&CanOpen != 0 {
		names = append(names, "open")
	}
	if c&CanUpdate != 0 {
		names = append(names, "update")
	}
	if c&CanCreateCopy != 0 {
		names = append(names, "create_copy")
	}
	return names
}

// Driver opens and creates datasets of one format.
type Driver interface {
	// Name is the short name used by --input-format and
	// --output-format, such as "GRC".
	Name() string

	// LongName is a human-readable description.
	LongName() string

	// Kinds is the set of content kinds the format can hold.
	Kinds() Kind

	// Extensions lists file suffixes, lower case with leading dot.
	Extensions() []string

	// Capabilities reports the supported operations.
	Capabilities() Capability

	// Identify reports whether name looks like a dataset of this
	// format. It must be cheap: an extension check and at most a
	// short header read.
	Identify(name string) bool

	// Open opens an existing dataset.
	Open(name string, options OpenOptions) (*Dataset, error)

	// CreateCopy writes src to name, replacing any existing
	// dataset, and returns the newly written dataset opened
	// read-only.
	CreateCopy(name string, src *Dataset, options CreateOptions) (*Dataset, error)
}

// Deleter is implemented by drivers whose datasets span more than the
// named file, such as SQLite journals.
type Deleter interface {
	Delete(name string) error
}

// OpenOptions control Open.
type OpenOptions struct {
	// Kinds restricts the acceptable content kinds. Zero accepts
	// any.
	Kinds Kind

	// Update requests write access.
	Update bool

	// AllowedDrivers restricts candidate drivers by short name.
	AllowedDrivers []string

	// Options are driver-specific open options (KEY=VALUE).
	Options map[string]string

	// Config holds configuration options visible to drivers.
	Config map[string]string

	// Logger receives Debug lifecycle events. Nil discards.
	Logger *slog.Logger
}

func (o OpenOptions) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}

// CreateOptions control CreateCopy.
type CreateOptions struct {
	// Options are dataset creation options (KEY=VALUE).
	Options map[string]string

	// LayerOptions are layer creation options (KEY=VALUE).
	LayerOptions map[string]string

	// Config holds configuration options visible to drivers.
	Config map[string]string

	// Progress receives write progress. May be nil.
	Progress progress.Func

	// Logger receives Debug lifecycle events. Nil discards.
	Logger *slog.Logger
}

func (o CreateOptions) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}

var registry struct {
	sync.RWMutex
	drivers []Driver
}

// Register adds a driver. Registering a second driver with the same
// name replaces the first.
func Register(driver Driver) {
	registry.Lock()
	defer registry.Unlock()
	for i, existing := range registry.drivers {
		if strings.EqualFold(existing.Name(), driver.Name()) {
			registry.drivers[i] = driver
			return
		}
	}
	registry.drivers = append(registry.drivers, driver)
}

// Lookup returns the driver with the given short name,
// case-insensitively.
func Lookup(name string) (Driver, bool) {
	registry.RLock()
	defer registry.RUnlock()
	for _, driver := range registry.drivers {
		if strings.EqualFold(driver.Name(), name) {
			return driver, true
		}
	}
	return nil, false
}

// Drivers returns all registered drivers in registration order.
func Drivers() []Driver {
	registry.RLock()
	defer registry.RUnlock()
	return slices.Clone(registry.drivers)
}

// DriverForOutput guesses the output driver from the file extension.
// Longer extensions win so that ".gdalg.json" is not taken for
// ".json".
func DriverForOutput(name string, kind Kind) (Driver, error) {
	var (
		best       Driver
		bestLength int
	)
	if strings.HasPrefix(name, memPrefix) {
		if driver, ok := Lookup("MEM"); ok {
			return driver, nil
		}
	}
	for _, driver := range Drivers() {
		if driver.Capabilities()&CanCreateCopy == 0 || (kind != 0 && !driver.Kinds().Has(kind)) {
			continue
		}
		for _, extension := range driver.Extensions() {
			if hasSuffixFold(name, extension) && len(extension) > bestLength {
				best, bestLength = driver, len(extension)
			}
		}
	}
	if best == nil {
		return nil, fmt.Errorf("Cannot guess driver for %s", name)
	}
	return best, nil
}

// DriverInfo describes a driver for the --drivers listing.
type DriverInfo struct {
	Name         string   `json:"short_name"`
	LongName     string   `json:"long_name"`
	Kinds        []string `json:"kinds"`
	Extensions   []string `json:"file_extensions"`
	Capabilities []string `json:"capabilities"`
}

// Describe returns the listing of all registered drivers.
func Describe() []DriverInfo {
	var infos []DriverInfo
	for _, driver := range Drivers() {
		infos = append(infos, DriverInfo{
			Name:         driver.Name(),
			LongName:     driver.LongName(),
			Kinds:        driver.Kinds().Names(),
			Extensions:   driver.Extensions(),
			Capabilities: driver.Capabilities().Names(),
		})
	}
	return infos
}

// updateTable tracks datasets currently open for update, keyed by
// canonical name.
var updateTable struct {
	sync.Mutex
	open map[string]*Dataset
}

func canonicalName(name string) string {
	if strings.HasPrefix(name, memPrefix) {
		return name
	}
	if absolute, err := filepath.Abs(name); err == nil {
		return absolute
	}
	return name
}

// OpenForUpdate returns the dataset currently open for update under
// name, with an added reference, or nil.
func OpenForUpdate(name string) *Dataset {
	updateTable.Lock()
	defer updateTable.Unlock()
	if ds, ok := updateTable.open[canonicalName(name)]; ok && !ds.Closed() {
		return ds.Reference()
	}
	return nil
}

func trackUpdate(name string, ds *Dataset) {
	key := canonicalName(name)
	updateTable.Lock()
	if updateTable.open == nil {
		updateTable.open = map[string]*Dataset{}
	}
	updateTable.open[key] = ds
	updateTable.Unlock()
	ds.OnClose(func() error {
		updateTable.Lock()
		defer updateTable.Unlock()
		if updateTable.open[key] == ds {
			delete(updateTable.open, key)
		}
		return nil
	})
}

// Open opens name with the first driver that identifies it and
// yields content of an accepted kind.
func Open(name string, options OpenOptions) (*Dataset, error) {
	logger := options.logger()

	if options.Update {
		if ds := OpenForUpdate(name); ds != nil {
			logger.Debug("sharing dataset already open for update", "name", name, "refs", ds.RefCount())
			return ds, nil
		}
	}

	candidates, err := candidateDrivers(options.AllowedDrivers)
	if err != nil {
		return nil, err
	}

	for _, driver := range candidates {
		if !driver.Identify(name) {
			continue
		}
		if options.Kinds != 0 && !driver.Kinds().Has(options.Kinds) {
			continue
		}
		if options.Update && driver.Capabilities()&CanUpdate == 0 {
			return nil, fmt.Errorf("%s: driver %s does not support update access", name, driver.Name())
		}
		ds, err := driver.Open(name, options)
		if err != nil {
			return nil, err
		}
		if options.Kinds != 0 && !ds.Kind().Has(options.Kinds) {
			_ = ds.Release()
			return nil, notRecognized(name)
		}
		logger.Debug("dataset opened",
			"name", name,
			"driver", driver.Name(),
			"kind", ds.Kind().String(),
			"update", options.Update,
		)
		if options.Update {
			trackUpdate(name, ds)
		}
		return ds, nil
	}

	if !Exists(name) {
		return nil, fmt.Errorf("%s: No such file or directory", name)
	}
	return nil, notRecognized(name)
}

func notRecognized(name string) error {
	return fmt.Errorf("'%s' not recognized as being in a supported file format.", name)
}

func candidateDrivers(allowed []string) ([]Driver, error) {
	if len(allowed) == 0 {
		return Drivers(), nil
	}
	var drivers []Driver
	for _, name := range allowed {
		driver, ok := Lookup(name)
		if !ok {
			return nil, fmt.Errorf("Driver '%s' does not exist", name)
		}
		drivers = append(drivers, driver)
	}
	return drivers, nil
}

// CreateCopy writes src to name using the named driver, or the driver
// guessed from the name when driverName is empty.
func CreateCopy(driverName, name string, src *Dataset, options CreateOptions) (*Dataset, error) {
	var (
		driver Driver
		err    error
	)
	if driverName == "" {
		driver, err = DriverForOutput(name, src.Kind())
		if err != nil {
			return nil, err
		}
	} else {
		var ok bool
		driver, ok = Lookup(driverName)
		if !ok {
			return nil, fmt.Errorf("Driver '%s' does not exist", driverName)
		}
	}
	if driver.Capabilities()&CanCreateCopy == 0 {
		return nil, fmt.Errorf("driver %s does not support creation", driver.Name())
	}
	if !driver.Kinds().Has(src.Kind()) {
		return nil, fmt.Errorf("driver %s cannot hold %s content", driver.Name(), src.Kind())
	}
	options.logger().Debug("creating dataset", "name", name, "driver", driver.Name(), "source", src.Name())
	return driver.CreateCopy(name, src, options)
}

// Exists reports whether name refers to an existing file or in-memory
// dataset.
func Exists(name string) bool {
	if strings.HasPrefix(name, memPrefix) {
		return memStore.get(name) != nil
	}
	_, err := os.Stat(name)
	return err == nil
}

// Delete removes the dataset stored under name. A missing dataset is
// not an error.
func Delete(name string) error {
	if strings.HasPrefix(name, memPrefix) {
		memStore.delete(name)
		return nil
	}
	for _, driver := range Drivers() {
		if deleter, ok := driver.(Deleter); ok && driver.Identify(name) {
			return deleter.Delete(name)
		}
	}
	if err := os.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("deleting %s: %w", name, err)
	}
	return nil
}

// baseDriver carries the descriptive half of a Driver.
type baseDriver struct {
	name         string
	longName     string
	kinds        Kind
	extensions   []string
	capabilities Capability
}

func (b baseDriver) Name() string             { return b.name }
func (b baseDriver) LongName() string         { return b.longName }
func (b baseDriver) Kinds() Kind              { return b.kinds }
func (b baseDriver) Extensions() []string     { return b.extensions }
func (b baseDriver) Capabilities() Capability { return b.capabilities }

func (b baseDriver) hasExtension(name string) bool {
	return hasSuffixFold(name, b.extensions...)
}

func init() {
	Register(&memDriver{baseDriver{
		name: "MEM", longName: "In Memory dataset",
		kinds:        Raster | Vector,
		capabilities: CanOpen | CanUpdate | CanCreateCopy,
	}})
	Register(&grcDriver{baseDriver{
		name: "GRC", longName: "Gridded Raster Container",
		kinds:        Raster,
		extensions:   []string{".grc"},
		capabilities: CanOpen | CanUpdate | CanCreateCopy,
	}})
	Register(&geojsonDriver{baseDriver{
		name: "GeoJSON", longName: "GeoJSON",
		kinds:        Vector,
		extensions:   []string{".geojson", ".json"},
		capabilities: CanOpen | CanUpdate | CanCreateCopy,
	}})
	Register(&sqliteDriver{baseDriver{
		name: "SQLite", longName: "SQLite vector container",
		kinds:        Vector,
		extensions:   []string{".gpkg", ".sqlite"},
		capabilities: CanOpen | CanUpdate | CanCreateCopy,
	}})
}
