// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/geoalg/lib/progress"
	"github.com/bureau-foundation/geoalg/lib/sqlitepool"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS layers (
	name          TEXT PRIMARY KEY,
	geometry_type TEXT NOT NULL,
	fields        TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS features (
	layer      TEXT NOT NULL,
	fid        INTEGER NOT NULL,
	geometry   TEXT,
	properties TEXT NOT NULL,
	PRIMARY KEY (layer, fid)
);
`

var sqliteHeader = []byte("SQLite format 3\x00")

type sqliteDriver struct{ baseDriver }

func (d *sqliteDriver) Identify(name string) bool {
	if d.hasExtension(name) {
		return true
	}
	file, err := os.Open(name)
	if err != nil {
		return false
	}
	defer file.Close()
	header := make([]byte, len(sqliteHeader))
	if _, err := io.ReadFull(file, header); err != nil {
		return false
	}
	return bytes.Equal(header, sqliteHeader)
}

func (d *sqliteDriver) Open(name string, options OpenOptions) (*Dataset, error) {
	if _, err := os.Stat(name); err != nil {
		return nil, fmt.Errorf("%s: No such file or directory", name)
	}

	var lock *fileLock
	if options.Update {
		var err error
		if lock, err = lockForUpdate(name); err != nil {
			return nil, err
		}
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     name,
		ReadOnly: !options.Update,
		Logger:   options.Logger,
	})
	if err != nil {
		if lock != nil {
			lock.Unlock()
		}
		return nil, err
	}

	ds, err := readSQLite(name, pool)
	if err != nil {
		pool.Close()
		if lock != nil {
			lock.Unlock()
		}
		return nil, err
	}

	if lock != nil {
		ds.update = true
		ds.OnClose(lock.Unlock)
	}
	ds.OnClose(pool.Close)
	if lock != nil {
		ds.OnClose(func() error {
			if !ds.Modified() {
				return nil
			}
			options.logger().Debug("flushing updated vector dataset", "name", name)
			return writeSQLite(pool, ds, nil)
		})
	}
	return ds, nil
}

func readSQLite(name string, pool *sqlitepool.Pool) (*Dataset, error) {
	ds := New("SQLite", name, Vector)
	ctx := context.Background()
	err := pool.With(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, "SELECT name, geometry_type, fields FROM layers ORDER BY rowid", &sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				layerName := stmt.ColumnText(0)
				var fields []Field
				if err := json.Unmarshal([]byte(stmt.ColumnText(2)), &fields); err != nil {
					return fmt.Errorf("layer %s: decoding fields: %w", layerName, err)
				}
				ds.layers = append(ds.layers, NewLazyLayer(layerName, stmt.ColumnText(1), fields, func() ([]*Feature, error) {
					return readSQLiteFeatures(pool, layerName)
				}))
				return nil
			},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("'%s' not recognized as being in a supported file format: %w", name, err)
	}
	return ds, nil
}

func readSQLiteFeatures(pool *sqlitepool.Pool, layer string) ([]*Feature, error) {
	var features []*Feature
	err := pool.With(context.Background(), func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, "SELECT fid, geometry, properties FROM features WHERE layer = ? ORDER BY fid", &sqlitex.ExecOptions{
			Args: []any{layer},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				feature := &Feature{ID: stmt.ColumnInt64(0)}
				if stmt.ColumnType(1) != sqlite.TypeNull {
					feature.Geometry = &Geometry{}
					if err := json.Unmarshal([]byte(stmt.ColumnText(1)), feature.Geometry); err != nil {
						return fmt.Errorf("feature %d: decoding geometry: %w", feature.ID, err)
					}
				}
				decoder := json.NewDecoder(bytes.NewReader([]byte(stmt.ColumnText(2))))
				decoder.UseNumber()
				if err := decoder.Decode(&feature.Properties); err != nil {
					return fmt.Errorf("feature %d: decoding properties: %w", feature.ID, err)
				}
				feature.Properties = normalizeNumbers(feature.Properties)
				features = append(features, feature)
				return nil
			},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("reading layer %s: %w", layer, err)
	}
	return features, nil
}

func (d *sqliteDriver) CreateCopy(name string, src *Dataset, options CreateOptions) (*Dataset, error) {
	if len(src.Layers()) == 0 {
		return nil, fmt.Errorf("SQLite driver only supports vector content, but %s has no layers", src.Name())
	}
	if err := d.Delete(name); err != nil {
		return nil, err
	}
	pool, err := sqlitepool.Open(sqlitepool.Config{Path: name, Logger: options.Logger})
	if err != nil {
		return nil, err
	}
	writeErr := writeSQLite(pool, src, options.Progress)
	closeErr := pool.Close()
	if err := errors.Join(writeErr, closeErr); err != nil {
		return nil, err
	}
	options.logger().Debug("vector written", "name", name, "layers", len(src.Layers()))
	return d.Open(name, OpenOptions{Logger: options.Logger})
}

// writeSQLite replaces the whole content of the database with the
// layers of src, in one transaction.
func writeSQLite(pool *sqlitepool.Pool, src *Dataset, pfn progress.Func) error {
	layers := src.Layers()
	type layerData struct {
		layer    *Layer
		features []*Feature
	}
	// Read everything before opening the write transaction: lazy
	// layers may be backed by this same pool.
	loaded := make([]layerData, 0, len(layers))
	for _, layer := range layers {
		features, err := layer.Features()
		if err != nil {
			return fmt.Errorf("reading layer %s: %w", layer.Name, err)
		}
		loaded = append(loaded, layerData{layer: layer, features: features})
	}

	return pool.Transaction(context.Background(), func(conn *sqlite.Conn) error {
		if err := sqlitex.ExecuteScript(conn, sqliteSchema+"DELETE FROM features; DELETE FROM layers;", nil); err != nil {
			return fmt.Errorf("preparing schema: %w", err)
		}
		for i, entry := range loaded {
			fields, err := json.Marshal(entry.layer.Fields)
			if err != nil {
				return err
			}
			if err := sqlitex.Execute(conn, "INSERT INTO layers (name, geometry_type, fields) VALUES (?, ?, ?)", &sqlitex.ExecOptions{
				Args: []any{entry.layer.Name, entry.layer.GeometryType, string(fields)},
			}); err != nil {
				return fmt.Errorf("writing layer %s: %w", entry.layer.Name, err)
			}
			for _, f := range entry.features {
				var geometry any
				if f.Geometry != nil {
					encoded, err := json.Marshal(f.Geometry)
					if err != nil {
						return err
					}
					geometry = string(encoded)
				}
				properties, err := json.Marshal(f.Properties)
				if err != nil {
					return err
				}
				if err := sqlitex.Execute(conn, "INSERT INTO features (layer, fid, geometry, properties) VALUES (?, ?, ?, ?)", &sqlitex.ExecOptions{
					Args: []any{entry.layer.Name, f.ID, geometry, string(properties)},
				}); err != nil {
					return fmt.Errorf("writing feature %d of %s: %w", f.ID, entry.layer.Name, err)
				}
			}
			if err := progress.Report(pfn, float64(i+1)/float64(len(loaded)), ""); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes the database and its journal files.
func (d *sqliteDriver) Delete(name string) error {
	for _, suffix := range []string{"", "-wal", "-shm", "-journal"} {
		if err := os.Remove(name + suffix); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("deleting %s: %w", name+suffix, err)
		}
	}
	return nil
}
