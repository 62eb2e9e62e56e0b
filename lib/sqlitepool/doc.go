// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool provides the SQLite connection pool behind the
// single-file vector driver (.gpkg, .sqlite).
//
// It wraps zombiezen.com/go/sqlite with fixed pragmas. Writable pools
// use WAL journaling with synchronous=NORMAL; read-only pools open
// the file with SQLITE_OPEN_READONLY and only apply the cache and
// busy-timeout pragmas.
//
//	pool, err := sqlitepool.Open(sqlitepool.Config{
//	    Path:   "roads.gpkg",
//	    Logger: logger,
//	    OnConnect: func(conn *sqlite.Conn) error {
//	        return sqlitex.ExecuteScript(conn, schema, nil)
//	    },
//	})
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	err = pool.Transaction(ctx, func(conn *sqlite.Conn) error {
//	    return sqlitex.Execute(conn, "INSERT ...", &sqlitex.ExecOptions{Args: args})
//	})
package sqlitepool
