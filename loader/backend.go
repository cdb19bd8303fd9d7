/*
 * authgate
 *
 * Copyright 2021-2030 The NeoDB Authors.
 * Code is licensed under the GPLv3.
 *
 */

package loader

import (
	"context"
	"database/sql"
	"time"
)

// Timeouts holds the connect/read/write timeouts drawn from the global
// config (config.CatalogConfig), shared by every backend.
type Timeouts struct {
	Connect time.Duration
	Read    time.Duration
	Write   time.Duration
}

// BackendConfig names one configured backend server.
type BackendConfig struct {
	Address  string
	User     string
	Password string
}

// QueryResult is the column/row shape returned by a backend query, textual
// throughout since every query the Loader issues (the grant query, SHOW
// DATABASES, the sanity checks) only ever needs string/NULL cells.
type QueryResult struct {
	Columns []string
	Rows    [][]sql.NullString
}

// GetString returns the value of the named column in row i, and whether it
// was non-NULL.
func (r *QueryResult) GetString(row int, column string) (string, bool) {
	for i, c := range r.Columns {
		if c == column {
			cell := r.Rows[row][i]
			return cell.String, cell.Valid
		}
	}
	return "", false
}

// RowCount reports how many rows the query returned.
func (r *QueryResult) RowCount() int {
	return len(r.Rows)
}

// BackendConn is one live connection to a backend MySQL-compatible server.
type BackendConn interface {
	Query(ctx context.Context, sql string) (*QueryResult, error)
	ServerVersion() string
	Close() error
}

// BackendDialer opens connections to backend servers. Production code uses
// Client (backed by github.com/sealdb/go-mysql); tests substitute a fake.
type BackendDialer interface {
	Dial(ctx context.Context, cfg BackendConfig, timeouts Timeouts) (BackendConn, error)
}
