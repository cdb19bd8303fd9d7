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

	"github.com/juju/errors"
	gomysql "github.com/sealdb/go-mysql/client"
	"github.com/sealdb/go-mysql/mysql"

	"github.com/sealdb/authgate/errs"
)

// Client is the production BackendDialer, backed by the go-mysql client
// library already in this codebase's dependency graph.
type Client struct{}

// Dial opens one connection to a backend server with go-mysql's Connect.
// timeouts is kept on the returned connection but is not applied: neither
// the dial nor later queries run under a deadline.
func (Client) Dial(ctx context.Context, cfg BackendConfig, timeouts Timeouts) (BackendConn, error) {
	conn, err := gomysql.Connect(cfg.Address, cfg.User, cfg.Password, "")
	if err != nil {
		return nil, errs.New(errs.BackendUnreachable, err)
	}
	version, err := serverVersion(conn)
	if err != nil {
		conn.Close()
		return nil, errs.New(errs.BackendUnreachable, err)
	}
	return &backendConn{conn: conn, timeouts: timeouts, version: version}, nil
}

type backendConn struct {
	conn     *gomysql.Conn
	timeouts Timeouts
	version  string
}

func (b *backendConn) ServerVersion() string {
	return b.version
}

// serverVersion queries the backend for its version, since the go-mysql
// client does not expose the version reported during the initial
// handshake.
func serverVersion(conn *gomysql.Conn) (string, error) {
	result, err := conn.Execute("SELECT VERSION()")
	if err != nil {
		return "", err
	}
	if result == nil || result.Resultset == nil || len(result.Values) == 0 {
		return "", nil
	}
	return result.GetStringByName(0, "VERSION()")
}

func (b *backendConn) Query(ctx context.Context, query string) (*QueryResult, error) {
	result, err := b.conn.Execute(query)
	if err != nil {
		return nil, errs.New(errs.QueryFailed, err)
	}
	if result == nil || result.Resultset == nil {
		return &QueryResult{}, nil
	}
	return convertResult(result)
}

func (b *backendConn) Close() error {
	return b.conn.Close()
}

func convertResult(result *mysql.Result) (*QueryResult, error) {
	rs := result.Resultset
	columns := make([]string, len(rs.Fields))
	for i, f := range rs.Fields {
		columns[i] = string(f.Name)
	}

	out := &QueryResult{Columns: columns, Rows: make([][]sql.NullString, len(rs.Values))}
	for r, values := range rs.Values {
		row := make([]sql.NullString, len(values))
		for c, v := range values {
			if v == nil {
				continue
			}
			s, err := rs.GetString(r, c)
			if err != nil {
				return nil, errs.New(errs.QueryFailed, errors.Annotatef(err, "convert column %d of row %d", c, r))
			}
			row[c] = sql.NullString{String: s, Valid: true}
		}
		out.Rows[r] = row
	}
	return out, nil
}
