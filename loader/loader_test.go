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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sealdb/mysqlstack/xlog"

	"github.com/sealdb/authgate/catalog"
	"github.com/sealdb/authgate/errs"
)

func testLog() *xlog.Log {
	return xlog.NewStdLog(xlog.Level(xlog.PANIC))
}

// fakeConn is a canned BackendConn: every Query call is matched against a
// map of SQL substrings, denied ones first; map iteration gives no order
// among the entries, so each query should match at most one of them.
type fakeConn struct {
	version   string
	responses map[string]*QueryResult
	denied    map[string]bool
	closed    bool
}

func newFakeConn(version string) *fakeConn {
	return &fakeConn{version: version, responses: map[string]*QueryResult{}, denied: map[string]bool{}}
}

func (f *fakeConn) on(sqlContains string, result *QueryResult) *fakeConn {
	f.responses[sqlContains] = result
	return f
}

func (f *fakeConn) deny(sqlContains string) *fakeConn {
	f.denied[sqlContains] = true
	return f
}

func (f *fakeConn) ServerVersion() string { return f.version }
func (f *fakeConn) Close() error          { f.closed = true; return nil }

func (f *fakeConn) Query(ctx context.Context, query string) (*QueryResult, error) {
	for substr := range f.denied {
		if containsSQL(query, substr) {
			return nil, errs.New(errs.PermissionsMissing, assertError("permission denied"))
		}
	}
	for substr, result := range f.responses {
		if containsSQL(query, substr) {
			return result, nil
		}
	}
	return &QueryResult{}, nil
}

func containsSQL(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}

type assertError string

func (e assertError) Error() string { return string(e) }

// fakeDialer returns a pre-built conn per backend address.
type fakeDialer struct {
	conns map[string]*fakeConn
	err   map[string]error
}

func (d *fakeDialer) Dial(ctx context.Context, cfg BackendConfig, timeouts Timeouts) (BackendConn, error) {
	if err := d.err[cfg.Address]; err != nil {
		return nil, err
	}
	return d.conns[cfg.Address], nil
}

func nullRow(vals ...string) []sql.NullString {
	row := make([]sql.NullString, len(vals))
	for i, v := range vals {
		if v == "\x00" {
			continue
		}
		row[i] = sql.NullString{String: v, Valid: true}
	}
	return row
}

func TestChoosePasswordColumn(t *testing.T) {
	assert.Equal(t, "authentication_string", ChoosePasswordColumn("5.7.31-log"))
	assert.Equal(t, "password", ChoosePasswordColumn("8.0.28"))
	assert.Equal(t, "password", ChoosePasswordColumn("5.6.49-log"))
}

func TestBuildGrantQueryDegradesOnMissingPermissions(t *testing.T) {
	full := BuildGrantQuery("password", false, true, true)
	assert.Contains(t, full, "mysql.db")
	assert.Contains(t, full, "mysql.tables_priv")
	assert.Contains(t, full, "UNION")

	dbOnly := BuildGrantQuery("password", false, true, false)
	assert.Contains(t, dbOnly, "mysql.db")
	assert.NotContains(t, dbOnly, "mysql.tables_priv")

	userOnly := BuildGrantQuery("password", false, false, false)
	assert.NotContains(t, userOnly, "mysql.db")
	assert.NotContains(t, userOnly, "mysql.tables_priv")

	withRoot := BuildGrantQuery("password", true, true, true)
	assert.NotContains(t, withRoot, "NOT IN")
}

func TestLoadFromConnParsesRowsAndExpandsWildcards(t *testing.T) {
	conn := newFakeConn("8.0.28")
	conn.on("FROM mysql.user", &QueryResult{
		Columns: []string{"user", "host", "db", "select_priv", "password"},
		Rows: [][]sql.NullString{
			nullRow("alice", "10.0.0.%", "\x00", "N", "*HASH1"),
			nullRow("bob", "192.168.1.1", "reports_%", "N", "HASH2"),
		},
	})
	conn.on("SHOW DATABASES", &QueryResult{
		Columns: []string{"Database"},
		Rows: [][]sql.NullString{
			nullRow("reports_east"),
			nullRow("reports_west"),
			nullRow("sales"),
		},
	})

	result, err := LoadFromConn(context.Background(), testLog(), conn, ServiceOptions{})
	assert.Nil(t, err)
	assert.Equal(t, 2, result.UserCount)
	assert.True(t, result.LocalhostMatchWildcardHost)
	assert.Equal(t, []string{"reports_east", "reports_west", "sales"}, result.Databases)

	var aliceRows, bobRows int
	for _, row := range result.Rows {
		switch row.User {
		case "alice":
			aliceRows++
			assert.Equal(t, "HASH1", row.PasswordHash)
		case "bob":
			bobRows++
			assert.Equal(t, "HASH2", row.PasswordHash)
		}
	}
	assert.Equal(t, 1, aliceRows)
	assert.Equal(t, 2, bobRows) // reports_east + reports_west, not sales
}

func TestLoadFromConnGlobalSelectPrivOverridesJoinedDB(t *testing.T) {
	conn := newFakeConn("8.0.28")
	conn.on("FROM mysql.user", &QueryResult{
		Columns: []string{"user", "host", "db", "select_priv", "password"},
		Rows: [][]sql.NullString{
			nullRow("carol", "%", "sales", "Y", "*HASH3"),
		},
	})
	conn.on("SHOW DATABASES", &QueryResult{
		Columns: []string{"Database"},
		Rows:    [][]sql.NullString{nullRow("sales"), nullRow("marketing")},
	})

	result, err := LoadFromConn(context.Background(), testLog(), conn, ServiceOptions{})
	assert.Nil(t, err)
	assert.Equal(t, 1, len(result.Rows))
	assert.Equal(t, catalog.DBGlobal, result.Rows[0].DB.Kind)
	assert.True(t, result.Rows[0].AnyDB)
}

func TestLoadFromConnDegradesOnDeniedSanityChecks(t *testing.T) {
	conn := newFakeConn("8.0.28")
	conn.deny("mysql.db LIMIT 0")
	conn.on("FROM mysql.user", &QueryResult{Columns: []string{"user", "host", "db", "select_priv", "password"}})
	conn.on("SHOW DATABASES", &QueryResult{Columns: []string{"Database"}})

	result, err := LoadFromConn(context.Background(), testLog(), conn, ServiceOptions{})
	assert.Nil(t, err)
	assert.NotNil(t, result)
}

func TestLoadFromConnFatalOnMissingUserPermission(t *testing.T) {
	conn := newFakeConn("8.0.28")
	conn.deny("mysql.user LIMIT 0")

	_, err := LoadFromConn(context.Background(), testLog(), conn, ServiceOptions{})
	assert.NotNil(t, err)
	assert.Equal(t, errs.PermissionsMissing, errs.KindOf(err))
}

func TestLoadAllStopsAtFirstSuccessWhenNotUsersFromAll(t *testing.T) {
	primary := newFakeConn("8.0.28")
	primary.on("FROM mysql.user", &QueryResult{
		Columns: []string{"user", "host", "db", "select_priv", "password"},
		Rows:    [][]sql.NullString{nullRow("alice", "%", "\x00", "N", "h")},
	})
	primary.on("SHOW DATABASES", &QueryResult{Columns: []string{"Database"}})

	secondary := newFakeConn("8.0.28")
	secondary.on("FROM mysql.user", &QueryResult{
		Columns: []string{"user", "host", "db", "select_priv", "password"},
		Rows:    [][]sql.NullString{nullRow("zed", "%", "\x00", "N", "h")},
	})
	secondary.on("SHOW DATABASES", &QueryResult{Columns: []string{"Database"}})

	dialer := &fakeDialer{conns: map[string]*fakeConn{
		"primary:3306":   primary,
		"secondary:3306": secondary,
	}}

	backends := []BackendConfig{{Address: "primary:3306"}, {Address: "secondary:3306"}}
	result, err := LoadAll(context.Background(), testLog(), dialer, backends, Timeouts{Connect: time.Second}, ServiceOptions{}, nil)
	assert.Nil(t, err)
	assert.Equal(t, 1, len(result.Rows))
	assert.Equal(t, "alice", result.Rows[0].User)
	assert.True(t, primary.closed)
	assert.False(t, secondary.closed) // never dialed
}

func TestLoadAllUnionKeepsLargestWhenUsersFromAll(t *testing.T) {
	small := newFakeConn("8.0.28")
	small.on("FROM mysql.user", &QueryResult{
		Columns: []string{"user", "host", "db", "select_priv", "password"},
		Rows:    [][]sql.NullString{nullRow("alice", "%", "\x00", "N", "h")},
	})
	small.on("SHOW DATABASES", &QueryResult{Columns: []string{"Database"}})

	big := newFakeConn("8.0.28")
	big.on("FROM mysql.user", &QueryResult{
		Columns: []string{"user", "host", "db", "select_priv", "password"},
		Rows: [][]sql.NullString{
			nullRow("alice", "%", "\x00", "N", "h"),
			nullRow("bob", "%", "\x00", "N", "h"),
		},
	})
	big.on("SHOW DATABASES", &QueryResult{Columns: []string{"Database"}})

	dialer := &fakeDialer{conns: map[string]*fakeConn{
		"a:3306": small,
		"b:3306": big,
	}}

	backends := []BackendConfig{{Address: "a:3306"}, {Address: "b:3306"}}
	result, err := LoadAll(context.Background(), testLog(), dialer, backends, Timeouts{Connect: time.Second}, ServiceOptions{UsersFromAll: true}, nil)
	assert.Nil(t, err)
	assert.Equal(t, 2, result.UserCount)
	assert.True(t, small.closed)
	assert.True(t, big.closed)
}

func TestLoadAllFallsThroughOnUnreachableBackend(t *testing.T) {
	good := newFakeConn("8.0.28")
	good.on("FROM mysql.user", &QueryResult{
		Columns: []string{"user", "host", "db", "select_priv", "password"},
		Rows:    [][]sql.NullString{nullRow("alice", "%", "\x00", "N", "h")},
	})
	good.on("SHOW DATABASES", &QueryResult{Columns: []string{"Database"}})

	dialer := &fakeDialer{
		conns: map[string]*fakeConn{"b:3306": good},
		err:   map[string]error{"a:3306": errs.New(errs.BackendUnreachable, assertError("refused"))},
	}

	backends := []BackendConfig{{Address: "a:3306"}, {Address: "b:3306"}}
	result, err := LoadAll(context.Background(), testLog(), dialer, backends, Timeouts{Connect: time.Second}, ServiceOptions{}, nil)
	assert.Nil(t, err)
	assert.Equal(t, 1, len(result.Rows))
}

func TestLoadAllShutdownStopsEarly(t *testing.T) {
	good := newFakeConn("8.0.28")
	good.on("FROM mysql.user", &QueryResult{
		Columns: []string{"user", "host", "db", "select_priv", "password"},
		Rows:    [][]sql.NullString{nullRow("alice", "%", "\x00", "N", "h")},
	})
	good.on("SHOW DATABASES", &QueryResult{Columns: []string{"Database"}})

	dialer := &fakeDialer{conns: map[string]*fakeConn{"a:3306": good}}
	backends := []BackendConfig{{Address: "a:3306"}}

	shutdown := make(chan struct{})
	close(shutdown)

	_, err := LoadAll(context.Background(), testLog(), dialer, backends, Timeouts{Connect: time.Second}, ServiceOptions{}, shutdown)
	assert.NotNil(t, err)
}
