/*
 * authgate
 *
 * Copyright 2021-2030 The NeoDB Authors.
 * Code is licensed under the GPLv3.
 *
 */

// Package loader fetches grant data from a backend MySQL-compatible
// server, normalizes host patterns, expands database wildcards, and
// produces the rows a Catalog.ReplaceAll call needs.
package loader

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/sealdb/mysqlstack/xlog"

	"github.com/sealdb/authgate/catalog"
	"github.com/sealdb/authgate/errs"
	"github.com/sealdb/authgate/hostpattern"
	"github.com/sealdb/authgate/xbase"
)

// ServiceOptions carries the load-time behavior switches from config.
type ServiceOptions struct {
	SkipPermissionChecks bool
	StripDBEsc           bool
	EnableRoot           bool
	UsersFromAll         bool
}

// Result is what one successful load (from one backend, or the winner
// among several) produces.
type Result struct {
	Rows      []catalog.GrantRow
	Databases []string

	// ServerVersion is the backend's reported version string.
	ServerVersion string
	// UserCount is the number of distinct users found.
	UserCount int
	// LocalhostMatchWildcardHost is false when an anonymous-user row (empty
	// user name) was present, per the anonymous-user synthesis rule.
	LocalhostMatchWildcardHost bool
}

// ChoosePasswordColumn picks the mysql.user password column name from the
// backend's reported version string.
func ChoosePasswordColumn(version string) string {
	if strings.Contains(version, "5.7.") {
		return "authentication_string"
	}
	return "password"
}

// BuildGrantQuery builds the bit-exact UNION grant query. canQueryDB and
// canQueryTablesPriv allow degrading the query when the service account
// lacks SELECT on mysql.db or mysql.tables_priv (a warning, not fatal).
func BuildGrantQuery(pwColumn string, enableRoot, canQueryDB, canQueryTablesPriv bool) string {
	where := ""
	if !enableRoot {
		where = " WHERE u.user NOT IN ('root')"
	}

	dbSelect := fmt.Sprintf("SELECT u.user, u.host, d.db, u.select_priv, u.%s\n  FROM mysql.user AS u LEFT JOIN mysql.db AS d\n    ON (u.user=d.user AND u.host=d.host)%s", pwColumn, where)
	tpSelect := fmt.Sprintf("SELECT u.user, u.host, t.db, u.select_priv, u.%s\n  FROM mysql.user AS u LEFT JOIN mysql.tables_priv AS t\n    ON (u.user=t.user AND u.host=t.host)%s", pwColumn, where)
	userOnlySelect := fmt.Sprintf("SELECT u.user, u.host, NULL AS db, u.select_priv, u.%s\n  FROM mysql.user AS u%s", pwColumn, where)

	switch {
	case canQueryDB && canQueryTablesPriv:
		return dbSelect + "\nUNION\n" + tpSelect
	case canQueryDB:
		return dbSelect
	case canQueryTablesPriv:
		return tpSelect
	default:
		return userOnlySelect
	}
}

// LoadFromConn runs one full load against an already-open backend
// connection.
func LoadFromConn(ctx context.Context, log *xlog.Log, conn BackendConn, opts ServiceOptions) (*Result, error) {
	canDB, canTablesPriv, err := checkPermissions(ctx, log, conn, opts)
	if err != nil {
		return nil, err
	}

	version := conn.ServerVersion()
	pwColumn := ChoosePasswordColumn(version)
	query := BuildGrantQuery(pwColumn, opts.EnableRoot, canDB, canTablesPriv)

	grantRows, err := conn.Query(ctx, query)
	if err != nil {
		log.Error("loader.grant.query[%s].error:%+v", xbase.TruncateQuery(query, 256), err)
		return nil, errs.New(errs.QueryFailed, err)
	}

	dbRows, err := conn.Query(ctx, "SHOW DATABASES")
	if err != nil {
		log.Error("loader.databases.query.error:%+v", err)
		return nil, errs.New(errs.QueryFailed, err)
	}
	databases := make([]string, 0, dbRows.RowCount())
	for i := 0; i < dbRows.RowCount(); i++ {
		if name, ok := dbRows.GetString(i, "Database"); ok {
			databases = append(databases, name)
		}
	}

	rows, userCount, anonymousSeen := buildRows(log, grantRows, databases, opts)

	return &Result{
		Rows:                       rows,
		Databases:                  databases,
		ServerVersion:              version,
		UserCount:                  userCount,
		LocalhostMatchWildcardHost: !anonymousSeen,
	}, nil
}

func checkPermissions(ctx context.Context, log *xlog.Log, conn BackendConn, opts ServiceOptions) (canDB, canTablesPriv bool, err error) {
	if opts.SkipPermissionChecks {
		return true, true, nil
	}

	if _, err := conn.Query(ctx, "SELECT 1 FROM mysql.user LIMIT 0"); err != nil {
		return false, false, errs.New(errs.PermissionsMissing, err)
	}

	canDB = true
	if _, err := conn.Query(ctx, "SELECT 1 FROM mysql.db LIMIT 0"); err != nil {
		log.Warning("loader.sanity.check.mysql.db.denied:%+v", err)
		canDB = false
	}

	canTablesPriv = true
	if _, err := conn.Query(ctx, "SELECT 1 FROM mysql.tables_priv LIMIT 0"); err != nil {
		log.Warning("loader.sanity.check.mysql.tables_priv.denied:%+v", err)
		canTablesPriv = false
	}
	return canDB, canTablesPriv, nil
}

var escapeStripper = strings.NewReplacer(`\%`, "%", `\_`, "_")

func buildRows(log *xlog.Log, grantRows *QueryResult, databases []string, opts ServiceOptions) ([]catalog.GrantRow, int, bool) {
	type wildcardRow struct {
		user, pattern, passwordHash string
		host                        hostpattern.Pattern
		anyDB                       bool
	}

	rows := make([]catalog.GrantRow, 0, grantRows.RowCount())
	var wildcards []wildcardRow
	users := make(map[string]struct{})
	anonymousSeen := false

	for i := 0; i < grantRows.RowCount(); i++ {
		user, _ := grantRows.GetString(i, "user")
		hostStr, _ := grantRows.GetString(i, "host")
		dbStr, dbValid := grantRows.GetString(i, "db")
		selectPriv, _ := grantRows.GetString(i, "select_priv")
		password, _ := grantRows.GetString(i, "password")
		if password == "" {
			password, _ = grantRows.GetString(i, "authentication_string")
		}

		if user == "" {
			anonymousSeen = true
		} else {
			users[user] = struct{}{}
		}

		host, err := hostpattern.Parse(hostStr)
		if err != nil {
			log.Error("loader.parse.host[%s].user[%s].error:%+v", hostStr, user, err)
			continue
		}

		passwordHash := strings.TrimPrefix(password, "*")
		anyDB := selectPriv == "Y"

		if opts.StripDBEsc && dbValid {
			dbStr = escapeStripper.Replace(dbStr)
		}

		switch {
		case anyDB:
			// A global SELECT privilege admits every database regardless
			// of whatever db the grant-table join happened to carry.
			rows = append(rows, catalog.GrantRow{
				User: user, Host: host, DB: catalog.DBPattern{Kind: catalog.DBGlobal},
				PasswordHash: passwordHash, AnyDB: anyDB,
			})
		case !dbValid:
			rows = append(rows, catalog.GrantRow{
				User: user, Host: host, DB: catalog.DBPattern{Kind: catalog.DBUnset},
				PasswordHash: passwordHash, AnyDB: anyDB,
			})
		case dbStr == "":
			rows = append(rows, catalog.GrantRow{
				User: user, Host: host, DB: catalog.DBPattern{Kind: catalog.DBGlobal},
				PasswordHash: passwordHash, AnyDB: anyDB,
			})
		case strings.Contains(dbStr, "%"):
			wildcards = append(wildcards, wildcardRow{user: user, pattern: dbStr, host: host, passwordHash: passwordHash, anyDB: anyDB})
		default:
			rows = append(rows, catalog.GrantRow{
				User: user, Host: host, DB: catalog.DBPattern{Kind: catalog.DBLiteral, Name: dbStr},
				PasswordHash: passwordHash, AnyDB: anyDB,
			})
		}
	}

	for _, w := range wildcards {
		re, err := wildcardRegexp(w.pattern)
		if err != nil {
			log.Error("loader.parse.db.wildcard[%s].user[%s].error:%+v", w.pattern, w.user, err)
			continue
		}
		for _, db := range databases {
			if re.MatchString(db) {
				rows = append(rows, catalog.GrantRow{
					User: w.user, Host: w.host, DB: catalog.DBPattern{Kind: catalog.DBLiteral, Name: db},
					PasswordHash: w.passwordHash, AnyDB: w.anyDB,
				})
			}
		}
	}

	return rows, len(users), anonymousSeen
}

// wildcardRegexp treats '%' in a mysql.db pattern as ".*", case-insensitive.
func wildcardRegexp(pattern string) (*regexp.Regexp, error) {
	quoted := regexp.QuoteMeta(pattern)
	quoted = strings.ReplaceAll(quoted, `%`, `.*`)
	return regexp.Compile("(?i)^" + quoted + "$")
}

// LoadAll tries each configured backend in order, honoring the
// users_from_all policy: when false, it stops at the first backend that
// yields any users; when true, it tries every reachable backend and keeps
// the result with the largest distinct-user count. shutdown, if non-nil,
// is checked between backend attempts so a draining process doesn't start
// a load against the next server.
func LoadAll(ctx context.Context, log *xlog.Log, dialer BackendDialer, backends []BackendConfig, timeouts Timeouts, opts ServiceOptions, shutdown <-chan struct{}) (*Result, error) {
	if len(backends) == 0 {
		return nil, errs.Newf(errs.BackendUnreachable, "no backends configured")
	}

	var best *Result
	var lastErr error
	for _, cfg := range backends {
		select {
		case <-shutdown:
			if best != nil {
				return best, nil
			}
			return nil, errs.Newf(errs.BackendUnreachable, "load aborted by shutdown")
		default:
		}

		result, err := loadOneBackend(ctx, log, dialer, cfg, timeouts, opts)
		if err != nil {
			log.Error("loader.backend[%s].error:%+v", cfg.Address, err)
			lastErr = err
			continue
		}

		if !opts.UsersFromAll && result.UserCount > 0 {
			return result, nil
		}
		if best == nil || result.UserCount > best.UserCount {
			best = result
		}
	}

	if best != nil {
		return best, nil
	}
	return nil, errs.New(errs.BackendUnreachable, lastErr)
}

func loadOneBackend(ctx context.Context, log *xlog.Log, dialer BackendDialer, cfg BackendConfig, timeouts Timeouts, opts ServiceOptions) (*Result, error) {
	conn, err := dialer.Dial(ctx, cfg, timeouts)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	return LoadFromConn(ctx, log, conn, opts)
}
