/*
 * authgate
 *
 * Copyright 2021-2030 The NeoDB Authors.
 * Code is licensed under the GPLv3.
 *
 */

// Package catalog holds the in-process snapshot of grant rows and known
// database names used to authenticate and authorize client connections
// without forwarding the handshake to a backend.
package catalog

import (
	"sync/atomic"

	"github.com/juju/errors"

	"github.com/sealdb/authgate/hostpattern"
)

// DBPatternKind tags the shape of a GrantRow's database restriction.
type DBPatternKind uint8

const (
	// DBUnset means no database restriction was recorded; any requested
	// database is denied.
	DBUnset DBPatternKind = iota
	// DBGlobal is a grant that admits any database.
	DBGlobal
	// DBLiteral requires an exact database name match.
	DBLiteral
	// DBWildcard holds a '%'-bearing database name; it only ever appears
	// transiently during Loader expansion, never inside a Catalog.
	DBWildcard
)

// DBPattern is the database half of a grant row's key.
type DBPattern struct {
	Kind DBPatternKind
	Name string
}

// GrantRow is one authorization record: a (user, host, db) grant plus the
// password hash to verify against.
type GrantRow struct {
	User         string
	Host         hostpattern.Pattern
	DB           DBPattern
	PasswordHash string // hex double-SHA1, no leading '*'; empty for passwordless.
	AnyDB        bool   // derived from select_priv == "Y"
}

type rowKey struct {
	user string
	host hostpattern.Pattern
	db   DBPattern
}

// snapshot is the immutable structure readers see; Catalog swaps its
// pointer atomically.
type snapshot struct {
	rows      []GrantRow
	byUser    map[string][]int
	databases map[string]struct{}
}

// Catalog is the mutable container around an immutable snapshot. Reads
// never block on writers; a writer (Loader) builds a whole new snapshot
// before publishing it with ReplaceAll.
type Catalog struct {
	cur atomic.Pointer[snapshot]
}

// New returns an empty Catalog, ready to serve lookups (always UnknownUser)
// until the first ReplaceAll or Persister load.
func New() *Catalog {
	c := &Catalog{}
	c.cur.Store(emptySnapshot())
	return c
}

func emptySnapshot() *snapshot {
	return &snapshot{byUser: map[string][]int{}, databases: map[string]struct{}{}}
}

// ReplaceAll atomically substitutes the Catalog's contents. It validates
// the (user, host, db) uniqueness invariant before publishing; on error
// the previous contents remain visible.
func (c *Catalog) ReplaceAll(rows []GrantRow, databases []string) error {
	snap, err := buildSnapshot(rows, databases)
	if err != nil {
		return errors.Trace(err)
	}
	c.cur.Store(snap)
	return nil
}

func buildSnapshot(rows []GrantRow, databases []string) (*snapshot, error) {
	snap := &snapshot{
		rows:      make([]GrantRow, len(rows)),
		byUser:    make(map[string][]int, len(rows)),
		databases: make(map[string]struct{}, len(databases)),
	}
	copy(snap.rows, rows)

	seen := make(map[rowKey]struct{}, len(rows))
	for i, row := range snap.rows {
		key := rowKey{user: row.User, host: row.Host, db: row.DB}
		if _, dup := seen[key]; dup {
			return nil, errors.Errorf("catalog: duplicate grant row for user=%q host=%+v db=%+v", row.User, row.Host, row.DB)
		}
		seen[key] = struct{}{}
		snap.byUser[row.User] = append(snap.byUser[row.User], i)
	}
	for _, db := range databases {
		snap.databases[db] = struct{}{}
	}
	return snap, nil
}

// DatabaseExists reports whether name was present in the known-database
// set at the last successful load.
func (c *Catalog) DatabaseExists(name string) bool {
	snap := c.cur.Load()
	_, ok := snap.databases[name]
	return ok
}

// Dump returns a copy of every row currently held, for the Persister.
func (c *Catalog) Dump() []GrantRow {
	snap := c.cur.Load()
	out := make([]GrantRow, len(snap.rows))
	copy(out, snap.rows)
	return out
}

// Databases returns a copy of the known-database set, for the Persister.
func (c *Catalog) Databases() []string {
	snap := c.cur.Load()
	out := make([]string, 0, len(snap.databases))
	for db := range snap.databases {
		out = append(out, db)
	}
	return out
}

// Lookup implements the matching algorithm of the grant catalog: restrict
// to the user's rows, pick the best-matching host-pattern pool (numeric,
// then single-char, then hostname), filter by the database grant rule,
// and break ties by longest prefix then specific-over-global database.
// matched reflects only whether a grant row admits the (user, host, db)
// triple; it says nothing about whether requestedDB actually exists —
// callers needing that distinction use DatabaseExists separately, so
// "no grant" and "no such database" stay observably different outcomes.
//
// hostname is the client's reverse-DNS name, or "" if not yet resolved or
// hostname fallback is disabled; clientIP is the dotted-quad client
// address.
func (c *Catalog) Lookup(user, clientIP, requestedDB, hostname string) (passwordHash string, matched bool) {
	snap := c.cur.Load()
	idxs := snap.byUser[user]
	if len(idxs) == 0 {
		return "", false
	}

	clientAddr, addrErr := hostpattern.DottedToUint32(clientIP)

	pool := make([]int, 0, len(idxs))
	if addrErr == nil {
		for _, i := range idxs {
			row := &snap.rows[i]
			if row.Host.Kind == hostpattern.KindPrefix && row.Host.MatchIPv4(clientAddr) {
				pool = append(pool, i)
			}
		}
	}
	if len(pool) == 0 {
		for _, i := range idxs {
			row := &snap.rows[i]
			if row.Host.Kind == hostpattern.KindSingleChar && row.Host.MatchDotted(clientIP) {
				pool = append(pool, i)
			}
		}
	}
	if len(pool) == 0 && hostname != "" {
		for _, i := range idxs {
			row := &snap.rows[i]
			if row.Host.Kind == hostpattern.KindHostname && row.Host.MatchHostname(hostname) {
				pool = append(pool, i)
			}
		}
	}
	if len(pool) == 0 {
		return "", false
	}

	var winner *GrantRow
	var winnerBits uint8
	for _, i := range pool {
		row := &snap.rows[i]
		if !dbRuleAdmits(row.DB, requestedDB) {
			continue
		}
		bits := row.Host.Bits
		switch {
		case winner == nil:
			winner, winnerBits = row, bits
		case bits > winnerBits:
			winner, winnerBits = row, bits
		case bits == winnerBits && winner.DB.Kind == DBGlobal && row.DB.Kind != DBGlobal:
			winner, winnerBits = row, bits
		}
	}
	if winner == nil {
		return "", false
	}
	return winner.PasswordHash, true
}

func dbRuleAdmits(pattern DBPattern, requestedDB string) bool {
	if requestedDB == "" {
		return true
	}
	switch pattern.Kind {
	case DBGlobal:
		return true
	case DBLiteral:
		return pattern.Name == requestedDB
	default:
		return false
	}
}
