/*
 * authgate
 *
 * Copyright 2021-2030 The NeoDB Authors.
 * Code is licensed under the GPLv3.
 *
 */

// Package errs classifies the error kinds the catalog subsystem surfaces
// to its host, per the error handling design: BackendUnreachable,
// PermissionsMissing, QueryFailed, ParseFailed, PersistenceIO.
package errs

import (
	"fmt"

	"github.com/juju/errors"
)

// Kind is one of the error categories the host maps to a logging/retry
// policy.
type Kind string

const (
	// BackendUnreachable is a network/TLS/credential failure contacting a
	// backend; triable, non-fatal for the remaining backends.
	BackendUnreachable Kind = "backend_unreachable"
	// PermissionsMissing is a missing SELECT grant on mysql.user (fatal for
	// that server) or mysql.db/mysql.tables_priv (a warning).
	PermissionsMissing Kind = "permissions_missing"
	// QueryFailed is a grant or SHOW DATABASES query failure; treated like
	// BackendUnreachable by callers that don't distinguish them.
	QueryFailed Kind = "query_failed"
	// ParseFailed is a malformed host pattern; the offending row is
	// skipped, not the whole load.
	ParseFailed Kind = "parse_failed"
	// PersistenceIO is a snapshot-file save/load failure; it never affects
	// in-memory state.
	PersistenceIO Kind = "persistence_io"
)

// Error wraps an underlying error with its Kind.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

// Cause lets github.com/juju/errors.Cause unwrap to the original error.
func (e *Error) Cause() error {
	return e.Err
}

// New wraps err with kind, tracing it via juju/errors.
func New(kind Kind, err error) error {
	return errors.Trace(&Error{Kind: kind, Err: err})
}

// Newf builds a new Kind error from a format string.
func Newf(kind Kind, format string, args ...interface{}) error {
	return errors.Trace(&Error{Kind: kind, Err: errors.Errorf(format, args...)})
}

// KindOf walks the error's wrapping chain looking for a *Error and returns
// its Kind, or "" if none is found. It steps through juju/errors wrappers
// via Underlying, since their Cause skips past the *Error itself.
func KindOf(err error) Kind {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind
		}
		var next error
		if u, ok := err.(interface{ Underlying() error }); ok {
			next = u.Underlying()
		} else {
			next = errors.Cause(err)
		}
		if next == nil || next == err {
			return ""
		}
		err = next
	}
	return ""
}
