/*
 * authgate
 *
 * Copyright 2018 The Radon Authors.
 * Copyright 2021-2030 The NeoDB Authors.
 * Code is licensed under the GPLv3.
 *
 */

// Package xbase collects small filesystem and string helpers shared by the
// catalog persister and the admin API, in place of scattering os/strings
// one-offs through those packages.
package xbase

import (
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/juju/errors"
)

// WriteFile writes data to file as a single atomic operation: it writes to
// a temp file in the same directory, then renames over the destination, so
// a reader never observes a partially-written catalog snapshot.
func WriteFile(file string, data []byte) error {
	dir := filepath.Dir(file)
	tmp, err := ioutil.TempFile(dir, filepath.Base(file)+".tmp")
	if err != nil {
		return errors.Trace(err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Trace(err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Trace(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Trace(err)
	}
	if err := os.Rename(tmpName, file); err != nil {
		os.Remove(tmpName)
		return errors.Trace(err)
	}
	return nil
}

// TruncateQuery shortens a SQL statement for logging: at most max bytes,
// with a "[TRUNCATED]" marker appended when it was cut.
func TruncateQuery(query string, max int) string {
	if len(query) <= max {
		return query
	}
	return query[:max] + " [TRUNCATED]"
}
