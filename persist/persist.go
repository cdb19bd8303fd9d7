/*
 * authgate
 *
 * Copyright 2021-2030 The NeoDB Authors.
 * Code is licensed under the GPLv3.
 *
 */

// Package persist serializes a Catalog snapshot to a single file between
// runs, so the proxy can serve authentications before the first
// successful backend load completes.
package persist

import (
	"bytes"
	"encoding/binary"
	"io"
	"io/ioutil"

	"github.com/juju/errors"

	"github.com/sealdb/authgate/catalog"
	"github.com/sealdb/authgate/hostpattern"
	"github.com/sealdb/authgate/xbase"
)

// dbKindUnset marks an *unset* database pattern in the len(db) field, per
// the on-disk layout's "-1 for unset" convention; all other kinds are
// written as literal database names (empty string for a global grant).
const dbKindUnset = -1

// Save serializes rows and databases into a little-endian binary layout
// and writes it to path as a single atomic operation.
func Save(path string, rows []catalog.GrantRow, databases []string) error {
	buf := &bytes.Buffer{}

	if err := binary.Write(buf, binary.LittleEndian, uint32(len(rows))); err != nil {
		return errors.Trace(err)
	}
	for _, row := range rows {
		if err := writeRow(buf, row); err != nil {
			return errors.Trace(err)
		}
	}

	if err := binary.Write(buf, binary.LittleEndian, uint32(len(databases))); err != nil {
		return errors.Trace(err)
	}
	for _, db := range databases {
		if err := writeString(buf, db); err != nil {
			return errors.Trace(err)
		}
	}

	if err := xbase.WriteFile(path, buf.Bytes()); err != nil {
		return errors.Trace(err)
	}
	return nil
}

func writeRow(buf *bytes.Buffer, row catalog.GrantRow) error {
	if err := writeString(buf, row.User); err != nil {
		return err
	}
	if err := binary.Write(buf, binary.LittleEndian, row.Host.Addr); err != nil {
		return err
	}
	if err := binary.Write(buf, binary.LittleEndian, uint32(row.Host.Bits)); err != nil {
		return err
	}

	dbLen := int32(dbKindUnset)
	dbName := ""
	switch row.DB.Kind {
	case catalog.DBUnset:
		dbLen = dbKindUnset
	case catalog.DBGlobal:
		dbLen = 0
		dbName = ""
	default:
		dbName = row.DB.Name
		dbLen = int32(len(dbName))
	}
	if err := binary.Write(buf, binary.LittleEndian, dbLen); err != nil {
		return err
	}
	if dbLen > 0 {
		if _, err := buf.WriteString(dbName); err != nil {
			return err
		}
	}

	if err := writeString(buf, row.PasswordHash); err != nil {
		return err
	}

	// host kind/literal: carried alongside the numeric prefix so Load can
	// reconstruct KindSingleChar/KindHostname rows without reparsing a
	// hostname string through the numeric path.
	if err := binary.Write(buf, binary.LittleEndian, uint8(row.Host.Kind)); err != nil {
		return err
	}
	if err := writeString(buf, row.Host.Literal); err != nil {
		return err
	}
	if err := binary.Write(buf, binary.LittleEndian, boolByte(row.AnyDB)); err != nil {
		return err
	}
	return nil
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

func writeString(buf *bytes.Buffer, s string) error {
	if err := binary.Write(buf, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := buf.WriteString(s)
	return err
}

// Load parses the on-disk layout Save produced and returns the rows and
// database names it described. Any parse error aborts the load; the
// caller is expected to leave the in-memory Catalog untouched.
func Load(path string) (rows []catalog.GrantRow, databases []string, err error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	r := bytes.NewReader(data)

	var rowCount uint32
	if err := binary.Read(r, binary.LittleEndian, &rowCount); err != nil {
		return nil, nil, errors.Annotate(err, "persist: read row count")
	}

	rows = make([]catalog.GrantRow, 0, rowCount)
	for i := uint32(0); i < rowCount; i++ {
		row, err := readRow(r)
		if err != nil {
			return nil, nil, errors.Annotatef(err, "persist: read row %d", i)
		}
		rows = append(rows, row)
	}

	var dbCount uint32
	if err := binary.Read(r, binary.LittleEndian, &dbCount); err != nil {
		return nil, nil, errors.Annotate(err, "persist: read database count")
	}
	databases = make([]string, 0, dbCount)
	for i := uint32(0); i < dbCount; i++ {
		db, err := readString(r)
		if err != nil {
			return nil, nil, errors.Annotatef(err, "persist: read database %d", i)
		}
		databases = append(databases, db)
	}

	return rows, databases, nil
}

func readRow(r *bytes.Reader) (catalog.GrantRow, error) {
	var row catalog.GrantRow

	user, err := readString(r)
	if err != nil {
		return row, err
	}
	row.User = user

	var addr uint32
	if err := binary.Read(r, binary.LittleEndian, &addr); err != nil {
		return row, err
	}
	var bits uint32
	if err := binary.Read(r, binary.LittleEndian, &bits); err != nil {
		return row, err
	}

	var dbLen int32
	if err := binary.Read(r, binary.LittleEndian, &dbLen); err != nil {
		return row, err
	}
	switch {
	case dbLen == dbKindUnset:
		row.DB = catalog.DBPattern{Kind: catalog.DBUnset}
	case dbLen == 0:
		row.DB = catalog.DBPattern{Kind: catalog.DBGlobal}
	case dbLen > 0:
		name := make([]byte, dbLen)
		if _, err := io.ReadFull(r, name); err != nil {
			return row, err
		}
		row.DB = catalog.DBPattern{Kind: catalog.DBLiteral, Name: string(name)}
	default:
		return row, errors.Errorf("persist: invalid db length %d", dbLen)
	}

	pw, err := readString(r)
	if err != nil {
		return row, err
	}
	row.PasswordHash = pw

	var kind uint8
	if err := binary.Read(r, binary.LittleEndian, &kind); err != nil {
		return row, err
	}
	literal, err := readString(r)
	if err != nil {
		return row, err
	}
	var anyDB uint8
	if err := binary.Read(r, binary.LittleEndian, &anyDB); err != nil {
		return row, err
	}
	row.AnyDB = anyDB != 0

	row.Host = hostpattern.Pattern{
		Kind:    hostpattern.Kind(kind),
		Addr:    addr,
		Bits:    uint8(bits),
		Literal: literal,
	}
	return row, nil
}

func readString(r *bytes.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", err
		}
	}
	return string(buf), nil
}
