/*
 * authgate
 *
 * Copyright 2021-2030 The NeoDB Authors.
 * Code is licensed under the GPLv3.
 *
 */

package gate

import (
	"github.com/sealdb/mysqlstack/sqldb"

	"github.com/sealdb/authgate/authenticator"
)

// sqlError translates one Authenticate outcome into the sqldb.SQLError the
// proxy layer writes back to the client, using the same error codes and
// message shapes the teacher's proxy package returns from SessionCheck and
// AuthCheck. Outcome.Ok maps to nil.
func sqlError(res authenticator.Result, req authenticator.Request) error {
	usingPassword := "NO"
	if res.UsedPassword {
		usingPassword = "YES"
	}

	switch res.Outcome {
	case authenticator.Ok:
		return nil
	case authenticator.BadPassword, authenticator.UnknownUser:
		return sqldb.NewSQLError(sqldb.ER_ACCESS_DENIED_ERROR, "Access denied for user '%s'@'%s' (using password: %s)", req.User, req.ClientIP, usingPassword)
	case authenticator.NoSuchDatabase:
		return sqldb.NewSQLError(sqldb.ER_BAD_DB_ERROR, "Unknown database '%s'", req.RequestedDB)
	default:
		return sqldb.NewSQLError(sqldb.ER_ACCESS_DENIED_ERROR, "Access denied for user '%s'@'%s' (using password: %s)", req.User, req.ClientIP, usingPassword)
	}
}

// tooManyConnectionsError is returned by BeginSession when the configured
// connection ceiling is already reached, mirroring the teacher proxy's
// SessionCheck.
func tooManyConnectionsError(max int) error {
	return sqldb.NewSQLError(sqldb.ER_CON_COUNT_ERROR, "Too many connections(max: %v)", max)
}
