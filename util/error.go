// Copyright 2020 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

package util

import (
	"context"
	"database/sql/driver"
	stderrors "errors"
	"io"
	"net"

	"github.com/go-sql-driver/mysql"
	"github.com/juju/errors"
)

// Server error numbers. 9007 is returned by TiDB when an optimistic commit conflicts.
const (
	ErrDupEntry        = 1062
	ErrNoTableExists   = 1146
	ErrLockWaitTimeout = 1205
	ErrLockDeadlock    = 1213
	ErrWriteConflict   = 9007
)

// IsErrDupEntry returns true if error code = 1062
func IsErrDupEntry(err error) bool {
	return isMySQLError(err, ErrDupEntry)
}

// IsErrTableNotExists checks whether err is TableNotExists error
func IsErrTableNotExists(err error) bool {
	return isMySQLError(err, ErrNoTableExists)
}

// IsErrWriteConflict checks whether err is a TiDB write conflict.
func IsErrWriteConflict(err error) bool {
	return isMySQLError(err, ErrWriteConflict)
}

// MySQLErrorCode returns the server error number carried by err.
func MySQLErrorCode(err error) (uint16, bool) {
	var code uint16
	found := anyCause(err, func(e error) bool {
		if me, ok := e.(*mysql.MySQLError); ok {
			code = me.Number
			return true
		}
		return false
	})
	return code, found
}

// IsConnectionError reports whether err means the connection itself is gone,
// as opposed to a statement being rejected by the server.
func IsConnectionError(err error) bool {
	return anyCause(err, func(e error) bool {
		switch e {
		case context.Canceled, context.DeadlineExceeded:
			return false
		case driver.ErrBadConn, mysql.ErrInvalidConn, mysql.ErrMalformPkt, io.EOF, io.ErrUnexpectedEOF:
			return true
		}
		_, ok := e.(net.Error)
		return ok
	})
}

func isMySQLError(err error, code uint16) bool {
	n, ok := MySQLErrorCode(err)
	return ok && n == code
}

// anyCause calls fn on err and on every error it wraps, until fn returns true.
func anyCause(err error, fn func(error) bool) bool {
	for err != nil {
		if fn(err) {
			return true
		}
		next := errors.Cause(err)
		if next == err {
			next = stderrors.Unwrap(err)
		}
		err = next
	}
	return false
}
