// Copyright 2021 PingCAP, Inc.
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

package txn

import (
	"context"
	"database/sql"

	"github.com/juju/errors"
	"github.com/pingcap/log"
	"go.uber.org/zap"

	"github.com/pingcap/txnbench/pkg/config"
	"github.com/pingcap/txnbench/pkg/core"
	"github.com/pingcap/txnbench/util"
)

// Conn is the part of *sql.Conn a Strategy needs.
type Conn interface {
	querier
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// querier is implemented by both *sql.Conn and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// Statement is one unit of benchmark work: a single SQL statement and its
// bound parameters.
type Statement struct {
	Query string
	Args  []interface{}
}

// Strategy executes statements under a transaction mode. Optimistic and
// pessimistic modes share the explicit path; the difference between them is
// the session directive applied at connect time.
type Strategy struct {
	explicit bool
}

// New returns the strategy of mode.
func New(mode config.TxnMode) Strategy {
	return Strategy{explicit: mode.Explicit()}
}

// Explicit reports whether statements are wrapped in BEGIN/COMMIT.
func (s Strategy) Explicit() bool {
	return s.explicit
}

// Exec runs stmt and returns the number of affected rows.
func (s Strategy) Exec(ctx context.Context, conn Conn, stmt Statement) (int64, error) {
	var affected int64
	err := s.run(ctx, conn, func(q querier) error {
		res, err := q.ExecContext(ctx, stmt.Query, stmt.Args...)
		if err != nil {
			return errors.Trace(err)
		}
		affected, err = res.RowsAffected()
		return errors.Trace(err)
	})
	return affected, err
}

// Query runs stmt and calls scan on every returned row. It returns the
// number of rows read.
func (s Strategy) Query(ctx context.Context, conn Conn, stmt Statement, scan func(rows *sql.Rows) error) (int64, error) {
	var n int64
	err := s.run(ctx, conn, func(q querier) error {
		rows, err := q.QueryContext(ctx, stmt.Query, stmt.Args...)
		if err != nil {
			return errors.Trace(err)
		}
		defer rows.Close()
		for rows.Next() {
			if err := scan(rows); err != nil {
				return errors.Trace(err)
			}
			n++
		}
		return errors.Trace(rows.Err())
	})
	return n, err
}

func (s Strategy) run(ctx context.Context, conn Conn, fn func(q querier) error) error {
	if !s.explicit {
		return fn(conn)
	}
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return errors.Annotate(err, "begin")
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Debug("rollback failed", zap.Error(rbErr))
		}
		return err
	}
	return errors.Annotate(tx.Commit(), "commit")
}

// Classify turns an error returned by a Strategy into a harness error: a
// fatal connection error when the connection is gone, a transaction error
// otherwise.
func Classify(worker int, err error) error {
	if err == nil {
		return nil
	}
	if util.IsConnectionError(err) {
		return core.ConnectionError(core.PhaseIterate, worker, err)
	}
	return core.TransactionError(worker, err)
}

// StatusOf returns the report status of err: the server error number when
// there is one, StatusUnknown otherwise.
func StatusOf(err error) core.Status {
	if err == nil {
		return core.StatusSuccess
	}
	if code, ok := util.MySQLErrorCode(err); ok && code != 0 {
		return core.Status(code)
	}
	return core.StatusUnknown
}
