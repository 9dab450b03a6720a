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
	"database/sql"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jpillora/backoff"
	"github.com/juju/errors"
)

// OpenDB opens a pool on the given driver config holding at most maxConns connections.
// No connection is made until the pool is used.
func OpenDB(cfg *mysql.Config, maxConns int) (*sql.DB, error) {
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, errors.Trace(err)
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)
	return db, nil
}

// RunWithRetry tries to run func in specified count, sleeping an exponentially
// growing interval between attempts. It returns the last error of f, or the
// context error when ctx is done first.
func RunWithRetry(ctx context.Context, retryCnt int, interval time.Duration, f func() error) error {
	var (
		err error
		b   = &backoff.Backoff{
			Min:    interval,
			Max:    interval * 8,
			Factor: 2,
		}
	)
	for i := 0; retryCnt < 0 || i < retryCnt; i++ {
		err = f()
		if err == nil {
			return nil
		}
		if retryCnt >= 0 && i == retryCnt-1 {
			break
		}

		select {
		case <-ctx.Done():
			return errors.Annotate(err, ctx.Err().Error())
		case <-time.After(b.Duration()):
		}
	}
	return errors.Trace(err)
}
