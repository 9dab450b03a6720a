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

package schema

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/pingcap/log"
	"go.uber.org/zap"

	"github.com/pingcap/txnbench/pkg/barrier"
	"github.com/pingcap/txnbench/pkg/core"
	"github.com/pingcap/txnbench/util"
)

const (
	// Owner is the index of the only worker which changes the schema.
	Owner = 0
	// SeedChunkSize is the number of rows of one seed INSERT.
	SeedChunkSize = 500

	teardownRetries  = 3
	teardownInterval = 200 * time.Millisecond
)

// Execer is the part of a connection the coordinator needs.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Table describes the benchmark table.
type Table struct {
	// Name is the quoted table name.
	Name string
	// Columns is the column definition list of CREATE TABLE.
	Columns string
	// SeedRows rows are inserted during setup, 0 disables seeding.
	SeedRows int
	// SeedColumns is the column list the seed rows are inserted into.
	SeedColumns []string
	// SeedRow returns the values of the n-th seed row, n starts at 1.
	SeedRow func(n int) []interface{}
}

// DropStmt returns the statement dropping the table.
func (t Table) DropStmt() string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", t.Name)
}

// CreateStmt returns the statement creating the table.
func (t Table) CreateStmt() string {
	return fmt.Sprintf("CREATE TABLE %s (%s)", t.Name, t.Columns)
}

// Coordinator makes sure the schema is prepared exactly once, by Owner, and
// that no worker leaves SetUp before the preparation is done.
type Coordinator struct {
	barrier *barrier.Barrier
}

// NewCoordinator creates a coordinator sharing b between all workers.
func NewCoordinator(b *barrier.Barrier) *Coordinator {
	return &Coordinator{barrier: b}
}

// SetUp is called by every worker before its timed loop. Owner drops,
// creates and seeds the table, then every worker waits on the barrier.
// Any failure is a schema error, fatal to the run.
func (c *Coordinator) SetUp(ctx context.Context, worker int, conn Execer, t Table) error {
	if worker == Owner {
		start := time.Now()
		if err := prepare(ctx, conn, t); err != nil {
			serr := core.SchemaError(worker, err)
			c.barrier.Abort(serr)
			return serr
		}
		log.Info("schema prepared",
			zap.String("table", t.Name),
			zap.Int("seed-rows", t.SeedRows),
			zap.Duration("cost", time.Since(start)))
	}
	if err := c.barrier.Wait(ctx); err != nil {
		if e, ok := core.AsError(err); ok {
			return e
		}
		return errors.Annotatef(err, "worker %d waits for schema", worker)
	}
	return nil
}

// TearDown drops the table. Only Owner does it, the call is a no-op for the
// other workers. Callers must make sure every worker has stopped iterating.
func (c *Coordinator) TearDown(ctx context.Context, worker int, conn Execer, t Table) error {
	if worker != Owner {
		return nil
	}
	err := util.RunWithRetry(ctx, teardownRetries, teardownInterval, func() error {
		_, err := conn.ExecContext(ctx, t.DropStmt())
		return err
	})
	if err != nil {
		return core.TeardownError(worker, err)
	}
	log.Info("table dropped", zap.String("table", t.Name))
	return nil
}

func prepare(ctx context.Context, conn Execer, t Table) error {
	if _, err := conn.ExecContext(ctx, t.DropStmt()); err != nil {
		return errors.Annotatef(err, "drop table %s", t.Name)
	}
	if _, err := conn.ExecContext(ctx, t.CreateStmt()); err != nil {
		return errors.Annotatef(err, "create table %s", t.Name)
	}
	return seed(ctx, conn, t)
}

// seed inserts SeedRows rows in chunks of SeedChunkSize to keep every
// statement small.
func seed(ctx context.Context, conn Execer, t Table) error {
	if t.SeedRows <= 0 {
		return nil
	}
	if t.SeedRow == nil || len(t.SeedColumns) == 0 {
		return errors.Errorf("table %s has no seed row generator", t.Name)
	}
	cols := len(t.SeedColumns)
	for start := 0; start < t.SeedRows; start += SeedChunkSize {
		end := start + SeedChunkSize
		if end > t.SeedRows {
			end = t.SeedRows
		}
		args := make([]interface{}, 0, (end-start)*cols)
		for n := start + 1; n <= end; n++ {
			row := t.SeedRow(n)
			if len(row) != cols {
				return errors.Errorf("seed row %d has %d values, expect %d", n, len(row), cols)
			}
			args = append(args, row...)
		}
		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
			t.Name, strings.Join(t.SeedColumns, ", "), util.Placeholders(end-start, cols))
		if _, err := conn.ExecContext(ctx, query, args...); err != nil {
			return errors.Annotatef(err, "seed batch at %d", start)
		}
	}
	return nil
}

