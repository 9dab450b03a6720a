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

package query

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"time"

	"github.com/juju/errors"

	"github.com/pingcap/txnbench/pkg/config"
	"github.com/pingcap/txnbench/pkg/core"
	"github.com/pingcap/txnbench/pkg/schema"
	"github.com/pingcap/txnbench/pkg/session"
	"github.com/pingcap/txnbench/pkg/txn"
	"github.com/pingcap/txnbench/pkg/workload"
)

// idSize is the width of the BIGINT id column.
const idSize = 8

const columns = `id BIGINT PRIMARY KEY AUTO_INCREMENT,
	data VARCHAR(255),
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP`

// Workload reads a window of the seeded table in every iteration.
type Workload struct {
	workload.Base

	count        int
	seedRows     int
	randomOffset bool
	strategy     txn.Strategy
	query        string
}

// New creates the select workload. cfg must have been adjusted so that
// SeedRows is set.
func New(cfg *config.Config, coord *schema.Coordinator) *Workload {
	table := cfg.QuotedTable()
	query := fmt.Sprintf("SELECT id, data FROM %s LIMIT ?", table)
	if cfg.RandomOffset {
		query += " OFFSET ?"
	}
	return &Workload{
		Base: workload.Base{
			Coord: coord,
			Table: schema.Table{
				Name:        table,
				Columns:     columns,
				SeedRows:    cfg.SeedRows,
				SeedColumns: []string{"data"},
				SeedRow:     SeedRow,
			},
		},
		count:        cfg.SelectCount,
		seedRows:     cfg.SeedRows,
		randomOffset: cfg.RandomOffset,
		strategy:     txn.New(cfg.TxnMode),
		query:        query,
	}
}

// SeedRow returns the values of the n-th seeded row.
func SeedRow(n int) []interface{} {
	return []interface{}{fmt.Sprintf("test_data_%d", n)}
}

// String implements fmt.Stringer interface.
func (w *Workload) String() string {
	return "select"
}

// Offset draws a window start so that the window of count rows lies inside
// the first total rows.
func Offset(rnd *rand.Rand, total, count int) int {
	if total <= count {
		return 0
	}
	return rnd.Intn(total - count + 1)
}

// Bench reads one window. Items is the number of rows actually returned,
// Bytes adds up the id width and the length of each data value.
func (w *Workload) Bench(ctx context.Context, s *session.Session, info core.IterInfo) (*core.IterReport, error) {
	start := time.Now()
	stmt := w.statement(s)
	var bytes uint64
	n, err := w.strategy.Query(ctx, s.Conn(), stmt, func(rows *sql.Rows) error {
		var (
			id   int64
			data sql.RawBytes
		)
		if err := rows.Scan(&id, &data); err != nil {
			return errors.Annotate(err, "scan")
		}
		bytes += idSize + uint64(len(data))
		return nil
	})
	d := time.Since(start)
	if err != nil {
		return workload.Fail(s, info, d, err)
	}
	s.Advance()
	return &core.IterReport{
		Worker:   s.ID(),
		Duration: d,
		Status:   core.StatusSuccess,
		Bytes:    bytes,
		Items:    uint64(n),
	}, nil
}

func (w *Workload) statement(s *session.Session) txn.Statement {
	if !w.randomOffset {
		return txn.Statement{Query: w.query, Args: []interface{}{w.count}}
	}
	offset := Offset(s.Rand(), w.seedRows, w.count)
	return txn.Statement{Query: w.query, Args: []interface{}{w.count, offset}}
}
