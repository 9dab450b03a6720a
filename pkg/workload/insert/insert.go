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

package insert

import (
	"context"
	"fmt"
	"time"

	"github.com/pingcap/txnbench/pkg/config"
	"github.com/pingcap/txnbench/pkg/core"
	"github.com/pingcap/txnbench/pkg/schema"
	"github.com/pingcap/txnbench/pkg/session"
	"github.com/pingcap/txnbench/pkg/txn"
	"github.com/pingcap/txnbench/pkg/workload"
	"github.com/pingcap/txnbench/util"
)

const (
	// BytesPerRow estimates the payload of one row: about 50 bytes of data
	// string and a 4 byte INT. It is a rough figure, not what goes on the wire.
	BytesPerRow = 50 + 4

	valueModulo = 1000

	columns = `id BIGINT PRIMARY KEY AUTO_INCREMENT,
	data VARCHAR(255),
	value INT,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP`
)

// Workload inserts batches of synthetic rows.
type Workload struct {
	workload.Base

	batch       int
	concurrency int
	strategy    txn.Strategy
	query       string
}

// New creates the insert workload.
func New(cfg *config.Config, coord *schema.Coordinator) *Workload {
	table := cfg.QuotedTable()
	return &Workload{
		Base: workload.Base{
			Coord: coord,
			Table: schema.Table{Name: table, Columns: columns},
		},
		batch:       cfg.BatchSize,
		concurrency: cfg.Concurrency,
		strategy:    txn.New(cfg.TxnMode),
		query:       fmt.Sprintf("INSERT INTO %s (data, value) VALUES %s", table, util.Placeholders(cfg.BatchSize, 2)),
	}
}

// String implements fmt.Stringer interface.
func (w *Workload) String() string {
	return "insert"
}

// KeyBase returns the first row key of batch seq of a worker. Batches of all
// workers are interleaved, batch seq of worker w takes the slot
// seq*concurrency+w, so the key ranges of two workers never overlap and no
// shared counter is needed.
func KeyBase(worker, concurrency int, seq uint64, batch int) uint64 {
	return (seq*uint64(concurrency) + uint64(worker)) * uint64(batch)
}

// Bench inserts one batch. The worker's counter only moves on success, so a
// failed batch is retried with the same keys.
func (w *Workload) Bench(ctx context.Context, s *session.Session, info core.IterInfo) (*core.IterReport, error) {
	start := time.Now()
	stmt := w.statement(s)
	_, err := w.strategy.Exec(ctx, s.Conn(), stmt)
	d := time.Since(start)
	if err != nil {
		return workload.Fail(s, info, d, err)
	}
	s.Advance()
	return &core.IterReport{
		Worker:   s.ID(),
		Duration: d,
		Status:   core.StatusSuccess,
		Bytes:    uint64(w.batch) * BytesPerRow,
		Items:    uint64(w.batch),
	}, nil
}

func (w *Workload) statement(s *session.Session) txn.Statement {
	base := KeyBase(s.ID(), w.concurrency, s.Seq(), w.batch)
	args := make([]interface{}, 0, w.batch*2)
	for i := 0; i < w.batch; i++ {
		key := base + uint64(i)
		args = append(args, fmt.Sprintf("bench_data_%d", key), int64(key%valueModulo))
	}
	return txn.Statement{Query: w.query, Args: args}
}
