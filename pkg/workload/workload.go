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

package workload

import (
	"context"
	"time"

	"github.com/pingcap/log"
	"go.uber.org/zap"

	"github.com/pingcap/txnbench/pkg/core"
	"github.com/pingcap/txnbench/pkg/schema"
	"github.com/pingcap/txnbench/pkg/session"
	"github.com/pingcap/txnbench/pkg/txn"
)

// Base carries the schema lifecycle shared by the workloads.
type Base struct {
	Coord *schema.Coordinator
	Table schema.Table
}

// SetUp prepares the table from worker 0 and waits for every worker.
func (b *Base) SetUp(ctx context.Context, s *session.Session) error {
	return b.Coord.SetUp(ctx, s.ID(), s.Conn(), b.Table)
}

// TearDown drops the table from worker 0.
func (b *Base) TearDown(ctx context.Context, s *session.Session) error {
	return b.Coord.TearDown(ctx, s.ID(), s.Conn(), b.Table)
}

// Fail turns a Strategy error into the outcome of an iteration: fatal errors
// are returned, the others become a failed report so the worker goes on.
func Fail(s *session.Session, info core.IterInfo, d time.Duration, err error) (*core.IterReport, error) {
	cerr := txn.Classify(s.ID(), err)
	if core.IsFatal(cerr) {
		return nil, cerr
	}
	status := txn.StatusOf(err)
	log.Debug("iteration failed",
		zap.Int("worker", s.ID()),
		zap.Uint64("seq", info.Seq),
		zap.Int("status", int(status)),
		zap.Error(err))
	return core.Failed(s.ID(), d, status), nil
}
