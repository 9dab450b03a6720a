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

package session

import (
	"context"
	"database/sql"
	"math/rand"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/hashicorp/go-multierror"
	"github.com/juju/errors"
	"github.com/pingcap/log"
	"go.uber.org/zap"

	"github.com/pingcap/txnbench/pkg/config"
	"github.com/pingcap/txnbench/pkg/core"
	"github.com/pingcap/txnbench/util"
)

// Session is the state owned by exactly one worker: a dedicated connection
// and a sequence counter which only that worker advances.
type Session struct {
	id   int
	db   *sql.DB
	conn *sql.Conn
	seq  uint64
	rnd  *rand.Rand
}

// New wraps an established connection. db may be nil when the pool is owned
// by someone else.
func New(id int, db *sql.DB, conn *sql.Conn) *Session {
	return &Session{
		id:   id,
		db:   db,
		conn: conn,
		rnd:  rand.New(rand.NewSource(time.Now().UnixNano() + int64(id))),
	}
}

// DriverConfig builds the driver configuration of cfg.
func DriverConfig(cfg *config.Config) *mysql.Config {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	if cfg.Proxy != "" {
		mc.Net = util.ProxyNet
	}
	mc.Addr = cfg.Addr()
	mc.DBName = cfg.Database
	mc.Timeout = cfg.ConnectTimeout.Duration
	// multi-row statements are sent in one round trip
	mc.InterpolateParams = true
	return mc
}

// Open connects worker id to the server and applies the transaction mode of
// the session. Failing to connect is a connection error, failing to apply
// the mode is a configuration error; neither is retried.
func Open(ctx context.Context, cfg *config.Config, id int) (*Session, error) {
	if cfg.Proxy != "" {
		if err := util.SetMySQLProxy(cfg.Proxy); err != nil {
			return nil, core.ConfigurationError(core.PhaseConnect, id, err)
		}
	}
	db, err := util.OpenDB(DriverConfig(cfg), 1)
	if err != nil {
		return nil, core.ConfigurationError(core.PhaseConnect, id, err)
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, core.ConnectionError(core.PhaseConnect, id, errors.Annotatef(err, "connect to %s", cfg.Addr()))
	}

	s := New(id, db, conn)
	if err := s.ApplyTxnMode(ctx, cfg.TxnMode); err != nil {
		s.Close()
		return nil, err
	}
	log.Debug("worker connected",
		zap.Int("worker", id),
		zap.String("addr", cfg.Addr()),
		zap.Stringer("mode", cfg.TxnMode))
	return s, nil
}

// ApplyTxnMode issues the session directive of mode. It must be called once,
// right after the connection is established.
func (s *Session) ApplyTxnMode(ctx context.Context, mode config.TxnMode) error {
	stmt := mode.Directive()
	if stmt == "" {
		return nil
	}
	if _, err := s.conn.ExecContext(ctx, stmt); err != nil {
		return core.ConfigurationError(core.PhaseConnect, s.id, errors.Annotatef(err, "set transaction mode %s", mode))
	}
	return nil
}

// ID returns the worker index.
func (s *Session) ID() int {
	return s.id
}

// Conn returns the dedicated connection.
func (s *Session) Conn() *sql.Conn {
	return s.conn
}

// Seq returns the number of batches this worker has completed.
func (s *Session) Seq() uint64 {
	return s.seq
}

// Advance moves the sequence counter to the next batch.
func (s *Session) Advance() {
	s.seq++
}

// Rand returns the random source of this worker.
func (s *Session) Rand() *rand.Rand {
	return s.rnd
}

// Close releases the connection and its pool.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	var result *multierror.Error
	if s.conn != nil {
		result = multierror.Append(result, s.conn.Close())
	}
	if s.db != nil {
		result = multierror.Append(result, s.db.Close())
	}
	return result.ErrorOrNil()
}
