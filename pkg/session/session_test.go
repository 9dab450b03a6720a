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
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pingcap/txnbench/pkg/config"
	"github.com/pingcap/txnbench/pkg/core"
)

func newMockSession(t *testing.T, id int) (*Session, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	conn, err := db.Conn(context.Background())
	require.NoError(t, err)
	return New(id, db, conn), mock
}

func TestApplyTxnMode(t *testing.T) {
	for _, mode := range []config.TxnMode{config.Optimistic, config.Pessimistic} {
		s, mock := newMockSession(t, 2)
		mock.ExpectExec(mode.Directive()).WillReturnResult(sqlmock.NewResult(0, 0))
		require.NoError(t, s.ApplyTxnMode(context.Background(), mode))
		require.NoError(t, mock.ExpectationsWereMet())
	}
}

func TestApplyTxnModeAutoCommitIssuesNothing(t *testing.T) {
	s, mock := newMockSession(t, 0)
	require.NoError(t, s.ApplyTxnMode(context.Background(), config.AutoCommit))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyTxnModeFailureIsConfigurationError(t *testing.T) {
	s, mock := newMockSession(t, 1)
	mock.ExpectExec(config.Pessimistic.Directive()).WillReturnError(errors.New("unknown system variable"))

	err := s.ApplyTxnMode(context.Background(), config.Pessimistic)
	require.Error(t, err)
	e, ok := core.AsError(err)
	require.True(t, ok)
	assert.Equal(t, core.KindConfiguration, e.Kind)
	assert.Equal(t, core.PhaseConnect, e.Phase)
	assert.Equal(t, 1, e.Worker)
	assert.True(t, core.IsFatal(err))
}

func TestSequence(t *testing.T) {
	s := New(3, nil, nil)
	assert.Equal(t, 3, s.ID())
	assert.Equal(t, uint64(0), s.Seq())
	s.Advance()
	s.Advance()
	assert.Equal(t, uint64(2), s.Seq())
	assert.NotNil(t, s.Rand())
	assert.NoError(t, s.Close())

	var nilSession *Session
	assert.NoError(t, nilSession.Close())
}

func TestDriverConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Host = "tidb"
	cfg.Port = 4001
	cfg.Password = "secret"
	cfg.Database = "bench"
	mc := DriverConfig(cfg)
	assert.Equal(t, "tcp", mc.Net)
	assert.Equal(t, "tidb:4001", mc.Addr)
	assert.Equal(t, "root", mc.User)
	assert.Equal(t, "secret", mc.Passwd)
	assert.Equal(t, "bench", mc.DBName)
	assert.True(t, mc.InterpolateParams)

	cfg.Proxy = "socks5://127.0.0.1:1080"
	assert.NotEqual(t, "tcp", DriverConfig(cfg).Net)
}

// closedPort returns a local port nothing listens on.
func closedPort(t *testing.T) int {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	_, port, err := net.SplitHostPort(l.Addr().String())
	require.NoError(t, err)
	require.NoError(t, l.Close())
	p, err := strconv.Atoi(port)
	require.NoError(t, err)
	return p
}

func TestOpenUnreachable(t *testing.T) {
	cfg := config.Default()
	cfg.Port = closedPort(t)
	cfg.ConnectTimeout.Duration = time.Second
	cfg.Adjust()

	s, err := Open(context.Background(), cfg, 0)
	require.Nil(t, s)
	require.Error(t, err)
	e, ok := core.AsError(err)
	require.True(t, ok)
	assert.Equal(t, core.KindConnection, e.Kind)
	assert.Equal(t, core.PhaseConnect, e.Phase)
	assert.True(t, core.IsFatal(err))
}
