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

package control

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/pingcap/txnbench/pkg/barrier"
	"github.com/pingcap/txnbench/pkg/config"
	"github.com/pingcap/txnbench/pkg/core"
	"github.com/pingcap/txnbench/pkg/session"
)

type fakeSuite struct {
	barrier *barrier.Barrier
	delay   time.Duration
	failAt  int64

	prepared    atomic.Bool
	setups      atomic.Int32
	early       atomic.Int32
	benches     atomic.Int64
	tearDowns   atomic.Int32
	tearDownErr error
}

func newFakeSuite(concurrency int) *fakeSuite {
	return &fakeSuite{barrier: barrier.New(concurrency)}
}

func (f *fakeSuite) String() string { return "fake" }

func (f *fakeSuite) SetUp(ctx context.Context, s *session.Session) error {
	if s.ID() == 0 {
		time.Sleep(20 * time.Millisecond)
		f.setups.Inc()
		f.prepared.Store(true)
	}
	return f.barrier.Wait(ctx)
}

func (f *fakeSuite) Bench(_ context.Context, s *session.Session, info core.IterInfo) (*core.IterReport, error) {
	if !f.prepared.Load() {
		f.early.Inc()
	}
	n := f.benches.Inc()
	if f.failAt > 0 && n == f.failAt {
		return nil, core.ConnectionError(core.PhaseIterate, s.ID(), errors.New("connection reset"))
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return &core.IterReport{Worker: s.ID(), Duration: f.delay, Items: 1}, nil
}

func (f *fakeSuite) TearDown(_ context.Context, s *session.Session) error {
	if s.ID() != 0 {
		return nil
	}
	f.tearDowns.Inc()
	return f.tearDownErr
}

func fakeOpener(_ context.Context, id int) (*session.Session, error) {
	return session.New(id, nil, nil), nil
}

func runFake(ctx context.Context, t *testing.T, cfg *Config, suite Suite, open Opener) (*Result, int, error) {
	reports := make(chan *core.IterReport, 16)
	received := make(chan int)
	go func() {
		n := 0
		for range reports {
			n++
		}
		received <- n
	}()
	c := NewController(cfg, suite, open, reports)
	result, err := c.Run(ctx)
	close(reports)
	require.NotNil(t, result)
	return result, <-received, err
}

func TestIterationBudget(t *testing.T) {
	for _, concurrency := range []int{1, 4, 16} {
		suite := newFakeSuite(concurrency)
		cfg := &Config{Concurrency: concurrency, Iterations: 100}
		result, n, err := runFake(context.Background(), t, cfg, suite, fakeOpener)
		require.NoError(t, err)

		assert.Equal(t, 100, n)
		assert.Equal(t, int64(100), result.Iterations)
		assert.Equal(t, int64(100), suite.benches.Load())
		assert.Equal(t, int32(1), suite.setups.Load())
		assert.Zero(t, suite.early.Load(), "iteration before setup finished")
		assert.Equal(t, int32(1), suite.tearDowns.Load())
		assert.NotEmpty(t, result.RunID)
		assert.NoError(t, result.TearDown)
	}
}

func TestDuration(t *testing.T) {
	suite := newFakeSuite(2)
	suite.delay = time.Millisecond
	cfg := &Config{Concurrency: 2, Duration: 100 * time.Millisecond}
	result, n, err := runFake(context.Background(), t, cfg, suite, fakeOpener)
	require.NoError(t, err)
	assert.True(t, result.Elapsed >= 100*time.Millisecond, "elapsed %s", result.Elapsed)
	assert.True(t, n > 0)
	assert.Equal(t, int64(n), result.Iterations)
}

func TestRate(t *testing.T) {
	suite := newFakeSuite(4)
	cfg := &Config{Concurrency: 4, Duration: 200 * time.Millisecond, Rate: 50}
	_, n, err := runFake(context.Background(), t, cfg, suite, fakeOpener)
	require.NoError(t, err)
	assert.True(t, n > 0)
	assert.True(t, n <= 15, "%d iterations at 50/s in 200ms", n)
}

func TestCancel(t *testing.T) {
	suite := newFakeSuite(3)
	suite.delay = time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)
	result, n, err := runFake(ctx, t, &Config{Concurrency: 3}, suite, fakeOpener)
	require.NoError(t, err)
	assert.True(t, n > 0)
	assert.Equal(t, int32(1), suite.tearDowns.Load())
	assert.Equal(t, int64(n), result.Iterations)
}

func TestFatalErrorStopsEveryWorker(t *testing.T) {
	suite := newFakeSuite(4)
	suite.failAt = 50
	suite.delay = time.Millisecond
	result, n, err := runFake(context.Background(), t, &Config{Concurrency: 4}, suite, fakeOpener)
	require.Error(t, err)
	e, ok := core.AsError(err)
	require.True(t, ok)
	assert.Equal(t, core.KindConnection, e.Kind)
	assert.Equal(t, n, int(result.Iterations))
	assert.True(t, n < 50+4)
	assert.Equal(t, int32(1), suite.tearDowns.Load())
}

func TestTearDownFailureIsReported(t *testing.T) {
	suite := newFakeSuite(2)
	suite.tearDownErr = core.TeardownError(0, errors.New("drop failed"))
	result, _, err := runFake(context.Background(), t, &Config{Concurrency: 2, Iterations: 4}, suite, fakeOpener)
	require.NoError(t, err)
	require.Error(t, result.TearDown)
	assert.Contains(t, result.TearDown.Error(), "drop failed")
}

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

func TestUnreachableDatabase(t *testing.T) {
	cfg := config.Default()
	cfg.Port = closedPort(t)
	cfg.Concurrency = 2
	cfg.Adjust()
	open := func(ctx context.Context, id int) (*session.Session, error) {
		return session.Open(ctx, cfg, id)
	}

	suite := newFakeSuite(cfg.Concurrency)
	result, n, err := runFake(context.Background(), t, &Config{Concurrency: cfg.Concurrency, Iterations: 10}, suite, open)
	require.Error(t, err)
	e, ok := core.AsError(err)
	require.True(t, ok)
	assert.Equal(t, core.KindConnection, e.Kind)
	assert.Equal(t, core.PhaseConnect, e.Phase)
	assert.True(t, core.IsFatal(err))

	assert.Zero(t, n)
	assert.Zero(t, result.Iterations)
	assert.Zero(t, suite.benches.Load())
	assert.Zero(t, suite.tearDowns.Load())
}
