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
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/juju/errors"
	"github.com/pingcap/log"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/pingcap/txnbench/pkg/core"
	"github.com/pingcap/txnbench/pkg/session"
)

// Suite is a workload driven by the controller.
type Suite interface {
	fmt.Stringer
	// SetUp is called by every worker once its session is open. It returns
	// when the workload may start.
	SetUp(ctx context.Context, s *session.Session) error
	// Bench runs one timed iteration. A non-nil error stops the run.
	Bench(ctx context.Context, s *session.Session, info core.IterInfo) (*core.IterReport, error)
	// TearDown is called for every worker after all of them stopped.
	TearDown(ctx context.Context, s *session.Session) error
}

// Opener opens the session of a worker.
type Opener func(ctx context.Context, id int) (*session.Session, error)

// Result sums up a finished run.
type Result struct {
	RunID string
	// Elapsed is the length of the timed phase.
	Elapsed    time.Duration
	Iterations int64
	// TearDown is set when dropping the table or closing a session failed.
	// It does not fail the run.
	TearDown error
}

// Controller runs a suite with a fixed number of workers, each owning one session.
type Controller struct {
	cfg     *Config
	suite   Suite
	open    Opener
	reports chan<- *core.IterReport

	sessions []*session.Session
	limiter  *rate.Limiter
	budget   *atomic.Int64
	done     *atomic.Int64

	startOnce sync.Once
	start     time.Time
	timer     *time.Timer
	stop      context.CancelFunc
}

// NewController creates a controller. Every iteration report is sent to
// reports, the caller drains it and closes it after Run returns.
func NewController(cfg *Config, suite Suite, open Opener, reports chan<- *core.IterReport) *Controller {
	cfg.adjust()
	c := &Controller{
		cfg:      cfg,
		suite:    suite,
		open:     open,
		reports:  reports,
		sessions: make([]*session.Session, cfg.Concurrency),
		budget:   atomic.NewInt64(cfg.Iterations),
		done:     atomic.NewInt64(0),
	}
	if cfg.Rate > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.Rate), 1)
	}
	return c
}

// Run opens the sessions, sets the suite up, runs the workers until a stop
// condition holds and tears everything down. The returned error is the first
// fatal error of any worker.
func (c *Controller) Run(ctx context.Context) (*Result, error) {
	log.Info("start controller",
		zap.String("run-id", c.cfg.RunID),
		zap.Stringer("workload", c.suite),
		zap.Int("concurrency", c.cfg.Concurrency),
		zap.Int64("iterations", c.cfg.Iterations),
		zap.Duration("duration", c.cfg.Duration),
		zap.Float64("rate", c.cfg.Rate))

	g, gctx := errgroup.WithContext(ctx)
	loopCtx, stop := context.WithCancel(gctx)
	c.stop = stop
	defer stop()

	for i := 0; i < c.cfg.Concurrency; i++ {
		id := i
		g.Go(func() error {
			err := c.runWorker(gctx, loopCtx, id)
			if err != nil {
				log.Error("worker stopped", zap.Int("worker", id), zap.Error(err))
			}
			return err
		})
	}
	err := g.Wait()
	if c.timer != nil {
		c.timer.Stop()
	}

	result := &Result{
		RunID:      c.cfg.RunID,
		Iterations: c.done.Load(),
	}
	if !c.start.IsZero() {
		result.Elapsed = time.Since(c.start)
	}
	result.TearDown = c.tearDown()
	log.Info("finish controller",
		zap.String("run-id", c.cfg.RunID),
		zap.Int64("iterations", result.Iterations),
		zap.Duration("elapsed", result.Elapsed))
	return result, err
}

func (c *Controller) runWorker(ctx, loopCtx context.Context, id int) error {
	s, err := c.open(ctx, id)
	if err != nil {
		return err
	}
	c.sessions[id] = s

	if err := c.suite.SetUp(ctx, s); err != nil {
		return err
	}
	c.markStart()

	// statements run to completion, stop is only checked between iterations
	stmtCtx := context.Background()
	for seq := uint64(0); c.next(loopCtx); seq++ {
		r, err := c.suite.Bench(stmtCtx, s, core.IterInfo{WorkerID: id, Seq: seq})
		if err != nil {
			return errors.Trace(err)
		}
		c.done.Inc()
		if c.reports != nil {
			c.reports <- r
		}
	}
	return nil
}

// markStart starts the clock of the timed phase when the first worker leaves setup.
func (c *Controller) markStart() {
	c.startOnce.Do(func() {
		c.start = time.Now()
		if c.cfg.Duration > 0 {
			c.timer = time.AfterFunc(c.cfg.Duration, c.stop)
		}
	})
}

// next reports whether the worker may start another iteration.
func (c *Controller) next(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	if c.cfg.Iterations > 0 && c.budget.Dec() < 0 {
		return false
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return false
		}
	}
	return true
}

// tearDown runs the suite teardown for every opened session and closes them.
// It uses its own context since the run context may be cancelled already.
func (c *Controller) tearDown() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.TearDownTimeout)
	defer cancel()

	var result *multierror.Error
	for _, s := range c.sessions {
		if s == nil {
			continue
		}
		if err := c.suite.TearDown(ctx, s); err != nil {
			log.Warn("tear down failed", zap.Int("worker", s.ID()), zap.Error(err))
			result = multierror.Append(result, err)
		}
	}
	for _, s := range c.sessions {
		if err := s.Close(); err != nil {
			log.Warn("close session failed", zap.Int("worker", s.ID()), zap.Error(err))
			result = multierror.Append(result, core.TeardownError(s.ID(), err))
		}
	}
	return result.ErrorOrNil()
}
