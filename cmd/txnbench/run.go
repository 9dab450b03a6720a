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

package main

import (
	"context"
	"io"
	"os"

	"github.com/pingcap/log"
	"go.uber.org/zap"

	"github.com/pingcap/txnbench/pkg/barrier"
	"github.com/pingcap/txnbench/pkg/config"
	"github.com/pingcap/txnbench/pkg/control"
	"github.com/pingcap/txnbench/pkg/core"
	"github.com/pingcap/txnbench/pkg/logger"
	"github.com/pingcap/txnbench/pkg/metrics"
	"github.com/pingcap/txnbench/pkg/report"
	"github.com/pingcap/txnbench/pkg/schema"
	"github.com/pingcap/txnbench/pkg/session"
)

type suiteCreator func(cfg *config.Config, coord *schema.Coordinator) control.Suite

func run(ctx context.Context, cfg *config.Config, create suiteCreator) error {
	cfg.Adjust()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if _, err := logger.InitGlobalLogger(logger.Config{Level: cfg.Log.Level, File: cfg.Log.File}); err != nil {
		return core.ConfigurationError(core.PhaseConfig, core.NoWorker, err)
	}
	open := func(ctx context.Context, id int) (*session.Session, error) {
		return session.Open(ctx, cfg, id)
	}
	return bench(ctx, cfg, create, open, os.Stdout)
}

// bench runs one workload and writes its summary to out.
func bench(ctx context.Context, cfg *config.Config, create suiteCreator, open control.Opener, out io.Writer) error {
	suite := create(cfg, schema.NewCoordinator(barrier.New(cfg.Concurrency)))
	m := metrics.New(suite.String(), cfg.TxnMode.String())
	if cfg.MetricsAddr != "" {
		l, err := m.Serve(cfg.MetricsAddr)
		if err != nil {
			return core.ConfigurationError(core.PhaseConfig, core.NoWorker, err)
		}
		defer l.Close()
	}

	collector := report.NewCollector()
	reports := make(chan *core.IterReport, cfg.Concurrency*16)
	drained := make(chan struct{})
	go func() {
		report.Drain(reports, collector, m)
		close(drained)
	}()

	ctl := control.NewController(&control.Config{
		Concurrency: cfg.Concurrency,
		Iterations:  cfg.Iterations,
		Duration:    cfg.Duration.Duration,
		Rate:        cfg.Rate,
	}, suite, open, reports)
	result, err := ctl.Run(ctx)
	close(reports)
	<-drained

	if result.TearDown != nil {
		log.Warn("teardown incomplete", zap.String("run-id", result.RunID), zap.Error(result.TearDown))
	}
	summary := collector.Summary(report.Meta{
		RunID:       result.RunID,
		Workload:    suite.String(),
		Mode:        cfg.TxnMode.String(),
		Concurrency: cfg.Concurrency,
	}, result.Elapsed)
	if werr := summary.Write(out, cfg.Output); werr != nil {
		log.Warn("write summary failed", zap.Error(werr))
	}
	return err
}
