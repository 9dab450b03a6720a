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
	"github.com/juju/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/pingcap/txnbench/pkg/config"
	"github.com/pingcap/txnbench/pkg/core"
)

func bindCommonFlags(flags *pflag.FlagSet, cfg *config.Config) {
	flags.StringVar(&cfg.Host, "host", cfg.Host, "database host")
	flags.IntVarP(&cfg.Port, "port", "P", cfg.Port, "database port")
	flags.StringVarP(&cfg.User, "user", "u", cfg.User, "database user")
	flags.StringVarP(&cfg.Password, "password", "p", cfg.Password, "database password")
	flags.StringVarP(&cfg.Database, "database", "D", cfg.Database, "database name")
	flags.StringVar(&cfg.Table, "table", cfg.Table, "benchmark table, dropped and created again")
	flags.Var(&cfg.TxnMode, "txn-mode", "transaction mode: auto-commit, optimistic or pessimistic")
	flags.StringVar(&cfg.Proxy, "proxy", cfg.Proxy, "socks5 proxy URL to dial the database through")
	flags.DurationVar(&cfg.ConnectTimeout.Duration, "connect-timeout", cfg.ConnectTimeout.Duration, "dial timeout")

	flags.IntVarP(&cfg.Concurrency, "concurrency", "c", cfg.Concurrency, "number of workers")
	flags.Int64VarP(&cfg.Iterations, "iterations", "n", cfg.Iterations, "iterations of all workers together, 0 means unlimited")
	flags.DurationVarP(&cfg.Duration.Duration, "duration", "d", cfg.Duration.Duration, "length of the run, 0 means unlimited")
	flags.Float64VarP(&cfg.Rate, "rate", "r", cfg.Rate, "iterations per second of all workers together, 0 means unlimited")

	flags.StringVar(&cfg.Output, "output", cfg.Output, "summary format: text or json")
	flags.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve prometheus metrics on this address")
	flags.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "log level: debug, info, warn or error")
	flags.StringVar(&cfg.Log.File, "log-file", cfg.Log.File, "log file, stderr if empty")
}

// loadConfig decodes the config file into cfg. Flags changed on the command
// line are applied again afterwards so they override the file.
func loadConfig(cmd *cobra.Command, cfg *config.Config, path string) error {
	if path == "" {
		return nil
	}
	changed := make(map[string]string)
	cmd.Flags().Visit(func(f *pflag.Flag) {
		changed[f.Name] = f.Value.String()
	})
	if err := cfg.Load(path); err != nil {
		return core.ConfigurationError(core.PhaseConfig, core.NoWorker, err)
	}
	for name, value := range changed {
		if err := cmd.Flags().Set(name, value); err != nil {
			return core.ConfigurationError(core.PhaseConfig, core.NoWorker, errors.Annotatef(err, "flag --%s", name))
		}
	}
	return nil
}
