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
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pingcap/txnbench/pkg/config"
	"github.com/pingcap/txnbench/pkg/control"
	"github.com/pingcap/txnbench/pkg/core"
	"github.com/pingcap/txnbench/pkg/schema"
	"github.com/pingcap/txnbench/pkg/workload/insert"
	"github.com/pingcap/txnbench/pkg/workload/query"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cfg := config.Default()
	rootCmd := newRootCmd(cfg)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, describe(err))
		os.Exit(1)
	}
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	var configFile string
	rootCmd := &cobra.Command{
		Use:           "txnbench",
		Short:         "INSERT and SELECT load generator for TiDB",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, cfg, configFile)
		},
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "TOML config file, flags given on the command line take precedence")
	bindCommonFlags(rootCmd.PersistentFlags(), cfg)
	rootCmd.AddCommand(newInsertCmd(cfg), newSelectCmd(cfg))
	return rootCmd
}

func newInsertCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "insert",
		Short: "Insert batches of rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg, func(cfg *config.Config, coord *schema.Coordinator) control.Suite {
				return insert.New(cfg, coord)
			})
		},
	}
	cmd.Flags().IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "rows per INSERT")
	return cmd
}

func newSelectCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select",
		Short: "Select windows of a seeded table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg, func(cfg *config.Config, coord *schema.Coordinator) control.Suite {
				return query.New(cfg, coord)
			})
		},
	}
	cmd.Flags().IntVar(&cfg.SelectCount, "select-count", cfg.SelectCount, "rows per SELECT")
	cmd.Flags().IntVar(&cfg.SeedRows, "seed-rows", cfg.SeedRows, "rows seeded before the run, 0 means twice select-count")
	cmd.Flags().BoolVar(&cfg.RandomOffset, "random-offset", cfg.RandomOffset, "read from a random offset of the seeded rows")
	return cmd
}

// describe renders a run error for the terminal.
func describe(err error) string {
	if e, ok := core.AsError(err); ok {
		return fmt.Sprintf("%s failed: %v", e.Phase, e.Err)
	}
	return fmt.Sprintf("run failed: %v", err)
}
