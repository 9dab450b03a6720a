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

package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/juju/errors"

	"github.com/pingcap/txnbench/pkg/core"
)

// Defaults
const (
	DefaultHost           = "127.0.0.1"
	DefaultPort           = 4000
	DefaultUser           = "root"
	DefaultDatabase       = "test"
	DefaultTable          = "bench_table"
	DefaultBatchSize      = 100
	DefaultSelectCount    = 1000
	DefaultConcurrency    = 1
	DefaultConnectTimeout = 10 * time.Second
	// SeedMultiplier is how many times select-count rows are seeded when
	// seed-rows is not given.
	SeedMultiplier = 2
)

// Output formats of the summary
const (
	OutputText = "text"
	OutputJSON = "json"
)

// LogConfig configures the global logger.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Config is the configuration of one benchmark run. It is shared read-only by
// all workers once Adjust and Validate have been called.
type Config struct {
	Host     string  `toml:"host"`
	Port     int     `toml:"port"`
	User     string  `toml:"user"`
	Password string  `toml:"password"`
	Database string  `toml:"database"`
	Table    string  `toml:"table"`
	TxnMode  TxnMode `toml:"txn-mode"`
	// Proxy is an optional socks5 URL every connection is dialed through.
	Proxy          string   `toml:"proxy"`
	ConnectTimeout Duration `toml:"connect-timeout"`

	// BatchSize is the number of rows of one INSERT iteration.
	BatchSize int `toml:"batch-size"`
	// SelectCount is the number of rows one SELECT iteration fetches.
	SelectCount int `toml:"select-count"`
	// SeedRows is the number of rows seeded for the select workload.
	SeedRows     int  `toml:"seed-rows"`
	RandomOffset bool `toml:"random-offset"`

	Concurrency int `toml:"concurrency"`
	// Iterations is the total number of iterations over all workers, 0 means unlimited.
	Iterations int64 `toml:"iterations"`
	// Duration bounds the timed loop, 0 means unlimited.
	Duration Duration `toml:"duration"`
	// Rate limits iterations per second over all workers, 0 means unlimited.
	Rate float64 `toml:"rate"`

	Output      string    `toml:"output"`
	MetricsAddr string    `toml:"metrics-addr"`
	Log         LogConfig `toml:"log"`
}

var initConfig = Config{
	Host:           DefaultHost,
	Port:           DefaultPort,
	User:           DefaultUser,
	Database:       DefaultDatabase,
	Table:          DefaultTable,
	TxnMode:        AutoCommit,
	ConnectTimeout: Duration{Duration: DefaultConnectTimeout},
	BatchSize:      DefaultBatchSize,
	SelectCount:    DefaultSelectCount,
	Concurrency:    DefaultConcurrency,
	Output:         OutputText,
	Log: LogConfig{
		Level: "info",
	},
}

// Default returns a new Config filled with default values.
func Default() *Config {
	return initConfig.Copy()
}

// Load config from file
func (c *Config) Load(path string) error {
	_, err := toml.DecodeFile(path, c)
	return errors.Annotatef(err, "load config %s", path)
}

// Copy Config struct
func (c *Config) Copy() *Config {
	cp := *c
	return &cp
}

// Adjust fills the fields which were left empty.
func (c *Config) Adjust() {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.User == "" {
		c.User = DefaultUser
	}
	if c.Database == "" {
		c.Database = DefaultDatabase
	}
	if c.Table == "" {
		c.Table = DefaultTable
	}
	if c.ConnectTimeout.Duration == 0 {
		c.ConnectTimeout.Duration = DefaultConnectTimeout
	}
	if c.SeedRows == 0 {
		c.SeedRows = c.SelectCount * SeedMultiplier
	}
	if c.Output == "" {
		c.Output = OutputText
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks the configuration. The returned error is a configuration error.
func (c *Config) Validate() error {
	var err error
	switch {
	case c.Port <= 0 || c.Port > 65535:
		err = errors.Errorf("port %d out of range", c.Port)
	case c.TxnMode < AutoCommit || c.TxnMode > Pessimistic:
		err = errors.Errorf("invalid transaction mode %v", c.TxnMode)
	case c.BatchSize < 1:
		err = errors.Errorf("batch-size must be at least 1, got %d", c.BatchSize)
	case c.SelectCount < 1:
		err = errors.Errorf("select-count must be at least 1, got %d", c.SelectCount)
	case c.SeedRows < c.SelectCount:
		err = errors.Errorf("seed-rows %d is less than select-count %d", c.SeedRows, c.SelectCount)
	case c.Concurrency < 1:
		err = errors.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	case c.Iterations < 0:
		err = errors.Errorf("iterations must not be negative, got %d", c.Iterations)
	case c.Duration.Duration < 0:
		err = errors.Errorf("duration must not be negative, got %s", c.Duration)
	case c.Rate < 0:
		err = errors.Errorf("rate must not be negative, got %v", c.Rate)
	case c.Output != OutputText && c.Output != OutputJSON:
		err = errors.Errorf("unknown output format %q", c.Output)
	case strings.TrimSpace(c.Table) == "":
		err = errors.New("table must not be empty")
	}
	if err != nil {
		return core.ConfigurationError(core.PhaseConfig, core.NoWorker, err)
	}
	return nil
}

// Addr returns host:port of the server.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// QuotedTable returns the table name quoted as a MySQL identifier.
func (c *Config) QuotedTable() string {
	return QuoteIdent(c.Table)
}

// QuoteIdent quotes name with backticks, doubling the backticks inside it.
func QuoteIdent(name string) string {
	return fmt.Sprintf("`%s`", strings.Replace(name, "`", "``", -1))
}
