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

package logger

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/pingcap/log"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitGlobalLoggerToFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "txnbench-log")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	file := filepath.Join(dir, "bench.log")
	logger, err := InitGlobalLogger(Config{Level: "info", File: file})
	require.NoError(t, err)

	log.Info("hello from pingcap/log", zap.Int("worker", 3))
	log.Debug("filtered out")
	zap.L().Info("hello from zap")
	require.NoError(t, logger.Sync())

	data, err := ioutil.ReadFile(file)
	require.NoError(t, err)
	require.Contains(t, string(data), "hello from pingcap/log")
	require.Contains(t, string(data), "hello from zap")
	require.NotContains(t, string(data), "filtered out")
}

func TestInitGlobalLoggerBadLevel(t *testing.T) {
	_, err := InitGlobalLogger(Config{Level: "loud"})
	require.Error(t, err)
}
