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
	"os"

	"github.com/juju/errors"
	"github.com/pingcap/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config is the logger configuration.
type Config struct {
	// Level is one of debug, info, warn, error.
	Level string
	// File is the log file, logs go to stderr when it is empty.
	File string
}

// InitGlobalLogger initializes the zap global logger and the pingcap/log
// global logger with the same core.
func InitGlobalLogger(cfg Config) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, errors.Annotatef(err, "invalid log level %q", cfg.Level)
		}
	}
	encoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	writer := getLogWriter(cfg.File)
	core := zapcore.NewCore(encoder, writer, level)
	logger := zap.New(core)

	zap.ReplaceGlobals(logger)
	log.ReplaceGlobals(logger, &log.ZapProperties{
		Core:   core,
		Syncer: writer,
		Level:  level,
	})
	return logger, nil
}

func getLogWriter(file string) zapcore.WriteSyncer {
	if file == "" {
		return zapcore.Lock(os.Stderr)
	}
	lumberJackLogger := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    300,
		MaxBackups: 3,
	}
	return zapcore.AddSync(lumberJackLogger)
}
