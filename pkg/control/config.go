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
	"time"

	"github.com/google/uuid"
)

// Config is the configuration for the controller.
type Config struct {
	// RunID identifies the run in logs and reports. A random one is used if empty.
	RunID string
	// Concurrency is the number of workers.
	Concurrency int
	// Iterations bounds the iterations of all workers together, 0 means no bound.
	Iterations int64
	// Duration bounds the timed phase, 0 means no bound.
	Duration time.Duration
	// Rate limits the iterations per second of all workers together, 0 means no limit.
	Rate float64
	// TearDownTimeout bounds the teardown of the schema and the sessions.
	TearDownTimeout time.Duration
}

func (c *Config) adjust() {
	if c.RunID == "" {
		c.RunID = uuid.New().String()
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 1
	}
	if c.TearDownTimeout == 0 {
		c.TearDownTimeout = time.Minute
	}
}
