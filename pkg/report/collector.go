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

package report

import (
	"sort"
	"sync"
	"time"

	"github.com/codahale/hdrhistogram"

	"github.com/pingcap/txnbench/pkg/core"
)

const (
	minLatency = 1
	// maxLatency is one hour in microseconds, slower iterations are clamped.
	maxLatency = int64(time.Hour / time.Microsecond)
	sigFigs    = 3
)

// Sink consumes iteration reports.
type Sink interface {
	Record(r *core.IterReport)
}

// Drain feeds every report of ch to sinks until ch is closed.
func Drain(ch <-chan *core.IterReport, sinks ...Sink) {
	for r := range ch {
		for _, s := range sinks {
			s.Record(r)
		}
	}
}

// Collector aggregates iteration reports.
type Collector struct {
	mu       sync.Mutex
	hist     *hdrhistogram.Histogram
	success  uint64
	failures map[core.Status]uint64
	items    uint64
	bytes    uint64
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{
		hist:     hdrhistogram.New(minLatency, maxLatency, sigFigs),
		failures: make(map[core.Status]uint64),
	}
}

// Record implements Sink.
func (c *Collector) Record(r *core.IterReport) {
	us := r.Duration.Microseconds()
	if us < minLatency {
		us = minLatency
	}
	if us > maxLatency {
		us = maxLatency
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.hist.RecordValue(us)
	if !r.Status.Success() {
		c.failures[r.Status]++
		return
	}
	c.success++
	c.items += r.Items
	c.bytes += r.Bytes
}

// Meta describes the run a summary belongs to.
type Meta struct {
	RunID       string `json:"run_id"`
	Workload    string `json:"workload"`
	Mode        string `json:"mode"`
	Concurrency int    `json:"concurrency"`
}

// Latency quantiles in milliseconds.
type Latency struct {
	Min  float64 `json:"min"`
	Mean float64 `json:"mean"`
	P50  float64 `json:"p50"`
	P90  float64 `json:"p90"`
	P95  float64 `json:"p95"`
	P99  float64 `json:"p99"`
	Max  float64 `json:"max"`
}

// StatusCount is the number of iterations which failed with Status.
type StatusCount struct {
	Status core.Status `json:"status"`
	Count  uint64      `json:"count"`
}

// Summary is the final report of a run. Latencies cover failed iterations
// too, items and bytes only successful ones.
type Summary struct {
	Meta
	ElapsedSec  float64       `json:"elapsed_sec"`
	Iterations  uint64        `json:"iterations"`
	Success     uint64        `json:"success"`
	Failure     uint64        `json:"failure"`
	Failures    []StatusCount `json:"failures,omitempty"`
	Items       uint64        `json:"items"`
	Bytes       uint64        `json:"bytes"`
	IterPerSec  float64       `json:"iter_per_sec"`
	ItemsPerSec float64       `json:"items_per_sec"`
	BytesPerSec float64       `json:"bytes_per_sec"`
	Latency     Latency       `json:"latency_ms"`
}

// Summary computes the summary of everything recorded so far.
func (c *Collector) Summary(meta Meta, elapsed time.Duration) *Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := &Summary{
		Meta:       meta,
		ElapsedSec: elapsed.Seconds(),
		Success:    c.success,
		Items:      c.items,
		Bytes:      c.bytes,
	}
	for status, n := range c.failures {
		s.Failure += n
		s.Failures = append(s.Failures, StatusCount{Status: status, Count: n})
	}
	sort.Slice(s.Failures, func(i, j int) bool {
		return s.Failures[i].Status < s.Failures[j].Status
	})
	s.Iterations = s.Success + s.Failure
	if sec := elapsed.Seconds(); sec > 0 {
		s.IterPerSec = float64(s.Iterations) / sec
		s.ItemsPerSec = float64(s.Items) / sec
		s.BytesPerSec = float64(s.Bytes) / sec
	}
	if c.hist.TotalCount() > 0 {
		s.Latency = Latency{
			Min:  ms(c.hist.Min()),
			Mean: c.hist.Mean() / 1000,
			P50:  ms(c.hist.ValueAtQuantile(50)),
			P90:  ms(c.hist.ValueAtQuantile(90)),
			P95:  ms(c.hist.ValueAtQuantile(95)),
			P99:  ms(c.hist.ValueAtQuantile(99)),
			Max:  ms(c.hist.Max()),
		}
	}
	return s
}

func ms(us int64) float64 {
	return float64(us) / 1000
}
