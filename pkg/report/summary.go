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
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/juju/errors"

	"github.com/pingcap/txnbench/pkg/config"
)

// Write prints the summary in the given output format.
func (s *Summary) Write(w io.Writer, format string) error {
	switch format {
	case config.OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Trace(enc.Encode(s))
	case config.OutputText, "":
		return errors.Trace(s.writeText(w))
	default:
		return errors.Errorf("unknown output format %q", format)
	}
}

func (s *Summary) writeText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Run:\t%s\n", s.RunID)
	fmt.Fprintf(tw, "Workload:\t%s, %s, concurrency %d\n", s.Workload, s.Mode, s.Concurrency)
	fmt.Fprintf(tw, "Elapsed:\t%.2fs\n", s.ElapsedSec)
	fmt.Fprintf(tw, "Iterations:\t%d (success %d, failure %d)\n", s.Iterations, s.Success, s.Failure)
	for _, f := range s.Failures {
		fmt.Fprintf(tw, "  status %d:\t%d\n", f.Status, f.Count)
	}
	fmt.Fprintf(tw, "Items:\t%d\n", s.Items)
	fmt.Fprintf(tw, "Bytes:\t%d\n", s.Bytes)
	fmt.Fprintf(tw, "Throughput:\t%.2f iter/s, %.2f items/s, %.2f bytes/s\n", s.IterPerSec, s.ItemsPerSec, s.BytesPerSec)
	fmt.Fprintf(tw, "Latency (ms):\tmin %.3f, mean %.3f, p50 %.3f, p90 %.3f, p95 %.3f, p99 %.3f, max %.3f\n",
		s.Latency.Min, s.Latency.Mean, s.Latency.P50, s.Latency.P90, s.Latency.P95, s.Latency.P99, s.Latency.Max)
	return tw.Flush()
}
