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

package metrics

import (
	"io/ioutil"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pingcap/txnbench/pkg/core"
)

func TestRecord(t *testing.T) {
	m := New("insert", "optimistic")
	m.Record(&core.IterReport{Duration: time.Millisecond, Items: 100, Bytes: 5400})
	m.Record(&core.IterReport{Duration: time.Millisecond, Items: 100, Bytes: 5400})
	m.Record(core.Failed(0, time.Millisecond, 9007))

	assert.Equal(t, float64(2), testutil.ToFloat64(m.iterations.WithLabelValues("insert", "optimistic", "0")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.iterations.WithLabelValues("insert", "optimistic", "9007")))
	assert.Equal(t, float64(200), testutil.ToFloat64(m.items))
	assert.Equal(t, float64(10800), testutil.ToFloat64(m.bytes))
}

func TestServe(t *testing.T) {
	m := New("select", "auto-commit")
	m.Record(&core.IterReport{Duration: 2 * time.Millisecond, Items: 10, Bytes: 190})

	l, err := m.Serve("127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	resp, err := http.Get("http://" + l.Addr().String() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := ioutil.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `txnbench_iterations_total{mode="auto-commit",status="0",workload="select"} 1`)
	assert.Contains(t, string(body), "txnbench_iteration_duration_seconds_bucket")
}
