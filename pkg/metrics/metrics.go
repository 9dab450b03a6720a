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
	"net"
	"net/http"
	"strconv"

	"github.com/juju/errors"
	"github.com/pingcap/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/pingcap/txnbench/pkg/core"
)

const namespace = "txnbench"

// Metrics exports iteration reports as prometheus metrics.
type Metrics struct {
	registry   *prometheus.Registry
	iterations *prometheus.CounterVec
	items      prometheus.Counter
	bytes      prometheus.Counter
	latency    prometheus.Observer

	workload string
	mode     string
}

// New creates the metrics of one run on a dedicated registry.
func New(workload, mode string) *Metrics {
	labels := prometheus.Labels{"workload": workload, "mode": mode}
	iterations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "iterations_total",
		Help:      "Number of finished iterations by status, 0 is success.",
	}, []string{"workload", "mode", "status"})
	items := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "items_total",
		Help:      "Rows inserted or fetched by successful iterations.",
	}, []string{"workload", "mode"})
	bytes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bytes_total",
		Help:      "Estimated payload bytes of successful iterations.",
	}, []string{"workload", "mode"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "iteration_duration_seconds",
		Help:      "Latency of iterations.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 18),
	}, []string{"workload", "mode"})

	registry := prometheus.NewRegistry()
	registry.MustRegister(iterations, items, bytes, latency)
	return &Metrics{
		registry:   registry,
		iterations: iterations,
		items:      items.With(labels),
		bytes:      bytes.With(labels),
		latency:    latency.With(labels),
		workload:   workload,
		mode:       mode,
	}
}

// Record implements report.Sink.
func (m *Metrics) Record(r *core.IterReport) {
	m.iterations.WithLabelValues(m.workload, m.mode, strconv.Itoa(int(r.Status))).Inc()
	m.latency.Observe(r.Duration.Seconds())
	if r.Status.Success() {
		m.items.Add(float64(r.Items))
		m.bytes.Add(float64(r.Bytes))
	}
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Serve exposes the metrics on http://addr/metrics. Closing the returned
// listener stops the server.
func (m *Metrics) Serve(addr string) (net.Listener, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Annotatef(err, "listen on %s", addr)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	go func() {
		if err := http.Serve(l, mux); err != nil {
			log.Debug("metrics server stopped", zap.Error(err))
		}
	}()
	log.Info("serving metrics", zap.String("addr", l.Addr().String()))
	return l, nil
}
