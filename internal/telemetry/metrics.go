// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package telemetry provides opt-in process-level self-instrumentation:
// ingest rate, per-shard occupancy, flush duration, and dispatch failures.
// It is distinct from the StatsD wire protocol the daemon aggregates — this
// is how the daemon reports on itself, not a metric it received.
package telemetry

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	linesReceivedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "metricsd_lines_received_total",
		Help: "Total well-formed metric lines parsed out of received datagrams",
	})
	linesDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "metricsd_lines_dropped_total",
		Help: "Total lines dropped for malformed syntax, unknown type, or unparseable rate",
	})
	bytesReceivedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "metricsd_bytes_received_total",
		Help: "Total bytes received across all datagrams",
	})
	shardOccupancy = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "metricsd_shard_keys",
		Help: "Distinct keys currently buffered per shard and kind, as of the last flush",
	}, []string{"shard", "kind"})
	flushDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "metricsd_flush_duration_seconds",
		Help:    "Wall time spent publishing one shard's flushed buffer to the sinks",
		Buckets: prometheus.DefBuckets,
	})
	dispatchFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "metricsd_dispatch_failures_total",
		Help: "Total sink dispatch failures (dial or write errors), labeled by sink name",
	}, []string{"sink"})
)

func init() {
	prometheus.MustRegister(
		linesReceivedTotal,
		linesDroppedTotal,
		bytesReceivedTotal,
		shardOccupancy,
		flushDuration,
		dispatchFailuresTotal,
	)
}

// ObserveLine records one successfully parsed metric line.
func ObserveLine() { linesReceivedTotal.Inc() }

// ObserveDrop records one line dropped during parsing.
func ObserveDrop() { linesDroppedTotal.Inc() }

// ObserveBytes records the size of one ingested datagram.
func ObserveBytes(n int) {
	if n > 0 {
		bytesReceivedTotal.Add(float64(n))
	}
}

// SetShardOccupancy records how many distinct keys a shard held for a given
// kind ("timer", "counter", "gauge") at the moment it was drained.
func SetShardOccupancy(shard int, kind string, n int) {
	shardOccupancy.WithLabelValues(strconv.Itoa(shard), kind).Set(float64(n))
}

// ObserveFlushDuration records how long publishing one shard's flushed
// buffer to the sinks took.
func ObserveFlushDuration(d time.Duration) {
	flushDuration.Observe(d.Seconds())
}

// ObserveDispatchFailure records one sink delivery failure.
func ObserveDispatchFailure(sink string) {
	dispatchFailuresTotal.WithLabelValues(sink).Inc()
}

// Serve starts a /metrics HTTP endpoint on addr in the background. It
// returns the *http.Server so callers can Shutdown it during a graceful
// stop; Serve itself never blocks.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		_ = srv.ListenAndServe()
	}()
	return srv
}

// Shutdown gracefully stops a server returned by Serve, bounded by ctx.
func Shutdown(ctx context.Context, srv *http.Server) error {
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
