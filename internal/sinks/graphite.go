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

// Package sinks provides the reference Sink formatters: Graphite-style and
// Banshee-style line protocols, plus an optional Redis Pub/Sub sink.
package sinks

import (
	"fmt"
	"sort"

	"metricsd/internal/aggregator/core"
)

// Graphite renders a FlushBuffer as Graphite plaintext lines:
// "<prefix>.<metric> <value> <ts>\n" under four prefix families.
type Graphite struct {
	addr string
}

// NewGraphite builds a Graphite sink delivering to addr over TCP.
func NewGraphite(addr string) *Graphite {
	return &Graphite{addr: addr}
}

func (g *Graphite) Name() string    { return "graphite" }
func (g *Graphite) Validate() bool  { return true }
func (g *Graphite) Address() string { return g.addr }

// Encode emits all counters (under both "stats" and "stats_counts"), all
// gauges (under "stats.gauges"), and every computed timer sub-stat (under
// "stats.timers").
func (g *Graphite) Encode(fb core.FlushBuffer) []byte {
	buf := make([]byte, 0, 256)
	ts := fb.Timestamp

	for _, key := range sortedKeys(fb.Counters) {
		vc := fb.Counters[key]
		buf = fmt.Appendf(buf, "stats.%s %v %d\n", key, vc.Sum, ts)
		buf = fmt.Appendf(buf, "stats_counts.%s %v %d\n", key, vc.Occurrences, ts)
	}

	for _, key := range sortedFloatKeys(fb.Gauges) {
		buf = fmt.Appendf(buf, "stats.gauges.%s %v %d\n", key, fb.Gauges[key], ts)
	}

	for _, key := range sortedTimerKeys(fb.Timers) {
		sub := fb.Timers[key]
		for _, subKey := range sortedStatKeys(sub) {
			buf = fmt.Appendf(buf, "stats.timers.%s.%s %v %d\n", key, subKey, sub[subKey], ts)
		}
	}

	return buf
}

func sortedKeys(m map[string]*core.ValueCount) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedFloatKeys(m map[string]float64) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedTimerKeys(m map[string]map[string]float64) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedStatKeys(m map[string]float64) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
