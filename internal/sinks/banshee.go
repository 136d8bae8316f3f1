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

package sinks

import (
	"fmt"

	"metricsd/internal/aggregator/core"
)

// DefaultBansheeAllow is the default timer sub-stat allow-list when a
// Banshee sink is configured without an explicit list.
var DefaultBansheeAllow = []string{"mean_90", "count_ps"}

// Banshee renders a FlushBuffer as Banshee-style plaintext lines:
// "<prefix>.<metric> <value> <ts>\n" under "counter"/"timer"/"gauge", with
// timers restricted to an allow-listed subset of sub-stats.
type Banshee struct {
	addr  string
	allow []string
}

// NewBanshee builds a Banshee sink delivering to addr over TCP. An empty or
// nil allow defaults to DefaultBansheeAllow.
func NewBanshee(addr string, allow []string) *Banshee {
	if len(allow) == 0 {
		allow = DefaultBansheeAllow
	}
	return &Banshee{addr: addr, allow: allow}
}

func (b *Banshee) Name() string    { return "banshee" }
func (b *Banshee) Validate() bool  { return true }
func (b *Banshee) Address() string { return b.addr }

func (b *Banshee) Encode(fb core.FlushBuffer) []byte {
	buf := make([]byte, 0, 256)
	ts := fb.Timestamp

	for _, key := range sortedKeys(fb.Counters) {
		vc := fb.Counters[key]
		buf = fmt.Appendf(buf, "counter.%s %v %d\n", key, vc.Sum, ts)
	}

	for _, key := range sortedFloatKeys(fb.Gauges) {
		buf = fmt.Appendf(buf, "gauge.%s %v %d\n", key, fb.Gauges[key], ts)
	}

	for _, key := range sortedTimerKeys(fb.Timers) {
		sub := fb.Timers[key]
		for _, subKey := range b.allow {
			v, ok := sub[subKey]
			if !ok {
				// Not every sub-stat exists for every timer (e.g. a
				// configured threshold that this metric's sample window
				// skipped); silently omit rather than emit a zero.
				continue
			}
			buf = fmt.Appendf(buf, "timer.%s.%s %v %d\n", key, subKey, v, ts)
		}
	}

	return buf
}
