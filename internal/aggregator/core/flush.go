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

package core

import (
	"time"

	"metricsd/internal/telemetry"
)

// Publisher receives one shard's flushed, summarized buffer. It is called
// synchronously from the flusher goroutine; implementations fan out to
// sinks concurrently themselves and must not block indefinitely.
type Publisher func(FlushBuffer)

// Flusher runs the per-shard state machine:
//
//	WaitingForTick -> Draining -> Computing -> Publishing -> WaitingForTick
//
// Tick policy is strict fixed-rate with catch-up elided: drift is bounded by
// one interval and no tick ever fires twice for the same wall-clock epoch.
type Flusher struct {
	index      int
	shard      *Shard
	interval   time.Duration
	thresholds []int
	publish    Publisher
	now        func() time.Time

	stop chan struct{}
}

// NewFlusher builds a Flusher for one shard. publish is invoked once per
// interval with the computed FlushBuffer. index identifies the shard for
// telemetry labeling only; it has no effect on aggregation.
func NewFlusher(index int, shard *Shard, interval time.Duration, thresholds []int, publish Publisher) *Flusher {
	return &Flusher{
		index:      index,
		shard:      shard,
		interval:   interval,
		thresholds: thresholds,
		publish:    publish,
		now:        time.Now,
		stop:       make(chan struct{}),
	}
}

// nextWait computes how long to wait before the next tick given the time
// elapsed since lastTick, per §4.5's strict fixed-rate, catch-up-elided
// policy: a tick fires exactly once dur >= interval, never twice for the
// same epoch, and drift never exceeds one interval.
func nextWait(dur, interval time.Duration) time.Duration {
	if dur >= interval {
		return 0
	}
	return interval - dur
}

// Run blocks, executing the tick loop until Stop is called. On Stop, it
// performs exactly one final drain-and-publish before returning, so no
// in-flight interval's data is silently lost on shutdown.
func (f *Flusher) Run() {
	lastTick := f.now()
	for {
		wait := nextWait(f.now().Sub(lastTick), f.interval)
		if wait > 0 {
			select {
			case <-f.stop:
				f.tick()
				return
			case <-time.After(wait):
			}
			continue
		}

		select {
		case <-f.stop:
			f.tick()
			return
		default:
		}

		lastTick = f.now()
		f.tick()
	}
}

// Stop requests the run loop to perform one final flush and return. It does
// not block until Run has returned.
func (f *Flusher) Stop() {
	close(f.stop)
}

func (f *Flusher) tick() {
	timers, counters, gauges := f.shard.DrainAndSnapshot()

	telemetry.SetShardOccupancy(f.index, "timer", len(timers))
	telemetry.SetShardOccupancy(f.index, "counter", len(counters))
	telemetry.SetShardOccupancy(f.index, "gauge", len(gauges))

	timerStats := make(map[string]map[string]float64, len(timers))
	for name, ts := range timers {
		timerStats[name] = SummarizeTimer(ts, f.thresholds, f.interval.Seconds())
	}

	fb := FlushBuffer{
		Timestamp: uint64(f.now().Unix()),
		Timers:    timerStats,
		Counters:  counters,
		Gauges:    gauges,
	}
	f.publish(fb)
}
