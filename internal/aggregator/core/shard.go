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

// Package core implements the sharded merge buffer: the concurrent
// accumulation layer that sits between UDP receivers and the periodic
// flush/summary computation.
package core

import (
	"sync"

	"metricsd/pkg/metric"
)

// ValueCount is one counter metric's accumulated (sum, occurrences) for the
// current interval. occurrences is always >= 1 while the entry exists.
type ValueCount struct {
	Sum         float64
	Occurrences float64
}

// TimeSet is one timer metric's accumulated samples and effective
// (inverse sample-rate weighted) count for the current interval. len(Samples)
// is always >= 1 while the entry exists.
type TimeSet struct {
	Samples   []float64
	Effective float64
}

// Shard owns three independently-locked maps: timers, counters, gauges.
// Receivers call Push; the owning flusher calls DrainAndSnapshot once per
// interval. No other code touches a Shard's maps.
type Shard struct {
	timersMu sync.Mutex
	timers   map[string]*TimeSet

	countersMu sync.Mutex
	counters   map[string]*ValueCount

	gaugesMu sync.Mutex
	gauges   map[string]float64
}

// NewShard returns an empty shard.
func NewShard() *Shard {
	return &Shard{
		timers:   make(map[string]*TimeSet),
		counters: make(map[string]*ValueCount),
		gauges:   make(map[string]float64),
	}
}

// Push applies one Line to the shard, acquiring only the lock for the kind
// it writes.
func (s *Shard) Push(l metric.Line) {
	if v, ok := l.Kind.IsCount(); ok {
		s.countersMu.Lock()
		c := s.counters[l.Metric]
		if c == nil {
			c = &ValueCount{}
			s.counters[l.Metric] = c
		}
		c.Sum += v
		c.Occurrences++
		s.countersMu.Unlock()
		return
	}
	if v, eff, ok := l.Kind.IsTimer(); ok {
		s.timersMu.Lock()
		t := s.timers[l.Metric]
		if t == nil {
			t = &TimeSet{}
			s.timers[l.Metric] = t
		}
		t.Samples = append(t.Samples, v)
		t.Effective += eff
		s.timersMu.Unlock()
		return
	}
	if v, ok := l.Kind.IsGauge(); ok {
		s.gaugesMu.Lock()
		// Absolute replacement: last write within the interval wins.
		s.gauges[l.Metric] = v
		s.gaugesMu.Unlock()
		return
	}
}

// DrainAndSnapshot atomically swaps all three maps with fresh empty ones and
// returns the previous contents. Locks are acquired in a fixed order
// (timers, counters, gauges) and each critical section is O(1): the cost of
// allocating one empty map. No summarization happens while a lock is held.
func (s *Shard) DrainAndSnapshot() (map[string]*TimeSet, map[string]*ValueCount, map[string]float64) {
	s.timersMu.Lock()
	timers := s.timers
	s.timers = make(map[string]*TimeSet)
	s.timersMu.Unlock()

	s.countersMu.Lock()
	counters := s.counters
	s.counters = make(map[string]*ValueCount)
	s.countersMu.Unlock()

	s.gaugesMu.Lock()
	gauges := s.gauges
	s.gauges = make(map[string]float64)
	s.gaugesMu.Unlock()

	return timers, counters, gauges
}
