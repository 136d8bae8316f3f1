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

import "metricsd/pkg/metric"

// FlushBuffer is the output of one shard's flush: a timestamped, fully
// summarized snapshot handed by value to every configured sink.
type FlushBuffer struct {
	Timestamp uint64
	Timers    map[string]map[string]float64
	Counters  map[string]*ValueCount
	Gauges    map[string]float64
}

// MergeBuffer is the full set of S independent shards. Receivers push into
// it via Push with a shard position computed from the ring; one Flusher per shard drains
// and summarizes independently.
type MergeBuffer struct {
	shards []*Shard
}

// NewMergeBuffer allocates n independent shards.
func NewMergeBuffer(n int) *MergeBuffer {
	shards := make([]*Shard, n)
	for i := range shards {
		shards[i] = NewShard()
	}
	return &MergeBuffer{shards: shards}
}

// Shard returns the i'th shard for direct push/drain access.
func (m *MergeBuffer) Shard(i int) *Shard { return m.shards[i] }

// Len returns the shard count S.
func (m *MergeBuffer) Len() int { return len(m.shards) }

// Push routes a Line into its shard using a caller-supplied position (the
// result of ring.Position(l.Metric)).
func (m *MergeBuffer) Push(position int, l metric.Line) {
	m.shards[position].Push(l)
}
