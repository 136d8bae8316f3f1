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

// Package ring maps a metric name to a shard index. It is a pure function
// of (ring configuration, metric name); shards never consult it after init.
package ring

import (
	"hash/fnv"
	"log"
	"runtime"
)

// HashRing is immutable after New: read-only from every receiver goroutine.
type HashRing struct {
	shards int
	dup    uint64
}

// New builds a HashRing with the effective shard count S = min(cpu_count,
// shards) and dup clamped to [1, 256]. Logs a warning if fewer shards than
// requested are available.
func New(shards, dup int) *HashRing {
	if shards < 1 {
		shards = 1
	}
	cpus := runtime.NumCPU()
	s := shards
	if cpus < s {
		s = cpus
	}
	if s < shards {
		log.Printf("ring: requested %d shards but only %d available (cpu_count=%d); running with %d", shards, s, cpus, s)
	}
	if dup < 1 {
		dup = 1
	}
	if dup > 256 {
		dup = 256
	}
	return &HashRing{shards: s, dup: uint64(dup)}
}

// Shards returns the effective shard count S.
func (r *HashRing) Shards() int { return r.shards }

// Position returns the shard index for metric: (fnv1a_64(metric) mod dup)
// mod S. Both moduli are applied in that order.
func (r *HashRing) Position(metric string) int {
	h := fnv.New64a()
	_, _ = h.Write([]byte(metric))
	sum := h.Sum64()
	return int((sum % r.dup) % uint64(r.shards))
}
