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
	"context"
	"sync"
	"testing"

	"metricsd/internal/aggregator/core"
)

type recordingPublisher struct {
	mu       sync.Mutex
	channel  string
	messages [][]byte
}

func (p *recordingPublisher) Publish(ctx context.Context, channel string, message interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channel = channel
	p.messages = append(p.messages, message.([]byte))
	return nil
}

func TestRedisSingleNodeSkipsRing(t *testing.T) {
	r := NewRedis("metrics", []string{"node-a:6379"})
	if r.ring != nil {
		t.Fatal("expected single-node sink to skip rendezvous hashing")
	}
	if r.Address() != "node-a:6379" {
		t.Fatalf("unexpected address: %s", r.Address())
	}
}

func TestRedisPickIsStableAcrossCalls(t *testing.T) {
	r := NewRedis("metrics.foo", []string{"a:1", "b:1", "c:1"})
	first := r.Address()
	for i := 0; i < 10; i++ {
		if got := r.Address(); got != first {
			t.Fatalf("rendezvous pick changed across calls: %s vs %s", first, got)
		}
	}
}

func TestRedisEncodeMatchesGraphite(t *testing.T) {
	fb := core.FlushBuffer{
		Timestamp: 99,
		Counters:  map[string]*core.ValueCount{"foo": {Sum: 2, Occurrences: 2}},
	}
	r := NewRedis("metrics", []string{"node-a:6379"})
	g := NewGraphite("unused:0")
	if string(r.Encode(fb)) != string(g.Encode(fb)) {
		t.Fatal("redis sink encoding diverged from graphite encoding")
	}
}

func TestRedisDeliverPublishesToPickedNode(t *testing.T) {
	rec := &recordingPublisher{}
	r := NewRedis("metrics", []string{"node-a:6379"})
	r.nodes["node-a:6379"] = rec

	if err := r.Deliver(context.Background(), []byte("stats.foo 1 1\n")); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.channel != "metrics" {
		t.Fatalf("unexpected channel: %s", rec.channel)
	}
	if len(rec.messages) != 1 || string(rec.messages[0]) != "stats.foo 1 1\n" {
		t.Fatalf("unexpected messages: %v", rec.messages)
	}
}

func TestRedisDeliverSkipsEmptyPayload(t *testing.T) {
	rec := &recordingPublisher{}
	r := NewRedis("metrics", []string{"node-a:6379"})
	r.nodes["node-a:6379"] = rec

	if err := r.Deliver(context.Background(), nil); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.messages) != 0 {
		t.Fatal("expected empty payload to short-circuit before publishing")
	}
}
