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
	"sync"
	"testing"
	"time"

	"metricsd/pkg/metric"
)

func TestNextWait(t *testing.T) {
	interval := 5 * time.Second
	cases := []struct {
		dur  time.Duration
		want time.Duration
	}{
		{0, interval},
		{2 * time.Second, 3 * time.Second},
		{5 * time.Second, 0},
		{7 * time.Second, 0}, // overdue: fire now, drift bounded elsewhere by caller resetting lastTick
	}
	for _, c := range cases {
		if got := nextWait(c.dur, interval); got != c.want {
			t.Fatalf("nextWait(%v, %v) = %v, want %v", c.dur, interval, got, c.want)
		}
	}
}

func TestFlusherFinalFlushOnStop(t *testing.T) {
	shard := NewShard()
	shard.Push(metric.Line{Metric: "foo", Kind: metric.Count(1)})

	var mu sync.Mutex
	var published []FlushBuffer
	f := NewFlusher(0, shard, time.Hour, nil, func(fb FlushBuffer) {
		mu.Lock()
		published = append(published, fb)
		mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		f.Run()
		close(done)
	}()
	// Let Run reach its sleep before requesting shutdown.
	time.Sleep(10 * time.Millisecond)
	f.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return promptly after Stop")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(published) != 1 {
		t.Fatalf("expected exactly 1 final flush, got %d", len(published))
	}
	c := published[0].Counters["foo"]
	if c == nil || c.Sum != 1 {
		t.Fatalf("expected final flush to carry pushed data, got %+v", published[0])
	}
}

func TestFlusherTicksOnInterval(t *testing.T) {
	shard := NewShard()

	var mu sync.Mutex
	ticks := 0
	f := NewFlusher(0, shard, 15*time.Millisecond, nil, func(FlushBuffer) {
		mu.Lock()
		ticks++
		mu.Unlock()
	})

	go f.Run()
	defer f.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := ticks
		mu.Unlock()
		if n >= 2 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("expected at least 2 ticks within the deadline")
}
