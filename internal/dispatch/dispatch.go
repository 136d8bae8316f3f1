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

// Package dispatch fans a flushed shard's FlushBuffer out to every
// configured Sink. One sink's failure never blocks or fails another; there
// is no cross-interval retry, by design, to bound memory.
package dispatch

import (
	"errors"
	"log"
	"net"
	"sync"
	"time"

	"metricsd/internal/aggregator/core"
	"metricsd/internal/telemetry"
)

// Sink is a named downstream destination: a cheap runtime-enable predicate,
// an encoder that turns one FlushBuffer into an opaque wire payload, and a
// TCP address to deliver it to.
type Sink interface {
	// Name identifies the sink in logs.
	Name() string
	// Validate is a cheap predicate allowing runtime disabling.
	Validate() bool
	// Encode produces one payload. An empty result means "nothing to send
	// this interval" and short-circuits the dispatch (no connection opened).
	Encode(core.FlushBuffer) []byte
	// Address is the sink's TCP endpoint ("host:port").
	Address() string
}

// Dispatcher fans one FlushBuffer out to every sink concurrently.
type Dispatcher struct {
	sinks []Sink
	// dial is overridable in tests; defaults to net.DialTimeout("tcp", addr, 5s).
	dial func(addr string) (net.Conn, error)
}

// New builds a Dispatcher over the given sinks.
func New(sinks []Sink) *Dispatcher {
	return &Dispatcher{
		sinks: sinks,
		dial: func(addr string) (net.Conn, error) {
			return net.DialTimeout("tcp", addr, 5*time.Second)
		},
	}
}

// Dispatch runs the per-sink dispatch rule from §4.6 for every sink
// concurrently and waits for all of them to finish. It never returns an
// error: failures are logged per sink and otherwise swallowed.
func (d *Dispatcher) Dispatch(fb core.FlushBuffer) {
	var wg sync.WaitGroup
	for _, s := range d.sinks {
		s := s
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.dispatchOne(s, fb)
		}()
	}
	wg.Wait()
}

func (d *Dispatcher) dispatchOne(s Sink, fb core.FlushBuffer) {
	if !s.Validate() {
		return
	}
	payload := s.Encode(fb)
	if len(payload) == 0 {
		return
	}
	conn, err := d.dial(s.Address())
	if err != nil {
		log.Printf("dispatch: sink %s: connect %s: %v", s.Name(), s.Address(), err)
		telemetry.ObserveDispatchFailure(s.Name())
		return
	}
	defer conn.Close()

	if err := writeAll(conn, payload); err != nil {
		log.Printf("dispatch: sink %s: write %s: %v", s.Name(), s.Address(), err)
		telemetry.ObserveDispatchFailure(s.Name())
	}
}

// writeAll writes the full payload, retrying indefinitely on transient
// "would block" conditions and giving up on any other error.
func writeAll(conn net.Conn, payload []byte) error {
	for len(payload) > 0 {
		n, err := conn.Write(payload)
		if n > 0 {
			payload = payload[n:]
		}
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return err
		}
	}
	return nil
}
