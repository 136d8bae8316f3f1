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

// Package receive runs a pool of UDP receiver goroutines, each bound to the
// same address via SO_REUSEPORT so the kernel load-balances datagrams across
// them, and routes every parsed metric.Line into a MergeBuffer shard.
package receive

import (
	"context"
	"errors"
	"log"
	"net"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"

	"metricsd/internal/aggregator/core"
	"metricsd/internal/ring"
	"metricsd/internal/telemetry"
	"metricsd/pkg/metric"
)

// maxDatagramSize bounds a single UDP read. StatsD lines are short; 64KiB
// comfortably covers even a large batched submission.
const maxDatagramSize = 65535

// Router maps a metric name to the shard that owns it and delivers a line.
type Router interface {
	Route(l metric.Line) (shard int, ok bool)
	Push(shard int, l metric.Line)
}

// ringRouter is the production Router backed by a HashRing and MergeBuffer.
type ringRouter struct {
	ring   *ring.HashRing
	buffer *core.MergeBuffer
}

// NewRouter builds the production Router used by Pool.
func NewRouter(r *ring.HashRing, buf *core.MergeBuffer) Router {
	return &ringRouter{ring: r, buffer: buf}
}

func (rr *ringRouter) Route(l metric.Line) (int, bool) {
	return rr.ring.Position(l.Metric), true
}

func (rr *ringRouter) Push(shard int, l metric.Line) {
	rr.buffer.Push(shard, l)
}

// Pool owns W receiver goroutines all bound to the same UDP address.
type Pool struct {
	addr    string
	workers int
	router  Router

	mu    sync.Mutex
	conns []net.PacketConn
}

// NewPool builds a receiver pool. Call Start to bind and begin serving.
func NewPool(addr string, workers int, router Router) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{addr: addr, workers: workers, router: router}
}

// Start binds `workers` identical SO_REUSEPORT UDP sockets to addr and
// spawns one receive loop per socket. It returns once every socket is
// bound; receive loops run until Stop closes their sockets (cancelling ctx
// alone does not interrupt a blocked read).
func (p *Pool) Start(ctx context.Context) error {
	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
			})
			if err != nil {
				return err
			}
			return sockErr
		},
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for i := 0; i < p.workers; i++ {
		pc, err := lc.ListenPacket(ctx, "udp", p.addr)
		if err != nil {
			for _, c := range p.conns {
				c.Close()
			}
			p.conns = nil
			return err
		}
		p.conns = append(p.conns, pc)
	}

	for _, pc := range p.conns {
		go p.serve(ctx, pc)
	}
	return nil
}

// Stop closes every bound socket, unblocking each receive loop's read call.
func (p *Pool) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.conns {
		c.Close()
	}
	p.conns = nil
}

func (p *Pool) serve(ctx context.Context, pc net.PacketConn) {
	buf := make([]byte, maxDatagramSize)
	for {
		n, _, err := pc.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			select {
			case <-ctx.Done():
				return
			default:
			}
			log.Printf("receive: read: %v", err)
			continue
		}
		p.ingest(buf[:n])
	}
}

func (p *Pool) ingest(data []byte) {
	telemetry.ObserveBytes(len(data))
	metric.ParseDatagram(data, func(l metric.Line) {
		telemetry.ObserveLine()
		shard, ok := p.router.Route(l)
		if !ok {
			return
		}
		p.router.Push(shard, l)
	}, telemetry.ObserveDrop)
}
