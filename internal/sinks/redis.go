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
	"fmt"
	"hash/fnv"
	"time"

	"github.com/dgryski/go-rendezvous"
	redis "github.com/redis/go-redis/v9"

	"metricsd/internal/aggregator/core"
)

// rendezvousHash is the Hasher rendezvous.New requires. FNV-1a keeps the
// node-selection hash consistent with the shard-assignment hash used
// elsewhere rather than pulling in a second hash family.
func rendezvousHash(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

// RedisPublisher abstracts the minimal surface needed from a Redis client: a
// single PUBLISH call. Implementations may wrap
// github.com/redis/go-redis/v9 or any equivalent.
type RedisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) error
}

// LoggingRedisPublisher is a dependency-free default that just logs what it
// would have published. Not for production use.
type LoggingRedisPublisher struct{}

func (LoggingRedisPublisher) Publish(ctx context.Context, channel string, message interface{}) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	fmt.Printf("[redis-sink] PUBLISH channel=%s bytes=%d\n", channel, len(fmt.Sprint(message)))
	return nil
}

// GoRedisPublisher wraps a github.com/redis/go-redis/v9 client.
type GoRedisPublisher struct{ c *redis.Client }

// NewGoRedisPublisher dials a single Redis node at addr.
func NewGoRedisPublisher(addr string) *GoRedisPublisher {
	return &GoRedisPublisher{c: redis.NewClient(&redis.Options{Addr: addr})}
}

func (g *GoRedisPublisher) Publish(ctx context.Context, channel string, message interface{}) error {
	return g.c.Publish(ctx, channel, message).Err()
}

// Redis renders a FlushBuffer with the same plaintext encoding as Graphite
// but delivers it over a Redis PUBLISH instead of a raw TCP write. When more
// than one node address is configured, each call picks one node via
// rendezvous hashing on the channel name so repeated flushes of the same
// logical stream land consistently on the same node while still spreading
// distinct streams across the cluster.
type Redis struct {
	channel  string
	ring     *rendezvous.Rendezvous
	nodes    map[string]RedisPublisher
	timeout  time.Duration
	graphite *Graphite
}

// NewRedis builds a Redis sink publishing to channel across the given
// node addresses. Each address gets its own GoRedisPublisher. A single
// address skips rendezvous hashing entirely.
func NewRedis(channel string, addrs []string) *Redis {
	nodes := make(map[string]RedisPublisher, len(addrs))
	for _, a := range addrs {
		nodes[a] = NewGoRedisPublisher(a)
	}
	var ring *rendezvous.Rendezvous
	if len(addrs) > 1 {
		ring = rendezvous.New(addrs, rendezvousHash)
	}
	return &Redis{
		channel:  channel,
		ring:     ring,
		nodes:    nodes,
		timeout:  5 * time.Second,
		graphite: &Graphite{},
	}
}

func (r *Redis) Name() string   { return "redis" }
func (r *Redis) Validate() bool { return len(r.nodes) > 0 }

// Address reports the node Deliver publishes to, which is the
// Dispatcher's connection target in spirit; the actual publish bypasses
// Dispatcher's TCP dial path via Deliver.
func (r *Redis) Address() string {
	return rendezvousPick(r.channel, r.nodes, r.ring)
}

// Encode reuses the Graphite plaintext encoding so downstream consumers of
// either sink parse identically.
func (r *Redis) Encode(fb core.FlushBuffer) []byte {
	return r.graphite.Encode(fb)
}

// Deliver publishes payload to the node selected for this channel. Unlike
// the TCP sinks, Redis delivery is a client-side PUBLISH call rather than a
// raw socket write, so it is invoked directly by callers that know about
// Redis sinks rather than through Dispatcher's generic TCP path.
func (r *Redis) Deliver(ctx context.Context, payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	addr := r.Address()
	pub, ok := r.nodes[addr]
	if !ok {
		return fmt.Errorf("redis sink: no publisher for node %q", addr)
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return pub.Publish(ctx, r.channel, payload)
}

// rendezvousPick selects one node key for subject out of nodes. With zero or
// one candidate it returns deterministically without consulting ring.
func rendezvousPick(subject string, nodes map[string]RedisPublisher, ring *rendezvous.Rendezvous) string {
	if len(nodes) == 0 {
		return ""
	}
	if ring == nil {
		for addr := range nodes {
			return addr
		}
	}
	return ring.Lookup(subject)
}
