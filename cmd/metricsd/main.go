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

// Package main runs the metrics aggregation daemon: it binds a pool of UDP
// receivers, shards incoming metrics across a concurrent merge buffer,
// flushes each shard on a fixed interval, and dispatches the results to the
// configured sinks.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"metricsd/internal/aggregator/core"
	"metricsd/internal/config"
	"metricsd/internal/dispatch"
	"metricsd/internal/receive"
	"metricsd/internal/ring"
	"metricsd/internal/sinks"
	"metricsd/internal/telemetry"
)

const defaultConfigPath = "/srv/statsd-rs/etc/statsd.json"

func main() {
	configPath := flag.String("config", "", "path to the JSON config file (positional argument takes precedence)")
	metricsAddrOverride := flag.String("metrics-addr", "", "override the config file's metrics_addr")
	flag.Parse()

	path := defaultConfigPath
	if flag.NArg() > 0 {
		path = flag.Arg(0)
	} else if *configPath != "" {
		path = *configPath
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("metricsd: config load failure: %v", err)
	}
	if *metricsAddrOverride != "" {
		cfg.MetricsAddr = *metricsAddrOverride
	}

	hashRing := ring.New(cfg.Ring, cfg.Dup)
	buffer := core.NewMergeBuffer(hashRing.Shards())

	var sinkList []dispatch.Sink
	if cfg.Graphite.Address != "" {
		sinkList = append(sinkList, sinks.NewGraphite(cfg.Graphite.Address))
	}
	if cfg.Banshee.Address != "" {
		sinkList = append(sinkList, sinks.NewBanshee(cfg.Banshee.Address, cfg.Banshee.Allow))
	}
	var redisSink *sinks.Redis
	if len(cfg.Redis.Addresses) > 0 {
		redisSink = sinks.NewRedis(cfg.Redis.Channel, cfg.Redis.Addresses)
	}
	var archive *sinks.ArchiveSink
	if cfg.ArchivePath != "" {
		archive, err = sinks.NewArchiveSink(cfg.ArchivePath)
		if err != nil {
			log.Fatalf("metricsd: archive sink: %v", err)
		}
	}
	dispatcher := dispatch.New(sinkList)

	flushers := make([]*core.Flusher, hashRing.Shards())
	for i := 0; i < hashRing.Shards(); i++ {
		i := i
		shard := buffer.Shard(i)
		flushers[i] = core.NewFlusher(i, shard, time.Duration(cfg.Interval)*time.Second, cfg.Thresholds, func(fb core.FlushBuffer) {
			start := time.Now()
			dispatcher.Dispatch(fb)
			if redisSink != nil {
				if err := redisSink.Deliver(context.Background(), redisSink.Encode(fb)); err != nil {
					log.Printf("metricsd: redis sink: shard %d: %v", i, err)
					telemetry.ObserveDispatchFailure("redis")
				}
			}
			if archive != nil {
				archive.Append(fb)
			}
			telemetry.ObserveFlushDuration(time.Since(start))
		})
	}

	router := receive.NewRouter(hashRing, buffer)
	pool := receive.NewPool(cfg.Bind, cfg.Worker, router)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := pool.Start(ctx); err != nil {
		log.Fatalf("metricsd: bind failure: %v", err)
	}

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = telemetry.Serve(cfg.MetricsAddr)
	}

	var flushersDone sync.WaitGroup
	for _, f := range flushers {
		f := f
		flushersDone.Add(1)
		go func() {
			defer flushersDone.Done()
			f.Run()
		}()
	}

	fmt.Printf("metricsd: listening on %s with %d workers across %d shards\n", cfg.Bind, cfg.Worker, hashRing.Shards())

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("metricsd: shutting down")

	cancel()
	pool.Stop()

	for _, f := range flushers {
		f.Stop()
	}
	flushersDone.Wait()

	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := telemetry.Shutdown(shutdownCtx, metricsServer); err != nil {
			log.Printf("metricsd: metrics server shutdown: %v", err)
		}
	}

	if archive != nil {
		if err := archive.Close(); err != nil {
			log.Printf("metricsd: archive sink close: %v", err)
		}
	}

	log.Println("metricsd: stopped")
}
