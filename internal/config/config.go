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

// Package config loads the daemon's JSON configuration file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Graphite holds the Graphite sink's settings.
type Graphite struct {
	Address string `json:"address"`
}

// Banshee holds the Banshee sink's settings.
type Banshee struct {
	Address string   `json:"address"`
	Allow   []string `json:"allow"`
}

// Redis holds the optional Redis Pub/Sub sink's settings. Omit or leave
// Addresses empty to disable the sink entirely.
type Redis struct {
	Addresses []string `json:"addresses"`
	Channel   string   `json:"channel"`
}

// Config is the daemon's full runtime configuration, loaded from a JSON
// file named on the command line.
type Config struct {
	Thresholds  []int    `json:"thresholds"`
	Interval    uint     `json:"interval"`
	Ring        int      `json:"ring"`
	Dup         int      `json:"dup"`
	Bind        string   `json:"bind"`
	Worker      int      `json:"worker"`
	Graphite    Graphite `json:"graphite"`
	Banshee     Banshee  `json:"banshee"`
	Redis       Redis    `json:"redis"`
	MetricsAddr string   `json:"metrics_addr"`
	ArchivePath string   `json:"archive_path"`
}

// defaults are applied to any field absent from the JSON file, matching
// the original implementation's tolerance for a minimal config file. An
// explicit zero interval is reset to 10; explicit zero or negative ring,
// dup and worker values become 1 (see Load).
func defaults() Config {
	return Config{
		Thresholds: []int{90},
		Interval:   10,
		Ring:       4,
		Dup:        4,
		Bind:       "0.0.0.0:8125",
		Worker:     4,
	}
}

// Load reads and parses the config file at path. A missing file, malformed
// JSON, or unreadable file all surface as a non-nil error — the caller is
// expected to treat this as a fatal startup condition (ConfigLoadFailure).
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := defaults()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if len(cfg.Banshee.Allow) == 0 {
		cfg.Banshee.Allow = nil // let the sink apply its own default
	}
	if cfg.Ring <= 0 {
		cfg.Ring = 1
	}
	if cfg.Dup <= 0 {
		cfg.Dup = 1
	}
	if cfg.Worker <= 0 {
		cfg.Worker = 1
	}
	if cfg.Interval == 0 {
		cfg.Interval = 10
	}

	return cfg, nil
}
