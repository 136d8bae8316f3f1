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

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "statsd.json")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `{
		"thresholds": [95, -90],
		"interval": 5,
		"ring": 8,
		"dup": 16,
		"bind": "127.0.0.1:8125",
		"worker": 4,
		"graphite": {"address": "127.0.0.1:2003"},
		"banshee": {"address": "127.0.0.1:2004", "allow": ["mean_90"]},
		"redis": {"addresses": ["127.0.0.1:6379"], "channel": "metrics"},
		"metrics_addr": ":9102"
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Interval != 5 || cfg.Ring != 8 || cfg.Dup != 16 {
		t.Fatalf("unexpected numeric fields: %+v", cfg)
	}
	if cfg.Bind != "127.0.0.1:8125" {
		t.Fatalf("unexpected bind: %s", cfg.Bind)
	}
	if cfg.Graphite.Address != "127.0.0.1:2003" {
		t.Fatalf("unexpected graphite address: %s", cfg.Graphite.Address)
	}
	if len(cfg.Banshee.Allow) != 1 || cfg.Banshee.Allow[0] != "mean_90" {
		t.Fatalf("unexpected banshee allow: %v", cfg.Banshee.Allow)
	}
	if len(cfg.Redis.Addresses) != 1 || cfg.Redis.Channel != "metrics" {
		t.Fatalf("unexpected redis config: %+v", cfg.Redis)
	}
	if cfg.MetricsAddr != ":9102" {
		t.Fatalf("unexpected metrics addr: %s", cfg.MetricsAddr)
	}
}

func TestLoadAppliesDefaultsForMissingFields(t *testing.T) {
	path := writeConfig(t, `{"bind": "0.0.0.0:9999"}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Interval != 10 {
		t.Fatalf("expected default interval 10, got %d", cfg.Interval)
	}
	if cfg.Ring != 4 || cfg.Dup != 4 || cfg.Worker != 4 {
		t.Fatalf("expected default ring/dup/worker, got %+v", cfg)
	}
	if cfg.Bind != "0.0.0.0:9999" {
		t.Fatalf("expected explicit bind to override default: %s", cfg.Bind)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadMalformedJSONFails(t *testing.T) {
	path := writeConfig(t, `{not valid json`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed config file")
	}
}
