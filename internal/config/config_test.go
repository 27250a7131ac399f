// Copyright (c) 2021, 2022  Philip Kaludercic
//
// This file is part of go-kgp.
//
// go-kgp is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License,
// version 3, as published by the Free Software Foundation.
//
// go-kgp is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the GNU
// Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public
// License, version 3, along with go-kgp. If not, see
// <http://www.gnu.org/licenses/>

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadEdgeDefaults(t *testing.T) {
	cfg, err := LoadEdge(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("load edge defaults: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Port)
	}
	if !cfg.AllOrigins() {
		t.Error("expected default cors_origins to mean \"all\"")
	}
	if cfg.BrokerURL != "redis://127.0.0.1:6379/0" {
		t.Errorf("unexpected default broker url %q", cfg.BrokerURL)
	}
}

func TestLoadEdgeOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edge.toml")
	writeFile(t, path, `
[edge]
port = 9000
cors_origins = ["https://example.com"]

[broker]
url = "redis://broker:6379/1"
`)

	cfg, err := LoadEdge(path)
	if err != nil {
		t.Fatalf("load edge: %v", err)
	}
	if cfg.Port != 9000 {
		t.Errorf("expected overridden port 9000, got %d", cfg.Port)
	}
	if cfg.AllOrigins() {
		t.Error("expected a named origin list to not mean \"all\"")
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "https://example.com" {
		t.Errorf("unexpected cors origins %v", cfg.CORSOrigins)
	}
	if cfg.BrokerURL != "redis://broker:6379/1" {
		t.Errorf("unexpected broker url %q", cfg.BrokerURL)
	}
}

func TestLoadWorkerDefaults(t *testing.T) {
	cfg, err := LoadWorker(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("load worker defaults: %v", err)
	}
	if cfg.ConsumerGroup != "game-workers" {
		t.Errorf("unexpected default consumer group %q", cfg.ConsumerGroup)
	}
	if cfg.AutoClaimIdle != 30_000*time.Millisecond {
		t.Errorf("unexpected default autoclaim idle %v", cfg.AutoClaimIdle)
	}
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
