// Configuration loading for the edge and worker binaries
//
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
	"io"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// file is the on-disk TOML shape; Edge and Worker expose the parsed,
// typed configuration actually used by the rest of the program.
type file struct {
	Broker struct {
		URL string `toml:"url"`
	} `toml:"broker"`
	SQL struct {
		URL string `toml:"url"`
	} `toml:"sql"`
	Edge struct {
		Port           uint     `toml:"port"`
		CORSOrigins    []string `toml:"cors_origins"`
		CookieSameSite string   `toml:"cookie_same_site"`
	} `toml:"edge"`
	Worker struct {
		ConsumerGroup  string `toml:"consumer_group"`
		ConsumerId     string `toml:"consumer_id"`
		AutoClaimIdle  uint   `toml:"autoclaim_min_idle_ms"`
	} `toml:"worker"`
}

// Edge is the configuration consumed by cmd/edge.
type Edge struct {
	Port           uint
	CORSOrigins    []string // ["*"] means "all"
	CookieSameSite string
	BrokerURL      string
	SQLPath        string
}

// Worker is the configuration consumed by cmd/worker.
type Worker struct {
	BrokerURL     string
	SQLPath       string
	ConsumerGroup string
	ConsumerId    string
	AutoClaimIdle time.Duration
}

var defaultFile = file{}

func init() {
	defaultFile.Broker.URL = "redis://127.0.0.1:6379/0"
	defaultFile.SQL.URL = "duckchess.db"
	defaultFile.Edge.Port = 8080
	defaultFile.Edge.CORSOrigins = []string{"*"}
	defaultFile.Edge.CookieSameSite = "lax"
	defaultFile.Worker.ConsumerGroup = "game-workers"
	defaultFile.Worker.ConsumerId = "worker-1"
	defaultFile.Worker.AutoClaimIdle = 30_000
}

func load(r io.Reader) (file, error) {
	data := defaultFile
	_, err := toml.NewDecoder(r).Decode(&data)
	return data, err
}

func readFile(path string) (file, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultFile, nil
		}
		return file{}, err
	}
	defer f.Close()
	return load(f)
}

// LoadEdge reads path (falling back to defaults if it does not exist)
// and returns the edge service's configuration.
func LoadEdge(path string) (*Edge, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return &Edge{
		Port:           data.Edge.Port,
		CORSOrigins:    data.Edge.CORSOrigins,
		CookieSameSite: data.Edge.CookieSameSite,
		BrokerURL:      data.Broker.URL,
		SQLPath:        data.SQL.URL,
	}, nil
}

// LoadWorker reads path (falling back to defaults if it does not
// exist) and returns the game-service worker's configuration.
func LoadWorker(path string) (*Worker, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return &Worker{
		BrokerURL:     data.Broker.URL,
		SQLPath:       data.SQL.URL,
		ConsumerGroup: data.Worker.ConsumerGroup,
		ConsumerId:    data.Worker.ConsumerId,
		AutoClaimIdle: time.Duration(data.Worker.AutoClaimIdle) * time.Millisecond,
	}, nil
}

// AllOrigins reports whether the CORS configuration allows every
// origin, the toml-file equivalent of the source's "all" sentinel.
func (e *Edge) AllOrigins() bool {
	return len(e.CORSOrigins) == 1 && e.CORSOrigins[0] == "*"
}
