// Entry point for the game-service worker
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

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"duckchess/internal/broker"
	"duckchess/internal/config"
	"duckchess/internal/store/kv"
	sqlstore "duckchess/internal/store/sql"
	"duckchess/internal/worker"
)

const defconf = "worker.toml"

func main() {
	confFile := flag.String("conf", defconf, "name of configuration file")
	flag.Parse()
	if flag.NArg() != 0 {
		fmt.Fprintf(flag.CommandLine.Output(), "too many arguments passed to %s\n", os.Args[0])
		os.Exit(1)
	}

	cfg, err := config.LoadWorker(*confFile)
	if err != nil {
		log.Fatal(err)
	}

	sqlStore, err := sqlstore.Open(cfg.SQLPath)
	if err != nil {
		log.Fatal(err)
	}
	kvStore, err := kv.Open(cfg.BrokerURL)
	if err != nil {
		log.Fatal(err)
	}
	brk, err := broker.Open(cfg.BrokerURL)
	if err != nil {
		log.Fatal(err)
	}

	w := worker.New(worker.Stores{SQL: sqlStore, KV: kvStore, Broker: brk},
		cfg.ConsumerGroup, cfg.ConsumerId, cfg.AutoClaimIdle)

	ctx, cancel := context.WithCancel(context.Background())
	intr := make(chan os.Signal, 1)
	signal.Notify(intr, os.Interrupt)
	go func() {
		<-intr
		log.Println("caught interrupt, finishing current iteration")
		cancel()
	}()

	log.Printf("game-service worker %q joining group %q", cfg.ConsumerId, cfg.ConsumerGroup)
	if err := w.Run(ctx); err != nil {
		log.Fatal(err)
	}
}
