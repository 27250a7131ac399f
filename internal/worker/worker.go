// Game-service worker
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

// Package worker is the game-service process: a consumer-group loop
// over game_requests that owns authoritative board state. Generalized
// from the teacher's game.Play (one goroutine per in-memory game,
// asking the active side for a move and applying it) into one
// consumer-group loop per process, since board state here must survive
// a worker restart.
package worker

import (
	"context"
	"errors"
	"time"

	"duckchess"
	"duckchess/internal/broker"
	"duckchess/internal/store/kv"
	sqlstore "duckchess/internal/store/sql"
)

// Stores bundles the backing stores the worker talks to.
type Stores struct {
	SQL    *sqlstore.Store
	KV     *kv.Store
	Broker *broker.Broker
}

// Worker consumes game_requests under a named consumer group.
type Worker struct {
	stores        Stores
	group         string
	consumer      string
	autoClaimIdle time.Duration
}

// New builds a Worker. group/consumer name the consumer group this
// process joins; autoClaimIdle is the min-idle threshold for phase A.
func New(stores Stores, group, consumer string, autoClaimIdle time.Duration) *Worker {
	return &Worker{stores: stores, group: group, consumer: consumer, autoClaimIdle: autoClaimIdle}
}

// Run drives the worker until ctx is cancelled (SIGINT per spec.md
// §4.5: "finish the current iteration and exit").
func (w *Worker) Run(ctx context.Context) error {
	if err := w.stores.Broker.EnsureGroup(ctx, broker.GameRequests, w.group, "0"); err != nil {
		return err
	}

	clockTick := time.NewTicker(time.Second)
	defer clockTick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-clockTick.C:
			w.sweepExpiredClocks(ctx)
		default:
		}

		if err := w.iteration(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			duckchess.Debug.Printf("worker iteration: %v", err)
			// Fatal to the iteration, per spec.md §7: log and
			// re-enter the outer loop without acknowledging.
		}
	}
}

// iteration runs phase A (auto-claim abandoned pending entries) then
// phase B (read new entries), per spec.md §4.5.
func (w *Worker) iteration(ctx context.Context) error {
	claimed, _, err := w.stores.Broker.AutoClaim(ctx, broker.GameRequests, w.group, w.consumer, w.autoClaimIdle, 100)
	if err != nil {
		return err
	}
	for _, e := range claimed {
		w.dispatch(ctx, e)
		w.ack(ctx, e.Id)
	}

	entries, err := w.stores.Broker.ReadGroup(ctx, broker.GameRequests, w.group, w.consumer, 100, time.Second)
	if err != nil {
		return err
	}
	var ids []string
	for _, e := range entries {
		w.dispatch(ctx, e)
		ids = append(ids, e.Id)
	}
	if len(ids) > 0 {
		if err := w.stores.Broker.Ack(ctx, broker.GameRequests, w.group, ids...); err != nil {
			return err
		}
	}
	return nil
}

func (w *Worker) ack(ctx context.Context, id string) {
	if err := w.stores.Broker.Ack(ctx, broker.GameRequests, w.group, id); err != nil {
		duckchess.Debug.Printf("ack %s: %v", id, err)
	}
}
