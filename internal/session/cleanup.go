// Disconnect grace period and cleanup
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

package session

import (
	"context"
	"time"

	"duckchess"
	"duckchess/internal/broker"
	"duckchess/internal/store/kv"
)

// onExit implements spec.md §4.6. It always leaves the matchmaking
// queue synchronously; the rest of cleanup either runs immediately
// (terminal exits) or after the 5s grace period (ordinary
// disconnects), guarded by the disconnect snowflake so a reconnecting
// socket wins the race.
func (s *Session) onExit(reason exitReason) {
	ctx := context.Background()
	if err := s.stores.SQL.LeaveQueue(ctx, s.userId); err != nil {
		duckchess.Debug.Printf("%s: leave queue on exit: %v", s.userId, err)
	}

	if !reason.allowReconnect {
		s.cleanup(ctx, reason.surrender)
		return
	}

	go s.gracePeriod(reason.surrender)
}

func (s *Session) gracePeriod(surrender bool) {
	ctx := context.Background()
	snow := s.snowflake
	time.Sleep(kv.DisconnectGrace)

	current, err := s.stores.KV.ReadSnowflake(ctx, s.userId)
	if err != nil {
		duckchess.Debug.Printf("%s: grace timer read snowflake: %v", s.userId, err)
		return
	}
	if current != snow {
		// A new socket connected during the grace window and replaced
		// the snowflake; that socket owns cleanup now.
		return
	}
	s.cleanup(ctx, surrender)
}

// cleanup deletes socket_state, the per-user stream, and the
// snowflake, and — if the session ended a game via surrender —
// publishes `forfeit`.
func (s *Session) cleanup(ctx context.Context, surrender bool) {
	if err := s.stores.KV.DeleteSessionState(ctx, s.userId); err != nil {
		duckchess.Debug.Printf("%s: delete session state: %v", s.userId, err)
	}
	if err := s.stores.Broker.Delete(ctx, broker.UserStream(s.userId)); err != nil {
		duckchess.Debug.Printf("%s: delete per-user stream: %v", s.userId, err)
	}
	if err := s.stores.KV.DeleteSnowflake(ctx, s.userId); err != nil {
		duckchess.Debug.Printf("%s: delete snowflake: %v", s.userId, err)
	}

	gs, inGame := s.state.(duckchess.GameState)
	if !inGame || !surrender {
		return
	}
	_, err := s.stores.Broker.Publish(ctx, broker.GameRequests, map[string]string{
		"forfeit": mustJSON(duckchess.ForfeitMessage{GameId: gs.GameId, PlayerId: s.userId}),
	})
	if err != nil {
		duckchess.Debug.Printf("%s: publish forfeit: %v", s.userId, err)
	}
}
