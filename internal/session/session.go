// Per-socket session actor
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

// Package session is the per-socket actor: the reconnect-safe session
// state machine, the stream fan-out bridge that multiplexes inbound
// socket messages against broker traffic, the matchmaker, and the
// disconnect/cleanup logic. Generalized from the teacher's
// proto.client (one goroutine per connection, an io lock around
// writes, a context.CancelFunc used to tear the actor down) from a
// line protocol into a JSON-over-websocket one backed by Redis and
// SQLite instead of in-memory maps.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"duckchess"
	"duckchess/internal/broker"
	"duckchess/internal/store/kv"
	sqlstore "duckchess/internal/store/sql"
)

// Conn is the duplex transport a Session drives. cmd/edge supplies an
// implementation wrapping nhooyr.io/websocket, mirroring the teacher's
// own wsrwc adapter in web/ws.go.
type Conn interface {
	ReadMessage(ctx context.Context) ([]byte, error)
	WriteMessage(ctx context.Context, data []byte) error
	Close(reason string) error
}

// Stores bundles the three backing stores a session actor talks to.
type Stores struct {
	SQL    *sqlstore.Store
	KV     *kv.Store
	Broker *broker.Broker
}

// Session is one connected socket's logical actor.
type Session struct {
	conn   Conn
	stores Stores
	userId string

	state     duckchess.SessionState
	snowflake string
}

// New builds a session for a socket already known to belong to userId
// (the caller has already verified `users` contains this id, per
// spec.md §4.2 "user row exists?").
func New(conn Conn, stores Stores, userId string) *Session {
	return &Session{conn: conn, stores: stores, userId: userId}
}

// exitReason controls §4.6's disconnect/cleanup branch and the close
// frame reason sent to the client (spec.md §7).
type exitReason struct {
	allowReconnect bool
	surrender      bool
	closeMsg       string
}

// Run drives the session until the socket closes, a shutdown signal
// fires, or the game the session is part of ends. It never returns an
// error for ordinary protocol-level disconnects; a non-nil error means
// a backing-store call failed, which spec.md §7 treats as fatal for
// this socket.
func (s *Session) Run(ctx context.Context, shutdown <-chan struct{}) error {
	reason, err := s.loop(ctx, shutdown)
	s.conn.Close(closeReasonFor(reason))
	s.onExit(reason)
	return err
}

func closeReasonFor(r exitReason) string {
	if r.closeMsg != "" {
		return r.closeMsg
	}
	switch {
	case r.surrender:
		return "client disconnected"
	default:
		return "server closed"
	}
}

func (s *Session) loop(ctx context.Context, shutdown <-chan struct{}) (exitReason, error) {
	if err := s.resume(ctx); err != nil {
		return exitReason{allowReconnect: true, surrender: true}, err
	}

	inbound := make(chan []byte)
	inboundErr := make(chan error, 1)
	readCtx, cancelRead := context.WithCancel(ctx)
	defer cancelRead()
	go func() {
		for {
			data, err := s.conn.ReadMessage(readCtx)
			if err != nil {
				inboundErr <- err
				return
			}
			inbound <- data
		}
	}()

	tick := time.NewTicker(time.Second)
	defer tick.Stop()

	for {
		select {
		case <-shutdown:
			return exitReason{allowReconnect: true, surrender: false}, nil

		case err := <-inboundErr:
			duckchess.Debug.Printf("%s: socket closed: %v", s.userId, err)
			return exitReason{allowReconnect: true, surrender: true}, nil

		case data := <-inbound:
			req, err := duckchess.ParsePlayRequest(data)
			if err != nil {
				// Malformed client JSON: drop silently, per spec.md §7.
				continue
			}
			done, reason, err := s.handleRequest(ctx, req)
			if err != nil {
				return exitReason{allowReconnect: true, surrender: true}, err
			}
			if done {
				return reason, nil
			}

		case entries, streamErr := <-s.pollBroker(ctx):
			if streamErr != nil {
				return exitReason{allowReconnect: true, surrender: true}, streamErr
			}
			for _, e := range entries {
				done, reason, err := s.handleBrokerEntry(ctx, e)
				if err != nil {
					return exitReason{allowReconnect: true, surrender: true}, err
				}
				if done {
					return reason, nil
				}
			}

		case <-tick.C:
			// Nothing periodic is owed; the tick only wakes the select
			// loop. Context cancellation reaches it through the socket
			// reader, which then reports an error on inboundErr.
		}
	}
}

// pollBroker issues one bounded (<=1s) blocking read against whichever
// stream the current state names, returning the result on a
// single-shot channel so it composes with the surrounding select.
func (s *Session) pollBroker(ctx context.Context) <-chan brokerResult {
	out := make(chan brokerResult, 1)
	go func() {
		stream, cursor := s.streamAndCursor()
		entries, err := s.stores.Broker.Read(ctx, stream, cursor, time.Second)
		out <- brokerResult{entries, err}
	}()
	return out
}

type brokerResult struct {
	entries []broker.Entry
	err     error
}

// streamAndCursor resolves spec.md §4.2's "stream key selection" for
// the three states: Game listens on its own game stream, Matchmaking
// on its dedicated match-notification stream, and WaitingForSetup (the
// one case spec.md's "otherwise" actually refers to) on the shared
// per-user stream. A present last_message resumes from just after it;
// an absent one reads from "0-0" for Game (replay everything, since a
// reconnecting player must not miss a turn) and "$" otherwise (only
// new entries).
func (s *Session) streamAndCursor() (stream, cursor string) {
	switch st := s.state.(type) {
	case duckchess.GameState:
		if st.LastMessage != "" {
			return broker.GameStream(st.GameId), st.LastMessage
		}
		return broker.GameStream(st.GameId), "0-0"
	case duckchess.MatchmakingState:
		if st.LastMessage != "" {
			return broker.MatchmakingStream(s.userId), st.LastMessage
		}
		return broker.MatchmakingStream(s.userId), "$"
	default:
		if wfs, ok := s.state.(duckchess.WaitingForSetupState); ok && wfs.LastMessage != "" {
			return broker.UserStream(s.userId), wfs.LastMessage
		}
		return broker.UserStream(s.userId), "$"
	}
}

// resume loads any session state left by a previous socket for this
// user (reconnect) or starts a fresh WaitingForSetup, then writes a
// new disconnect snowflake marking this socket as the live one.
func (s *Session) resume(ctx context.Context) error {
	state, err := s.stores.KV.LoadSessionState(ctx, s.userId)
	if err != nil {
		if !kv.IsNotFound(err) {
			return fmt.Errorf("duckchess/session: load session state: %w", err)
		}
		state = duckchess.WaitingForSetupState{}
	}
	s.state = state

	snow, err := s.stores.KV.WriteSnowflake(ctx, s.userId)
	if err != nil {
		return fmt.Errorf("duckchess/session: write snowflake: %w", err)
	}
	s.snowflake = snow

	if gs, ok := s.state.(duckchess.GameState); ok {
		board, err := s.stores.KV.LoadBoard(ctx, gs.GameId)
		if err != nil {
			if kv.IsNotFound(err) {
				// The game already ended and its board expired;
				// nothing to resume into.
				return nil
			}
			return fmt.Errorf("duckchess/session: load board on resume: %w", err)
		}
		if err := s.send(ctx, duckchess.GameStateResponse{Board: board}); err != nil {
			return err
		}

		chat, err := s.stores.KV.LoadChat(ctx, gs.GameId)
		if err != nil {
			return fmt.Errorf("duckchess/session: load chat on resume: %w", err)
		}
		return s.send(ctx, duckchess.FullChatResponse{Chat: chat})
	}
	return nil
}

func (s *Session) saveState(ctx context.Context, state duckchess.SessionState) error {
	s.state = state
	return s.stores.KV.SaveSessionState(ctx, s.userId, state)
}

func (s *Session) send(ctx context.Context, resp duckchess.PlayResponse) error {
	if resp == nil {
		return nil
	}
	data, err := duckchess.MarshalPlayResponse(resp)
	if err != nil {
		return fmt.Errorf("duckchess/session: marshal response: %w", err)
	}
	return s.conn.WriteMessage(ctx, data)
}

// choosePermutation is the "uniform 50/50 permutation" of spec.md §4.3,
// isolated so tests can seed it deterministically.
var choosePermutation = func() bool { return rand.Intn(2) == 0 }

func mustJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}
