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
	"testing"

	"duckchess"
	"duckchess/internal/broker"
)

func TestStreamAndCursorPicksPerStateStream(t *testing.T) {
	s := &Session{userId: "alice"}

	s.state = duckchess.WaitingForSetupState{}
	if stream, cursor := s.streamAndCursor(); stream != broker.UserStream("alice") || cursor != "$" {
		t.Errorf("waiting-for-setup: got stream=%q cursor=%q", stream, cursor)
	}

	s.state = duckchess.MatchmakingState{LastMessage: "5-0"}
	if stream, cursor := s.streamAndCursor(); stream != broker.MatchmakingStream("alice") || cursor != "5-0" {
		t.Errorf("matchmaking with cursor: got stream=%q cursor=%q", stream, cursor)
	}

	s.state = duckchess.GameState{GameId: "g1"}
	if stream, cursor := s.streamAndCursor(); stream != broker.GameStream("g1") || cursor != "0-0" {
		t.Errorf("fresh game: got stream=%q cursor=%q, want replay from 0-0", stream, cursor)
	}

	s.state = duckchess.GameState{GameId: "g1", LastMessage: "9-0"}
	if stream, cursor := s.streamAndCursor(); stream != broker.GameStream("g1") || cursor != "9-0" {
		t.Errorf("resumed game: got stream=%q cursor=%q", stream, cursor)
	}
}

func TestOnMatchIgnoredOutsideMatchmaking(t *testing.T) {
	s := &Session{userId: "alice", state: duckchess.WaitingForSetupState{}}
	// onMatch should no-op (not panic, not save) when not matchmaking;
	// a nil Stores would panic if it reached saveState.
	if err := s.onMatch(nil, "g1"); err != nil {
		t.Fatalf("onMatch outside matchmaking: %v", err)
	}
	if _, ok := s.state.(duckchess.WaitingForSetupState); !ok {
		t.Errorf("state must be unchanged, got %T", s.state)
	}
}
