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

package duckchess

import "testing"

func TestSessionStateRoundTrip(t *testing.T) {
	states := []SessionState{
		WaitingForSetupState{LastMessage: "3-0"},
		MatchmakingState{Elo: 1500, EloRange: 100, LastMessage: "7-0"},
		GameState{GameId: "g1", MyTurn: true, PlayerColor: Black, LastMessage: "9-0"},
	}

	for _, want := range states {
		data, err := MarshalSessionState(want)
		if err != nil {
			t.Fatalf("marshal %T: %v", want, err)
		}
		got, err := ParseSessionState(data)
		if err != nil {
			t.Fatalf("parse %T: %v", want, err)
		}
		if got != want {
			t.Errorf("round trip mismatch: got %+v, want %+v", got, want)
		}
	}
}

func TestParseSessionStateUnknownType(t *testing.T) {
	if _, err := ParseSessionState([]byte(`{"type":"Bogus"}`)); err == nil {
		t.Error("expected an error for an unrecognized session state type")
	}
}

func TestExpandEloRangeDoublesAndCaps(t *testing.T) {
	if got := ExpandEloRange(100); got != 200 {
		t.Errorf("expected doubling to 200, got %v", got)
	}
	if got := ExpandEloRange(1000); got != MaxEloRange {
		t.Errorf("expected doubling past the ceiling to cap at %v, got %v", MaxEloRange, got)
	}
	if MaxEloRange != 1600 {
		t.Errorf("expected MaxEloRange to be 1600, got %v", MaxEloRange)
	}
}
