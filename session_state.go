// Per-socket session state, persisted under socket_state:<user_id>
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
// License, version 3, along with go-kgp . If not, see
// <http://www.gnu.org/licenses/>

package duckchess

import (
	"encoding/json"
	"fmt"
)

// SessionState is the tagged state of one connected socket's actor.
// LastMessage is the broker stream cursor used on reconnect; empty
// means "no message observed yet".
type SessionState interface {
	isSessionState()
	cursor() string
}

// WaitingForSetupState is the initial state after a successful
// connect: the socket has not yet submitted a BoardSetup.
type WaitingForSetupState struct {
	LastMessage string
}

// MatchmakingState holds the rating band and setup a player is
// waiting to be matched with.
type MatchmakingState struct {
	Elo, EloRange float64
	Setup         BoardSetup
	LastMessage   string
}

// GameState holds which game this socket is attached to and whose
// turn it currently is.
type GameState struct {
	GameId      string
	MyTurn      bool
	PlayerColor Player
	LastMessage string
}

func (WaitingForSetupState) isSessionState() {}
func (MatchmakingState) isSessionState()     {}
func (GameState) isSessionState()            {}

func (s WaitingForSetupState) cursor() string { return s.LastMessage }
func (s MatchmakingState) cursor() string     { return s.LastMessage }
func (s GameState) cursor() string            { return s.LastMessage }

// Cursor returns the stream id beyond which this session has not yet
// observed events, or "" if none.
func Cursor(s SessionState) string { return s.cursor() }

// MarshalSessionState renders the tagged JSON form stored at
// socket_state:<user_id>.
func MarshalSessionState(s SessionState) ([]byte, error) {
	switch v := s.(type) {
	case WaitingForSetupState:
		return json.Marshal(struct {
			Type        string `json:"type"`
			LastMessage string `json:"lastMessage"`
		}{"WaitingForSetup", v.LastMessage})
	case MatchmakingState:
		return json.Marshal(struct {
			Type        string     `json:"type"`
			Elo         float64    `json:"elo"`
			EloRange    float64    `json:"eloRange"`
			Setup       BoardSetup `json:"setup"`
			LastMessage string     `json:"lastMessage"`
		}{"Matchmaking", v.Elo, v.EloRange, v.Setup, v.LastMessage})
	case GameState:
		return json.Marshal(struct {
			Type        string `json:"type"`
			GameId      string `json:"gameId"`
			MyTurn      bool   `json:"myTurn"`
			PlayerColor Player `json:"playerColor"`
			LastMessage string `json:"lastMessage"`
		}{"Game", v.GameId, v.MyTurn, v.PlayerColor, v.LastMessage})
	default:
		return nil, fmt.Errorf("duckchess: unknown session state %T", s)
	}
}

// ParseSessionState decodes the tagged form written by
// MarshalSessionState.
func ParseSessionState(data []byte) (SessionState, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}

	switch head.Type {
	case "WaitingForSetup":
		var w struct {
			LastMessage string `json:"lastMessage"`
		}
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		return WaitingForSetupState{LastMessage: w.LastMessage}, nil
	case "Matchmaking":
		var w struct {
			Elo         float64    `json:"elo"`
			EloRange    float64    `json:"eloRange"`
			Setup       BoardSetup `json:"setup"`
			LastMessage string     `json:"lastMessage"`
		}
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		return MatchmakingState{Elo: w.Elo, EloRange: w.EloRange, Setup: w.Setup, LastMessage: w.LastMessage}, nil
	case "Game":
		var w struct {
			GameId      string `json:"gameId"`
			MyTurn      bool   `json:"myTurn"`
			PlayerColor Player `json:"playerColor"`
			LastMessage string `json:"lastMessage"`
		}
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		return GameState{GameId: w.GameId, MyTurn: w.MyTurn, PlayerColor: w.PlayerColor, LastMessage: w.LastMessage}, nil
	default:
		return nil, fmt.Errorf("duckchess: unknown session state %q", head.Type)
	}
}

// DefaultEloRange is the initial rating band a freshly queued player
// is matched within.
const DefaultEloRange = 100

// MaxEloRange bounds the doubling in ExpandEloRange: the source
// doubles without limit, but an unbounded band defeats the purpose of
// rating-based matching, so implementations cap it.
const MaxEloRange = 1600

// ExpandEloRange doubles a player's rating band, capped at
// MaxEloRange, per §4.3/§9.
func ExpandEloRange(current float64) float64 {
	doubled := current * 2
	if doubled > MaxEloRange {
		return MaxEloRange
	}
	return doubled
}
