// Broker-message dispatch
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
	"encoding/json"
	"fmt"

	"duckchess"
	"duckchess/internal/broker"
)

// handleBrokerEntry implements spec.md §4.2's per-message dispatch and
// persists last_message as it goes, per §4.4 point 2.
func (s *Session) handleBrokerEntry(ctx context.Context, e broker.Entry) (done bool, reason exitReason, err error) {
	if raw, ok := e.Fields["game_start"]; ok {
		if err := s.onGameStart(ctx, raw); err != nil {
			return false, exitReason{}, err
		}
	}
	if raw, ok := e.Fields["turn_start"]; ok {
		if err := s.onTurnStart(ctx, raw); err != nil {
			return false, exitReason{}, err
		}
	}
	if raw, ok := e.Fields["moves"]; ok {
		if err := s.onMoves(ctx, raw); err != nil {
			return false, exitReason{}, err
		}
	}
	if raw, ok := e.Fields["chat"]; ok {
		if err := s.onChat(ctx, raw); err != nil {
			return false, exitReason{}, err
		}
	}
	if raw, ok := e.Fields["match"]; ok {
		if err := s.onMatch(ctx, raw); err != nil {
			return false, exitReason{}, err
		}
	}
	if raw, ok := e.Fields["end"]; ok {
		if err := s.onEnd(ctx, raw); err != nil {
			return false, exitReason{}, err
		}
		return true, exitReason{allowReconnect: false, closeMsg: "game ended"}, nil
	}

	return false, exitReason{}, s.advanceCursor(ctx, e.Id)
}

// advanceCursor persists last_message on whichever state is current,
// without otherwise touching it.
func (s *Session) advanceCursor(ctx context.Context, id string) error {
	switch st := s.state.(type) {
	case duckchess.GameState:
		st.LastMessage = id
		return s.saveState(ctx, st)
	case duckchess.MatchmakingState:
		st.LastMessage = id
		return s.saveState(ctx, st)
	case duckchess.WaitingForSetupState:
		st.LastMessage = id
		return s.saveState(ctx, st)
	}
	return nil
}

func (s *Session) onGameStart(ctx context.Context, raw string) error {
	var start duckchess.GameStart
	if err := json.Unmarshal([]byte(raw), &start); err != nil {
		return fmt.Errorf("duckchess/session: unmarshal game_start: %w", err)
	}
	color := duckchess.White
	if start.Black.Id == s.userId {
		color = duckchess.Black
	}
	if err := s.saveState(ctx, duckchess.GameState{GameId: start.GameId, PlayerColor: color}); err != nil {
		return err
	}

	board, err := s.stores.KV.LoadBoard(ctx, start.GameId)
	if err != nil {
		return fmt.Errorf("duckchess/session: load board on game_start: %w", err)
	}
	return s.send(ctx, duckchess.GameStateResponse{Board: board})
}

func (s *Session) onMatch(ctx context.Context, gameId string) error {
	if _, ok := s.state.(duckchess.MatchmakingState); !ok {
		return nil
	}
	return s.saveState(ctx, duckchess.GameState{GameId: gameId})
}

func (s *Session) onTurnStart(ctx context.Context, raw string) error {
	var payload duckchess.TurnStartPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return fmt.Errorf("duckchess/session: unmarshal turn_start: %w", err)
	}
	gs, ok := s.state.(duckchess.GameState)
	if ok {
		gs.MyTurn = payload.Turn == gs.PlayerColor
		if err := s.saveState(ctx, gs); err != nil {
			return err
		}
	}
	return s.send(ctx, duckchess.TurnStartResponse{
		Turn:       payload.Turn,
		MovePieces: payload.MovePieces,
		Moves:      payload.Moves,
	})
}

func (s *Session) onMoves(ctx context.Context, raw string) error {
	var payload duckchess.MovesPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return fmt.Errorf("duckchess/session: unmarshal moves: %w", err)
	}
	return s.send(ctx, duckchess.MoveResponse{Moves: payload.Moves})
}

func (s *Session) onChat(ctx context.Context, raw string) error {
	var entry duckchess.ChatEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return fmt.Errorf("duckchess/session: unmarshal chat: %w", err)
	}
	if entry.Id == s.userId {
		// Already mirror-sent synchronously in handleChat.
		return nil
	}
	return s.send(ctx, duckchess.ChatMessageResponse{Message: entry})
}

func (s *Session) onEnd(ctx context.Context, raw string) error {
	var payload duckchess.EndPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return fmt.Errorf("duckchess/session: unmarshal end: %w", err)
	}
	return s.send(ctx, duckchess.EndResponse{Winner: payload.Winner})
}
