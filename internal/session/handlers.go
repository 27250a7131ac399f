// Inbound socket message dispatch
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
	"fmt"

	"duckchess"
	"duckchess/internal/broker"
)

// handleRequest implements spec.md §4.4 point 1. done reports that
// the session loop should exit with reason.
func (s *Session) handleRequest(ctx context.Context, req duckchess.PlayRequest) (done bool, reason exitReason, err error) {
	switch r := req.(type) {
	case duckchess.TurnRequest:
		return s.handleTurn(ctx, r)
	case duckchess.ChatRequest:
		return false, exitReason{}, s.handleChat(ctx, r)
	case duckchess.ExpandEloRangeRequest:
		return false, exitReason{}, s.handleExpandEloRange(ctx)
	case duckchess.BoardSetupRequest:
		return false, exitReason{}, s.handleBoardSetup(ctx, r)
	case duckchess.SurrenderRequest:
		return s.handleSurrender(ctx)
	default:
		return false, exitReason{}, s.send(ctx, duckchess.InvalidRequestResponse{})
	}
}

func (s *Session) handleTurn(ctx context.Context, r duckchess.TurnRequest) (bool, exitReason, error) {
	gs, ok := s.state.(duckchess.GameState)
	if !ok || !gs.MyTurn {
		return false, exitReason{}, s.send(ctx, duckchess.InvalidRequestResponse{})
	}

	fields := map[string]string{
		"turn": mustJSON(duckchess.TurnMessage{
			GameId:   gs.GameId,
			PlayerId: s.userId,
			PieceIdx: r.PieceIdx,
			MoveIdx:  r.MoveIdx,
		}),
	}
	if _, err := s.stores.Broker.Publish(ctx, broker.GameRequests, fields); err != nil {
		return false, exitReason{}, fmt.Errorf("duckchess/session: publish turn: %w", err)
	}

	gs.MyTurn = false
	return false, exitReason{}, s.saveState(ctx, gs)
}

func (s *Session) handleChat(ctx context.Context, r duckchess.ChatRequest) error {
	gs, ok := s.state.(duckchess.GameState)
	if !ok {
		return s.send(ctx, duckchess.InvalidRequestResponse{})
	}
	if len(r.Message) > duckchess.MaxChatMessageLength {
		return s.send(ctx, duckchess.InvalidRequestResponse{})
	}

	entry := duckchess.ChatEntry{Id: s.userId, Message: r.Message}
	if _, err := s.stores.Broker.Publish(ctx, broker.GameStream(gs.GameId), map[string]string{
		"chat": mustJSON(entry),
	}); err != nil {
		return fmt.Errorf("duckchess/session: publish chat: %w", err)
	}
	if err := s.stores.KV.AppendChat(ctx, gs.GameId, entry); err != nil {
		return fmt.Errorf("duckchess/session: append chat: %w", err)
	}
	// Mirror-send to self: the producer does not see its own publish
	// on its own read cursor until the next poll, so echo immediately.
	return s.send(ctx, duckchess.ChatMessageResponse{Message: entry})
}

func (s *Session) handleExpandEloRange(ctx context.Context) error {
	mm, ok := s.state.(duckchess.MatchmakingState)
	if !ok {
		return s.send(ctx, duckchess.InvalidRequestResponse{})
	}
	return s.runMatchmaker(ctx, mm.Elo, duckchess.ExpandEloRange(mm.EloRange), mm.Setup)
}

func (s *Session) handleBoardSetup(ctx context.Context, r duckchess.BoardSetupRequest) error {
	if _, ok := s.state.(duckchess.WaitingForSetupState); !ok {
		return s.send(ctx, duckchess.InvalidRequestResponse{})
	}
	if err := r.Setup.Validate(); err != nil {
		return s.send(ctx, duckchess.InvalidRequestResponse{})
	}

	user, err := s.stores.SQL.EnsureUser(ctx, s.userId)
	if err != nil {
		return fmt.Errorf("duckchess/session: ensure user: %w", err)
	}

	return s.runMatchmaker(ctx, user.Elo, duckchess.DefaultEloRange, r.Setup)
}

func (s *Session) handleSurrender(ctx context.Context) (bool, exitReason, error) {
	if _, ok := s.state.(duckchess.GameState); !ok {
		return false, exitReason{}, s.send(ctx, duckchess.InvalidRequestResponse{})
	}
	return true, exitReason{allowReconnect: false, surrender: true}, nil
}
