// Matchmaker
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
	"time"

	"duckchess"
	"duckchess/internal/broker"
	sqlstore "duckchess/internal/store/sql"
)

// runMatchmaker implements spec.md §4.3, entered both from a fresh
// BoardSetup submission and from ExpandEloRange. It always leaves the
// session in Matchmaking (if no partner was found) or Game (if one
// was), saving the transition before returning.
func (s *Session) runMatchmaker(ctx context.Context, elo, eloRange float64, setup duckchess.BoardSetup) error {
	match, err := s.stores.SQL.Matchmake(ctx, sqlstore.QueueEntry{
		Id:        s.userId,
		Elo:       elo,
		EloRange:  eloRange,
		StartTime: time.Now(),
		Setup:     setup,
	})
	if err != nil {
		return fmt.Errorf("duckchess/session: matchmake: %w", err)
	}

	if match == nil {
		return s.saveState(ctx, duckchess.MatchmakingState{
			Elo: elo, EloRange: eloRange, Setup: setup,
		})
	}

	gameId := duckchess.NewId()

	white, black := duckchess.GameStartPlayer{Id: match.Me.Id, Setup: match.Me.Setup},
		duckchess.GameStartPlayer{Id: match.Partner.Id, Setup: match.Partner.Setup}
	if choosePermutation() {
		white, black = black, white
	}
	start := duckchess.GameStart{GameId: gameId, White: white, Black: black}

	if _, err := s.stores.Broker.Publish(ctx, broker.MatchmakingStream(match.Partner.Id), map[string]string{
		"match": gameId,
	}); err != nil {
		return fmt.Errorf("duckchess/session: publish match to partner: %w", err)
	}
	if _, err := s.stores.Broker.Publish(ctx, broker.GameRequests, map[string]string{
		"game_start": mustJSON(start),
	}); err != nil {
		return fmt.Errorf("duckchess/session: publish game_start: %w", err)
	}

	color := duckchess.White
	if black.Id == s.userId {
		color = duckchess.Black
	}
	return s.saveState(ctx, duckchess.GameState{
		GameId:      gameId,
		PlayerColor: color,
	})
}
