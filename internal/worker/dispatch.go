// game_requests entry dispatch and end-game side effects
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

package worker

import (
	"context"
	"encoding/json"
	"time"

	"duckchess"
	"duckchess/internal/broker"
)

// dispatch processes every recognized field present on entry, per
// spec.md §4.5. Errors are logged, not returned: a malformed or
// store-failing entry must not wedge the consumer group (it will be
// auto-claimed and retried, or simply dropped if genuinely malformed).
func (w *Worker) dispatch(ctx context.Context, e broker.Entry) {
	if raw, ok := e.Fields["game_start"]; ok {
		if err := w.onGameStart(ctx, raw); err != nil {
			duckchess.Debug.Printf("game_start %s: %v", e.Id, err)
		}
	}
	if raw, ok := e.Fields["turn"]; ok {
		if err := w.onTurn(ctx, raw); err != nil {
			duckchess.Debug.Printf("turn %s: %v", e.Id, err)
		}
	}
	if raw, ok := e.Fields["forfeit"]; ok {
		if err := w.onForfeit(ctx, raw); err != nil {
			duckchess.Debug.Printf("forfeit %s: %v", e.Id, err)
		}
	}
}

func (w *Worker) onGameStart(ctx context.Context, raw string) error {
	var start duckchess.GameStart
	if err := json.Unmarshal([]byte(raw), &start); err != nil {
		return err
	}

	board := duckchess.NewGame(start.GameId, start, time.Now())
	if err := w.stores.KV.SaveBoard(ctx, board); err != nil {
		return err
	}

	turnStart := duckchess.TurnStartPayload{
		Turn:       board.Turn,
		MovePieces: board.MovePieces,
		Moves:      board.Moves,
	}
	if err := w.fanOut(ctx, board.Id, start.White.Id, start.Black.Id, map[string]interface{}{
		"game_start": start,
		"turn_start": turnStart,
	}); err != nil {
		return err
	}

	if len(board.MovePieces) == 0 {
		// White has no legal moves: the source ends the game
		// immediately with White as winner (spec.md §4.5, §9).
		return w.endGame(ctx, board.Id, start.White.Id)
	}
	return nil
}

func (w *Worker) onTurn(ctx context.Context, raw string) error {
	var msg duckchess.TurnMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return err
	}

	board, err := w.stores.KV.LoadBoard(ctx, msg.GameId)
	if err != nil {
		return err
	}

	mover := board.Turn
	applied, gameOver, ok := board.EvaluateTurn(int(msg.PieceIdx), int(msg.MoveIdx), time.Now())
	if !ok {
		return nil
	}

	if err := w.stores.KV.SaveBoard(ctx, board); err != nil {
		return err
	}

	movesPayload := duckchess.MovesPayload{Moves: applied}
	turnStart := duckchess.TurnStartPayload{
		Turn:       board.Turn,
		MovePieces: board.MovePieces,
		Moves:      board.Moves,
	}
	if _, err := w.stores.Broker.Publish(ctx, broker.GameStream(board.Id), map[string]string{
		"moves":      mustJSON(movesPayload),
		"turn_start": mustJSON(turnStart),
	}); err != nil {
		return err
	}

	if gameOver {
		winner := board.WhitePlayer
		if mover == duckchess.Black {
			winner = board.BlackPlayer
		}
		return w.endGame(ctx, board.Id, winner)
	}
	return nil
}

func (w *Worker) onForfeit(ctx context.Context, raw string) error {
	var msg duckchess.ForfeitMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return err
	}

	board, err := w.stores.KV.LoadBoard(ctx, msg.GameId)
	if err != nil {
		// The game may have already ended and its board expired;
		// nothing more to do.
		return nil
	}

	winner := board.BlackPlayer
	if msg.PlayerId == board.BlackPlayer {
		winner = board.WhitePlayer
	}
	return w.endGame(ctx, msg.GameId, winner)
}

// fanOut publishes fields to the per-game stream and both players'
// per-user streams, per spec.md §4.5's game_start handling.
func (w *Worker) fanOut(ctx context.Context, gameId, white, black string, fields map[string]interface{}) error {
	str := make(map[string]string, len(fields))
	for k, v := range fields {
		str[k] = mustJSON(v)
	}
	for _, stream := range []string{broker.GameStream(gameId), broker.UserStream(white), broker.UserStream(black)} {
		if _, err := w.stores.Broker.Publish(ctx, stream, str); err != nil {
			return err
		}
	}
	return nil
}

// endGame implements spec.md §4.5's end-game side effects.
func (w *Worker) endGame(ctx context.Context, gameId, winnerId string) error {
	if _, err := w.stores.Broker.Publish(ctx, broker.GameStream(gameId), map[string]string{
		"chat": mustJSON(duckchess.ChatEntry{Message: winnerId + " wins"}),
		"end":  mustJSON(duckchess.EndPayload{Winner: winnerId}),
	}); err != nil {
		return err
	}
	return w.stores.KV.ExpireGame(ctx, gameId)
}

func mustJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}
