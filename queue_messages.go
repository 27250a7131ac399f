// Wire payloads carried on the game_requests and per-game streams
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

package duckchess

// TurnMessage is the `turn` field of a game_requests entry: a turn
// request annotated with the game it applies to.
type TurnMessage struct {
	GameId   string `json:"gameId"`
	PlayerId string `json:"playerId"`
	PieceIdx uint32 `json:"pieceIdx"`
	MoveIdx  uint32 `json:"moveIdx"`
}

// ForfeitMessage is the `forfeit` field of a game_requests entry.
type ForfeitMessage struct {
	GameId   string `json:"gameId"`
	PlayerId string `json:"playerId"`
}

// TurnStartPayload is the `turn_start` field published on a per-game
// or per-user stream.
type TurnStartPayload struct {
	Turn       Player    `json:"turn"`
	MovePieces []Square  `json:"movePieces"`
	Moves      [][]Move  `json:"moves"`
}

// MovesPayload is the `moves` field published after a turn is applied.
type MovesPayload struct {
	Moves []Move `json:"moves"`
}

// EndPayload is the `end` field published when a game concludes.
type EndPayload struct {
	Winner string `json:"winner"`
}
