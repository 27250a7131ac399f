// Board setups and their point budget
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

// MaxSetupPoints is the point ceiling a BoardSetup may spend, per
// PieceKind.setupValue.
const MaxSetupPoints = 4800

// BoardSetup is one player's own two home ranks, described from that
// player's perspective: Rows[0] is the rank touching their own board
// edge, Rows[1] the rank in front of it, each ordered queenside to
// kingside from the player's own point of view.
type BoardSetup struct {
	Rows [2][8]*PieceKind
}

// MarshalJSON renders a BoardSetup as the bare 2x8 array the wire
// protocol expects, not as an object wrapping Rows.
func (s BoardSetup) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Rows)
}

// UnmarshalJSON accepts the bare 2x8 array form.
func (s *BoardSetup) UnmarshalJSON(b []byte) error {
	return json.Unmarshal(b, &s.Rows)
}

// mirror reverses the file order of a setup. Black submits a setup in
// its own left-to-right frame; since the absolute board uses a single
// shared file axis, Black's rows are read back to front relative to
// White's when a game is assembled.
func (s *BoardSetup) mirror() {
	for r := range s.Rows {
		for i, j := 0, 7; i < j; i, j = i+1, j-1 {
			s.Rows[r][i], s.Rows[r][j] = s.Rows[r][j], s.Rows[r][i]
		}
	}
}

// Validate reports whether a setup contains exactly one King and
// spends no more than MaxSetupPoints.
func (s BoardSetup) Validate() error {
	var kings, total int
	for _, row := range s.Rows {
		for _, k := range row {
			if k == nil {
				continue
			}
			total += k.setupValue()
			if *k == King {
				kings++
			}
		}
	}
	switch {
	case kings != 1:
		return fmt.Errorf("duckchess: setup must contain exactly one king, has %d", kings)
	case total > MaxSetupPoints:
		return fmt.Errorf("duckchess: setup spends %d points, over the %d cap", total, MaxSetupPoints)
	}
	return nil
}

// GameStartPlayer names one side of a GameStart: the player's id and
// the setup they submitted while waiting.
type GameStartPlayer struct {
	Id    string     `json:"id"`
	Setup BoardSetup `json:"setup"`
}

// GameStart is the payload of a `game_start` broker message: the
// matchmaker-assigned game id, both players, and the setups they are
// entering the game with. White always moves first.
type GameStart struct {
	GameId string          `json:"gameId"`
	White  GameStartPlayer `json:"white"`
	Black  GameStartPlayer `json:"black"`
}
