// Piece kinds and the setup point budget
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

import (
	"encoding/json"
	"fmt"
)

// PieceKind is a closed tagged variant, not a class hierarchy: move
// generation switches on the kind and a small table of offset
// vectors, it does not dispatch through per-piece polymorphic objects.
type PieceKind uint8

const (
	King PieceKind = iota
	Queen
	Rook
	Bishop
	Knight
	Pawn
)

func (k PieceKind) String() string {
	switch k {
	case King:
		return "King"
	case Queen:
		return "Queen"
	case Rook:
		return "Rook"
	case Bishop:
		return "Bishop"
	case Knight:
		return "Knight"
	case Pawn:
		return "Pawn"
	default:
		panic("duckchess: illegal piece kind")
	}
}

// MarshalJSON renders a PieceKind as its spec-level name ("King",
// "Queen", ...).
func (k PieceKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON parses a PieceKind from its spec-level name.
func (k *PieceKind) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch s {
	case "King":
		*k = King
	case "Queen":
		*k = Queen
	case "Rook":
		*k = Rook
	case "Bishop":
		*k = Bishop
	case "Knight":
		*k = Knight
	case "Pawn":
		*k = Pawn
	default:
		return fmt.Errorf("duckchess: unknown piece kind %q", s)
	}
	return nil
}

// setupValue is the point cost of fielding one piece of this kind in
// a BoardSetup. A standard back-two-rows army (8 pawns, 2 knights, 2
// bishops, 2 rooks, 1 queen, 1 king) totals 4300, matching the
// standard-chess total named in the spec; the 4800 cap leaves 500
// points of headroom for a custom setup.
func (k PieceKind) setupValue() int {
	switch k {
	case King:
		return 340
	case Queen:
		return 900
	case Rook:
		return 500
	case Bishop:
		return 330
	case Knight:
		return 300
	case Pawn:
		return 100
	default:
		panic("duckchess: illegal piece kind")
	}
}

// Piece is a single occupant of a square.
type Piece struct {
	Kind     PieceKind
	Owner    Player
	HasMoved bool

	// TurnsSinceDoubleAdvance is only meaningful for Pawn: nil means
	// the pawn never double-advanced, otherwise it counts the number
	// of completed turns since it did. En passant is legal against a
	// neighbour exactly when this is 1.
	TurnsSinceDoubleAdvance *uint
}

func (p *Piece) turnsSinceDoubleAdvance() (uint, bool) {
	if p.Kind != Pawn || p.TurnsSinceDoubleAdvance == nil {
		return 0, false
	}
	return *p.TurnsSinceDoubleAdvance, true
}
