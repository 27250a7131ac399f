// Moves and squares
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

// Square is a board coordinate: X is the file (0 = a), Y the row
// from Black's home edge, so (0,0) is a8 on Black's home rank and
// (7,7) is h1 on White's. A Square off the board (used as the TurnEnd
// sentinel's from/to) carries X or Y outside [0,8).
type Square struct {
	X, Y int
}

// offBoard is the sentinel coordinate used by the TurnEnd marker.
var offBoard = Square{X: -1, Y: -1}

func (s Square) inBounds() bool {
	return s.X >= 0 && s.X < 8 && s.Y >= 0 && s.Y < 8
}

func (s Square) add(dx, dy int) Square {
	return Square{X: s.X + dx, Y: s.Y + dy}
}

func (s Square) String() string {
	if !s.inBounds() {
		return "-"
	}
	return fmt.Sprintf("%c%d", 'a'+s.X, 8-s.Y)
}

// MarshalJSON renders a Square as {"x":.,"y":.} for the wire protocol.
func (s Square) MarshalJSON() ([]byte, error) {
	return fmt.Appendf(nil, `{"x":%d,"y":%d}`, s.X, s.Y), nil
}

// UnmarshalJSON accepts {"x":.,"y":.}.
func (s *Square) UnmarshalJSON(b []byte) error {
	var v struct {
		X int `json:"x"`
		Y int `json:"y"`
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	s.X, s.Y = v.X, v.Y
	return nil
}

// MoveKind tags the variant of Move, mirroring the spec's closed set:
// JumpingMove, SlidingMove, EnPassant, Promotion, Castle, and the
// TurnEnd sentinel used to separate applied sub-moves.
type MoveKind uint8

const (
	JumpingMove MoveKind = iota
	SlidingMove
	EnPassant
	Promotion
	Castle
	TurnEnd
)

func (k MoveKind) String() string {
	switch k {
	case JumpingMove:
		return "JumpingMove"
	case SlidingMove:
		return "SlidingMove"
	case EnPassant:
		return "EnPassant"
	case Promotion:
		return "Promotion"
	case Castle:
		return "Castle"
	case TurnEnd:
		return "TurnEnd"
	default:
		panic("duckchess: illegal move kind")
	}
}

func parseMoveKind(s string) (MoveKind, error) {
	switch s {
	case "JumpingMove":
		return JumpingMove, nil
	case "SlidingMove":
		return SlidingMove, nil
	case "EnPassant":
		return EnPassant, nil
	case "Promotion":
		return Promotion, nil
	case "Castle":
		return Castle, nil
	case "TurnEnd":
		return TurnEnd, nil
	default:
		return 0, fmt.Errorf("duckchess: unknown move kind %q", s)
	}
}

// Move is a single applicable action. RookFrom/RookTo are only set for
// Castle (the rook's own origin and destination); Into is only set for
// Promotion (the piece kind the pawn becomes).
type Move struct {
	Kind     MoveKind
	From, To Square
	Into     PieceKind
	RookFrom Square
	RookTo   Square
}

func turnEndMove() Move {
	return Move{Kind: TurnEnd, From: offBoard, To: offBoard}
}

// wireMove is the JSON shape of a Move: a "type" discriminant plus
// only the fields that variant carries.
type wireMove struct {
	Type     string  `json:"type"`
	From     Square  `json:"from"`
	To       Square  `json:"to"`
	Into     *string `json:"into,omitempty"`
	RookFrom *Square `json:"rookFrom,omitempty"`
	RookTo   *Square `json:"rookTo,omitempty"`
}

func (m Move) MarshalJSON() ([]byte, error) {
	w := wireMove{Type: m.Kind.String(), From: m.From, To: m.To}
	switch m.Kind {
	case Promotion:
		into := m.Into.String()
		w.Into = &into
	case Castle:
		w.RookFrom = &m.RookFrom
		w.RookTo = &m.RookTo
	}
	return json.Marshal(w)
}

func (m *Move) UnmarshalJSON(b []byte) error {
	var w wireMove
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	kind, err := parseMoveKind(w.Type)
	if err != nil {
		return err
	}
	*m = Move{Kind: kind, From: w.From, To: w.To}
	if w.Into != nil {
		var pk PieceKind
		if err := (&pk).UnmarshalJSON([]byte(`"` + *w.Into + `"`)); err != nil {
			return err
		}
		m.Into = pk
	}
	if w.RookFrom != nil {
		m.RookFrom = *w.RookFrom
	}
	if w.RookTo != nil {
		m.RookTo = *w.RookTo
	}
	return nil
}
