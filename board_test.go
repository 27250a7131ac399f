// Board and move generator tests
//
// Copyright (c) 2021  Philip Kaludercic
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
	"testing"
	"time"
)

func standardSetup() BoardSetup {
	back := [8]PieceKind{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}
	var s BoardSetup
	for x := 0; x < 8; x++ {
		b := back[x]
		s.Rows[0][x] = &b
		p := Pawn
		s.Rows[1][x] = &p
	}
	return s
}

func standardGame(now time.Time) *Board {
	start := GameStart{
		White: GameStartPlayer{Id: "white-user", Setup: standardSetup()},
		Black: GameStartPlayer{Id: "black-user", Setup: standardSetup()},
	}
	return NewGame("game-1", start, now)
}

func TestStandardOpeningMoveCount(t *testing.T) {
	b := standardGame(time.Unix(0, 0))

	var total int
	for _, moves := range b.Moves {
		total += len(moves)
	}
	// 8 pawns x 2 (single + double advance) + 2 knights x 2 = 20
	if total != 20 {
		t.Fatalf("expected 20 legal moves in the opening, got %d", total)
	}
}

func TestMoveGenerationSoundness(t *testing.T) {
	b := standardGame(time.Unix(0, 0))
	for i, moves := range b.Moves {
		for _, m := range moves {
			if b.wouldCauseLose(m) {
				t.Fatalf("move %d/%v from %v survived deep filtering but would cause loss", i, m, b.MovePieces[i])
			}
		}
	}
}

func TestEnPassant(t *testing.T) {
	b := standardGame(time.Unix(0, 0))

	// White pawn e2-e4-e5, Black pawn d7-d5 (double advance), capture en passant.
	move := func(from, to Square) {
		for i, sq := range b.MovePieces {
			if sq != from {
				continue
			}
			for j, m := range b.Moves[i] {
				if m.To == to && m.Kind != Promotion {
					if _, _, ok := b.EvaluateTurn(i, j, time.Unix(0, 0)); !ok {
						t.Fatalf("could not apply move %v -> %v", from, to)
					}
					return
				}
			}
		}
		t.Fatalf("no move found from %v to %v", from, to)
	}

	e2 := Square{X: 4, Y: 6}
	e4 := Square{X: 4, Y: 4}
	move(e2, e4)

	h7 := Square{X: 7, Y: 1}
	h6 := Square{X: 7, Y: 2}
	move(h7, h6) // irrelevant black move

	e5 := Square{X: 4, Y: 3}
	move(e4, e5)

	d7 := Square{X: 3, Y: 1}
	d5 := Square{X: 3, Y: 3}
	move(d7, d5) // double advance next to e5

	d6 := Square{X: 3, Y: 2}
	var found bool
	for i, sq := range b.MovePieces {
		if sq != e5 {
			continue
		}
		for _, m := range b.Moves[i] {
			if m.Kind == EnPassant && m.To == d6 {
				found = true
			}
		}
	}
	if !found {
		t.Fatalf("expected en passant capture e5->d6 to be legal")
	}
}

func TestCastlingThroughCheckIsIllegal(t *testing.T) {
	var white BoardSetup
	k := King
	r := Rook
	white.Rows[0][4] = &k
	white.Rows[0][7] = &r

	var black BoardSetup
	bk := King
	br := Rook
	black.Rows[0][4] = &bk
	// mirror() reverses file order for Black, so index 2 lands on
	// absolute file 5 (f-file), giving the rook a clear line to f1.
	black.Rows[0][2] = &br

	start := GameStart{
		White: GameStartPlayer{Id: "w", Setup: white},
		Black: GameStartPlayer{Id: "b", Setup: black},
	}
	b := NewGame("g", start, time.Unix(0, 0))

	kingSq := Square{X: 4, Y: 7}
	for i, sq := range b.MovePieces {
		if sq != kingSq {
			continue
		}
		for _, m := range b.Moves[i] {
			if m.Kind == Castle {
				t.Fatalf("castle should be illegal while the path is attacked, got %v", m)
			}
		}
	}
}

func TestPromotionExpandsToFourVariants(t *testing.T) {
	var white BoardSetup
	k, p := King, Pawn
	white.Rows[0][4] = &k
	white.Rows[1][0] = &p

	var black BoardSetup
	bk := King
	black.Rows[0][4] = &bk

	start := GameStart{
		White: GameStartPlayer{Id: "w", Setup: white},
		Black: GameStartPlayer{Id: "b", Setup: black},
	}
	b := NewGame("g", start, time.Unix(0, 0))

	// Walk the a-pawn to a7 manually by direct board surgery to avoid a
	// long move sequence, then regenerate.
	a2 := Square{X: 0, Y: 6}
	pawn := b.at(a2)
	b.set(a2, nil)
	a7 := Square{X: 0, Y: 1}
	pawn.HasMoved = true
	b.set(a7, pawn)
	b.GenerateMoves(true)

	var promotions int
	kinds := map[PieceKind]bool{}
	for i, sq := range b.MovePieces {
		if sq != a7 {
			continue
		}
		for _, m := range b.Moves[i] {
			if m.Kind == Promotion {
				promotions++
				kinds[m.Into] = true
			}
		}
	}
	if promotions != 4 {
		t.Fatalf("expected 4 promotion variants, got %d", promotions)
	}
	for _, want := range []PieceKind{Queen, Knight, Bishop, Rook} {
		if !kinds[want] {
			t.Fatalf("missing promotion into %v", want)
		}
	}
}

func TestBoardSetupValidation(t *testing.T) {
	valid := standardSetup()
	if err := valid.Validate(); err != nil {
		t.Fatalf("standard setup should be valid: %v", err)
	}

	var noKing BoardSetup
	p := Pawn
	noKing.Rows[0][0] = &p
	if err := noKing.Validate(); err == nil {
		t.Fatalf("setup without a king should be invalid")
	}

	var overBudget BoardSetup
	k := King
	overBudget.Rows[0][0] = &k
	for x := 1; x < 8; x++ {
		q := Queen
		overBudget.Rows[0][x] = &q
	}
	for x := 0; x < 8; x++ {
		q := Queen
		overBudget.Rows[1][x] = &q
	}
	if err := overBudget.Validate(); err == nil {
		t.Fatalf("setup over the point cap should be invalid")
	}
}

func TestBoardSerializationRoundTrip(t *testing.T) {
	b := standardGame(time.Unix(1234, 0))

	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded Board
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if decoded.Id != b.Id || decoded.Turn != b.Turn || decoded.WhitePlayer != b.WhitePlayer {
		t.Fatalf("round-tripped board header mismatch: %+v vs %+v", decoded, b)
	}
	if len(decoded.MovePieces) != len(b.MovePieces) {
		t.Fatalf("round-tripped move count mismatch: %d vs %d", len(decoded.MovePieces), len(b.MovePieces))
	}
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			orig, got := b.Squares[y][x], decoded.Squares[y][x]
			if (orig == nil) != (got == nil) {
				t.Fatalf("square (%d,%d) presence mismatch", x, y)
			}
			if orig != nil && (orig.Kind != got.Kind || orig.Owner != got.Owner) {
				t.Fatalf("square (%d,%d) piece mismatch: %+v vs %+v", x, y, orig, got)
			}
		}
	}
}

func TestMoveSerializationRoundTrip(t *testing.T) {
	moves := []Move{
		{Kind: SlidingMove, From: Square{X: 4, Y: 6}, To: Square{X: 4, Y: 4}},
		{Kind: Promotion, From: Square{X: 0, Y: 1}, To: Square{X: 0, Y: 0}, Into: Queen},
		{Kind: Castle, From: Square{X: 4, Y: 7}, To: Square{X: 6, Y: 7}, RookFrom: Square{X: 7, Y: 7}, RookTo: Square{X: 5, Y: 7}},
		turnEndMove(),
	}
	for _, m := range moves {
		data, err := json.Marshal(m)
		if err != nil {
			t.Fatalf("marshal %v: %v", m, err)
		}
		var decoded Move
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("unmarshal %v: %v", m, err)
		}
		if decoded != m {
			t.Fatalf("round trip mismatch: %+v vs %+v", decoded, m)
		}
	}
}

func TestPlayRequestRoundTrip(t *testing.T) {
	reqs := []PlayRequest{
		TurnRequest{PieceIdx: 3, MoveIdx: 1},
		ChatRequest{Message: "hello"},
		ExpandEloRangeRequest{},
		SurrenderRequest{},
	}
	for _, r := range reqs {
		var typ string
		switch r.(type) {
		case TurnRequest:
			typ = "turn"
		case ChatRequest:
			typ = "chatMessage"
		case ExpandEloRangeRequest:
			typ = "expandEloRange"
		case SurrenderRequest:
			typ = "surrender"
		}
		var data []byte
		var err error
		switch v := r.(type) {
		case TurnRequest:
			data, err = json.Marshal(struct {
				Type     string `json:"type"`
				PieceIdx uint32 `json:"pieceIdx"`
				MoveIdx  uint32 `json:"moveIdx"`
			}{typ, v.PieceIdx, v.MoveIdx})
		case ChatRequest:
			data, err = json.Marshal(struct {
				Type    string `json:"type"`
				Message string `json:"message"`
			}{typ, v.Message})
		default:
			data, err = json.Marshal(struct {
				Type string `json:"type"`
			}{typ})
		}
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		decoded, err := ParsePlayRequest(data)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if decoded != r {
			t.Fatalf("round trip mismatch: %+v vs %+v", decoded, r)
		}
	}
}
