// Board and move generation
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
// License, version 3, along with go-kgp . If not, see
// <http://www.gnu.org/licenses/>

package duckchess

import (
	"encoding/json"
	"time"
)

// Board is the authoritative state of one game. White moves toward
// rank 0, Black toward rank 7; White's setup occupies ranks 6-7 and
// Black's ranks 0-1.
type Board struct {
	Id                       string
	Turn                     Player
	WhitePlayer, BlackPlayer string
	Squares                  [8][8]*Piece
	Kings                    [2]Square // indexed by Player
	MovePieces               []Square
	Moves                    [][]Move
	Clock                    Clock
}

func (b *Board) at(s Square) *Piece {
	return b.Squares[s.Y][s.X]
}

func (b *Board) set(s Square, p *Piece) {
	b.Squares[s.Y][s.X] = p
}

// Floor returns the derived light/dark coloring of a square.
func Floor(s Square) string {
	if (s.X+s.Y)%2 == 0 {
		return "Dark"
	}
	return "Light"
}

type offset struct{ dx, dy int }

var (
	kingOffsets = []offset{
		{0, 1}, {0, -1}, {1, 0}, {-1, 0},
		{-1, -1}, {-1, 1}, {1, -1}, {1, 1},
	}
	rookOffsets   = []offset{{0, 1}, {0, -1}, {1, 0}, {-1, 0}}
	bishopOffsets = []offset{{-1, -1}, {-1, 1}, {1, -1}, {1, 1}}
	knightOffsets = []offset{
		{2, 1}, {2, -1}, {-2, 1}, {-2, -1},
		{1, 2}, {1, -2}, {-1, 2}, {-1, -2},
	}
)

const unbounded = 8

// NewGame builds a fresh Board from a GameStart payload: Black's setup
// is mirrored horizontally and vertically onto ranks 0-1, White's onto
// ranks 6-7, White to move.
func NewGame(id string, start GameStart, now time.Time) *Board {
	b := &Board{
		Id: id, Turn: White, WhitePlayer: start.White.Id, BlackPlayer: start.Black.Id,
		Clock: NewClock(now, DefaultClockDuration),
	}

	blackSetup := start.Black.Setup
	blackSetup.mirror()

	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			var kind *PieceKind
			var owner Player
			switch {
			case y < 2:
				kind = blackSetup.Rows[y][x]
				owner = Black
			case y >= 6:
				kind = start.White.Setup.Rows[7-y][x]
				owner = White
			}
			if kind == nil {
				continue
			}
			b.Squares[y][x] = &Piece{Kind: *kind, Owner: owner}
		}
	}

	b.Kings[White.index()] = b.findKing(White)
	b.Kings[Black.index()] = b.findKing(Black)
	b.GenerateMoves(true)
	return b
}

func (b *Board) findKing(p Player) Square {
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if pc := b.Squares[y][x]; pc != nil && pc.Kind == King && pc.Owner == p {
				return Square{X: x, Y: y}
			}
		}
	}
	panic("duckchess: board has no king for " + p.String())
}

// Copy returns a deep copy, used to speculatively apply a move when
// testing for self-check without mutating the live board.
func (b *Board) Copy() *Board {
	c := &Board{
		Id: b.Id, Turn: b.Turn,
		WhitePlayer: b.WhitePlayer, BlackPlayer: b.BlackPlayer,
		Kings: b.Kings, Clock: b.Clock,
	}
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if pc := b.Squares[y][x]; pc != nil {
				cp := *pc
				if pc.TurnsSinceDoubleAdvance != nil {
					v := *pc.TurnsSinceDoubleAdvance
					cp.TurnsSinceDoubleAdvance = &v
				}
				c.Squares[y][x] = &cp
			}
		}
	}
	return c
}

// GenerateMoves fills MovePieces/Moves for the side to move. When deep
// is true, moves that would leave the mover's own king attacked are
// filtered out via would_cause_lose.
func (b *Board) GenerateMoves(deep bool) {
	b.MovePieces = nil
	b.Moves = nil
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			sq := Square{X: x, Y: y}
			pc := b.Squares[y][x]
			if pc == nil || pc.Owner != b.Turn {
				continue
			}
			moves := b.pseudoLegalMoves(sq, pc)
			if deep {
				filtered := moves[:0]
				for _, m := range moves {
					if !b.wouldCauseLose(m) {
						filtered = append(filtered, m)
					}
				}
				moves = filtered
			}
			if len(moves) > 0 {
				b.MovePieces = append(b.MovePieces, sq)
				b.Moves = append(b.Moves, moves)
			}
		}
	}
}

func (b *Board) pseudoLegalMoves(sq Square, pc *Piece) []Move {
	switch pc.Kind {
	case King:
		moves := b.slide(sq, pc, kingOffsets, 1, SlidingMove)
		moves = append(moves, b.castlingMoves(sq, pc)...)
		return moves
	case Queen:
		return b.slide(sq, pc, kingOffsets, unbounded, SlidingMove)
	case Rook:
		return b.slide(sq, pc, rookOffsets, unbounded, SlidingMove)
	case Bishop:
		return b.slide(sq, pc, bishopOffsets, unbounded, SlidingMove)
	case Knight:
		return b.slide(sq, pc, knightOffsets, 1, JumpingMove)
	case Pawn:
		return b.pawnMoves(sq, pc)
	default:
		panic("duckchess: illegal piece kind")
	}
}

// slide walks each offset direction up to limit steps, stopping at the
// edge of the board or at the first occupied square (included as a
// capture iff it belongs to the opponent).
func (b *Board) slide(sq Square, pc *Piece, offsets []offset, limit int, kind MoveKind) []Move {
	var moves []Move
	for _, o := range offsets {
		to := sq
		for steps := 0; steps < limit; steps++ {
			to = to.add(o.dx, o.dy)
			if !to.inBounds() {
				break
			}
			if occ := b.at(to); occ != nil {
				if occ.Owner != pc.Owner {
					moves = append(moves, Move{Kind: kind, From: sq, To: to})
				}
				break
			}
			moves = append(moves, Move{Kind: kind, From: sq, To: to})
		}
	}
	return moves
}

func (b *Board) pawnDirection(pc *Piece) int {
	if pc.Owner == White {
		return -1
	}
	return 1
}

func (b *Board) backRank(pc *Piece) int {
	if pc.Owner == White {
		return 0
	}
	return 7
}

func (b *Board) pawnMoves(sq Square, pc *Piece) []Move {
	var moves []Move
	dir := b.pawnDirection(pc)

	limit := 2
	if pc.HasMoved {
		limit = 1
	}
	for i := 1; i <= limit; i++ {
		to := sq.add(0, dir*i)
		if !to.inBounds() || b.at(to) != nil {
			break
		}
		moves = append(moves, Move{Kind: SlidingMove, From: sq, To: to})
	}

	for _, side := range []int{-1, 1} {
		to := sq.add(side, dir)
		if !to.inBounds() {
			continue
		}
		if occ := b.at(to); occ != nil && occ.Owner != pc.Owner {
			moves = append(moves, Move{Kind: SlidingMove, From: sq, To: to})
		}
	}

	for _, side := range []int{-1, 1} {
		neighbour := sq.add(side, 0)
		to := neighbour.add(0, dir)
		if !neighbour.inBounds() || !to.inBounds() {
			continue
		}
		occ := b.at(neighbour)
		if occ == nil || occ.Kind != Pawn || occ.Owner == pc.Owner {
			continue
		}
		if turns, ok := occ.turnsSinceDoubleAdvance(); ok && turns == 1 {
			moves = append(moves, Move{Kind: EnPassant, From: sq, To: to})
		}
	}

	return expandPromotions(moves, b.backRank(pc))
}

func expandPromotions(moves []Move, backRank int) []Move {
	out := make([]Move, 0, len(moves))
	for _, m := range moves {
		if m.Kind == EnPassant || m.To.Y != backRank {
			out = append(out, m)
			continue
		}
		for _, into := range []PieceKind{Queen, Knight, Bishop, Rook} {
			out = append(out, Move{Kind: Promotion, From: m.From, To: m.To, Into: into})
		}
	}
	return out
}

// castlingMoves returns at most one Castle move per eligible rook on
// the king's own rank.
func (b *Board) castlingMoves(kingSq Square, king *Piece) []Move {
	if king.HasMoved {
		return nil
	}

	var moves []Move
rook:
	for x := 0; x < 8; x++ {
		rookSq := Square{X: x, Y: kingSq.Y}
		if rookSq == kingSq {
			continue
		}
		rookPc := b.at(rookSq)
		if rookPc == nil || rookPc.Kind != Rook || rookPc.Owner != king.Owner || rookPc.HasMoved {
			continue
		}

		dir := 1
		if rookSq.X < kingSq.X {
			dir = -1
		}

		for cur := kingSq.add(dir, 0); cur.X != rookSq.X; cur = cur.add(dir, 0) {
			if b.at(cur) != nil {
				continue rook
			}
		}

		newKingSq := kingSq.add(dir*2, 0)
		for cur := kingSq; ; cur = cur.add(dir, 0) {
			probe := Move{Kind: JumpingMove, From: kingSq, To: cur}
			if b.wouldCauseLose(probe) {
				continue rook
			}
			if cur == newKingSq {
				break
			}
		}

		rookTo := newKingSq.add(-dir, 0)
		moves = append(moves, Move{
			Kind: Castle, From: kingSq, To: newKingSq,
			RookFrom: rookSq, RookTo: rookTo,
		})
	}
	return moves
}

// wouldCauseLose reports whether applying move and ending the turn
// would leave the mover's own king attacked.
func (b *Board) wouldCauseLose(m Move) bool {
	c := b.Copy()
	c.ApplyMove(m)
	c.ApplyMove(turnEndMove())
	return c.aboutToWin()
}

// aboutToWin reports whether the side now to move (after a turn flip)
// can reach the square of the side that just moved.
func (b *Board) aboutToWin() bool {
	b.GenerateMoves(false)
	target := b.Kings[b.Turn.Opponent().index()]
	for _, moves := range b.Moves {
		for _, m := range moves {
			if m.To == target {
				return true
			}
		}
	}
	return false
}

// ApplyMove mutates the board per the contract in the spec: pawn
// double-advance bookkeeping, king-position cache, has-moved flag,
// promotion, and the TurnEnd sentinel that increments en-passant
// counters and flips the side to move.
func (b *Board) ApplyMove(m Move) {
	if m.Kind == TurnEnd {
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				if pc := b.Squares[y][x]; pc != nil && pc.Kind == Pawn && pc.TurnsSinceDoubleAdvance != nil {
					*pc.TurnsSinceDoubleAdvance++
				}
			}
		}
		b.Turn = b.Turn.Opponent()
		return
	}

	pc := b.at(m.From)
	if pc.Kind == Pawn {
		if abs(m.To.Y-m.From.Y) > 1 {
			zero := uint(0)
			pc.TurnsSinceDoubleAdvance = &zero
		}
	}
	if pc.Kind == King {
		b.Kings[pc.Owner.index()] = m.To
	}
	if m.From != m.To {
		pc.HasMoved = true
	}
	if m.Kind == Promotion {
		pc.Kind = m.Into
	}
	b.set(m.To, pc)
	if m.From != m.To {
		b.set(m.From, nil)
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// EvaluateTurn applies the turn addressed by pieceIdx/moveIdx,
// expanding EnPassant and Castle into their observable sub-moves and
// appending the TurnEnd sentinel, then regenerates moves for the new
// side. ok is false when the indices no longer address a move in the
// most recently generated arrays (stale or replayed turn request).
func (b *Board) EvaluateTurn(pieceIdx, moveIdx int, now time.Time) (applied []Move, gameOver bool, ok bool) {
	if pieceIdx < 0 || pieceIdx >= len(b.MovePieces) {
		return nil, false, false
	}
	moves := b.Moves[pieceIdx]
	if moveIdx < 0 || moveIdx >= len(moves) {
		return nil, false, false
	}
	primary := moves[moveIdx]
	mover := b.Turn

	switch primary.Kind {
	case EnPassant:
		capturedPawn := Square{X: primary.To.X, Y: primary.From.Y}
		applied = append(applied, Move{Kind: JumpingMove, From: capturedPawn, To: primary.To})
	case Castle:
		applied = append(applied, Move{Kind: SlidingMove, From: primary.RookFrom, To: primary.RookTo})
	}
	applied = append(applied, primary, turnEndMove())

	for _, m := range applied {
		b.ApplyMove(m)
	}
	b.Clock.Switch(now, mover)
	b.GenerateMoves(true)

	return applied, len(b.MovePieces) == 0, true
}

// --- serialization -------------------------------------------------

type wireTile struct {
	Floor string `json:"floor"`
	Piece *Piece `json:"piece"`
}

type wireBoard struct {
	Id          string         `json:"id"`
	Turn        Player         `json:"turn"`
	WhitePlayer string         `json:"whitePlayer"`
	BlackPlayer string         `json:"blackPlayer"`
	Squares     [8][8]wireTile `json:"squares"`
	Kings       [2]Square      `json:"kings"`
	MovePieces  []Square       `json:"movePieces"`
	Moves       [][]Move       `json:"moves"`
	Clock       Clock          `json:"clock"`
}

type wirePiece struct {
	Kind                    PieceKind `json:"kind"`
	Owner                   Player    `json:"owner"`
	HasMoved                bool      `json:"hasMoved"`
	TurnsSinceDoubleAdvance *uint     `json:"turnsSinceDoubleAdvance,omitempty"`
}

func (p Player) MarshalJSON() ([]byte, error) {
	if p == White {
		return json.Marshal("White")
	}
	return json.Marshal("Black")
}

func (p *Player) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*p = s == "Black"
	return nil
}

func (p Piece) MarshalJSON() ([]byte, error) {
	return json.Marshal(wirePiece{
		Kind: p.Kind, Owner: p.Owner, HasMoved: p.HasMoved,
		TurnsSinceDoubleAdvance: p.TurnsSinceDoubleAdvance,
	})
}

func (p *Piece) UnmarshalJSON(b []byte) error {
	var w wirePiece
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*p = Piece{Kind: w.Kind, Owner: w.Owner, HasMoved: w.HasMoved, TurnsSinceDoubleAdvance: w.TurnsSinceDoubleAdvance}
	return nil
}

func (b *Board) MarshalJSON() ([]byte, error) {
	var w wireBoard
	w.Id, w.Turn, w.WhitePlayer, w.BlackPlayer = b.Id, b.Turn, b.WhitePlayer, b.BlackPlayer
	w.Kings, w.MovePieces, w.Moves, w.Clock = b.Kings, b.MovePieces, b.Moves, b.Clock
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			w.Squares[y][x] = wireTile{Floor: Floor(Square{X: x, Y: y}), Piece: b.Squares[y][x]}
		}
	}
	return json.Marshal(w)
}

func (b *Board) UnmarshalJSON(data []byte) error {
	var w wireBoard
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*b = Board{
		Id: w.Id, Turn: w.Turn, WhitePlayer: w.WhitePlayer, BlackPlayer: w.BlackPlayer,
		Kings: w.Kings, MovePieces: w.MovePieces, Moves: w.Moves, Clock: w.Clock,
	}
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			b.Squares[y][x] = w.Squares[y][x].Piece
		}
	}
	return nil
}
