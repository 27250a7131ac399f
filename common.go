// Common types shared by the edge and game services
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

// Package duckchess holds the board, move and protocol types shared by
// the edge service and the game-service worker. Nothing in this
// package talks to a socket, a stream or a database: it is the pure,
// serializable core both services import.
package duckchess

import "fmt"

// Player is a side of the board.
type Player bool

const (
	White Player = false
	Black Player = true
)

func (p Player) String() string {
	if p == White {
		return "white"
	}
	return "black"
}

// Opponent returns the other player.
func (p Player) Opponent() Player {
	return !p
}

// index returns 0 for White, 1 for Black: the slot of Board.Kings
// belonging to this player.
func (p Player) index() int {
	if p == Black {
		return 1
	}
	return 0
}

// User is a row of the durable `users` relation: a registered player
// and their current rating.
type User struct {
	Id  string
	Elo float64
}

// ErrUserNotFound is returned by the relational store when a socket
// connects under an id with no matching row in `users`.
var ErrUserNotFound = fmt.Errorf("duckchess: user not found")
