// Chess clock
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

import "time"

// DefaultClockDuration is the per-side allowance of a fresh game.
const DefaultClockDuration = 10 * time.Minute

// TimerPhase is one side's clock state: Running while it is that
// side's turn, Paused otherwise.
type TimerPhase uint8

const (
	Running TimerPhase = iota
	Paused
)

// Timer is one player's clock.
type Timer struct {
	Phase     TimerPhase    `json:"phase"`
	EndTime   time.Time     `json:"endTime"`   // meaningful iff Phase == Running
	Remaining time.Duration `json:"remaining"` // meaningful iff Phase == Paused
}

// Expired reports whether a Running timer has reached zero as of now.
func (t Timer) Expired(now time.Time) bool {
	return t.Phase == Running && !now.Before(t.EndTime)
}

// Clock holds both players' timers.
type Clock struct {
	White Timer `json:"white"`
	Black Timer `json:"black"`
}

// NewClock starts a clock with White's timer running, as White moves
// first.
func NewClock(now time.Time, per time.Duration) Clock {
	return Clock{
		White: Timer{Phase: Running, EndTime: now.Add(per)},
		Black: Timer{Phase: Paused, Remaining: per},
	}
}

func (c *Clock) timer(p Player) *Timer {
	if p == White {
		return &c.White
	}
	return &c.Black
}

// Switch stops mover's timer, banking whatever time remains, and
// starts the opponent's. Called after a turn is applied.
func (c *Clock) Switch(now time.Time, mover Player) {
	active := c.timer(mover)
	remaining := active.EndTime.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	*active = Timer{Phase: Paused, Remaining: remaining}

	other := c.timer(mover.Opponent())
	*other = Timer{Phase: Running, EndTime: now.Add(other.Remaining)}
}

// Expired reports whether either player's running timer has run out,
// and if so which one.
func (c Clock) Expired(now time.Time) (Player, bool) {
	if c.White.Expired(now) {
		return White, true
	}
	if c.Black.Expired(now) {
		return Black, true
	}
	return White, false
}
