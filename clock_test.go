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
	"testing"
	"time"
)

func TestNewClockStartsWhiteRunning(t *testing.T) {
	start := time.Unix(1000, 0)
	c := NewClock(start, 10*time.Minute)

	if c.White.Phase != Running {
		t.Error("expected White's timer to start Running")
	}
	if c.Black.Phase != Paused {
		t.Error("expected Black's timer to start Paused")
	}
	if c.Black.Remaining != 10*time.Minute {
		t.Errorf("expected Black to bank the full allowance, got %v", c.Black.Remaining)
	}
}

func TestClockSwitchBanksRemainingTime(t *testing.T) {
	start := time.Unix(1000, 0)
	c := NewClock(start, 10*time.Minute)

	moveTime := start.Add(4 * time.Minute)
	c.Switch(moveTime, White)

	if c.White.Phase != Paused {
		t.Error("expected White's timer to pause after its move")
	}
	if c.White.Remaining != 6*time.Minute {
		t.Errorf("expected White to bank 6m remaining, got %v", c.White.Remaining)
	}
	if c.Black.Phase != Running {
		t.Error("expected Black's timer to start running")
	}
	if !c.Black.EndTime.Equal(moveTime.Add(10 * time.Minute)) {
		t.Errorf("expected Black's end time to be moveTime+10m, got %v", c.Black.EndTime)
	}
}

func TestClockExpired(t *testing.T) {
	start := time.Unix(1000, 0)
	c := NewClock(start, time.Minute)

	if _, over := c.Expired(start.Add(30 * time.Second)); over {
		t.Error("clock should not be expired halfway through the allowance")
	}

	who, over := c.Expired(start.Add(2 * time.Minute))
	if !over {
		t.Fatal("expected White's clock to have expired")
	}
	if who != White {
		t.Errorf("expected White to be the expired side, got %v", who)
	}
}

func TestClockSwitchNeverBanksNegativeTime(t *testing.T) {
	start := time.Unix(1000, 0)
	c := NewClock(start, time.Minute)

	// A move evaluated after the allowance ran out must still bank a
	// non-negative remainder rather than going negative.
	c.Switch(start.Add(2*time.Minute), White)
	if c.White.Remaining != 0 {
		t.Errorf("expected remaining to floor at 0, got %v", c.White.Remaining)
	}
}
