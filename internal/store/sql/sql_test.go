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

package sql

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"duckchess"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "duckchess.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestEnsureUserCreatesThenReuses(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	u, err := s.EnsureUser(ctx, "alice")
	if err != nil {
		t.Fatalf("ensure user: %v", err)
	}
	if u.Elo != DefaultElo {
		t.Fatalf("expected default elo %v, got %v", DefaultElo, u.Elo)
	}

	if err := s.SetElo(ctx, "alice", 1600); err != nil {
		t.Fatalf("set elo: %v", err)
	}

	u2, err := s.EnsureUser(ctx, "alice")
	if err != nil {
		t.Fatalf("ensure user again: %v", err)
	}
	if u2.Elo != 1600 {
		t.Fatalf("expected updated elo 1600, got %v", u2.Elo)
	}
}

func TestGetUserNotFound(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.GetUser(context.Background(), "nobody"); err != duckchess.ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestMatchmakeQueuesThenPairs(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	alice := QueueEntry{Id: "alice", Elo: 1500, EloRange: 100, StartTime: time.Now()}
	result, err := s.Matchmake(ctx, alice)
	if err != nil {
		t.Fatalf("matchmake alice: %v", err)
	}
	if result != nil {
		t.Fatalf("expected no match for the first entrant, got %+v", result)
	}

	bob := QueueEntry{Id: "bob", Elo: 1520, EloRange: 100, StartTime: time.Now()}
	result, err = s.Matchmake(ctx, bob)
	if err != nil {
		t.Fatalf("matchmake bob: %v", err)
	}
	if result == nil {
		t.Fatal("expected bob to be paired with alice")
	}
	if result.Partner.Id != "alice" {
		t.Fatalf("expected partner alice, got %s", result.Partner.Id)
	}

	// Both rows must be gone: a third matchmake call should queue, not pair.
	carol := QueueEntry{Id: "carol", Elo: 1500, EloRange: 100, StartTime: time.Now()}
	result, err = s.Matchmake(ctx, carol)
	if err != nil {
		t.Fatalf("matchmake carol: %v", err)
	}
	if result != nil {
		t.Fatalf("expected carol to queue alone, got paired with %+v", result)
	}
}

func TestMatchmakeRespectsEloRange(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	alice := QueueEntry{Id: "alice", Elo: 1000, EloRange: 50, StartTime: time.Now()}
	if _, err := s.Matchmake(ctx, alice); err != nil {
		t.Fatalf("matchmake alice: %v", err)
	}

	// bob is far outside alice's band and his own band is narrow too.
	bob := QueueEntry{Id: "bob", Elo: 1800, EloRange: 50, StartTime: time.Now()}
	result, err := s.Matchmake(ctx, bob)
	if err != nil {
		t.Fatalf("matchmake bob: %v", err)
	}
	if result != nil {
		t.Fatalf("expected no match outside elo range, got %+v", result)
	}

	bobExpanded := QueueEntry{Id: "bob", Elo: 1800, EloRange: duckchess.ExpandEloRange(50), StartTime: time.Now()}
	expanded, err := s.Matchmake(ctx, bobExpanded)
	if err != nil {
		t.Fatalf("expand elo range: %v", err)
	}
	if expanded != nil {
		t.Fatalf("doubling once still must not bridge an 800-point gap, got %+v", expanded)
	}
}

func TestExpandEloRangeIsCapped(t *testing.T) {
	got := duckchess.ExpandEloRange(duckchess.MaxEloRange)
	if got != duckchess.MaxEloRange {
		t.Fatalf("expected doubling past the ceiling to stay capped at %v, got %v", duckchess.MaxEloRange, got)
	}
}

func TestLeaveQueue(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	alice := QueueEntry{Id: "alice", Elo: 1500, EloRange: 100, StartTime: time.Now()}
	if _, err := s.Matchmake(ctx, alice); err != nil {
		t.Fatalf("matchmake alice: %v", err)
	}
	if err := s.LeaveQueue(ctx, "alice"); err != nil {
		t.Fatalf("leave queue: %v", err)
	}

	bob := QueueEntry{Id: "bob", Elo: 1500, EloRange: 100, StartTime: time.Now()}
	result, err := s.Matchmake(ctx, bob)
	if err != nil {
		t.Fatalf("matchmake bob: %v", err)
	}
	if result != nil {
		t.Fatalf("expected bob to queue alone after alice left, got %+v", result)
	}
}
