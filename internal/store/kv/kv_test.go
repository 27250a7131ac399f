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

package kv

import (
	"testing"

	"github.com/redis/go-redis/v9"
)

func TestKeyLayout(t *testing.T) {
	if got := boardKey("g1"); got != "board:g1" {
		t.Errorf("boardKey: got %q", got)
	}
	if got := chatKey("g1"); got != "chat:g1" {
		t.Errorf("chatKey: got %q", got)
	}
	if got := socketStateKey("u1"); got != "socket_state:u1" {
		t.Errorf("socketStateKey: got %q", got)
	}
	if got := snowflakeKey("u1"); got != "disconnect_snowflake:u1" {
		t.Errorf("snowflakeKey: got %q", got)
	}
}

func TestActiveGameIdsStripsPrefix(t *testing.T) {
	key := "board:" + "abc-123"
	if got := key[len("board:"):]; got != "abc-123" {
		t.Errorf("expected prefix strip to yield the bare game id, got %q", got)
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(redis.Nil) {
		t.Error("expected redis.Nil to be reported as not found")
	}
	if IsNotFound(nil) {
		t.Error("nil error must not be reported as not found")
	}
}
