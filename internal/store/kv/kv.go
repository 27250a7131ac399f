// Key-value store: hot per-game and per-user state
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

// Package kv is the hot, short-lived key-value store: authoritative
// board state, capped chat history, session state for reconnect, and
// the disconnect-race snowflake. Backed by plain Redis strings and
// lists, the same instance used by package broker for streams.
package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"duckchess"
)

// Store wraps a Redis client with the key layout named in spec.md §2.
type Store struct {
	rdb *redis.Client
}

// Open connects to a Redis instance at url (e.g.
// "redis://127.0.0.1:6379/0").
func Open(url string) (*Store, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("duckchess/kv: parse url: %w", err)
	}
	return &Store{rdb: redis.NewClient(opt)}, nil
}

func (s *Store) Close() error { return s.rdb.Close() }

// EndGameTTL is how long board/game/chat keys survive after a game
// ends, per spec.md §4.5 step 2.
const EndGameTTL = 30 * time.Second

// DisconnectGrace is the window a disconnected socket's grace timer
// waits before treating the disconnection as terminal.
const DisconnectGrace = 5 * time.Second

func boardKey(gameId string) string       { return "board:" + gameId }
func chatKey(gameId string) string        { return "chat:" + gameId }
func socketStateKey(userId string) string { return "socket_state:" + userId }
func snowflakeKey(userId string) string   { return "disconnect_snowflake:" + userId }

// MaxChatHistory bounds the capped list at chat:<game_id>.
const MaxChatHistory = 100

// SaveBoard serializes and writes board:<game_id> with no expiry; it
// only gains a TTL once the game ends (see ExpireGame).
func (s *Store) SaveBoard(ctx context.Context, b *duckchess.Board) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("duckchess/kv: marshal board: %w", err)
	}
	if err := s.rdb.Set(ctx, boardKey(b.Id), data, 0).Err(); err != nil {
		return fmt.Errorf("duckchess/kv: set board %s: %w", b.Id, err)
	}
	return nil
}

// LoadBoard reads and deserializes board:<game_id>. A missing key
// returns redis.Nil unwrapped so callers can detect "no such game".
func (s *Store) LoadBoard(ctx context.Context, gameId string) (*duckchess.Board, error) {
	data, err := s.rdb.Get(ctx, boardKey(gameId)).Bytes()
	if err != nil {
		return nil, err
	}
	var b duckchess.Board
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("duckchess/kv: unmarshal board %s: %w", gameId, err)
	}
	return &b, nil
}

// AppendChat pushes message onto chat:<game_id>, trimming it to the
// last MaxChatHistory entries.
func (s *Store) AppendChat(ctx context.Context, gameId string, entry duckchess.ChatEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("duckchess/kv: marshal chat entry: %w", err)
	}
	key := chatKey(gameId)
	pipe := s.rdb.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, -MaxChatHistory, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("duckchess/kv: append chat %s: %w", gameId, err)
	}
	return nil
}

// LoadChat returns the full capped chat history for gameId.
func (s *Store) LoadChat(ctx context.Context, gameId string) ([]duckchess.ChatEntry, error) {
	raw, err := s.rdb.LRange(ctx, chatKey(gameId), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("duckchess/kv: load chat %s: %w", gameId, err)
	}
	chat := make([]duckchess.ChatEntry, 0, len(raw))
	for _, r := range raw {
		var e duckchess.ChatEntry
		if err := json.Unmarshal([]byte(r), &e); err != nil {
			return nil, fmt.Errorf("duckchess/kv: unmarshal chat entry: %w", err)
		}
		chat = append(chat, e)
	}
	return chat, nil
}

// ActiveGameIds scans for every board:<game_id> key currently without
// an expiry, i.e. every game the worker still considers live. Used by
// the clock-expiry sweep (spec.md §4.7), not by the hot per-turn path.
func (s *Store) ActiveGameIds(ctx context.Context) ([]string, error) {
	var ids []string
	iter := s.rdb.Scan(ctx, 0, "board:*", 100).Iterator()
	for iter.Next(ctx) {
		// TTL is -1 for a key with no expiry; ended games have one.
		ttl, err := s.rdb.TTL(ctx, iter.Val()).Result()
		if err != nil {
			return nil, fmt.Errorf("duckchess/kv: ttl %s: %w", iter.Val(), err)
		}
		if ttl != -1 {
			continue
		}
		ids = append(ids, iter.Val()[len("board:"):])
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("duckchess/kv: scan board keys: %w", err)
	}
	return ids, nil
}

// ExpireGame gives board:<game_id>, the game:<game_id> stream and
// chat:<game_id> a 30s TTL once a game has ended, per spec.md §4.5.
func (s *Store) ExpireGame(ctx context.Context, gameId string) error {
	pipe := s.rdb.Pipeline()
	pipe.Expire(ctx, boardKey(gameId), EndGameTTL)
	pipe.Expire(ctx, "game:"+gameId, EndGameTTL)
	pipe.Expire(ctx, chatKey(gameId), EndGameTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("duckchess/kv: expire game %s: %w", gameId, err)
	}
	return nil
}

// SaveSessionState writes socket_state:<user_id>, overwriting whatever
// a prior socket for the same user left there.
func (s *Store) SaveSessionState(ctx context.Context, userId string, state duckchess.SessionState) error {
	data, err := duckchess.MarshalSessionState(state)
	if err != nil {
		return fmt.Errorf("duckchess/kv: marshal session state: %w", err)
	}
	if err := s.rdb.Set(ctx, socketStateKey(userId), data, 0).Err(); err != nil {
		return fmt.Errorf("duckchess/kv: set session state %s: %w", userId, err)
	}
	return nil
}

// LoadSessionState reads socket_state:<user_id>; redis.Nil means the
// user has no in-flight session (first connection).
func (s *Store) LoadSessionState(ctx context.Context, userId string) (duckchess.SessionState, error) {
	data, err := s.rdb.Get(ctx, socketStateKey(userId)).Bytes()
	if err != nil {
		return nil, err
	}
	return duckchess.ParseSessionState(data)
}

// DeleteSessionState removes socket_state:<user_id>, part of cleanup
// on terminal disconnect (spec.md §4.6).
func (s *Store) DeleteSessionState(ctx context.Context, userId string) error {
	if err := s.rdb.Del(ctx, socketStateKey(userId)).Err(); err != nil {
		return fmt.Errorf("duckchess/kv: delete session state %s: %w", userId, err)
	}
	return nil
}

// WriteSnowflake replaces disconnect_snowflake:<user_id> with a fresh
// id, returning it so the caller's grace timer can compare against it
// later.
func (s *Store) WriteSnowflake(ctx context.Context, userId string) (string, error) {
	id := duckchess.NewId()
	if err := s.rdb.Set(ctx, snowflakeKey(userId), id, 0).Err(); err != nil {
		return "", fmt.Errorf("duckchess/kv: write snowflake %s: %w", userId, err)
	}
	return id, nil
}

// ReadSnowflake returns the current disconnect_snowflake:<user_id>
// value, or "" if unset.
func (s *Store) ReadSnowflake(ctx context.Context, userId string) (string, error) {
	v, err := s.rdb.Get(ctx, snowflakeKey(userId)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("duckchess/kv: read snowflake %s: %w", userId, err)
	}
	return v, nil
}

// DeleteSnowflake removes disconnect_snowflake:<user_id> as part of
// cleanup.
func (s *Store) DeleteSnowflake(ctx context.Context, userId string) error {
	if err := s.rdb.Del(ctx, snowflakeKey(userId)).Err(); err != nil {
		return fmt.Errorf("duckchess/kv: delete snowflake %s: %w", userId, err)
	}
	return nil
}

// IsNotFound reports whether err is the "key does not exist" sentinel
// from a Load* call.
func IsNotFound(err error) bool { return err == redis.Nil }
