// Stream-oriented message broker
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

// Package broker is the persistent log-oriented message broker:
// append-only streams with consumer groups, blocking reads, auto-claim
// of abandoned pending entries, and approximate-length trimming.
// Implemented against Redis Streams.
package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Stream name constants, matching spec.md §2/§6 exactly.
const (
	GameRequests = "game_requests"
)

// GameStream is the per-game fan-out stream `game:<game_id>`.
func GameStream(gameId string) string { return "game:" + gameId }

// UserStream is the per-user fan-out stream `user:<user_id>`.
func UserStream(userId string) string { return "user:" + userId }

// MatchmakingStream is the match-notification stream `matchmaking:<user_id>`.
func MatchmakingStream(userId string) string { return "matchmaking:" + userId }

// Approximate MAXLEN bounds from spec.md §6.
const (
	PerGameMaxLen     = 1_000
	GameRequestsMaxLen = 10_000
)

// Entry is one decoded stream record: an id and its JSON-string field
// values keyed by field name (e.g. "turn", "chat", "match").
type Entry struct {
	Id     string
	Fields map[string]string
}

// Broker wraps a Redis client with the stream vocabulary the edge and
// worker services share.
type Broker struct {
	rdb *redis.Client
}

// Open connects to a Redis instance at url.
func Open(url string) (*Broker, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("duckchess/broker: parse url: %w", err)
	}
	return &Broker{rdb: redis.NewClient(opt)}, nil
}

func (b *Broker) Close() error { return b.rdb.Close() }

// Delete removes stream outright. A stream is an ordinary Redis key,
// so this is a plain DEL; used by cleanup to drop a user's per-user
// stream once their session is torn down for good (spec.md §4.6).
func (b *Broker) Delete(ctx context.Context, stream string) error {
	if err := b.rdb.Del(ctx, stream).Err(); err != nil {
		return fmt.Errorf("duckchess/broker: del %s: %w", stream, err)
	}
	return nil
}

func maxLenFor(stream string) int64 {
	if stream == GameRequests {
		return GameRequestsMaxLen
	}
	return PerGameMaxLen
}

// Publish appends one entry to stream with the given field/value
// pairs, trimmed to the stream's approximate MAXLEN.
func (b *Broker) Publish(ctx context.Context, stream string, fields map[string]string) (string, error) {
	values := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		values[k] = v
	}
	id, err := b.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: maxLenFor(stream),
		Approx: true,
		Values: values,
	}).Result()
	if err != nil {
		return "", fmt.Errorf("duckchess/broker: xadd %s: %w", stream, err)
	}
	return id, nil
}

// EnsureGroup creates group on stream (MKSTREAM) starting from cursor
// if it does not already exist. cursor "0" replays the whole stream,
// "$" starts from entries published after this call.
func (b *Broker) EnsureGroup(ctx context.Context, stream, group, cursor string) error {
	err := b.rdb.XGroupCreateMkStream(ctx, stream, group, cursor).Err()
	if err != nil && !isBusyGroup(err) {
		return fmt.Errorf("duckchess/broker: xgroup create %s/%s: %w", stream, group, err)
	}
	return nil
}

func isBusyGroup(err error) bool {
	return err != nil && len(err.Error()) >= len("BUSYGROUP") && err.Error()[:len("BUSYGROUP")] == "BUSYGROUP"
}

// ReadGroup is phase B of the worker loop (spec.md §4.5): blocks up to
// block for new entries in stream for group/consumer.
func (b *Broker) ReadGroup(ctx context.Context, stream, group, consumer string, count int64, block time.Duration) ([]Entry, error) {
	res, err := b.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, ">"},
		Count:    count,
		Block:    block,
	}).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("duckchess/broker: xreadgroup %s: %w", stream, err)
	}
	return decode(res), nil
}

// AutoClaim is phase A of the worker loop: reclaims entries idle for
// at least minIdle, so a crashed consumer's pending work is retried by
// another.
func (b *Broker) AutoClaim(ctx context.Context, stream, group, consumer string, minIdle time.Duration, count int64) ([]Entry, string, error) {
	msgs, cursor, err := b.rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   stream,
		Group:    group,
		Consumer: consumer,
		MinIdle:  minIdle,
		Start:    "0-0",
		Count:    count,
	}).Result()
	if err != nil {
		return nil, "", fmt.Errorf("duckchess/broker: xautoclaim %s: %w", stream, err)
	}
	return decode(msgs), cursor, nil
}

// Ack acknowledges ids on stream/group, so they drop off the pending
// entries list.
func (b *Broker) Ack(ctx context.Context, stream, group string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := b.rdb.XAck(ctx, stream, group, ids...).Err(); err != nil {
		return fmt.Errorf("duckchess/broker: xack %s: %w", stream, err)
	}
	return nil
}

// Read is the edge side's consumption of its own per-socket fan-out
// streams (game:<id>, user:<id>, matchmaking:<id>): a plain, groupless
// blocking read starting after cursor ("$" for "only new entries").
func (b *Broker) Read(ctx context.Context, stream, cursor string, block time.Duration) ([]Entry, error) {
	res, err := b.rdb.XRead(ctx, &redis.XReadArgs{
		Streams: []string{stream, cursor},
		Block:   block,
	}).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("duckchess/broker: xread %s: %w", stream, err)
	}
	return decode(res), nil
}

func decode(streams []redis.XStream) []Entry {
	var entries []Entry
	for _, s := range streams {
		for _, m := range s.Messages {
			fields := make(map[string]string, len(m.Values))
			for k, v := range m.Values {
				if sv, ok := v.(string); ok {
					fields[k] = sv
				} else {
					fields[k] = fmt.Sprint(v)
				}
			}
			entries = append(entries, Entry{Id: m.ID, Fields: fields})
		}
	}
	return entries
}
