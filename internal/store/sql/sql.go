// Relational store: durable users and the ephemeral matchmaking queue
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

// Package sql is the relational store: the durable `users` table and
// the ephemeral `matchmaking_players` queue, backed by SQLite. It
// follows the teacher's db.go action shape (an embedded directory of
// named prepared statements, a read handle and a single-writer write
// handle) generalized to duck chess's two tables and its one
// serializable matchmaking transaction.
package sql

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"duckchess"
)

//go:embed queries/*.sql
var queryDir embed.FS

// Store is the relational store handle. Reads go through a pool of
// idle connections; writes are serialized through a single connection,
// exactly as the teacher's db.go splits read/write so that SQLite's
// single-writer constraint never surfaces as a busy error.
type Store struct {
	read  *sql.DB
	write *sql.DB

	queries  map[string]*sql.Stmt
	commands map[string]*sql.Stmt
}

// Open creates (if necessary) the SQLite file at path, applies the
// schema, and prepares every statement under queries/.
func Open(path string) (*Store, error) {
	read, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("duckchess/sql: open read handle: %w", err)
	}
	read.SetConnMaxLifetime(0)

	write, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("duckchess/sql: open write handle: %w", err)
	}
	write.SetConnMaxLifetime(0)
	write.SetMaxOpenConns(1)

	s := &Store{
		read:     read,
		write:    write,
		queries:  make(map[string]*sql.Stmt),
		commands: make(map[string]*sql.Stmt),
	}

	for _, pragma := range []string{
		"journal_mode = WAL",
		"synchronous = normal",
		"foreign_keys = on",
	} {
		if _, err := s.write.Exec("PRAGMA " + pragma + ";"); err != nil {
			s.Close()
			return nil, fmt.Errorf("duckchess/sql: pragma %s: %w", pragma, err)
		}
	}

	if err := s.load(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	entries, err := fs.ReadDir(queryDir, "queries")
	if err != nil {
		return fmt.Errorf("duckchess/sql: read queries: %w", err)
	}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		data, err := fs.ReadFile(queryDir, path.Join("queries", entry.Name()))
		if err != nil {
			return fmt.Errorf("duckchess/sql: read %s: %w", entry.Name(), err)
		}
		base := strings.TrimSuffix(entry.Name(), ".sql")

		switch {
		case strings.HasPrefix(base, "create-"):
			if _, err := s.write.Exec(string(data)); err != nil {
				return fmt.Errorf("duckchess/sql: exec %s: %w", base, err)
			}
		case strings.HasPrefix(base, "select-"):
			s.queries[base], err = s.read.Prepare(string(data))
		default:
			s.commands[base], err = s.write.Prepare(string(data))
		}
		if err != nil {
			return fmt.Errorf("duckchess/sql: prepare %s: %w", base, err)
		}
	}
	return nil
}

// Close releases both handles.
func (s *Store) Close() error {
	var errs []error
	if s.write != nil {
		errs = append(errs, s.write.Close())
	}
	if s.read != nil {
		errs = append(errs, s.read.Close())
	}
	return errors.Join(errs...)
}

// DefaultElo is the rating assigned to a user the first time they are
// seen by EnsureUser.
const DefaultElo = 1500

// EnsureUser returns the user row for id, creating it with DefaultElo
// if this is the first time id has been seen.
func (s *Store) EnsureUser(ctx context.Context, id string) (*duckchess.User, error) {
	u, err := s.GetUser(ctx, id)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, duckchess.ErrUserNotFound) {
		return nil, err
	}

	_, err = s.commands["insert-user"].ExecContext(ctx, id, DefaultElo)
	if err != nil {
		// Another actor may have raced us to the insert; re-read
		// rather than fail the caller.
		if u, rerr := s.GetUser(ctx, id); rerr == nil {
			return u, nil
		}
		return nil, fmt.Errorf("duckchess/sql: insert user %s: %w", id, err)
	}
	return &duckchess.User{Id: id, Elo: DefaultElo}, nil
}

// GetUser looks up id, returning duckchess.ErrUserNotFound if absent.
func (s *Store) GetUser(ctx context.Context, id string) (*duckchess.User, error) {
	var u duckchess.User
	u.Id = id
	err := s.queries["select-user"].QueryRowContext(ctx, id).Scan(&u.Elo)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, duckchess.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("duckchess/sql: select user %s: %w", id, err)
	}
	return &u, nil
}

// SetElo overwrites a user's rating, e.g. after rating-update
// arithmetic (owned outside this package, per spec.md §1).
func (s *Store) SetElo(ctx context.Context, id string, elo float64) error {
	_, err := s.commands["update-user-elo"].ExecContext(ctx, elo, id)
	if err != nil {
		return fmt.Errorf("duckchess/sql: update elo for %s: %w", id, err)
	}
	return nil
}

// QueueEntry mirrors a row of matchmaking_players.
type QueueEntry struct {
	Id        string
	Elo       float64
	EloRange  float64
	StartTime time.Time
	Setup     duckchess.BoardSetup
}

// MatchResult is what Matchmake returns when it paired the caller with
// a waiting partner.
type MatchResult struct {
	Me, Partner QueueEntry
}

// Matchmake runs spec's single-transaction matchmaking algorithm: look
// for the oldest compatible row, and if one exists, delete both rows
// and return the pair; otherwise upsert self and return nil, nil.
//
// Grounded on the teacher's queue.go pairing loop, generalized from an
// in-memory slice guarded by one goroutine to a SQLite transaction
// guarded by SQLite's own serializable isolation, since here many edge
// processes share one queue.
func (s *Store) Matchmake(ctx context.Context, me QueueEntry) (*MatchResult, error) {
	tx, err := s.write.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, fmt.Errorf("duckchess/sql: begin matchmaking tx: %w", err)
	}
	defer tx.Rollback()

	setupJSON, err := me.Setup.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("duckchess/sql: marshal setup: %w", err)
	}

	// The prepared select-match-candidate lives on the read handle, and
	// a transaction can only use statements of its own handle, so the
	// candidate query is run from its source text inside tx.
	candidateSQL, err := fs.ReadFile(queryDir, "queries/select-match-candidate.sql")
	if err != nil {
		return nil, fmt.Errorf("duckchess/sql: read select-match-candidate: %w", err)
	}
	row := tx.QueryRowContext(ctx, string(candidateSQL),
		me.Id, me.Elo, me.EloRange, me.Elo, me.EloRange, me.Elo)

	var partner QueueEntry
	var partnerSetup []byte
	var startTime string
	err = row.Scan(&partner.Id, &partner.Elo, &partner.EloRange, &startTime, &partnerSetup)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.Stmt(s.commands["upsert-matchmaking-player"]).ExecContext(ctx,
			me.Id, me.Elo, me.EloRange, me.StartTime.Format(time.RFC3339Nano), string(setupJSON))
		if err != nil {
			return nil, fmt.Errorf("duckchess/sql: upsert self: %w", err)
		}
		return nil, tx.Commit()
	case err != nil:
		return nil, fmt.Errorf("duckchess/sql: select candidate: %w", err)
	}

	partner.StartTime, err = time.Parse(time.RFC3339Nano, startTime)
	if err != nil {
		return nil, fmt.Errorf("duckchess/sql: parse partner start_time: %w", err)
	}
	if err := partner.Setup.UnmarshalJSON(partnerSetup); err != nil {
		return nil, fmt.Errorf("duckchess/sql: unmarshal partner setup: %w", err)
	}

	if _, err = tx.Stmt(s.commands["delete-matchmaking-player"]).ExecContext(ctx, partner.Id); err != nil {
		return nil, fmt.Errorf("duckchess/sql: delete partner row: %w", err)
	}
	if _, err = tx.Stmt(s.commands["delete-matchmaking-player"]).ExecContext(ctx, me.Id); err != nil {
		return nil, fmt.Errorf("duckchess/sql: delete self row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("duckchess/sql: commit matchmaking tx: %w", err)
	}
	return &MatchResult{Me: me, Partner: partner}, nil
}

// LeaveQueue removes id from matchmaking_players, e.g. when its socket
// disconnects during Matchmaking.
func (s *Store) LeaveQueue(ctx context.Context, id string) error {
	_, err := s.commands["delete-matchmaking-player"].ExecContext(ctx, id)
	if err != nil {
		return fmt.Errorf("duckchess/sql: leave queue %s: %w", id, err)
	}
	return nil
}
