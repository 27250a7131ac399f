// Entry point for the edge service
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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"

	ws "nhooyr.io/websocket"

	"duckchess"
	"duckchess/internal/broker"
	"duckchess/internal/config"
	"duckchess/internal/session"
	"duckchess/internal/store/kv"
	sqlstore "duckchess/internal/store/sql"
)

// defconf is the default configuration file name, consulted if
// present (falls back to built-in defaults otherwise).
const defconf = "edge.toml"

func main() {
	confFile := flag.String("conf", defconf, "name of configuration file")
	flag.Parse()
	if flag.NArg() != 0 {
		fmt.Fprintf(flag.CommandLine.Output(), "too many arguments passed to %s\n", os.Args[0])
		os.Exit(1)
	}

	cfg, err := config.LoadEdge(*confFile)
	if err != nil {
		log.Fatal(err)
	}

	sqlStore, err := sqlstore.Open(cfg.SQLPath)
	if err != nil {
		log.Fatal(err)
	}
	kvStore, err := kv.Open(cfg.BrokerURL)
	if err != nil {
		log.Fatal(err)
	}
	brk, err := broker.Open(cfg.BrokerURL)
	if err != nil {
		log.Fatal(err)
	}

	stores := session.Stores{SQL: sqlStore, KV: kvStore, Broker: brk}

	shutdown := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", handleSocket(stores, cfg, shutdown))

	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Port), Handler: mux}

	intr := make(chan os.Signal, 1)
	signal.Notify(intr, os.Interrupt)
	go func() {
		<-intr
		log.Println("caught interrupt, shutting down")
		close(shutdown)
		srv.Shutdown(context.Background())
	}()

	log.Printf("edge service listening on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}

// handleSocket upgrades a connection and hands it to a fresh session
// actor. Authentication, routing, CORS and TLS are external
// collaborators (spec.md §1): this only checks that the claimed user
// id names a row in `users`, per §4.2's "user row exists?" gate.
func handleSocket(stores session.Stores, cfg *config.Edge, shutdown chan struct{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userId := r.URL.Query().Get("user_id")
		if userId == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		ctx := r.Context()
		if _, err := stores.SQL.GetUser(ctx, userId); err != nil {
			if errors.Is(err, duckchess.ErrUserNotFound) {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			duckchess.Debug.Printf("lookup user %s: %v", userId, err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		opts := &ws.AcceptOptions{}
		if cfg.AllOrigins() {
			opts.InsecureSkipVerify = true
		} else {
			opts.OriginPatterns = cfg.CORSOrigins
		}
		conn, err := ws.Accept(w, r, opts)
		if err != nil {
			duckchess.Debug.Printf("upgrade failed for %s: %v", userId, err)
			return
		}

		log.Printf("new connection from %s (%s)", userId, r.RemoteAddr)
		sess := session.New(&wsConn{conn}, stores, userId)
		go func() {
			if err := sess.Run(context.Background(), shutdown); err != nil {
				duckchess.Debug.Printf("session %s ended with error: %v", userId, err)
			}
		}()
	}
}

// wsConn adapts nhooyr.io/websocket to session.Conn, generalizing the
// teacher's wsrwc (web/ws.go) from a byte stream to whole JSON text
// messages.
type wsConn struct {
	conn *ws.Conn
}

func (c *wsConn) ReadMessage(ctx context.Context) ([]byte, error) {
	typ, data, err := c.conn.Read(ctx)
	if err != nil {
		return nil, err
	}
	if typ != ws.MessageText {
		return nil, fmt.Errorf("duckchess/edge: unexpected message type %v", typ)
	}
	return data, nil
}

func (c *wsConn) WriteMessage(ctx context.Context, data []byte) error {
	return c.conn.Write(ctx, ws.MessageText, data)
}

func (c *wsConn) Close(reason string) error {
	return c.conn.Close(ws.StatusNormalClosure, reason)
}
