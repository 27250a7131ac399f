// Chess clock expiry sweep
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

package worker

import (
	"context"
	"time"

	"duckchess"
)

// sweepExpiredClocks implements spec.md §4.7 (supplemented): every
// worker iteration, forfeit any game whose running clock has reached
// zero, reusing the same end-game side effects a forfeit message
// triggers.
func (w *Worker) sweepExpiredClocks(ctx context.Context) {
	ids, err := w.stores.KV.ActiveGameIds(ctx)
	if err != nil {
		duckchess.Debug.Printf("clock sweep: list active games: %v", err)
		return
	}

	now := time.Now()
	for _, id := range ids {
		board, err := w.stores.KV.LoadBoard(ctx, id)
		if err != nil {
			continue
		}
		expired, over := board.Clock.Expired(now)
		if !over {
			continue
		}

		winner := board.BlackPlayer
		if expired == duckchess.Black {
			winner = board.WhitePlayer
		}
		if err := w.endGame(ctx, id, winner); err != nil {
			duckchess.Debug.Printf("clock sweep: end game %s: %v", id, err)
		}
	}
}
