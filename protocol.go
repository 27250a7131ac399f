// Wire protocol between a socket and the edge service
//
// Copyright (c) 2021, 2022, 2023  Philip Kaludercic
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

import (
	"encoding/json"
	"fmt"
)

// ChatEntry is one line of a game's chat history.
type ChatEntry struct {
	Id      string `json:"id"`
	Message string `json:"message"`
}

// MaxChatMessageLength is the longest chat message the edge service
// will forward.
const MaxChatMessageLength = 1024

// PlayRequest is a message sent by a client over its socket.
type PlayRequest interface{ isPlayRequest() }

// TurnRequest addresses one legal move by the indices of the
// move_pieces/moves arrays most recently broadcast.
type TurnRequest struct {
	PieceIdx, MoveIdx uint32
}

// ChatRequest is a chat line to mirror onto the opponent.
type ChatRequest struct {
	Message string
}

// ExpandEloRangeRequest asks the matchmaker to widen this player's
// acceptable rating band and retry.
type ExpandEloRangeRequest struct{}

// BoardSetupRequest submits a player's own setup on leaving
// WaitingForSetup.
type BoardSetupRequest struct {
	Setup BoardSetup
}

// SurrenderRequest ends the current game in favor of the sender's
// opponent.
type SurrenderRequest struct{}

func (TurnRequest) isPlayRequest()           {}
func (ChatRequest) isPlayRequest()           {}
func (ExpandEloRangeRequest) isPlayRequest() {}
func (BoardSetupRequest) isPlayRequest()     {}
func (SurrenderRequest) isPlayRequest()      {}

// ParsePlayRequest decodes a tagged client message. An unrecognized
// type is a protocol-level error, handled by the caller as "drop
// silently".
func ParsePlayRequest(data []byte) (PlayRequest, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}

	switch head.Type {
	case "turn":
		var w struct {
			PieceIdx uint32 `json:"pieceIdx"`
			MoveIdx  uint32 `json:"moveIdx"`
		}
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		return TurnRequest{PieceIdx: w.PieceIdx, MoveIdx: w.MoveIdx}, nil
	case "chatMessage":
		var w struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		return ChatRequest{Message: w.Message}, nil
	case "expandEloRange":
		return ExpandEloRangeRequest{}, nil
	case "boardSetup":
		var w struct {
			Setup BoardSetup `json:"setup"`
		}
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		return BoardSetupRequest{Setup: w.Setup}, nil
	case "surrender":
		return SurrenderRequest{}, nil
	default:
		return nil, fmt.Errorf("duckchess: unknown request type %q", head.Type)
	}
}

// PlayResponse is a message sent to a client over its socket.
type PlayResponse interface{ isPlayResponse() }

// InvalidRequestResponse tells the client its last request was
// rejected without otherwise changing session state.
type InvalidRequestResponse struct{}

// GameStateResponse carries the full board, sent once on entering Game.
type GameStateResponse struct {
	Board *Board
}

// TurnStartResponse announces whose turn it is and the legal moves
// available to them.
type TurnStartResponse struct {
	Turn       Player
	MovePieces []Square
	Moves      [][]Move
}

// MoveResponse carries the sub-moves of one applied turn, in the
// order they should be rendered.
type MoveResponse struct {
	Moves []Move
}

// EndResponse announces the winner of a finished game.
type EndResponse struct {
	Winner string
}

// ChatMessageResponse forwards a single chat line.
type ChatMessageResponse struct {
	Message ChatEntry
}

// FullChatResponse carries the capped chat history, sent once on
// entering Game via reconnect.
type FullChatResponse struct {
	Chat []ChatEntry
}

func (InvalidRequestResponse) isPlayResponse() {}
func (GameStateResponse) isPlayResponse()      {}
func (TurnStartResponse) isPlayResponse()      {}
func (MoveResponse) isPlayResponse()           {}
func (EndResponse) isPlayResponse()            {}
func (ChatMessageResponse) isPlayResponse()    {}
func (FullChatResponse) isPlayResponse()       {}

// MarshalPlayResponse renders a PlayResponse as its tagged JSON wire
// form.
func MarshalPlayResponse(r PlayResponse) ([]byte, error) {
	switch v := r.(type) {
	case InvalidRequestResponse:
		return json.Marshal(struct {
			Type string `json:"type"`
		}{"invalidRequest"})
	case GameStateResponse:
		return json.Marshal(struct {
			Type  string `json:"type"`
			Board *Board `json:"board"`
		}{"gameState", v.Board})
	case TurnStartResponse:
		return json.Marshal(struct {
			Type       string   `json:"type"`
			Turn       Player   `json:"turn"`
			MovePieces []Square `json:"movePieces"`
			Moves      [][]Move `json:"moves"`
		}{"turnStart", v.Turn, v.MovePieces, v.Moves})
	case MoveResponse:
		return json.Marshal(struct {
			Type  string `json:"type"`
			Moves []Move `json:"moves"`
		}{"move", v.Moves})
	case EndResponse:
		return json.Marshal(struct {
			Type   string `json:"type"`
			Winner string `json:"winner"`
		}{"end", v.Winner})
	case ChatMessageResponse:
		return json.Marshal(struct {
			Type    string    `json:"type"`
			Message ChatEntry `json:"message"`
		}{"chatMessage", v.Message})
	case FullChatResponse:
		return json.Marshal(struct {
			Type string      `json:"type"`
			Chat []ChatEntry `json:"chat"`
		}{"fullChat", v.Chat})
	default:
		return nil, fmt.Errorf("duckchess: unknown response type %T", r)
	}
}

// ParsePlayResponse decodes a tagged server message, the inverse of
// MarshalPlayResponse, for use by clients.
func ParsePlayResponse(data []byte) (PlayResponse, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}

	switch head.Type {
	case "invalidRequest":
		return InvalidRequestResponse{}, nil
	case "gameState":
		var w struct {
			Board *Board `json:"board"`
		}
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		return GameStateResponse{Board: w.Board}, nil
	case "turnStart":
		var w struct {
			Turn       Player   `json:"turn"`
			MovePieces []Square `json:"movePieces"`
			Moves      [][]Move `json:"moves"`
		}
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		return TurnStartResponse{Turn: w.Turn, MovePieces: w.MovePieces, Moves: w.Moves}, nil
	case "move":
		var w struct {
			Moves []Move `json:"moves"`
		}
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		return MoveResponse{Moves: w.Moves}, nil
	case "end":
		var w struct {
			Winner string `json:"winner"`
		}
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		return EndResponse{Winner: w.Winner}, nil
	case "chatMessage":
		var w struct {
			Message ChatEntry `json:"message"`
		}
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		return ChatMessageResponse{Message: w.Message}, nil
	case "fullChat":
		var w struct {
			Chat []ChatEntry `json:"chat"`
		}
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		return FullChatResponse{Chat: w.Chat}, nil
	default:
		return nil, fmt.Errorf("duckchess: unknown response type %q", head.Type)
	}
}
