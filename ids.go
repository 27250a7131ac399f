// Time-ordered identifiers
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

import "github.com/google/uuid"

// NewId returns a fresh time-ordered (UUIDv7) identifier, used for
// games, users and disconnect snowflakes so that two ids from the
// same process sort in generation order.
func NewId() string {
	id, err := uuid.NewV7()
	if err != nil {
		// uuid.NewV7 only fails if the system entropy source is
		// broken; fall back to a random v4 rather than panic the
		// caller's request path.
		return uuid.New().String()
	}
	return id.String()
}
