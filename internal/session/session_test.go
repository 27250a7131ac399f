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

package session

import "testing"

func TestCloseReasonFor(t *testing.T) {
	cases := []struct {
		name   string
		reason exitReason
		want   string
	}{
		{"explicit close message wins", exitReason{closeMsg: "game ended", surrender: true}, "game ended"},
		{"surrender without close message", exitReason{surrender: true}, "client disconnected"},
		{"neither set", exitReason{}, "server closed"},
		{"allow reconnect alone does not change the message", exitReason{allowReconnect: true}, "server closed"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := closeReasonFor(c.reason); got != c.want {
				t.Errorf("closeReasonFor(%+v) = %q, want %q", c.reason, got, c.want)
			}
		})
	}
}

func TestChoosePermutationIsOverridable(t *testing.T) {
	orig := choosePermutation
	defer func() { choosePermutation = orig }()

	choosePermutation = func() bool { return true }
	if !choosePermutation() {
		t.Error("expected overridden choosePermutation to return true")
	}
}
