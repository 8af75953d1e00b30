// go-cardloop
// Copyright (c) 2026 The Cardloop Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-cardloop.
//
// go-cardloop is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-cardloop is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-cardloop; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package badge

import (
	"testing"

	cardloop "github.com/CardloopProject/go-cardloop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRuleset(t *testing.T) {
	t.Parallel()

	rs := DefaultRuleset()
	assert.Equal(t, 2, rs.Len())
	assert.Equal(t, DecisionGrant, rs.Lookup([]byte{0x20, 0x00, 0x01, 0xE4}))
	assert.Equal(t, DecisionDeny, rs.Lookup([]byte{0x1D, 0x7D, 0xCD, 0x73}))
	assert.Equal(t, DecisionUnknown, rs.Lookup([]byte{0xDE, 0xAD, 0xBE, 0xEF}))
}

func TestRuleset_FirstMatchWins(t *testing.T) {
	t.Parallel()

	rs := NewRuleset()
	uid := []byte{0x01, 0x02, 0x03, 0x04}
	require.NoError(t, rs.Add(uid, DecisionDeny))
	require.NoError(t, rs.Add(uid, DecisionGrant))

	assert.Equal(t, DecisionDeny, rs.Lookup(uid))
}

func TestRuleset_AddValidation(t *testing.T) {
	t.Parallel()

	rs := NewRuleset()

	err := rs.Add(nil, DecisionGrant)
	require.Error(t, err)
	assert.ErrorIs(t, err, cardloop.ErrInvalidParameter)

	err = rs.Add([]byte{0x01}, Decision("maybe"))
	require.Error(t, err)
	assert.ErrorIs(t, err, cardloop.ErrInvalidParameter)

	assert.Equal(t, 0, rs.Len())
}

func TestRuleset_AddCopiesUID(t *testing.T) {
	t.Parallel()

	rs := NewRuleset()
	uid := []byte{0x01, 0x02, 0x03, 0x04}
	require.NoError(t, rs.Add(uid, DecisionGrant))

	uid[0] = 0xFF
	assert.Equal(t, DecisionGrant, rs.Lookup([]byte{0x01, 0x02, 0x03, 0x04}))
	assert.Equal(t, DecisionUnknown, rs.Lookup(uid))
}

func TestRuleset_AddHex(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		uid     string
		wantErr bool
	}{
		{name: "plain hex", uid: "200001E4"},
		{name: "lowercase", uid: "1d7dcd73"},
		{name: "colon separated", uid: "04:AB:CD:EF:12:34:56"},
		{name: "dash separated", uid: "04-AB-CD-EF"},
		{name: "space separated", uid: "20 00 01 E4"},
		{name: "bad hex", uid: "zz00", wantErr: true},
		{name: "odd length", uid: "200", wantErr: true},
		{name: "empty", uid: "", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rs := NewRuleset()
			err := rs.AddHex(tt.uid, DecisionGrant)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, cardloop.ErrInvalidParameter)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 1, rs.Len())
		})
	}
}

func TestRuleset_AddHexLookup(t *testing.T) {
	t.Parallel()

	rs := NewRuleset()
	require.NoError(t, rs.AddHex("20:00:01:e4", DecisionGrant))
	assert.Equal(t, DecisionGrant, rs.Lookup([]byte{0x20, 0x00, 0x01, 0xE4}))
}
