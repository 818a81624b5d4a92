// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package delegate

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRandomKey() uuid.UUID {
	return uuid.New()
}

func TestClientDelegateRegistry(t *testing.T) {
	reg := NewClientDelegateRegistry()

	var called [][]byte
	key := reg.Register(func(args [][]byte) { called = args }, ProxyID("proxy-1"))

	handler, ok := reg.Lookup(key)
	require.True(t, ok)
	handler([][]byte{[]byte("hello")})
	assert.Equal(t, [][]byte{[]byte("hello")}, called)
}

func TestLookupMiss(t *testing.T) {
	reg := NewClientDelegateRegistry()
	_, ok := reg.Lookup(mustRandomKey())
	assert.False(t, ok)
}

func TestUnregisterAllOf(t *testing.T) {
	reg := NewClientDelegateRegistry()

	k1 := reg.Register(func(args [][]byte) {}, ProxyID("proxy-1"))
	k2 := reg.Register(func(args [][]byte) {}, ProxyID("proxy-1"))
	k3 := reg.Register(func(args [][]byte) {}, ProxyID("proxy-2"))

	reg.UnregisterAllOf(ProxyID("proxy-1"))

	_, ok := reg.Lookup(k1)
	assert.False(t, ok)
	_, ok = reg.Lookup(k2)
	assert.False(t, ok)
	_, ok = reg.Lookup(k3)
	assert.True(t, ok, "other proxy's handlers are untouched")
}
