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

	"github.com/sage-x-project/remoting/rpcerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForgeCachesBySameHandlerKey(t *testing.T) {
	f := NewServerFactory()
	key := mustRandomKey()

	var invoked int
	first, err := f.Forge(key, "Action", func(args [][]byte) { invoked++ })
	require.NoError(t, err)

	second, err := f.Forge(key, "Action", func(args [][]byte) { invoked += 100 })
	require.NoError(t, err)

	assert.Same(t, first, second, "same handler key must forge the same proxy identity")

	second.Invoke(nil)
	assert.Equal(t, 1, invoked, "cached proxy keeps the original callback")
}

func TestForgeRejectsNonVoidDelegateType(t *testing.T) {
	f := NewServerFactory()
	_, err := f.Forge(mustRandomKey(), "Func[int]", func(args [][]byte) {})
	require.Error(t, err)

	var rpcErr *rpcerrors.Error
	require.True(t, rpcerrors.As(err, &rpcErr))
	assert.Equal(t, rpcerrors.KindNotSupported, rpcErr.Kind)
}

func TestReleaseAllowsRefoge(t *testing.T) {
	f := NewServerFactory()
	key := mustRandomKey()

	first, err := f.Forge(key, "Action", func(args [][]byte) {})
	require.NoError(t, err)

	f.Release(key)

	second, err := f.Forge(key, "Action", func(args [][]byte) {})
	require.NoError(t, err)

	assert.NotSame(t, first, second)
}

func TestRegisterVoidDelegateType(t *testing.T) {
	f := NewServerFactory()
	RegisterVoidDelegateType("CustomCallback")

	_, err := f.Forge(mustRandomKey(), "CustomCallback", func(args [][]byte) {})
	assert.NoError(t, err)
}
