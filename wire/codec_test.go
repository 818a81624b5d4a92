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

package wire

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"github.com/sage-x-project/remoting/rpcerrors"
	"github.com/sage-x-project/remoting/serializer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func TestBuildAndDecrypt(t *testing.T) {
	ser := serializer.NewJSONSerializer()
	clientKey := mustRSAKey(t)
	serverKey := mustRSAKey(t)
	sharedSecret := []byte("0123456789abcdef0123456789abcdef")

	payload := MethodCallMessage{ServiceName: "Echo", MethodName: "Say"}

	t.Run("plaintext when no shared secret", func(t *testing.T) {
		msg, err := Build(TypeRPC, ser, payload, clientKey, nil, "call-1", false)
		require.NoError(t, err)
		assert.Nil(t, msg.IV)

		plaintext, err := Decrypt(msg, ser, nil, nil)
		require.NoError(t, err)

		var out MethodCallMessage
		require.NoError(t, ser.Deserialize(plaintext, &out))
		assert.Equal(t, payload, out)
	})

	t.Run("symmetric round trip", func(t *testing.T) {
		msg, err := Build(TypeRPC, ser, payload, clientKey, sharedSecret, "call-2", false)
		require.NoError(t, err)
		assert.NotNil(t, msg.IV)
		assert.Equal(t, "call-2", msg.UniqueCallKey)

		plaintext, err := Decrypt(msg, ser, sharedSecret, &clientKey.PublicKey)
		require.NoError(t, err)

		var out MethodCallMessage
		require.NoError(t, ser.Deserialize(plaintext, &out))
		assert.Equal(t, payload, out)
	})

	t.Run("wrong signer key fails verification", func(t *testing.T) {
		msg, err := Build(TypeRPC, ser, payload, clientKey, sharedSecret, "call-3", false)
		require.NoError(t, err)

		_, err = Decrypt(msg, ser, sharedSecret, &serverKey.PublicKey)
		require.Error(t, err)
		var rpcErr *rpcerrors.Error
		require.True(t, rpcerrors.As(err, &rpcErr))
		assert.Equal(t, rpcerrors.KindSecurity, rpcErr.Kind)
	})

	t.Run("wrong shared secret fails decryption", func(t *testing.T) {
		msg, err := Build(TypeRPC, ser, payload, clientKey, sharedSecret, "call-4", false)
		require.NoError(t, err)

		_, err = Decrypt(msg, ser, []byte("different-shared-secret-value!!"), &clientKey.PublicKey)
		require.Error(t, err)
		var rpcErr *rpcerrors.Error
		require.True(t, rpcerrors.As(err, &rpcErr))
		assert.Equal(t, rpcerrors.KindSecurity, rpcErr.Kind)
	})

	t.Run("error flag carried through", func(t *testing.T) {
		msg, err := Build(TypeRPCResult, ser, RemoteExceptionMessage{Message: "boom"}, clientKey, nil, "call-5", true)
		require.NoError(t, err)
		assert.True(t, msg.Error)
	})
}

func TestHandshakeSecretRoundTrip(t *testing.T) {
	ser := serializer.NewJSONSerializer()
	serverKey := mustRSAKey(t)
	clientKey := mustRSAKey(t)
	sessionID := []byte("11112222-3333-4444-5555-666677778888")

	msg, err := BuildHandshakeSecret(ser, sessionID, &clientKey.PublicKey, &serverKey.PublicKey, serverKey)
	require.NoError(t, err)
	assert.Equal(t, TypeCompleteHandshake, msg.MessageType)

	cleartext, err := DecryptHandshakeSecret(msg, ser, &serverKey.PublicKey, clientKey)
	require.NoError(t, err)
	assert.Equal(t, sessionID, cleartext)

	t.Run("wrong receiver key cannot unwrap", func(t *testing.T) {
		otherKey := mustRSAKey(t)
		_, err := DecryptHandshakeSecret(msg, ser, &serverKey.PublicKey, otherKey)
		require.Error(t, err)
		var rpcErr *rpcerrors.Error
		require.True(t, rpcerrors.As(err, &rpcErr))
		assert.Equal(t, rpcerrors.KindSecurity, rpcErr.Kind)
	})

	t.Run("tampered signer fails verification", func(t *testing.T) {
		impostorKey := mustRSAKey(t)
		_, err := DecryptHandshakeSecret(msg, ser, &impostorKey.PublicKey, clientKey)
		require.Error(t, err)
		var rpcErr *rpcerrors.Error
		require.True(t, rpcerrors.As(err, &rpcErr))
		assert.Equal(t, rpcerrors.KindSecurity, rpcErr.Kind)
	})
}
