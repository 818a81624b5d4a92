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

package auth

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sagecrypto "github.com/sage-x-project/remoting/crypto"
	"github.com/sage-x-project/remoting/wire"
)

func TestStaticCredentialProviderAuthenticates(t *testing.T) {
	p := NewStaticCredentialProvider()
	require.NoError(t, p.AddUser("alice", "s3cret", wire.Identity{Name: "alice", Type: "user"}))

	identity, err := p.Authenticate(context.Background(), []wire.Credential{
		{Name: "username", Value: "alice"},
		{Name: "password", Value: "s3cret"},
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", identity.Name)
}

func TestStaticCredentialProviderRejectsWrongPassword(t *testing.T) {
	p := NewStaticCredentialProvider()
	require.NoError(t, p.AddUser("alice", "s3cret", wire.Identity{Name: "alice"}))

	_, err := p.Authenticate(context.Background(), []wire.Credential{
		{Name: "username", Value: "alice"},
		{Name: "password", Value: "wrong"},
	})
	assert.Error(t, err)
}

func TestStaticCredentialProviderRejectsUnknownUser(t *testing.T) {
	p := NewStaticCredentialProvider()
	_, err := p.Authenticate(context.Background(), []wire.Credential{
		{Name: "username", Value: "bob"},
		{Name: "password", Value: "x"},
	})
	assert.Error(t, err)
}

func TestJWTBearerProviderRS256(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	claims := jwt.MapClaims{"sub": "service-a", "iss": "remoting-tests", "exp": time.Now().Add(time.Hour).Unix()}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(priv)
	require.NoError(t, err)

	provider := NewJWTBearerProviderRS256(&priv.PublicKey, "remoting-tests", "")
	identity, err := provider.Authenticate(context.Background(), []wire.Credential{
		{Name: "token", Value: signed},
	})
	require.NoError(t, err)
	assert.Equal(t, "service-a", identity.Name)
	assert.Equal(t, "remoting-tests", identity.Domain)
}

func TestJWTBearerProviderRejectsBadSignature(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	otherPriv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	claims := jwt.MapClaims{"sub": "service-a", "exp": time.Now().Add(time.Hour).Unix()}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(otherPriv)
	require.NoError(t, err)

	provider := NewJWTBearerProviderRS256(&priv.PublicKey, "", "")
	_, err = provider.Authenticate(context.Background(), []wire.Credential{{Name: "token", Value: signed}})
	assert.Error(t, err)
}

func TestSignatureChallengeProviderVerifiesEd25519(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	provider := NewSignatureChallengeProvider(60)
	provider.RegisterKey("key-1", sagecrypto.KeyTypeEd25519, pub, wire.Identity{Name: "agent-1"})

	nonce := "challenge-nonce-1"
	sig := ed25519.Sign(priv, []byte(nonce))

	identity, err := provider.Authenticate(context.Background(), []wire.Credential{
		{Name: "key_id", Value: "key-1"},
		{Name: "nonce", Value: nonce},
		{Name: "signature", Value: base64.StdEncoding.EncodeToString(sig)},
	})
	require.NoError(t, err)
	assert.Equal(t, "agent-1", identity.Name)
}

func TestSignatureChallengeProviderRejectsReplay(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	provider := NewSignatureChallengeProvider(60)
	provider.RegisterKey("key-1", sagecrypto.KeyTypeEd25519, pub, wire.Identity{Name: "agent-1"})

	nonce := "challenge-nonce-2"
	sig := ed25519.Sign(priv, []byte(nonce))
	creds := []wire.Credential{
		{Name: "key_id", Value: "key-1"},
		{Name: "nonce", Value: nonce},
		{Name: "signature", Value: base64.StdEncoding.EncodeToString(sig)},
	}

	_, err = provider.Authenticate(context.Background(), creds)
	require.NoError(t, err)

	_, err = provider.Authenticate(context.Background(), creds)
	assert.Error(t, err)
}

func TestSignatureChallengeProviderRejectsUnknownKey(t *testing.T) {
	provider := NewSignatureChallengeProvider(60)
	_, err := provider.Authenticate(context.Background(), []wire.Credential{
		{Name: "key_id", Value: "missing"},
		{Name: "nonce", Value: "n"},
		{Name: "signature", Value: base64.StdEncoding.EncodeToString([]byte("not-a-real-sig-not-a-real-sig!!"))},
	})
	assert.Error(t, err)
}
