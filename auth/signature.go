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
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	sagecrypto "github.com/sage-x-project/remoting/crypto"
	"github.com/sage-x-project/remoting/rpcerrors"
	"github.com/sage-x-project/remoting/session"
	"github.com/sage-x-project/remoting/wire"
)

func secondsToDuration(seconds int64) time.Duration {
	if seconds <= 0 {
		seconds = 300
	}
	return time.Duration(seconds) * time.Second
}

func deserializeChallengeSignature(data []byte) (*big.Int, *big.Int, error) {
	if len(data) != 64 {
		return nil, nil, sagecrypto.ErrInvalidSignature
	}
	r := new(big.Int).SetBytes(data[:32])
	s := new(big.Int).SetBytes(data[32:])
	return r, s, nil
}

// SignatureChallengeProvider authenticates a caller by verifying a
// signature over a server-issued nonce, giving public-key identities
// (Ed25519 or secp256k1) a password-free alternative to
// StaticCredentialProvider. The caller is expected to have retrieved its
// nonce out of band (e.g. via a prior unauthenticated call) before
// presenting the signed challenge here.
type SignatureChallengeProvider struct {
	mu       sync.RWMutex
	identity map[string]registeredKey // keyID -> key
	nonces   *session.NonceCache
}

type registeredKey struct {
	keyType   sagecrypto.KeyType
	publicKey []byte
	identity  wire.Identity
}

// NewSignatureChallengeProvider creates a provider that rejects replayed
// nonces seen within nonceTTL of each other.
func NewSignatureChallengeProvider(nonceTTL int64) *SignatureChallengeProvider {
	return &SignatureChallengeProvider{
		identity: make(map[string]registeredKey),
		nonces:   session.NewNonceCache(secondsToDuration(nonceTTL)),
	}
}

// RegisterKey associates a keyID with a raw public key (Ed25519: 32
// bytes; secp256k1: SEC1-compressed, 33 bytes) and the identity to grant
// on a valid signature.
func (p *SignatureChallengeProvider) RegisterKey(keyID string, keyType sagecrypto.KeyType, publicKey []byte, identity wire.Identity) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.identity[keyID] = registeredKey{keyType: keyType, publicKey: publicKey, identity: identity}
}

// Authenticate implements Provider. Expects credentials "key_id",
// "nonce", and "signature" (base64-standard encoded).
func (p *SignatureChallengeProvider) Authenticate(_ context.Context, credentials []wire.Credential) (wire.Identity, error) {
	keyID := credentialValue(credentials, "key_id")
	nonce := credentialValue(credentials, "nonce")
	sigB64 := credentialValue(credentials, "signature")
	if keyID == "" || nonce == "" || sigB64 == "" {
		return wire.Identity{}, rpcerrors.SecurityError("missing key_id, nonce, or signature credential", nil)
	}

	if p.nonces.Seen(keyID, nonce) {
		return wire.Identity{}, rpcerrors.SecurityError("replayed authentication nonce", nil)
	}

	p.mu.RLock()
	reg, ok := p.identity[keyID]
	p.mu.RUnlock()
	if !ok {
		return wire.Identity{}, rpcerrors.SecurityError("unknown key_id: "+keyID, nil)
	}

	signature, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		return wire.Identity{}, rpcerrors.SecurityError("decode signature", err)
	}

	if err := verifyChallenge(reg.keyType, reg.publicKey, []byte(nonce), signature); err != nil {
		return wire.Identity{}, rpcerrors.SecurityError("signature verification failed", err)
	}
	return reg.identity, nil
}

func verifyChallenge(keyType sagecrypto.KeyType, publicKey, message, signature []byte) error {
	switch keyType {
	case sagecrypto.KeyTypeEd25519:
		if len(publicKey) != ed25519.PublicKeySize {
			return fmt.Errorf("invalid ed25519 public key length: %d", len(publicKey))
		}
		if !ed25519.Verify(ed25519.PublicKey(publicKey), message, signature) {
			return sagecrypto.ErrInvalidSignature
		}
		return nil
	case sagecrypto.KeyTypeSecp256k1:
		pub, err := secp256k1.ParsePubKey(publicKey)
		if err != nil {
			return fmt.Errorf("parse secp256k1 public key: %w", err)
		}
		r, s, err := deserializeChallengeSignature(signature)
		if err != nil {
			return err
		}
		hash := sha256.Sum256(message)
		if !ecdsa.Verify(pub.ToECDSA(), hash[:], r, s) {
			return sagecrypto.ErrInvalidSignature
		}
		return nil
	default:
		return fmt.Errorf("unsupported signature key type: %s", keyType)
	}
}
