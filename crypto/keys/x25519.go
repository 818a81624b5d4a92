// SAGE - Secure Agent Guarantee Engine
// Copyright (C) 2025 SAGE-X-project
//
// This file is part of SAGE.
//
// SAGE is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SAGE is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with SAGE. If not, see <https://www.gnu.org/licenses/>.


package keys

import (
	"crypto"
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	sagecrypto "github.com/sage-x-project/remoting/crypto"
)

// X25519KeyPair holds an X25519 private key and its corresponding public key.
// It is carried by the key registry as a key-agreement alternative; it is
// never used by the wire handshake, which is RSA-only.
type X25519KeyPair struct {
	privateKey *ecdh.PrivateKey
	publicKey  *ecdh.PublicKey
	id         string
}

// GenerateX25519KeyPair generates a new X25519 key pair.
func GenerateX25519KeyPair() (sagecrypto.KeyPair, error) {
	privateKey, err := ecdh.X25519().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate X25519 key: %w", err)
	}
	publicKey := privateKey.PublicKey()

	hash := sha256.Sum256(publicKey.Bytes())
	id := hex.EncodeToString(hash[:8])

	return &X25519KeyPair{
		privateKey: privateKey,
		publicKey:  publicKey,
		id:         id,
	}, nil
}

// PublicKey returns the public key.
func (kp *X25519KeyPair) PublicKey() crypto.PublicKey {
	return kp.publicKey
}

// PublicBytesKey returns the raw public key bytes.
func (kp *X25519KeyPair) PublicBytesKey() []byte {
	return kp.publicKey.Bytes()
}

// PrivateKey returns the private key.
func (kp *X25519KeyPair) PrivateKey() crypto.PrivateKey {
	return kp.privateKey
}

// Type returns the key type.
func (kp *X25519KeyPair) Type() sagecrypto.KeyType {
	return sagecrypto.KeyTypeX25519
}

// ID returns a unique identifier for this key pair.
func (kp *X25519KeyPair) ID() string {
	return kp.id
}

// Sign returns an error: X25519 is a key-agreement algorithm, not a
// signature algorithm. Use Ed25519 or RSA keys for signing.
func (kp *X25519KeyPair) Sign(message []byte) ([]byte, error) {
	return nil, sagecrypto.ErrSignNotSupported
}

// Verify returns an error: X25519 does not support signature verification.
func (kp *X25519KeyPair) Verify(message, signature []byte) error {
	return sagecrypto.ErrVerifyNotSupported
}

// DeriveSharedSecret computes a 32-byte key from an X25519 ECDH exchange
// between this key pair's private key and a peer's public key bytes.
func (kp *X25519KeyPair) DeriveSharedSecret(peerPubBytes []byte) ([]byte, error) {
	peerPub, err := ecdh.X25519().NewPublicKey(peerPubBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse peer public key: %w", err)
	}

	shared, err := kp.privateKey.ECDH(peerPub)
	if err != nil {
		return nil, fmt.Errorf("failed to compute shared secret: %w", err)
	}

	sum := sha256.Sum256(shared)
	return sum[:], nil
}

// Encrypt performs ECIES-style encryption: it derives a shared key with
// recipientPub via ECDH and seals plaintext under AES-256-GCM.
func (kp *X25519KeyPair) Encrypt(recipientPub []byte, plaintext []byte) (nonce, ciphertext []byte, err error) {
	key, err := kp.DeriveSharedSecret(recipientPub)
	if err != nil {
		return nil, nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, err
	}
	nonce = make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, err
	}
	ciphertext = aead.Seal(nil, nonce, plaintext, nil)
	return nonce, ciphertext, nil
}

// Decrypt reverses Encrypt given the peer's ephemeral public key, nonce and
// ciphertext.
func (kp *X25519KeyPair) Decrypt(peerPub, nonce, ciphertext []byte) ([]byte, error) {
	key, err := kp.DeriveSharedSecret(peerPub)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return aead.Open(nil, nonce, ciphertext, nil)
}
