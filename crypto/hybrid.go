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

package crypto

import (
	"bytes"
	stdcrypto "crypto"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"errors"
	"fmt"
)

// EncryptedSecret is the asymmetric-handshake envelope: a fresh AES-256 key
// wrapped under the receiver's RSA public key, the IV for that key, the
// ciphertext it protects, and the sender's public key blob (PKIX DER) so the
// receiver can verify a detached signature carried alongside it on the wire.
type EncryptedSecret struct {
	EncryptedSessionKey []byte
	IV                  []byte
	EncryptedMessage    []byte
	SendersPublicKeyBlob []byte
}

var (
	// ErrCiphertextTooShort is returned when AES-CBC input isn't block-aligned.
	ErrCiphertextTooShort = errors.New("ciphertext too short or not block-aligned")
	// ErrInvalidPadding is returned when PKCS7 unpadding finds a malformed trailer.
	ErrInvalidPadding = errors.New("invalid PKCS7 padding")
)

// pkcs7Pad pads data to a multiple of blockSize per PKCS#7.
func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - (len(data) % blockSize)
	padding := bytes.Repeat([]byte{byte(padLen)}, padLen)
	return append(data, padding...)
}

// pkcs7Unpad removes and validates PKCS#7 padding.
func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	n := len(data)
	if n == 0 || n%blockSize != 0 {
		return nil, ErrInvalidPadding
	}
	padLen := int(data[n-1])
	if padLen == 0 || padLen > blockSize || padLen > n {
		return nil, ErrInvalidPadding
	}
	for _, b := range data[n-padLen:] {
		if int(b) != padLen {
			return nil, ErrInvalidPadding
		}
	}
	return data[:n-padLen], nil
}

// aesCBCEncrypt encrypts plaintext with AES-CBC and PKCS7 padding under the
// given key and IV. key must be 16/24/32 bytes; iv must be aes.BlockSize.
func aesCBCEncrypt(key, iv, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes: %w", err)
	}
	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("aes: iv must be %d bytes", aes.BlockSize)
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	mode := cipher.NewCBCEncrypter(block, iv)
	mode.CryptBlocks(ciphertext, padded)
	return ciphertext, nil
}

// aesCBCDecrypt decrypts ciphertext produced by aesCBCEncrypt.
func aesCBCDecrypt(key, iv, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes: %w", err)
	}
	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("aes: iv must be %d bytes", aes.BlockSize)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, ErrCiphertextTooShort
	}

	plaintext := make([]byte, len(ciphertext))
	mode := cipher.NewCBCDecrypter(block, iv)
	mode.CryptBlocks(plaintext, ciphertext)

	return pkcs7Unpad(plaintext, aes.BlockSize)
}

// DeriveSharedKey turns a session's raw shared secret (the 16 UUID bytes)
// into the AES-256 key used for symmetric traffic after handshake.
func DeriveSharedKey(sharedSecret []byte) []byte {
	sum := sha256.Sum256(sharedSecret)
	return sum[:]
}

// EncryptSymmetric AES-CBC-PKCS7 encrypts plaintext under a derived shared
// key with a freshly generated IV, returning the ciphertext and the IV used.
func EncryptSymmetric(sharedSecret, plaintext []byte) (ciphertext, iv []byte, err error) {
	key := DeriveSharedKey(sharedSecret)
	iv = make([]byte, aes.BlockSize)
	if _, err = rand.Read(iv); err != nil {
		return nil, nil, fmt.Errorf("generate iv: %w", err)
	}
	ciphertext, err = aesCBCEncrypt(key, iv, plaintext)
	return ciphertext, iv, err
}

// DecryptSymmetric is the inverse of EncryptSymmetric.
func DecryptSymmetric(sharedSecret, iv, ciphertext []byte) ([]byte, error) {
	key := DeriveSharedKey(sharedSecret)
	return aesCBCDecrypt(key, iv, ciphertext)
}

// EncryptSecret builds an EncryptedSecret: a fresh AES-256 key wraps
// cleartext, and that key is itself wrapped under the receiver's RSA public
// key via PKCS1v15. senderPublic is embedded so the receiver can verify a
// detached signature carried alongside this struct on the wire.
func EncryptSecret(receiverPublic *rsa.PublicKey, cleartext []byte, senderPublic *rsa.PublicKey) (*EncryptedSecret, error) {
	if receiverPublic == nil {
		return nil, fmt.Errorf("receiver public key is nil")
	}

	symKey := make([]byte, 32) // AES-256
	if _, err := rand.Read(symKey); err != nil {
		return nil, fmt.Errorf("generate symmetric key: %w", err)
	}
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("generate iv: %w", err)
	}

	wrappedKey, err := rsa.EncryptPKCS1v15(rand.Reader, receiverPublic, symKey)
	if err != nil {
		return nil, fmt.Errorf("wrap symmetric key: %w", err)
	}

	encrypted, err := aesCBCEncrypt(symKey, iv, cleartext)
	if err != nil {
		return nil, fmt.Errorf("encrypt message: %w", err)
	}

	var senderBlob []byte
	if senderPublic != nil {
		senderBlob, err = x509.MarshalPKIXPublicKey(senderPublic)
		if err != nil {
			return nil, fmt.Errorf("marshal sender public key: %w", err)
		}
	}

	return &EncryptedSecret{
		EncryptedSessionKey: wrappedKey,
		IV:                  iv,
		EncryptedMessage:    encrypted,
		SendersPublicKeyBlob: senderBlob,
	}, nil
}

// DecryptSecret unwraps the symmetric key with receiverPrivate and decrypts
// the message. It is the inverse of EncryptSecret.
func DecryptSecret(receiverPrivate *rsa.PrivateKey, secret *EncryptedSecret) ([]byte, error) {
	if receiverPrivate == nil {
		return nil, fmt.Errorf("receiver private key is nil")
	}
	if secret == nil {
		return nil, fmt.Errorf("secret is nil")
	}

	symKey, err := rsa.DecryptPKCS1v15(rand.Reader, receiverPrivate, secret.EncryptedSessionKey)
	if err != nil {
		return nil, fmt.Errorf("unwrap symmetric key: %w", err)
	}

	return aesCBCDecrypt(symKey, secret.IV, secret.EncryptedMessage)
}

// Sign produces an RSA-PKCS1v15 signature over SHA-256(raw).
func Sign(privateKey *rsa.PrivateKey, raw []byte) ([]byte, error) {
	if privateKey == nil {
		return nil, fmt.Errorf("private key is nil")
	}
	hash := sha256.Sum256(raw)
	return rsa.SignPKCS1v15(rand.Reader, privateKey, stdcrypto.SHA256, hash[:])
}

// Verify checks an RSA-PKCS1v15 signature over SHA-256(raw) produced by Sign.
// Returns ErrInvalidSignature on mismatch, matching the rest of the package.
func Verify(publicKey *rsa.PublicKey, raw, signature []byte) error {
	if publicKey == nil {
		return fmt.Errorf("public key is nil")
	}
	hash := sha256.Sum256(raw)
	if err := rsa.VerifyPKCS1v15(publicKey, stdcrypto.SHA256, hash[:], signature); err != nil {
		return ErrInvalidSignature
	}
	return nil
}

// ParsePublicKeyBlob decodes a PKIX DER public key blob into an *rsa.PublicKey.
func ParsePublicKeyBlob(blob []byte) (*rsa.PublicKey, error) {
	pub, err := x509.ParsePKIXPublicKey(blob)
	if err != nil {
		return nil, fmt.Errorf("parse public key blob: %w", err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key blob is not RSA: %T", pub)
	}
	return rsaPub, nil
}

// MarshalPublicKeyBlob encodes an RSA public key as a PKIX DER blob, the
// on-wire representation exchanged during handshake.
func MarshalPublicKeyBlob(pub *rsa.PublicKey) ([]byte, error) {
	blob, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("marshal public key blob: %w", err)
	}
	return blob, nil
}
