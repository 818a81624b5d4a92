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
	"log"

	sagecrypto "github.com/sage-x-project/remoting/crypto"
)

// init registers all supported cryptographic algorithms
func init() {
	// Register Ed25519 (alternate client authentication signature algorithm)
	if err := sagecrypto.RegisterAlgorithm(sagecrypto.AlgorithmInfo{
		KeyType:               sagecrypto.KeyTypeEd25519,
		Name:                  "Ed25519",
		Description:           "Edwards-curve Digital Signature Algorithm using Curve25519",
		SupportsKeyGeneration: true,
		SupportsSignature:     true,
		SupportsEncryption:    false,
	}); err != nil {
		log.Fatalf("Failed to register Ed25519 algorithm: %v", err)
	}

	// Register Secp256k1 (alternate client authentication signature algorithm)
	if err := sagecrypto.RegisterAlgorithm(sagecrypto.AlgorithmInfo{
		KeyType:               sagecrypto.KeyTypeSecp256k1,
		Name:                  "Secp256k1",
		Description:           "ECDSA with the secp256k1 curve",
		SupportsKeyGeneration: true,
		SupportsSignature:     true,
		SupportsEncryption:    false,
	}); err != nil {
		log.Fatalf("Failed to register Secp256k1 algorithm: %v", err)
	}

	// Register X25519 (key exchange only, not used for signing)
	if err := sagecrypto.RegisterAlgorithm(sagecrypto.AlgorithmInfo{
		KeyType:               sagecrypto.KeyTypeX25519,
		Name:                  "X25519",
		Description:           "Elliptic Curve Diffie-Hellman (ECDH) key exchange using Curve25519",
		SupportsKeyGeneration: true,
		SupportsSignature:     false,
		SupportsEncryption:    true,
	}); err != nil {
		log.Fatalf("Failed to register X25519 algorithm: %v", err)
	}

	// Register RSA: the wire handshake's envelope and signature algorithm.
	if err := sagecrypto.RegisterAlgorithm(sagecrypto.AlgorithmInfo{
		KeyType:               sagecrypto.KeyTypeRSA,
		Name:                  "RSA-PKCS1-SHA256",
		Description:           "RSA with PKCS#1 v1.5 padding and SHA-256, used for wire signatures and key wrapping",
		SupportsKeyGeneration: true,
		SupportsSignature:     true,
		SupportsEncryption:    true,
	}); err != nil {
		log.Fatalf("Failed to register RSA algorithm: %v", err)
	}
}
