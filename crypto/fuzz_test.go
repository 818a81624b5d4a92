package crypto

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"testing"
)

// publicKeyBytes extracts a comparable byte representation of a public key
// for the key types this package's fuzz corpus exercises.
func publicKeyBytes(kp KeyPair) []byte {
	switch pub := kp.PublicKey().(type) {
	case ed25519.PublicKey:
		return pub
	case *rsa.PublicKey:
		return pub.N.Bytes()
	case *ecdsa.PublicKey:
		return append(pub.X.Bytes(), pub.Y.Bytes()...)
	default:
		return nil
	}
}

// FuzzKeyPairGeneration fuzzes key pair generation across key types.
func FuzzKeyPairGeneration(f *testing.F) {
	f.Add(uint8(0))
	f.Add(uint8(1))
	f.Add(uint8(2))

	mgr := NewManager()

	f.Fuzz(func(t *testing.T, keyTypeByte uint8) {
		var keyType KeyType
		switch keyTypeByte % 3 {
		case 0:
			keyType = KeyTypeEd25519
		case 1:
			keyType = KeyTypeSecp256k1
		case 2:
			keyType = KeyTypeRSA
		}

		keyPair, err := mgr.GenerateKeyPair(keyType)
		if err != nil {
			t.Fatalf("failed to generate key pair: %v", err)
		}

		if keyPair.PublicKey() == nil {
			t.Fatal("public key is nil")
		}

		if keyPair.Type() != keyType {
			t.Fatalf("key type mismatch: expected %s, got %s", keyType, keyPair.Type())
		}
	})
}

// FuzzSignAndVerify fuzzes signing and verification with an Ed25519 key.
func FuzzSignAndVerify(f *testing.F) {
	f.Add([]byte("hello"))
	f.Add([]byte(""))
	f.Add([]byte("a"))
	f.Add(make([]byte, 1024))

	keyPair, _ := NewManager().GenerateKeyPair(KeyTypeEd25519)

	f.Fuzz(func(t *testing.T, message []byte) {
		signature, err := keyPair.Sign(message)
		if err != nil {
			t.Fatalf("failed to sign message: %v", err)
		}

		if err := keyPair.Verify(message, signature); err != nil {
			t.Fatalf("failed to verify valid signature: %v", err)
		}

		if len(message) > 0 {
			modifiedMessage := make([]byte, len(message))
			copy(modifiedMessage, message)
			modifiedMessage[0] ^= 0xFF

			if err := keyPair.Verify(modifiedMessage, signature); err == nil {
				t.Fatal("verification succeeded for modified message")
			}
		}

		if len(signature) > 0 {
			modifiedSignature := make([]byte, len(signature))
			copy(modifiedSignature, signature)
			modifiedSignature[0] ^= 0xFF

			if err := keyPair.Verify(message, modifiedSignature); err == nil {
				t.Fatal("verification succeeded for modified signature")
			}
		}
	})
}

// FuzzKeyExportImport fuzzes key export and import via JWK and PEM.
func FuzzKeyExportImport(f *testing.F) {
	f.Add(uint8(0))
	f.Add(uint8(1))

	mgr := NewManager()

	f.Fuzz(func(t *testing.T, keyTypeByte uint8) {
		var keyType KeyType
		if keyTypeByte%2 == 0 {
			keyType = KeyTypeEd25519
		} else {
			keyType = KeyTypeSecp256k1
		}

		original, err := mgr.GenerateKeyPair(keyType)
		if err != nil {
			t.Fatalf("failed to generate key pair: %v", err)
		}

		jwk, err := mgr.ExportKeyPair(original, KeyFormatJWK)
		if err != nil {
			t.Fatalf("failed to export JWK: %v", err)
		}
		importedJWK, err := mgr.ImportKeyPair(jwk, KeyFormatJWK)
		if err != nil {
			t.Fatalf("failed to import JWK: %v", err)
		}
		if !equalBytes(publicKeyBytes(original), publicKeyBytes(importedJWK)) {
			t.Fatal("public keys don't match after JWK round-trip")
		}

		pem, err := mgr.ExportKeyPair(original, KeyFormatPEM)
		if err != nil {
			t.Fatalf("failed to export PEM: %v", err)
		}
		importedPEM, err := mgr.ImportKeyPair(pem, KeyFormatPEM)
		if err != nil {
			t.Fatalf("failed to import PEM: %v", err)
		}
		if !equalBytes(publicKeyBytes(original), publicKeyBytes(importedPEM)) {
			t.Fatal("public keys don't match after PEM round-trip")
		}
	})
}

// FuzzSignatureWithDifferentKeys fuzzes signature verification across keys.
func FuzzSignatureWithDifferentKeys(f *testing.F) {
	f.Add([]byte("message"))

	mgr := NewManager()
	keyPair1, _ := mgr.GenerateKeyPair(KeyTypeEd25519)
	keyPair2, _ := mgr.GenerateKeyPair(KeyTypeEd25519)

	f.Fuzz(func(t *testing.T, message []byte) {
		signature, err := keyPair1.Sign(message)
		if err != nil {
			t.Fatalf("failed to sign: %v", err)
		}

		if err := keyPair2.Verify(message, signature); err == nil {
			t.Fatal("verification succeeded with wrong key")
		}

		if err := keyPair1.Verify(message, signature); err != nil {
			t.Fatalf("verification failed with correct key: %v", err)
		}
	})
}

// FuzzInvalidSignatureData fuzzes verification with malformed signature data.
func FuzzInvalidSignatureData(f *testing.F) {
	f.Add([]byte("message"), []byte("invalid"))
	f.Add([]byte("test"), []byte(""))
	f.Add([]byte(""), []byte("sig"))

	keyPair, _ := NewManager().GenerateKeyPair(KeyTypeEd25519)

	f.Fuzz(func(t *testing.T, message, invalidSig []byte) {
		// Verification of malformed input must return an error, never panic.
		_ = keyPair.Verify(message, invalidSig)
	})
}

// FuzzHybridSecretRoundTrip fuzzes the RSA-wrapped AES-CBC handshake secret
// used by the wire encryption layer: EncryptSecret must always produce
// something DecryptSecret can recover, for any plaintext.
func FuzzHybridSecretRoundTrip(f *testing.F) {
	f.Add([]byte("handshake payload"))
	f.Add([]byte(""))
	f.Add(make([]byte, 4096))

	mgr := NewManager()
	receiverKP, _ := mgr.GenerateKeyPair(KeyTypeRSA)
	senderKP, _ := mgr.GenerateKeyPair(KeyTypeRSA)
	receiverPriv := receiverKP.PrivateKey().(*rsa.PrivateKey)
	receiverPub := receiverKP.PublicKey().(*rsa.PublicKey)
	senderPub := senderKP.PublicKey().(*rsa.PublicKey)

	f.Fuzz(func(t *testing.T, plaintext []byte) {
		secret, err := EncryptSecret(receiverPub, plaintext, senderPub)
		if err != nil {
			t.Fatalf("failed to encrypt secret: %v", err)
		}

		decrypted, err := DecryptSecret(receiverPriv, secret)
		if err != nil {
			t.Fatalf("failed to decrypt secret: %v", err)
		}
		if !equalBytes(plaintext, decrypted) {
			t.Fatal("round-tripped plaintext does not match original")
		}
	})
}

func equalBytes(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
