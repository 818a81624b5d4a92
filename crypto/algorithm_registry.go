package crypto

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"fmt"
	"sort"
	"sync"
)

// AlgorithmInfo describes a signature/key-agreement algorithm supported by
// the crypto package and what a key pair of that type can be used for.
type AlgorithmInfo struct {
	KeyType               KeyType
	Name                  string
	Description           string
	SupportsKeyGeneration bool
	SupportsSignature     bool
	SupportsEncryption    bool
}

var (
	registryMu sync.RWMutex
	registry   = make(map[KeyType]*AlgorithmInfo)
)

// RegisterAlgorithm registers metadata for a key type. Called from each
// keys subpackage's init() so the registry reflects only the algorithms
// actually linked into the binary.
func RegisterAlgorithm(info AlgorithmInfo) error {
	if info.KeyType == "" {
		return fmt.Errorf("algorithm key type must not be empty")
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	registry[info.KeyType] = &info
	return nil
}

// GetAlgorithmInfo returns the registered metadata for a key type.
func GetAlgorithmInfo(keyType KeyType) (*AlgorithmInfo, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	info, ok := registry[keyType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidKeyType, keyType)
	}
	return info, nil
}

// ListSupportedAlgorithms returns the key types of every registered algorithm,
// sorted for deterministic output.
func ListSupportedAlgorithms() []KeyType {
	registryMu.RLock()
	defer registryMu.RUnlock()

	types := make([]string, 0, len(registry))
	byName := make(map[string]KeyType, len(registry))
	for kt := range registry {
		types = append(types, string(kt))
		byName[string(kt)] = kt
	}
	sort.Strings(types)

	out := make([]KeyType, 0, len(types))
	for _, t := range types {
		out = append(out, byName[t])
	}
	return out
}

// SupportsKeyGeneration reports whether the key type can generate fresh keys.
func SupportsKeyGeneration(keyType KeyType) bool {
	info, err := GetAlgorithmInfo(keyType)
	return err == nil && info.SupportsKeyGeneration
}

// SupportsSignature reports whether the key type can sign/verify.
func SupportsSignature(keyType KeyType) bool {
	info, err := GetAlgorithmInfo(keyType)
	return err == nil && info.SupportsSignature
}

// SupportsEncryption reports whether the key type participates in
// confidentiality operations (RSA wrapping, ECDH key agreement).
func SupportsEncryption(keyType KeyType) bool {
	info, err := GetAlgorithmInfo(keyType)
	return err == nil && info.SupportsEncryption
}

// IsAlgorithmSupported reports whether any metadata is registered for keyType.
func IsAlgorithmSupported(keyType KeyType) bool {
	_, err := GetAlgorithmInfo(keyType)
	return err == nil
}

// GetKeyTypeFromPublicKey infers a KeyType from a concrete stdlib public key
// value, for callers that only have a crypto.PublicKey handed to them off
// the wire (e.g. a peer's public key blob) and need to dispatch on it.
func GetKeyTypeFromPublicKey(pub interface{}) (KeyType, error) {
	switch pub.(type) {
	case ed25519.PublicKey:
		return KeyTypeEd25519, nil
	case *ecdsa.PublicKey:
		return KeyTypeSecp256k1, nil
	case *rsa.PublicKey:
		return KeyTypeRSA, nil
	default:
		return "", fmt.Errorf("%w: unrecognized public key type %T", ErrInvalidKeyType, pub)
	}
}
