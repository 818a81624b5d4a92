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

package storage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"

	sagecrypto "github.com/sage-x-project/remoting/crypto"
	"github.com/sage-x-project/remoting/crypto/formats"
)

var (
	ErrInvalidPassphrase = errors.New("invalid passphrase")
	ErrInvalidKeyID       = errors.New("invalid key id")
)

const pbkdf2Iterations = 100000

// encryptedKeyFile is the on-disk encrypted representation of one stored
// key pair: its PEM-encoded private key blob, AES-256-GCM encrypted under a
// PBKDF2-derived key.
type encryptedKeyFile struct {
	Version    string    `json:"version"`
	KeyID      string    `json:"key_id"`
	KeyType    string    `json:"key_type"`
	Algorithm  string    `json:"algorithm"`
	Salt       string    `json:"salt"`
	Nonce      string    `json:"nonce"`
	Ciphertext string    `json:"ciphertext"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// FileVault is a crypto.KeyStorage backend that persists a server's
// long-lived identity key pair(s) encrypted at rest on the filesystem.
// It is used for the server's own handshake RSA key pair; it is never used
// for session state, which the spec explicitly excludes from persistence.
type FileVault struct {
	basePath   string
	passphrase []byte
	mu         sync.RWMutex
}

// NewFileVault creates a vault rooted at basePath, encrypting every stored
// key pair under passphrase.
func NewFileVault(basePath, passphrase string) (*FileVault, error) {
	if err := os.MkdirAll(basePath, 0700); err != nil {
		return nil, fmt.Errorf("create vault directory: %w", err)
	}
	if passphrase == "" {
		return nil, fmt.Errorf("vault passphrase must not be empty")
	}
	return &FileVault{
		basePath:   basePath,
		passphrase: []byte(passphrase),
	}, nil
}

// Store encrypts and persists keyPair's PEM-encoded private key under id.
func (v *FileVault) Store(id string, keyPair sagecrypto.KeyPair) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if id == "" {
		return ErrInvalidKeyID
	}

	pemBytes, err := formats.NewPEMExporter().Export(keyPair, sagecrypto.KeyFormatPEM)
	if err != nil {
		return fmt.Errorf("export key pair: %w", err)
	}

	salt := make([]byte, 32)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("generate salt: %w", err)
	}
	derivedKey := pbkdf2.Key(v.passphrase, salt, pbkdf2Iterations, 32, sha256.New)

	block, err := aes.NewCipher(derivedKey)
	if err != nil {
		return fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return fmt.Errorf("create gcm: %w", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}
	ciphertext := gcm.Seal(nil, nonce, pemBytes, nil)

	now := time.Now()
	record := encryptedKeyFile{
		Version:    "1.0",
		KeyID:      id,
		KeyType:    string(keyPair.Type()),
		Algorithm:  "AES-256-GCM+PBKDF2-SHA256",
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal encrypted key record: %w", err)
	}

	return os.WriteFile(v.keyPath(id), data, 0600)
}

// Load decrypts and reconstitutes the key pair stored under id.
func (v *FileVault) Load(id string) (sagecrypto.KeyPair, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if id == "" {
		return nil, ErrInvalidKeyID
	}

	data, err := os.ReadFile(v.keyPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, sagecrypto.ErrKeyNotFound
		}
		return nil, fmt.Errorf("read key file: %w", err)
	}

	var record encryptedKeyFile
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("unmarshal key record: %w", err)
	}

	salt, err := base64.StdEncoding.DecodeString(record.Salt)
	if err != nil {
		return nil, fmt.Errorf("decode salt: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(record.Nonce)
	if err != nil {
		return nil, fmt.Errorf("decode nonce: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(record.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("decode ciphertext: %w", err)
	}

	derivedKey := pbkdf2.Key(v.passphrase, salt, pbkdf2Iterations, 32, sha256.New)
	block, err := aes.NewCipher(derivedKey)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}

	pemBytes, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrInvalidPassphrase
	}

	return formats.NewPEMImporter().Import(pemBytes, sagecrypto.KeyFormatPEM)
}

// Delete removes the key pair stored under id.
func (v *FileVault) Delete(id string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if id == "" {
		return ErrInvalidKeyID
	}

	if err := os.Remove(v.keyPath(id)); err != nil {
		if os.IsNotExist(err) {
			return sagecrypto.ErrKeyNotFound
		}
		return fmt.Errorf("remove key file: %w", err)
	}
	return nil
}

// List returns every stored key id, sorted for deterministic output.
func (v *FileVault) List() ([]string, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	entries, err := os.ReadDir(v.basePath)
	if err != nil {
		return nil, fmt.Errorf("read vault directory: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		ids = append(ids, entry.Name()[:len(entry.Name())-len(".json")])
	}
	sort.Strings(ids)
	return ids, nil
}

// Exists reports whether a key pair is stored under id.
func (v *FileVault) Exists(id string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if id == "" {
		return false
	}
	_, err := os.Stat(v.keyPath(id))
	return err == nil
}

func (v *FileVault) keyPath(id string) string {
	safeID := filepath.Base(id)
	return filepath.Join(v.basePath, safeID+".json")
}
