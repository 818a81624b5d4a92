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

package session

import (
	"crypto/rsa"
	"sync"
	"time"

	"github.com/sage-x-project/remoting/delegate"
	"github.com/sage-x-project/remoting/wire"
)

// HybridSession is the server's default Session implementation: an RSA
// key pair (when encryption is on), the peer's captured public key, and
// the session UUID acting as the post-handshake shared secret.
type HybridSession struct {
	id        string
	createdAt time.Time

	encryption bool
	privateKey *rsa.PrivateKey
	peerPublic *rsa.PublicKey
	shared     []byte

	delegates *delegate.ServerFactory

	mu           sync.Mutex
	lastActivity time.Time
	authed       bool
	identity     *wire.Identity
	closed       bool
}

var _ Session = (*HybridSession)(nil)

// New constructs a session. privateKey/peerPublic/shared are nil when
// encryptionEnabled is false.
func New(id string, encryptionEnabled bool, privateKey *rsa.PrivateKey, peerPublic *rsa.PublicKey, shared []byte) *HybridSession {
	now := time.Now()
	return &HybridSession{
		id:           id,
		createdAt:    now,
		lastActivity: now,
		encryption:   encryptionEnabled,
		privateKey:   privateKey,
		peerPublic:   peerPublic,
		shared:       shared,
		delegates:    delegate.NewServerFactory(),
	}
}

// ID implements Session.
func (s *HybridSession) ID() string { return s.id }

// CreatedAt implements Session.
func (s *HybridSession) CreatedAt() time.Time { return s.createdAt }

// LastActivity implements Session.
func (s *HybridSession) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Touch implements Session.
func (s *HybridSession) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = time.Now()
}

// IdleSince implements Session.
func (s *HybridSession) IdleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastActivity)
}

// EncryptionEnabled implements Session.
func (s *HybridSession) EncryptionEnabled() bool { return s.encryption }

// PrivateKey implements Session.
func (s *HybridSession) PrivateKey() *rsa.PrivateKey { return s.privateKey }

// PeerPublicKey implements Session.
func (s *HybridSession) PeerPublicKey() *rsa.PublicKey { return s.peerPublic }

// SharedSecret implements Session.
func (s *HybridSession) SharedSecret() []byte { return s.shared }

// IsAuthenticated implements Session.
func (s *HybridSession) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authed
}

// Identity implements Session.
func (s *HybridSession) Identity() *wire.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// Authenticate implements Session.
func (s *HybridSession) Authenticate(identity wire.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authed = true
	s.identity = &identity
}

// Delegates implements Session.
func (s *HybridSession) Delegates() *delegate.ServerFactory { return s.delegates }

// Close implements Session. Clears the RSA private key's sensitive
// material and marks the session disposed; idempotent.
func (s *HybridSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for i := range s.shared {
		s.shared[i] = 0
	}
	if s.privateKey != nil {
		s.privateKey.D.SetInt64(0)
	}
	return nil
}
