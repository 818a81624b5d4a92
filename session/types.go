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

// Package session implements the server-side session lifecycle: one
// Session per connected client, holding its handshake key material,
// authentication state, and delegate-proxy cache.
package session

import (
	"crypto/rsa"
	"time"

	"github.com/sage-x-project/remoting/delegate"
	"github.com/sage-x-project/remoting/wire"
)

// Config governs a repository's idle-sweeping policy. Both values are
// configurable independently; a zero SweepInterval disables sweeping.
type Config struct {
	SweepInterval     time.Duration
	MaxInactivityTime time.Duration
}

// DefaultConfig matches §6's configuration surface defaults: a 60s sweep
// interval and a 30-minute inactivity ceiling.
func DefaultConfig() Config {
	return Config{SweepInterval: 60 * time.Second, MaxInactivityTime: 30 * time.Minute}
}

// Session represents one connected client on the server: its handshake
// key material, authentication state, and delegate-proxy cache.
type Session interface {
	ID() string
	CreatedAt() time.Time
	LastActivity() time.Time
	// Touch records inbound activity, including empty keep-alive frames.
	Touch()
	// IdleSince reports how long the session has been inactive as of now.
	IdleSince(now time.Time) time.Duration

	EncryptionEnabled() bool
	// PrivateKey is the server's session key pair, nil when encryption
	// is disabled.
	PrivateKey() *rsa.PrivateKey
	// PeerPublicKey is the client's public key captured at handshake
	// time, nil when encryption is disabled.
	PeerPublicKey() *rsa.PublicKey
	// SharedSecret is the raw bytes (the session UUID) both peers derive
	// the post-handshake symmetric key from via crypto.DeriveSharedKey.
	// Nil when encryption is disabled.
	SharedSecret() []byte

	IsAuthenticated() bool
	Identity() *wire.Identity
	Authenticate(identity wire.Identity)

	// Delegates is this session's forged-delegate cache, used to map
	// inbound RemoteDelegateInfo arguments to reverse-callback proxies.
	Delegates() *delegate.ServerFactory

	Close() error
}
