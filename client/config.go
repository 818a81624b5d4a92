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

// Package client implements the public client-side facade: connection
// lifecycle, correlated RPC invocation, and reverse-delegate dispatch
// against a server built on the sibling server package.
package client

import (
	"time"

	"github.com/google/uuid"

	sagecrypto "github.com/sage-x-project/remoting/crypto"
	"github.com/sage-x-project/remoting/serializer"
	"github.com/sage-x-project/remoting/transport"
	"github.com/sage-x-project/remoting/wire"
)

// Config configures a Client. Channel is required; NewClient fills the
// other zero-valued fields it has defaults for (a zero InvocationTimeout
// waits indefinitely). MessageEncryption is off in the zero value;
// DefaultConfig returns the documented defaults.
type Config struct {
	UniqueClientInstanceName string

	KeySizeBits       int
	MessageEncryption bool
	Credentials       []wire.Credential

	ConnectionTimeout          time.Duration
	AuthenticationTimeout      time.Duration
	InvocationTimeout          time.Duration
	SendTimeout                time.Duration
	WaitForGoodbyeOnDisconnect time.Duration
	KeepSessionAliveInterval   time.Duration

	Serializer serializer.Serializer
	Channel    transport.ClientChannel

	IsDefault bool
}

// DefaultConfig returns a Config with the original's documented
// defaults: 4096-bit keys, encryption on, a 120s connection timeout, a
// 30s authentication timeout, no invocation timeout, a 30s send
// timeout, a 10s goodbye-wait bound, and a 20s keep-alive interval.
func DefaultConfig() Config {
	return Config{
		UniqueClientInstanceName:   uuid.NewString(),
		KeySizeBits:                sagecrypto.DefaultRSAKeyBits,
		MessageEncryption:          true,
		ConnectionTimeout:          120 * time.Second,
		AuthenticationTimeout:      30 * time.Second,
		SendTimeout:                30 * time.Second,
		WaitForGoodbyeOnDisconnect: 10 * time.Second,
		KeepSessionAliveInterval:   20 * time.Second,
	}
}
