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

// Package server implements the public server-side facade: session
// lifecycle, RPC dispatch, and the event hooks a host application wires
// its service implementations and authentication policy through.
package server

import (
	"time"

	"github.com/google/uuid"

	"github.com/sage-x-project/remoting/auth"
	sagecrypto "github.com/sage-x-project/remoting/crypto"
	"github.com/sage-x-project/remoting/internal/audit"
	"github.com/sage-x-project/remoting/serializer"
	"github.com/sage-x-project/remoting/session"
	"github.com/sage-x-project/remoting/transport"
)

// Config configures a Server. Channel is required; NewServer fills the
// other zero-valued fields it has defaults for. MessageEncryption is off
// in the zero value; DefaultConfig returns the documented defaults.
type Config struct {
	UniqueServerInstanceName string

	KeySizeBits            int
	MessageEncryption      bool
	AuthenticationRequired bool
	AuthenticationProvider auth.Provider

	Serializer serializer.Serializer
	Channel    transport.ServerChannel

	InactiveSessionSweepInterval time.Duration
	MaximumSessionInactivityTime time.Duration

	AuditSink audit.Sink

	IsDefault bool
}

// DefaultConfig returns a Config with the original's documented
// defaults: 4096-bit keys, encryption on, auth off, a 60s sweep
// interval, and a 30-minute inactivity ceiling.
func DefaultConfig() Config {
	return Config{
		UniqueServerInstanceName:     uuid.NewString(),
		KeySizeBits:                  sagecrypto.DefaultRSAKeyBits,
		MessageEncryption:            true,
		InactiveSessionSweepInterval: 60 * time.Second,
		MaximumSessionInactivityTime: 30 * time.Minute,
	}
}

func (c Config) sessionConfig() session.Config {
	return session.Config{
		SweepInterval:     c.InactiveSessionSweepInterval,
		MaxInactivityTime: c.MaximumSessionInactivityTime,
	}
}
