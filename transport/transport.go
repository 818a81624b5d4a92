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

// Package transport defines the raw, message-boundary-preserving duplex
// channel the RPC engines run their wire protocol over.
package transport

import "context"

// HandshakeMetadata is the side-channel data a client transport carries
// at connect time: whether wire encryption is on, and (when it is) the
// client's public-key blob.
type HandshakeMetadata struct {
	MessageEncryption bool
	PublicKeyBlob     []byte
}

// Channel is a duplex, message-boundary-preserving byte stream. One
// Channel instance represents one peer connection; a zero-byte frame
// from client to server is the server's new-session trigger.
type Channel interface {
	// Send blocks until data is handed off to the transport or ctx is
	// canceled.
	Send(ctx context.Context, data []byte) error

	// Receive delivers one complete frame at a time. The channel is
	// closed when the peer disconnects.
	Receive() <-chan []byte

	// Disconnect tears down the connection.
	Disconnect() error
}

// ClientChannel is the client-side connection lifecycle on top of
// Channel.
type ClientChannel interface {
	Channel
	// Connect dials the server, exchanging HandshakeMetadata out of
	// band at connection setup time.
	Connect(ctx context.Context, meta HandshakeMetadata) error
}

// ServerChannel accepts inbound connections, handing each a Channel plus
// the handshake metadata it arrived with.
type ServerChannel interface {
	// Listen starts accepting connections, invoking onConnect for each
	// new peer. onConnect should return promptly; long-lived per-session
	// work belongs on a goroutine.
	Listen(ctx context.Context, onConnect func(ch Channel, meta HandshakeMetadata)) error
	// Stop closes the listener and every active connection.
	Stop() error
}
