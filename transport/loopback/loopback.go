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

// Package loopback is a fully in-process transport.Channel pair, for
// deterministic tests that don't need a real socket.
package loopback

import (
	"context"
	"sync"

	"github.com/sage-x-project/remoting/transport"
)

// end is one side of a loopback pair.
type end struct {
	out       chan []byte
	recv      chan []byte
	closeOnce sync.Once
}

var (
	_ transport.Channel = (*end)(nil)
)

func newEnd() *end {
	return &end{out: make(chan []byte, 16), recv: make(chan []byte, 16)}
}

// Send implements transport.Channel.
func (e *end) Send(ctx context.Context, data []byte) error {
	select {
	case e.out <- data:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive implements transport.Channel.
func (e *end) Receive() <-chan []byte {
	return e.recv
}

// Disconnect implements transport.Channel.
func (e *end) Disconnect() error {
	e.closeOnce.Do(func() {
		close(e.out)
	})
	return nil
}

func pump(from, to *end) {
	for data := range from.out {
		to.recv <- data
	}
	close(to.recv)
}

// ClientChannel is the client-facing half of a loopback pair.
type ClientChannel struct {
	*end
	meta      transport.HandshakeMetadata
	onConnect func(ch transport.Channel, meta transport.HandshakeMetadata)
}

var _ transport.ClientChannel = (*ClientChannel)(nil)

// NewClientChannel builds a client-side loopback channel that is not yet
// wired to a server: unlike Pair, which wires both ends and fires
// onConnect immediately (for tests that drive the wire protocol by
// hand), this channel only pumps data and calls onConnect once Connect
// is invoked, receiving whatever HandshakeMetadata the caller computed
// at dial time — the same "construct unconnected, supply meta on
// Connect" shape transport/websocket's Client uses for a real socket.
func NewClientChannel(onConnect func(ch transport.Channel, meta transport.HandshakeMetadata)) *ClientChannel {
	return &ClientChannel{onConnect: onConnect}
}

// Connect implements transport.ClientChannel. For a channel built by
// Pair (end already set), it is a no-op beyond recording meta. For a
// channel built by NewClientChannel, it wires up both ends of the pair
// and fires onConnect with meta now that it is known.
func (c *ClientChannel) Connect(ctx context.Context, meta transport.HandshakeMetadata) error {
	c.meta = meta
	if c.end != nil {
		return nil
	}

	clientEnd := newEnd()
	serverEnd := newEnd()
	go pump(clientEnd, serverEnd)
	go pump(serverEnd, clientEnd)
	c.end = clientEnd

	if c.onConnect != nil {
		c.onConnect(serverEnd, meta)
	}
	return nil
}

// Pair constructs a connected client/server Channel pair and invokes
// onConnect synchronously, mirroring the server-side new-session trigger
// a real transport.ServerChannel would fire asynchronously per
// connection.
func Pair(meta transport.HandshakeMetadata, onConnect func(ch transport.Channel, meta transport.HandshakeMetadata)) *ClientChannel {
	clientEnd := newEnd()
	serverEnd := newEnd()

	go pump(clientEnd, serverEnd)
	go pump(serverEnd, clientEnd)

	client := &ClientChannel{end: clientEnd, meta: meta}
	if onConnect != nil {
		onConnect(serverEnd, meta)
	}
	return client
}
