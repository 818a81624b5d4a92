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

package loopback

import (
	"context"
	"testing"
	"time"

	"github.com/sage-x-project/remoting/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairDeliversNewSessionTrigger(t *testing.T) {
	var gotMeta transport.HandshakeMetadata
	var serverCh transport.Channel

	meta := transport.HandshakeMetadata{MessageEncryption: true, PublicKeyBlob: []byte("blob")}
	client := Pair(meta, func(ch transport.Channel, m transport.HandshakeMetadata) {
		serverCh = ch
		gotMeta = m
	})

	require.NotNil(t, serverCh)
	assert.Equal(t, meta, gotMeta)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, client.Send(ctx, []byte{}))

	select {
	case frame := <-serverCh.Receive():
		assert.Equal(t, []byte{}, frame)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for zero-byte session trigger")
	}
}

func TestPairRoundTrip(t *testing.T) {
	var serverCh transport.Channel
	client := Pair(transport.HandshakeMetadata{}, func(ch transport.Channel, m transport.HandshakeMetadata) {
		serverCh = ch
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, client.Send(ctx, []byte("ping")))
	frame := <-serverCh.Receive()
	assert.Equal(t, "ping", string(frame))

	require.NoError(t, serverCh.Send(ctx, []byte("pong")))
	frame = <-client.Receive()
	assert.Equal(t, "pong", string(frame))
}

func TestDisconnectClosesReceiveChannel(t *testing.T) {
	var serverCh transport.Channel
	client := Pair(transport.HandshakeMetadata{}, func(ch transport.Channel, m transport.HandshakeMetadata) {
		serverCh = ch
	})

	require.NoError(t, client.Disconnect())

	_, ok := <-serverCh.Receive()
	assert.False(t, ok, "server receive channel closes once the client disconnects")
}
