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

package websocket

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sage-x-project/remoting/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerClientRoundTrip(t *testing.T) {
	server := NewServer("", "/rpc")

	connected := make(chan struct{}, 1)
	var serverCh transport.Channel
	var serverMeta transport.HandshakeMetadata
	server.onConnect = func(ch transport.Channel, meta transport.HandshakeMetadata) {
		serverCh = ch
		serverMeta = meta
		connected <- struct{}{}
	}

	testServer := httptest.NewServer(server)
	defer testServer.Close()

	wsURL := "ws" + strings.TrimPrefix(testServer.URL, "http") + "/rpc"
	client := NewClient(wsURL)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	meta := transport.HandshakeMetadata{MessageEncryption: true, PublicKeyBlob: []byte("blob")}
	require.NoError(t, client.Connect(ctx, meta))
	defer client.Disconnect()

	select {
	case <-connected:
	case <-time.After(5 * time.Second):
		t.Fatal("server never observed the connection")
	}

	assert.True(t, serverMeta.MessageEncryption)
	assert.Equal(t, []byte("blob"), serverMeta.PublicKeyBlob)

	require.NoError(t, client.Send(ctx, []byte("ping")))
	select {
	case frame := <-serverCh.Receive():
		assert.Equal(t, "ping", string(frame))
	case <-time.After(5 * time.Second):
		t.Fatal("server never received the frame")
	}

	require.NoError(t, serverCh.Send(ctx, []byte("pong")))
	select {
	case frame := <-client.Receive():
		assert.Equal(t, "pong", string(frame))
	case <-time.After(5 * time.Second):
		t.Fatal("client never received the reply")
	}
}
