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
	"encoding/base64"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sage-x-project/remoting/transport"
)

var _ transport.ClientChannel = (*Client)(nil)

// Client dials a single WebSocket server connection as a
// transport.ClientChannel.
type Client struct {
	url          string
	readTimeout  time.Duration
	writeTimeout time.Duration

	*Conn
}

// NewClient creates a client dialing url (e.g. "ws://host:port/rpc").
func NewClient(url string) *Client {
	return &Client{url: url, readTimeout: 60 * time.Second, writeTimeout: 30 * time.Second}
}

// Connect implements transport.ClientChannel.
func (c *Client) Connect(ctx context.Context, meta transport.HandshakeMetadata) error {
	header := http.Header{}
	if meta.MessageEncryption {
		header.Set(headerMessageEncryption, "1")
	}
	if len(meta.PublicKeyBlob) > 0 {
		header.Set(headerPublicKeyBlob, base64.StdEncoding.EncodeToString(meta.PublicKeyBlob))
	}

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, header)
	if err != nil {
		return err
	}

	c.Conn = newConn(ws, c.readTimeout, c.writeTimeout)
	c.Conn.startReadLoop(context.Background())
	return nil
}
