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
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sage-x-project/remoting/transport"
)

// Conn adapts one *websocket.Conn to transport.Channel, preserving
// message boundaries by sending/receiving whole binary frames.
type Conn struct {
	ws           *websocket.Conn
	readTimeout  time.Duration
	writeTimeout time.Duration

	writeMu sync.Mutex

	recv    chan []byte
	onClose func()

	closeOnce sync.Once
}

func newConn(ws *websocket.Conn, readTimeout, writeTimeout time.Duration) *Conn {
	return &Conn{
		ws:           ws,
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
		recv:         make(chan []byte, 16),
	}
}

// Send implements transport.Channel.
func (c *Conn) Send(ctx context.Context, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.writeTimeout)
	}
	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.BinaryMessage, data)
}

// Receive implements transport.Channel.
func (c *Conn) Receive() <-chan []byte {
	return c.recv
}

// Disconnect implements transport.Channel.
func (c *Conn) Disconnect() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.ws.Close()
		close(c.recv)
		if c.onClose != nil {
			c.onClose()
		}
	})
	return err
}

// startReadLoop runs the blocking read loop on its own goroutine until
// the connection closes or ctx is canceled.
func (c *Conn) startReadLoop(ctx context.Context) {
	go func() {
		defer func() { _ = c.Disconnect() }()
		for {
			if ctx.Err() != nil {
				return
			}
			if c.readTimeout > 0 {
				if err := c.ws.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
					return
				}
			}
			msgType, data, err := c.ws.ReadMessage()
			if err != nil {
				return
			}
			if msgType != websocket.BinaryMessage {
				continue
			}
			select {
			case c.recv <- data:
			case <-ctx.Done():
				return
			}
		}
	}()
}
