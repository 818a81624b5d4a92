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

// Package websocket adapts gorilla/websocket into the transport.Channel
// contract, carrying opaque binary frames rather than a fixed JSON
// request/response shape.
package websocket

import (
	"context"
	"encoding/base64"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sage-x-project/remoting/transport"
)

const (
	headerMessageEncryption = "X-Message-Encryption"
	headerPublicKeyBlob     = "X-Public-Key-Blob"
)

var _ transport.ServerChannel = (*Server)(nil)

// Server upgrades HTTP connections to WebSocket and exposes each as a
// transport.Channel to the caller's onConnect callback.
type Server struct {
	upgrader     websocket.Upgrader
	readTimeout  time.Duration
	writeTimeout time.Duration

	httpServer *http.Server
	onConnect  func(ch transport.Channel, meta transport.HandshakeMetadata)

	mu          sync.Mutex
	connections map[*Conn]struct{}
}

// NewServer creates a WebSocket server listening on addr, upgrading
// connections on path.
func NewServer(addr, path string) *Server {
	s := &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		readTimeout:  60 * time.Second,
		writeTimeout: 30 * time.Second,
		connections:  make(map[*Conn]struct{}),
	}

	mux := http.NewServeMux()
	s.httpServer = &http.Server{Addr: addr, Handler: mux}
	mux.Handle(path, s)
	return s
}

// Listen implements transport.ServerChannel.
func (s *Server) Listen(ctx context.Context, onConnect func(ch transport.Channel, meta transport.HandshakeMetadata)) error {
	s.onConnect = onConnect
	errCh := make(chan error, 1)
	go func() { errCh <- s.httpServer.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return s.Stop()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

var _ http.Handler = (*Server)(nil)

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	wsConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "websocket upgrade failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	meta := transport.HandshakeMetadata{
		MessageEncryption: r.Header.Get(headerMessageEncryption) == "1",
	}
	if blob := r.Header.Get(headerPublicKeyBlob); blob != "" {
		if decoded, err := base64.StdEncoding.DecodeString(blob); err == nil {
			meta.PublicKeyBlob = decoded
		}
	}

	conn := newConn(wsConn, s.readTimeout, s.writeTimeout)
	s.mu.Lock()
	s.connections[conn] = struct{}{}
	s.mu.Unlock()

	conn.onClose = func() {
		s.mu.Lock()
		delete(s.connections, conn)
		s.mu.Unlock()
	}

	conn.startReadLoop(r.Context())

	if s.onConnect != nil {
		s.onConnect(conn, meta)
	}
}

// Stop implements transport.ServerChannel.
func (s *Server) Stop() error {
	s.mu.Lock()
	conns := make([]*Conn, 0, len(s.connections))
	for c := range s.connections {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		_ = c.Disconnect()
	}
	return s.httpServer.Close()
}
