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

package server

import (
	"context"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sage-x-project/remoting/internal/audit"
	"github.com/sage-x-project/remoting/internal/logger"
	"github.com/sage-x-project/remoting/internal/metrics"
	"github.com/sage-x-project/remoting/rpcerrors"
	sagecrypto "github.com/sage-x-project/remoting/crypto"
	"github.com/sage-x-project/remoting/serializer"
	"github.com/sage-x-project/remoting/services"
	"github.com/sage-x-project/remoting/session"
	"github.com/sage-x-project/remoting/transport"
	"github.com/sage-x-project/remoting/wire"
)

// Server is the public server-side facade: it owns the session
// repository, the service registry, and the transport listener, and
// fires Events around every authentication attempt and RPC dispatch.
type Server struct {
	cfg      Config
	repo     *session.Repository
	registry *services.Registry
	events   Events

	wg sync.WaitGroup
}

// NewServer fills cfg's unset fields with their documented defaults and
// constructs a Server. The returned Server is registered process-wide
// under cfg.UniqueServerInstanceName and is not yet accepting
// connections; call Start to begin listening.
func NewServer(cfg Config, events Events) (*Server, error) {
	if cfg.Channel == nil {
		return nil, rpcerrors.NotSupportedError("server: Config.Channel is required")
	}
	if cfg.UniqueServerInstanceName == "" {
		cfg.UniqueServerInstanceName = uuid.NewString()
	}
	if cfg.KeySizeBits == 0 {
		cfg.KeySizeBits = sagecrypto.DefaultRSAKeyBits
	}
	if cfg.Serializer == nil {
		cfg.Serializer = serializer.NewJSONSerializer()
	}
	if cfg.InactiveSessionSweepInterval == 0 {
		cfg.InactiveSessionSweepInterval = 60 * time.Second
	}
	if cfg.MaximumSessionInactivityTime == 0 {
		cfg.MaximumSessionInactivityTime = 30 * time.Minute
	}
	if cfg.AuditSink == nil {
		cfg.AuditSink = audit.NoopSink{}
	}

	s := &Server{
		cfg:      cfg,
		repo:     session.NewRepository(cfg.sessionConfig(), cfg.MessageEncryption, cfg.KeySizeBits),
		registry: services.NewRegistry(),
		events:   events,
	}
	registerInstance(s)
	return s, nil
}

// RegisterService binds impl, which must implement iface, under name so
// incoming `rpc` calls naming it can be dispatched.
func (s *Server) RegisterService(name string, iface reflect.Type, impl interface{}, oneWayMethods ...string) error {
	return s.registry.Register(name, iface, impl, oneWayMethods...)
}

// Sessions returns a snapshot of every currently active session.
func (s *Server) Sessions() []session.Session {
	return s.repo.Sessions()
}

// Start begins accepting connections; it blocks until ctx is canceled or
// the channel's Listen returns.
func (s *Server) Start(ctx context.Context) error {
	return s.cfg.Channel.Listen(ctx, s.onConnect)
}

// Accept hands a single already-established connection to the server,
// exactly as Start's Listen loop would for each inbound peer. It is the
// server's exported onConnect entry point, for transports or test
// harnesses that establish connections outside of a transport.ServerChannel
// (e.g. a transport.loopback pair wired directly to one server).
func (s *Server) Accept(ch transport.Channel, meta transport.HandshakeMetadata) {
	s.onConnect(ch, meta)
}

// Stop tears down the listener, waits for every in-flight session
// handler to finish, disposes all sessions, and closes the audit sink.
func (s *Server) Stop() error {
	err := s.cfg.Channel.Stop()
	s.wg.Wait()
	if closeErr := s.repo.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if auditErr := s.cfg.AuditSink.Close(); auditErr != nil && err == nil {
		err = auditErr
	}
	unregisterInstance(s)
	return err
}

func (s *Server) onConnect(ch transport.Channel, meta transport.HandshakeMetadata) {
	sess, err := s.repo.Create(meta.PublicKeyBlob, ch)
	if err != nil {
		metrics.SessionsCreated.WithLabelValues("failure").Inc()
		logger.Warn("session creation failed", logger.Error(err))
		return
	}
	metrics.SessionsCreated.WithLabelValues("success").Inc()
	metrics.SessionsActive.Inc()

	msg, err := s.buildHandshakeMessage(sess)
	if err != nil {
		s.emitError(sess, err)
		_ = s.repo.Remove(sess.ID())
		return
	}
	if !s.send(sess, ch, msg) {
		_ = s.repo.Remove(sess.ID())
		return
	}

	s.wg.Add(1)
	go s.serveSession(sess, ch)
}

// buildHandshakeMessage constructs the `complete_handshake` reply: the
// session's shared-secret bytes signed and RSA-wrapped for the peer's
// public key when encryption is on, or sent as cleartext when it is off.
func (s *Server) buildHandshakeMessage(sess session.Session) (*wire.Message, error) {
	if !sess.EncryptionEnabled() {
		return &wire.Message{MessageType: wire.TypeCompleteHandshake, Data: []byte(sess.ID())}, nil
	}
	return wire.BuildHandshakeSecret(
		s.cfg.Serializer,
		sess.SharedSecret(),
		sess.PeerPublicKey(),
		&sess.PrivateKey().PublicKey,
		sess.PrivateKey(),
	)
}

// serveSession is the per-session inbound frame loop: one goroutine per
// connected client, reading until the channel closes or a `goodbye`
// exchange completes.
func (s *Server) serveSession(sess session.Session, ch transport.Channel) {
	defer s.wg.Done()
	defer func() {
		_ = s.repo.Remove(sess.ID())
		metrics.SessionsActive.Dec()
		metrics.SessionsClosed.Inc()
	}()

	for data := range ch.Receive() {
		sess.Touch()
		if len(data) == 0 {
			continue // keep-alive frame
		}

		msg, err := wire.DecodeFrame(s.cfg.Serializer, data)
		if err != nil {
			s.emitError(sess, err)
			continue
		}

		switch msg.MessageType {
		case wire.TypeAuth:
			s.handleAuth(sess, ch, msg)
		case wire.TypeRPC:
			s.handleRPC(context.Background(), sess, ch, msg)
		case wire.TypeGoodbye:
			s.handleGoodbye(sess, ch, msg)
			return
		default:
			s.emitError(sess, rpcerrors.NetworkError("unknown message type: "+string(msg.MessageType), nil))
		}
	}
}

func (s *Server) handleAuth(sess session.Session, ch transport.Channel, msg *wire.Message) {
	if sess.IsAuthenticated() {
		return
	}

	plaintext, err := wire.Decrypt(msg, s.cfg.Serializer, sess.SharedSecret(), sess.PeerPublicKey())
	if err != nil {
		s.emitError(sess, err)
		return
	}
	var req wire.AuthenticationRequestMessage
	if err := s.cfg.Serializer.Deserialize(plaintext, &req); err != nil {
		s.emitError(sess, rpcerrors.NetworkError("deserialize auth request", err))
		return
	}

	resp := wire.AuthenticationResponseMessage{}
	if s.cfg.AuthenticationProvider == nil {
		s.emitError(sess, rpcerrors.SecurityError("no authentication provider configured", nil))
	} else {
		identity, authErr := s.cfg.AuthenticationProvider.Authenticate(context.Background(), req.Credentials)
		if authErr != nil {
			s.emitError(sess, authErr)
		} else {
			sess.Authenticate(identity)
			resp.IsAuthenticated = true
			resp.Identity = &identity
			s.events.fireLogon(sess, identity)
		}
	}

	out, err := wire.Build(wire.TypeAuthResponse, s.cfg.Serializer, resp, sess.PrivateKey(), sess.SharedSecret(), msg.UniqueCallKey, false)
	if err != nil {
		s.emitError(sess, err)
		return
	}
	s.send(sess, ch, out)
}

func (s *Server) handleGoodbye(sess session.Session, ch transport.Channel, msg *wire.Message) {
	if plaintext, err := wire.Decrypt(msg, s.cfg.Serializer, sess.SharedSecret(), sess.PeerPublicKey()); err == nil {
		var goodbye wire.GoodbyeMessage
		if err := s.cfg.Serializer.Deserialize(plaintext, &goodbye); err == nil && goodbye.SessionID != "" && goodbye.SessionID != sess.ID() {
			s.emitError(sess, rpcerrors.NetworkError("goodbye session id mismatch", nil))
		}
	}

	echo := &wire.Message{MessageType: wire.TypeGoodbye}
	s.send(sess, ch, echo)

	s.events.fireLogoff(sess)
	_ = s.repo.Remove(sess.ID())
}

// send serializes and hands off msg, reporting any failure through the
// Error event. Returns false on failure so callers can short-circuit.
func (s *Server) send(sess session.Session, ch transport.Channel, msg *wire.Message) bool {
	frame, err := wire.EncodeFrame(s.cfg.Serializer, msg)
	if err != nil {
		s.emitError(sess, err)
		return false
	}
	if err := ch.Send(context.Background(), frame); err != nil {
		s.emitError(sess, err)
		return false
	}
	return true
}

func (s *Server) emitError(sess session.Session, err error) {
	logger.Warn("session error", logger.String("session_id", compactID(sess.ID())), logger.Error(err))
	s.events.fireError(sess, err)
}
