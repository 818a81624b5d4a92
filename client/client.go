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

package client

import (
	"context"
	"crypto/rsa"
	"sync"
	"time"

	"github.com/google/uuid"

	sagecrypto "github.com/sage-x-project/remoting/crypto"
	"github.com/sage-x-project/remoting/delegate"
	"github.com/sage-x-project/remoting/internal/logger"
	"github.com/sage-x-project/remoting/rpcerrors"
	"github.com/sage-x-project/remoting/serializer"
	"github.com/sage-x-project/remoting/transport"
	"github.com/sage-x-project/remoting/wire"
)

// state is one point in the client session's lifecycle:
// disconnected -> connecting -> handshaking -> [authenticating ->] ready
// -> closing -> disconnected, terminal on error at errored.
type state string

const (
	stateDisconnected   state = "disconnected"
	stateConnecting     state = "connecting"
	stateHandshaking    state = "handshaking"
	stateAuthenticating state = "authenticating"
	stateReady          state = "ready"
	stateClosing        state = "closing"
	stateErrored        state = "errored"
)

// Client is the public client-side facade: it owns the transport
// connection, the session's key material, the in-flight call
// correlation map, and the delegate registry backing reverse callbacks.
type Client struct {
	cfg    Config
	events Events

	mu           sync.RWMutex
	st           state
	lastErr      error
	ch           transport.Channel
	sessionID    string
	privateKey   *rsa.PrivateKey
	peerPublic   *rsa.PublicKey
	sharedSecret []byte
	identity     *wire.Identity

	delegates *delegate.ClientDelegateRegistry

	proxyOwnersMu sync.Mutex
	proxyOwners   map[uintptr]delegate.ProxyID

	callsMu sync.Mutex
	calls   map[string]*ClientRpcContext

	handshakeCh chan error
	authCh      chan error
	goodbyeCh   chan struct{}

	stopRead     chan struct{}
	stopReadOnce sync.Once
	wg           sync.WaitGroup
}

// NewClient fills cfg's unset fields with their documented defaults and
// constructs a Client. The returned Client is not yet connected; call
// Connect to establish a session.
func NewClient(cfg Config, events Events) (*Client, error) {
	if cfg.Channel == nil {
		return nil, rpcerrors.NotSupportedError("client: Config.Channel is required")
	}
	if cfg.UniqueClientInstanceName == "" {
		cfg.UniqueClientInstanceName = uuid.NewString()
	}
	if cfg.KeySizeBits == 0 {
		cfg.KeySizeBits = sagecrypto.DefaultRSAKeyBits
	}
	if cfg.Serializer == nil {
		cfg.Serializer = serializer.NewJSONSerializer()
	}
	if cfg.ConnectionTimeout == 0 {
		cfg.ConnectionTimeout = 120 * time.Second
	}
	if cfg.AuthenticationTimeout == 0 {
		cfg.AuthenticationTimeout = 30 * time.Second
	}
	if cfg.SendTimeout == 0 {
		cfg.SendTimeout = 30 * time.Second
	}
	if cfg.WaitForGoodbyeOnDisconnect == 0 {
		cfg.WaitForGoodbyeOnDisconnect = 10 * time.Second
	}
	if cfg.KeepSessionAliveInterval == 0 {
		cfg.KeepSessionAliveInterval = 20 * time.Second
	}

	return &Client{
		cfg:         cfg,
		events:      events,
		st:          stateDisconnected,
		delegates:   delegate.NewClientDelegateRegistry(),
		proxyOwners: make(map[uintptr]delegate.ProxyID),
		calls:       make(map[string]*ClientRpcContext),
	}, nil
}

// IsConnected reports whether the transport connection is open,
// regardless of whether the handshake has completed.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ch != nil && c.st != stateDisconnected
}

// HasSession reports whether the client has a fully established,
// ready-to-dispatch session.
func (c *Client) HasSession() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.st == stateReady
}

// Identity returns the identity the server reported after a successful
// authentication, or nil if the session never authenticated.
func (c *Client) Identity() *wire.Identity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.identity
}

// Connect dials the configured transport, completes the handshake, and
// (when credentials are configured) authenticates, bringing the client
// to the ready state. It blocks until the session is ready or a stage
// deadline / failure aborts it.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.st != stateDisconnected {
		c.mu.Unlock()
		return rpcerrors.NotSupportedError("client: already connected")
	}
	c.st = stateConnecting
	c.stopRead = make(chan struct{})
	c.stopReadOnce = sync.Once{}
	c.handshakeCh = make(chan error, 1)
	c.authCh = make(chan error, 1)
	c.goodbyeCh = make(chan struct{}, 1)
	c.mu.Unlock()

	privateKey, pubBlob, err := c.mintKeyPair()
	if err != nil {
		return c.fail(err)
	}

	connCtx := ctx
	var cancelConn context.CancelFunc
	if c.cfg.ConnectionTimeout > 0 {
		connCtx, cancelConn = context.WithTimeout(ctx, c.cfg.ConnectionTimeout)
		defer cancelConn()
	}

	meta := transport.HandshakeMetadata{MessageEncryption: c.cfg.MessageEncryption, PublicKeyBlob: pubBlob}
	if err := c.cfg.Channel.Connect(connCtx, meta); err != nil {
		return c.fail(rpcerrors.NetworkError("connect transport", err))
	}

	c.mu.Lock()
	c.ch = c.cfg.Channel
	c.privateKey = privateKey
	c.st = stateHandshaking
	c.mu.Unlock()

	c.wg.Add(1)
	go c.readLoop()

	if err := c.cfg.Channel.Send(connCtx, nil); err != nil {
		return c.fail(rpcerrors.NetworkError("send session trigger frame", err))
	}

	select {
	case err := <-c.handshakeCh:
		if err != nil {
			return c.fail(err)
		}
	case <-connCtx.Done():
		return c.fail(rpcerrors.NetworkError("handshake timed out", connCtx.Err()))
	}

	if len(c.cfg.Credentials) > 0 {
		if err := c.authenticate(ctx); err != nil {
			return c.fail(err)
		}
	}

	c.mu.Lock()
	c.st = stateReady
	c.mu.Unlock()
	registerInstance(c)

	if c.cfg.KeepSessionAliveInterval > 0 {
		c.wg.Add(1)
		go c.keepAliveLoop()
	}
	return nil
}

func (c *Client) mintKeyPair() (*rsa.PrivateKey, []byte, error) {
	if !c.cfg.MessageEncryption {
		return nil, nil, nil
	}
	keyPair, err := sagecrypto.NewRSAKeyPair(c.cfg.KeySizeBits)
	if err != nil {
		return nil, nil, rpcerrors.SecurityError("generate client key pair", err)
	}
	privateKey, ok := keyPair.PrivateKey().(*rsa.PrivateKey)
	if !ok {
		return nil, nil, rpcerrors.SecurityError("client key pair is not RSA", nil)
	}
	pubBlob, err := sagecrypto.MarshalPublicKeyBlob(&privateKey.PublicKey)
	if err != nil {
		return nil, nil, rpcerrors.SecurityError("marshal client public key blob", err)
	}
	return privateKey, pubBlob, nil
}

func (c *Client) authenticate(ctx context.Context) error {
	c.mu.Lock()
	c.st = stateAuthenticating
	c.mu.Unlock()

	authCtx := ctx
	var cancel context.CancelFunc
	if c.cfg.AuthenticationTimeout > 0 {
		authCtx, cancel = context.WithTimeout(ctx, c.cfg.AuthenticationTimeout)
		defer cancel()
	}

	if err := c.sendAuth(authCtx); err != nil {
		return err
	}

	select {
	case err := <-c.authCh:
		return err
	case <-authCtx.Done():
		return rpcerrors.SecurityError("authentication timed out", authCtx.Err())
	}
}

// Disconnect tears down the session: it stops the keep-alive loop,
// exchanges a goodbye with the server (best-effort, bounded by
// WaitForGoodbyeOnDisconnect), and closes the transport. It is
// idempotent: repeated calls, or calling after the server has already
// closed the connection, never block or error.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	if c.st == stateDisconnected {
		c.mu.Unlock()
		return nil
	}
	wasReady := c.st == stateReady
	c.st = stateClosing
	ch := c.ch
	sessionID := c.sessionID
	c.mu.Unlock()

	if wasReady {
		payload := wire.GoodbyeMessage{SessionID: sessionID}
		msg, err := wire.Build(wire.TypeGoodbye, c.cfg.Serializer, payload, c.privateKeySnapshot(), c.currentSharedSecret(), uuid.NewString(), false)
		if err == nil {
			sendCtx, cancel := context.WithTimeout(context.Background(), c.cfg.SendTimeout)
			sendErr := c.sendFrameRaw(sendCtx, msg)
			cancel()
			if sendErr == nil {
				select {
				case <-c.goodbyeCh:
				case <-time.After(c.cfg.WaitForGoodbyeOnDisconnect):
				}
			}
		}
	}

	c.closeStopRead()

	var err error
	if ch != nil {
		err = ch.Disconnect()
	}
	c.wg.Wait()

	c.mu.Lock()
	c.st = stateDisconnected
	c.ch = nil
	c.mu.Unlock()

	c.failAllInFlight(rpcerrors.NetworkError("client disconnected", nil))
	unregisterInstance(c)
	return err
}

func (c *Client) closeStopRead() {
	c.stopReadOnce.Do(func() {
		close(c.stopRead)
	})
}

func (c *Client) fail(err error) error {
	c.mu.Lock()
	c.st = stateErrored
	c.lastErr = err
	c.mu.Unlock()
	c.events.fireError(err)
	return err
}

// readLoop is the client's inbound frame loop: it runs until the
// transport closes, a `goodbye` exchange completes, or Disconnect
// signals it to stop.
func (c *Client) readLoop() {
	defer c.wg.Done()
	recv := c.ch.Receive()

	for {
		select {
		case data, ok := <-recv:
			if !ok {
				c.failAllInFlight(rpcerrors.NetworkError("transport closed", nil))
				return
			}
			if len(data) == 0 {
				continue // keep-alive frame
			}

			msg, err := wire.DecodeFrame(c.cfg.Serializer, data)
			if err != nil {
				c.events.fireError(rpcerrors.NetworkError("decode frame", err))
				continue
			}

			switch msg.MessageType {
			case wire.TypeCompleteHandshake:
				c.handleHandshake(msg)
			case wire.TypeAuthResponse:
				c.handleAuthResponse(msg)
			case wire.TypeRPCResult:
				c.handleRPCResult(msg)
			case wire.TypeInvoke:
				c.handleInvoke(msg)
			case wire.TypeGoodbye:
				c.handleGoodbye(msg)
				return
			default:
				c.events.fireError(rpcerrors.NetworkError("unknown message type: "+string(msg.MessageType), nil))
			}
		case <-c.stopRead:
			return
		}
	}
}

func (c *Client) keepAliveLoop() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.cfg.KeepSessionAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), c.cfg.SendTimeout)
			if err := c.ch.Send(ctx, nil); err != nil {
				logger.Warn("keep-alive send failed", logger.Error(err))
			}
			cancel()
		case <-c.stopRead:
			return
		}
	}
}

func (c *Client) sendFrameRaw(ctx context.Context, msg *wire.Message) error {
	frame, err := wire.EncodeFrame(c.cfg.Serializer, msg)
	if err != nil {
		return rpcerrors.NetworkError("encode frame", err)
	}
	if err := c.ch.Send(ctx, frame); err != nil {
		return rpcerrors.NetworkError("send frame", err)
	}
	return nil
}

func (c *Client) sendFrame(ctx context.Context, msg *wire.Message) error {
	sendCtx := ctx
	var cancel context.CancelFunc
	if c.cfg.SendTimeout > 0 {
		sendCtx, cancel = context.WithTimeout(ctx, c.cfg.SendTimeout)
		defer cancel()
	}
	return c.sendFrameRaw(sendCtx, msg)
}

func (c *Client) currentSharedSecret() []byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sharedSecret
}

func (c *Client) currentPeerPublic() *rsa.PublicKey {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.peerPublic
}

func (c *Client) privateKeySnapshot() *rsa.PrivateKey {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.privateKey
}

func (c *Client) failAllInFlight(err error) {
	c.callsMu.Lock()
	calls := c.calls
	c.calls = make(map[string]*ClientRpcContext)
	c.callsMu.Unlock()

	for _, rc := range calls {
		rc.Err = err
		rc.complete()
	}
}
