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

	"github.com/google/uuid"

	sagecrypto "github.com/sage-x-project/remoting/crypto"
	"github.com/sage-x-project/remoting/rpcerrors"
	"github.com/sage-x-project/remoting/serializer"
	"github.com/sage-x-project/remoting/wire"
)

// peekHandshakeSenderPublicKey recovers the server's ephemeral RSA public
// key from an encrypted handshake-completion message, before the client
// has any other way to learn it: the key travels inside the asymmetric
// EncryptedSecret envelope that wire.DecryptHandshakeSecret expects to
// verify against, so it must be unwrapped one layer early here.
func peekHandshakeSenderPublicKey(ser serializer.Serializer, msg *wire.Message) (*rsa.PublicKey, error) {
	var signed wire.SignedMessageData
	if err := ser.Deserialize(msg.Data, &signed); err != nil {
		return nil, rpcerrors.NetworkError("deserialize signed handshake envelope", err)
	}

	var secret sagecrypto.EncryptedSecret
	if err := ser.Deserialize(signed.MessageRawData, &secret); err != nil {
		return nil, rpcerrors.NetworkError("deserialize handshake secret", err)
	}

	senderPublic, err := sagecrypto.ParsePublicKeyBlob(secret.SendersPublicKeyBlob)
	if err != nil {
		return nil, rpcerrors.SecurityError("parse server public key blob", err)
	}
	return senderPublic, nil
}

// handleHandshake completes the session bootstrap: it recovers the
// session ID (and, when encryption is on, the server's public key and
// the shared secret) from a TypeCompleteHandshake message.
func (c *Client) handleHandshake(msg *wire.Message) {
	if !c.cfg.MessageEncryption {
		c.mu.Lock()
		c.sessionID = string(msg.Data)
		c.mu.Unlock()
		c.signalHandshake(nil)
		return
	}

	serverPublic, err := peekHandshakeSenderPublicKey(c.cfg.Serializer, msg)
	if err != nil {
		c.signalHandshake(err)
		return
	}

	cleartext, err := wire.DecryptHandshakeSecret(msg, c.cfg.Serializer, serverPublic, c.privateKeySnapshot())
	if err != nil {
		c.signalHandshake(rpcerrors.SecurityError("decrypt handshake secret", err))
		return
	}

	// The encrypted handshake's cleartext is the session's raw 16-byte
	// UUID (the session's SharedSecret()), not its string form, unlike
	// the cleartext handshake path which sends the string directly.
	sessionID, err := uuid.FromBytes(cleartext)
	if err != nil {
		c.signalHandshake(rpcerrors.NetworkError("parse session id", err))
		return
	}

	c.mu.Lock()
	c.sessionID = sessionID.String()
	c.peerPublic = serverPublic
	c.sharedSecret = cleartext
	c.mu.Unlock()
	c.signalHandshake(nil)
}

func (c *Client) signalHandshake(err error) {
	select {
	case c.handshakeCh <- err:
	default:
	}
}

func (c *Client) handleAuthResponse(msg *wire.Message) {
	plaintext, err := wire.Decrypt(msg, c.cfg.Serializer, c.currentSharedSecret(), c.currentPeerPublic())
	if err != nil {
		c.signalAuth(rpcerrors.SecurityError("decrypt auth response", err))
		return
	}

	var resp wire.AuthenticationResponseMessage
	if err := c.cfg.Serializer.Deserialize(plaintext, &resp); err != nil {
		c.signalAuth(rpcerrors.NetworkError("deserialize auth response", err))
		return
	}

	if !resp.IsAuthenticated {
		c.signalAuth(rpcerrors.SecurityError("authentication rejected", nil))
		return
	}

	c.mu.Lock()
	c.identity = resp.Identity
	c.mu.Unlock()
	c.signalAuth(nil)
}

func (c *Client) signalAuth(err error) {
	select {
	case c.authCh <- err:
	default:
	}
}

func (c *Client) sendAuth(ctx context.Context) error {
	payload := wire.AuthenticationRequestMessage{Credentials: c.cfg.Credentials}
	msg, err := wire.Build(wire.TypeAuth, c.cfg.Serializer, payload, c.privateKeySnapshot(), c.currentSharedSecret(), uuid.NewString(), false)
	if err != nil {
		return rpcerrors.NetworkError("build auth request", err)
	}
	return c.sendFrame(ctx, msg)
}
