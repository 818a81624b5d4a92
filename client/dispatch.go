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
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/sage-x-project/remoting/callcontext"
	"github.com/sage-x-project/remoting/rpcerrors"
	"github.com/sage-x-project/remoting/wire"
)

// ClientRpcContext correlates one outstanding RPC call with the result
// frame the server eventually sends back, keyed by UniqueCallKey.
type ClientRpcContext struct {
	UniqueCallKey string

	done   chan struct{}
	Result *wire.MethodCallResultMessage
	Err    error
}

func newClientRpcContext(uniqueCallKey string) *ClientRpcContext {
	return &ClientRpcContext{UniqueCallKey: uniqueCallKey, done: make(chan struct{})}
}

func (rc *ClientRpcContext) complete() {
	select {
	case <-rc.done:
	default:
		close(rc.done)
	}
}

// InvokeRemoteMethod dispatches one method call and, unless oneWay is
// set, blocks until the correlated result arrives or InvocationTimeout
// elapses (a zero InvocationTimeout waits indefinitely). A timeout
// leaves the call registered: a late-arriving result can still complete
// it, since the server has no way to know the client gave up waiting.
func (c *Client) InvokeRemoteMethod(ctx context.Context, call wire.MethodCallMessage, oneWay bool) (*wire.MethodCallResultMessage, error) {
	if !c.HasSession() {
		return nil, rpcerrors.NetworkError("client has no active session", nil)
	}

	call.CallContextSnapshot = callcontext.Snapshot(ctx)
	uniqueCallKey := uuid.NewString()

	msg, err := wire.Build(wire.TypeRPC, c.cfg.Serializer, call, c.privateKeySnapshot(), c.currentSharedSecret(), uniqueCallKey, false)
	if err != nil {
		return nil, rpcerrors.NetworkError("build rpc request", err)
	}

	var rc *ClientRpcContext
	if !oneWay {
		rc = newClientRpcContext(uniqueCallKey)
		c.callsMu.Lock()
		c.calls[uniqueCallKey] = rc
		c.callsMu.Unlock()
	}

	if err := c.sendFrame(ctx, msg); err != nil {
		if rc != nil {
			c.removeCall(uniqueCallKey)
		}
		return nil, err
	}

	if oneWay {
		return nil, nil
	}

	if c.cfg.InvocationTimeout <= 0 {
		select {
		case <-rc.done:
			return c.finishCall(ctx, rc)
		case <-ctx.Done():
			return nil, rpcerrors.TimeoutError("invocation canceled", ctx.Err())
		}
	}

	timer := time.NewTimer(c.cfg.InvocationTimeout)
	defer timer.Stop()

	select {
	case <-rc.done:
		return c.finishCall(ctx, rc)
	case <-timer.C:
		return nil, rpcerrors.TimeoutError("invocation timed out", nil)
	case <-ctx.Done():
		return nil, rpcerrors.TimeoutError("invocation canceled", ctx.Err())
	}
}

func (c *Client) finishCall(ctx context.Context, rc *ClientRpcContext) (*wire.MethodCallResultMessage, error) {
	c.removeCall(rc.UniqueCallKey)
	if rc.Err != nil {
		return nil, rc.Err
	}
	callcontext.Restore(ctx, rc.Result.CallContextSnapshot)
	return rc.Result, nil
}

func (c *Client) removeCall(key string) {
	c.callsMu.Lock()
	delete(c.calls, key)
	c.callsMu.Unlock()
}

func (c *Client) lookupCall(key string) (*ClientRpcContext, bool) {
	c.callsMu.Lock()
	defer c.callsMu.Unlock()
	rc, ok := c.calls[key]
	return rc, ok
}

func (c *Client) handleRPCResult(msg *wire.Message) {
	rc, ok := c.lookupCall(msg.UniqueCallKey)
	if !ok {
		return // stale or unsolicited result (e.g. for a call already completed)
	}
	// A result that arrives after the caller timed out still completes and
	// releases its entry.
	c.removeCall(msg.UniqueCallKey)

	plaintext, err := wire.Decrypt(msg, c.cfg.Serializer, c.currentSharedSecret(), c.currentPeerPublic())
	if err != nil {
		rc.Err = rpcerrors.SecurityError("decrypt rpc result", err)
		rc.complete()
		return
	}

	if msg.Error {
		var exc wire.RemoteExceptionMessage
		if err := c.cfg.Serializer.Deserialize(plaintext, &exc); err != nil {
			rc.Err = rpcerrors.NetworkError("deserialize remote exception", err)
		} else {
			var cause error
			if exc.InnerCause != "" {
				cause = errors.New(exc.InnerCause)
			}
			rc.Err = rpcerrors.RemoteInvocationError(exc.Message, cause)
		}
		rc.complete()
		return
	}

	var result wire.MethodCallResultMessage
	if err := c.cfg.Serializer.Deserialize(plaintext, &result); err != nil {
		rc.Err = rpcerrors.NetworkError("deserialize rpc result", err)
		rc.complete()
		return
	}
	rc.Result = &result
	rc.complete()
}

// handleInvoke runs a reverse delegate callback the server addressed by
// handler key. DelegateFunc is fire-and-forget (it has no return value
// to report back), so a missing handler only surfaces via the Error
// event hook.
func (c *Client) handleInvoke(msg *wire.Message) {
	plaintext, err := wire.Decrypt(msg, c.cfg.Serializer, c.currentSharedSecret(), c.currentPeerPublic())
	if err != nil {
		c.events.fireError(rpcerrors.SecurityError("decrypt delegate invocation", err))
		return
	}

	var inv wire.RemoteDelegateInvocationMessage
	if err := c.cfg.Serializer.Deserialize(plaintext, &inv); err != nil {
		c.events.fireError(rpcerrors.NetworkError("deserialize delegate invocation", err))
		return
	}

	handlerKey, err := uuid.Parse(inv.HandlerKey)
	if err != nil {
		c.events.fireError(rpcerrors.NetworkError("parse delegate handler key", err))
		return
	}

	handler, ok := c.delegates.Lookup(handlerKey)
	if !ok {
		c.events.fireError(rpcerrors.KeyNotFoundError("no delegate registered for handler key " + inv.HandlerKey))
		return
	}
	handler(inv.DelegateArguments)
}

func (c *Client) handleGoodbye(msg *wire.Message) {
	select {
	case c.goodbyeCh <- struct{}{}:
	default:
	}
}
