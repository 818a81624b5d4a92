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
	"time"

	"github.com/sage-x-project/remoting/callcontext"
	"github.com/sage-x-project/remoting/internal/audit"
	"github.com/sage-x-project/remoting/internal/metrics"
	"github.com/sage-x-project/remoting/rpcerrors"
	"github.com/sage-x-project/remoting/services"
	"github.com/sage-x-project/remoting/session"
	"github.com/sage-x-project/remoting/transport"
	"github.com/sage-x-project/remoting/wire"
)

// handleRPC implements the per-call lifecycle: decrypt, begin_call (which
// may veto), auth enforcement, call-context restore, dispatch,
// before_call/after_call, and reply. No exception raised along the way
// is allowed to escape this method or tear down the session.
func (s *Server) handleRPC(ctx context.Context, sess session.Session, ch transport.Channel, msg *wire.Message) {
	start := time.Now()

	plaintext, err := wire.Decrypt(msg, s.cfg.Serializer, sess.SharedSecret(), sess.PeerPublicKey())
	if err != nil {
		s.emitError(sess, err)
		return
	}
	var call wire.MethodCallMessage
	if err := s.cfg.Serializer.Deserialize(plaintext, &call); err != nil {
		s.emitError(sess, rpcerrors.NetworkError("deserialize method call", err))
		return
	}

	rc := &ServerRpcContext{
		Session:       sess,
		ServiceName:   call.ServiceName,
		MethodName:    call.MethodName,
		UniqueCallKey: msg.UniqueCallKey,
	}
	s.events.fireBeginCall(ctx, rc)
	if rc.Cancel {
		s.events.fireRejectCall(ctx, rc)
		exc := rc.Exception
		if exc == nil {
			exc = rpcerrors.RemoteInvocationError("call rejected", nil)
		}
		rc.Err = exc
		s.events.fireAfterCall(ctx, rc)
		s.replyException(sess, ch, msg.UniqueCallKey, exc)
		s.recordCall(sess, call, start, "rejected", exc)
		return
	}

	if s.cfg.AuthenticationRequired && !sess.IsAuthenticated() {
		authErr := rpcerrors.SecurityError("session not authenticated", nil)
		s.replyException(sess, ch, msg.UniqueCallKey, authErr)
		s.recordCall(sess, call, start, "rejected", authErr)
		return
	}

	callCtx := callcontext.New(ctx)
	callcontext.Restore(callCtx, call.CallContextSnapshot)

	reg, err := s.registry.Lookup(call.ServiceName)
	if err != nil {
		dispatchErr := rpcerrors.Escalate(err)
		s.replyException(sess, ch, msg.UniqueCallKey, dispatchErr)
		s.recordCall(sess, call, start, "exception", dispatchErr)
		return
	}

	s.events.fireBeforeCall(callCtx, rc)

	result, oneWay, dispatchErr := services.Dispatch(callCtx, reg, call, s.cfg.Serializer, s.resolveDelegate(sess, ch), s.registry.NameOf)

	rc.Result, rc.Err = result, dispatchErr
	s.events.fireAfterCall(callCtx, rc)

	if oneWay {
		s.recordCall(sess, call, start, "ok", nil)
		return
	}
	if dispatchErr != nil {
		s.replyException(sess, ch, msg.UniqueCallKey, dispatchErr)
		s.recordCall(sess, call, start, "exception", dispatchErr)
		return
	}

	result.CallContextSnapshot = callcontext.Snapshot(callCtx)
	s.replyResult(sess, ch, msg.UniqueCallKey, result)
	s.recordCall(sess, call, start, "ok", nil)
}

func (s *Server) replyResult(sess session.Session, ch transport.Channel, uniqueCallKey string, result *wire.MethodCallResultMessage) {
	msg, err := wire.Build(wire.TypeRPCResult, s.cfg.Serializer, result, sess.PrivateKey(), sess.SharedSecret(), uniqueCallKey, false)
	if err != nil {
		s.emitError(sess, err)
		return
	}
	s.send(sess, ch, msg)
}

func (s *Server) replyException(sess session.Session, ch transport.Channel, uniqueCallKey string, callErr error) {
	exc := wire.RemoteExceptionMessage{Message: callErr.Error()}
	if cause := errorCause(callErr); cause != nil {
		exc.InnerCause = cause.Error()
	}
	msg, err := wire.Build(wire.TypeRPCResult, s.cfg.Serializer, exc, sess.PrivateKey(), sess.SharedSecret(), uniqueCallKey, true)
	if err != nil {
		s.emitError(sess, err)
		return
	}
	s.send(sess, ch, msg)
}

func errorCause(err error) error {
	u, ok := err.(interface{ Unwrap() error })
	if !ok {
		return nil
	}
	return u.Unwrap()
}

func (s *Server) recordCall(sess session.Session, call wire.MethodCallMessage, start time.Time, outcome string, callErr error) {
	duration := time.Since(start)
	metrics.CallsDispatched.WithLabelValues(call.ServiceName, outcome).Inc()
	metrics.CallDuration.WithLabelValues(call.ServiceName).Observe(duration.Seconds())

	rec := audit.Record{
		ServerInstanceName: s.cfg.UniqueServerInstanceName,
		SessionID:          sess.ID(),
		ServiceName:        call.ServiceName,
		MethodName:         call.MethodName,
		StartedAt:          start,
		Duration:           duration,
		Outcome:            outcome,
	}
	if callErr != nil {
		rec.ErrorMessage = callErr.Error()
	}
	_ = s.cfg.AuditSink.RecordCall(context.Background(), rec)
}
