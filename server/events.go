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

	"github.com/sage-x-project/remoting/session"
	"github.com/sage-x-project/remoting/wire"
)

// ServerRpcContext carries one in-flight RPC dispatch's state through the
// BeginCall/BeforeCall/AfterCall/RejectCall hooks, letting handlers
// inspect and, in BeginCall's case, veto the invocation.
type ServerRpcContext struct {
	Session       session.Session
	ServiceName   string
	MethodName    string
	UniqueCallKey string

	// Cancel, when set by a BeginCall handler, skips invocation and
	// replies with Exception instead.
	Cancel    bool
	Exception error

	// Result/Err are populated after dispatch, visible to AfterCall.
	Result *wire.MethodCallResultMessage
	Err    error
}

type (
	BeginCallFunc  func(ctx context.Context, rc *ServerRpcContext)
	BeforeCallFunc func(ctx context.Context, rc *ServerRpcContext)
	AfterCallFunc  func(ctx context.Context, rc *ServerRpcContext)
	RejectCallFunc func(ctx context.Context, rc *ServerRpcContext)
	LogonFunc      func(sess session.Session, identity wire.Identity)
	LogoffFunc     func(sess session.Session)
	ErrorFunc      func(sess session.Session, err error)
)

// Events is the set of hooks a host application wires to observe, and in
// BeginCall's case police, server-side session and RPC activity. Every
// field is optional.
type Events struct {
	BeginCall  BeginCallFunc
	BeforeCall BeforeCallFunc
	AfterCall  AfterCallFunc
	RejectCall RejectCallFunc
	Logon      LogonFunc
	Logoff     LogoffFunc
	Error      ErrorFunc
}

func (e Events) fireBeginCall(ctx context.Context, rc *ServerRpcContext) {
	if e.BeginCall != nil {
		e.BeginCall(ctx, rc)
	}
}

func (e Events) fireBeforeCall(ctx context.Context, rc *ServerRpcContext) {
	if e.BeforeCall != nil {
		e.BeforeCall(ctx, rc)
	}
}

func (e Events) fireAfterCall(ctx context.Context, rc *ServerRpcContext) {
	if e.AfterCall != nil {
		e.AfterCall(ctx, rc)
	}
}

func (e Events) fireRejectCall(ctx context.Context, rc *ServerRpcContext) {
	if e.RejectCall != nil {
		e.RejectCall(ctx, rc)
	}
}

func (e Events) fireLogon(sess session.Session, identity wire.Identity) {
	if e.Logon != nil {
		e.Logon(sess, identity)
	}
}

func (e Events) fireLogoff(sess session.Session) {
	if e.Logoff != nil {
		e.Logoff(sess)
	}
}

func (e Events) fireError(sess session.Session, err error) {
	if e.Error != nil {
		e.Error(sess, err)
	}
}
