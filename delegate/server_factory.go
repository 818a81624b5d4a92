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

package delegate

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/sage-x-project/remoting/rpcerrors"
)

// ForgedDelegate is a callable proxy standing in for a client-side
// handler on the server. Invocations are one-way: the server never waits
// for, or receives, a return value.
type ForgedDelegate struct {
	HandlerKey       uuid.UUID
	DelegateTypeName string
	onInvoke         func(args [][]byte)
}

// Invoke routes args into the forged delegate's callback.
func (d *ForgedDelegate) Invoke(args [][]byte) {
	d.onInvoke(args)
}

// voidDelegateTypes lists the delegate type names the server knows how
// to forge. Only void-return delegate types are supported, matching the
// one-way nature of a server-initiated callback.
var voidDelegateTypes = map[string]bool{
	"Action":  true,
	"Handler": true,
	"Notify":  true,
}

// RegisterVoidDelegateType adds delegateTypeName to the set Forge will
// accept, for callers that define their own one-way delegate type names.
func RegisterVoidDelegateType(delegateTypeName string) {
	voidDelegateTypes[delegateTypeName] = true
}

// ServerFactory forges and caches delegate proxies per session so that
// re-subscribing to the same remote handler yields the same proxy
// identity.
type ServerFactory struct {
	mu     sync.Mutex
	forged map[uuid.UUID]*ForgedDelegate
}

// NewServerFactory creates an empty factory.
func NewServerFactory() *ServerFactory {
	return &ServerFactory{forged: make(map[uuid.UUID]*ForgedDelegate)}
}

// Forge produces a callable whose invocation routes arguments into
// onInvoke. delegateTypeName must name a registered void-return delegate
// type; any other name fails with a NotSupportedError.
func (f *ServerFactory) Forge(handlerKey uuid.UUID, delegateTypeName string, onInvoke func(args [][]byte)) (*ForgedDelegate, error) {
	if !voidDelegateTypes[delegateTypeName] {
		return nil, rpcerrors.NotSupportedError(fmt.Sprintf("only void delegates supported, got %q", delegateTypeName))
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.forged[handlerKey]; ok {
		return existing, nil
	}

	forged := &ForgedDelegate{HandlerKey: handlerKey, DelegateTypeName: delegateTypeName, onInvoke: onInvoke}
	f.forged[handlerKey] = forged
	return forged, nil
}

// Release drops the cached proxy for handlerKey, called on unsubscribe.
func (f *ServerFactory) Release(handlerKey uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.forged, handlerKey)
}
