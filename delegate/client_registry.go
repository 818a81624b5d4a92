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

// Package delegate implements the client-side callback registry and the
// server-side delegate-proxy factory that back reverse (server-to-client)
// invocations.
package delegate

import (
	"sync"

	"github.com/google/uuid"
)

// DelegateFunc is a client-registered callback invoked when the server
// sends an inbound `invoke` message addressed to its handler key.
// Arguments arrive pre-decoded by the caller.
type DelegateFunc func(args [][]byte)

// ProxyID identifies the remote-proxy instance that owns a set of
// registered delegates, so they can all be torn down together.
type ProxyID string

// ClientDelegateRegistry tracks callback handlers registered by client
// proxies, keyed by the handler key the server uses to address inbound
// invocations.
type ClientDelegateRegistry struct {
	mu       sync.RWMutex
	handlers map[uuid.UUID]DelegateFunc
	owners   map[uuid.UUID]ProxyID
}

// NewClientDelegateRegistry creates an empty registry.
func NewClientDelegateRegistry() *ClientDelegateRegistry {
	return &ClientDelegateRegistry{
		handlers: make(map[uuid.UUID]DelegateFunc),
		owners:   make(map[uuid.UUID]ProxyID),
	}
}

// Register adds handler under a freshly generated handler key, recording
// owner so UnregisterAllOf can later remove it in bulk.
func (r *ClientDelegateRegistry) Register(handler DelegateFunc, owner ProxyID) uuid.UUID {
	key := uuid.New()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[key] = handler
	r.owners[key] = owner
	return key
}

// Lookup returns the handler registered under handlerKey, if any.
func (r *ClientDelegateRegistry) Lookup(handlerKey uuid.UUID) (DelegateFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[handlerKey]
	return h, ok
}

// UnregisterAllOf removes every handler registered by owner, called when
// its proxy shuts down.
func (r *ClientDelegateRegistry) UnregisterAllOf(owner ProxyID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, o := range r.owners {
		if o == owner {
			delete(r.handlers, key)
			delete(r.owners, key)
		}
	}
}
