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

// Package callcontext carries flow-local name/value state on a
// context.Context across a call's client-dispatch/server-handle/reply
// round trip.
package callcontext

import (
	"context"
	"sort"
	"sync"

	"github.com/sage-x-project/remoting/wire"
)

type ctxKey struct{}

// store is the shared, mutex-guarded map a context.Context carries a
// reference to. Because it's a reference type, values set through one
// derived context are visible through any other context sharing the
// same store — the ambient "current flow" the spec calls for.
type store struct {
	mu     sync.Mutex
	values map[string]string
}

// New returns a context carrying a fresh, empty call-context store.
func New(parent context.Context) context.Context {
	return context.WithValue(parent, ctxKey{}, &store{values: make(map[string]string)})
}

func storeFrom(ctx context.Context) *store {
	s, _ := ctx.Value(ctxKey{}).(*store)
	return s
}

// Set assigns name=value in the flow-local store carried on ctx. It is a
// no-op if ctx was not produced by New.
func Set(ctx context.Context, name, value string) {
	s := storeFrom(ctx)
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[name] = value
}

// Get reads name from the flow-local store carried on ctx.
func Get(ctx context.Context, name string) (string, bool) {
	s := storeFrom(ctx)
	if s == nil {
		return "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[name]
	return v, ok
}

// Snapshot takes an ordered (by name) copy of every entry in ctx's
// flow-local store, suitable for embedding in an outgoing wire message.
func Snapshot(ctx context.Context) []wire.CallContextEntry {
	s := storeFrom(ctx)
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]wire.CallContextEntry, 0, len(s.values))
	for name, value := range s.values {
		entries = append(entries, wire.CallContextEntry{Name: name, Value: value})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

// Restore applies entries to ctx's flow-local store. A nil entries
// clears every key already present; a non-nil entries sets each given
// key, leaving unmentioned keys untouched.
func Restore(ctx context.Context, entries []wire.CallContextEntry) {
	s := storeFrom(ctx)
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if entries == nil {
		s.values = make(map[string]string)
		return
	}
	for _, e := range entries {
		s.values[e.Name] = e.Value
	}
}
