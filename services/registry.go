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

// Package services resolves a wire-named service and method to a
// reflect-driven invocation against a registered implementation.
package services

import (
	"reflect"
	"sync"

	"github.com/sage-x-project/remoting/rpcerrors"
)

// Registration is one service registered under a wire-visible name.
type Registration struct {
	Name      string
	Interface reflect.Type
	Impl      reflect.Value
	// OneWayMethods names the methods that must be dispatched without a
	// reply (annotated one-way on the service's interface).
	OneWayMethods map[string]bool
}

// Registry is the server's DI collaborator: a concurrency-safe map from
// wire service name to its bound implementation, in the
// sync.RWMutex+map idiom used throughout this module's session store.
type Registry struct {
	mu       sync.RWMutex
	services map[string]*Registration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{services: make(map[string]*Registration)}
}

// Register binds name to impl, which must implement iface. oneWayMethods
// names the subset of iface's methods that are fire-and-forget.
func (r *Registry) Register(name string, iface reflect.Type, impl interface{}, oneWayMethods ...string) error {
	implValue := reflect.ValueOf(impl)
	if !implValue.Type().Implements(iface) {
		return rpcerrors.NotSupportedError(implValue.Type().String() + " does not implement " + iface.String())
	}

	oneWay := make(map[string]bool, len(oneWayMethods))
	for _, m := range oneWayMethods {
		oneWay[m] = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[name] = &Registration{Name: name, Interface: iface, Impl: implValue, OneWayMethods: oneWay}
	return nil
}

// Lookup resolves a service by its wire name.
func (r *Registry) Lookup(name string) (*Registration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.services[name]
	if !ok {
		return nil, rpcerrors.Escalate(rpcerrors.KeyNotFoundError("service not registered: " + name))
	}
	return reg, nil
}

// NameOf reverse-looks-up the wire name impl was registered under, by
// pointer identity. Used to detect a "return as proxy" result: when a
// dispatched method returns an instance that is itself a registered
// service, the caller should receive a ServiceReference instead of a
// serialized copy.
func (r *Registry) NameOf(impl interface{}) (string, bool) {
	v := reflect.ValueOf(impl)
	if !v.IsValid() || (v.Kind() != reflect.Ptr && v.Kind() != reflect.Interface) || v.IsNil() {
		return "", false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for name, reg := range r.services {
		if reg.Impl.Kind() == reflect.Ptr && reg.Impl.Pointer() == v.Pointer() {
			return name, true
		}
	}
	return "", false
}

// Unregister removes name from the registry.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.services, name)
}
