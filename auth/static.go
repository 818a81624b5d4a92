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

package auth

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/sage-x-project/remoting/rpcerrors"
	"github.com/sage-x-project/remoting/wire"
)

// StaticCredentialProvider authenticates username/password credentials
// against an in-memory table of bcrypt-hashed passwords.
type StaticCredentialProvider struct {
	mu    sync.RWMutex
	users map[string]staticUser
}

type staticUser struct {
	passwordHash []byte
	identity     wire.Identity
}

// NewStaticCredentialProvider creates an empty provider; register users
// with AddUser before wiring it into a server.
func NewStaticCredentialProvider() *StaticCredentialProvider {
	return &StaticCredentialProvider{users: make(map[string]staticUser)}
}

// AddUser registers a username with a plaintext password, hashed with
// bcrypt at the default cost. identity is returned on successful auth.
func (p *StaticCredentialProvider) AddUser(username, password string, identity wire.Identity) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return rpcerrors.SecurityError("hash password", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users[username] = staticUser{passwordHash: hash, identity: identity}
	return nil
}

// RemoveUser deletes a registered user.
func (p *StaticCredentialProvider) RemoveUser(username string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.users, username)
}

// Authenticate implements Provider.
func (p *StaticCredentialProvider) Authenticate(_ context.Context, credentials []wire.Credential) (wire.Identity, error) {
	username := credentialValue(credentials, "username")
	password := credentialValue(credentials, "password")
	if username == "" {
		return wire.Identity{}, rpcerrors.SecurityError("missing username credential", nil)
	}

	p.mu.RLock()
	user, ok := p.users[username]
	p.mu.RUnlock()
	if !ok {
		return wire.Identity{}, rpcerrors.SecurityError(fmt.Sprintf("unknown user: %s", username), nil)
	}

	if err := bcrypt.CompareHashAndPassword(user.passwordHash, []byte(password)); err != nil {
		return wire.Identity{}, rpcerrors.SecurityError("invalid credentials", err)
	}
	return user.identity, nil
}
