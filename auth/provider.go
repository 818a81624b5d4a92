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

// Package auth implements the pluggable server-side authentication
// collaborator: credentials carried in an AuthenticationRequestMessage
// are handed to a Provider, which resolves them to an Identity or
// rejects the attempt.
package auth

import (
	"context"

	"github.com/sage-x-project/remoting/wire"
)

// Provider resolves a set of credentials to an authenticated identity.
// Implementations must be safe for concurrent use across sessions.
type Provider interface {
	Authenticate(ctx context.Context, credentials []wire.Credential) (wire.Identity, error)
}

// credentialValue returns the value of the named credential, or "" if absent.
func credentialValue(credentials []wire.Credential, name string) string {
	for _, c := range credentials {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}
