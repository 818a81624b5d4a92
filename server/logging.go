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
	"github.com/google/uuid"
	"github.com/mr-tron/base58"
)

// compactID renders a session/call/handler UUID as base58 for shorter,
// still-unambiguous log lines. Falls back to the original string for
// values that aren't UUIDs.
func compactID(id string) string {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return id
	}
	return base58.Encode(parsed[:])
}
