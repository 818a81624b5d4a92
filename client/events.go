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

// ErrorFunc observes a session-terminating or best-effort-recovered
// protocol error, mirroring the server facade's Error hook.
type ErrorFunc func(err error)

// Events is the set of hooks a host application wires to observe
// client-side session errors. Every field is optional.
type Events struct {
	Error ErrorFunc
}

func (e Events) fireError(err error) {
	if e.Error != nil {
		e.Error(err)
	}
}
