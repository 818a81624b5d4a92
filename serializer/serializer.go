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

// Package serializer adapts wire payload values to and from bytes.
package serializer

// Serializer is the adapter contract the engine dispatches parameter,
// return, and result values through.
type Serializer interface {
	// Serialize encodes value to bytes.
	Serialize(value interface{}) ([]byte, error)

	// Deserialize decodes data into out, which must be a pointer.
	Deserialize(data []byte, out interface{}) error

	// EnvelopeNeeded reports whether the caller must wrap polymorphic or
	// interface-typed values in a TypeEnvelope before calling Serialize,
	// to preserve the concrete runtime type name through the round trip.
	EnvelopeNeeded() bool
}

// TypeEnvelope carries a value's declared runtime type name alongside its
// serialized bytes, for serializers (like encoding/json) that otherwise
// erase interface-typed field information.
type TypeEnvelope struct {
	DeclaredTypeName string `json:"declared_type_name"`
	Value            []byte `json:"value"`
}
