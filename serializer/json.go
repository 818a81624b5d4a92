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

package serializer

import "encoding/json"

// JSONSerializer is the default Serializer implementation. Because
// encoding/json erases concrete type information behind interface-typed
// fields, EnvelopeNeeded reports true so the engine always carries a
// TypeEnvelope alongside parameter/return values.
type JSONSerializer struct{}

// NewJSONSerializer creates a new JSONSerializer.
func NewJSONSerializer() *JSONSerializer {
	return &JSONSerializer{}
}

// Serialize encodes value as JSON.
func (s *JSONSerializer) Serialize(value interface{}) ([]byte, error) {
	return json.Marshal(value)
}

// Deserialize decodes JSON data into out.
func (s *JSONSerializer) Deserialize(data []byte, out interface{}) error {
	return json.Unmarshal(data, out)
}

// EnvelopeNeeded always returns true for JSON.
func (s *JSONSerializer) EnvelopeNeeded() bool {
	return true
}
