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

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sage-x-project/remoting/delegate"
)

// envelopeToggleSerializer wraps the default JSON encoding but reports a
// caller-controlled EnvelopeNeeded, so tests can observe whether the
// engine actually consults it.
type envelopeToggleSerializer struct {
	needed bool
}

func (s envelopeToggleSerializer) Serialize(v interface{}) ([]byte, error) { return json.Marshal(v) }
func (s envelopeToggleSerializer) Deserialize(data []byte, out interface{}) error {
	return json.Unmarshal(data, out)
}
func (s envelopeToggleSerializer) EnvelopeNeeded() bool { return s.needed }

func TestEncodeParametersCarriesDeclaredTypeNameOnlyWhenEnvelopeNeeded(t *testing.T) {
	fnType := reflect.TypeOf(func(string) error { return nil })
	args := []reflect.Value{reflect.ValueOf("hello")}

	withEnvelope := &Client{cfg: Config{Serializer: envelopeToggleSerializer{needed: true}}}
	params, err := withEnvelope.encodeParameters(fnType, args, 0, delegate.ProxyID("owner"))
	require.NoError(t, err)
	require.Len(t, params, 1)
	assert.Equal(t, "string", params[0].DeclaredTypeName)

	withoutEnvelope := &Client{cfg: Config{Serializer: envelopeToggleSerializer{needed: false}}}
	params, err = withoutEnvelope.encodeParameters(fnType, args, 0, delegate.ProxyID("owner"))
	require.NoError(t, err)
	require.Len(t, params, 1)
	assert.Empty(t, params[0].DeclaredTypeName)
}
