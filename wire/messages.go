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

// Package wire defines the message envelope and the typed payloads carried
// across the RPC wire protocol.
package wire

// MessageType is a case-insensitive wire message tag. Comparisons are
// always done on the lowercased form; Normalize enforces this.
type MessageType string

const (
	TypeCompleteHandshake MessageType = "complete_handshake"
	TypeAuth              MessageType = "auth"
	TypeAuthResponse      MessageType = "auth_response"
	TypeRPC               MessageType = "rpc"
	TypeRPCResult         MessageType = "rpc_result"
	TypeInvoke            MessageType = "invoke"
	TypeGoodbye           MessageType = "goodbye"
)

// Normalize lowercases a message type as received off the wire.
func Normalize(t MessageType) MessageType {
	return MessageType(toLower(string(t)))
}

func toLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// ParameterDescriptor describes one method-call parameter as carried on
// the wire.
type ParameterDescriptor struct {
	Name             string `json:"name"`
	DeclaredTypeName string `json:"declared_type_name"`
	Value            []byte `json:"value"`
	IsNull           bool   `json:"is_null"`
}

// OutParameterDescriptor describes an out/ref parameter value returned
// alongside a method's return value.
type OutParameterDescriptor struct {
	Name   string `json:"name"`
	Value  []byte `json:"value"`
	IsNull bool   `json:"is_null"`
}

// CallContextEntry is one flow-local name/value pair snapshotted onto a
// call and restored on the peer.
type CallContextEntry struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// MethodCallMessage is the payload of a `rpc` wire message.
type MethodCallMessage struct {
	ServiceName              string                `json:"service_name"`
	MethodName                string                `json:"method_name"`
	GenericArgumentTypeNames []string              `json:"generic_argument_type_names,omitempty"`
	Parameters               []ParameterDescriptor `json:"parameters"`
	CallContextSnapshot       []CallContextEntry    `json:"call_context_snapshot,omitempty"`
}

// MethodCallResultMessage is the payload of a successful `rpc_result`
// wire message.
type MethodCallResultMessage struct {
	ReturnValue       []byte `json:"return_value,omitempty"`
	IsReturnValueNull bool   `json:"is_return_value_null"`
	// IsServiceReference marks ReturnValue as a serialized ServiceReference
	// rather than a direct value: the returned instance is itself a
	// registered service, so the caller should receive a proxy instead of
	// an attempted by-value copy.
	IsServiceReference  bool                     `json:"is_service_reference,omitempty"`
	OutParameters       []OutParameterDescriptor `json:"out_parameters,omitempty"`
	CallContextSnapshot []CallContextEntry       `json:"call_context_snapshot,omitempty"`
}

// ServiceReference is the ReturnValue payload of a result whose
// IsServiceReference flag is set: it names the service the caller should
// synthesize a proxy against instead of deserializing a value.
type ServiceReference struct {
	ServiceName string `json:"service_name"`
}

// RemoteExceptionMessage is the payload of an error-flagged `rpc_result`.
type RemoteExceptionMessage struct {
	Message    string `json:"message"`
	InnerCause string `json:"inner_cause,omitempty"`
}

// RemoteDelegateInfo identifies a client-side callback registered for a
// reverse (server-to-client) delegate invocation.
type RemoteDelegateInfo struct {
	HandlerKey       string `json:"handler_key"`
	DelegateTypeName string `json:"delegate_type_name"`
}

// RemoteDelegateInvocationMessage is the payload of an `invoke` wire
// message: the server asking the client to run a previously-registered
// delegate.
type RemoteDelegateInvocationMessage struct {
	HandlerKey      string   `json:"handler_key"`
	DelegateArguments [][]byte `json:"delegate_arguments"`
	UniqueCallKey   string   `json:"unique_call_key"`
}

// Credential is one name/value credential entry in an authentication
// request — a username/password pair, a bearer token, or a signature
// challenge response, depending on which AuthenticationProvider is wired.
type Credential struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// AuthenticationRequestMessage is the payload of an `auth` wire message.
type AuthenticationRequestMessage struct {
	Credentials []Credential `json:"credentials"`
}

// Identity describes an authenticated caller.
type Identity struct {
	Name   string   `json:"name"`
	Type   string   `json:"type"`
	Domain string   `json:"domain,omitempty"`
	Roles  []string `json:"roles,omitempty"`
}

// AuthenticationResponseMessage is the payload of an `auth_response`
// wire message.
type AuthenticationResponseMessage struct {
	IsAuthenticated bool      `json:"is_authenticated"`
	Identity        *Identity `json:"identity,omitempty"`
}

// GoodbyeMessage is the payload of a `goodbye` wire message.
type GoodbyeMessage struct {
	SessionID string `json:"session_id"`
}
