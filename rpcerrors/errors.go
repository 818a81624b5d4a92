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

// Package rpcerrors defines the error kinds the RPC engine distinguishes
// and propagates across the client/server boundary.
package rpcerrors

import (
	"fmt"

	"github.com/sage-x-project/remoting/internal/logger"
)

// Kind classifies an engine-level error for the caller, independent of the
// underlying Go error type.
type Kind string

const (
	// KindNetwork covers transport failure, handshake timeout, and
	// protocol framing violations.
	KindNetwork Kind = "network"
	// KindSecurity covers authentication failure, authentication timeout,
	// signature verification failure, and decryption failure.
	KindSecurity Kind = "security"
	// KindTimeout covers invocation, send, and goodbye-wait timeouts.
	KindTimeout Kind = "timeout"
	// KindRemoteInvocation covers any exception raised during server-side
	// invocation, including method-not-found.
	KindRemoteInvocation Kind = "remote_invocation"
	// KindNotSupported covers static misuse of the API: a one-way method
	// declared non-void, or a non-void delegate passed as an argument.
	KindNotSupported Kind = "not_supported"
	// KindKeyNotFound covers correlation or registry lookup misses.
	KindKeyNotFound Kind = "key_not_found"
)

// Error is the engine's structured error type. It wraps an underlying
// cause (when any) and tags it with a Kind so callers can branch on
// failure category without string matching.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// NetworkError builds a KindNetwork error.
func NetworkError(message string, cause error) *Error {
	return newError(KindNetwork, message, cause)
}

// SecurityError builds a KindSecurity error.
func SecurityError(message string, cause error) *Error {
	return newError(KindSecurity, message, cause)
}

// TimeoutError builds a KindTimeout error.
func TimeoutError(message string, cause error) *Error {
	return newError(KindTimeout, message, cause)
}

// RemoteInvocationError builds a KindRemoteInvocation error, optionally
// carrying the original remote-side message as its cause.
func RemoteInvocationError(message string, cause error) *Error {
	return newError(KindRemoteInvocation, message, cause)
}

// MethodNotFoundError is a RemoteInvocationError for an unresolved
// service/method pair.
func MethodNotFoundError(serviceName, methodName string) *Error {
	return RemoteInvocationError(fmt.Sprintf("method not found: %s.%s", serviceName, methodName), nil)
}

// NotSupportedError builds a KindNotSupported error.
func NotSupportedError(message string) *Error {
	return newError(KindNotSupported, message, nil)
}

// KeyNotFoundError builds a KindKeyNotFound error. Per §7, this kind is
// internal-only: it must be escalated to a NetworkError before it is
// allowed to escape the repository/registry boundary.
func KeyNotFoundError(message string) *Error {
	return newError(KindKeyNotFound, message, nil)
}

// Escalate converts a KindKeyNotFound error into a NetworkError for
// propagation past the internal lookup boundary; every other kind passes
// through unchanged.
func Escalate(err error) error {
	var e *Error
	if As(err, &e) && e.Kind == KindKeyNotFound {
		return NetworkError(e.Message, nil)
	}
	return err
}

// As is a local alias of errors.As, kept here so callers of this package
// don't need a second import for the common case of narrowing to *Error.
func As(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// ToEngineError adapts an *Error to the structured *logger.EngineError
// shape used by the logger's structured-field output.
func ToEngineError(err *Error) *logger.EngineError {
	code := logger.ErrCodeInternal
	switch err.Kind {
	case KindNetwork:
		code = logger.ErrCodeNetwork
	case KindSecurity:
		code = logger.ErrCodeSecurity
	case KindTimeout:
		code = logger.ErrCodeTimeout
	case KindRemoteInvocation:
		code = logger.ErrCodeRemoteInvocation
	case KindNotSupported:
		code = logger.ErrCodeNotSupported
	case KindKeyNotFound:
		code = logger.ErrCodeKeyNotFound
	}
	return logger.NewEngineError(code, err.Message, err.Cause)
}
