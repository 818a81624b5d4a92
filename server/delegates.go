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
	"reflect"

	"github.com/google/uuid"

	"github.com/sage-x-project/remoting/internal/logger"
	"github.com/sage-x-project/remoting/internal/metrics"
	"github.com/sage-x-project/remoting/rpcerrors"
	"github.com/sage-x-project/remoting/services"
	"github.com/sage-x-project/remoting/session"
	"github.com/sage-x-project/remoting/transport"
	"github.com/sage-x-project/remoting/wire"
)

// resolveDelegate returns a services.DelegateResolver bound to sess/ch:
// it forges (or reuses) a proxy for the inbound RemoteDelegateInfo and
// wraps it in a reflect.MakeFunc value matching the target parameter's Go
// func type, so services.Dispatch can pass it straight to reflect.Call.
// Invoking the returned func serializes its arguments and sends a
// one-way `invoke` message back to the client; it never blocks on a
// reply, matching the void-only contract of forged delegates.
func (s *Server) resolveDelegate(sess session.Session, ch transport.Channel) services.DelegateResolver {
	return func(info wire.RemoteDelegateInfo, funcType reflect.Type) (reflect.Value, error) {
		handlerKey, err := uuid.Parse(info.HandlerKey)
		if err != nil {
			return reflect.Value{}, rpcerrors.RemoteInvocationError("invalid delegate handler key", err)
		}

		forged, err := sess.Delegates().Forge(handlerKey, info.DelegateTypeName, func(args [][]byte) {
			s.sendDelegateInvocation(sess, ch, info, args)
		})
		if err != nil {
			return reflect.Value{}, err
		}

		fn := reflect.MakeFunc(funcType, func(callArgs []reflect.Value) []reflect.Value {
			raw := make([][]byte, len(callArgs))
			for i, v := range callArgs {
				b, err := s.cfg.Serializer.Serialize(v.Interface())
				if err != nil {
					logger.Warn("serialize delegate argument failed", logger.Error(err))
					continue
				}
				raw[i] = b
			}
			forged.Invoke(raw)
			return make([]reflect.Value, funcType.NumOut())
		})
		return fn, nil
	}
}

func (s *Server) sendDelegateInvocation(sess session.Session, ch transport.Channel, info wire.RemoteDelegateInfo, args [][]byte) {
	metrics.DelegateInvocations.WithLabelValues(info.DelegateTypeName).Inc()

	payload := wire.RemoteDelegateInvocationMessage{
		HandlerKey:        info.HandlerKey,
		DelegateArguments: args,
		UniqueCallKey:     uuid.NewString(),
	}
	msg, err := wire.Build(wire.TypeInvoke, s.cfg.Serializer, payload, sess.PrivateKey(), sess.SharedSecret(), payload.UniqueCallKey, false)
	if err != nil {
		s.emitError(sess, err)
		return
	}
	s.send(sess, ch, msg)
}
