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

package services

import (
	"context"
	"fmt"
	"reflect"

	"github.com/sage-x-project/remoting/rpcerrors"
	"github.com/sage-x-project/remoting/serializer"
	"github.com/sage-x-project/remoting/wire"
)

// delegateTypeName marks a parameter whose wire value is a
// wire.RemoteDelegateInfo rather than a directly-deserializable argument.
const delegateTypeName = "remote_delegate"

var (
	ctxType        = reflect.TypeOf((*context.Context)(nil)).Elem()
	errType        = reflect.TypeOf((*error)(nil)).Elem()
	delegateInfoTy = reflect.TypeOf(wire.RemoteDelegateInfo{})
)

// DelegateResolver turns an inbound RemoteDelegateInfo into a callable Go
// func value matching funcType, wired so that invoking it sends a
// reverse `invoke` message to the owning client. Supplied by the server
// engine, which alone knows how to reach the session's transport.
type DelegateResolver func(info wire.RemoteDelegateInfo, funcType reflect.Type) (reflect.Value, error)

// Resolve finds the method on reg's interface matching call's method
// name. Go has no generic interface methods, so GenericArgumentTypeNames
// is accepted for wire compatibility but does not affect resolution: a
// service exposes one concrete method per instantiation it supports, and
// callers name it directly.
func (reg *Registration) Resolve(methodName string) (reflect.Method, bool) {
	return reg.Interface.MethodByName(methodName)
}

// Dispatch resolves and invokes call against reg's implementation.
//
// Trailing non-error return values beyond the first become out
// parameters (this module's idiomatic stand-in for by-ref/out
// parameters, which Go methods don't have — multiple return values are
// the native way to hand back more than one result).
func Dispatch(
	ctx context.Context,
	reg *Registration,
	call wire.MethodCallMessage,
	ser serializer.Serializer,
	resolveDelegate DelegateResolver,
	lookupServiceName func(impl interface{}) (string, bool),
) (result *wire.MethodCallResultMessage, oneWay bool, err error) {
	_, ok := reg.Resolve(call.MethodName)
	if !ok {
		return nil, false, rpcerrors.MethodNotFoundError(call.ServiceName, call.MethodName)
	}
	oneWay = reg.OneWayMethods[call.MethodName]

	fn := reg.Impl.MethodByName(call.MethodName)
	fnType := fn.Type()

	args := make([]reflect.Value, 0, fnType.NumIn())
	paramIdx := 0
	if fnType.NumIn() > 0 && fnType.In(0) == ctxType {
		args = append(args, reflect.ValueOf(ctx))
	}

	for i := len(args); i < fnType.NumIn(); i++ {
		if paramIdx >= len(call.Parameters) {
			return nil, false, rpcerrors.RemoteInvocationError(
				fmt.Sprintf("%s.%s: too few parameters supplied", call.ServiceName, call.MethodName), nil)
		}
		param := call.Parameters[paramIdx]
		paramIdx++

		paramType := fnType.In(i)

		if paramType.Kind() == reflect.Func && param.DeclaredTypeName == delegateTypeName {
			var info wire.RemoteDelegateInfo
			if err := ser.Deserialize(param.Value, &info); err != nil {
				return nil, false, rpcerrors.NetworkError("deserialize remote delegate info", err)
			}
			delegateFn, err := resolveDelegate(info, paramType)
			if err != nil {
				return nil, false, err
			}
			args = append(args, delegateFn)
			continue
		}

		argValue := reflect.New(paramType)
		if !param.IsNull {
			if err := ser.Deserialize(param.Value, argValue.Interface()); err != nil {
				return nil, false, rpcerrors.NetworkError(
					fmt.Sprintf("deserialize parameter %q", param.Name), err)
			}
		}
		args = append(args, argValue.Elem())
	}

	results := fn.Call(args)

	var callErr error
	if n := len(results); n > 0 && fnType.Out(n-1) == errType {
		if e, ok := results[n-1].Interface().(error); ok {
			callErr = e
		}
		results = results[:n-1]
	}
	if callErr != nil {
		return nil, oneWay, rpcerrors.RemoteInvocationError(callErr.Error(), callErr)
	}

	if oneWay {
		return nil, true, nil
	}

	msg := &wire.MethodCallResultMessage{}
	if len(results) > 0 {
		retBytes, asReference, err := encodeReturnValue(ser, results[0].Interface(), lookupServiceName)
		if err != nil {
			return nil, false, err
		}
		msg.ReturnValue = retBytes
		msg.IsServiceReference = asReference
	} else {
		msg.IsReturnValueNull = true
	}

	outResults := results
	if len(outResults) > 0 {
		outResults = outResults[1:]
	}
	for i, r := range outResults {
		outBytes, err := ser.Serialize(r.Interface())
		if err != nil {
			return nil, false, rpcerrors.NetworkError("serialize out parameter", err)
		}
		msg.OutParameters = append(msg.OutParameters, wire.OutParameterDescriptor{
			Name:  fmt.Sprintf("out%d", i),
			Value: outBytes,
		})
	}

	return msg, false, nil
}

// encodeReturnValue serializes a dispatched method's primary return value,
// substituting a wire.ServiceReference when the value is itself a
// registered service instance (the "return as proxy" convention).
func encodeReturnValue(
	ser serializer.Serializer,
	retValue interface{},
	lookupServiceName func(impl interface{}) (string, bool),
) (data []byte, asReference bool, err error) {
	if lookupServiceName != nil {
		if name, ok := lookupServiceName(retValue); ok {
			data, err = ser.Serialize(wire.ServiceReference{ServiceName: name})
			if err != nil {
				return nil, false, rpcerrors.NetworkError("serialize service reference", err)
			}
			return data, true, nil
		}
	}
	data, err = ser.Serialize(retValue)
	if err != nil {
		return nil, false, rpcerrors.NetworkError("serialize return value", err)
	}
	return data, false, nil
}
