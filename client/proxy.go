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
	"context"
	"fmt"
	"reflect"

	"github.com/google/uuid"

	"github.com/sage-x-project/remoting/delegate"
	"github.com/sage-x-project/remoting/rpcerrors"
	"github.com/sage-x-project/remoting/wire"
)

// remoteDelegateTypeName must match the wire-level convention services.Dispatch
// looks for on the server side: a parameter whose declared type name is
// this sentinel carries a wire.RemoteDelegateInfo rather than a directly
// deserializable value.
const remoteDelegateTypeName = "remote_delegate"

// defaultDelegateTypeName is the server-side forge's default accepted
// delegate type for callback parameters synthesized from a proxy.
const defaultDelegateTypeName = "Action"

var (
	ctxType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errType = reflect.TypeOf((*error)(nil)).Elem()
)

// oneWayTagValue is the struct tag value CreateProxy reads to mark a field
// as a fire-and-forget call: `remoting:"one_way"`.
const oneWayTagValue = "one_way"

// CreateProxy fills every exported, function-typed field of dst (which
// must be a non-nil pointer to a struct) with a synthesized remote stub
// dispatching to serviceName. Go's reflect package cannot manufacture a
// new concrete type implementing an arbitrary caller interface at
// runtime — reflect.MakeFunc only produces individual func values, not
// multi-method interface implementations — so callers describe the
// remote service as a struct of func fields instead of an interface.
// A field tagged `remoting:"one_way"` is dispatched without waiting for
// a reply and may declare at most a single error result, which reports
// only local encoding or send failures.
func (c *Client) CreateProxy(serviceName string, dst interface{}) error {
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Ptr || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return rpcerrors.NotSupportedError("CreateProxy: dst must be a non-nil pointer to a struct")
	}

	elem := v.Elem()
	elemType := elem.Type()
	owner := delegate.ProxyID(uuid.NewString())

	for i := 0; i < elemType.NumField(); i++ {
		field := elemType.Field(i)
		if field.PkgPath != "" || field.Type.Kind() != reflect.Func {
			continue
		}

		fnType := field.Type
		oneWay := field.Tag.Get("remoting") == oneWayTagValue
		if oneWay && (fnType.NumOut() > 1 || (fnType.NumOut() == 1 && fnType.Out(0) != errType)) {
			return rpcerrors.NotSupportedError(fmt.Sprintf("CreateProxy: one_way field %q may declare only an error result", field.Name))
		}

		fv := elem.Field(i)
		if !fv.CanSet() {
			continue
		}
		fv.Set(reflect.MakeFunc(fnType, c.proxyMethod(serviceName, field.Name, fnType, oneWay, owner)))
	}

	c.proxyOwnersMu.Lock()
	c.proxyOwners[v.Pointer()] = owner
	c.proxyOwnersMu.Unlock()
	return nil
}

// ShutdownProxy releases every delegate a prior CreateProxy(_, dst)
// registered, so reverse callbacks stop routing to dst's stubs.
func (c *Client) ShutdownProxy(dst interface{}) {
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Ptr {
		return
	}

	c.proxyOwnersMu.Lock()
	owner, ok := c.proxyOwners[v.Pointer()]
	delete(c.proxyOwners, v.Pointer())
	c.proxyOwnersMu.Unlock()

	if ok {
		c.delegates.UnregisterAllOf(owner)
	}
}

func (c *Client) proxyMethod(serviceName, methodName string, fnType reflect.Type, oneWay bool, owner delegate.ProxyID) func([]reflect.Value) []reflect.Value {
	return func(args []reflect.Value) []reflect.Value {
		ctx := context.Background()
		start := 0
		if fnType.NumIn() > 0 && fnType.In(0) == ctxType {
			if !args[0].IsNil() {
				ctx = args[0].Interface().(context.Context)
			}
			start = 1
		}

		params, err := c.encodeParameters(fnType, args, start, owner)
		if err != nil {
			return c.errorResults(fnType, err)
		}

		call := wire.MethodCallMessage{ServiceName: serviceName, MethodName: methodName, Parameters: params}
		result, err := c.InvokeRemoteMethod(ctx, call, oneWay)
		if err != nil {
			return c.errorResults(fnType, err)
		}
		if oneWay {
			return c.errorResults(fnType, nil)
		}
		return c.decodeResults(fnType, result)
	}
}

func (c *Client) encodeParameters(fnType reflect.Type, args []reflect.Value, start int, owner delegate.ProxyID) ([]wire.ParameterDescriptor, error) {
	params := make([]wire.ParameterDescriptor, 0, fnType.NumIn()-start)
	for i := start; i < fnType.NumIn(); i++ {
		arg := args[i]
		name := fmt.Sprintf("arg%d", i-start)

		if arg.Kind() == reflect.Func {
			info, err := c.registerDelegateArgument(arg, owner)
			if err != nil {
				return nil, err
			}
			data, err := c.cfg.Serializer.Serialize(info)
			if err != nil {
				return nil, rpcerrors.NetworkError("serialize delegate argument", err)
			}
			params = append(params, wire.ParameterDescriptor{Name: name, DeclaredTypeName: remoteDelegateTypeName, Value: data})
			continue
		}

		if arg.Kind() == reflect.Ptr && arg.IsNil() {
			pd := wire.ParameterDescriptor{Name: name, IsNull: true}
			if c.cfg.Serializer.EnvelopeNeeded() {
				pd.DeclaredTypeName = arg.Type().String()
			}
			params = append(params, pd)
			continue
		}

		data, err := c.cfg.Serializer.Serialize(arg.Interface())
		if err != nil {
			return nil, rpcerrors.NetworkError(fmt.Sprintf("serialize argument %q", name), err)
		}
		pd := wire.ParameterDescriptor{Name: name, Value: data}
		if c.cfg.Serializer.EnvelopeNeeded() {
			pd.DeclaredTypeName = arg.Type().String()
		}
		params = append(params, pd)
	}
	return params, nil
}

// registerDelegateArgument wraps a callback argument's reflect.Value in a
// delegate.DelegateFunc and registers it so a later reverse `invoke` from
// the server routes back into the caller's own func.
func (c *Client) registerDelegateArgument(arg reflect.Value, owner delegate.ProxyID) (wire.RemoteDelegateInfo, error) {
	fnType := arg.Type()
	handler := func(rawArgs [][]byte) {
		callArgs := make([]reflect.Value, fnType.NumIn())
		for i := 0; i < fnType.NumIn(); i++ {
			argValue := reflect.New(fnType.In(i))
			if i < len(rawArgs) && rawArgs[i] != nil {
				if err := c.cfg.Serializer.Deserialize(rawArgs[i], argValue.Interface()); err != nil {
					return
				}
			}
			callArgs[i] = argValue.Elem()
		}
		arg.Call(callArgs)
	}

	key := c.delegates.Register(handler, owner)
	return wire.RemoteDelegateInfo{HandlerKey: key.String(), DelegateTypeName: defaultDelegateTypeName}, nil
}

// decodeResults translates a successful MethodCallResultMessage into the
// []reflect.Value a synthesized proxy func must return, honoring the
// "return as proxy" convention: a service-reference result recursively
// synthesizes a nested proxy instead of attempting to deserialize a
// value.
func (c *Client) decodeResults(fnType reflect.Type, result *wire.MethodCallResultMessage) []reflect.Value {
	outs := make([]reflect.Value, fnType.NumOut())
	hasErrOut := fnType.NumOut() > 0 && fnType.Out(fnType.NumOut()-1) == errType
	valueOuts := fnType.NumOut()
	if hasErrOut {
		valueOuts--
	}

	if valueOuts > 0 {
		outType := fnType.Out(0)
		switch {
		case result.IsReturnValueNull:
			outs[0] = reflect.Zero(outType)
		case result.IsServiceReference:
			var ref wire.ServiceReference
			if err := c.cfg.Serializer.Deserialize(result.ReturnValue, &ref); err != nil {
				return c.errorResults(fnType, rpcerrors.NetworkError("deserialize service reference", err))
			}
			if outType.Kind() != reflect.Ptr || outType.Elem().Kind() != reflect.Struct {
				return c.errorResults(fnType, rpcerrors.NotSupportedError("return-as-proxy target must be a pointer to a struct of funcs"))
			}
			instance := reflect.New(outType.Elem())
			if err := c.CreateProxy(ref.ServiceName, instance.Interface()); err != nil {
				return c.errorResults(fnType, err)
			}
			outs[0] = instance
		default:
			argValue := reflect.New(outType)
			if err := c.cfg.Serializer.Deserialize(result.ReturnValue, argValue.Interface()); err != nil {
				return c.errorResults(fnType, rpcerrors.NetworkError("deserialize return value", err))
			}
			outs[0] = argValue.Elem()
		}

		for i := 1; i < valueOuts; i++ {
			outType := fnType.Out(i)
			argValue := reflect.New(outType)
			if i-1 < len(result.OutParameters) && !result.OutParameters[i-1].IsNull {
				if err := c.cfg.Serializer.Deserialize(result.OutParameters[i-1].Value, argValue.Interface()); err != nil {
					return c.errorResults(fnType, rpcerrors.NetworkError("deserialize out parameter", err))
				}
			}
			outs[i] = argValue.Elem()
		}
	}

	if hasErrOut {
		outs[len(outs)-1] = reflect.Zero(errType)
	}
	return outs
}

// errorResults zero-fills every return value, placing err in the
// trailing error slot when fnType declares one.
func (c *Client) errorResults(fnType reflect.Type, err error) []reflect.Value {
	outs := make([]reflect.Value, fnType.NumOut())
	for i := range outs {
		outs[i] = reflect.Zero(fnType.Out(i))
	}
	if n := len(outs); n > 0 && fnType.Out(n-1) == errType && err != nil {
		errValue := reflect.New(errType).Elem()
		errValue.Set(reflect.ValueOf(err))
		outs[n-1] = errValue
	}
	return outs
}
