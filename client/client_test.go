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
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sage-x-project/remoting/auth"
	"github.com/sage-x-project/remoting/server"
	"github.com/sage-x-project/remoting/transport"
	"github.com/sage-x-project/remoting/transport/loopback"
	"github.com/sage-x-project/remoting/wire"
)

type noopServerChannel struct{}

func (noopServerChannel) Listen(ctx context.Context, onConnect func(transport.Channel, transport.HandshakeMetadata)) error {
	<-ctx.Done()
	return ctx.Err()
}

func (noopServerChannel) Stop() error { return nil }

// echoService is the test fixture registered on the server: Echo is a
// regular round trip, Shout is one-way, Nested returns a second
// registered service (exercising "return as proxy"), and Notify takes a
// callback delegate invoked on the client.
type echoService interface {
	Echo(ctx context.Context, s string) (string, error)
	Shout(ctx context.Context, s string) error
	Nested(ctx context.Context) (nestedService, error)
	Notify(ctx context.Context, s string, cb func(string)) error
}

type nestedService interface {
	Ping(ctx context.Context) (string, error)
}

type nestedServiceImpl struct{}

func (n *nestedServiceImpl) Ping(_ context.Context) (string, error) { return "pong", nil }

type echoServiceImpl struct {
	shouted chan string
	nested  *nestedServiceImpl
}

func (e *echoServiceImpl) Echo(_ context.Context, s string) (string, error) {
	if s == "boom" {
		return "", errors.New("boom requested")
	}
	return s, nil
}

func (e *echoServiceImpl) Shout(_ context.Context, s string) error {
	e.shouted <- s
	return nil
}

func (e *echoServiceImpl) Nested(_ context.Context) (nestedService, error) {
	return e.nested, nil
}

func (e *echoServiceImpl) Notify(_ context.Context, s string, cb func(string)) error {
	cb(s)
	return nil
}

// newHarness starts a real server.Server and a real, connected Client
// over a loopback transport, returning both ready for RPC.
func newHarness(t *testing.T, srvCfg server.Config, cliCfg Config) (*server.Server, *Client, *echoServiceImpl) {
	t.Helper()

	srvCfg.Channel = noopServerChannel{}
	if srvCfg.KeySizeBits == 0 {
		srvCfg.KeySizeBits = 2048
	}
	srvCfg.MessageEncryption = true

	srv, err := server.NewServer(srvCfg, server.Events{})
	require.NoError(t, err)

	impl := &echoServiceImpl{shouted: make(chan string, 1), nested: &nestedServiceImpl{}}
	require.NoError(t, srv.RegisterService("Echo", reflect.TypeOf((*echoService)(nil)).Elem(), impl, "Shout"))
	require.NoError(t, srv.RegisterService("Nested", reflect.TypeOf((*nestedService)(nil)).Elem(), impl.nested))

	cliCfg.Channel = loopback.NewClientChannel(srv.Accept)
	if cliCfg.KeySizeBits == 0 {
		cliCfg.KeySizeBits = 2048
	}
	cliCfg.MessageEncryption = true

	cli, err := NewClient(cliCfg, Events{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, cli.Connect(ctx))

	t.Cleanup(func() {
		_ = cli.Disconnect()
		_ = srv.Stop()
	})

	return srv, cli, impl
}

func TestClientConnectEstablishesReadySession(t *testing.T) {
	_, cli, _ := newHarness(t, server.Config{}, Config{})
	assert.True(t, cli.HasSession())
}

type echoProxy struct {
	Echo  func(ctx context.Context, s string) (string, error)
	Shout func(ctx context.Context, s string) error `remoting:"one_way"`
}

type nestedProxy struct {
	Ping func(ctx context.Context) (string, error)
}

func TestInvokeRemoteMethodRoundTrip(t *testing.T) {
	_, cli, _ := newHarness(t, server.Config{}, Config{})

	var proxy echoProxy
	require.NoError(t, cli.CreateProxy("Echo", &proxy))

	got, err := proxy.Echo(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
}

func TestInvokeRemoteMethodExceptionPropagates(t *testing.T) {
	_, cli, _ := newHarness(t, server.Config{}, Config{})

	var proxy echoProxy
	require.NoError(t, cli.CreateProxy("Echo", &proxy))

	_, err := proxy.Echo(context.Background(), "boom")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom requested")

	cause := errors.Unwrap(err)
	require.Error(t, cause, "remote exception's inner cause should survive the round trip")
	assert.Equal(t, "boom requested", cause.Error())
}

func TestOneWayProxyMethodDoesNotBlockOnReply(t *testing.T) {
	_, cli, impl := newHarness(t, server.Config{}, Config{})

	var proxy echoProxy
	require.NoError(t, cli.CreateProxy("Echo", &proxy))

	require.NoError(t, proxy.Shout(context.Background(), "hi"))

	select {
	case got := <-impl.shouted:
		assert.Equal(t, "hi", got)
	case <-time.After(time.Second):
		t.Fatal("one-way call never reached the implementation")
	}
}

func TestReturnAsProxySynthesizesNestedProxy(t *testing.T) {
	var proxy struct {
		Nested func(ctx context.Context) (*nestedProxy, error)
	}
	_, cli, _ := newHarness(t, server.Config{}, Config{})
	require.NoError(t, cli.CreateProxy("Echo", &proxy))

	nested, err := proxy.Nested(context.Background())
	require.NoError(t, err)
	require.NotNil(t, nested)

	got, err := nested.Ping(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "pong", got)
}

func TestDelegateCallbackInvokedFromServer(t *testing.T) {
	var proxy struct {
		Notify func(ctx context.Context, s string, cb func(string)) error
	}
	_, cli, _ := newHarness(t, server.Config{}, Config{})
	require.NoError(t, cli.CreateProxy("Echo", &proxy))

	received := make(chan string, 1)
	err := proxy.Notify(context.Background(), "ping", func(s string) { received <- s })
	require.NoError(t, err)

	select {
	case got := <-received:
		assert.Equal(t, "ping", got)
	case <-time.After(time.Second):
		t.Fatal("delegate callback never invoked")
	}
}

func TestAuthenticationSucceedsThenAllowsRPC(t *testing.T) {
	provider := auth.NewStaticCredentialProvider()
	require.NoError(t, provider.AddUser("alice", "s3cret", wire.Identity{Name: "alice", Type: "user"}))

	srvCfg := server.Config{AuthenticationRequired: true, AuthenticationProvider: provider}
	cliCfg := Config{Credentials: []wire.Credential{
		{Name: "username", Value: "alice"},
		{Name: "password", Value: "s3cret"},
	}}
	_, cli, _ := newHarness(t, srvCfg, cliCfg)

	require.NotNil(t, cli.Identity())
	assert.Equal(t, "alice", cli.Identity().Name)

	var proxy echoProxy
	require.NoError(t, cli.CreateProxy("Echo", &proxy))
	got, err := proxy.Echo(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
}

func TestDisconnectIsIdempotentAndStopsReadLoop(t *testing.T) {
	_, cli, _ := newHarness(t, server.Config{}, Config{})
	require.NoError(t, cli.Disconnect())
	require.NoError(t, cli.Disconnect())
	assert.False(t, cli.HasSession())
}

func TestShutdownProxyUnregistersDelegates(t *testing.T) {
	var proxy struct {
		Notify func(ctx context.Context, s string, cb func(string)) error
	}
	_, cli, _ := newHarness(t, server.Config{}, Config{})
	require.NoError(t, cli.CreateProxy("Echo", &proxy))

	received := make(chan string, 1)
	require.NoError(t, proxy.Notify(context.Background(), "ping", func(s string) { received <- s }))
	<-received

	cli.ShutdownProxy(&proxy)

	cli.proxyOwnersMu.Lock()
	_, stillOwned := cli.proxyOwners[reflect.ValueOf(&proxy).Pointer()]
	cli.proxyOwnersMu.Unlock()
	assert.False(t, stillOwned)
}
