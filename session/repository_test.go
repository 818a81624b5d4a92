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

package session

import (
	"crypto/rsa"
	"sync"
	"testing"
	"time"

	sagecrypto "github.com/sage-x-project/remoting/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositoryCreateWithoutEncryption(t *testing.T) {
	repo := NewRepository(Config{}, false, 0)
	defer repo.Close()

	sess, err := repo.Create(nil, &struct{}{})
	require.NoError(t, err)
	assert.False(t, sess.EncryptionEnabled())
	assert.Nil(t, sess.PrivateKey())
}

func TestRepositoryCreateWithEncryption(t *testing.T) {
	repo := NewRepository(Config{}, true, 2048)
	defer repo.Close()

	clientKeyPair, err := sagecrypto.NewRSAKeyPair(2048)
	require.NoError(t, err)
	clientPriv, ok := clientKeyPair.PrivateKey().(*rsa.PrivateKey)
	require.True(t, ok)
	blob, err := sagecrypto.MarshalPublicKeyBlob(&clientPriv.PublicKey)
	require.NoError(t, err)

	sess, err := repo.Create(blob, &struct{}{})
	require.NoError(t, err)
	assert.True(t, sess.EncryptionEnabled())
	assert.NotNil(t, sess.PrivateKey())
	assert.NotEmpty(t, sess.SharedSecret())
}

func TestRepositoryCreateDedupesConcurrentCallsForSameTransport(t *testing.T) {
	repo := NewRepository(Config{}, false, 0)
	defer repo.Close()

	rawTransport := &struct{}{}
	const n = 10
	results := make([]Session, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			sess, err := repo.Create(nil, rawTransport)
			require.NoError(t, err)
			results[i] = sess
		}()
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		assert.Same(t, results[0], results[i])
	}
}

func TestRepositoryGetAndRemove(t *testing.T) {
	repo := NewRepository(Config{}, false, 0)
	defer repo.Close()

	sess, err := repo.Create(nil, &struct{}{})
	require.NoError(t, err)

	got, err := repo.Get(sess.ID())
	require.NoError(t, err)
	assert.Same(t, sess, got)

	require.NoError(t, repo.Remove(sess.ID()))
	_, err = repo.Get(sess.ID())
	assert.Error(t, err)
}

func TestRepositoryGetMissingEscalates(t *testing.T) {
	repo := NewRepository(Config{}, false, 0)
	defer repo.Close()

	_, err := repo.Get("does-not-exist")
	require.Error(t, err)
}

func TestRepositorySessionsSnapshot(t *testing.T) {
	repo := NewRepository(Config{}, false, 0)
	defer repo.Close()

	_, err := repo.Create(nil, &struct{}{})
	require.NoError(t, err)
	_, err = repo.Create(nil, &struct{}{})
	require.NoError(t, err)

	assert.Len(t, repo.Sessions(), 2)
}

func TestRepositorySweepRemovesIdleSessions(t *testing.T) {
	repo := NewRepository(Config{SweepInterval: 5 * time.Millisecond, MaxInactivityTime: 10 * time.Millisecond}, false, 0)
	defer repo.Close()

	sess, err := repo.Create(nil, &struct{}{})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, err := repo.Get(sess.ID())
		return err != nil
	}, time.Second, 5*time.Millisecond)
}

func TestRepositoryCloseDisposesAllSessions(t *testing.T) {
	repo := NewRepository(Config{}, false, 0)

	sess1, err := repo.Create(nil, &struct{}{})
	require.NoError(t, err)
	sess2, err := repo.Create(nil, &struct{}{})
	require.NoError(t, err)

	require.NoError(t, repo.Close())
	assert.Empty(t, repo.Sessions())

	hs1 := sess1.(*HybridSession)
	hs2 := sess2.(*HybridSession)
	assert.True(t, hs1.closed)
	assert.True(t, hs2.closed)
}
