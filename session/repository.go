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
	"context"
	"crypto/rsa"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	sagecrypto "github.com/sage-x-project/remoting/crypto"
	_ "github.com/sage-x-project/remoting/internal/cryptoinit"
	"github.com/sage-x-project/remoting/rpcerrors"
)

// Repository is the server's session store: concurrency-safe, dedupes
// concurrent creation for the same raw transport, and periodically
// sweeps sessions idle past the configured ceiling.
type Repository struct {
	mu       sync.RWMutex
	sessions map[string]Session

	sf singleflight.Group

	cfg               Config
	encryptionEnabled bool
	keyBits           int

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewRepository creates a repository. encryptionEnabled and keyBits
// control whether and how big a key pair Create mints per session.
func NewRepository(cfg Config, encryptionEnabled bool, keyBits int) *Repository {
	r := &Repository{
		sessions:          make(map[string]Session),
		cfg:               cfg,
		encryptionEnabled: encryptionEnabled,
		keyBits:           keyBits,
		stop:              make(chan struct{}),
	}
	if cfg.SweepInterval > 0 {
		r.wg.Add(1)
		go r.sweepLoop()
	}
	return r
}

// Create mints a new session for a peer identified by rawTransport (used
// only as a dedup key, e.g. via its pointer identity), capturing
// clientPublicKeyBlob when encryption is enabled. Concurrent Create
// calls for the same rawTransport collapse onto a single session via
// singleflight.
func (r *Repository) Create(clientPublicKeyBlob []byte, rawTransport interface{}) (Session, error) {
	key := fmt.Sprintf("%p", rawTransport)
	v, err, _ := r.sf.Do(key, func() (interface{}, error) {
		return r.create(clientPublicKeyBlob)
	})
	if err != nil {
		return nil, err
	}
	return v.(Session), nil
}

func (r *Repository) create(clientPublicKeyBlob []byte) (Session, error) {
	var privateKey *rsa.PrivateKey
	var peerPublic *rsa.PublicKey
	var shared []byte

	id := uuid.New()

	if r.encryptionEnabled {
		keyPair, err := sagecrypto.NewRSAKeyPair(r.keyBits)
		if err != nil {
			return nil, rpcerrors.SecurityError("generate session key pair", err)
		}
		var ok bool
		privateKey, ok = keyPair.PrivateKey().(*rsa.PrivateKey)
		if !ok {
			return nil, rpcerrors.SecurityError("session key pair is not RSA", nil)
		}

		if len(clientPublicKeyBlob) > 0 {
			peerPublic, err = sagecrypto.ParsePublicKeyBlob(clientPublicKeyBlob)
			if err != nil {
				return nil, rpcerrors.SecurityError("parse client public key blob", err)
			}
		}

		shared = make([]byte, len(id))
		copy(shared, id[:])
	}

	sess := New(id.String(), r.encryptionEnabled, privateKey, peerPublic, shared)

	r.mu.Lock()
	r.sessions[sess.ID()] = sess
	r.mu.Unlock()
	return sess, nil
}

// Get returns the session registered under sessionID.
func (r *Repository) Get(sessionID string) (Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[sessionID]
	if !ok {
		return nil, rpcerrors.Escalate(rpcerrors.KeyNotFoundError("session not found: " + sessionID))
	}
	return sess, nil
}

// Remove removes and disposes the session registered under sessionID.
func (r *Repository) Remove(sessionID string) error {
	r.mu.Lock()
	sess, ok := r.sessions[sessionID]
	delete(r.sessions, sessionID)
	r.mu.Unlock()

	if !ok {
		return nil
	}
	return sess.Close()
}

// Sessions returns a non-blocking snapshot of every active session.
func (r *Repository) Sessions() []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		out = append(out, sess)
	}
	return out
}

func (r *Repository) sweepLoop() {
	defer r.wg.Done()
	ticker := time.NewTicker(r.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.sweep()
		case <-r.stop:
			return
		}
	}
}

func (r *Repository) sweep() {
	now := time.Now()
	r.mu.RLock()
	var stale []string
	for id, sess := range r.sessions {
		if sess.IdleSince(now) > r.cfg.MaxInactivityTime {
			stale = append(stale, id)
		}
	}
	r.mu.RUnlock()

	for _, id := range stale {
		_ = r.Remove(id)
	}
}

// Close stops the idle sweeper and concurrently disposes every active
// session, waiting for all disposals to finish.
func (r *Repository) Close() error {
	r.stopOnce.Do(func() { close(r.stop) })
	r.wg.Wait()

	r.mu.Lock()
	sessions := make([]Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		sessions = append(sessions, sess)
	}
	r.sessions = make(map[string]Session)
	r.mu.Unlock()

	g, _ := errgroup.WithContext(context.Background())
	for _, sess := range sessions {
		sess := sess
		g.Go(func() error { return sess.Close() })
	}
	return g.Wait()
}
