// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gwdash/gwdash/lib/secret"
)

// DefaultKey is the storage key the session entry is written under.
const DefaultKey = "auth-storage"

// ErrInvalidLogin is returned by [Store.Login] when the credential or
// the identity's email is empty. The store is left unchanged.
var ErrInvalidLogin = errors.New("session: invalid login")

// Config configures a [Store].
type Config struct {
	// Storage persists the session entry. Nil keeps the session in
	// memory only.
	Storage Storage

	// Key is the storage key. Default: [DefaultKey].
	Key string

	// PersistTimeout bounds each storage write made by Login, Logout,
	// and Expire, which take no context. Default: 5s.
	PersistTimeout time.Duration

	// Logger receives session lifecycle events. Credentials appear only
	// as [Fingerprint] values. Default: slog.Default().
	Logger *slog.Logger
}

// Store is the session store. Construct with [NewStore]; the zero value
// is not usable. All methods are safe for concurrent use.
type Store struct {
	storage        Storage
	key            string
	persistTimeout time.Duration
	logger         *slog.Logger

	// mu guards credential and identity. Writers hold it across the
	// storage write so persisted order matches commit order.
	mu         sync.RWMutex
	credential *secret.Buffer
	identity   *Identity

	subscribersMu sync.Mutex
	subscribers   map[int]chan State
	nextID        int
}

// NewStore returns a store in the absent state. Call [Store.Rehydrate]
// to load a previously persisted session.
func NewStore(config Config) *Store {
	if config.Key == "" {
		config.Key = DefaultKey
	}
	if config.PersistTimeout <= 0 {
		config.PersistTimeout = 5 * time.Second
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Store{
		storage:        config.Storage,
		key:            config.Key,
		persistTimeout: config.PersistTimeout,
		logger:         config.Logger,
		subscribers:    make(map[int]chan State),
	}
}

// Rehydrate loads the persisted session, replacing the in-memory state
// when a valid entry exists. A missing entry leaves the store as it is.
// A malformed entry is deleted and logged, and Rehydrate returns nil.
// Only storage failures are returned.
func (s *Store) Rehydrate(ctx context.Context) error {
	if s.storage == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, found, err := s.storage.Get(ctx, s.key)
	if err != nil {
		return fmt.Errorf("session: loading %q: %w", s.key, err)
	}
	if !found {
		s.logger.Debug("no persisted session", "key", s.key)
		return nil
	}

	state, err := decodeState(data)
	secret.Zero(data)
	if err != nil {
		s.logger.Warn("discarding malformed persisted session", "key", s.key, "error", err)
		if deleteErr := s.storage.Delete(ctx, s.key); deleteErr != nil {
			s.logger.Warn("removing malformed persisted session failed", "key", s.key, "error", deleteErr)
		}
		return nil
	}
	if !state.Authenticated() {
		return nil
	}

	buffer, err := secret.NewFromString(state.Credential)
	if err != nil {
		return fmt.Errorf("session: protecting credential: %w", err)
	}
	previous := s.credential
	s.credential, s.identity = buffer, state.Identity
	closeBuffer(previous)

	s.logger.Info("session rehydrated",
		"email", state.Identity.Email,
		"role", string(state.Identity.Role),
		"credential", Fingerprint(state.Credential),
	)
	s.publishLocked()
	return nil
}

// Login replaces the state with credential and identity and persists
// it. Returns [ErrInvalidLogin] if either is unusable. A persistence
// failure is logged; the in-memory session stays active.
func (s *Store) Login(credential string, identity Identity) error {
	if credential == "" {
		return fmt.Errorf("%w: empty credential", ErrInvalidLogin)
	}
	if identity.Email == "" {
		return fmt.Errorf("%w: identity has no email", ErrInvalidLogin)
	}

	buffer, err := secret.NewFromString(credential)
	if err != nil {
		return fmt.Errorf("session: protecting credential: %w", err)
	}
	committed := cloneIdentity(identity)

	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.credential
	s.credential, s.identity = buffer, committed
	closeBuffer(previous)

	s.persistLocked(credential, committed)
	s.logger.Info("session started",
		"email", committed.Email,
		"role", string(committed.Role),
		"credential", Fingerprint(credential),
	)
	s.publishLocked()
	return nil
}

// Logout resets the store to the absent state and clears the persisted
// entry. Reports whether a session was active. Safe to call when
// already logged out.
func (s *Store) Logout() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearLocked("logout")
}

// Expire logs out only if the active credential is exactly credential.
// The request pipeline calls it when the server rejects a request, so
// a rejection of an older credential cannot end a newer session.
// Reports whether the session was ended.
func (s *Store) Expire(credential string) bool {
	if credential == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.credential == nil || !s.credential.Equal(credential) {
		return false
	}
	return s.clearLocked("expired")
}

func (s *Store) clearLocked(reason string) bool {
	wasActive := s.credential != nil
	fingerprint := "none"
	if wasActive {
		fingerprint = Fingerprint(s.credential.String())
	}

	closeBuffer(s.credential)
	s.credential, s.identity = nil, nil
	s.deleteLocked()

	if !wasActive {
		return false
	}
	s.logger.Info("session ended", "reason", reason, "credential", fingerprint)
	s.publishLocked()
	return true
}

// Credential returns the active credential.
func (s *Store) Credential() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.credential == nil {
		return "", false
	}
	return s.credential.String(), true
}

// Identity returns a copy of the active identity.
func (s *Store) Identity() (Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return Identity{}, false
	}
	return *cloneIdentity(*s.identity), true
}

// IsAuthenticated reports whether a session is active.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credential != nil && s.identity != nil
}

// IsElevated reports whether a session is active with the elevated
// role.
func (s *Store) IsElevated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity != nil && s.identity.Elevated()
}

// Snapshot returns the credential and identity as one consistent copy.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() State {
	if s.credential == nil || s.identity == nil {
		return State{}
	}
	return State{Credential: s.credential.String(), Identity: cloneIdentity(*s.identity)}
}

// Subscribe returns a channel that receives the state after every
// committed change, and a function that cancels the subscription and
// closes the channel. The channel holds one value: a slow reader sees
// the latest state, not every intermediate one.
func (s *Store) Subscribe() (<-chan State, func()) {
	channel := make(chan State, 1)

	s.subscribersMu.Lock()
	id := s.nextID
	s.nextID++
	s.subscribers[id] = channel
	s.subscribersMu.Unlock()

	var once sync.Once
	return channel, func() {
		once.Do(func() {
			s.subscribersMu.Lock()
			delete(s.subscribers, id)
			s.subscribersMu.Unlock()
			close(channel)
		})
	}
}

// publishLocked delivers the current state to every subscriber,
// replacing any value the subscriber has not read yet. Called with mu
// held so deliveries follow commit order.
func (s *Store) publishLocked() {
	state := s.snapshotLocked()

	s.subscribersMu.Lock()
	defer s.subscribersMu.Unlock()
	for _, channel := range s.subscribers {
		select {
		case channel <- state:
			continue
		default:
		}
		select {
		case <-channel:
		default:
		}
		select {
		case channel <- state:
		default:
		}
	}
}

// Close releases the credential's protected memory without touching
// storage. The store reads as logged out afterwards.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	closeBuffer(s.credential)
	s.credential, s.identity = nil, nil
}

func (s *Store) persistLocked(credential string, identity *Identity) {
	if s.storage == nil {
		return
	}
	data, err := encodeState(credential, identity)
	if err != nil {
		s.logger.Error("encoding session failed", "error", err)
		return
	}
	defer secret.Zero(data)

	ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
	defer cancel()
	if err := s.storage.Set(ctx, s.key, data); err != nil {
		s.logger.Warn("persisting session failed; session remains active in memory",
			"key", s.key, "error", err)
	}
}

func (s *Store) deleteLocked() {
	if s.storage == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
	defer cancel()
	if err := s.storage.Delete(ctx, s.key); err != nil {
		s.logger.Warn("clearing persisted session failed", "key", s.key, "error", err)
	}
}

func closeBuffer(buffer *secret.Buffer) {
	if buffer != nil {
		buffer.Close()
	}
}

func cloneIdentity(identity Identity) *Identity {
	clone := identity
	if identity.UpdatedAt != nil {
		updated := *identity.UpdatedAt
		clone.UpdatedAt = &updated
	}
	if identity.LastAccess != nil {
		access := *identity.LastAccess
		clone.LastAccess = &access
	}
	return &clone
}
