// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Storage is the persistence backend for the session entry. The
// lib/kvstore backends implement it.
type Storage interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// persistVersion is the only envelope version this package reads.
const persistVersion = 0

// errMalformed marks persisted data that cannot be turned into a valid
// state. Rehydrate discards such entries.
var errMalformed = errors.New("session: malformed persisted state")

type envelope struct {
	State   persistedState `json:"state"`
	Version int            `json:"version"`
}

type persistedState struct {
	Token           *string   `json:"token"`
	Identity        *Identity `json:"usuario"`
	IsAuthenticated bool      `json:"isAuthenticated"`
	IsAdmin         bool      `json:"isAdmin"`
}

// encodeState serializes a present state. Absent states are never
// written: logout deletes the key.
func encodeState(credential string, identity *Identity) ([]byte, error) {
	state := State{Credential: credential, Identity: identity}
	return json.Marshal(envelope{
		State: persistedState{
			Token:           &credential,
			Identity:        identity,
			IsAuthenticated: state.Authenticated(),
			IsAdmin:         state.Elevated(),
		},
		Version: persistVersion,
	})
}

// decodeState parses a persisted entry. A logged-out entry (token and
// usuario both null) decodes to the absent state. Anything that would
// yield a partially present or invalid state wraps errMalformed.
func decodeState(data []byte) (State, error) {
	var persisted envelope
	if err := json.Unmarshal(data, &persisted); err != nil {
		return State{}, fmt.Errorf("%w: %v", errMalformed, err)
	}
	if persisted.Version != persistVersion {
		return State{}, fmt.Errorf("%w: unsupported version %d", errMalformed, persisted.Version)
	}

	token, identity := persisted.State.Token, persisted.State.Identity
	switch {
	case token == nil && identity == nil:
		return State{}, nil
	case token == nil || identity == nil:
		return State{}, fmt.Errorf("%w: credential and identity must both be present or both absent", errMalformed)
	case *token == "":
		return State{}, fmt.Errorf("%w: empty credential", errMalformed)
	case identity.Email == "":
		return State{}, fmt.Errorf("%w: identity has no email", errMalformed)
	}
	return State{Credential: *token, Identity: identity}, nil
}
