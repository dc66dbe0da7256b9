// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

package kvstore

import (
	"context"
	"slices"
	"sync"
)

// Memory is an in-process Store. Values are copied on the way in and
// out so callers cannot alias stored bytes.
type Memory struct {
	mu     sync.Mutex
	values map[string][]byte

	// FailWith, when non-nil, is returned by every operation. Tests use
	// it to exercise persistence-failure paths.
	FailWith error
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return nil, false, m.FailWith
	}
	value, ok := m.values[key]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(value), true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	m.values[key] = slices.Clone(value)
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	delete(m.values, key)
	return nil
}

// Fail sets or clears the injected failure under the store's lock.
func (m *Memory) Fail(err error) {
	m.mu.Lock()
	m.FailWith = err
	m.mu.Unlock()
}
