// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

package kvstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/gwdash/gwdash/lib/sealed"
)

// ErrUnsealable is returned by Sealed.Get when a stored value cannot be
// decrypted with the configured identity. The value is left in place:
// it may belong to another identity.
var ErrUnsealable = errors.New("kvstore: stored value cannot be unsealed")

// Sealed age-encrypts values before handing them to the inner store
// and decrypts them on the way out.
type Sealed struct {
	inner   Store
	keypair *sealed.Keypair
}

// NewSealed wraps inner. The keypair is borrowed; the caller closes it
// after the store is no longer used.
func NewSealed(inner Store, keypair *sealed.Keypair) *Sealed {
	return &Sealed{inner: inner, keypair: keypair}
}

func (s *Sealed) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ciphertext, found, err := s.inner.Get(ctx, key)
	if err != nil || !found {
		return nil, found, err
	}
	plaintext, err := sealed.Decrypt(string(ciphertext), s.keypair.PrivateKey)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %s: %v", ErrUnsealable, key, err)
	}
	return plaintext, true, nil
}

func (s *Sealed) Set(ctx context.Context, key string, value []byte) error {
	ciphertext, err := sealed.Encrypt(value, []string{s.keypair.PublicKey})
	if err != nil {
		return fmt.Errorf("kvstore: sealing %s: %w", key, err)
	}
	return s.inner.Set(ctx, key, []byte(ciphertext))
}

func (s *Sealed) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}
