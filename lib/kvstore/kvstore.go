// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

package kvstore

import (
	"context"
	"fmt"
	"strings"
)

// Store is a string-keyed byte store.
type Store interface {
	// Get returns the value for key. found is false (with a nil error)
	// when the key does not exist.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// ValidateKey rejects keys that cannot be stored by every backend:
// empty keys and keys containing path separators or NUL.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("kvstore: empty key")
	}
	if key == "." || key == ".." || strings.ContainsAny(key, "/\\\x00") {
		return fmt.Errorf("kvstore: invalid key %q", key)
	}
	return nil
}
