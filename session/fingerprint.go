// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Fingerprint returns a short, stable, non-reversible identifier for a
// credential: the first 8 bytes of its BLAKE3 hash in hex. Two log
// lines about the same credential carry the same fingerprint. Returns
// "none" for the empty credential.
func Fingerprint(credential string) string {
	if credential == "" {
		return "none"
	}
	sum := blake3.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:8])
}
