// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed provides age encryption for gwdash session blobs at
// rest. It wraps filippo.io/age for the operations the sealed session
// backend needs: generate an x25519 identity, load one from an
// identity file, encrypt to recipients, and decrypt with the identity.
//
// Ciphertext is base64-encoded so it fits text-oriented backends
// (files, Redis strings). Private keys and decrypted plaintext live in
// [secret.Buffer] values, zeroed on Close.
//
// Key exports:
//
//   - [GenerateKeypair] / [LoadKeypair] / [WriteKeypair] -- identity lifecycle
//   - [Encrypt] / [Decrypt] -- base64 age ciphertext
//   - [ParsePublicKey] -- recipient validation
package sealed
