// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

// Package kvstore provides the persistent key-value backends the
// session store writes its single serialized entry to.
//
// Every backend implements [Store]: Get reports absence through its
// bool result rather than an error, Set replaces the whole value, and
// Delete of an absent key succeeds.
//
//   - [File] -- one 0600 file per key under a 0700 directory, replaced atomically
//   - [Memory] -- in-process map, for tests and --session-backend=memory
//   - [Redis] -- go-redis client with a key prefix, for shared workstations
//   - [Sealed] -- wraps any Store and age-encrypts values at rest
package kvstore
