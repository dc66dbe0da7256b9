// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret holds short sensitive values (bearer credentials,
// passwords typed at the login prompt, age identities) in memory that is
// zeroed on release.
//
// [Buffer] prefers an anonymous mmap region that is locked into RAM
// (mlock) and excluded from core dumps (MADV_DONTDUMP). Hosts with a
// small RLIMIT_MEMLOCK, or containers that forbid mlock, get a
// heap-backed buffer instead; [Buffer.Locked] reports which one was
// obtained. Either way Close zeros the contents and later reads panic.
//
// Constructors:
//
//   - [New] allocates a zero-filled buffer of a given size
//   - [NewFromBytes] copies into the buffer and zeros the source
//   - [NewFromString] copies a string (the source cannot be zeroed)
//   - [ReadFrom] and [ReadFromPath] read a newline-terminated secret
//
// Depends on golang.org/x/sys/unix. No gwdash-internal dependencies.
package secret
