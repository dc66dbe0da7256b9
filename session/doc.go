// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

// Package session holds the authenticated session for the dashboard
// client: the bearer credential issued by the server and the
// [Identity] of the user it belongs to.
//
// A [Store] is the single source of truth. Its state is either fully
// present (credential and identity) or fully absent; every mutation
// replaces both halves atomically under one lock and writes the result
// to a [Storage] backend before the lock is released, so the persisted
// entry always matches the most recent commit.
//
// The credential is opaque: it is never parsed, and it never appears in
// logs. Log lines carry [Fingerprint] instead.
//
// Persisted format is one JSON document under a single key (default
// "auth-storage"):
//
//	{"state":{"token":"...","usuario":{...},"isAuthenticated":true,"isAdmin":false},"version":0}
//
// isAuthenticated and isAdmin are written for readers that expect them
// and recomputed on load.
package session
