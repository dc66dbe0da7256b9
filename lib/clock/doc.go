// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts the current time so session persistence and
// notification timestamps are deterministic under test. Production code
// injects [Real]; tests inject [Fake] and move time with Advance or Set.
package clock
