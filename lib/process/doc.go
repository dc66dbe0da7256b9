// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds entrypoint helpers for gwdash service binaries:
// reporting an error that happened before (or after) the structured
// logger exists, and exiting.
package process
