// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for gwdash.
//
// Configuration comes from a single file named by the GWDASH_CONFIG
// environment variable (via [Load]) or a --config flag (via
// [LoadFile]). When neither names a file, [Load] returns [Default].
// There is no ~/.config discovery or automatic file search.
//
// The file may contain environment-specific sections (development,
// staging, production) that override base values when
// [Config].Environment matches. Production without an explicit section
// verifies a rehydrated session against the server at startup.
//
// After loading, GWDASH_API_URL overrides api.base_url, and
// ${VAR:-default} patterns are expanded in path fields.
//
// Key exports:
//
//   - [Config] -- master struct with API, Session, Navigation, Notifications
//   - [Default] -- development defaults
//   - [Load] and [LoadFile] -- the two entry points for loading
//
// This package depends on no other gwdash packages.
package config
