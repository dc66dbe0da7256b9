// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

// Package apitest is an in-memory implementation of the dashboard
// service's HTTP API, for tests and local development.
//
// It issues HS256 JWTs on login, checks bearer tokens on every
// protected route, enforces the admin role on user management and
// global statistics, and answers errors with the service's
// {"error","detail","code"} envelope. Gateway analysis and chat
// answers are synthesized.
//
// Test controls:
//
//   - [Server.RevokeTokens] -- every token issued so far gets 401
//   - [Server.SetFault] -- answer protected routes with a fixed status
//   - [Server.SetDelay] -- stall responses (timeout tests)
//   - [Server.Requests] -- headers of recent requests
package apitest
