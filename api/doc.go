// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

// Package api is the authorized request pipeline for the dashboard
// service. Every call goes through [Client.Execute], which runs four
// stages:
//
//   - prepare: build the HTTP request, attaching the session credential
//     as a bearer token when one is present
//   - dispatch: send it, bounded by the configured timeout
//   - classify: map status and transport failure to an [Error] kind
//   - react: apply the kind's side effects (expire the session and
//     force navigation on 401; notify on 403 and 5xx)
//
// The 401 cascade is keyed to the credential the request carried. It
// runs only if that credential is still the active one, so concurrent
// rejections of one credential produce a single logout, and a late
// rejection of a previous credential never ends a newer session.
//
// Typed endpoints ([Client.Login], [Client.Users], [Client.Analyses],
// [Client.Chat], [Client.Stats]) are thin wrappers over Execute.
package api
