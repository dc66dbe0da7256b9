// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

// Package notify delivers short user-visible notifications ("session
// expired", "insufficient permission") from the request pipeline to
// whatever surface the user is looking at.
//
// The request path never waits on the surface: [Dispatcher] queues
// notifications and a single goroutine hands them to a [Sink] in order.
// [Terminal] is the sink the CLI uses.
package notify
