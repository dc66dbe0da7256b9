// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"context"
	"time"
)

// Level is the severity of a notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Kind identifies what produced a notification, so surfaces can
// deduplicate or restyle specific cases.
type Kind string

const (
	KindSessionExpired Kind = "session_expired"
	KindForbidden      Kind = "forbidden"
	KindServerError    Kind = "server_error"
	KindMessage        Kind = "message"
)

// Notification is one user-visible message.
type Notification struct {
	Kind    Kind
	Level   Level
	Message string

	// RequestID links the notification to the request that caused it,
	// when there is one.
	RequestID string

	// Time is stamped by the Dispatcher when left zero.
	Time time.Time
}

// Sink displays notifications. Deliver is called from one goroutine
// at a time.
type Sink interface {
	Deliver(ctx context.Context, notification Notification)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, notification Notification)

func (f SinkFunc) Deliver(ctx context.Context, notification Notification) {
	f(ctx, notification)
}

// Fanout delivers every notification to each sink in order.
type Fanout []Sink

func (f Fanout) Deliver(ctx context.Context, notification Notification) {
	for _, sink := range f {
		sink.Deliver(ctx, notification)
	}
}

// Discard is a Sink that drops everything.
var Discard Sink = SinkFunc(func(context.Context, Notification) {})
