// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"

	"github.com/gwdash/gwdash/notify"
)

// Notifier shows a notification to the user. Implementations must not
// block for long: Notify is called on the request path.
// *notify.Dispatcher satisfies it.
type Notifier interface {
	Notify(ctx context.Context, notification notify.Notification)
}

// Navigator moves the user interface to route. The pipeline calls it
// once per session expiry with the configured entry route.
type Navigator interface {
	Navigate(ctx context.Context, route string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, route string)

func (f NavigatorFunc) Navigate(ctx context.Context, route string) {
	f(ctx, route)
}

// Messages is the wording of pipeline notifications.
type Messages struct {
	SessionExpired string
	Forbidden      string
	ServerError    string
}

// DefaultMessages returns the built-in wording.
func DefaultMessages() Messages {
	return Messages{
		SessionExpired: "Session expired. Please log in again.",
		Forbidden:      "You do not have permission to perform this action.",
		ServerError:    "Server error. Please try again later.",
	}
}

func (m Messages) withDefaults() Messages {
	defaults := DefaultMessages()
	if m.SessionExpired == "" {
		m.SessionExpired = defaults.SessionExpired
	}
	if m.Forbidden == "" {
		m.Forbidden = defaults.Forbidden
	}
	if m.ServerError == "" {
		m.ServerError = defaults.ServerError
	}
	return m
}

type discardNotifier struct{}

func (discardNotifier) Notify(context.Context, notify.Notification) {}

type discardNavigator struct{}

func (discardNavigator) Navigate(context.Context, string) {}
