// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"errors"
	"fmt"
)

// Kind classifies a failed request.
type Kind string

const (
	// KindUnauthorized: the server rejected the credential (401).
	KindUnauthorized Kind = "unauthorized"
	// KindForbidden: authenticated but not permitted (403).
	KindForbidden Kind = "forbidden"
	// KindServerError: the server failed (5xx).
	KindServerError Kind = "server_error"
	// KindNetworkError: no usable response (transport failure, timeout,
	// cancellation).
	KindNetworkError Kind = "network_error"
	// KindClientError: any other non-2xx status.
	KindClientError Kind = "client_error"
)

// Sentinels matched by errors.Is against an *Error of the same kind.
var (
	ErrUnauthorized = errors.New("api: unauthorized")
	ErrForbidden    = errors.New("api: forbidden")
	ErrServerError  = errors.New("api: server error")
	ErrNetworkError = errors.New("api: network error")
	ErrClientError  = errors.New("api: client error")
)

func (k Kind) sentinel() error {
	switch k {
	case KindUnauthorized:
		return ErrUnauthorized
	case KindForbidden:
		return ErrForbidden
	case KindServerError:
		return ErrServerError
	case KindNetworkError:
		return ErrNetworkError
	default:
		return ErrClientError
	}
}

// Error is a classified request failure. Use errors.As to inspect it,
// or errors.Is with the kind sentinels:
//
//	var apiErr *api.Error
//	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound { ... }
//	if errors.Is(err, api.ErrForbidden) { ... }
type Error struct {
	Kind Kind

	// StatusCode is the HTTP status, zero for network errors.
	StatusCode int

	// Message is the server's error text, or the status text when the
	// body carried none.
	Message string

	// Code is the server's machine-readable error code, if any.
	Code string

	// RequestID is the X-Request-ID sent with the failed request.
	RequestID string

	Method string
	Path   string

	// Err is the underlying transport error for network errors.
	Err error
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("api: %s %s: %s: %s", e.Method, e.Path, e.Kind, e.Message)
	}
	return fmt.Sprintf("api: %s %s: %s (%d): %s", e.Method, e.Path, e.Kind, e.StatusCode, e.Message)
}

// Unwrap exposes the kind sentinel and the underlying transport error.
func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind.sentinel(), e.Err}
	}
	return []error{e.Kind.sentinel()}
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind == kind
	}
	return false
}
