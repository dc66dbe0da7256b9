// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "fmt"

// ErrorCategory classifies command errors so scripts can react without
// parsing message text. [main] turns the category into an exit code.
type ErrorCategory string

const (
	// CategoryValidation: the caller provided invalid input.
	CategoryValidation ErrorCategory = "validation"

	// CategoryUnauthenticated: there is no session, or the server ended
	// it. The caller should log in again.
	CategoryUnauthenticated ErrorCategory = "unauthenticated"

	// CategoryForbidden: the session lacks permission.
	CategoryForbidden ErrorCategory = "forbidden"

	// CategoryNotFound: a referenced resource does not exist.
	CategoryNotFound ErrorCategory = "not_found"

	// CategoryConflict: the operation conflicts with existing state.
	CategoryConflict ErrorCategory = "conflict"

	// CategoryTransient: network failure, timeout, or server error.
	// Retrying later may succeed.
	CategoryTransient ErrorCategory = "transient"

	// CategoryInternal: an unexpected failure.
	CategoryInternal ErrorCategory = "internal"
)

// ExitCode returns the process exit code for the category.
func (c ErrorCategory) ExitCode() int {
	switch c {
	case CategoryValidation:
		return 2
	case CategoryUnauthenticated:
		return 3
	case CategoryForbidden:
		return 4
	case CategoryNotFound:
		return 5
	case CategoryConflict:
		return 6
	case CategoryTransient:
		return 7
	default:
		return 1
	}
}

// ToolError is a categorized error returned by commands. It wraps the
// underlying error so errors.Is and errors.As see the full chain.
type ToolError struct {
	Category ErrorCategory
	Err      error

	// Hint is an optional next step shown after the message.
	Hint string
}

func (e *ToolError) Error() string {
	if e.Hint == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + "\n\n" + e.Hint
}

func (e *ToolError) Unwrap() error { return e.Err }

// WithHint sets the hint and returns the receiver for chaining.
func (e *ToolError) WithHint(hint string) *ToolError {
	e.Hint = hint
	return e
}

// Validation creates a validation error.
func Validation(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryValidation, Err: fmt.Errorf(format, args...)}
}

// Unauthenticated creates an unauthenticated error.
func Unauthenticated(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryUnauthenticated, Err: fmt.Errorf(format, args...)}
}

// Forbidden creates a forbidden error.
func Forbidden(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryForbidden, Err: fmt.Errorf(format, args...)}
}

// NotFound creates a not-found error.
func NotFound(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryNotFound, Err: fmt.Errorf(format, args...)}
}

// Conflict creates a conflict error.
func Conflict(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryConflict, Err: fmt.Errorf(format, args...)}
}

// Transient creates a transient error.
func Transient(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryTransient, Err: fmt.Errorf(format, args...)}
}

// Internal creates an internal error.
func Internal(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryInternal, Err: fmt.Errorf(format, args...)}
}
