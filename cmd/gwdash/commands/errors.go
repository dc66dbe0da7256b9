// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"errors"
	"net/http"

	"github.com/gwdash/gwdash/api"
	"github.com/gwdash/gwdash/cmd/gwdash/cli"
)

// requestFailure turns a failed API call into a categorized command
// error. Errors that are already categorized pass through.
func requestFailure(action string, err error) error {
	var toolErr *cli.ToolError
	if errors.As(err, &toolErr) {
		return err
	}
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		return cli.Internal("%s: %w", action, err)
	}

	wrapped := &actionError{action: action, err: apiErr}
	switch apiErr.Kind {
	case api.KindUnauthorized:
		return (&cli.ToolError{Category: cli.CategoryUnauthenticated, Err: wrapped}).
			WithHint("Run 'gwdash login <email>' to start a new session.")
	case api.KindForbidden:
		return &cli.ToolError{Category: cli.CategoryForbidden, Err: wrapped}
	case api.KindServerError, api.KindNetworkError:
		return &cli.ToolError{Category: cli.CategoryTransient, Err: wrapped}
	}

	switch apiErr.StatusCode {
	case http.StatusNotFound:
		return &cli.ToolError{Category: cli.CategoryNotFound, Err: wrapped}
	case http.StatusConflict:
		return &cli.ToolError{Category: cli.CategoryConflict, Err: wrapped}
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return &cli.ToolError{Category: cli.CategoryValidation, Err: wrapped}
	}
	return &cli.ToolError{Category: cli.CategoryInternal, Err: wrapped}
}

// actionError prefixes the server's message with the command's action
// while keeping the *api.Error in the chain.
type actionError struct {
	action string
	err    *api.Error
}

func (e *actionError) Error() string {
	return e.action + ": " + e.err.Message
}

func (e *actionError) Unwrap() error { return e.err }
