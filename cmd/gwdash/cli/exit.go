// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"
)

// ExitError signals a non-zero exit code without printing an extra
// error message. The command has already written its own output.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// ExitCode returns the exit code.
func (e *ExitError) ExitCode() int {
	return e.Code
}

// ExitCodeFor returns the process exit code for err and whether the
// error text should be printed. A nil error exits 0.
func ExitCodeFor(err error) (code int, report bool) {
	if err == nil {
		return 0, false
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code, false
	}
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return toolErr.Category.ExitCode(), true
	}
	return 1, true
}
