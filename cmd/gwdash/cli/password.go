// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/gwdash/gwdash/lib/secret"
)

// ReadPassword reads a password into a secret.Buffer. With a path
// other than "" or "-" it reads the file (trailing newlines stripped).
// Otherwise it prompts on the terminal with echo disabled; when stdin
// is not a terminal it reads stdin to EOF.
func ReadPassword(path string, stdin io.Reader, prompt io.Writer) (*secret.Buffer, error) {
	if path != "" && path != "-" {
		buffer, err := secret.ReadFromPath(path, stdin)
		if err != nil {
			return nil, Validation("reading password: %w", err)
		}
		return buffer, nil
	}

	if file, ok := stdin.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		fmt.Fprint(prompt, "Password: ")
		passwordBytes, err := term.ReadPassword(int(file.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return nil, Internal("reading password: %w", err)
		}
		buffer, err := secret.NewFromBytes(passwordBytes)
		if err != nil {
			secret.Zero(passwordBytes)
			return nil, Internal("protecting password: %w", err)
		}
		return buffer, nil
	}

	buffer, err := secret.ReadFrom(stdin)
	if err != nil {
		return nil, Validation("reading password from stdin: %w", err)
	}
	return buffer, nil
}
