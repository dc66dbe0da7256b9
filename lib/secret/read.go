// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// maxSecretSize bounds how much ReadFrom will consume. Passwords and
// tokens are far smaller; the limit only guards against pointing the
// reader at a large file by mistake.
const maxSecretSize = 64 << 10

// ReadFrom reads a secret from reader, trims surrounding whitespace
// (files written by echo end in a newline), and returns it in a Buffer.
// Returns an error if nothing but whitespace was read.
func ReadFrom(reader io.Reader) (*Buffer, error) {
	data, err := io.ReadAll(io.LimitReader(reader, maxSecretSize))
	if err != nil {
		Zero(data)
		return nil, fmt.Errorf("secret: reading: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		Zero(data)
		return nil, fmt.Errorf("secret: source is empty")
	}

	buffer, err := NewFromBytes(trimmed)
	Zero(data)
	if err != nil {
		return nil, err
	}
	return buffer, nil
}

// ReadFromPath reads a secret from the file at path, or from stdin when
// path is "-".
func ReadFromPath(path string, stdin io.Reader) (*Buffer, error) {
	if path == "-" {
		return ReadFrom(stdin)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadFrom(file)
}
