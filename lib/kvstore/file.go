// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

package kvstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// File stores each key as <directory>/<key>.json. The directory is
// created with 0700 and values are written 0600: the session entry
// holds a bearer credential.
type File struct {
	directory string
}

// NewFile returns a File store rooted at directory. The directory is
// created lazily on the first Set.
func NewFile(directory string) *File {
	return &File{directory: directory}
}

// Path returns the file that holds key.
func (f *File) Path(key string) string {
	return filepath.Join(f.directory, key+".json")
}

func (f *File) Get(_ context.Context, key string) ([]byte, bool, error) {
	if err := ValidateKey(key); err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(f.Path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("kvstore: reading %s: %w", f.Path(key), err)
	}
	return data, true, nil
}

// Set writes value to a temporary file in the same directory and
// renames it over the target, so a concurrent reader sees either the
// old or the new value in full.
func (f *File) Set(_ context.Context, key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := os.MkdirAll(f.directory, 0700); err != nil {
		return fmt.Errorf("kvstore: creating directory %s: %w", f.directory, err)
	}

	temporary, err := os.CreateTemp(f.directory, "."+key+".*.tmp")
	if err != nil {
		return fmt.Errorf("kvstore: creating temporary file: %w", err)
	}
	temporaryPath := temporary.Name()
	defer os.Remove(temporaryPath)

	if err := temporary.Chmod(0600); err != nil {
		temporary.Close()
		return fmt.Errorf("kvstore: setting permissions: %w", err)
	}
	if _, err := temporary.Write(value); err != nil {
		temporary.Close()
		return fmt.Errorf("kvstore: writing %s: %w", temporaryPath, err)
	}
	if err := temporary.Sync(); err != nil {
		temporary.Close()
		return fmt.Errorf("kvstore: syncing %s: %w", temporaryPath, err)
	}
	if err := temporary.Close(); err != nil {
		return fmt.Errorf("kvstore: closing %s: %w", temporaryPath, err)
	}
	if err := os.Rename(temporaryPath, f.Path(key)); err != nil {
		return fmt.Errorf("kvstore: replacing %s: %w", f.Path(key), err)
	}
	return nil
}

func (f *File) Delete(_ context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	err := os.Remove(f.Path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("kvstore: removing %s: %w", f.Path(key), err)
	}
	return nil
}
