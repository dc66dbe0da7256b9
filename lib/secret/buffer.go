// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// Buffer holds sensitive data that is zeroed on Close. The backing
// memory is an mlocked mmap region when the host allows it, otherwise a
// heap slice.
//
// A Buffer must not be copied after creation. After Close, any access
// to the contents panics.
type Buffer struct {
	mu     sync.Mutex
	data   []byte
	length int
	locked bool
	closed bool
}

// New allocates a zero-filled secret buffer of the given size.
//
// The caller must call Close when the secret is no longer needed.
func New(size int) (*Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("secret: buffer size must be positive, got %d", size)
	}

	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("secret: mmap failed: %w", err)
	}

	if err := unix.Mlock(data); err != nil {
		unix.Munmap(data)
		if !lockUnavailable(err) {
			return nil, fmt.Errorf("secret: mlock failed: %w", err)
		}
		return &Buffer{data: make([]byte, size), length: size}, nil
	}

	if err := unix.Madvise(data, unix.MADV_DONTDUMP); err != nil {
		unix.Munlock(data)
		unix.Munmap(data)
		return nil, fmt.Errorf("secret: madvise(MADV_DONTDUMP) failed: %w", err)
	}

	return &Buffer{data: data, length: size, locked: true}, nil
}

// lockUnavailable reports whether an mlock failure means the host will
// not lock pages for us (limit exhausted or capability missing) rather
// than a programming error.
func lockUnavailable(err error) bool {
	return errors.Is(err, unix.ENOMEM) || errors.Is(err, unix.EPERM) || errors.Is(err, unix.EAGAIN)
}

// NewFromBytes copies source into a new buffer and zeros source in
// place, so the caller's slice no longer holds the secret.
func NewFromBytes(source []byte) (*Buffer, error) {
	if len(source) == 0 {
		return nil, fmt.Errorf("secret: cannot create buffer from empty source")
	}

	buffer, err := New(len(source))
	if err != nil {
		return nil, err
	}
	copy(buffer.data, source)
	Zero(source)
	return buffer, nil
}

// NewFromString copies value into a new buffer. Go strings are
// immutable, so the original stays on the heap until collected; use
// this only where the secret already arrived as a string (a decoded
// JSON login response, a rehydrated session file).
func NewFromString(value string) (*Buffer, error) {
	if value == "" {
		return nil, fmt.Errorf("secret: cannot create buffer from empty string")
	}
	buffer, err := New(len(value))
	if err != nil {
		return nil, err
	}
	copy(buffer.data, value)
	return buffer, nil
}

// Bytes returns the secret data. The slice aliases the buffer; do not
// retain it beyond the Buffer's lifetime. Panics after Close.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		panic("secret: read from closed buffer")
	}
	return b.data[:b.length]
}

// String returns a heap copy of the secret for API boundaries that need
// a string (HTTP headers, JSON encoding). Panics after Close.
func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		panic("secret: read from closed buffer")
	}
	return string(b.data[:b.length])
}

// Equal reports whether the buffer holds exactly value. Returns false
// after Close instead of panicking.
func (b *Buffer) Equal(value string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed || len(value) != b.length {
		return false
	}
	var diff byte
	for index := 0; index < b.length; index++ {
		diff |= b.data[index] ^ value[index]
	}
	return diff == 0
}

// Len returns the size of the secret data.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.length
}

// Locked reports whether the buffer is backed by mlocked memory.
func (b *Buffer) Locked() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.locked
}

// Close zeros the contents and releases the memory. Idempotent.
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	Zero(b.data)

	var firstError error
	if b.locked {
		if err := unix.Munlock(b.data); err != nil {
			firstError = fmt.Errorf("secret: munlock failed: %w", err)
		}
		if err := unix.Munmap(b.data); err != nil && firstError == nil {
			firstError = fmt.Errorf("secret: munmap failed: %w", err)
		}
	}

	b.data = nil
	return firstError
}

// Zero overwrites data with zeros.
func Zero(data []byte) {
	for index := range data {
		data[index] = 0
	}
}
