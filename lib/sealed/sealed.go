// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"

	"github.com/gwdash/gwdash/lib/secret"
)

// ErrNoIdentity is returned by [LoadKeypair] when the file holds no
// AGE-SECRET-KEY line.
var ErrNoIdentity = errors.New("sealed: no age identity in file")

// Keypair holds an age x25519 keypair. The private key is kept in a
// secret.Buffer; the public key is safe to print.
//
// The caller must call Close when the keypair is no longer needed.
type Keypair struct {
	// PrivateKey is the AGE-SECRET-KEY-1... string.
	PrivateKey *secret.Buffer

	// PublicKey is the age1... recipient string.
	PublicKey string
}

// Close releases the private key memory. Idempotent.
func (k *Keypair) Close() error {
	if k.PrivateKey != nil {
		return k.PrivateKey.Close()
	}
	return nil
}

// GenerateKeypair generates a new age x25519 keypair.
func GenerateKeypair() (*Keypair, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("sealed: generating age keypair: %w", err)
	}
	return protect(identity)
}

// LoadKeypair reads an age identity file in the format written by
// age-keygen (and [WriteKeypair]): comment lines starting with '#' and
// one AGE-SECRET-KEY-1 line.
func LoadKeypair(path string) (*Keypair, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sealed: opening identity file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "AGE-SECRET-KEY-1") {
			continue
		}
		identity, err := age.ParseX25519Identity(line)
		if err != nil {
			return nil, fmt.Errorf("sealed: parsing identity in %s: %w", path, err)
		}
		return protect(identity)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("sealed: reading identity file: %w", err)
	}
	return nil, fmt.Errorf("%w: %s", ErrNoIdentity, path)
}

// WriteKeypair writes the keypair to path in age-keygen format with
// 0600 permissions, creating the parent directory (0700) if needed.
// An existing file is never overwritten.
func WriteKeypair(path string, keypair *Keypair) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("sealed: creating identity directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("sealed: creating identity file: %w", err)
	}
	_, writeErr := fmt.Fprintf(file, "# public key: %s\n%s\n", keypair.PublicKey, keypair.PrivateKey.String())
	closeErr := file.Close()
	if writeErr != nil {
		return fmt.Errorf("sealed: writing identity file: %w", writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("sealed: closing identity file: %w", closeErr)
	}
	return nil
}

func protect(identity *age.X25519Identity) (*Keypair, error) {
	privateKey, err := secret.NewFromBytes([]byte(identity.String()))
	if err != nil {
		return nil, fmt.Errorf("sealed: protecting private key: %w", err)
	}
	return &Keypair{
		PrivateKey: privateKey,
		PublicKey:  identity.Recipient().String(),
	}, nil
}

// Encrypt encrypts plaintext to one or more age public keys and returns
// standard base64 ciphertext.
func Encrypt(plaintext []byte, recipientKeys []string) (string, error) {
	if len(recipientKeys) == 0 {
		return "", fmt.Errorf("sealed: at least one recipient is required")
	}

	recipients := make([]age.Recipient, 0, len(recipientKeys))
	for _, key := range recipientKeys {
		recipient, err := age.ParseX25519Recipient(key)
		if err != nil {
			return "", fmt.Errorf("sealed: parsing recipient key %q: %w", key, err)
		}
		recipients = append(recipients, recipient)
	}

	var ciphertext bytes.Buffer
	writer, err := age.Encrypt(&ciphertext, recipients...)
	if err != nil {
		return "", fmt.Errorf("sealed: creating age encryptor: %w", err)
	}
	if _, err := writer.Write(plaintext); err != nil {
		return "", fmt.Errorf("sealed: writing plaintext: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("sealed: finalizing encryption: %w", err)
	}
	return base64.StdEncoding.EncodeToString(ciphertext.Bytes()), nil
}

// Decrypt decrypts base64 ciphertext with privateKey (borrowed, not
// closed). Returns the plaintext as a plain slice: session payloads are
// parsed immediately and the credential moves into its own buffer, so
// callers should [secret.Zero] the result once decoded.
func Decrypt(ciphertext string, privateKey *secret.Buffer) ([]byte, error) {
	identity, err := age.ParseX25519Identity(privateKey.String())
	if err != nil {
		return nil, fmt.Errorf("sealed: parsing private key: %w", err)
	}

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("sealed: decoding base64 ciphertext: %w", err)
	}

	reader, err := age.Decrypt(bytes.NewReader(raw), identity)
	if err != nil {
		return nil, fmt.Errorf("sealed: decrypting: %w", err)
	}
	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("sealed: reading plaintext: %w", err)
	}
	return plaintext, nil
}

// ParsePublicKey validates an age x25519 public key string.
func ParsePublicKey(publicKey string) error {
	if _, err := age.ParseX25519Recipient(publicKey); err != nil {
		return fmt.Errorf("sealed: invalid age public key: %w", err)
	}
	return nil
}
