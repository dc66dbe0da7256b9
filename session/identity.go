// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Role is the server-assigned role of a user. Only the distinction
// between [RoleElevated] and everything else matters to the client.
type Role string

const (
	// RoleStandard is an ordinary dashboard user.
	RoleStandard Role = "user"
	// RoleElevated grants access to user management and global
	// statistics.
	RoleElevated Role = "admin"
)

// Identity describes the authenticated user as returned by the
// server's login and /api/auth/me endpoints.
type Identity struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	Name       string     `json:"nombre,omitempty"`
	Role       Role       `json:"rol"`
	Active     bool       `json:"activo"`
	CreatedAt  Timestamp  `json:"created_at"`
	UpdatedAt  *Timestamp `json:"updated_at,omitempty"`
	LastAccess *Timestamp `json:"ultimo_acceso,omitempty"`
}

// Elevated reports whether the identity carries the elevated role.
func (i Identity) Elevated() bool {
	return i.Role == RoleElevated
}

// DisplayName returns Name, or Email when no name is set.
func (i Identity) DisplayName() string {
	if i.Name != "" {
		return i.Name
	}
	return i.Email
}

// Equal reports whether two identities carry the same values.
// Timestamps compare by their original text.
func (i Identity) Equal(other Identity) bool {
	return i.ID == other.ID &&
		i.Email == other.Email &&
		i.Name == other.Name &&
		i.Role == other.Role &&
		i.Active == other.Active &&
		i.CreatedAt.Equal(other.CreatedAt) &&
		optionalEqual(i.UpdatedAt, other.UpdatedAt) &&
		optionalEqual(i.LastAccess, other.LastAccess)
}

func optionalEqual(a, b *Timestamp) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// timestampLayouts are tried in order. The server emits naive ISO-8601
// (no zone) for datetime columns; RFC 3339 and bare dates also occur.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	time.DateOnly,
}

// Timestamp is a server timestamp that keeps its original JSON text, so
// an identity written to storage and read back is byte-identical to
// what the server sent. Naive values are interpreted as UTC.
type Timestamp struct {
	// Time is the parsed value, zero when the text matched no layout.
	Time time.Time
	raw  string
}

// NewTimestamp returns a Timestamp for t, formatted as RFC 3339.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t, raw: t.Format(time.RFC3339Nano)}
}

// ParseTimestamp parses text in any of the accepted layouts. Text that
// matches none is kept verbatim with a zero Time.
func ParseTimestamp(text string) Timestamp {
	for _, layout := range timestampLayouts {
		if parsed, err := time.ParseInLocation(layout, text, time.UTC); err == nil {
			return Timestamp{Time: parsed, raw: text}
		}
	}
	return Timestamp{raw: text}
}

// String returns the original text.
func (t Timestamp) String() string {
	if t.raw == "" && !t.Time.IsZero() {
		return t.Time.Format(time.RFC3339Nano)
	}
	return t.raw
}

// Equal compares the original text.
func (t Timestamp) Equal(other Timestamp) bool {
	return t.String() == other.String()
}

// IsZero reports whether the timestamp carries neither text nor time.
func (t Timestamp) IsZero() bool {
	return t.raw == "" && t.Time.IsZero()
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.String())
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*t = Timestamp{}
		return nil
	}
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return fmt.Errorf("session: timestamp must be a string: %w", err)
	}
	*t = ParseTimestamp(text)
	return nil
}
