// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

package session

// State is a consistent copy of the session: either both Credential and
// Identity are set, or neither is.
type State struct {
	// Credential is the bearer token, empty when absent.
	Credential string

	// Identity is nil when absent.
	Identity *Identity
}

// Authenticated reports whether the state is fully present.
func (s State) Authenticated() bool {
	return s.Credential != "" && s.Identity != nil
}

// Elevated reports whether the state is present with the elevated role.
func (s State) Elevated() bool {
	return s.Identity != nil && s.Identity.Elevated()
}

// Equal reports whether two states carry the same credential and
// identity.
func (s State) Equal(other State) bool {
	if s.Credential != other.Credential {
		return false
	}
	if s.Identity == nil || other.Identity == nil {
		return s.Identity == other.Identity
	}
	return s.Identity.Equal(*other.Identity)
}
