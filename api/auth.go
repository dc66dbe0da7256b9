// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gwdash/gwdash/lib/secret"
	"github.com/gwdash/gwdash/session"
)

// Login authenticates with email and password and, on success, starts
// a session with the returned credential and user. The request is sent
// anonymously, so a rejected password leaves any current session
// alone. The password buffer is borrowed, not closed.
func (c *Client) Login(ctx context.Context, email string, password *secret.Buffer) (*LoginResponse, error) {
	if email == "" || password == nil || password.Len() == 0 {
		return nil, fmt.Errorf("api: email and password are required")
	}

	body := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{Email: email, Password: password.String()}

	var response LoginResponse
	if err := c.call(ctx, Request{Method: http.MethodPost, Path: "/api/auth/login", Body: body, Anonymous: true}, &response); err != nil {
		return nil, err
	}
	if err := c.session.Login(response.AccessToken, response.User); err != nil {
		return nil, fmt.Errorf("api: login response rejected: %w", err)
	}
	return &response, nil
}

// Me returns the identity the server associates with the current
// credential.
func (c *Client) Me(ctx context.Context) (session.Identity, error) {
	var identity session.Identity
	err := c.call(ctx, Request{Path: "/api/auth/me"}, &identity)
	return identity, err
}

// Verify checks a rehydrated session against the server. With no
// session it returns ErrUnauthorized without a request. A rejected
// credential goes through the usual 401 cascade. Sessions are
// otherwise validated lazily by the first request that uses them.
func (c *Client) Verify(ctx context.Context) (session.Identity, error) {
	if !c.session.IsAuthenticated() {
		return session.Identity{}, fmt.Errorf("%w: no active session", ErrUnauthorized)
	}
	return c.Me(ctx)
}

// Logout tells the server the session is over and then ends it locally,
// whatever the server answered. A 401 from the server is not reported:
// the credential was already dead.
func (c *Client) Logout(ctx context.Context) error {
	if !c.session.IsAuthenticated() {
		c.session.Logout()
		return nil
	}
	err := c.call(ctx, Request{Method: http.MethodPost, Path: "/api/auth/logout"}, nil)
	c.session.Logout()
	if err != nil && !errors.Is(err, ErrUnauthorized) {
		return err
	}
	return nil
}

// Health reports service health. Sent anonymously.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var health Health
	err := c.call(ctx, Request{Path: "/health", Anonymous: true}, &health)
	return health, err
}
