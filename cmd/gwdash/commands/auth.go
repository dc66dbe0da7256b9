// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gwdash/gwdash/api"
	"github.com/gwdash/gwdash/cmd/gwdash/cli"
	"github.com/gwdash/gwdash/session"
)

type loginParams struct {
	ConnectionParams
	cli.JSONOutput
	PasswordFile string `flag:"password-file" desc:"file containing the password, or - for stdin (default: prompt)"`
}

type loginOutput struct {
	Email     string       `json:"email"`
	Name      string       `json:"name,omitempty"`
	Role      session.Role `json:"role"`
	ExpiresIn int          `json:"expires_in"`
}

func (a *App) loginCommand() *cli.Command {
	var params loginParams
	return &cli.Command{
		Name:    "login",
		Summary: "Sign in and save the session",
		Description: `Sign in with email and password and save the session.

The session is persisted to the configured storage (a 0600 file under
~/.config/gwdash by default) and reused by later commands. A wrong
password leaves any existing session untouched.`,
		Usage: "gwdash login <email> [flags]",
		Examples: []cli.Example{
			{Description: "Prompt for the password", Command: "gwdash login ana@example.com"},
			{Description: "Read the password from a file", Command: "gwdash login ana@example.com --password-file ~/.gwdash-password"},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return cli.Validation("expected exactly one argument: <email>")
			}
			email := args[0]

			password, err := cli.ReadPassword(params.PasswordFile, a.Stdin, a.Stderr)
			if err != nil {
				return err
			}
			defer password.Close()

			r, err := a.connect(ctx, params.ConnectionParams, logger)
			if err != nil {
				return err
			}
			defer r.Close()

			response, err := r.client.Login(ctx, email, password)
			if err != nil {
				var apiErr *api.Error
				if errors.As(err, &apiErr) && apiErr.Kind == api.KindUnauthorized {
					return cli.Unauthenticated("login failed: %s", apiErr.Message)
				}
				return requestFailure("login", err)
			}

			output := loginOutput{
				Email:     response.User.Email,
				Name:      response.User.Name,
				Role:      response.User.Role,
				ExpiresIn: response.ExpiresIn,
			}
			if done, err := params.EmitJSON(a.Stdout, output); done {
				return err
			}
			fmt.Fprintf(a.Stdout, "Logged in as %s (%s)\n", response.User.DisplayName(), response.User.Role)
			return nil
		},
	}
}

type logoutParams struct {
	ConnectionParams
}

func (a *App) logoutCommand() *cli.Command {
	var params logoutParams
	return &cli.Command{
		Name:    "logout",
		Summary: "End the session",
		Description: `Tell the service the session is over and remove the saved session.

The local session is removed even when the service cannot be reached.`,
		Usage:  "gwdash logout [flags]",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			r, err := a.connect(ctx, params.ConnectionParams, logger)
			if err != nil {
				return err
			}
			defer r.Close()

			if !r.store.IsAuthenticated() {
				fmt.Fprintln(a.Stdout, "Not logged in.")
				return nil
			}
			if err := r.client.Logout(ctx); err != nil {
				fmt.Fprintln(a.Stdout, "Logged out locally.")
				return requestFailure("logout", err)
			}
			fmt.Fprintln(a.Stdout, "Logged out.")
			return nil
		},
	}
}

type whoamiParams struct {
	ConnectionParams
	cli.JSONOutput
	Verify bool `flag:"verify" desc:"check the session against the service"`
}

type whoamiOutput struct {
	ID         string       `json:"id"`
	Email      string       `json:"email"`
	Name       string       `json:"name,omitempty"`
	Role       session.Role `json:"role"`
	Elevated   bool         `json:"elevated"`
	Credential string       `json:"credential_fingerprint"`
	Verified   bool         `json:"verified"`
}

func (a *App) whoamiCommand() *cli.Command {
	var params whoamiParams
	return &cli.Command{
		Name:    "whoami",
		Summary: "Show the signed-in user",
		Description: `Show the identity of the saved session.

Without --verify only the saved session is read. With --verify the
credential is checked against the service; a rejected credential ends
the session.`,
		Usage:  "gwdash whoami [flags]",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			r, err := a.connect(ctx, params.ConnectionParams, logger)
			if err != nil {
				return err
			}
			defer r.Close()
			if err := r.requireSession(); err != nil {
				return err
			}

			snapshot := r.store.Snapshot()
			identity := *snapshot.Identity
			verified := false
			if params.Verify {
				identity, err = r.client.Verify(ctx)
				if err != nil {
					return requestFailure("verify session", err)
				}
				verified = true
			}

			output := whoamiOutput{
				ID:         identity.ID,
				Email:      identity.Email,
				Name:       identity.Name,
				Role:       identity.Role,
				Elevated:   identity.Elevated(),
				Credential: session.Fingerprint(snapshot.Credential),
				Verified:   verified,
			}
			if done, err := params.EmitJSON(a.Stdout, output); done {
				return err
			}

			table := newTable(a.Stdout)
			table.row("Email:", output.Email)
			if output.Name != "" {
				table.row("Name:", output.Name)
			}
			table.row("Role:", string(output.Role))
			table.row("Credential:", output.Credential)
			if verified {
				table.row("Status:", "verified")
			}
			return table.flush()
		},
	}
}
