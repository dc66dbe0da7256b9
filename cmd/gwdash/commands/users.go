// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/gwdash/gwdash/api"
	"github.com/gwdash/gwdash/cmd/gwdash/cli"
	"github.com/gwdash/gwdash/lib/secret"
	"github.com/gwdash/gwdash/session"
)

func (a *App) usersCommand() *cli.Command {
	return &cli.Command{
		Name:    "users",
		Summary: "Manage dashboard users (administrators only)",
		Subcommands: []*cli.Command{
			a.usersListCommand(),
			a.usersCreateCommand(),
			a.usersUpdateCommand(),
			a.usersDeleteCommand(),
		},
	}
}

type usersListParams struct {
	ConnectionParams
	cli.JSONOutput
}

func (a *App) usersListCommand() *cli.Command {
	var params usersListParams
	return &cli.Command{
		Name:    "list",
		Summary: "List users",
		Usage:   "gwdash users list [flags]",
		Params:  func() any { return &params },
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

			users, err := r.client.Users.List(ctx)
			if err != nil {
				return requestFailure("list users", err)
			}
			if done, err := params.EmitJSON(a.Stdout, users); done {
				return err
			}
			table := newTable(a.Stdout)
			table.row("ID", "EMAIL", "NAME", "ROLE", "ACTIVE", "LAST ACCESS")
			for _, user := range users {
				name := user.Name
				if name == "" {
					name = "-"
				}
				table.row(user.ID, user.Email, name, string(user.Role), yesNo(user.Active), formatTimestamp(user.LastAccess))
			}
			return table.flush()
		},
	}
}

type usersCreateParams struct {
	ConnectionParams
	cli.JSONOutput
	Name         string `flag:"name" desc:"display name"`
	Role         string `flag:"role" desc:"user or admin" default:"user"`
	Inactive     bool   `flag:"inactive" desc:"create the account disabled"`
	PasswordFile string `flag:"password-file" desc:"file containing the new user's password, or - for stdin (default: prompt)"`
}

func (a *App) usersCreateCommand() *cli.Command {
	var params usersCreateParams
	return &cli.Command{
		Name:    "create",
		Summary: "Create a user",
		Usage:   "gwdash users create <email> [flags]",
		Examples: []cli.Example{
			{Description: "Create a technician account", Command: "gwdash users create tech@example.com --name Tech --password-file -"},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return cli.Validation("expected exactly one argument: <email>")
			}
			role, err := parseRole(params.Role)
			if err != nil {
				return err
			}
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
			if err := r.requireSession(); err != nil {
				return err
			}

			active := !params.Inactive
			user, err := r.client.Users.Create(ctx, api.CreateUserRequest{
				Email:    args[0],
				Password: password.String(),
				Name:     params.Name,
				Role:     role,
				Active:   &active,
			})
			if err != nil {
				return requestFailure("create user", err)
			}
			if done, err := params.EmitJSON(a.Stdout, user); done {
				return err
			}
			fmt.Fprintf(a.Stdout, "Created %s (%s) with id %s\n", user.Email, user.Role, user.ID)
			return nil
		},
	}
}

type usersUpdateParams struct {
	ConnectionParams
	cli.JSONOutput
	Name         string `flag:"name" desc:"new display name"`
	Role         string `flag:"role" desc:"new role: user or admin"`
	Active       string `flag:"active" desc:"true to enable the account, false to disable it"`
	PasswordFile string `flag:"password-file" desc:"file containing a new password, or - for stdin"`
}

func (a *App) usersUpdateCommand() *cli.Command {
	var params usersUpdateParams
	return &cli.Command{
		Name:    "update",
		Summary: "Change a user's name, role, status, or password",
		Usage:   "gwdash users update <id> [flags]",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return cli.Validation("expected exactly one argument: <id>")
			}

			var request api.UpdateUserRequest
			if params.Name != "" {
				request.Name = &params.Name
			}
			if params.Role != "" {
				role, err := parseRole(params.Role)
				if err != nil {
					return err
				}
				request.Role = &role
			}
			active, err := parseBoolFlag("active", params.Active)
			if err != nil {
				return err
			}
			request.Active = active
			if params.PasswordFile != "" {
				password, err := secret.ReadFromPath(params.PasswordFile, a.Stdin)
				if err != nil {
					return cli.Validation("reading password: %w", err)
				}
				defer password.Close()
				text := password.String()
				request.Password = &text
			}
			if request == (api.UpdateUserRequest{}) {
				return cli.Validation("nothing to update: pass --name, --role, --active, or --password-file")
			}

			r, err := a.connect(ctx, params.ConnectionParams, logger)
			if err != nil {
				return err
			}
			defer r.Close()
			if err := r.requireSession(); err != nil {
				return err
			}

			user, err := r.client.Users.Update(ctx, args[0], request)
			if err != nil {
				return requestFailure("update user", err)
			}
			if done, err := params.EmitJSON(a.Stdout, user); done {
				return err
			}
			fmt.Fprintf(a.Stdout, "Updated %s (%s, active: %s)\n", user.Email, user.Role, yesNo(user.Active))
			return nil
		},
	}
}

func (a *App) usersDeleteCommand() *cli.Command {
	var params ConnectionParams
	return &cli.Command{
		Name:    "delete",
		Summary: "Delete a user",
		Usage:   "gwdash users delete <id> [flags]",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return cli.Validation("expected exactly one argument: <id>")
			}
			r, err := a.connect(ctx, params, logger)
			if err != nil {
				return err
			}
			defer r.Close()
			if err := r.requireSession(); err != nil {
				return err
			}

			if _, err := r.client.Users.Delete(ctx, args[0]); err != nil {
				return requestFailure("delete user", err)
			}
			fmt.Fprintf(a.Stdout, "Deleted user %s\n", args[0])
			return nil
		},
	}
}

func parseRole(text string) (session.Role, error) {
	switch role := session.Role(text); role {
	case session.RoleStandard, session.RoleElevated:
		return role, nil
	}
	return "", cli.Validation("--role must be %q or %q, got %q", session.RoleStandard, session.RoleElevated, text)
}

// parseBoolFlag parses an optional true/false flag value; "" is unset.
func parseBoolFlag(name, value string) (*bool, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return nil, cli.Validation("--%s must be true or false, got %q", name, value)
	}
	return &parsed, nil
}
