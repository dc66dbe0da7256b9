// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the gwdash command tree. Every command that
// talks to the service goes through [App.connect], which loads the
// configuration, rehydrates the persisted session, and wires the
// request pipeline to a terminal notifier.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/gwdash/gwdash/cmd/gwdash/cli"
	"github.com/gwdash/gwdash/lib/version"
)

// App carries the process streams. Tests substitute buffers.
type App struct {
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader
}

// NewApp returns an App on the process's standard streams.
func NewApp() *App {
	return &App{Stdout: os.Stdout, Stderr: os.Stderr, Stdin: os.Stdin}
}

// Root builds the complete command tree.
func Root(app *App) *cli.Command {
	return &cli.Command{
		Name: "gwdash",
		Description: `gwdash: gateway diagnostics dashboard client.

Sign in once with "gwdash login"; the session is persisted and reused
by every other command until you log out or the service rejects it.`,
		HelpOutput: app.Stderr,
		Subcommands: []*cli.Command{
			app.loginCommand(),
			app.logoutCommand(),
			app.whoamiCommand(),
			app.analysesCommand(),
			app.chatCommand(),
			app.usersCommand(),
			app.statsCommand(),
			app.healthCommand(),
			app.keygenCommand(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(_ context.Context, args []string, _ *slog.Logger) error {
					if len(args) > 0 {
						return cli.Validation("unexpected argument: %s", args[0])
					}
					fmt.Fprintf(app.Stdout, "gwdash %s\n", version.Full())
					return nil
				},
			},
		},
	}
}
