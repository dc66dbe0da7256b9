// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/gwdash/gwdash/cmd/gwdash/cli"
	"github.com/gwdash/gwdash/lib/sealed"
)

type keygenParams struct {
	Output string `flag:"output,o" desc:"where to write the identity (required)"`
}

func (a *App) keygenCommand() *cli.Command {
	var params keygenParams
	return &cli.Command{
		Name:    "keygen",
		Summary: "Create an identity for encrypting the saved session",
		Description: `Generate an age identity and write it to --output with mode 0600.

Point session.identity_file at it to encrypt the persisted session, so
the credential is unreadable without the identity even where the
storage is shared (for example the redis backend).`,
		Usage: "gwdash keygen --output <path>",
		Examples: []cli.Example{
			{Command: "gwdash keygen --output ~/.config/gwdash/identity.age"},
		},
		Params: func() any { return &params },
		Run: func(_ context.Context, args []string, _ *slog.Logger) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			if params.Output == "" {
				return cli.Validation("--output is required")
			}

			keypair, err := sealed.GenerateKeypair()
			if err != nil {
				return cli.Internal("generating identity: %w", err)
			}
			defer keypair.Close()

			if err := sealed.WriteKeypair(params.Output, keypair); err != nil {
				if errors.Is(err, fs.ErrExist) {
					return cli.Conflict("%s already exists", params.Output)
				}
				return cli.Internal("writing identity: %w", err)
			}
			fmt.Fprintf(a.Stdout, "Wrote identity to %s\n", params.Output)
			fmt.Fprintf(a.Stdout, "Public key: %s\n", keypair.PublicKey)
			return nil
		},
	}
}
