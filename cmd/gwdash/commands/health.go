// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gwdash/gwdash/cmd/gwdash/cli"
)

type healthParams struct {
	ConnectionParams
	cli.JSONOutput
}

func (a *App) healthCommand() *cli.Command {
	var params healthParams
	return &cli.Command{
		Name:    "health",
		Summary: "Check that the service is up",
		Description: `Check that the service is up. Needs no session and never
affects the saved one. Exits non-zero when the service is unhealthy or
unreachable.`,
		Usage:  "gwdash health [flags]",
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

			health, err := r.client.Health(ctx)
			if err != nil {
				return requestFailure("health check", err)
			}
			if done, err := params.EmitJSON(a.Stdout, health); done {
				return err
			}
			fmt.Fprintf(a.Stdout, "%s: %s (database %s)\n", r.config.API.BaseURL, health.Status, health.Database)
			if health.Status != "healthy" {
				return &cli.ExitError{Code: cli.CategoryTransient.ExitCode()}
			}
			return nil
		},
	}
}
