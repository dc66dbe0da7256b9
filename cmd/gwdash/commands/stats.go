// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/gwdash/gwdash/cmd/gwdash/cli"
)

type statsParams struct {
	ConnectionParams
	cli.JSONOutput
}

func (a *App) statsCommand() *cli.Command {
	var params statsParams
	return &cli.Command{
		Name:    "stats",
		Summary: "Show global usage statistics (administrators only)",
		Usage:   "gwdash stats [flags]",
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

			stats, err := r.client.Stats.Global(ctx)
			if err != nil {
				return requestFailure("global statistics", err)
			}
			if done, err := params.EmitJSON(a.Stdout, stats); done {
				return err
			}

			summary := newTable(a.Stdout)
			summary.row("Users:", fmt.Sprintf("%d (%d active)", stats.TotalUsers, stats.ActiveUsers))
			summary.row("Analyses:", strconv.Itoa(stats.TotalAnalyses))
			summary.row("Today:", strconv.Itoa(stats.AnalysesToday))
			summary.row("This week:", strconv.Itoa(stats.AnalysesThisWeek))
			if err := summary.flush(); err != nil {
				return err
			}
			if len(stats.TopUsers) == 0 {
				return nil
			}

			fmt.Fprintln(a.Stdout)
			top := newTable(a.Stdout)
			top.row("EMAIL", "ANALYSES", "LAST ANALYSIS", "LAST ACCESS")
			for _, user := range stats.TopUsers {
				top.row(user.Email, strconv.Itoa(user.TotalAnalyses), formatTimestamp(user.LastAnalysis), formatTimestamp(user.LastAccess))
			}
			return top.flush()
		},
	}
}
