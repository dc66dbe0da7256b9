// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gwdash/gwdash/api"
	"github.com/gwdash/gwdash/cmd/gwdash/cli"
)

func (a *App) analysesCommand() *cli.Command {
	return &cli.Command{
		Name:    "analyses",
		Summary: "Run and inspect gateway analyses",
		Subcommands: []*cli.Command{
			a.analysesCreateCommand(),
			a.analysesListCommand(),
			a.analysesGetCommand(),
			a.analysesDeleteCommand(),
		},
	}
}

type analysesCreateParams struct {
	ConnectionParams
	cli.JSONOutput
	NoEvents bool `flag:"no-events" desc:"leave recent gateway events out of the analysis"`
}

func (a *App) analysesCreateCommand() *cli.Command {
	var params analysesCreateParams
	return &cli.Command{
		Name:    "create",
		Summary: "Analyze a gateway by MAC address",
		Usage:   "gwdash analyses create <mac-address> [flags]",
		Examples: []cli.Example{
			{Description: "Analyze a gateway", Command: "gwdash analyses create AA:BB:CC:DD:EE:FF"},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return cli.Validation("expected exactly one argument: <mac-address>")
			}
			r, err := a.connect(ctx, params.ConnectionParams, logger)
			if err != nil {
				return err
			}
			defer r.Close()
			if err := r.requireSession(); err != nil {
				return err
			}

			analysis, err := r.client.Analyses.Create(ctx, api.CreateAnalysisRequest{
				MACAddress:    args[0],
				IncludeEvents: !params.NoEvents,
			})
			if err != nil {
				return requestFailure("create analysis", err)
			}
			if done, err := params.EmitJSON(a.Stdout, analysis); done {
				return err
			}
			return a.printAnalysis(analysis)
		},
	}
}

type analysesListParams struct {
	ConnectionParams
	cli.JSONOutput
	Limit  int `flag:"limit" desc:"maximum number of analyses (default: server default)"`
	Offset int `flag:"offset" desc:"number of analyses to skip"`
}

func (a *App) analysesListCommand() *cli.Command {
	var params analysesListParams
	return &cli.Command{
		Name:    "list",
		Summary: "List your analyses, newest first",
		Usage:   "gwdash analyses list [flags]",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			if params.Limit < 0 || params.Offset < 0 {
				return cli.Validation("--limit and --offset must not be negative")
			}
			r, err := a.connect(ctx, params.ConnectionParams, logger)
			if err != nil {
				return err
			}
			defer r.Close()
			if err := r.requireSession(); err != nil {
				return err
			}

			analyses, err := r.client.Analyses.List(ctx, api.ListOptions{Limit: params.Limit, Offset: params.Offset})
			if err != nil {
				return requestFailure("list analyses", err)
			}
			if done, err := params.EmitJSON(a.Stdout, analyses); done {
				return err
			}
			if len(analyses) == 0 {
				fmt.Fprintln(a.Stdout, "No analyses.")
				return nil
			}
			table := newTable(a.Stdout)
			table.row("ID", "MAC ADDRESS", "STATUS", "CREATED")
			for _, analysis := range analyses {
				table.row(analysis.ID, analysis.MACAddress, string(analysis.Status), formatTimestamp(&analysis.CreatedAt))
			}
			return table.flush()
		},
	}
}

type analysisIDParams struct {
	ConnectionParams
	cli.JSONOutput
}

func (a *App) analysesGetCommand() *cli.Command {
	var params analysisIDParams
	return &cli.Command{
		Name:    "get",
		Summary: "Show an analysis with its report and technical data",
		Usage:   "gwdash analyses get <id> [flags]",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return cli.Validation("expected exactly one argument: <id>")
			}
			r, err := a.connect(ctx, params.ConnectionParams, logger)
			if err != nil {
				return err
			}
			defer r.Close()
			if err := r.requireSession(); err != nil {
				return err
			}

			analysis, err := r.client.Analyses.Get(ctx, args[0])
			if err != nil {
				return requestFailure("get analysis", err)
			}
			if done, err := params.EmitJSON(a.Stdout, analysis); done {
				return err
			}
			return a.printAnalysis(analysis)
		},
	}
}

func (a *App) analysesDeleteCommand() *cli.Command {
	var params ConnectionParams
	return &cli.Command{
		Name:    "delete",
		Summary: "Delete an analysis",
		Usage:   "gwdash analyses delete <id> [flags]",
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

			if _, err := r.client.Analyses.Delete(ctx, args[0]); err != nil {
				return requestFailure("delete analysis", err)
			}
			fmt.Fprintf(a.Stdout, "Deleted analysis %s\n", args[0])
			return nil
		},
	}
}

func (a *App) printAnalysis(analysis api.AnalysisDetail) error {
	table := newTable(a.Stdout)
	table.row("ID:", analysis.ID)
	table.row("MAC address:", analysis.MACAddress)
	table.row("Status:", string(analysis.Status))
	table.row("Created:", formatTimestamp(&analysis.CreatedAt))
	if err := table.flush(); err != nil {
		return err
	}
	if analysis.Report != "" {
		fmt.Fprintf(a.Stdout, "\n%s\n", analysis.Report)
	}
	if len(analysis.TechnicalData) > 0 {
		fmt.Fprintln(a.Stdout, "\nTechnical data:")
		if err := cli.WriteJSON(a.Stdout, analysis.TechnicalData); err != nil {
			return err
		}
	}
	return nil
}
