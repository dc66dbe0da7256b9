// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gwdash/gwdash/api"
	"github.com/gwdash/gwdash/cmd/gwdash/cli"
)

func (a *App) chatCommand() *cli.Command {
	return &cli.Command{
		Name:    "chat",
		Summary: "Ask questions about an analysis",
		Subcommands: []*cli.Command{
			a.chatSendCommand(),
			a.chatHistoryCommand(),
		},
	}
}

func (a *App) chatSendCommand() *cli.Command {
	var params analysisIDParams
	return &cli.Command{
		Name:    "send",
		Summary: "Ask a question about an analysis",
		Usage:   "gwdash chat send <analysis-id> <question...> [flags]",
		Examples: []cli.Example{
			{Command: `gwdash chat send 3f2a... "Why did the gateway reboot?"`},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) < 2 {
				return cli.Validation("expected <analysis-id> and a question")
			}
			question := strings.TrimSpace(strings.Join(args[1:], " "))
			if question == "" {
				return cli.Validation("question is empty")
			}
			r, err := a.connect(ctx, params.ConnectionParams, logger)
			if err != nil {
				return err
			}
			defer r.Close()
			if err := r.requireSession(); err != nil {
				return err
			}

			message, err := r.client.Chat.Send(ctx, api.ChatRequest{AnalysisID: args[0], Question: question})
			if err != nil {
				return requestFailure("send question", err)
			}
			if done, err := params.EmitJSON(a.Stdout, message); done {
				return err
			}
			fmt.Fprintln(a.Stdout, message.Answer)
			return nil
		},
	}
}

func (a *App) chatHistoryCommand() *cli.Command {
	var params analysisIDParams
	return &cli.Command{
		Name:    "history",
		Summary: "Show the conversation about an analysis",
		Usage:   "gwdash chat history <analysis-id> [flags]",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return cli.Validation("expected exactly one argument: <analysis-id>")
			}
			r, err := a.connect(ctx, params.ConnectionParams, logger)
			if err != nil {
				return err
			}
			defer r.Close()
			if err := r.requireSession(); err != nil {
				return err
			}

			messages, err := r.client.Chat.History(ctx, args[0])
			if err != nil {
				return requestFailure("chat history", err)
			}
			if done, err := params.EmitJSON(a.Stdout, messages); done {
				return err
			}
			for i, message := range messages {
				if i > 0 {
					fmt.Fprintln(a.Stdout)
				}
				fmt.Fprintf(a.Stdout, "[%s] Q: %s\n", formatTimestamp(&message.CreatedAt), message.Question)
				fmt.Fprintf(a.Stdout, "A: %s\n", message.Answer)
			}
			return nil
		},
	}
}
