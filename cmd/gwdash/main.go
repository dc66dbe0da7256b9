// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

// Command gwdash is the command-line client for the gateway diagnostics
// dashboard service.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gwdash/gwdash/cmd/gwdash/cli"
	"github.com/gwdash/gwdash/cmd/gwdash/commands"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := cli.NewCommandLogger(os.Stderr, false)
	err := commands.Root(commands.NewApp()).Execute(ctx, args, logger)

	code, report := cli.ExitCodeFor(err)
	if report {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	return code
}
