// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

// Gwdash-mockapi serves an in-memory implementation of the gateway
// diagnostics service for local development and end-to-end testing of
// the gwdash client. State lives only in memory and is lost on exit.
//
// Accounts come from a seed file (--seed) and/or a single administrator
// (--admin-email, with the password read from --admin-password-file or
// $GWDASH_MOCKAPI_ADMIN_PASSWORD). Prometheus metrics are served on
// /metrics; every other path is the service API.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"

	"github.com/gwdash/gwdash/lib/apitest"
	"github.com/gwdash/gwdash/lib/httpserver"
	"github.com/gwdash/gwdash/lib/process"
	"github.com/gwdash/gwdash/lib/secret"
	"github.com/gwdash/gwdash/lib/version"
)

// adminPasswordEnv supplies the seeded administrator's password when no
// password file is given.
const adminPasswordEnv = "GWDASH_MOCKAPI_ADMIN_PASSWORD"

func main() {
	if err := run(os.Args[1:]); err != nil {
		process.Fatal(err)
	}
}

type options struct {
	listen            string
	seedFile          string
	adminEmail        string
	adminPasswordFile string
	tokenTTL          time.Duration
	debug             bool
	showVersion       bool
}

func parseFlags(args []string) (options, error) {
	var opts options
	flagSet := pflag.NewFlagSet("gwdash-mockapi", pflag.ContinueOnError)
	flagSet.StringVar(&opts.listen, "listen", "127.0.0.1:8000", "TCP listen address")
	flagSet.StringVar(&opts.seedFile, "seed", "", "YAML file of accounts to create at startup")
	flagSet.StringVar(&opts.adminEmail, "admin-email", "", "create an administrator with this email")
	flagSet.StringVar(&opts.adminPasswordFile, "admin-password-file", "", "file holding the administrator password, or - for stdin (default: $"+adminPasswordEnv+", else generated)")
	flagSet.DurationVar(&opts.tokenTTL, "token-ttl", 24*time.Hour, "lifetime of issued access tokens")
	flagSet.BoolVar(&opts.debug, "debug", false, "log at debug level")
	flagSet.BoolVar(&opts.showVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(args); err != nil {
		return options{}, err
	}
	if flagSet.NArg() > 0 {
		return options{}, errors.New("unexpected argument: " + flagSet.Arg(0))
	}
	return opts, nil
}

func run(args []string) error {
	opts, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if opts.showVersion {
		os.Stdout.WriteString("gwdash-mockapi " + version.Full() + "\n")
		return nil
	}

	level := slog.LevelInfo
	if opts.debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := apitest.NewServer(apitest.Config{TokenTTL: opts.tokenTTL, Logger: logger})

	if opts.seedFile != "" {
		seed, err := loadSeed(opts.seedFile)
		if err != nil {
			return err
		}
		if err := seed.apply(server); err != nil {
			return err
		}
		logger.Info("seeded accounts", "file", opts.seedFile, "count", len(seed.Users))
	}
	if opts.adminEmail != "" {
		if err := seedAdmin(server, opts, logger); err != nil {
			return err
		}
	}

	registry := prometheus.NewRegistry()
	httpServer := httpserver.New(httpserver.Config{
		Address: opts.listen,
		Handler: newHandler(server, registry),
		Logger:  logger,
	})

	logger.Info("gwdash mock service starting", "version", version.Full(), "listen", opts.listen)
	return httpServer.Serve(ctx)
}

// seedAdmin creates the --admin-email account. Without a password file
// or environment variable the password is generated and logged.
func seedAdmin(server *apitest.Server, opts options, logger *slog.Logger) error {
	var password *secret.Buffer
	var err error
	generated := false
	switch {
	case opts.adminPasswordFile != "":
		password, err = secret.ReadFromPath(opts.adminPasswordFile, os.Stdin)
	case os.Getenv(adminPasswordEnv) != "":
		password, err = secret.NewFromString(os.Getenv(adminPasswordEnv))
	default:
		password, err = secret.NewFromString(uuid.NewString())
		generated = true
	}
	if err != nil {
		return err
	}
	defer password.Close()

	if _, err := server.AddUser(opts.adminEmail, password.String(), "Administrator", "admin", true); err != nil {
		return err
	}
	if generated {
		logger.Warn("generated administrator password", "email", opts.adminEmail, "password", password.String())
	} else {
		logger.Info("seeded administrator", "email", opts.adminEmail)
	}
	return nil
}
