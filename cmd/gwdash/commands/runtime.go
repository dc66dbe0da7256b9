// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/gwdash/gwdash/api"
	"github.com/gwdash/gwdash/cmd/gwdash/cli"
	"github.com/gwdash/gwdash/lib/config"
	"github.com/gwdash/gwdash/lib/kvstore"
	"github.com/gwdash/gwdash/lib/sealed"
	"github.com/gwdash/gwdash/notify"
	"github.com/gwdash/gwdash/session"
)

// ConnectionParams are the flags shared by every command that talks to
// the service.
type ConnectionParams struct {
	ConfigFile string `flag:"config" desc:"configuration file (default: $GWDASH_CONFIG)"`
	APIURL     string `flag:"api-url" desc:"service base URL, overriding the configuration"`
	Debug      bool   `flag:"debug" desc:"log every request to stderr"`
}

// runtime is a connected client with its session and notifier.
type runtime struct {
	config     *config.Config
	store      *session.Store
	client     *api.Client
	dispatcher *notify.Dispatcher
	closers    []func() error
	logger     *slog.Logger
}

// redisKeyPrefix namespaces session keys in a shared Redis.
const redisKeyPrefix = "gwdash"

func loadConfig(params ConnectionParams) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if params.ConfigFile != "" {
		cfg, err = config.LoadFile(params.ConfigFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, cli.Validation("%w", err)
	}
	if params.APIURL != "" {
		cfg.API.BaseURL = params.APIURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, cli.Validation("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openStorage returns the configured session storage and a function
// releasing it. With an identity file the storage is sealed to it.
func openStorage(ctx context.Context, cfg config.SessionConfig) (kvstore.Store, []func() error, error) {
	var storage kvstore.Store
	var closers []func() error

	switch cfg.Backend {
	case config.BackendFile:
		storage = kvstore.NewFile(cfg.Directory)
	case config.BackendMemory:
		storage = kvstore.NewMemory()
	case config.BackendRedis:
		redisStore, closeRedis, err := kvstore.OpenRedis(ctx, cfg.RedisURL, redisKeyPrefix)
		if err != nil {
			return nil, nil, cli.Transient("opening session storage: %w", err)
		}
		storage = redisStore
		closers = append(closers, closeRedis)
	default:
		return nil, nil, cli.Validation("unknown session backend %q", cfg.Backend)
	}

	if cfg.IdentityFile != "" {
		keypair, err := sealed.LoadKeypair(cfg.IdentityFile)
		if err != nil {
			runClosers(closers)
			return nil, nil, cli.Validation("loading session identity: %w", err).
				WithHint("Create one with 'gwdash keygen --output " + cfg.IdentityFile + "'.")
		}
		storage = kvstore.NewSealed(storage, keypair)
		closers = append(closers, keypair.Close)
	}
	return storage, closers, nil
}

func runClosers(closers []func() error) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// connect loads the configuration, rehydrates the session, and builds
// the client. With session.verify_on_start the rehydrated session is
// checked against the server before the command runs.
func (a *App) connect(ctx context.Context, params ConnectionParams, logger *slog.Logger) (*runtime, error) {
	if params.Debug {
		logger = cli.NewCommandLogger(a.Stderr, true)
	}

	cfg, err := loadConfig(params)
	if err != nil {
		return nil, err
	}

	storage, closers, err := openStorage(ctx, cfg.Session)
	if err != nil {
		return nil, err
	}

	store := session.NewStore(session.Config{
		Storage: storage,
		Key:     cfg.Session.Key,
		Logger:  logger,
	})
	if err := store.Rehydrate(ctx); err != nil {
		store.Close()
		runClosers(closers)
		if errors.Is(err, kvstore.ErrUnsealable) {
			return nil, cli.Validation("%w", err).
				WithHint("The saved session was sealed to a different identity. Run 'gwdash logout' and log in again.")
		}
		return nil, cli.Internal("%w", err)
	}

	// The dispatcher goroutine and forced navigation both write to
	// stderr. An *os.File is safe for that and keeps color detection.
	stderr := a.Stderr
	if _, isFile := stderr.(*os.File); !isFile {
		stderr = &lockedWriter{w: stderr}
	}
	dispatcher := notify.NewDispatcher(notify.DispatcherConfig{
		BufferSize: cfg.Notifications.BufferSize,
		DropIfFull: cfg.Notifications.DropIfFull,
		Logger:     logger,
	}, notify.NewTerminal(stderr))

	client, err := api.NewClient(api.Config{
		BaseURL:    cfg.API.BaseURL,
		Session:    store,
		Timeout:    cfg.API.Timeout,
		Notifier:   dispatcher,
		Navigator: api.NavigatorFunc(func(_ context.Context, route string) {
			printLoginHint(stderr, route)
		}),
		EntryRoute: cfg.Navigation.EntryRoute,
		Messages: api.Messages{
			SessionExpired: cfg.Notifications.SessionExpired,
			Forbidden:      cfg.Notifications.Forbidden,
			ServerError:    cfg.Notifications.ServerError,
		},
		Logger: logger,
	})
	if err != nil {
		dispatcher.Close()
		store.Close()
		runClosers(closers)
		return nil, cli.Validation("%w", err)
	}

	r := &runtime{
		config:     cfg,
		store:      store,
		client:     client,
		dispatcher: dispatcher,
		closers:    closers,
		logger:     logger,
	}

	if cfg.Session.VerifyOnStart && store.IsAuthenticated() {
		if _, err := client.Verify(ctx); err != nil && !api.IsKind(err, api.KindUnauthorized) {
			logger.Warn("session verification failed", "error", err)
		}
	}
	return r, nil
}

// printLoginHint is the CLI's forced navigation: there is no screen to
// move to, so it tells the user how to get back in.
func printLoginHint(w io.Writer, route string) {
	if route == "/login" {
		fmt.Fprintln(w, "Run 'gwdash login <email>' to start a new session.")
		return
	}
	fmt.Fprintf(w, "Run 'gwdash login <email>' to start a new session (entry route %s).\n", route)
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// Close flushes pending notifications and releases the session storage.
func (r *runtime) Close() {
	r.client.CloseIdleConnections()
	r.dispatcher.Close()
	r.store.Close()
	if err := runClosers(r.closers); err != nil {
		r.logger.Warn("closing session storage", "error", err)
	}
}

// requireSession fails with an unauthenticated error when no session
// is active.
func (r *runtime) requireSession() error {
	if !r.store.IsAuthenticated() {
		return cli.Unauthenticated("not logged in").
			WithHint("Run 'gwdash login <email>' to start a session.")
	}
	return nil
}
