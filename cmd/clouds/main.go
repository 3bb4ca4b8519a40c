// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command clouds is the command-line client of the session layer.
//
// # Startup Sequence
//
//  1. Load .env (optional) and configuration from environment variables.
//  2. Initialize the structured logger (stderr or a rotating LOG_FILE).
//  3. Open the persistent key/value store.
//  4. Wire token store, HTTP client, profile cache and the services.
//  5. Dispatch the subcommand.
//
// Command output goes to stdout; logs never do.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/taibuivan/clouds/internal/client"
	"github.com/taibuivan/clouds/internal/platform/config"
	"github.com/taibuivan/clouds/internal/platform/constants"
	"github.com/taibuivan/clouds/internal/platform/kv"
	"github.com/taibuivan/clouds/internal/session/profile"
	"github.com/taibuivan/clouds/internal/session/token"
	"github.com/taibuivan/clouds/internal/users/account"
	"github.com/taibuivan/clouds/internal/users/auth"
	"github.com/taibuivan/clouds/internal/users/state"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// app holds the wired components shared by every command.
type app struct {
	log      *slog.Logger
	store    kv.Store
	identity *auth.Service
	auth     *state.Store
	sessions *account.Service
	stdout   io.Writer
}

// run executes one command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		usage(stdout)
		return 0
	}

	command, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "clouds: unknown command %q\n\n", args[0])
		usage(stderr)
		return 2
	}

	// ── 1. Configuration ──────────────────────────────────────────────────
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(stderr, "clouds: .env: %v\n", err)
	}

	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintf(stderr, "clouds: %v\n", err)
		return 1
	}

	// ── 2. Logger ─────────────────────────────────────────────────────────
	log, closeLog := newLogger(cfg, stderr)
	defer closeLog()

	// ── 3. Wiring ─────────────────────────────────────────────────────────
	application, err := wire(ctx, cfg, log, stdout)
	if err != nil {
		log.Error("startup failure", slog.Any("error", err))
		fmt.Fprintf(stderr, "clouds: %v\n", err)
		return 1
	}
	defer func() {
		if err := application.store.Close(); err != nil {
			log.Warn("store_close_failed", slog.Any("error", err))
		}
	}()

	// ── 4. Dispatch ───────────────────────────────────────────────────────
	if err := command.run(ctx, application, args[1:]); err != nil {
		fmt.Fprintf(stderr, "clouds %s: %v\n", args[0], err)
		return 1
	}

	// Let a background profile refresh finish writing the cache.
	application.auth.Wait()
	return 0
}

// wire builds the session stack over the configured store.
func wire(ctx context.Context, cfg *config.Client, log *slog.Logger, stdout io.Writer) (*app, error) {
	store, err := kv.Open(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
	}

	tokens := token.NewStore(store, cfg.MirrorAccessToken, log)

	httpClient, err := client.New(ctx, client.ConfigFrom(cfg), tokens, store, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	cache := profile.NewCache(store, cfg.ProfileTTL, log)
	identity := auth.NewService(httpClient, cache, store, log)

	return &app{
		log:      log,
		store:    store,
		identity: identity,
		auth:     state.New(ctx, identity, cache, cfg.RefreshAheadRatio, log),
		sessions: account.NewService(httpClient, store, log),
		stdout:   stdout,
	}, nil
}

// newLogger writes JSON to LOG_FILE through lumberjack when set, else to stderr.
// Only warnings and errors reach stderr unless DEBUG is on.
func newLogger(cfg *config.Client, stderr io.Writer) (*slog.Logger, func()) {
	level := slog.LevelWarn
	if cfg.Debug {
		level = slog.LevelDebug
	}

	var writer io.Writer = stderr
	closeFn := func() {}

	if cfg.LogFile != "" {
		rotating := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: 3,
			Compress:   false,
		}
		writer = rotating
		closeFn = func() { _ = rotating.Close() }
		if !cfg.Debug {
			level = slog.LevelInfo
		}
	}

	log := slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: level})).
		With(slog.String("app", constants.AppName))
	slog.SetDefault(log)
	return log, closeFn
}
