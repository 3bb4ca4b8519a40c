// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command devapi is the reference identity API the session client talks to.
//
// # Startup Sequence
//
//  1. Load .env (optional) and initialize the structured logger.
//  2. Load configuration from environment variables.
//  3. Build the token service, repositories and identity service.
//  4. Seed the demo account.
//  5. Start the HTTP server with graceful shutdown.
//
// Storage is in memory: every restart begins with only the demo account.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/taibuivan/clouds/internal/devapi"
	"github.com/taibuivan/clouds/internal/platform/config"
	"github.com/taibuivan/clouds/internal/platform/constants"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	envErr := godotenv.Load()

	log := newLogger(slog.LevelInfo)
	slog.SetDefault(log)

	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		log.Warn("dotenv_load_failed", slog.Any("error", envErr))
	}

	log.Info("[devapi] service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.LoadServer()
	must(log, err, "load configuration")

	if cfg.Debug {
		log = newLogger(slog.LevelDebug)
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.Bool("cookie_secure", cfg.CookieSecure),
	)

	// The root context lives for the whole process; the rate limiter's
	// cleanup loop stops with it.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── 3. Wiring ─────────────────────────────────────────────────────────
	server, _, err := devapi.Build(ctx, cfg, log)
	must(log, err, "build reference api")

	// ── 4. Graceful Shutdown ──────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})).With(slog.String("app", "devapi"))
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is limited to startup wiring. After startup, errors are returned and
// handled explicitly.
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
