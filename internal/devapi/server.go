// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package devapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/taibuivan/clouds/internal/platform/config"
	"github.com/taibuivan/clouds/internal/platform/constants"
	"github.com/taibuivan/clouds/internal/platform/middleware"
	"github.com/taibuivan/clouds/internal/platform/sec"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// Handlers groups the HTTP handler sets mounted by [NewServer].
type Handlers struct {
	// Liveness is the /health handler; always 200 while the process is alive.
	Liveness http.HandlerFunc

	// Readiness is the /ready handler; 200 when every dependency is healthy.
	Readiness http.HandlerFunc

	// Identity serves /api/auth and /api/user.
	Identity *Handler
}

// # Server Initialization

// NewServer constructs the chi router with the full middleware chain and
// registers all route groups.
func NewServer(ctx context.Context, cfg *config.Server, log *slog.Logger, verifier middleware.TokenVerifier, sessions middleware.SessionChecker, h Handlers) *Server {
	r := chi.NewRouter()

	// # Middleware Chain
	limiter := middleware.NewRateLimiter(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst)

	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(log))
	r.Use(chimw.Timeout(constants.GlobalRequestTimeout))
	r.Use(limiter.Handler)
	r.Use(middleware.PanicRecovery)
	r.Use(middleware.CORS(cfg, cfg.ExtraOrigins))
	r.Use(middleware.Authenticate(verifier, sessions))
	r.Use(chimw.CleanPath)

	// # Infrastructure Endpoints
	r.Get("/health", h.Liveness)
	r.Get("/ready", h.Readiness)

	// # Application API
	r.Route("/api", func(api chi.Router) {
		api.Get("/health", h.Liveness)
		api.Mount("/auth", h.Identity.AuthRoutes())
		api.Mount("/user", h.Identity.UserRoutes())
	})

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// Build wires the complete reference API from configuration: token service,
// in-memory repositories, identity service and health probes.
//
// # Returns
//   - *Server: Ready to serve
//   - *Service: The identity service, for seeding and inspection
//   - error: Key loading or seeding failures
func Build(ctx context.Context, cfg *config.Server, log *slog.Logger) (*Server, *Service, error) {
	tokens, err := newTokenService(cfg)
	if err != nil {
		return nil, nil, err
	}

	users := NewMemoryUserRepository()
	sessions := NewMemorySessionRepository()
	service := NewService(users, sessions, tokens, Options{
		AccessTokenTTL:  cfg.AccessTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
		BcryptCost:      cfg.BcryptCost,
	})

	if cfg.SeedDemoUser {
		if err := service.SeedDemoUser(ctx); err != nil {
			return nil, nil, fmt.Errorf("devapi: seed demo user: %w", err)
		}
		log.Info("demo_user_seeded", slog.String("email", DemoEmail))
	}

	liveness, readiness := NewHealthHandlers(HealthDependencies{
		Checks: map[string]func() error{
			"users": func() error {
				if cfg.SeedDemoUser && users.Count(context.Background()) == 0 {
					return errors.New("user repository is empty")
				}
				return nil
			},
			"tokens": func() error {
				_, err := tokens.GenerateAccessToken("probe", "probe", "", time.Second)
				return err
			},
		},
	}, log)

	server := NewServer(ctx, cfg, log, tokens, service, Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Identity:  NewHandler(service, cfg.CookieSecure),
	})
	return server, service, nil
}

func newTokenService(cfg *config.Server) (*sec.TokenService, error) {
	if cfg.JWTPrivKeyPath == "" {
		return sec.NewEphemeralTokenService(constants.AuthIssuer)
	}
	return sec.NewTokenService(cfg.JWTPrivKeyPath, cfg.JWTPubKeyPath, constants.AuthIssuer)
}

// # Server Lifecycle

// Handler exposes the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("server_starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
