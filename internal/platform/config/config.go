// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into strongly-typed
Go structs, providing early validation and default values. There are two
schemas: [Client] for the session client and CLI, and [Server] for the
reference API.

Usage:

	cfg, err := config.LoadClient()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (stores, client) via constructors.
  - Zero Hidden State: No global variables are used to store config.
*/
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// # Store Drivers

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// # Client Schema

// Client holds all runtime configuration for the session client and the CLI.
type Client struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Debug       bool   `env:"DEBUG"       envDefault:"false"`

	// LogFile, when set, sends structured logs to a rotating file instead of stderr.
	LogFile      string `env:"LOG_FILE"`
	LogMaxSizeMB int    `env:"LOG_MAX_SIZE_MB" envDefault:"10"`

	// Remote API
	APIBaseURL     string        `env:"API_BASE_URL"     envDefault:"http://localhost:8080/api"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"  envDefault:"30s"`
	RefreshTimeout time.Duration `env:"REFRESH_TIMEOUT"  envDefault:"10s"`
	RefreshLead    time.Duration `env:"REFRESH_LEAD"     envDefault:"30s"`
	RateLimitRPS   float64       `env:"RATE_LIMIT_RPS"   envDefault:"20"`
	RateLimitBurst int           `env:"RATE_LIMIT_BURST" envDefault:"40"`

	// Persistent local store
	StoreDriver   string `env:"STORE_DRIVER"   envDefault:"sqlite"`
	StorePath     string `env:"STORE_PATH"     envDefault:"./data/clouds.db"`
	RedisURL      string `env:"REDIS_URL"`
	DatabaseURL   string `env:"DATABASE_URL"`
	MigrationPath string `env:"MIGRATION_PATH"`

	// Session lifecycle
	ProfileTTL        time.Duration `env:"PROFILE_CACHE_TTL"   envDefault:"5m"`
	RefreshAheadRatio float64       `env:"REFRESH_AHEAD_RATIO" envDefault:"0.8"`
	MirrorAccessToken bool          `env:"MIRROR_ACCESS_TOKEN" envDefault:"true"`
}

// LoadClient parses environment variables into a [Client] struct.
func LoadClient() (*Client, error) {
	cfg := &Client{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate enforces cross-field rules that struct tags cannot express.
func (c *Client) validate() error {
	switch c.StoreDriver {
	case DriverMemory, DriverSQLite:
	case DriverRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("config: REDIS_URL is required when STORE_DRIVER=redis")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}

	if c.RefreshAheadRatio <= 0 || c.RefreshAheadRatio > 1 {
		return fmt.Errorf("config: REFRESH_AHEAD_RATIO must be in (0, 1], got %v", c.RefreshAheadRatio)
	}

	return nil
}

// IsDevelopment reports whether the client runs in development mode.
func (c *Client) IsDevelopment() bool {
	return c.Environment == "development"
}

// # Server Schema

// Server holds all runtime configuration for the reference API.
type Server struct {
	ServerPort  string `env:"SERVER_PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Debug       bool   `env:"DEBUG"       envDefault:"false"`

	// Optional RSA key files; an ephemeral key pair is generated when empty.
	JWTPrivKeyPath string `env:"JWT_PRIVATE_KEY_PATH"`
	JWTPubKeyPath  string `env:"JWT_PUBLIC_KEY_PATH"`

	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL"  envDefault:"15m"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"720h"`

	// CookieSecure marks the refresh cookie Secure. Plain-HTTP development needs false.
	CookieSecure bool `env:"COOKIE_SECURE" envDefault:"false"`

	// SeedDemoUser creates demo@clouds.app / password at startup.
	SeedDemoUser bool `env:"SEED_DEMO_USER" envDefault:"true"`

	// BcryptCost of 0 uses the library default.
	BcryptCost int `env:"BCRYPT_COST" envDefault:"0"`

	// Inbound rate limiting per client IP.
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS"   envDefault:"100"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"150"`

	// Cross-Origin Resource Sharing
	ExtraOrigins []string `env:"EXTRA_ORIGINS" envSeparator:","`
}

// LoadServer parses environment variables into a [Server] struct.
func LoadServer() (*Server, error) {
	cfg := &Server{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if (cfg.JWTPrivKeyPath == "") != (cfg.JWTPubKeyPath == "") {
		return nil, fmt.Errorf("config: JWT_PRIVATE_KEY_PATH and JWT_PUBLIC_KEY_PATH must be set together")
	}

	return cfg, nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Server) IsDevelopment() bool {
	return c.Environment == "development"
}
