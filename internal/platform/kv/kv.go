// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package kv is the persistent local key/value store behind the session client.

The token mirror, the cached profile, the session marker and the cookie jar
are plain string entries. Absence of a key is always a valid state: a miss is
reported as ("", false, nil), never as an error.

Drivers:

  - memory: map guarded by a RWMutex (tests, throwaway runs).
  - sqlite: a single-file database (default for the CLI).
  - redis: shared store for several processes, keys namespaced.
  - postgres: shared store backed by a migrated client_kv table.
*/
package kv

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/taibuivan/clouds/internal/platform/config"
)

// Store is a string-keyed persistent map.
type Store interface {
	// Get returns the value for key. A missing key yields ok=false and a nil error.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set creates or replaces the value for key.
	Set(ctx context.Context, key, value string) error

	// Delete removes the given keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error

	// Close releases the underlying connections.
	Close() error
}

// Open builds the driver selected by cfg.StoreDriver.
//
// # Parameters
//   - ctx: Context for connection and migration work.
//   - cfg: Client configuration (driver, path, URLs).
//   - logger: Structured logger for connection events.
func Open(ctx context.Context, cfg *config.Client, logger *slog.Logger) (Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return NewMemory(), nil
	case config.DriverSQLite:
		return NewSQLite(ctx, cfg.StorePath)
	case config.DriverRedis:
		return NewRedis(ctx, cfg.RedisURL, logger)
	case config.DriverPostgres:
		return NewPostgres(ctx, cfg.DatabaseURL, cfg.MigrationPath, logger)
	default:
		return nil, fmt.Errorf("kv: unknown driver %q", cfg.StoreDriver)
	}
}
