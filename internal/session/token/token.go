// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package token holds the session credentials of the client.
//
// # Architecture
//
// The access token lives in process memory with an optional mirror in the
// persistent [kv.Store], so the next CLI invocation starts authenticated.
// The refresh token normally never reaches this package: it is an httpOnly
// cookie kept by the HTTP client's cookie jar. Backends that return it in the
// body get it held in memory only; it is never written to disk.
//
// The store never fails. A broken mirror is logged and the store keeps
// working from memory.
package token

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/taibuivan/clouds/internal/platform/constants"
	"github.com/taibuivan/clouds/internal/platform/kv"
	"github.com/taibuivan/clouds/internal/platform/sec"
)

// Store is the single owner of the session credentials. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	access  string
	refresh string

	// hydrated is set once the mirror has been read. writes counts Set and
	// Clear calls so a mirror read that raced one of them is discarded.
	hydrated bool
	writes   uint64

	kv     kv.Store
	mirror bool
	logger *slog.Logger
	now    func() time.Time
}

// NewStore creates a token store.
//
// # Parameters
//   - store: Persistent mirror (may be nil for memory-only operation).
//   - mirror: Whether the access token is written to store.
//   - logger: Structured logger for degraded-mirror warnings.
func NewStore(store kv.Store, mirror bool, logger *slog.Logger) *Store {
	return &Store{
		kv:     store,
		mirror: mirror && store != nil,
		logger: logger,
		now:    time.Now,
	}
}

// Get returns the access token, or "" when logged out.
// While memory is empty the mirror is read at most once; Set and Clear re-arm it.
func (s *Store) Get(ctx context.Context) string {
	s.mu.RLock()
	access, hydrated, writes := s.access, s.hydrated, s.writes
	s.mu.RUnlock()

	if access != "" || !s.mirror || hydrated {
		return access
	}

	value, ok, err := s.kv.Get(ctx, constants.KeyAccessToken)
	if err != nil {
		s.warn(ctx, "token_hydrate_failed", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writes != writes {
		return s.access
	}
	s.hydrated = true
	if ok && err == nil {
		s.access = value
	}
	return s.access
}

// Set installs new credentials. An empty value clears that slot.
func (s *Store) Set(ctx context.Context, access, refresh string) {
	s.mu.Lock()
	s.access = access
	s.refresh = refresh
	s.hydrated = false
	s.writes++
	s.mu.Unlock()

	if !s.mirror {
		return
	}

	var err error
	if access == "" {
		err = s.kv.Delete(ctx, constants.KeyAccessToken)
	} else {
		err = s.kv.Set(ctx, constants.KeyAccessToken, access)
	}
	if err != nil {
		s.warn(ctx, "token_mirror_write_failed", err)
	}
}

// Clear removes both tokens from memory and the mirror.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	s.access = ""
	s.refresh = ""
	s.hydrated = false
	s.writes++
	s.mu.Unlock()

	if !s.mirror {
		return
	}

	if err := s.kv.Delete(ctx, constants.KeyAccessToken); err != nil {
		s.warn(ctx, "token_mirror_clear_failed", err)
	}
}

// Refresh returns the body-transported refresh token, or "" when the
// backend uses the cookie.
func (s *Store) Refresh() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refresh
}

// ExpiresWithin reports whether the in-memory access token is a JWT whose exp
// claim falls within d from now. Opaque tokens and missing tokens report false.
func (s *Store) ExpiresWithin(d time.Duration) bool {
	s.mu.RLock()
	access := s.access
	s.mu.RUnlock()

	if access == "" {
		return false
	}

	expiresAt, ok := sec.ExpiresAt(access)
	if !ok {
		return false
	}
	return !s.now().Add(d).Before(expiresAt)
}

// Live reports whether an access token is held in memory and, when it is a
// JWT, has not reached its exp claim yet.
func (s *Store) Live() bool {
	s.mu.RLock()
	access := s.access
	s.mu.RUnlock()

	if access == "" {
		return false
	}
	expiresAt, ok := sec.ExpiresAt(access)
	return !ok || s.now().Before(expiresAt)
}

func (s *Store) warn(ctx context.Context, event string, err error) {
	s.logger.WarnContext(ctx, event, slog.Any("error", err))
}
