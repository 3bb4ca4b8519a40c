// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package profile caches the authenticated user's profile between commands.

The cache is one JSON blob under the user_cache key:

	{"user": {...}, "cachedAt": <unix ms>, "ttl": <ms>}

An entry is fresh while now - cachedAt <= ttl. [Cache.Get] evicts stale and
corrupt entries; [Cache.Lookup] returns whatever is stored so a caller can
still fall back to a stale profile when the network is down.

The cache never returns errors. Storage failures are logged and read as a miss.
*/
package profile

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/taibuivan/clouds/internal/platform/constants"
	"github.com/taibuivan/clouds/internal/platform/kv"
)

// Entry is the serialized cache record.
type Entry struct {
	User     User  `json:"user"`
	CachedAt int64 `json:"cachedAt"`
	TTL      int64 `json:"ttl"`
}

// CachedTime returns CachedAt as a time.
func (e Entry) CachedTime() time.Time {
	return time.UnixMilli(e.CachedAt)
}

// TTLDuration returns TTL as a duration.
func (e Entry) TTLDuration() time.Duration {
	return time.Duration(e.TTL) * time.Millisecond
}

// Age returns how long ago the entry was written.
func (e Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.CachedTime())
}

// Fresh reports whether now - cachedAt <= ttl.
func (e Entry) Fresh(now time.Time) bool {
	return e.Age(now) <= e.TTLDuration()
}

// Option configures a [Cache].
type Option func(*Cache)

// WithClock replaces time.Now, for tests that need to age entries.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// Cache is the profile cache. It is safe for concurrent use.
type Cache struct {
	// mu serializes read-modify-write sequences (Update, RefreshTTL, Get eviction).
	mu sync.Mutex

	kv         kv.Store
	defaultTTL time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

// NewCache creates a cache over store. A non-positive defaultTTL selects 5 minutes.
func NewCache(store kv.Store, defaultTTL time.Duration, logger *slog.Logger, opts ...Option) *Cache {
	if defaultTTL <= 0 {
		defaultTTL = constants.DefaultProfileTTL
	}

	cache := &Cache{
		kv:         store,
		defaultTTL: defaultTTL,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(cache)
	}
	return cache
}

// Now returns the cache's clock reading.
func (c *Cache) Now() time.Time {
	return c.now()
}

// # Writes

// Set stores user with cachedAt = now. A non-positive ttl selects the default.
func (c *Cache) Set(ctx context.Context, user User, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.set(ctx, user, ttl)
}

// Update replaces the cached user but keeps cachedAt and ttl, so the
// freshness window does not move. Without an entry it behaves like Set.
func (c *Cache) Update(ctx context.Context, user User) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.read(ctx)
	if !ok {
		c.set(ctx, user, 0)
		return
	}

	entry.User = user
	c.write(ctx, entry)
}

// RefreshTTL re-stamps a fresh entry with cachedAt = now and the given ttl.
// Stale or missing entries are left alone.
func (c *Cache) RefreshTTL(ctx context.Context, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.read(ctx)
	if !ok || !entry.Fresh(c.now()) {
		return
	}
	c.set(ctx, entry.User, ttl)
}

// Clear evicts the entry unconditionally.
func (c *Cache) Clear(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.evict(ctx)
}

// # Reads

// Get returns the cached user while fresh. Stale and corrupt entries are
// evicted and reported as a miss.
func (c *Cache) Get(ctx context.Context) (User, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.read(ctx)
	if !ok {
		return User{}, false
	}
	if !entry.Fresh(c.now()) {
		c.evict(ctx)
		return User{}, false
	}
	return entry.User, true
}

// Lookup returns the stored entry without a freshness check or eviction.
func (c *Cache) Lookup(ctx context.Context) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.read(ctx)
}

// IsExpired reports whether there is no fresh entry. It never evicts.
func (c *Cache) IsExpired(ctx context.Context) bool {
	entry, ok := c.Lookup(ctx)
	return !ok || !entry.Fresh(c.now())
}

// Age returns how old the stored entry is.
func (c *Cache) Age(ctx context.Context) (time.Duration, bool) {
	entry, ok := c.Lookup(ctx)
	if !ok {
		return 0, false
	}
	return entry.Age(c.now()), true
}

// TTL returns the ttl recorded with the stored entry.
func (c *Cache) TTL(ctx context.Context) (time.Duration, bool) {
	entry, ok := c.Lookup(ctx)
	if !ok {
		return 0, false
	}
	return entry.TTLDuration(), true
}

// # Storage Helpers

// read loads and decodes the entry. A corrupt entry is evicted. Callers hold mu.
func (c *Cache) read(ctx context.Context) (Entry, bool) {
	raw, ok, err := c.kv.Get(ctx, constants.KeyUserCache)
	if err != nil {
		c.logger.WarnContext(ctx, "profile_cache_read_failed", slog.Any("error", err))
		return Entry{}, false
	}
	if !ok {
		return Entry{}, false
	}

	var entry Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil || entry.User.ID == "" {
		c.logger.WarnContext(ctx, "profile_cache_corrupt_evicted", slog.Any("error", err))
		c.evict(ctx)
		return Entry{}, false
	}
	return entry, true
}

func (c *Cache) set(ctx context.Context, user User, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.write(ctx, Entry{
		User:     user,
		CachedAt: c.now().UnixMilli(),
		TTL:      ttl.Milliseconds(),
	})
}

func (c *Cache) write(ctx context.Context, entry Entry) {
	raw, err := json.Marshal(entry)
	if err != nil {
		c.logger.WarnContext(ctx, "profile_cache_encode_failed", slog.Any("error", err))
		return
	}
	if err := c.kv.Set(ctx, constants.KeyUserCache, string(raw)); err != nil {
		c.logger.WarnContext(ctx, "profile_cache_write_failed", slog.Any("error", err))
	}
}

func (c *Cache) evict(ctx context.Context) {
	if err := c.kv.Delete(ctx, constants.KeyUserCache); err != nil {
		c.logger.WarnContext(ctx, "profile_cache_evict_failed", slog.Any("error", err))
	}
}
