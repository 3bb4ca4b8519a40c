// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package state holds the process-wide authentication state.

It sits between a user interface and the identity service: every action
(login, register, logout, checkAuth) runs through the [Store], which decides
when the profile cache can answer and when the network must.

# Architecture

  - State: Snapshot of user, authenticated flag, loading flag and last error.
  - Subscribers: Notified synchronously with a copy after every change.
  - Background refresh: A fresh cache entry past the refresh-ahead ratio of its
    TTL is refetched in one goroutine at a time. [Store.Wait] joins it.

The Store never returns an error. Failures end up in [State.Error] or in a
flagged fallback on [Resolution].
*/
package state

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/taibuivan/clouds/internal/platform/apperr"
	"github.com/taibuivan/clouds/internal/session/profile"
	"github.com/taibuivan/clouds/internal/users/auth"
)

// # Contracts

// Identity is the slice of the auth service the store drives.
type Identity interface {
	Login(ctx context.Context, email, password string) (*auth.Result, error)
	Register(ctx context.Context, input auth.RegisterInput) (*auth.Result, error)
	Logout(ctx context.Context)
	GetCurrentUser(ctx context.Context) (auth.CurrentUser, error)
	IsAuthenticated(ctx context.Context) bool
}

// State is the authentication state seen by the interface.
//
// IsAuthenticated implies User is set or a token is held while the profile
// is still being resolved.
type State struct {
	User            *profile.User
	IsAuthenticated bool
	IsLoading       bool
	Error           string
}

// Source tells where [Store.CheckAuth] found the user.
type Source int

const (
	// SourceNone means no user: logged out or the session could not be resolved.
	SourceNone Source = iota
	// SourceCache means a fresh cached profile answered without a network call.
	SourceCache
	// SourceNetwork means the profile was fetched.
	SourceNetwork
	// SourceStaleCache means the fetch failed and an expired cached profile was used.
	SourceStaleCache
)

func (s Source) String() string {
	switch s {
	case SourceCache:
		return "cache"
	case SourceNetwork:
		return "network"
	case SourceStaleCache:
		return "stale_cache"
	default:
		return "none"
	}
}

// Resolution is the outcome of [Store.CheckAuth].
type Resolution struct {
	User   *profile.User
	Source Source
	// BackgroundRefresh is true when this call started a background refetch.
	BackgroundRefresh bool
}

// # Store

// Store owns the authentication state. It is safe for concurrent use.
type Store struct {
	identity     Identity
	cache        *profile.Cache
	refreshAhead float64
	logger       *slog.Logger

	mu          sync.Mutex
	state       State
	subscribers map[uint64]func(State)
	nextID      uint64

	// epoch changes on logout so a background result from an older session is dropped.
	epoch      uint64
	refreshing atomic.Bool
	background sync.WaitGroup
}

/*
New builds a store initialized from the token store and the profile cache.

Parameters:
  - ctx: context.Context
  - identity: Identity (usually *auth.Service)
  - cache: *profile.Cache
  - refreshAhead: Fraction of the TTL after which a fresh entry is refetched in the background.
  - logger: *slog.Logger

Returns:
  - *Store
*/
func New(ctx context.Context, identity Identity, cache *profile.Cache, refreshAhead float64, logger *slog.Logger) *Store {
	if refreshAhead <= 0 || refreshAhead > 1 {
		refreshAhead = 0.8
	}

	store := &Store{
		identity:     identity,
		cache:        cache,
		refreshAhead: refreshAhead,
		logger:       logger,
		subscribers:  make(map[uint64]func(State)),
	}

	if identity.IsAuthenticated(ctx) {
		store.state.IsAuthenticated = true
		if user, ok := cache.Get(ctx); ok {
			store.state.User = &user
		}
	}
	return store
}

// State returns a snapshot of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Subscribe registers fn for every state change and returns its unsubscribe func.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

// Wait blocks until no background refresh is running.
func (s *Store) Wait() {
	s.background.Wait()
}

// # Actions

/*
Login signs in and resolves the full profile.

Description: The user returned with the tokens is installed and cached at once.
Loading stays on while the full profile is fetched; when that fetch fails the
partial user is kept.

Returns:
  - bool: false when the sign-in failed; State.Error holds the message.
*/
func (s *Store) Login(ctx context.Context, email, password string) bool {
	s.startLoading()

	result, err := s.identity.Login(ctx, email, password)
	if err != nil {
		s.fail(ctx, "login_failed", err)
		return false
	}

	s.establish(ctx, result.User)
	return true
}

// Register creates an account and signs it in, like [Store.Login].
func (s *Store) Register(ctx context.Context, input auth.RegisterInput) bool {
	s.startLoading()

	result, err := s.identity.Register(ctx, input)
	if err != nil {
		s.fail(ctx, "register_failed", err)
		return false
	}

	s.establish(ctx, result.User)
	return true
}

// Logout always ends unauthenticated, whatever the network does.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	s.epoch++
	s.mu.Unlock()

	s.identity.Logout(ctx)
	s.cache.Clear(ctx)

	s.update(func(state *State) {
		*state = State{}
	})
}

/*
CheckAuth resolves the current user, preferring the cache.

Description:
  - No access token: the cache is cleared and nothing is returned.
  - Fresh cache: adopted without a loading state. Past the refresh-ahead
    share of its TTL, one background refetch starts.
  - Otherwise the profile is fetched. On a connectivity failure a stale
    cached profile is used if one exists; any other failure resets the state.

Returns:
  - Resolution: The user, where it came from and whether a refetch started.
*/
func (s *Store) CheckAuth(ctx context.Context) Resolution {
	if !s.identity.IsAuthenticated(ctx) {
		s.cache.Clear(ctx)
		s.update(func(state *State) {
			*state = State{Error: state.Error}
		})
		return Resolution{Source: SourceNone}
	}

	now := s.cache.Now()
	entry, cached := s.cache.Lookup(ctx)

	if cached && entry.Fresh(now) {
		user := entry.User
		s.update(func(state *State) {
			state.User = &user
			state.IsAuthenticated = true
			state.IsLoading = false
		})

		threshold := time.Duration(float64(entry.TTLDuration()) * s.refreshAhead)
		started := false
		if entry.Age(now) > threshold {
			started = s.refreshInBackground(ctx)
		}
		return Resolution{User: &user, Source: SourceCache, BackgroundRefresh: started}
	}

	s.update(func(state *State) {
		state.IsLoading = true
	})

	current, err := s.identity.GetCurrentUser(ctx)
	if err == nil {
		user := current.User
		s.cache.Set(ctx, user, 0)
		s.adopt(&user)
		return Resolution{User: &user, Source: SourceNetwork}
	}

	if cached && apperr.IsConnectivity(err) {
		s.logger.WarnContext(ctx, "profile_fetch_failed_using_stale_cache", slog.Any("error", err))
		user := entry.User
		s.adopt(&user)
		return Resolution{User: &user, Source: SourceStaleCache}
	}

	s.logger.InfoContext(ctx, "session_not_resolved", slog.Any("error", err))
	s.cache.Clear(ctx)
	s.update(func(state *State) {
		*state = State{}
	})
	return Resolution{Source: SourceNone}
}

// ClearError clears the error and nothing else.
func (s *Store) ClearError() {
	s.update(func(state *State) {
		state.Error = ""
	})
}

// # Internal Transitions

func (s *Store) startLoading() {
	s.update(func(state *State) {
		state.IsLoading = true
		state.Error = ""
	})
}

// establish installs the partial user and replaces it with the full profile when that resolves.
func (s *Store) establish(ctx context.Context, partial profile.User) {
	s.cache.Set(ctx, partial, 0)
	s.update(func(state *State) {
		state.User = &partial
		state.IsAuthenticated = true
		state.IsLoading = true
	})

	current, err := s.identity.GetCurrentUser(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "full_profile_unavailable", slog.Any("error", err))
		s.update(func(state *State) {
			state.IsLoading = false
		})
		return
	}

	user := current.User
	s.cache.Set(ctx, user, 0)
	s.adopt(&user)
}

func (s *Store) adopt(user *profile.User) {
	s.update(func(state *State) {
		state.User = user
		state.IsAuthenticated = true
		state.IsLoading = false
	})
}

func (s *Store) fail(ctx context.Context, event string, err error) {
	s.logger.InfoContext(ctx, event, slog.Any("error", err))
	message := errorMessage(err)
	s.update(func(state *State) {
		*state = State{Error: message}
	})
}

// refreshInBackground starts a refetch unless one is already running.
func (s *Store) refreshInBackground(ctx context.Context) bool {
	if !s.refreshing.CompareAndSwap(false, true) {
		return false
	}

	s.mu.Lock()
	epoch := s.epoch
	s.mu.Unlock()

	detached := context.WithoutCancel(ctx)
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		defer s.refreshing.Store(false)

		current, err := s.identity.GetCurrentUser(detached)
		if err != nil {
			s.logger.DebugContext(detached, "background_profile_refresh_failed", slog.Any("error", err))
			return
		}

		user := current.User
		s.mu.Lock()
		if s.epoch != epoch {
			s.mu.Unlock()
			return
		}
		s.cache.Set(detached, user, 0)
		s.state.User = &user
		s.notifyLocked()
	}()
	return true
}

// update applies fn and notifies subscribers outside the lock.
func (s *Store) update(fn func(*State)) {
	s.mu.Lock()
	fn(&s.state)
	s.notifyLocked()
}

// notifyLocked must be called with mu held; it releases mu.
func (s *Store) notifyLocked() {
	snapshot := s.snapshot()
	subscribers := make([]func(State), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subscribers = append(subscribers, fn)
	}
	s.mu.Unlock()

	for _, fn := range subscribers {
		s.deliver(fn, snapshot)
	}
}

func (s *Store) deliver(fn func(State), snapshot State) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("state_subscriber_panicked", slog.Any("panic", r))
		}
	}()
	fn(snapshot)
}

// snapshot copies the state so callers cannot reach the store's user. Callers hold mu.
func (s *Store) snapshot() State {
	snapshot := s.state
	if s.state.User != nil {
		user := *s.state.User
		snapshot.User = &user
	}
	return snapshot
}

// errorMessage turns a failure into the line shown to the user.
func errorMessage(err error) string {
	if ae := apperr.As(err); ae != nil && ae.Message != "" {
		return ae.Message
	}
	return "Something went wrong. Please try again."
}
