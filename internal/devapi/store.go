// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package devapi

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/taibuivan/clouds/internal/platform/apperr"
)

// # User Data Access

// UserRepository defines the data access contract for user accounts.
type UserRepository interface {

	/*
		Create persists a brand-new user account.

		Returns:
		  - error: apperr.Conflict when the email or username is taken
	*/
	Create(ctx context.Context, user *User) error

	/*
		FindByID returns the account with the given ID.

		Returns:
		  - *User: A copy of the stored entity
		  - error: apperr.NotFound when absent
	*/
	FindByID(ctx context.Context, id string) (*User, error)

	/*
		FindByEmail returns the account with the given (normalized) email.

		Returns:
		  - *User: A copy of the stored entity
		  - error: apperr.NotFound when absent
	*/
	FindByEmail(ctx context.Context, email string) (*User, error)

	// Update persists changes to mutable profile fields.
	Update(ctx context.Context, user *User) error

	// Count returns the number of accounts.
	Count(ctx context.Context) int
}

// # Session Data Access

// SessionRepository defines the data access contract for refresh-token sessions.
type SessionRepository interface {

	// Create persists a new session for a login.
	Create(ctx context.Context, session *Session) error

	/*
		FindByTokenHash returns the active session holding the given token hash.

		Returns:
		  - *Session: A copy of the stored entity
		  - error: apperr.NotFound when absent, revoked or expired
	*/
	FindByTokenHash(ctx context.Context, tokenHash string) (*Session, error)

	// FindByID returns the session with the given ID, active or not.
	FindByID(ctx context.Context, id string) (*Session, error)

	// Rotate replaces the token hash of an active session and marks it used.
	Rotate(ctx context.Context, sessionID, newTokenHash string, expiresAt time.Time) error

	// Revoke marks a specific session as permanently invalidated.
	Revoke(ctx context.Context, sessionID string) error

	// RevokeOthers revokes all sessions of userID except currentSessionID.
	RevokeOthers(ctx context.Context, userID, currentSessionID string) error

	// ListActive returns the user's active sessions, most recently used first.
	ListActive(ctx context.Context, userID string) ([]*Session, error)

	// IsActive reports whether the session exists and is neither revoked nor expired.
	IsActive(sessionID string) bool
}

// # In-Memory Users

// MemoryUserRepository implements [UserRepository] with maps.
type MemoryUserRepository struct {
	mu      sync.RWMutex
	byID    map[string]*User
	byEmail map[string]string
	byName  map[string]string
}

// NewMemoryUserRepository creates an empty repository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:    make(map[string]*User),
		byEmail: make(map[string]string),
		byName:  make(map[string]string),
	}
}

func (repository *MemoryUserRepository) Create(_ context.Context, user *User) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if _, taken := repository.byEmail[user.Email]; taken {
		return apperr.Conflict("Email is already registered")
	}
	nameKey := strings.ToLower(user.Username)
	if _, taken := repository.byName[nameKey]; taken {
		return apperr.Conflict("Username is already taken")
	}

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	stored := *user
	repository.byID[user.ID] = &stored
	repository.byEmail[user.Email] = user.ID
	repository.byName[nameKey] = user.ID
	return nil
}

func (repository *MemoryUserRepository) FindByID(_ context.Context, id string) (*User, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	user, found := repository.byID[id]
	if !found {
		return nil, apperr.NotFound("User")
	}
	clone := *user
	return &clone, nil
}

func (repository *MemoryUserRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	repository.mu.RLock()
	id, found := repository.byEmail[email]
	repository.mu.RUnlock()

	if !found {
		return nil, apperr.NotFound("User")
	}
	return repository.FindByID(ctx, id)
}

func (repository *MemoryUserRepository) Update(_ context.Context, user *User) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if _, found := repository.byID[user.ID]; !found {
		return apperr.NotFound("User")
	}
	user.UpdatedAt = time.Now()
	stored := *user
	repository.byID[user.ID] = &stored
	return nil
}

func (repository *MemoryUserRepository) Count(_ context.Context) int {
	repository.mu.RLock()
	defer repository.mu.RUnlock()
	return len(repository.byID)
}

// # In-Memory Sessions

// MemorySessionRepository implements [SessionRepository] with maps.
type MemorySessionRepository struct {
	mu      sync.RWMutex
	byID    map[string]*Session
	byToken map[string]string
	now     func() time.Time
}

// NewMemorySessionRepository creates an empty repository.
func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{
		byID:    make(map[string]*Session),
		byToken: make(map[string]string),
		now:     time.Now,
	}
}

func (repository *MemorySessionRepository) Create(_ context.Context, session *Session) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	now := repository.now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.LastActiveAt = now

	stored := *session
	repository.byID[session.ID] = &stored
	repository.byToken[session.TokenHash] = session.ID
	return nil
}

func (repository *MemorySessionRepository) FindByTokenHash(_ context.Context, tokenHash string) (*Session, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	id, found := repository.byToken[tokenHash]
	if !found {
		return nil, apperr.NotFound("Session")
	}
	session := repository.byID[id]
	if !session.Active(repository.now()) {
		return nil, apperr.NotFound("Session")
	}
	clone := *session
	return &clone, nil
}

func (repository *MemorySessionRepository) FindByID(_ context.Context, id string) (*Session, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	session, found := repository.byID[id]
	if !found {
		return nil, apperr.NotFound("Session")
	}
	clone := *session
	return &clone, nil
}

func (repository *MemorySessionRepository) Rotate(_ context.Context, sessionID, newTokenHash string, expiresAt time.Time) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	session, found := repository.byID[sessionID]
	if !found || !session.Active(repository.now()) {
		return apperr.NotFound("Session")
	}

	// The previous token stops resolving immediately.
	delete(repository.byToken, session.TokenHash)
	session.TokenHash = newTokenHash
	session.ExpiresAt = expiresAt
	session.LastActiveAt = repository.now()
	repository.byToken[newTokenHash] = sessionID
	return nil
}

func (repository *MemorySessionRepository) Revoke(_ context.Context, sessionID string) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	session, found := repository.byID[sessionID]
	if !found {
		return apperr.NotFound("Session")
	}
	session.IsRevoked = true
	delete(repository.byToken, session.TokenHash)
	return nil
}

func (repository *MemorySessionRepository) RevokeOthers(_ context.Context, userID, currentSessionID string) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	for id, session := range repository.byID {
		if session.UserID != userID || id == currentSessionID {
			continue
		}
		session.IsRevoked = true
		delete(repository.byToken, session.TokenHash)
	}
	return nil
}

func (repository *MemorySessionRepository) ListActive(_ context.Context, userID string) ([]*Session, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	now := repository.now()
	sessions := make([]*Session, 0)
	for _, session := range repository.byID {
		if session.UserID == userID && session.Active(now) {
			clone := *session
			sessions = append(sessions, &clone)
		}
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].LastActiveAt.After(sessions[j].LastActiveAt)
	})
	return sessions, nil
}

func (repository *MemorySessionRepository) IsActive(sessionID string) bool {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	session, found := repository.byID[sessionID]
	return found && session.Active(repository.now())
}
