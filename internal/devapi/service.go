// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package devapi

import (
	"context"
	"fmt"
	"time"

	"github.com/taibuivan/clouds/internal/platform/apperr"
	"github.com/taibuivan/clouds/internal/platform/constants"
	"github.com/taibuivan/clouds/internal/platform/sec"
	"github.com/taibuivan/clouds/pkg/uuid"
)

// # Contracts & Types

// TokenProvider defines the contract for generating access tokens.
type TokenProvider interface {
	// GenerateAccessToken creates a signed JWT bound to a session.
	GenerateAccessToken(userID, username, sessionID string, timeToLive time.Duration) (string, error)
}

// Options tune the [Service].
type Options struct {
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	// BcryptCost of 0 uses the library default.
	BcryptCost int
}

// Service implements the server side of the identity use cases.
type Service struct {
	users    UserRepository
	sessions SessionRepository
	tokens   TokenProvider
	options  Options
}

// NewService constructs a [Service]. Zero TTLs take the platform defaults.
func NewService(users UserRepository, sessions SessionRepository, tokens TokenProvider, options Options) *Service {
	if options.AccessTokenTTL <= 0 {
		options.AccessTokenTTL = constants.AccessTokenTTL
	}
	if options.RefreshTokenTTL <= 0 {
		options.RefreshTokenTTL = constants.RefreshTokenTTL
	}
	return &Service{users: users, sessions: sessions, tokens: tokens, options: options}
}

// RegisterInput holds the data required to enroll a new member.
type RegisterInput struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
}

// Device identifies the client a session is opened from.
type Device struct {
	UserAgent string
	IPAddress string
}

// Issued is a freshly established or rotated session.
type Issued struct {
	AccessToken           string
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
	SessionID             string
	User                  *User
}

// # Registration Flow

/*
Register persists a new account and signs it in on the given device.

Returns:
  - *Issued: Tokens for the new session
  - err: Conflict (if identity exists) or internal failures
*/
func (service *Service) Register(ctx context.Context, input RegisterInput, device Device) (*Issued, error) {
	hashedPassword, err := sec.HashPassword(input.Password, service.options.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("devapi_service_hash_failed: %w", err)
	}

	displayName := input.DisplayName
	if displayName == "" {
		displayName = input.Username
	}

	user := &User{
		ID:           uuid.New(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hashedPassword,
		DisplayName:  displayName,
	}

	if err := service.users.Create(ctx, user); err != nil {
		return nil, err
	}

	return service.openSession(ctx, user, device)
}

// # Authentication Flow

/*
Login validates credentials and opens a session.

Description: Unknown email and wrong password produce the same message to
prevent account enumeration.
*/
func (service *Service) Login(ctx context.Context, email, password string, device Device) (*Issued, error) {
	user, err := service.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid email or password")
	}

	if !sec.CheckPasswordHash(password, user.PasswordHash) {
		return nil, apperr.Unauthorized("Invalid email or password")
	}

	return service.openSession(ctx, user, device)
}

func (service *Service) openSession(ctx context.Context, user *User, device Device) (*Issued, error) {
	refreshToken, err := sec.GenerateSecureToken(constants.RefreshTokenLength)
	if err != nil {
		return nil, fmt.Errorf("devapi_service_refresh_token_failed: %w", err)
	}

	expiresAt := time.Now().Add(service.options.RefreshTokenTTL)
	session := &Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: sec.HashToken(refreshToken),
		UserAgent: device.UserAgent,
		IPAddress: device.IPAddress,
		ExpiresAt: expiresAt,
	}

	if err := service.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("devapi_service_session_creation_failed: %w", err)
	}

	accessToken, err := service.tokens.GenerateAccessToken(user.ID, user.Username, session.ID, service.options.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("devapi_service_token_generation_failed: %w", err)
	}

	return &Issued{
		AccessToken:           accessToken,
		RefreshToken:          refreshToken,
		RefreshTokenExpiresAt: expiresAt,
		SessionID:             session.ID,
		User:                  user,
	}, nil
}

// # Session Management

/*
Refresh implements refresh token rotation.

Description: The presented token is replaced by a new one on the same session,
so a replayed token is rejected from then on.

Returns:
  - *Issued: New access token and rotated refresh token
  - err: Unauthorized when the token is unknown, rotated, revoked or expired
*/
func (service *Service) Refresh(ctx context.Context, refreshToken string) (*Issued, error) {
	session, err := service.sessions.FindByTokenHash(ctx, sec.HashToken(refreshToken))
	if err != nil {
		return nil, apperr.Unauthorized("Invalid or expired refresh token")
	}

	user, err := service.users.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, apperr.Unauthorized("User not found")
	}

	newRefreshToken, err := sec.GenerateSecureToken(constants.RefreshTokenLength)
	if err != nil {
		return nil, fmt.Errorf("devapi_service_refresh_secure_token_failed: %w", err)
	}

	expiresAt := time.Now().Add(service.options.RefreshTokenTTL)
	if err := service.sessions.Rotate(ctx, session.ID, sec.HashToken(newRefreshToken), expiresAt); err != nil {
		// Lost a race with a concurrent rotation or revocation.
		return nil, apperr.Unauthorized("Invalid or expired refresh token")
	}

	accessToken, err := service.tokens.GenerateAccessToken(user.ID, user.Username, session.ID, service.options.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("devapi_service_refresh_access_token_failed: %w", err)
	}

	return &Issued{
		AccessToken:           accessToken,
		RefreshToken:          newRefreshToken,
		RefreshTokenExpiresAt: expiresAt,
		SessionID:             session.ID,
		User:                  user,
	}, nil
}

/*
Revoke ends the session identified by the refresh token or, failing that, by
sessionID. Unknown sessions are ignored so logout stays idempotent.
*/
func (service *Service) Revoke(ctx context.Context, refreshToken, sessionID string) error {
	if refreshToken != "" {
		if session, err := service.sessions.FindByTokenHash(ctx, sec.HashToken(refreshToken)); err == nil {
			sessionID = session.ID
		}
	}
	if sessionID == "" {
		return nil
	}

	if err := service.sessions.Revoke(ctx, sessionID); err != nil && apperr.As(err) == nil {
		return fmt.Errorf("devapi_service_revoke_failed: %w", err)
	}
	return nil
}

// RevokeSession ends one of the user's own sessions.
func (service *Service) RevokeSession(ctx context.Context, userID, sessionID string) error {
	if !uuid.Valid(sessionID) {
		return apperr.NotFound("Session")
	}

	session, err := service.sessions.FindByID(ctx, sessionID)
	if err != nil || session.UserID != userID || session.IsRevoked {
		return apperr.NotFound("Session")
	}
	return service.sessions.Revoke(ctx, sessionID)
}

// RevokeOthers ends every session of the user except the current one.
func (service *Service) RevokeOthers(ctx context.Context, userID, currentSessionID string) error {
	return service.sessions.RevokeOthers(ctx, userID, currentSessionID)
}

// Sessions lists the user's active sessions.
func (service *Service) Sessions(ctx context.Context, userID string) ([]*Session, error) {
	return service.sessions.ListActive(ctx, userID)
}

// IsActive implements middleware.SessionChecker.
func (service *Service) IsActive(sessionID string) bool {
	return service.sessions.IsActive(sessionID)
}

// # Profile

// Profile returns the account of userID.
func (service *Service) Profile(ctx context.Context, userID string) (*User, error) {
	return service.users.FindByID(ctx, userID)
}

// ProfileChanges is a partial profile update. Nil fields are left untouched.
type ProfileChanges struct {
	DisplayName *string
	Avatar      *string
	Cover       *string
	Bio         *string
	Birthday    *string
	PhoneNumber *string
	Address     *string
}

// UpdateProfile applies changes to the account of userID.
func (service *Service) UpdateProfile(ctx context.Context, userID string, changes ProfileChanges) (*User, error) {
	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	apply := func(target *string, value *string) {
		if value != nil {
			*target = *value
		}
	}
	apply(&user.DisplayName, changes.DisplayName)
	apply(&user.Avatar, changes.Avatar)
	apply(&user.Cover, changes.Cover)
	apply(&user.Bio, changes.Bio)
	apply(&user.Birthday, changes.Birthday)
	apply(&user.PhoneNumber, changes.PhoneNumber)
	apply(&user.Address, changes.Address)

	if err := service.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("devapi_service_update_profile_failed: %w", err)
	}
	return user, nil
}

// # Seeding

// Demo account credentials seeded in development.
const (
	DemoEmail    = "demo@clouds.app"
	DemoPassword = "password"
	DemoUsername = "demo"
)

// SeedDemoUser creates the demo account unless it already exists.
func (service *Service) SeedDemoUser(ctx context.Context) error {
	if _, err := service.users.FindByEmail(ctx, DemoEmail); err == nil {
		return nil
	}

	hashedPassword, err := sec.HashPassword(DemoPassword, service.options.BcryptCost)
	if err != nil {
		return fmt.Errorf("devapi_seed_hash_failed: %w", err)
	}

	return service.users.Create(ctx, &User{
		ID:           uuid.New(),
		Username:     DemoUsername,
		Email:        DemoEmail,
		PasswordHash: hashedPassword,
		DisplayName:  "Demo User",
		Bio:          "Exploring the clouds.",
		FriendsCount: 42,
		PostsCount:   7,
	})
}
