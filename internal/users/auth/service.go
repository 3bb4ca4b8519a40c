// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/taibuivan/clouds/internal/client"
	"github.com/taibuivan/clouds/internal/platform/apperr"
	"github.com/taibuivan/clouds/internal/platform/constants"
	"github.com/taibuivan/clouds/internal/platform/kv"
	"github.com/taibuivan/clouds/internal/platform/sec"
	"github.com/taibuivan/clouds/internal/platform/validate"
	"github.com/taibuivan/clouds/internal/session/profile"
	"github.com/taibuivan/clouds/internal/session/token"
	"github.com/taibuivan/clouds/pkg/pointer"
)

// # Contracts & Types

// Result is the outcome of a successful login or registration.
type Result struct {
	// User is the identity returned with the tokens. It may lack the extended profile.
	User        profile.User
	AccessToken string
	SessionID   string
}

// RegisterInput holds the data required to enroll a new member.
type RegisterInput struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
}

// ProfileUpdate is a partial profile change. Nil fields are left untouched.
type ProfileUpdate struct {
	DisplayName *string
	Bio         *string
	Avatar      *string
	Cover       *string
	Birthday    *string
	PhoneNumber *string
	Address     *string
}

// CurrentUser is the resolved authenticated user.
//
// Complete is false when the extended profile could not be fetched and User
// holds the basic identity only.
type CurrentUser struct {
	User     profile.User
	Complete bool
}

// Service implements the identity use cases of the client.
type Service struct {
	client *client.Client
	tokens *token.Store
	cache  *profile.Cache
	kv     kv.Store
	logger *slog.Logger
}

// NewService constructs a [Service].
//
// # Parameters
//   - httpClient: Authenticated client; its token store owns the credentials.
//   - cache: Profile cache cleared on logout and updated after profile edits.
//   - store: Persistent store holding the current session marker.
//   - logger: Structured logger.
func NewService(httpClient *client.Client, cache *profile.Cache, store kv.Store, logger *slog.Logger) *Service {
	return &Service{
		client: httpClient,
		tokens: httpClient.Tokens(),
		cache:  cache,
		kv:     store,
		logger: logger,
	}
}

// # Authentication Flow

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name,omitempty"`
}

/*
Login authenticates with email and password and installs the returned tokens.

Parameters:
  - ctx: context.Context
  - email: Normalized (NFKC, case-folded) before it is sent.
  - password: string

Returns:
  - *Result: User, access token and session identifier
  - error: VALIDATION_ERROR (checked locally first), INVALID_CREDENTIALS, NETWORK_ERROR
*/
func (service *Service) Login(ctx context.Context, email, password string) (*Result, error) {
	email = validate.NormalizeEmail(email)

	validator := &validate.Validator{}
	validator.Required(FieldEmail, email).
		Email(FieldEmail, email).
		Required(FieldPassword, password).
		MinLen(FieldPassword, password, validate.PasswordMinLen)

	if err := validator.Err(); err != nil {
		return nil, err
	}

	body, err := service.client.Do(ctx, constants.PathLogin, client.Options{
		Method:   http.MethodPost,
		Body:     loginRequest{Email: email, Password: password},
		SkipAuth: true,
	})
	if err != nil {
		if ae := apperr.As(err); ae != nil && ae.HTTPStatus == http.StatusUnauthorized {
			return nil, apperr.InvalidCredentials(ae.Message)
		}
		return nil, err
	}

	return service.establish(ctx, body)
}

/*
Register creates an account and signs it in.

Parameters:
  - ctx: context.Context
  - input: RegisterInput

Returns:
  - *Result: User, access token and session identifier
  - error: VALIDATION_ERROR (local or server-side), NETWORK_ERROR
*/
func (service *Service) Register(ctx context.Context, input RegisterInput) (*Result, error) {
	input.Email = validate.NormalizeEmail(input.Email)
	input.Username = validate.NormalizeText(input.Username)
	input.DisplayName = validate.NormalizeText(input.DisplayName)

	validator := &validate.Validator{}
	validator.Username(FieldUsername, input.Username).
		Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, validate.PasswordMinLen).
		MaxLen(FieldPassword, input.Password, validate.PasswordMaxLen).
		MaxLen(FieldDisplayName, input.DisplayName, validate.DisplayNameMaxLen)

	if err := validator.Err(); err != nil {
		return nil, err
	}

	body, err := service.client.Do(ctx, constants.PathRegister, client.Options{
		Method: http.MethodPost,
		Body: registerRequest{
			Username:    input.Username,
			Email:       input.Email,
			Password:    input.Password,
			DisplayName: input.DisplayName,
		},
		SkipAuth: true,
	})
	if err != nil {
		return nil, asValidation(err)
	}

	return service.establish(ctx, body)
}

// establish installs the tokens of an auth response and records the session.
func (service *Service) establish(ctx context.Context, body []byte) (*Result, error) {
	access, refresh := client.ExtractTokens(body)
	if access == "" {
		return nil, apperr.Internal(errors.New("auth: response carried no access token"))
	}
	service.tokens.Set(ctx, access, refresh)

	sessionID := sessionIDFrom(body)
	if sessionID == "" {
		sessionID = sec.SessionIDOf(access)
	}
	if sessionID != "" {
		if err := service.kv.Set(ctx, constants.KeySessionID, sessionID); err != nil {
			service.logger.WarnContext(ctx, "session_marker_write_failed", slog.Any("error", err))
		}
	}

	user, ok := decodeUser(body)
	if !ok {
		// Some backends return tokens only; the identity endpoint fills the gap.
		identity, err := service.fetchIdentity(ctx)
		if err != nil {
			return nil, err
		}
		user = identity
	}

	return &Result{
		User:        user.WithDefaults(),
		AccessToken: access,
		SessionID:   sessionID,
	}, nil
}

// RefreshAccessToken runs the coalesced refresh. On failure the tokens are cleared.
func (service *Service) RefreshAccessToken(ctx context.Context) bool {
	if err := service.client.Refresh(ctx); err != nil {
		service.logger.DebugContext(ctx, "token_refresh_rejected", slog.Any("error", err))
		return false
	}
	return true
}

/*
Logout ends the session. It never fails.

Description: The server-side revoke is best-effort; its errors are logged and
swallowed. Credentials, cookies, the profile cache and the session marker are
always cleared.
*/
func (service *Service) Logout(ctx context.Context) {
	// An expired bearer would be rejected before the revoke runs, so the
	// refresh cookie alone identifies the session then.
	skipBearer := service.tokens.Get(ctx) == "" || service.tokens.ExpiresWithin(0)

	_, err := service.client.Do(ctx, constants.PathRevoke, client.Options{
		Method:   http.MethodPost,
		SkipAuth: skipBearer,
		NoRetry:  true,
	})
	if err != nil {
		service.logger.WarnContext(ctx, "session_revoke_failed", slog.Any("error", err))
	}

	service.client.ClearSession(ctx)
	service.cache.Clear(ctx)

	if err := service.kv.Delete(ctx, constants.KeySessionID); err != nil {
		service.logger.WarnContext(ctx, "session_marker_clear_failed", slog.Any("error", err))
	}
}

// IsAuthenticated reports whether an access token is held.
func (service *Service) IsAuthenticated(ctx context.Context) bool {
	return service.tokens.Get(ctx) != ""
}

// # Current User

/*
GetCurrentUser resolves the authenticated user from the network.

Description: Refreshes first when no access token is held. The basic identity
is required; the extended profile is optional and its failure only clears
the Complete flag.

Returns:
  - CurrentUser: Merged profile and completeness flag
  - error: UNAUTHORIZED, SESSION_EXPIRED or connectivity failures
*/
func (service *Service) GetCurrentUser(ctx context.Context) (CurrentUser, error) {
	if !service.IsAuthenticated(ctx) && !service.RefreshAccessToken(ctx) {
		return CurrentUser{}, apperr.Unauthorized("Not authenticated")
	}

	basic, err := service.fetchIdentity(ctx)
	if err != nil {
		return CurrentUser{}, err
	}

	extended, err := service.fetchExtended(ctx)
	if err != nil {
		service.logger.WarnContext(ctx, "extended_profile_unavailable", slog.Any("error", err))
		return CurrentUser{User: basic.WithDefaults(), Complete: false}, nil
	}

	return CurrentUser{User: mergeProfile(basic, extended), Complete: true}, nil
}

func (service *Service) fetchIdentity(ctx context.Context) (profile.User, error) {
	body, err := service.client.Do(ctx, constants.PathAuthMe, client.Options{})
	if err != nil {
		return profile.User{}, err
	}
	user, ok := decodeUser(body)
	if !ok {
		return profile.User{}, apperr.Internal(fmt.Errorf("auth: %s returned no user", constants.PathAuthMe))
	}
	return user, nil
}

func (service *Service) fetchExtended(ctx context.Context) (profile.User, error) {
	body, err := service.client.Do(ctx, constants.PathUserMe, client.Options{})
	if err != nil {
		return profile.User{}, err
	}
	user, ok := decodeUser(body)
	if !ok {
		return profile.User{}, fmt.Errorf("auth: %s returned no user", constants.PathUserMe)
	}
	return user, nil
}

// # Profile Updates

/*
UpdateProfile sends a partial update and returns the complete profile.

Description: Only non-nil fields are sent. The response (the extended profile)
is merged with a fresh basic identity so unchanged fields are reported too.
The cached profile is updated in place, keeping its freshness window.

Returns:
  - profile.User: Complete profile after the change
  - error: VALIDATION_ERROR, UNAUTHORIZED, SESSION_EXPIRED or connectivity failures
*/
func (service *Service) UpdateProfile(ctx context.Context, update ProfileUpdate) (profile.User, error) {
	changes, err := update.payload()
	if err != nil {
		return profile.User{}, err
	}

	body, err := service.client.Do(ctx, constants.PathUserMe, client.Options{
		Method: http.MethodPatch,
		Body:   changes,
	})
	if err != nil {
		return profile.User{}, asValidation(err)
	}

	var user profile.User
	extended, ok := decodeUser(body)
	if ok {
		basic, err := service.fetchIdentity(ctx)
		if err != nil {
			return profile.User{}, err
		}
		user = mergeProfile(basic, extended)
	} else {
		current, err := service.GetCurrentUser(ctx)
		if err != nil {
			return profile.User{}, err
		}
		user = current.User
	}

	service.cache.Update(ctx, user)
	return user, nil
}

// payload validates the update and returns the fields to send.
func (update ProfileUpdate) payload() (map[string]string, error) {
	changes := make(map[string]string)
	set := func(field string, value *string) {
		if value != nil {
			changes[field] = validate.NormalizeText(*value)
		}
	}
	set(FieldDisplayName, update.DisplayName)
	set(FieldBio, update.Bio)
	set(FieldAvatar, update.Avatar)
	set(FieldCover, update.Cover)
	set(FieldBirthday, update.Birthday)
	set(FieldPhoneNumber, update.PhoneNumber)
	set(FieldAddress, update.Address)

	validator := &validate.Validator{}
	if update.DisplayName != nil {
		validator.Required(FieldDisplayName, changes[FieldDisplayName]).
			MaxLen(FieldDisplayName, changes[FieldDisplayName], validate.DisplayNameMaxLen)
	}
	validator.MaxLen(FieldBio, pointer.Val(update.Bio), validate.BioMaxLen).
		URL(FieldAvatar, changes[FieldAvatar]).
		URL(FieldCover, changes[FieldCover]).
		Custom("profile", len(changes) == 0, "No changes to apply")

	if err := validator.Err(); err != nil {
		return nil, err
	}
	return changes, nil
}

// asValidation reports a client-side rejection (4xx other than auth and
// rate limiting) as VALIDATION_ERROR, keeping the server message and details.
func asValidation(err error) error {
	ae := apperr.As(err)
	if ae == nil || ae.Code == apperr.CodeValidation {
		return err
	}

	switch {
	case ae.HTTPStatus == http.StatusUnauthorized,
		ae.HTTPStatus == http.StatusTooManyRequests,
		ae.HTTPStatus < http.StatusBadRequest,
		ae.HTTPStatus >= http.StatusInternalServerError:
		return err
	}

	validation := apperr.ValidationError(ae.Message, ae.Details...)
	validation.HTTPStatus = ae.HTTPStatus
	validation.Cause = ae
	return validation
}
