// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package devapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/clouds/internal/platform/apperr"
	"github.com/taibuivan/clouds/internal/platform/constants"
	"github.com/taibuivan/clouds/internal/platform/ctxutil"
	"github.com/taibuivan/clouds/internal/platform/middleware"
	requestutil "github.com/taibuivan/clouds/internal/platform/request"
	"github.com/taibuivan/clouds/internal/platform/respond"
	"github.com/taibuivan/clouds/internal/platform/validate"
	"github.com/taibuivan/clouds/pkg/slice"
)

// # Definitions & Constructors

// Handler implements the identity endpoints of the contract.
type Handler struct {
	service      *Service
	cookieSecure bool
	accessTTL    time.Duration
}

// NewHandler constructs a [Handler]. cookieSecure marks the refresh cookie
// Secure, which plain-HTTP development must leave off.
func NewHandler(service *Service, cookieSecure bool) *Handler {
	return &Handler{
		service:      service,
		cookieSecure: cookieSecure,
		accessTTL:    service.options.AccessTokenTTL,
	}
}

// AuthRoutes returns the /auth routes.
//
// # Endpoints
//   - POST   /register           : Creates an account and signs it in.
//   - POST   /login              : Authenticates with email and password.
//   - POST   /refresh            : Rotates the refresh cookie, returns a new access token.
//   - POST   /revoke             : Ends the current session (cookie or bearer).
//   - GET    /me                 : Basic identity.
//   - GET    /sessions           : Active sessions of the caller.
//   - DELETE /sessions/{id}      : Ends one session.
//   - POST   /revoke-all         : Ends every other session.
func (handler *Handler) AuthRoutes() chi.Router {
	router := chi.NewRouter()

	router.Post("/register", handler.register)
	router.Post("/login", handler.login)
	router.Post("/refresh", handler.refresh)
	router.Post("/revoke", handler.revoke)

	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/me", handler.me)
		r.Get("/sessions", handler.listSessions)
		r.Delete("/sessions/{id}", handler.revokeSession)
		r.Post("/revoke-all", handler.revokeAll)
	})

	return router
}

// UserRoutes returns the /user routes.
func (handler *Handler) UserRoutes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth)
	router.Get("/me", handler.profile)
	router.Patch("/me", handler.updateProfile)
	return router
}

// # Request Payloads

type registerRequest struct {
	Username       string `json:"username"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	DisplayName    string `json:"display_name"`
	DisplayNameAlt string `json:"displayName"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type profileRequest struct {
	DisplayName *string `json:"displayName"`
	Avatar      *string `json:"avatar"`
	Cover       *string `json:"cover"`
	Bio         *string `json:"bio"`
	Birthday    *string `json:"birthday"`
	PhoneNumber *string `json:"phoneNumber"`
	Address     *string `json:"address"`
}

// # Authentication

/*
Register handles the creation of a new account.

POST /api/auth/register

Response:
  - 201: authView with the refresh cookie set
  - 400: Validation failure
  - 409: Username or email already exists
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if input.DisplayName == "" {
		input.DisplayName = input.DisplayNameAlt
	}
	input.Email = validate.NormalizeEmail(input.Email)
	input.Username = validate.NormalizeText(input.Username)
	input.DisplayName = validate.NormalizeText(input.DisplayName)

	validator := &validate.Validator{}
	validator.Username("username", input.Username).
		Required("email", input.Email).
		Email("email", input.Email).
		Required("password", input.Password).
		MinLen("password", input.Password, validate.PasswordMinLen).
		MaxLen("password", input.Password, validate.PasswordMaxLen).
		MaxLen("display_name", input.DisplayName, validate.DisplayNameMaxLen)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	issued, err := handler.service.Register(request.Context(), RegisterInput{
		Username:    input.Username,
		Email:       input.Email,
		Password:    input.Password,
		DisplayName: input.DisplayName,
	}, deviceOf(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setRefreshCookie(writer, issued)
	respond.Created(writer, handler.authView(issued))
}

/*
Login authenticates a user and establishes a session.

POST /api/auth/login

Response:
  - 200: authView with the refresh cookie set
  - 401: Invalid credentials
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required("email", input.Email).Required("password", input.Password)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	issued, err := handler.service.Login(request.Context(), validate.NormalizeEmail(input.Email), input.Password, deviceOf(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setRefreshCookie(writer, issued)
	respond.OK(writer, handler.authView(issued))
}

/*
Refresh issues a new access token and rotates the refresh token.

POST /api/auth/refresh

Description: The refresh token is read from the cookie, or from the JSON body
for clients without a cookie jar; those also get the new token in the body.

Response:
  - 200: New access token
  - 401: Missing, rotated, revoked or expired refresh token
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	refreshToken := ""
	fromBody := false

	if cookie, err := request.Cookie(constants.RefreshTokenCookieName); err == nil && cookie.Value != "" {
		refreshToken = cookie.Value
	} else {
		var input refreshRequest
		if err := requestutil.DecodeJSON(writer, request, &input); err == nil && input.RefreshToken != "" {
			refreshToken = input.RefreshToken
			fromBody = true
		}
	}

	if refreshToken == "" {
		respond.Error(writer, request, apperr.Unauthorized("Missing refresh token"))
		return
	}

	issued, err := handler.service.Refresh(request.Context(), refreshToken)
	if err != nil {
		handler.clearRefreshCookie(writer)
		respond.Error(writer, request, err)
		return
	}

	handler.setRefreshCookie(writer, issued)

	payload := map[string]any{
		"access_token": issued.AccessToken,
		"token_type":   "Bearer",
		"expires_in":   int64(handler.accessTTL / time.Second),
	}
	if fromBody {
		payload["refresh_token"] = issued.RefreshToken
	}
	respond.OK(writer, payload)
}

/*
Revoke terminates the current session.

POST /api/auth/revoke

Description: Idempotent. The session is found from the refresh cookie or the
bearer token's session claim; the cookie is cleared either way.

Response:
  - 204: Session terminated
*/
func (handler *Handler) revoke(writer http.ResponseWriter, request *http.Request) {
	refreshToken := ""
	if cookie, err := request.Cookie(constants.RefreshTokenCookieName); err == nil {
		refreshToken = cookie.Value
	}

	sessionID := ""
	if claims := ctxutil.GetAuthUser(request.Context()); claims != nil {
		sessionID = claims.SessionID
	}

	if err := handler.service.Revoke(request.Context(), refreshToken, sessionID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.clearRefreshCookie(writer)
	respond.NoContent(writer)
}

// me handles GET /api/auth/me.
func (handler *Handler) me(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.service.Profile(request.Context(), claims.UserID)
	if err != nil {
		respond.Error(writer, request, apperr.Unauthorized("User no longer exists"))
		return
	}

	respond.OK(writer, user.identity())
}

// # Sessions

// listSessions handles GET /api/auth/sessions.
func (handler *Handler) listSessions(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	sessions, err := handler.service.Sessions(request.Context(), claims.UserID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		"sessions": slice.Map(sessions, func(session *Session) sessionView {
			return session.view(claims.SessionID)
		}),
	})
}

// revokeSession handles DELETE /api/auth/sessions/{id}.
func (handler *Handler) revokeSession(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.RevokeSession(request.Context(), claims.UserID, requestutil.Param(request, "id")); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// revokeAll handles POST /api/auth/revoke-all. The calling session survives.
func (handler *Handler) revokeAll(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.RevokeOthers(request.Context(), claims.UserID, claims.SessionID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// # Profile

// profile handles GET /api/user/me.
func (handler *Handler) profile(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.service.Profile(request.Context(), claims.UserID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user.profile())
}

/*
UpdateProfile applies a partial profile change.

PATCH /api/user/me

Response:
  - 200: profileView after the change
  - 400: Validation failure
*/
func (handler *Handler) updateProfile(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input profileRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	if input.DisplayName != nil {
		validator.Required("displayName", *input.DisplayName).
			MaxLen("displayName", *input.DisplayName, validate.DisplayNameMaxLen)
	}
	if input.Bio != nil {
		validator.MaxLen("bio", *input.Bio, validate.BioMaxLen)
	}
	if input.Avatar != nil {
		validator.URL("avatar", *input.Avatar)
	}
	if input.Cover != nil {
		validator.URL("cover", *input.Cover)
	}
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.service.UpdateProfile(request.Context(), claims.UserID, ProfileChanges(input))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user.profile())
}

// # Helpers

func (handler *Handler) authView(issued *Issued) authView {
	return authView{
		User: issued.User.identity(),
		Tokens: tokensView{
			AccessToken: issued.AccessToken,
			TokenType:   "Bearer",
			ExpiresIn:   int64(handler.accessTTL / time.Second),
		},
		SessionID: issued.SessionID,
	}
}

func (handler *Handler) setRefreshCookie(writer http.ResponseWriter, issued *Issued) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.RefreshTokenCookieName,
		Value:    issued.RefreshToken,
		Path:     constants.RefreshTokenCookiePath,
		Expires:  issued.RefreshTokenExpiresAt,
		Secure:   handler.cookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func (handler *Handler) clearRefreshCookie(writer http.ResponseWriter) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.RefreshTokenCookieName,
		Value:    "",
		Path:     constants.RefreshTokenCookiePath,
		MaxAge:   -1,
		Secure:   handler.cookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func deviceOf(request *http.Request) Device {
	return Device{
		UserAgent: request.UserAgent(),
		IPAddress: middleware.RealIP(request),
	}
}
