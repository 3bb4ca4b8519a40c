// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package constants provides centralized, immutable values for the entire platform.

It defines default timeouts, storage keys, endpoint paths and cross-cutting
header names shared by the session client and the reference API.

Categories:

  - Session: Cache TTLs, refresh-ahead ratio and persisted key names.
  - Endpoints: Paths of the consumed REST contract.
  - Server Timing: Read/Write/Idle timeouts for the reference HTTP server.
  - Rate Limiting: Outbound pacing and inbound token buckets.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "clouds"
	AppVersion = "0.1.0-dev"
)

// # Session Lifecycle

const (
	// DefaultProfileTTL is how long a cached profile is considered fresh.
	DefaultProfileTTL = 5 * time.Minute

	// RefreshAheadRatio is the fraction of the TTL after which a fresh cached
	// profile triggers a background refresh.
	RefreshAheadRatio = 0.8

	// DefaultRefreshTimeout bounds a single refresh call so queued requests cannot starve.
	DefaultRefreshTimeout = 10 * time.Second

	// DefaultRefreshLead refreshes a JWT access token this long before its exp claim.
	DefaultRefreshLead = 30 * time.Second

	// DefaultRequestTimeout is the overall client timeout for one HTTP exchange.
	DefaultRequestTimeout = 30 * time.Second

	// DefaultAvatarURL is shown when the backend does not provide an avatar.
	DefaultAvatarURL = "https://images.unsplash.com/photo-1535713875002-d1d0cf377fde?w=200&h=200&fit=crop"
)

// # Persisted Keys

const (
	KeyAccessToken = "access_token"
	KeyUserCache   = "user_cache"
	KeySessionID   = "session_id"
	KeyCookieJar   = "cookie_jar"
)

// # Endpoints

const (
	PathLogin         = "/auth/login"
	PathRegister      = "/auth/register"
	PathRefresh       = "/auth/refresh"
	PathRevoke        = "/auth/revoke"
	PathRevokeAll     = "/auth/revoke-all"
	PathSessions      = "/auth/sessions"
	PathAuthMe        = "/auth/me"
	PathUserMe        = "/user/me"
	DefaultAPIBaseURL = "http://localhost:8080/api"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second
)

// # Rate Limiting

const (
	// DefaultRateLimitRPS is the requests per second allowed per IP.
	DefaultRateLimitRPS = 100.0

	// DefaultRateLimitBurst is the maximum burst allowed for the rate limiter.
	DefaultRateLimitBurst = 150

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute
)

// # Authentication

const (
	// AuthIssuer is the standard 'iss' claim in JWTs.
	AuthIssuer = "clouds.app"

	// RefreshTokenCookieName is the name of the cookie that stores the refresh token.
	RefreshTokenCookieName = "refresh_token"

	// RefreshTokenCookiePath is the scoped path for the refresh token cookie.
	RefreshTokenCookiePath = "/api/auth"

	// AccessTokenTTL is the lifetime of access tokens issued by the reference API.
	AccessTokenTTL = 15 * time.Minute

	// RefreshTokenTTL is the lifetime of a refresh session.
	RefreshTokenTTL = 30 * 24 * time.Hour

	// RefreshTokenLength is the byte length of the random refresh token.
	RefreshTokenLength = 32
)

// # HTTP Headers

const (
	HeaderAuthorization = "Authorization"
	HeaderContentType   = "Content-Type"
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderUserAgent     = "User-Agent"

	ContentTypeJSON = "application/json; charset=utf-8"
)

// # JSON Field Identifiers

const (
	FieldData    = "data"
	FieldError   = "error"
	FieldCode    = "code"
	FieldDetails = "details"
	FieldMessage = "message"
	FieldStatus  = "status"
)

// # Redis Prefixes

const (
	RedisPrefixClient = "clouds:client:"
)
