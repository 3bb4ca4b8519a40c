// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package apperr defines the centralized error handling framework for Clouds.

It provides a rich error type shared by both sides of the wire: the reference API
renders it into JSON envelopes, and the session client rebuilds it from those
envelopes so callers can branch on a machine-readable code.

Architecture:

  - AppError: A struct containing machine-readable Code and user-facing messages.
  - Taxonomy: Client-side session failures (SessionExpired, NetworkError, ...) live
    next to the classic 4xx/5xx constructors.
  - Matching: [errors.Is] compares codes, so the exported sentinels match any
    AppError with the same code regardless of message.

Every error that leaves the client or service layer should be an [AppError].
*/
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// # Error Codes

const (
	CodeNotFound           = "NOT_FOUND"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeConflict           = "CONFLICT"
	CodeValidation         = "VALIDATION_ERROR"
	CodeRateLimited        = "RATE_LIMITED"
	CodeInternal           = "INTERNAL_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"

	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeSessionExpired     = "SESSION_EXPIRED"
	CodeNetwork            = "NETWORK_ERROR"
	CodeAPIUnavailable     = "API_UNAVAILABLE"
	CodeHTTP               = "HTTP_ERROR"
)

// # Sentinels

// Sentinels for use with [errors.Is]. Matching is by code only.
var (
	ErrSessionExpired     = &AppError{Code: CodeSessionExpired}
	ErrUnauthorized       = &AppError{Code: CodeUnauthorized}
	ErrInvalidCredentials = &AppError{Code: CodeInvalidCredentials}
	ErrValidation         = &AppError{Code: CodeValidation}
	ErrNetwork            = &AppError{Code: CodeNetwork}
	ErrAPIUnavailable     = &AppError{Code: CodeAPIUnavailable}
)

// AppError is the canonical error type for Clouds.
//
// It carries an HTTP status code, a machine-readable code, a client-safe
// message, and an optional slice of field-level validation errors.
//
// # Security
//
// The Cause field is for logging only and is never serialized.
type AppError struct {
	// Code is a machine-readable error identifier (e.g. "NOT_FOUND", "SESSION_EXPIRED").
	Code string `json:"code"`
	// Message is a human-readable description safe to show to the user.
	Message string `json:"error"`
	// HTTPStatus is the HTTP response status code (0 for transport-level failures).
	HTTPStatus int `json:"-"`
	// Cause is the underlying error, used for logging only.
	Cause error `json:"-"`
	// Details holds per-field validation errors for VALIDATION_ERROR responses.
	Details []FieldError `json:"details,omitempty"`
}

// FieldError represents a single field-level validation failure.
type FieldError struct {
	// Field is the JSON field name that failed validation.
	Field string `json:"field"`
	// Message is the human-readable description of the failure.
	Message string `json:"message"`
}

// Error implements the error interface. It returns the client-safe message.
func (e *AppError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return e.Message
}

// Unwrap allows [errors.Is] and [errors.As] to traverse the cause chain.
func (e *AppError) Unwrap() error { return e.Cause }

// Is reports whether target is an [*AppError] carrying the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// # Client Errors (4xx)

// NotFound creates a 404 [AppError] for a named resource.
//
// Example:
//
//	apperr.NotFound("Session") // Returns "Session not found"
func NotFound(resource string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    resource + " not found",
		HTTPStatus: http.StatusNotFound,
	}
}

// Unauthorized creates a 401 [AppError].
func Unauthorized(msg string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    msg,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// Conflict creates a 409 [AppError] for duplicate identities.
func Conflict(msg string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    msg,
		HTTPStatus: http.StatusConflict,
	}
}

// ValidationError creates a 400 [AppError] with optional per-field details.
func ValidationError(msg string, details ...FieldError) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    msg,
		HTTPStatus: http.StatusBadRequest,
		Details:    details,
	}
}

// RateLimited creates a 429 [AppError].
func RateLimited(retryAfterSeconds int) *AppError {
	return &AppError{
		Code:       CodeRateLimited,
		Message:    fmt.Sprintf("Too many requests. Try again in %ds.", retryAfterSeconds),
		HTTPStatus: http.StatusTooManyRequests,
	}
}

// # Session Errors

// InvalidCredentials creates the error surfaced when the server rejects a login.
// The server message is kept verbatim when present.
func InvalidCredentials(msg string) *AppError {
	if msg == "" {
		msg = "Invalid email or password"
	}
	return &AppError{
		Code:       CodeInvalidCredentials,
		Message:    msg,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// SessionExpired creates the error returned to every caller waiting on a failed refresh.
func SessionExpired(cause error) *AppError {
	return &AppError{
		Code:       CodeSessionExpired,
		Message:    "Session expired",
		HTTPStatus: http.StatusUnauthorized,
		Cause:      cause,
	}
}

// Network wraps a transport failure (DNS, refused connection, timeout).
func Network(cause error) *AppError {
	return &AppError{
		Code:    CodeNetwork,
		Message: "Unable to reach the server",
		Cause:   cause,
	}
}

// APIUnavailable is returned when the endpoint answered with an HTML page
// instead of JSON, which means the base URL points at the wrong service.
func APIUnavailable(status int) *AppError {
	return &AppError{
		Code:       CodeAPIUnavailable,
		Message:    "API endpoint not available",
		HTTPStatus: status,
	}
}

// HTTP creates a generic error for a non-2xx status with no parseable message.
func HTTP(status int) *AppError {
	return &AppError{
		Code:       CodeHTTP,
		Message:    fmt.Sprintf("HTTP Error: %d", status),
		HTTPStatus: status,
	}
}

// # Server Errors (5xx)

// Internal creates a 500 [AppError] wrapping an unexpected error.
// The cause is stored for logging but is never sent to the client.
func Internal(cause error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "An unexpected error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// ServiceUnavailable creates a 503 [AppError] for maintenance mode.
func ServiceUnavailable(msg string) *AppError {
	return &AppError{
		Code:       CodeServiceUnavailable,
		Message:    msg,
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

// # Helpers

// As extracts the [*AppError] from err's chain. It returns nil if not found.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// IsConnectivity reports whether err means the server could not be reached or
// answered with something other than the API (transport failure, HTML page, 5xx).
func IsConnectivity(err error) bool {
	ae := As(err)
	if ae == nil {
		return false
	}
	switch ae.Code {
	case CodeNetwork, CodeAPIUnavailable:
		return true
	}
	return ae.HTTPStatus >= http.StatusInternalServerError
}
