// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/clouds/internal/platform/ctxutil"
	"github.com/taibuivan/clouds/internal/platform/middleware"
	"github.com/taibuivan/clouds/internal/platform/sec"
)

type stubVerifier struct{}

func (stubVerifier) VerifyToken(token string) (*sec.AuthClaims, error) {
	switch token {
	case "good":
		return &sec.AuthClaims{UserID: "u-1", SessionID: "s-live"}, nil
	case "revoked":
		return &sec.AuthClaims{UserID: "u-1", SessionID: "s-dead"}, nil
	}
	return nil, errors.New("bad token")
}

type stubSessions struct{}

func (stubSessions) IsActive(sessionID string) bool { return sessionID == "s-live" }

func TestAuthenticate(t *testing.T) {
	protected := middleware.Authenticate(stubVerifier{}, stubSessions{})(
		middleware.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "u-1", ctxutil.GetAuthUser(r.Context()).UserID)
			w.WriteHeader(http.StatusOK)
		})),
	)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"anonymous", "", http.StatusUnauthorized},
		{"malformed", "Token good", http.StatusUnauthorized},
		{"invalid", "Bearer nope", http.StatusUnauthorized},
		{"revoked_session", "Bearer revoked", http.StatusUnauthorized},
		{"valid", "Bearer good", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
			if tt.header != "" {
				request.Header.Set("Authorization", tt.header)
			}
			recorder := httptest.NewRecorder()

			protected.ServeHTTP(recorder, request)
			assert.Equal(t, tt.want, recorder.Code)
		})
	}
}

func TestRequestID_EchoesClientValue(t *testing.T) {
	var seen string
	handler := middleware.RequestID()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = ctxutil.GetRequestID(r.Context())
	}))

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set("X-Request-ID", "client-id")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.Equal(t, "client-id", seen)
	assert.Equal(t, "client-id", recorder.Header().Get("X-Request-ID"))
}

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	limiter := middleware.NewRateLimiter(ctx, 1, 2)
	handler := limiter.Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codes := make([]int, 0, 3)
	for range 3 {
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, recorder.Code)
	}

	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
}

func TestPanicRecovery(t *testing.T) {
	handler := middleware.PanicRecovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "INTERNAL_ERROR")
}
