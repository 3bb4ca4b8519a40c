// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/clouds/internal/platform/apperr"
)

/*
TestAppError_IsMatchesByCode verifies sentinels match wrapped errors with the same code.
*/
func TestAppError_IsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("auth: me failed: %w", apperr.SessionExpired(errors.New("refresh 401")))

	assert.ErrorIs(t, err, apperr.ErrSessionExpired)
	assert.NotErrorIs(t, err, apperr.ErrNetwork)

	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, http.StatusUnauthorized, ae.HTTPStatus)
	assert.Equal(t, "Session expired", ae.Error())
}

/*
TestAppError_Unwrap verifies the cause chain stays reachable.
*/
func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := apperr.Network(cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, apperr.ErrNetwork)
}

/*
TestIsConnectivity classifies failures that justify a stale-cache fallback.
*/
func TestIsConnectivity(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"network", apperr.Network(errors.New("eof")), true},
		{"html_page", apperr.APIUnavailable(http.StatusOK), true},
		{"bad_gateway", apperr.HTTP(http.StatusBadGateway), true},
		{"session_expired", apperr.SessionExpired(nil), false},
		{"validation", apperr.ValidationError("bad"), false},
		{"plain_error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apperr.IsConnectivity(tt.err))
		})
	}
}

/*
TestInvalidCredentials_DefaultMessage keeps server text verbatim and falls back otherwise.
*/
func TestInvalidCredentials_DefaultMessage(t *testing.T) {
	assert.Equal(t, "Invalid email or password", apperr.InvalidCredentials("").Message)
	assert.Equal(t, "Account locked", apperr.InvalidCredentials("Account locked").Message)
}
