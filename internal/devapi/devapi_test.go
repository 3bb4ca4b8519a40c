// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package devapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"golang.org/x/crypto/bcrypt"

	"github.com/taibuivan/clouds/internal/platform/config"
	"github.com/taibuivan/clouds/internal/platform/constants"
)

func testConfig() *config.Server {
	return &config.Server{
		ServerPort:      "0",
		Environment:     "development",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		SeedDemoUser:    true,
		BcryptCost:      bcrypt.MinCost,
		RateLimitRPS:    1000,
		RateLimitBurst:  1000,
	}
}

type testAPI struct {
	t      *testing.T
	server *httptest.Server
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	server, _, err := Build(ctx, testConfig(), slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return &testAPI{t: t, server: ts}
}

// call sends one request with an optional bearer token and refresh cookie.
func (api *testAPI) call(method, path string, body any, bearer, refresh string) (*http.Response, gjson.Result) {
	api.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(api.t, err)
		reader = bytes.NewReader(raw)
	}

	request, err := http.NewRequest(method, api.server.URL+path, reader)
	require.NoError(api.t, err)
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0) Chrome/120.0")
	if bearer != "" {
		request.Header.Set("Authorization", "Bearer "+bearer)
	}
	if refresh != "" {
		request.AddCookie(&http.Cookie{Name: constants.RefreshTokenCookieName, Value: refresh})
	}

	response, err := http.DefaultClient.Do(request)
	require.NoError(api.t, err)
	defer response.Body.Close()

	raw, err := io.ReadAll(response.Body)
	require.NoError(api.t, err)
	return response, gjson.ParseBytes(raw)
}

func refreshCookie(response *http.Response) *http.Cookie {
	for _, cookie := range response.Cookies() {
		if cookie.Name == constants.RefreshTokenCookieName {
			return cookie
		}
	}
	return nil
}

// login signs the demo user in and returns the access token and refresh cookie value.
func (api *testAPI) login() (string, string) {
	api.t.Helper()
	response, body := api.call(http.MethodPost, "/api/auth/login", map[string]string{
		"email": DemoEmail, "password": DemoPassword,
	}, "", "")
	require.Equal(api.t, http.StatusOK, response.StatusCode)

	cookie := refreshCookie(response)
	require.NotNil(api.t, cookie)
	return body.Get("data.tokens.access_token").String(), cookie.Value
}

func TestLogin_Demo(t *testing.T) {
	api := newTestAPI(t)

	response, body := api.call(http.MethodPost, "/api/auth/login", map[string]string{
		"email": "  Demo@Clouds.App ", "password": DemoPassword,
	}, "", "")
	require.Equal(t, http.StatusOK, response.StatusCode)

	assert.Equal(t, DemoUsername, body.Get("data.user.username").String())
	assert.NotEmpty(t, body.Get("data.tokens.access_token").String())
	assert.Equal(t, "Bearer", body.Get("data.tokens.token_type").String())
	assert.Equal(t, int64(60), body.Get("data.tokens.expires_in").Int())
	assert.NotEmpty(t, body.Get("data.session_id").String())

	cookie := refreshCookie(response)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, constants.RefreshTokenCookiePath, cookie.Path)
	assert.False(t, cookie.Secure)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	api := newTestAPI(t)

	response, body := api.call(http.MethodPost, "/api/auth/login", map[string]string{
		"email": DemoEmail, "password": "wrong-password",
	}, "", "")
	assert.Equal(t, http.StatusUnauthorized, response.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", body.Get("code").String())
	assert.Equal(t, "Invalid email or password", body.Get("message").String())
}

func TestRegister(t *testing.T) {
	api := newTestAPI(t)

	response, body := api.call(http.MethodPost, "/api/auth/register", map[string]string{
		"username": "skywalker", "email": "sky@clouds.app", "password": "secret1", "display_name": "Sky",
	}, "", "")
	require.Equal(t, http.StatusCreated, response.StatusCode)
	assert.Equal(t, "Sky", body.Get("data.user.display_name").String())
	assert.NotNil(t, refreshCookie(response))

	t.Run("duplicate email", func(t *testing.T) {
		response, body := api.call(http.MethodPost, "/api/auth/register", map[string]string{
			"username": "another", "email": "SKY@clouds.app", "password": "secret1",
		}, "", "")
		assert.Equal(t, http.StatusConflict, response.StatusCode)
		assert.Equal(t, "CONFLICT", body.Get("code").String())
	})

	t.Run("validation", func(t *testing.T) {
		response, body := api.call(http.MethodPost, "/api/auth/register", map[string]string{
			"username": "x", "email": "not-an-email", "password": "123",
		}, "", "")
		assert.Equal(t, http.StatusBadRequest, response.StatusCode)
		assert.Equal(t, "VALIDATION_ERROR", body.Get("code").String())
		assert.Len(t, body.Get("details").Array(), 3)
	})
}

/*
TestRefresh_Rotation: each refresh invalidates the token it consumed.
*/
func TestRefresh_Rotation(t *testing.T) {
	api := newTestAPI(t)
	_, first := api.login()

	response, body := api.call(http.MethodPost, "/api/auth/refresh", nil, "", first)
	require.Equal(t, http.StatusOK, response.StatusCode)
	assert.NotEmpty(t, body.Get("data.access_token").String())
	assert.False(t, body.Get("data.refresh_token").Exists())

	rotated := refreshCookie(response)
	require.NotNil(t, rotated)
	assert.NotEqual(t, first, rotated.Value)

	response, _ = api.call(http.MethodPost, "/api/auth/refresh", nil, "", first)
	assert.Equal(t, http.StatusUnauthorized, response.StatusCode)

	response, _ = api.call(http.MethodPost, "/api/auth/refresh", nil, "", rotated.Value)
	assert.Equal(t, http.StatusOK, response.StatusCode)
}

func TestRefresh_BodyTransport(t *testing.T) {
	api := newTestAPI(t)
	_, refresh := api.login()

	response, body := api.call(http.MethodPost, "/api/auth/refresh", map[string]string{"refresh_token": refresh}, "", "")
	require.Equal(t, http.StatusOK, response.StatusCode)
	assert.NotEmpty(t, body.Get("data.refresh_token").String())
	assert.NotEqual(t, refresh, body.Get("data.refresh_token").String())
}

func TestRefresh_Missing(t *testing.T) {
	api := newTestAPI(t)
	response, _ := api.call(http.MethodPost, "/api/auth/refresh", nil, "", "")
	assert.Equal(t, http.StatusUnauthorized, response.StatusCode)
}

/*
TestRevoke_InvalidatesAccessToken: a revoked session's access token stops
working before it expires.
*/
func TestRevoke_InvalidatesAccessToken(t *testing.T) {
	api := newTestAPI(t)
	access, refresh := api.login()

	response, body := api.call(http.MethodGet, "/api/auth/me", nil, access, "")
	require.Equal(t, http.StatusOK, response.StatusCode)
	assert.Equal(t, DemoEmail, body.Get("data.email").String())

	response, _ = api.call(http.MethodPost, "/api/auth/revoke", nil, "", refresh)
	require.Equal(t, http.StatusNoContent, response.StatusCode)
	cleared := refreshCookie(response)
	require.NotNil(t, cleared)
	assert.Less(t, cleared.MaxAge, 0)

	response, _ = api.call(http.MethodGet, "/api/auth/me", nil, access, "")
	assert.Equal(t, http.StatusUnauthorized, response.StatusCode)

	response, _ = api.call(http.MethodPost, "/api/auth/refresh", nil, "", refresh)
	assert.Equal(t, http.StatusUnauthorized, response.StatusCode)

	// Idempotent.
	response, _ = api.call(http.MethodPost, "/api/auth/revoke", nil, "", refresh)
	assert.Equal(t, http.StatusNoContent, response.StatusCode)
}

func TestSessions_ListAndRevoke(t *testing.T) {
	api := newTestAPI(t)
	current, _ := api.login()
	other, _ := api.login()
	third, _ := api.login()

	response, body := api.call(http.MethodGet, "/api/auth/sessions", nil, current, "")
	require.Equal(t, http.StatusOK, response.StatusCode)

	sessions := body.Get("data.sessions").Array()
	require.Len(t, sessions, 3)

	var currentCount int
	var otherID string
	for _, session := range sessions {
		assert.Contains(t, session.Get("userAgent").String(), "Chrome")
		if session.Get("isCurrent").Bool() {
			currentCount++
		} else if otherID == "" {
			otherID = session.Get("id").String()
		}
	}
	assert.Equal(t, 1, currentCount)

	response, _ = api.call(http.MethodDelete, "/api/auth/sessions/"+otherID, nil, current, "")
	assert.Equal(t, http.StatusNoContent, response.StatusCode)

	response, _ = api.call(http.MethodDelete, "/api/auth/sessions/"+otherID, nil, current, "")
	assert.Equal(t, http.StatusNotFound, response.StatusCode)

	response, _ = api.call(http.MethodDelete, "/api/auth/sessions/not-a-session", nil, current, "")
	assert.Equal(t, http.StatusNotFound, response.StatusCode)

	response, _ = api.call(http.MethodPost, "/api/auth/revoke-all", nil, current, "")
	assert.Equal(t, http.StatusNoContent, response.StatusCode)

	for _, token := range []string{other, third} {
		response, _ = api.call(http.MethodGet, "/api/auth/me", nil, token, "")
		assert.Equal(t, http.StatusUnauthorized, response.StatusCode)
	}

	response, body = api.call(http.MethodGet, "/api/auth/sessions", nil, current, "")
	require.Equal(t, http.StatusOK, response.StatusCode)
	assert.Len(t, body.Get("data.sessions").Array(), 1)
}

func TestProfile_GetAndPatch(t *testing.T) {
	api := newTestAPI(t)
	access, _ := api.login()

	response, body := api.call(http.MethodGet, "/api/user/me", nil, access, "")
	require.Equal(t, http.StatusOK, response.StatusCode)
	assert.Equal(t, "Demo User", body.Get("data.displayName").String())
	assert.Equal(t, int64(42), body.Get("data.friendsCount").Int())

	response, body = api.call(http.MethodPatch, "/api/user/me", map[string]string{
		"bio": "Above the clouds", "address": "Sky City",
	}, access, "")
	require.Equal(t, http.StatusOK, response.StatusCode)
	assert.Equal(t, "Above the clouds", body.Get("data.bio").String())
	assert.Equal(t, "Demo User", body.Get("data.displayName").String())

	response, body = api.call(http.MethodPatch, "/api/user/me", map[string]string{"avatar": "ftp://nope"}, access, "")
	assert.Equal(t, http.StatusBadRequest, response.StatusCode)
	assert.Equal(t, "avatar", body.Get("details.0.field").String())

	response, _ = api.call(http.MethodGet, "/api/user/me", nil, "", "")
	assert.Equal(t, http.StatusUnauthorized, response.StatusCode)
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)

	response, body := api.call(http.MethodGet, "/ready", nil, "", "")
	assert.Equal(t, http.StatusOK, response.StatusCode)
	assert.Equal(t, "ready", body.Get("data.status").String())

	response, _ = api.call(http.MethodGet, "/api/health", nil, "", "")
	assert.Equal(t, http.StatusOK, response.StatusCode)
}
