// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/clouds/internal/client"
	"github.com/taibuivan/clouds/internal/devapi"
	"github.com/taibuivan/clouds/internal/devapi/devapitest"
	"github.com/taibuivan/clouds/internal/platform/apperr"
	"github.com/taibuivan/clouds/internal/platform/constants"
	"github.com/taibuivan/clouds/internal/platform/kv"
	"github.com/taibuivan/clouds/internal/session/profile"
	"github.com/taibuivan/clouds/internal/session/token"
	"github.com/taibuivan/clouds/internal/users/auth"
)

var discard = slog.New(slog.DiscardHandler)

// device is one signed-in installation with its own store and cookie jar.
type device struct {
	sessions *Service
	identity *auth.Service
	store    *kv.Memory
}

func newDevice(t *testing.T, baseURL string) *device {
	t.Helper()
	store := kv.NewMemory()
	tokens := token.NewStore(store, true, discard)
	httpClient, err := client.New(context.Background(), client.Config{
		BaseURL:        baseURL,
		RequestTimeout: 5 * time.Second,
	}, tokens, store, discard)
	require.NoError(t, err)

	cache := profile.NewCache(store, 0, discard)
	return &device{
		sessions: NewService(httpClient, store, discard),
		identity: auth.NewService(httpClient, cache, store, discard),
		store:    store,
	}
}

func (d *device) login(t *testing.T) string {
	t.Helper()
	result, err := d.identity.Login(context.Background(), devapi.DemoEmail, devapi.DemoPassword)
	require.NoError(t, err)
	return result.SessionID
}

func TestSessions_AgainstAPI(t *testing.T) {
	api := devapitest.Start(t, 0)
	ctx := context.Background()

	laptop := newDevice(t, api.BaseURL())
	phone := newDevice(t, api.BaseURL())
	tablet := newDevice(t, api.BaseURL())
	current := laptop.login(t)
	phoneSession := phone.login(t)
	tablet.login(t)

	sessions, err := laptop.sessions.List(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 3)

	for _, session := range sessions {
		assert.Equal(t, session.ID == current, session.IsCurrent, session.ID)
		assert.Equal(t, UnknownBrowser, session.Browser)
		assert.NotEmpty(t, session.LastActiveAt)
	}

	t.Run("revoke one", func(t *testing.T) {
		require.NoError(t, laptop.sessions.Revoke(ctx, phoneSession))

		_, err := phone.sessions.List(ctx)
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperr.ErrSessionExpired))

		err = laptop.sessions.Revoke(ctx, phoneSession)
		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, apperr.As(err).HTTPStatus)
	})

	t.Run("revoke all others", func(t *testing.T) {
		require.NoError(t, laptop.sessions.RevokeAll(ctx))

		sessions, err := laptop.sessions.List(ctx)
		require.NoError(t, err)
		require.Len(t, sessions, 1)
		assert.True(t, sessions[0].IsCurrent)
	})
}

func TestRevoke_EmptyID(t *testing.T) {
	api := devapitest.Start(t, 0)
	laptop := newDevice(t, api.BaseURL())

	err := laptop.sessions.Revoke(context.Background(), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	assert.Zero(t, api.Requests())
}

/*
TestList_PayloadShapes: bare arrays and wrapped lists are both accepted, and
the stored marker decides the current session when the backend is silent.
*/
func TestList_PayloadShapes(t *testing.T) {
	const items = `[
		{"id":"s1","ip_address":"10.0.0.1","user_agent":"Mozilla/5.0 (Windows NT 10.0) Chrome/120.0 Safari/537.36","created_at":"2026-10-01T00:00:00Z"},
		{"id":"s2","userAgent":"","browser":"Custom client"},
		{"ip":"10.0.0.9"}
	]`

	tests := []struct {
		name string
		body string
	}{
		{"bare array", items},
		{"wrapped list", `{"sessions":` + items + `}`},
		{"enveloped list", `{"data":{"sessions":` + items + `}}`},
		{"enveloped array", `{"data":` + items + `}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api"+constants.PathSessions, r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			d := newDevice(t, server.URL+"/api")
			require.NoError(t, d.store.Set(context.Background(), constants.KeySessionID, "s2"))

			sessions, err := d.sessions.List(context.Background())
			require.NoError(t, err)
			require.Len(t, sessions, 2)

			assert.Equal(t, "s1", sessions[0].ID)
			assert.Equal(t, "10.0.0.1", sessions[0].IP)
			assert.Equal(t, "Chrome", sessions[0].Browser)
			assert.Equal(t, "Windows", sessions[0].OS)
			assert.Equal(t, DeviceComputer, sessions[0].Device)
			assert.False(t, sessions[0].IsCurrent)

			assert.Equal(t, "Custom client", sessions[1].Browser)
			assert.Equal(t, UnknownOS, sessions[1].OS)
			assert.True(t, sessions[1].IsCurrent)
		})
	}
}

func TestList_UnexpectedPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"data":{"count":2}}`)
	}))
	defer server.Close()

	d := newDevice(t, server.URL+"/api")
	_, err := d.sessions.List(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInternal, apperr.As(err).Code)
}
