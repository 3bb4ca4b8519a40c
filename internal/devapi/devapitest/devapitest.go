// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package devapitest runs the reference API in-process for client tests.
package devapitest

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/taibuivan/clouds/internal/devapi"
	"github.com/taibuivan/clouds/internal/platform/config"
)

// API is a running reference server that counts the requests it receives.
type API struct {
	*httptest.Server

	// Service is the identity service behind the server.
	Service *devapi.Service

	requests atomic.Int64
	mu       sync.Mutex
	paths    map[string]int
	failing  map[string]int
}

// Start runs a seeded server for the lifetime of t. accessTTL of zero uses one minute.
func Start(t *testing.T, accessTTL time.Duration) *API {
	t.Helper()
	if accessTTL <= 0 {
		accessTTL = time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	server, service, err := devapi.Build(ctx, &config.Server{
		Environment:     "development",
		AccessTokenTTL:  accessTTL,
		RefreshTokenTTL: time.Hour,
		SeedDemoUser:    true,
		BcryptCost:      bcrypt.MinCost,
		RateLimitRPS:    1000,
		RateLimitBurst:  1000,
	}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	api := &API{Service: service, paths: make(map[string]int), failing: make(map[string]int)}
	api.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.requests.Add(1)

		api.mu.Lock()
		key := r.Method + " " + r.URL.Path
		api.paths[key]++
		status := api.failing[key]
		api.mu.Unlock()

		if status != 0 {
			http.Error(w, "injected failure", status)
			return
		}
		server.Handler().ServeHTTP(w, r)
	}))
	t.Cleanup(api.Close)
	return api
}

// BaseURL is the API root clients are configured with.
func (api *API) BaseURL() string {
	return strings.TrimRight(api.URL, "/") + "/api"
}

// Requests returns the number of requests served so far.
func (api *API) Requests() int64 {
	return api.requests.Load()
}

// Calls returns how often "METHOD /path" was requested.
func (api *API) Calls(methodAndPath string) int {
	api.mu.Lock()
	defer api.mu.Unlock()
	return api.paths[methodAndPath]
}

// Fail makes "METHOD /path" answer with status until Recover is called.
func (api *API) Fail(methodAndPath string, status int) {
	api.mu.Lock()
	defer api.mu.Unlock()
	api.failing[methodAndPath] = status
}

// Recover undoes every Fail.
func (api *API) Recover() {
	api.mu.Lock()
	defer api.mu.Unlock()
	clear(api.failing)
}
