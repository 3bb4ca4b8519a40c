// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package client is the authenticated HTTP client of the session layer.

Every request carries the bearer token from the [token.Store] and the
cookies from a persistent [Jar]. When the server answers 401 the client runs
one coalesced refresh and replays the request exactly once.

Failure taxonomy (all [apperr.AppError]):

  - NETWORK_ERROR: the server could not be reached.
  - API_UNAVAILABLE: the server answered with an HTML page.
  - SESSION_EXPIRED: the refresh failed; credentials were cleared.
  - UNAUTHORIZED: the replay after a successful refresh was still rejected.
  - Anything else: the server's own code and message, or "HTTP Error: <status>".
*/
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/taibuivan/clouds/internal/platform/apperr"
	"github.com/taibuivan/clouds/internal/platform/config"
	"github.com/taibuivan/clouds/internal/platform/constants"
	"github.com/taibuivan/clouds/internal/platform/ctxutil"
	"github.com/taibuivan/clouds/internal/platform/kv"
	"github.com/taibuivan/clouds/internal/session/token"
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 4 << 20

// userAgent identifies the client in the server's session list.
var userAgent = fmt.Sprintf("%s-cli/%s", constants.AppName, constants.AppVersion)

// Options describes one request.
type Options struct {
	// Method defaults to GET.
	Method string
	// Body is JSON-encoded when non-nil.
	Body any
	// Params are appended to the URL query.
	Params url.Values
	// SkipAuth sends no bearer token and never triggers a refresh.
	SkipAuth bool
	// NoRetry sends the bearer token but reports a 401 as is.
	NoRetry bool
	// Header holds extra request headers.
	Header http.Header
}

// Config holds the client settings.
type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
	RefreshTimeout time.Duration
	// RefreshLead refreshes a JWT access token this long before its exp claim.
	// Zero or negative disables proactive refresh.
	RefreshLead    time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
}

// ConfigFrom maps the environment configuration onto [Config].
func ConfigFrom(cfg *config.Client) Config {
	return Config{
		BaseURL:        cfg.APIBaseURL,
		RequestTimeout: cfg.RequestTimeout,
		RefreshTimeout: cfg.RefreshTimeout,
		RefreshLead:    cfg.RefreshLead,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	}
}

// Client issues authenticated requests. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  *token.Store
	jar     *Jar
	limiter *rate.Limiter
	logger  *slog.Logger

	refreshTimeout time.Duration
	refreshLead    time.Duration

	// Refresh coordination: group coalesces concurrent refreshes; completed
	// counts finished refreshes and lastRefresh holds the latest outcome.
	group       singleflight.Group
	mu          sync.Mutex
	completed   uint64
	lastRefresh error
}

// New builds a client and loads the persisted cookie jar from store.
func New(ctx context.Context, cfg Config, tokens *token.Store, store kv.Store, logger *slog.Logger) (*Client, error) {
	if _, err := url.Parse(cfg.BaseURL); err != nil || cfg.BaseURL == "" {
		return nil, fmt.Errorf("client: invalid base URL %q", cfg.BaseURL)
	}

	jar, err := NewJar(ctx, store, logger)
	if err != nil {
		return nil, fmt.Errorf("client: failed to create cookie jar: %w", err)
	}

	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = constants.DefaultRequestTimeout
	}
	if cfg.RefreshTimeout <= 0 {
		cfg.RefreshTimeout = constants.DefaultRefreshTimeout
	}

	limit := rate.Inf
	if cfg.RateLimitRPS > 0 {
		limit = rate.Limit(cfg.RateLimitRPS)
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		http:           &http.Client{Jar: jar, Timeout: cfg.RequestTimeout},
		tokens:         tokens,
		jar:            jar,
		limiter:        rate.NewLimiter(limit, burst),
		logger:         logger,
		refreshTimeout: cfg.RefreshTimeout,
		refreshLead:    cfg.RefreshLead,
	}, nil
}

// Tokens returns the token store the client reads credentials from.
func (c *Client) Tokens() *token.Store {
	return c.tokens
}

// ClearSession drops the credentials and every cookie, including the refresh cookie.
func (c *Client) ClearSession(ctx context.Context) {
	c.tokens.Clear(ctx)
	c.jar.Clear(ctx)
}

// # Requests

// Do sends a request to endpoint (relative to the base URL) and returns the raw body.
//
// # Flow
//  1. Attach the bearer token unless SkipAuth (refreshing first when it is about to expire).
//  2. Send; on 401 run the coalesced refresh and replay once.
//  3. Map non-2xx and HTML responses to typed errors. A 401 is handled
//     before the HTML check, so an HTML 401 page still triggers the refresh.
func (c *Client) Do(ctx context.Context, endpoint string, opts Options) ([]byte, error) {
	target, err := c.buildURL(endpoint, opts.Params)
	if err != nil {
		return nil, err
	}

	payload, err := encodeBody(opts.Body)
	if err != nil {
		return nil, err
	}

	// The generation is read before sending: a refresh that completes while
	// this request is in flight must be reused, not repeated.
	generation := c.generation()

	if !opts.SkipAuth && !opts.NoRetry && c.refreshLead > 0 && c.tokens.ExpiresWithin(c.refreshLead) {
		// A failed early refresh keeps a live token; the request goes out with it.
		var deferred *deferredRefresh
		if err := c.refreshAfter(ctx, generation, false); err != nil && !errors.As(err, &deferred) {
			return nil, err
		}
		generation = c.generation()
	}

	res, err := c.send(ctx, target, payload, opts)
	if err != nil {
		return nil, err
	}

	if res.status == http.StatusUnauthorized && !opts.SkipAuth && !opts.NoRetry {
		if err := c.refreshAfter(ctx, generation, true); err != nil {
			return nil, err
		}

		res, err = c.send(ctx, target, payload, opts)
		if err != nil {
			return nil, err
		}
		if res.status == http.StatusUnauthorized {
			failure := parseError(res.status, res.body)
			failure.Code = apperr.CodeUnauthorized
			return nil, failure
		}
	}

	if err := res.err(); err != nil {
		return nil, err
	}
	return res.body, nil
}

// DoJSON is [Client.Do] followed by decoding the body into out.
// A {"data": ...} envelope is unwrapped. An empty body leaves out untouched.
func (c *Client) DoJSON(ctx context.Context, endpoint string, opts Options, out any) error {
	body, err := c.Do(ctx, endpoint, opts)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(Unwrap(body), out); err != nil {
		return apperr.Internal(fmt.Errorf("client: decode %s: %w", endpoint, err))
	}
	return nil
}

// Get sends a GET request and decodes the response into out.
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values, out any) error {
	return c.DoJSON(ctx, endpoint, Options{Method: http.MethodGet, Params: params}, out)
}

// Post sends a POST request with a JSON body and decodes the response into out.
func (c *Client) Post(ctx context.Context, endpoint string, body, out any) error {
	return c.DoJSON(ctx, endpoint, Options{Method: http.MethodPost, Body: body}, out)
}

// Put sends a PUT request with a JSON body and decodes the response into out.
func (c *Client) Put(ctx context.Context, endpoint string, body, out any) error {
	return c.DoJSON(ctx, endpoint, Options{Method: http.MethodPut, Body: body}, out)
}

// Patch sends a PATCH request with a JSON body and decodes the response into out.
func (c *Client) Patch(ctx context.Context, endpoint string, body, out any) error {
	return c.DoJSON(ctx, endpoint, Options{Method: http.MethodPatch, Body: body}, out)
}

// Delete sends a DELETE request and decodes the response into out.
func (c *Client) Delete(ctx context.Context, endpoint string, out any) error {
	return c.DoJSON(ctx, endpoint, Options{Method: http.MethodDelete}, out)
}

// # Transport

// send performs one HTTP exchange. Non-2xx statuses are not errors here,
// except HTML pages which are reported as API_UNAVAILABLE.
// reply is a received response, not yet classified.
type reply struct {
	status      int
	contentType string
	body        []byte
}

// err maps an HTML page to API_UNAVAILABLE and a non-2xx status to its AppError.
func (r reply) err() error {
	if isHTML(r.contentType, r.body) {
		return apperr.APIUnavailable(r.status)
	}
	if r.status < 200 || r.status > 299 {
		return parseError(r.status, r.body)
	}
	return nil
}

func (c *Client) send(ctx context.Context, target string, payload []byte, opts Options) (reply, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return reply{}, transportError(ctx, err)
	}

	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	request, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return reply{}, fmt.Errorf("client: build request: %w", err)
	}

	for key, values := range opts.Header {
		for _, value := range values {
			request.Header.Add(key, value)
		}
	}
	request.Header.Set("Accept", "application/json")
	request.Header.Set(constants.HeaderUserAgent, userAgent)
	request.Header.Set(constants.HeaderXRequestID, ctxutil.RequestIDOrNew(ctx))
	if payload != nil {
		request.Header.Set(constants.HeaderContentType, constants.ContentTypeJSON)
	}

	if !opts.SkipAuth {
		if access := c.tokens.Get(ctx); access != "" {
			request.Header.Set(constants.HeaderAuthorization, "Bearer "+access)
		}
	}

	startTime := time.Now()
	response, err := c.http.Do(request)
	if err != nil {
		return reply{}, transportError(ctx, err)
	}
	defer response.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if err != nil {
		return reply{}, transportError(ctx, err)
	}

	c.logger.DebugContext(ctx, "http_request_completed",
		slog.String("method", method),
		slog.String("url", target),
		slog.Int("status", response.StatusCode),
		slog.Int64("latency_ms", time.Since(startTime).Milliseconds()),
	)

	return reply{
		status:      response.StatusCode,
		contentType: response.Header.Get(constants.HeaderContentType),
		body:        raw,
	}, nil
}

// transportError keeps caller cancellation recognizable and maps the rest to NETWORK_ERROR.
func transportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return apperr.Network(err)
}

func (c *Client) buildURL(endpoint string, params url.Values) (string, error) {
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	target, err := url.Parse(c.baseURL + endpoint)
	if err != nil {
		return "", fmt.Errorf("client: invalid endpoint %q: %w", endpoint, err)
	}
	if len(params) > 0 {
		query := target.Query()
		for key, values := range params {
			for _, value := range values {
				query.Add(key, value)
			}
		}
		target.RawQuery = query.Encode()
	}
	return target.String(), nil
}

func encodeBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("client: encode body: %w", err)
	}
	return payload, nil
}
