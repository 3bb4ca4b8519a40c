// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package client

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/taibuivan/clouds/internal/platform/apperr"
	"github.com/taibuivan/clouds/internal/platform/constants"
)

// errNoAccessToken is the refresh failure when a 2xx response carries no token.
var errNoAccessToken = errors.New("client: refresh response carried no access token")

// accessPaths and refreshPaths list where backends put the tokens.
var (
	accessPaths = []string{
		"access_token", "tokens.access_token", "accessToken", "token",
		"data.access_token", "data.tokens.access_token", "data.accessToken", "data.token",
	}
	refreshPaths = []string{
		"refresh_token", "tokens.refresh_token", "refreshToken",
		"data.refresh_token", "data.tokens.refresh_token", "data.refreshToken",
	}
)

// ExtractTokens reads the access and refresh tokens from an auth response.
// Either may be empty.
func ExtractTokens(body []byte) (access, refresh string) {
	if !gjson.ValidBytes(body) {
		return "", ""
	}
	root := gjson.ParseBytes(body)
	return firstString(root, accessPaths...), firstString(root, refreshPaths...)
}

// Refresh obtains a new access token, joining a refresh already in flight.
// On failure the credentials are cleared and SESSION_EXPIRED is returned.
func (c *Client) Refresh(ctx context.Context) error {
	return c.refreshAfter(ctx, c.generation(), true)
}

// deferredRefresh is the failure of a refresh that ran while the access token
// was still live. The credentials are kept and no outcome is recorded.
type deferredRefresh struct {
	cause error
}

func (d *deferredRefresh) Error() string { return "client: refresh deferred: " + d.cause.Error() }

func (d *deferredRefresh) Unwrap() error { return d.cause }

// generation returns the number of refreshes completed so far.
func (c *Client) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.completed
}

// outcomeSince returns the latest refresh outcome if one completed after generation.
func (c *Client) outcomeSince(generation uint64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.completed > generation {
		return true, c.lastRefresh
	}
	return false, nil
}

// record stores the outcome of the refresh that followed generation.
func (c *Client) record(generation uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.completed == generation {
		c.completed++
		c.lastRefresh = err
	}
}

// refreshAfter makes sure a refresh newer than generation has completed and
// returns its outcome.
//
// Callers that observed the same generation share one singleflight call, so
// at most one refresh request is in flight. A caller whose request was sent
// before a refresh finished reuses that refresh instead of starting another.
// The refresh itself is detached from the caller's cancellation and bounded
// by the refresh timeout; a caller that gives up only stops waiting.
//
// expire says the server already rejected the token. A flight started with
// expire unset (an early refresh) that fails while the access token is still
// live returns a *deferredRefresh; a caller with expire set that joined such
// a flight ends the session itself.
func (c *Client) refreshAfter(ctx context.Context, generation uint64, expire bool) error {
	if done, err := c.outcomeSince(generation); done {
		return err
	}

	detached := context.WithoutCancel(ctx)
	result := c.group.DoChan(strconv.FormatUint(generation, 10), func() (any, error) {
		if done, err := c.outcomeSince(generation); done {
			return nil, err
		}
		return nil, c.runRefresh(detached, generation, expire)
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case outcome := <-result:
		var deferred *deferredRefresh
		if expire && errors.As(outcome.Err, &deferred) {
			return c.expire(detached, generation, deferred.cause)
		}
		return outcome.Err
	}
}

// runRefresh performs the refresh call and records its outcome.
func (c *Client) runRefresh(ctx context.Context, generation uint64, expire bool) error {
	ctx, cancel := context.WithTimeout(ctx, c.refreshTimeout)
	defer cancel()

	err := c.callRefresh(ctx)
	if err == nil {
		c.logger.DebugContext(ctx, "session_refreshed")
		c.record(generation, nil)
		return nil
	}

	if !expire && c.tokens.Live() {
		c.logger.WarnContext(ctx, "session_refresh_deferred", slog.Any("error", err))
		return &deferredRefresh{cause: err}
	}
	return c.expire(ctx, generation, err)
}

// expire clears the credentials and records SESSION_EXPIRED.
func (c *Client) expire(ctx context.Context, generation uint64, cause error) error {
	c.tokens.Clear(context.WithoutCancel(ctx))
	c.logger.WarnContext(ctx, "session_refresh_failed", slog.Any("error", cause))

	failure := apperr.SessionExpired(cause)
	c.record(generation, failure)
	return failure
}

// callRefresh posts to the refresh endpoint. The refresh cookie rides in the
// jar; a body-transported refresh token is sent as well when one is held.
func (c *Client) callRefresh(ctx context.Context) error {
	var body any
	if refresh := c.tokens.Refresh(); refresh != "" {
		body = map[string]string{"refresh_token": refresh}
	}

	payload, err := encodeBody(body)
	if err != nil {
		return err
	}

	target, err := c.buildURL(constants.PathRefresh, nil)
	if err != nil {
		return err
	}

	res, err := c.send(ctx, target, payload, Options{Method: http.MethodPost, SkipAuth: true})
	if err != nil {
		return err
	}
	if err := res.err(); err != nil {
		return err
	}

	access, refresh := ExtractTokens(res.body)
	if access == "" {
		return errNoAccessToken
	}
	if refresh == "" {
		refresh = c.tokens.Refresh()
	}

	c.tokens.Set(ctx, access, refresh)
	return nil
}
