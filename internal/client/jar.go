// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package client

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/taibuivan/clouds/internal/platform/constants"
	"github.com/taibuivan/clouds/internal/platform/kv"
)

// jarWriteTimeout bounds the persistence write triggered by a Set-Cookie.
const jarWriteTimeout = 2 * time.Second

// storedCookie is the persisted form of one cookie and the URL that set it.
// Replaying SetCookies with the same URL reproduces the jar's domain and path defaults.
type storedCookie struct {
	URL      string    `json:"url"`
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path,omitempty"`
	Domain   string    `json:"domain,omitempty"`
	Expires  time.Time `json:"expires,omitzero"`
	Secure   bool      `json:"secure,omitempty"`
	HTTPOnly bool      `json:"httpOnly,omitempty"`
}

// key identifies a cookie the way a jar does: by domain, path and name.
// The URL that set it does not matter, so a rotation from another endpoint
// replaces the earlier record.
func (c storedCookie) key() string {
	host := strings.TrimPrefix(strings.ToLower(c.Domain), ".")
	path := c.Path
	if u, err := url.Parse(c.URL); err == nil {
		if host == "" {
			host = strings.ToLower(u.Hostname())
		}
		if !strings.HasPrefix(path, "/") {
			path = defaultPath(u.Path)
		}
	}
	return host + "|" + path + "|" + c.Name
}

// defaultPath is the RFC 6265 default-path of a request path.
func defaultPath(requestPath string) string {
	i := strings.LastIndex(requestPath, "/")
	if i <= 0 {
		return "/"
	}
	return requestPath[:i]
}

func (c storedCookie) expired(now time.Time) bool {
	return !c.Expires.IsZero() && !c.Expires.After(now)
}

// Jar is an [http.CookieJar] whose contents survive process restarts.
//
// The standard library jar cannot enumerate its cookies, so Jar keeps its own
// record of every Set-Cookie it sees and writes it to the key/value store.
// This is how the httpOnly refresh cookie outlives a single CLI command.
type Jar struct {
	mu      sync.Mutex
	inner   *cookiejar.Jar
	cookies map[string]storedCookie

	kv     kv.Store
	logger *slog.Logger
}

// NewJar creates a jar and replays the cookies persisted in store.
func NewJar(ctx context.Context, store kv.Store, logger *slog.Logger) (*Jar, error) {
	inner, err := newInnerJar()
	if err != nil {
		return nil, err
	}

	jar := &Jar{
		inner:   inner,
		cookies: make(map[string]storedCookie),
		kv:      store,
		logger:  logger,
	}
	jar.load(ctx)
	return jar, nil
}

func newInnerJar() (*cookiejar.Jar, error) {
	return cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
}

// SetCookies implements [http.CookieJar].
func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	now := time.Now()

	// The write stays under mu so concurrent responses persist in order.
	j.mu.Lock()
	defer j.mu.Unlock()

	j.inner.SetCookies(u, cookies)
	for _, cookie := range cookies {
		stored := toStored(u, cookie, now)
		if stored.expired(now) {
			delete(j.cookies, stored.key())
			continue
		}
		j.cookies[stored.key()] = stored
	}

	ctx, cancel := context.WithTimeout(context.Background(), jarWriteTimeout)
	defer cancel()
	j.persist(ctx, j.snapshot(now))
}

// Cookies implements [http.CookieJar].
func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.inner.Cookies(u)
}

// Clear drops every cookie from memory and from the store.
func (j *Jar) Clear(ctx context.Context) {
	inner, err := newInnerJar()
	if err != nil {
		j.logger.WarnContext(ctx, "cookie_jar_reset_failed", slog.Any("error", err))
		return
	}

	j.mu.Lock()
	j.inner = inner
	j.cookies = make(map[string]storedCookie)
	j.mu.Unlock()

	if err := j.kv.Delete(ctx, constants.KeyCookieJar); err != nil {
		j.logger.WarnContext(ctx, "cookie_jar_clear_failed", slog.Any("error", err))
	}
}

func (j *Jar) load(ctx context.Context) {
	raw, ok, err := j.kv.Get(ctx, constants.KeyCookieJar)
	if err != nil {
		j.logger.WarnContext(ctx, "cookie_jar_load_failed", slog.Any("error", err))
		return
	}
	if !ok {
		return
	}

	var stored []storedCookie
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		j.logger.WarnContext(ctx, "cookie_jar_corrupt_discarded", slog.Any("error", err))
		_ = j.kv.Delete(ctx, constants.KeyCookieJar)
		return
	}

	now := time.Now()
	j.mu.Lock()
	defer j.mu.Unlock()

	for _, cookie := range stored {
		if cookie.expired(now) {
			continue
		}
		u, err := url.Parse(cookie.URL)
		if err != nil {
			continue
		}
		j.inner.SetCookies(u, []*http.Cookie{cookie.toHTTP()})
		j.cookies[cookie.key()] = cookie
	}
}

func (j *Jar) snapshot(now time.Time) []storedCookie {
	out := make([]storedCookie, 0, len(j.cookies))
	for key, cookie := range j.cookies {
		if cookie.expired(now) {
			delete(j.cookies, key)
			continue
		}
		out = append(out, cookie)
	}
	return out
}

func (j *Jar) persist(ctx context.Context, cookies []storedCookie) {
	if len(cookies) == 0 {
		if err := j.kv.Delete(ctx, constants.KeyCookieJar); err != nil {
			j.logger.WarnContext(ctx, "cookie_jar_persist_failed", slog.Any("error", err))
		}
		return
	}

	raw, err := json.Marshal(cookies)
	if err != nil {
		j.logger.WarnContext(ctx, "cookie_jar_encode_failed", slog.Any("error", err))
		return
	}
	if err := j.kv.Set(ctx, constants.KeyCookieJar, string(raw)); err != nil {
		j.logger.WarnContext(ctx, "cookie_jar_persist_failed", slog.Any("error", err))
	}
}

// toStored converts a Set-Cookie into its persisted form. MaxAge becomes an
// absolute expiry; a negative MaxAge marks the cookie as deleted.
func toStored(u *url.URL, cookie *http.Cookie, now time.Time) storedCookie {
	origin := url.URL{Scheme: u.Scheme, Host: u.Host, Path: u.Path}

	stored := storedCookie{
		URL:      origin.String(),
		Name:     cookie.Name,
		Value:    cookie.Value,
		Path:     cookie.Path,
		Domain:   cookie.Domain,
		Expires:  cookie.Expires,
		Secure:   cookie.Secure,
		HTTPOnly: cookie.HttpOnly,
	}

	switch {
	case cookie.MaxAge < 0:
		stored.Expires = now
	case cookie.MaxAge > 0:
		stored.Expires = now.Add(time.Duration(cookie.MaxAge) * time.Second)
	}
	return stored
}

func (c storedCookie) toHTTP() *http.Cookie {
	return &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Path,
		Domain:   c.Domain,
		Expires:  c.Expires,
		Secure:   c.Secure,
		HttpOnly: c.HTTPOnly,
	}
}
