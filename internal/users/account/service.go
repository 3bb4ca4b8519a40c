// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"

	"github.com/taibuivan/clouds/internal/client"
	"github.com/taibuivan/clouds/internal/platform/apperr"
	"github.com/taibuivan/clouds/internal/platform/constants"
	"github.com/taibuivan/clouds/internal/platform/kv"
	"github.com/taibuivan/clouds/internal/platform/validate"
)

// # Service Layer

// Service manages the user's device sessions through the remote API.
type Service struct {
	client *client.Client
	kv     kv.Store
	logger *slog.Logger
}

// NewService constructs a new [Service]. store holds the current session marker.
func NewService(httpClient *client.Client, store kv.Store, logger *slog.Logger) *Service {
	return &Service{
		client: httpClient,
		kv:     store,
		logger: logger,
	}
}

/*
List returns the active sessions of the user.

Description: Accepts a bare array or a {"sessions": [...]} object, either one
optionally inside the data envelope. Missing browser, OS and device fields are
derived from the user agent. When the backend does not flag the current
session, the stored session marker decides.

Parameters:
  - ctx: context.Context

Returns:
  - []SessionInfo: Sessions in server order
  - error: UNAUTHORIZED, SESSION_EXPIRED or connectivity failures
*/
func (service *Service) List(ctx context.Context) ([]SessionInfo, error) {
	body, err := service.client.Do(ctx, constants.PathSessions, client.Options{Method: http.MethodGet})
	if err != nil {
		return nil, err
	}

	root := gjson.ParseBytes(client.Unwrap(body))
	items := root
	if !root.IsArray() {
		items = root.Get("sessions")
	}
	if !items.IsArray() {
		return nil, apperr.Internal(fmt.Errorf("account: %s returned no session list", constants.PathSessions))
	}

	currentID := service.currentSessionID(ctx)

	var sessions []SessionInfo
	for _, item := range items.Array() {
		session, flagged := mapSession(item)
		if session.ID == "" {
			continue
		}
		if !flagged {
			session.IsCurrent = currentID != "" && session.ID == currentID
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

/*
Revoke ends one session.

Parameters:
  - ctx: context.Context
  - sessionID: string

Returns:
  - error: VALIDATION_ERROR (empty id), NOT_FOUND, UNAUTHORIZED or connectivity failures
*/
func (service *Service) Revoke(ctx context.Context, sessionID string) error {
	validator := &validate.Validator{}
	validator.Required("id", sessionID)
	if err := validator.Err(); err != nil {
		return err
	}

	_, err := service.client.Do(ctx, constants.PathSessions+"/"+url.PathEscape(sessionID), client.Options{
		Method: http.MethodDelete,
	})
	if err != nil {
		return err
	}

	service.logger.InfoContext(ctx, "session_revoked", slog.String("session_id", sessionID))
	return nil
}

// RevokeAll ends every session except the current one.
func (service *Service) RevokeAll(ctx context.Context) error {
	if _, err := service.client.Do(ctx, constants.PathRevokeAll, client.Options{Method: http.MethodPost}); err != nil {
		return err
	}

	service.logger.InfoContext(ctx, "other_sessions_revoked")
	return nil
}

func (service *Service) currentSessionID(ctx context.Context) string {
	sessionID, _, err := service.kv.Get(ctx, constants.KeySessionID)
	if err != nil {
		service.logger.WarnContext(ctx, "session_marker_read_failed", slog.Any("error", err))
		return ""
	}
	return sessionID
}

// mapSession reads one session descriptor. flagged reports whether the
// backend said whether it is the current session.
func mapSession(object gjson.Result) (session SessionInfo, flagged bool) {
	text := func(keys ...string) string {
		for _, key := range keys {
			if value := object.Get(key); value.Exists() && value.Type != gjson.Null {
				return value.String()
			}
		}
		return ""
	}

	session = SessionInfo{
		ID:           text("id", "session_id", "sessionId"),
		IP:           text("ip", "ip_address", "ipAddress"),
		UserAgent:    text("userAgent", "user_agent"),
		Browser:      text("browser"),
		OS:           text("os"),
		Device:       text("device"),
		Location:     text("location"),
		CreatedAt:    text("createdAt", "created_at"),
		LastActiveAt: text("lastActiveAt", "last_active_at"),
	}

	for _, key := range []string{"isCurrent", "is_current"} {
		if value := object.Get(key); value.IsBool() {
			session.IsCurrent = value.Bool()
			flagged = true
			break
		}
	}

	agent := ParseUserAgent(session.UserAgent)
	if session.Browser == "" {
		session.Browser = agent.Browser
	}
	if session.OS == "" {
		session.OS = agent.OS
	}
	if session.Device == "" {
		session.Device = agent.Device
	}
	return session, flagged
}
