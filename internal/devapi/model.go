// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package devapi is the reference implementation of the REST contract consumed
by the session client.

It is a development server and a test fixture: state is in memory and is lost
on restart, access tokens are RS256 JWTs, and refresh tokens are rotated
through an httpOnly cookie.

# Architecture

  - Entities: [User] and [Session], the truth of the server.
  - Repositories: In-memory [UserRepository] and [SessionRepository].
  - Service: Registration, login, refresh rotation and revocation.
  - Handler: chi routes mounted under /api by [NewServer].
*/
package devapi

import (
	"time"
)

// # Domain Entities

// User represents a registered account.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	DisplayName  string
	Avatar       string
	Cover        string
	Bio          string
	Birthday     string
	PhoneNumber  string
	Address      string
	FriendsCount int
	PostsCount   int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session represents a refresh-token session, one per signed-in device.
//
// The session ID is stable for the life of the device session; rotation only
// replaces TokenHash.
type Session struct {
	ID           string
	UserID       string
	TokenHash    string
	UserAgent    string
	IPAddress    string
	CreatedAt    time.Time
	LastActiveAt time.Time
	ExpiresAt    time.Time
	IsRevoked    bool
}

// Active reports whether the session can still be used at now.
func (s *Session) Active(now time.Time) bool {
	return !s.IsRevoked && now.Before(s.ExpiresAt)
}

// # Wire Representations

// identityView is the basic identity served by GET /auth/me and auth responses.
type identityView struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// profileView is the extended profile served by GET|PATCH /user/me.
type profileView struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	Avatar       string `json:"avatar,omitempty"`
	Cover        string `json:"cover,omitempty"`
	Bio          string `json:"bio,omitempty"`
	Birthday     string `json:"birthday,omitempty"`
	PhoneNumber  string `json:"phoneNumber,omitempty"`
	Address      string `json:"address,omitempty"`
	FriendsCount int    `json:"friendsCount"`
	PostsCount   int    `json:"postsCount"`
	CreatedAt    string `json:"createdAt"`
}

// sessionView is one entry of GET /auth/sessions.
type sessionView struct {
	ID           string `json:"id"`
	IP           string `json:"ip"`
	UserAgent    string `json:"userAgent"`
	CreatedAt    string `json:"createdAt"`
	LastActiveAt string `json:"lastActiveAt"`
	IsCurrent    bool   `json:"isCurrent"`
}

// tokensView mirrors the token block of an auth response.
type tokensView struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// authView is the body of a login or registration response.
type authView struct {
	User      identityView `json:"user"`
	Tokens    tokensView   `json:"tokens"`
	SessionID string       `json:"session_id"`
}

func (u *User) identity() identityView {
	return identityView{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Avatar:      u.Avatar,
		CreatedAt:   u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (u *User) profile() profileView {
	return profileView{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		DisplayName:  u.DisplayName,
		Avatar:       u.Avatar,
		Cover:        u.Cover,
		Bio:          u.Bio,
		Birthday:     u.Birthday,
		PhoneNumber:  u.PhoneNumber,
		Address:      u.Address,
		FriendsCount: u.FriendsCount,
		PostsCount:   u.PostsCount,
		CreatedAt:    u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (s *Session) view(currentID string) sessionView {
	return sessionView{
		ID:           s.ID,
		IP:           s.IPAddress,
		UserAgent:    s.UserAgent,
		CreatedAt:    s.CreatedAt.UTC().Format(time.RFC3339),
		LastActiveAt: s.LastActiveAt.UTC().Format(time.RFC3339),
		IsCurrent:    s.ID == currentID,
	}
}
