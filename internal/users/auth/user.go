// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements the client side of the identity lifecycle.

It turns the consumed REST contract into typed operations: login, registration,
token refresh, logout, current-user resolution and profile updates.

# Architecture

  - Service: Orchestrates the HTTP client, the token store and the profile cache.
  - Mapping: Backend user payloads (snake_case or camelCase, bare or enveloped)
    are decoded with gjson into [profile.User].

The service never holds credentials itself; the [token.Store] behind the HTTP
client is the single owner.
*/
package auth

import (
	"github.com/tidwall/gjson"

	"github.com/taibuivan/clouds/internal/session/profile"
)

// # Field Identifiers

const (
	FieldUsername    = "username"
	FieldEmail       = "email"
	FieldPassword    = "password"
	FieldDisplayName = "displayName"
	FieldBio         = "bio"
	FieldAvatar      = "avatar"
	FieldCover       = "cover"
	FieldBirthday    = "birthday"
	FieldPhoneNumber = "phoneNumber"
	FieldAddress     = "address"
)

// userPaths lists where a response may carry the user object.
var userPaths = []string{"user", "data.user", "data"}

// sessionPaths lists where a response may carry the session identifier.
var sessionPaths = []string{
	"session_id", "sessionId", "tokens.session_id",
	"data.session_id", "data.sessionId", "data.tokens.session_id",
}

// decodeUser extracts the user from an auth or profile response.
//
// Accepts {"user": {...}}, {"data": {"user": {...}}}, {"data": {...}} or a
// bare user object. The object must carry an id. Display defaults are not
// applied so the result can still be merged.
func decodeUser(body []byte) (profile.User, bool) {
	if !gjson.ValidBytes(body) {
		return profile.User{}, false
	}

	root := gjson.ParseBytes(body)
	candidate := root
	for _, path := range userPaths {
		if value := root.Get(path); value.IsObject() && value.Get("id").Exists() {
			candidate = value
			break
		}
	}

	user := mapUser(candidate)
	if user.ID == "" {
		return profile.User{}, false
	}
	return user, true
}

// mapUser reads one backend user object. Both naming conventions are accepted.
func mapUser(object gjson.Result) profile.User {
	text := func(keys ...string) string {
		for _, key := range keys {
			if value := object.Get(key); value.Exists() && value.Type != gjson.Null {
				return value.String()
			}
		}
		return ""
	}
	count := func(keys ...string) int {
		for _, key := range keys {
			if value := object.Get(key); value.Type == gjson.Number {
				return int(value.Int())
			}
		}
		return 0
	}

	return profile.User{
		ID:           text("id"),
		Username:     text("username"),
		DisplayName:  text("displayName", "display_name"),
		Email:        text("email"),
		Avatar:       text("avatar", "avatar_url", "avatarUrl"),
		Cover:        text("cover", "cover_url", "coverUrl"),
		Bio:          text("bio"),
		IsOnline:     object.Get("isOnline").Bool() || object.Get("is_online").Bool(),
		FriendsCount: count("friendsCount", "friends_count"),
		PostsCount:   count("postsCount", "posts_count"),
		CreatedAt:    text("createdAt", "created_at"),
		Birthday:     text("birthday"),
		PhoneNumber:  text("phoneNumber", "phone_number"),
		Address:      text("address"),
	}
}

// mergeProfile combines the basic identity with the extended profile.
// Identity fields always come from basic; everything else prefers extended.
func mergeProfile(basic, extended profile.User) profile.User {
	merged := extended
	merged.ID = basic.ID
	merged.Username = basic.Username

	fill := func(target *string, fallback string) {
		if *target == "" {
			*target = fallback
		}
	}
	fill(&merged.Email, basic.Email)
	fill(&merged.DisplayName, basic.DisplayName)
	fill(&merged.Avatar, basic.Avatar)
	fill(&merged.Cover, basic.Cover)
	fill(&merged.Bio, basic.Bio)
	fill(&merged.CreatedAt, basic.CreatedAt)
	fill(&merged.Birthday, basic.Birthday)
	fill(&merged.PhoneNumber, basic.PhoneNumber)
	fill(&merged.Address, basic.Address)

	if merged.FriendsCount == 0 {
		merged.FriendsCount = basic.FriendsCount
	}
	if merged.PostsCount == 0 {
		merged.PostsCount = basic.PostsCount
	}

	return merged.WithDefaults()
}

// sessionIDFrom returns the session identifier carried by an auth response.
func sessionIDFrom(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	root := gjson.ParseBytes(body)
	for _, path := range sessionPaths {
		if value := root.Get(path); value.Type == gjson.String && value.Str != "" {
			return value.Str
		}
	}
	return ""
}
