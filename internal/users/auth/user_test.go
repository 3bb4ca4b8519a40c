// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/clouds/internal/platform/constants"
	"github.com/taibuivan/clouds/internal/session/profile"
)

func TestDecodeUser(t *testing.T) {
	tests := []struct {
		name string
		body string
		ok   bool
		want profile.User
	}{
		{
			name: "auth response, snake case",
			body: `{"data":{"user":{"id":"u1","username":"ann","display_name":"Ann","avatar_url":"https://a/x.png","created_at":"2026-01-01"},"tokens":{}}}`,
			ok:   true,
			want: profile.User{ID: "u1", Username: "ann", DisplayName: "Ann", Avatar: "https://a/x.png", CreatedAt: "2026-01-01"},
		},
		{
			name: "profile envelope, camel case",
			body: `{"data":{"id":"u1","username":"ann","displayName":"Ann","friendsCount":3,"phoneNumber":"+84"}}`,
			ok:   true,
			want: profile.User{ID: "u1", Username: "ann", DisplayName: "Ann", FriendsCount: 3, PhoneNumber: "+84"},
		},
		{
			name: "top-level user key",
			body: `{"user":{"id":"u2","username":"bob","is_online":true}}`,
			ok:   true,
			want: profile.User{ID: "u2", Username: "bob", IsOnline: true},
		},
		{
			name: "bare object with null fields",
			body: `{"id":"u3","username":"cy","bio":null}`,
			ok:   true,
			want: profile.User{ID: "u3", Username: "cy"},
		},
		{name: "no id", body: `{"data":{"username":"ghost"}}`},
		{name: "not json", body: `<html></html>`},
		{name: "empty", body: ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, ok := decodeUser([]byte(tt.body))
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, user)
		})
	}
}

func TestMergeProfile(t *testing.T) {
	basic := profile.User{ID: "u1", Username: "ann", Email: "ann@x.io", DisplayName: "Ann", Avatar: "https://a/basic.png"}
	extended := profile.User{ID: "other", Username: "renamed", Bio: "hi", FriendsCount: 5}

	merged := mergeProfile(basic, extended)

	assert.Equal(t, "u1", merged.ID)
	assert.Equal(t, "ann", merged.Username)
	assert.Equal(t, "ann@x.io", merged.Email)
	assert.Equal(t, "https://a/basic.png", merged.Avatar)
	assert.Equal(t, "hi", merged.Bio)
	assert.Equal(t, 5, merged.FriendsCount)
	assert.True(t, merged.IsOnline)

	t.Run("defaults apply after the merge", func(t *testing.T) {
		merged := mergeProfile(profile.User{ID: "u1", Username: "ann"}, profile.User{})
		assert.Equal(t, "ann", merged.DisplayName)
		assert.Equal(t, constants.DefaultAvatarURL, merged.Avatar)
	})
}

func TestSessionIDFrom(t *testing.T) {
	assert.Equal(t, "s1", sessionIDFrom([]byte(`{"data":{"session_id":"s1"}}`)))
	assert.Equal(t, "s2", sessionIDFrom([]byte(`{"sessionId":"s2"}`)))
	assert.Equal(t, "s3", sessionIDFrom([]byte(`{"data":{"tokens":{"session_id":"s3"}}}`)))
	assert.Empty(t, sessionIDFrom([]byte(`{"data":{"session_id":""}}`)))
	assert.Empty(t, sessionIDFrom([]byte(`nope`)))
}
