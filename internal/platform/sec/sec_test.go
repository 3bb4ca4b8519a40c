// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/taibuivan/clouds/internal/platform/sec"
)

/*
TestTokenService_RoundTrip signs an access token and verifies it back.
*/
func TestTokenService_RoundTrip(t *testing.T) {
	service, err := sec.NewEphemeralTokenService("clouds.test")
	require.NoError(t, err)

	token, err := service.GenerateAccessToken("user-1", "demo", "session-1", time.Minute)
	require.NoError(t, err)

	claims, err := service.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "demo", claims.Username)
	assert.Equal(t, "session-1", claims.SessionID)
}

/*
TestTokenService_RejectsExpired verifies expired tokens fail verification.
*/
func TestTokenService_RejectsExpired(t *testing.T) {
	service, err := sec.NewEphemeralTokenService("clouds.test")
	require.NoError(t, err)

	token, err := service.GenerateAccessToken("user-1", "demo", "", -time.Minute)
	require.NoError(t, err)

	_, err = service.VerifyToken(token)
	assert.Error(t, err)
}

/*
TestExpiresAt reads the exp claim without a key and ignores opaque tokens.
*/
func TestExpiresAt(t *testing.T) {
	service, err := sec.NewEphemeralTokenService("clouds.test")
	require.NoError(t, err)

	token, err := service.GenerateAccessToken("user-1", "demo", "", 10*time.Minute)
	require.NoError(t, err)

	exp, ok := sec.ExpiresAt(token)
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), exp, 5*time.Second)

	_, ok = sec.ExpiresAt("opaque-token")
	assert.False(t, ok)
}

/*
TestPasswordHash checks bcrypt hashing at a low cost.
*/
func TestPasswordHash(t *testing.T) {
	hash, err := sec.HashPassword("password", bcrypt.MinCost)
	require.NoError(t, err)

	assert.True(t, sec.CheckPasswordHash("password", hash))
	assert.False(t, sec.CheckPasswordHash("wrong", hash))
}

/*
TestHashToken is deterministic and distinct per input.
*/
func TestHashToken(t *testing.T) {
	a := sec.HashToken("token-a")

	assert.Equal(t, a, sec.HashToken("token-a"))
	assert.NotEqual(t, a, sec.HashToken("token-b"))
	assert.Len(t, a, 64)

	random, err := sec.GenerateSecureToken(32)
	require.NoError(t, err)
	assert.NotEmpty(t, random)
}
