// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package kv

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/clouds/internal/platform/config"
)

// exerciseStore runs the behaviour every driver must share.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	// 1. Miss is not an error
	_, ok, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	// 2. Set then overwrite
	require.NoError(t, store.Set(ctx, "access_token", "first"))
	require.NoError(t, store.Set(ctx, "access_token", "second"))

	value, ok, err := store.Get(ctx, "access_token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "second", value)

	// 3. Delete several keys, including one that never existed
	require.NoError(t, store.Set(ctx, "user_cache", `{"user":{}}`))
	require.NoError(t, store.Delete(ctx, "access_token", "user_cache", "never_set"))

	_, ok, err = store.Get(ctx, "access_token")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = store.Get(ctx, "user_cache")
	require.NoError(t, err)
	assert.False(t, ok)

	// 4. Empty delete is a no-op
	assert.NoError(t, store.Delete(ctx))
}

func TestMemoryStore(t *testing.T) {
	store := NewMemory()
	exerciseStore(t, store)
	assert.Equal(t, 0, store.Len())
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "clouds.db")

	store, err := NewSQLite(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	exerciseStore(t, store)
}

/*
TestSQLiteStore_Persists reopens the file and reads the value back.
*/
func TestSQLiteStore_Persists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "clouds.db")

	store, err := NewSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "session_id", "s-1"))
	require.NoError(t, store.Close())

	reopened, err := NewSQLite(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	value, ok, err := reopened.Get(ctx, "session_id")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "s-1", value)
}

func newMockStore(t *testing.T) (*SQLite, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS kv").WillReturnResult(sqlmock.NewResult(0, 0))

	store, err := newSQLStore(context.Background(), db)
	require.NoError(t, err)
	return store, mock
}

func TestSQLiteStore_DriverErrors(t *testing.T) {
	ctx := context.Background()
	store, mock := newMockStore(t)
	diskErr := errors.New("disk I/O error")

	mock.ExpectQuery("SELECT value FROM kv").WithArgs("access_token").WillReturnError(diskErr)
	_, ok, err := store.Get(ctx, "access_token")
	assert.False(t, ok)
	assert.ErrorIs(t, err, diskErr)

	mock.ExpectQuery("SELECT value FROM kv").WithArgs("user_cache").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))
	_, ok, err = store.Get(ctx, "user_cache")
	assert.False(t, ok)
	assert.NoError(t, err)

	mock.ExpectExec("INSERT INTO kv").WithArgs("access_token", "tok").WillReturnError(diskErr)
	assert.ErrorIs(t, store.Set(ctx, "access_token", "tok"), diskErr)

	mock.ExpectExec(`DELETE FROM kv WHERE key IN \(\?,\?\)`).
		WithArgs("a", "b").
		WillReturnResult(sqlmock.NewResult(0, 2))
	assert.NoError(t, store.Delete(ctx, "a", "b"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteStore_SchemaFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS kv").WillReturnError(errors.New("read-only file system"))

	_, err = newSQLStore(context.Background(), db)
	assert.Error(t, err)
}

func TestRedisStore(t *testing.T) {
	redisURL := os.Getenv("TEST_REDIS_URL")
	if redisURL == "" {
		t.Skip("TEST_REDIS_URL not set")
	}

	options, err := redis.ParseURL(redisURL)
	require.NoError(t, err)

	store := NewRedisFromClient(redis.NewClient(options), "clouds:test:"+uuid.NewString()+":")
	t.Cleanup(func() { _ = store.Close() })

	exerciseStore(t, store)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	logger := slog.New(slog.DiscardHandler)
	store, err := NewPostgres(context.Background(), dsn, "", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	exerciseStore(t, store)
}

func TestOpen(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	store, err := Open(context.Background(), &config.Client{StoreDriver: config.DriverMemory}, logger)
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, store)

	_, err = Open(context.Background(), &config.Client{StoreDriver: "etcd"}, logger)
	assert.Error(t, err)
}
