// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package kv

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	// Pure-Go SQLite driver registered as "sqlite".
	_ "modernc.org/sqlite"

	"github.com/taibuivan/clouds/internal/platform/database/schema"
	"github.com/taibuivan/clouds/internal/platform/dberr"
)

const driverSQLite = "sqlite"

// # Queries

var (
	sqliteCreateTable = fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		%s TEXT PRIMARY KEY,
		%s TEXT NOT NULL,
		%s INTEGER NOT NULL
	)`, schema.LocalKV.Table, schema.LocalKV.Key, schema.LocalKV.Value, schema.LocalKV.UpdatedAt)

	sqliteSelect = fmt.Sprintf(`SELECT %s FROM %s WHERE %s = ?`,
		schema.LocalKV.Value, schema.LocalKV.Table, schema.LocalKV.Key)

	sqliteUpsert = fmt.Sprintf(`INSERT INTO %s (%s) VALUES (?, ?, strftime('%%s','now'))
		ON CONFLICT(%s) DO UPDATE SET %s = excluded.%s, %s = excluded.%s`,
		schema.LocalKV.Table, schema.LocalKV.ColumnList(), schema.LocalKV.Key,
		schema.LocalKV.Value, schema.LocalKV.Value, schema.LocalKV.UpdatedAt, schema.LocalKV.UpdatedAt)

	sqliteDelete = fmt.Sprintf(`DELETE FROM %s WHERE %s IN `, schema.LocalKV.Table, schema.LocalKV.Key)
)

// SQLite is a [Store] backed by a single database file.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the database file at path.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("kv/sqlite: failed to create directory: %w", err)
	}

	db, err := sql.Open(driverSQLite, path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("kv/sqlite: failed to open %s: %w", path, err)
	}

	store, err := newSQLStore(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// newSQLStore prepares the schema on an already opened handle.
func newSQLStore(ctx context.Context, db *sql.DB) (*SQLite, error) {
	if _, err := db.ExecContext(ctx, sqliteCreateTable); err != nil {
		return nil, dberr.Wrap(err, driverSQLite, "create table")
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, sqliteSelect, key).Scan(&value)
	if dberr.IsNoRows(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, dberr.Wrap(err, driverSQLite, "get "+key)
	}
	return value, true, nil
}

func (s *SQLite) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, sqliteUpsert, key, value)
	return dberr.Wrap(err, driverSQLite, "set "+key)
}

func (s *SQLite) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, len(keys))
	for i, key := range keys {
		args[i] = key
	}

	_, err := s.db.ExecContext(ctx, sqliteDelete+"("+placeholders+")", args...)
	return dberr.Wrap(err, driverSQLite, "delete")
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
