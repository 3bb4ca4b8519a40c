// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package dberr classifies low-level database errors for the key/value drivers.
//
// A missing row is not a failure for a key/value store, it is a miss. Every
// SQL driver routes its errors through [IsNoRows] and [Wrap] so the miss
// check is the same for database/sql (SQLite) and pgx (Postgres).
package dberr

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// IsNoRows reports whether err means the queried row does not exist.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows)
}

// Wrap annotates a driver error with the failed action.
// It returns nil for nil errors.
func Wrap(err error, driver, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("kv/%s: %s: %w", driver, action, err)
}
