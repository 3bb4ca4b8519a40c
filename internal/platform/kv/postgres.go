// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package kv

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/clouds/internal/platform/database/schema"
	"github.com/taibuivan/clouds/internal/platform/dberr"
	"github.com/taibuivan/clouds/internal/platform/migration"
	"github.com/taibuivan/clouds/internal/platform/postgres"
)

const driverPostgres = "postgres"

// # Queries

var (
	pgSelect = fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		schema.ClientKV.Value, schema.ClientKV.Table, schema.ClientKV.Key)

	pgUpsert = fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, now())
		ON CONFLICT (%s) DO UPDATE SET %s = EXCLUDED.%s, %s = EXCLUDED.%s`,
		schema.ClientKV.Table, schema.ClientKV.ColumnList(), schema.ClientKV.Key,
		schema.ClientKV.Value, schema.ClientKV.Value, schema.ClientKV.UpdatedAt, schema.ClientKV.UpdatedAt)

	pgDelete = fmt.Sprintf(`DELETE FROM %s WHERE %s = ANY($1)`, schema.ClientKV.Table, schema.ClientKV.Key)
)

// Postgres is a [Store] backed by the client_kv table.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres migrates the schema and opens a pool against dsn.
//
// # Parameters
//   - ctx: Context for the initial connection.
//   - dsn: postgres:// URL.
//   - migrationsPath: Optional migrations directory; empty uses the embedded set.
//   - logger: Structured logger for pool and migration events.
func NewPostgres(ctx context.Context, dsn, migrationsPath string, logger *slog.Logger) (*Postgres, error) {
	if err := migration.RunUp(dsn, migrationsPath, logger); err != nil {
		return nil, err
	}

	pool, err := postgres.NewPool(ctx, dsn, logger)
	if err != nil {
		return nil, err
	}

	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := p.pool.QueryRow(ctx, pgSelect, key).Scan(&value)
	if dberr.IsNoRows(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, dberr.Wrap(err, driverPostgres, "get "+key)
	}
	return value, true, nil
}

func (p *Postgres) Set(ctx context.Context, key, value string) error {
	_, err := p.pool.Exec(ctx, pgUpsert, key, value)
	return dberr.Wrap(err, driverPostgres, "set "+key)
}

func (p *Postgres) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := p.pool.Exec(ctx, pgDelete, keys)
	return dberr.Wrap(err, driverPostgres, "delete")
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
