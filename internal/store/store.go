// SignalHouse - Multi-Tenant Analytics Ingestion API
// Copyright 2026 SignalHouse contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalhouse/signalhouse

// Package store implements the relational persistence layer on PostgreSQL
// via pgx v5. It owns the apps, api_keys, events, short_urls, and
// short_url_clicks tables and exposes the narrow query surface the rest of
// the application consumes: key-value lookups, filtered range scans, and the
// event aggregation query.
//
// The schema is applied at startup from an embedded SQL file. Every
// statement is idempotent (CREATE TABLE IF NOT EXISTS) so repeated startups
// are safe without a migration framework.
package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

//go:embed schema.sql
var schemaSQL string

// ErrNotFound is returned when a lookup by identifier matches no row.
// Callers map it to a 404 at the request boundary.
var ErrNotFound = errors.New("not found")

// DB wraps the pgx connection pool and is the root of all store types.
type DB struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// Connect opens a pgx pool against the given DSN and verifies connectivity.
func Connect(ctx context.Context, dsn string, logger *zerolog.Logger) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{
		pool:   pool,
		logger: logger.With().Str("component", "store").Logger(),
	}, nil
}

// Close releases the connection pool.
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Ping verifies the database is reachable. Used by the readiness endpoint.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// ApplySchema executes the embedded schema file.
func (db *DB) ApplySchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	db.logger.Info().Msg("Database schema applied")
	return nil
}
