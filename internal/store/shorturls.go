// SignalHouse - Multi-Tenant Analytics Ingestion API
// Copyright 2026 SignalHouse contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalhouse/signalhouse

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/signalhouse/signalhouse/internal/models"
)

// ShortURLStore persists short URLs and their click records.
type ShortURLStore struct {
	db *DB
}

// NewShortURLStore creates a short URL store on the shared pool.
func NewShortURLStore(db *DB) *ShortURLStore {
	return &ShortURLStore{db: db}
}

// Insert creates a short URL row and populates the generated ID and creation
// time on the passed struct.
func (s *ShortURLStore) Insert(ctx context.Context, u *models.ShortURL) error {
	row := s.db.pool.QueryRow(ctx,
		`INSERT INTO short_urls (app_id, short_code, target_url)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, clicks`,
		u.AppID, u.ShortCode, u.TargetURL,
	)
	if err := row.Scan(&u.ID, &u.CreatedAt, &u.Clicks); err != nil {
		return fmt.Errorf("insert short url: %w", err)
	}
	return nil
}

// GetByCode returns the short URL with the given code, or ErrNotFound.
func (s *ShortURLStore) GetByCode(ctx context.Context, code string) (*models.ShortURL, error) {
	var u models.ShortURL
	row := s.db.pool.QueryRow(ctx,
		`SELECT id, app_id, short_code, target_url, created_at, clicks
		 FROM short_urls WHERE short_code = $1`,
		code,
	)
	err := row.Scan(&u.ID, &u.AppID, &u.ShortCode, &u.TargetURL, &u.CreatedAt, &u.Clicks)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get short url: %w", err)
	}
	return &u, nil
}

// RecordClick inserts a click row and increments the denormalized clicks
// counter on the short URL.
func (s *ShortURLStore) RecordClick(ctx context.Context, click *models.ShortURLClick) error {
	if _, err := s.db.pool.Exec(ctx,
		`INSERT INTO short_url_clicks (short_url_id, ip_address, user_agent)
		 VALUES ($1, $2, $3)`,
		click.ShortURLID, nullable(click.IPAddress), nullable(click.UserAgent),
	); err != nil {
		return fmt.Errorf("insert click: %w", err)
	}

	if _, err := s.db.pool.Exec(ctx,
		`UPDATE short_urls SET clicks = clicks + 1 WHERE id = $1`,
		click.ShortURLID,
	); err != nil {
		return fmt.Errorf("increment clicks: %w", err)
	}
	return nil
}

// ClickCount returns the number of recorded clicks for a short URL.
func (s *ShortURLStore) ClickCount(ctx context.Context, shortURLID string) (int64, error) {
	var count int64
	row := s.db.pool.QueryRow(ctx,
		`SELECT count(*) FROM short_url_clicks WHERE short_url_id = $1`,
		shortURLID,
	)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count clicks: %w", err)
	}
	return count, nil
}
