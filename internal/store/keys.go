// SignalHouse - Multi-Tenant Analytics Ingestion API
// Copyright 2026 SignalHouse contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalhouse/signalhouse

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/signalhouse/signalhouse/internal/models"
)

// KeyStore is the credential store: it persists API key rows with their
// one-way secret hashes. The plaintext secret never reaches this layer.
type KeyStore struct {
	db *DB
}

// NewKeyStore creates a credential store on the shared pool.
func NewKeyStore(db *DB) *KeyStore {
	return &KeyStore{db: db}
}

// Insert persists a new key row and populates the generated ID and creation
// time on the passed struct.
func (s *KeyStore) Insert(ctx context.Context, key *models.APIKey) error {
	row := s.db.pool.QueryRow(ctx,
		`INSERT INTO api_keys (app_id, key_hash, expires_at)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		key.AppID, key.KeyHash, key.ExpiresAt,
	)
	if err := row.Scan(&key.ID, &key.CreatedAt); err != nil {
		return fmt.Errorf("insert key: %w", err)
	}
	return nil
}

// GetByID returns the key with the given ID regardless of eligibility,
// or ErrNotFound.
func (s *KeyStore) GetByID(ctx context.Context, id string) (*models.APIKey, error) {
	var key models.APIKey
	row := s.db.pool.QueryRow(ctx,
		`SELECT id, app_id, key_hash, created_at, expires_at, revoked
		 FROM api_keys WHERE id = $1`,
		id,
	)
	err := row.Scan(&key.ID, &key.AppID, &key.KeyHash, &key.CreatedAt, &key.ExpiresAt, &key.Revoked)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get key: %w", err)
	}
	return &key, nil
}

// Eligible returns the most recently created keys that are not revoked and
// not expired, in descending creation order. The limit bounds the validator's
// worst-case scan; ordering must be stable so validation is deterministic.
func (s *KeyStore) Eligible(ctx context.Context, limit int) ([]models.APIKey, error) {
	rows, err := s.db.pool.Query(ctx,
		`SELECT id, app_id, key_hash, created_at, expires_at, revoked
		 FROM api_keys
		 WHERE NOT revoked AND (expires_at IS NULL OR expires_at > now())
		 ORDER BY created_at DESC, id DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query eligible keys: %w", err)
	}
	defer rows.Close()

	var keys []models.APIKey
	for rows.Next() {
		var key models.APIKey
		if err := rows.Scan(&key.ID, &key.AppID, &key.KeyHash, &key.CreatedAt, &key.ExpiresAt, &key.Revoked); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate eligible keys: %w", err)
	}
	return keys, nil
}

// NewestActive returns the most recently created non-revoked key for an
// application, or ErrNotFound.
func (s *KeyStore) NewestActive(ctx context.Context, appID string) (*models.APIKey, error) {
	var key models.APIKey
	row := s.db.pool.QueryRow(ctx,
		`SELECT id, app_id, key_hash, created_at, expires_at, revoked
		 FROM api_keys
		 WHERE app_id = $1 AND NOT revoked
		 ORDER BY created_at DESC
		 LIMIT 1`,
		appID,
	)
	err := row.Scan(&key.ID, &key.AppID, &key.KeyHash, &key.CreatedAt, &key.ExpiresAt, &key.Revoked)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get newest key: %w", err)
	}
	return &key, nil
}

// SetRevoked flips the revoked flag. Revoking an already-revoked key
// succeeds; an unknown ID returns ErrNotFound.
func (s *KeyStore) SetRevoked(ctx context.Context, id string, revoked bool) error {
	tag, err := s.db.pool.Exec(ctx,
		`UPDATE api_keys SET revoked = $2 WHERE id = $1`,
		id, revoked,
	)
	if err != nil {
		return fmt.Errorf("update revoked: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceHash swaps in a fresh secret hash, clears the revoked flag, and
// resets the creation time. The key keeps its ID and application binding,
// which makes the previous secret permanently unusable while preserving the
// key's identity.
func (s *KeyStore) ReplaceHash(ctx context.Context, id, hash string) (time.Time, error) {
	var createdAt time.Time
	row := s.db.pool.QueryRow(ctx,
		`UPDATE api_keys
		 SET key_hash = $2, revoked = false, created_at = now()
		 WHERE id = $1
		 RETURNING created_at`,
		id, hash,
	)
	err := row.Scan(&createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, ErrNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("replace hash: %w", err)
	}
	return createdAt, nil
}
