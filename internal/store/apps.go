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

// AppStore persists tenant applications.
type AppStore struct {
	db *DB
}

// NewAppStore creates an application store on the shared pool.
func NewAppStore(db *DB) *AppStore {
	return &AppStore{db: db}
}

// Insert creates an application row and populates the generated ID and
// creation time on the passed struct.
func (s *AppStore) Insert(ctx context.Context, app *models.Application) error {
	row := s.db.pool.QueryRow(ctx,
		`INSERT INTO apps (name, owner_email, meta)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, active`,
		app.Name, app.OwnerEmail, app.Meta,
	)
	if err := row.Scan(&app.ID, &app.CreatedAt, &app.Active); err != nil {
		return fmt.Errorf("insert app: %w", err)
	}
	return nil
}

// GetByID returns the application with the given ID, or ErrNotFound.
func (s *AppStore) GetByID(ctx context.Context, id string) (*models.Application, error) {
	var app models.Application
	row := s.db.pool.QueryRow(ctx,
		`SELECT id, name, owner_email, meta, active, created_at
		 FROM apps WHERE id = $1`,
		id,
	)
	err := row.Scan(&app.ID, &app.Name, &app.OwnerEmail, &app.Meta, &app.Active, &app.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get app: %w", err)
	}
	return &app, nil
}
