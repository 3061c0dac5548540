// SignalHouse - Multi-Tenant Analytics Ingestion API
// Copyright 2026 SignalHouse contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalhouse/signalhouse

// Package api implements the HTTP surface of SignalHouse: tenant
// registration and key management, event collection and aggregation,
// short URLs, and the admission middleware guarding them.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/signalhouse/signalhouse/internal/cache"
	"github.com/signalhouse/signalhouse/internal/models"
	"github.com/signalhouse/signalhouse/internal/store"
)

// KeyManager is the credential lifecycle surface the handlers call.
type KeyManager interface {
	KeyValidator
	Issue(ctx context.Context, appID string) (*models.APIKey, string, error)
	Revoke(ctx context.Context, keyID string) error
	Regenerate(ctx context.Context, keyID string) (string, error)
}

// AppStore persists tenant applications.
type AppStore interface {
	Insert(ctx context.Context, app *models.Application) error
	GetByID(ctx context.Context, id string) (*models.Application, error)
}

// KeyReader reads key metadata without touching secrets.
type KeyReader interface {
	NewestActive(ctx context.Context, appID string) (*models.APIKey, error)
}

// EventStore persists events and runs the aggregation queries.
type EventStore interface {
	InsertBatch(ctx context.Context, events []models.Event) (int64, error)
	Summary(ctx context.Context, f store.EventFilter) (*models.EventSummary, error)
	UserStats(ctx context.Context, appID, userID string, limit int) (*models.UserStats, error)
}

// ShortURLStore persists short URLs and their clicks.
type ShortURLStore interface {
	Insert(ctx context.Context, u *models.ShortURL) error
	GetByCode(ctx context.Context, code string) (*models.ShortURL, error)
	RecordClick(ctx context.Context, click *models.ShortURLClick) error
	ClickCount(ctx context.Context, shortURLID string) (int64, error)
}

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler carries the wired dependencies for every route. Handlers log
// through logging.Ctx so every entry carries the request ID set by the
// middleware.
type Handler struct {
	apps       AppStore
	keys       KeyManager
	keyReader  KeyReader
	events     EventStore
	shortURLs  ShortURLStore
	cache      *cache.Cache
	summaryTTL time.Duration
	db         Pinger
	redis      Pinger
}

// HandlerConfig wires a Handler. Redis may be nil; the readiness check then
// reports only the database.
type HandlerConfig struct {
	Apps       AppStore
	Keys       KeyManager
	KeyReader  KeyReader
	Events     EventStore
	ShortURLs  ShortURLStore
	Cache      *cache.Cache
	SummaryTTL time.Duration
	DB         Pinger
	Redis      Pinger
}

// NewHandler creates the API handler.
func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.SummaryTTL <= 0 {
		cfg.SummaryTTL = cache.DefaultTTL
	}
	return &Handler{
		apps:       cfg.Apps,
		keys:       cfg.Keys,
		keyReader:  cfg.KeyReader,
		events:     cfg.Events,
		shortURLs:  cfg.ShortURLs,
		cache:      cfg.Cache,
		summaryTTL: cfg.SummaryTTL,
		db:         cfg.DB,
		redis:      cfg.Redis,
	}
}

// Health reports overall service health including backing stores.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if err := h.db.Ping(ctx); err != nil {
		checks["database"] = err.Error()
		healthy = false
	} else {
		checks["database"] = "ok"
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx); err != nil {
			// Redis is a soft dependency: rate limiting falls back to the
			// local table and the cache degrades to computing every request.
			checks["redis"] = err.Error()
		} else {
			checks["redis"] = "ok"
		}
	}

	status := http.StatusOK
	state := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "unhealthy"
	}
	respondJSON(w, status, map[string]any{
		"status": state,
		"time":   time.Now().UTC().Format(time.RFC3339),
		"checks": checks,
	})
}

// Live is the liveness probe: the process is up and serving.
func (h *Handler) Live(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// Ready is the readiness probe: the database must be reachable.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		respondError(w, r, http.StatusServiceUnavailable, "database unavailable", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
