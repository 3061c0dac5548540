// SignalHouse - Multi-Tenant Analytics Ingestion API
// Copyright 2026 SignalHouse contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalhouse/signalhouse

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/signalhouse/signalhouse/internal/logging"
	"github.com/signalhouse/signalhouse/internal/models"
	"github.com/signalhouse/signalhouse/internal/store"
)

// Register creates a tenant application and issues its first API key.
// The plaintext token in the response is shown exactly once.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if msg, err := decodeBody(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, msg, err)
		return
	}

	app := &models.Application{
		Name:       req.Name,
		OwnerEmail: req.OwnerEmail,
		Meta:       req.Meta,
	}
	if err := h.apps.Insert(r.Context(), app); err != nil {
		respondError(w, r, http.StatusInternalServerError, "failed to register application", err)
		return
	}

	key, plaintext, err := h.keys.Issue(r.Context(), app.ID)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "failed to issue API key", err)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("app_id", app.ID).
		Str("key_id", key.ID).
		Msg("Application registered")

	respondJSON(w, http.StatusCreated, map[string]any{
		"app":     app,
		"api_key": issuedKey(key, plaintext),
	})
}

// GetAPIKey returns metadata for the newest active key of an application.
// The secret is not recoverable; only regeneration yields a new plaintext.
func (h *Handler) GetAPIKey(w http.ResponseWriter, r *http.Request) {
	appID := r.URL.Query().Get("app_id")
	if appID == "" {
		respondError(w, r, http.StatusBadRequest, "app_id is required", nil)
		return
	}

	key, err := h.keyReader.NewestActive(r.Context(), appID)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, r, http.StatusNotFound, "no active key for application", nil)
		return
	}
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "failed to look up key", err)
		return
	}
	respondJSON(w, http.StatusOK, key)
}

// RevokeKey soft-deletes a key so it can no longer authenticate requests.
func (h *Handler) RevokeKey(w http.ResponseWriter, r *http.Request) {
	var req models.KeyActionRequest
	if msg, err := decodeBody(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, msg, err)
		return
	}

	err := h.keys.Revoke(r.Context(), req.KeyID)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, r, http.StatusNotFound, "key not found", nil)
		return
	}
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "failed to revoke key", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"key_id": req.KeyID, "revoked": true})
}

// RegenerateKey swaps in a fresh secret for an existing key. The key keeps
// its ID and application binding; the old secret stops working immediately.
func (h *Handler) RegenerateKey(w http.ResponseWriter, r *http.Request) {
	var req models.KeyActionRequest
	if msg, err := decodeBody(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, msg, err)
		return
	}

	plaintext, err := h.keys.Regenerate(r.Context(), req.KeyID)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, r, http.StatusNotFound, "key not found", nil)
		return
	}
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "failed to regenerate key", err)
		return
	}
	respondJSON(w, http.StatusOK, models.IssuedKey{ID: req.KeyID, Token: plaintext})
}

// issuedKey builds the one-time response shape for a freshly issued key.
func issuedKey(key *models.APIKey, plaintext string) models.IssuedKey {
	out := models.IssuedKey{ID: key.ID, Token: plaintext}
	if key.ExpiresAt != nil {
		out.ExpiresAt = key.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return out
}
