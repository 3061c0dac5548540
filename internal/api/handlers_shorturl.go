// SignalHouse - Multi-Tenant Analytics Ingestion API
// Copyright 2026 SignalHouse contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalhouse/signalhouse

package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/signalhouse/signalhouse/internal/logging"
	"github.com/signalhouse/signalhouse/internal/models"
	"github.com/signalhouse/signalhouse/internal/store"
)

// CreateShortURL creates a short code pointing at a target URL. When no
// code is supplied one is derived from a fresh UUID. The URL is owned by
// the authenticated application; a client-supplied app ID is ignored.
func (h *Handler) CreateShortURL(w http.ResponseWriter, r *http.Request) {
	var req models.CreateShortURLRequest
	if msg, err := decodeBody(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, msg, err)
		return
	}

	code := req.ShortCode
	if code == "" {
		code = strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	}

	u := &models.ShortURL{
		AppID:     AppIDFromContext(r.Context()),
		ShortCode: code,
		TargetURL: req.TargetURL,
	}
	if err := h.shortURLs.Insert(r.Context(), u); err != nil {
		respondError(w, r, http.StatusInternalServerError, "failed to create short URL", err)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("app_id", u.AppID).
		Str("short_code", u.ShortCode).
		Msg("Short URL created")

	respondJSON(w, http.StatusCreated, u)
}

// ShortURLStats returns a short URL with its click count. The code arrives
// as the short_code query parameter or as a trailing path segment.
func (h *Handler) ShortURLStats(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		code = r.URL.Query().Get("short_code")
	}
	if code == "" {
		respondError(w, r, http.StatusBadRequest, "short_code is required", nil)
		return
	}

	u, err := h.shortURLs.GetByCode(r.Context(), code)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, r, http.StatusNotFound, "short URL not found", nil)
		return
	}
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "failed to load short URL", err)
		return
	}

	clicks, err := h.shortURLs.ClickCount(r.Context(), u.ID)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "failed to count clicks", err)
		return
	}
	u.Clicks = clicks

	respondJSON(w, http.StatusOK, u)
}

// Redirect resolves a short code, records the click, and redirects.
func (h *Handler) Redirect(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	u, err := h.shortURLs.GetByCode(r.Context(), code)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, r, http.StatusNotFound, "short URL not found", nil)
		return
	}
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "failed to load short URL", err)
		return
	}

	click := &models.ShortURLClick{
		ShortURLID: u.ID,
		IPAddress:  clientIP(r),
		UserAgent:  r.UserAgent(),
	}
	if err := h.shortURLs.RecordClick(r.Context(), click); err != nil {
		// The redirect still happens; losing one click record is better
		// than breaking the link.
		logging.Ctx(r.Context()).Warn().Err(err).Str("short_code", code).Msg("Failed to record click")
	}

	http.Redirect(w, r, u.TargetURL, http.StatusFound)
}
