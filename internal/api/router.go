// SignalHouse - Multi-Tenant Analytics Ingestion API
// Copyright 2026 SignalHouse contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalhouse/signalhouse

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/signalhouse/signalhouse/internal/middleware"
)

// RouterConfig tunes the route-level middleware.
type RouterConfig struct {
	CORSOrigins []string

	// Per-IP limit on the unauthenticated registration and key management
	// routes, which sit in front of the credential-based limiter.
	IPRateLimitMax    int
	IPRateLimitWindow time.Duration
}

// NewRouter assembles the full route tree.
//
// Route groups and their admission:
//   - /api/v1/health, /metrics: open
//   - /api/v1/auth/*: per-IP rate limit only (no credential exists yet)
//   - /api/v1/analytics/*: API key auth, then per-key rate limit
//   - /api/v1/short/*: API key auth, then per-key rate limit
//   - /r/{code}: open redirect path
func NewRouter(h *Handler, limiter RequestLimiter, cfg RouterConfig) http.Handler {
	if cfg.IPRateLimitMax <= 0 {
		cfg.IPRateLimitMax = 60
	}
	if cfg.IPRateLimitWindow <= 0 {
		cfg.IPRateLimitWindow = time.Minute
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.PrometheusMetrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "x-api-key"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/health/live", h.Live)
		r.Get("/health/ready", h.Ready)

		r.Route("/auth", func(r chi.Router) {
			r.Use(httprate.LimitByIP(cfg.IPRateLimitMax, cfg.IPRateLimitWindow))
			r.Post("/register", h.Register)
			r.Get("/api-key", h.GetAPIKey)
			r.Post("/revoke", h.RevokeKey)
			r.Post("/regenerate", h.RegenerateKey)
		})

		r.Route("/analytics", func(r chi.Router) {
			r.Use(APIKeyAuth(h.keys))
			r.Use(RateLimit(limiter))
			r.Post("/collect", h.Collect)
			r.Get("/event-summary", h.EventSummary)
			r.Get("/user-stats", h.UserStats)
		})

		r.Route("/short", func(r chi.Router) {
			r.Use(APIKeyAuth(h.keys))
			r.Use(RateLimit(limiter))
			r.Post("/create", h.CreateShortURL)
			r.Get("/stats", h.ShortURLStats)
			r.Get("/stats/{code}", h.ShortURLStats)
		})
	})

	r.Get("/r/{code}", h.Redirect)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
