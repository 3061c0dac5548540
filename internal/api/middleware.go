// SignalHouse - Multi-Tenant Analytics Ingestion API
// Copyright 2026 SignalHouse contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalhouse/signalhouse

package api

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/signalhouse/signalhouse/internal/models"
)

// The admission pipeline: APIKeyAuth validates the presented credential and
// RateLimit gates the request on the per-identifier counter. Both convert
// every failure into a JSON error response; nothing here panics through to
// the request boundary.

type ctxKey int

const (
	ctxKeyAppID ctxKey = iota
	ctxKeyKeyID
)

// KeyValidator matches a presented secret to a live key, or nil.
type KeyValidator interface {
	Validate(ctx context.Context, presented string) *models.APIKey
}

// RequestLimiter decides whether one more request for an identifier is
// within the limit.
type RequestLimiter interface {
	Allow(ctx context.Context, identifier string) bool
}

// ExtractSecret pulls the presented API key from a request: the x-api-key
// header, or an Authorization header using the "ApiKey <secret>" or
// "Bearer <secret>" scheme. Returns "" when absent.
func ExtractSecret(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get("x-api-key")); v != "" {
		return v
	}

	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	for _, scheme := range []string{"ApiKey ", "Bearer "} {
		if len(auth) > len(scheme) && strings.EqualFold(auth[:len(scheme)], scheme) {
			return strings.TrimSpace(auth[len(scheme):])
		}
	}
	return ""
}

// APIKeyAuth authenticates every request on the wrapped routes. A missing
// or unmatched secret yields 401 with the {"error": ...} body; on success
// the matched key's application and key IDs are stored in the context.
func APIKeyAuth(validator KeyValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			secret := ExtractSecret(r)
			if secret == "" {
				respondError(w, r, http.StatusUnauthorized, "Missing API key", nil)
				return
			}

			key := validator.Validate(r.Context(), secret)
			if key == nil {
				respondError(w, r, http.StatusUnauthorized, "Invalid or expired API key", nil)
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyAppID, key.AppID)
			ctx = context.WithValue(ctx, ctxKeyKeyID, key.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RateLimit gates requests on the per-identifier counter. The identifier is
// the authenticated key ID when present, then the client address, then a
// constant anonymous bucket.
func RateLimit(limiter RequestLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(r.Context(), identifierFor(r)) {
				respondError(w, r, http.StatusTooManyRequests, "Rate limit exceeded", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// identifierFor selects the rate-limit bucket for a request.
func identifierFor(r *http.Request) string {
	if keyID := KeyIDFromContext(r.Context()); keyID != "" {
		return keyID
	}
	if ip := clientIP(r); ip != "" {
		return ip
	}
	return "anon"
}

// clientIP returns the request's network origin. Chi's RealIP middleware
// has already folded X-Forwarded-For into RemoteAddr by the time this runs.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}

// AppIDFromContext returns the authenticated application ID, or "".
func AppIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(ctxKeyAppID).(string); ok {
		return id
	}
	return ""
}

// KeyIDFromContext returns the authenticated key ID, or "".
func KeyIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(ctxKeyKeyID).(string); ok {
		return id
	}
	return ""
}
