// SignalHouse - Multi-Tenant Analytics Ingestion API
// Copyright 2026 SignalHouse contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalhouse/signalhouse

// Package ratelimit implements the per-identifier request rate limiter that
// gates every authenticated call.
//
// Counting happens against a shared Redis counter so limits hold across
// instances. A circuit breaker wraps every Redis call; when Redis is
// unreachable the limiter degrades to an in-process counter table, and any
// other unexpected failure admits the request (fail-open): availability is
// prioritized over strict limiting. Fail-closed is available as a
// configuration option for deployments that prefer strictness.
package ratelimit

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/signalhouse/signalhouse/internal/metrics"
)

const (
	// DefaultMax is the default number of requests allowed per window.
	DefaultMax = 1000

	// DefaultWindow is the default rolling window length.
	DefaultWindow = 60 * time.Second

	// DefaultStoreTimeout bounds each shared store round trip so a slow
	// Redis cannot stall the request pipeline.
	DefaultStoreTimeout = 1 * time.Second
)

// CounterStore is the shared counter store contract: a single round trip
// that atomically increments the counter for a key and reports the new
// value, arming the key's expiry when the increment created it. Any error
// is treated as "unreachable" by the limiter.
type CounterStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// Config tunes the limiter. Zero values fall back to the defaults above.
type Config struct {
	Max          int
	Window       time.Duration
	StoreTimeout time.Duration

	// FailClosed rejects requests when the shared store errors instead of
	// degrading to the local table. Off by default.
	FailClosed bool
}

// Limiter counts requests per identifier within a rolling window.
type Limiter struct {
	store        CounterStore // nil means local-only operation
	local        *localTable
	breaker      *gobreaker.CircuitBreaker[int64]
	max          int
	window       time.Duration
	storeTimeout time.Duration
	failClosed   bool
	logger       zerolog.Logger
}

// New creates a limiter backed by the given shared counter store. Passing a
// nil store runs the limiter purely against its local table. The local
// fallback table is owned by the returned limiter, so independent limiters
// never share counters.
func New(store CounterStore, cfg Config, logger *zerolog.Logger) *Limiter {
	if cfg.Max == 0 {
		cfg.Max = DefaultMax
	}
	if cfg.Window == 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.StoreTimeout == 0 {
		cfg.StoreTimeout = DefaultStoreTimeout
	}

	breaker := gobreaker.NewCircuitBreaker[int64](gobreaker.Settings{
		Name:    "ratelimit-counter-store",
		Timeout: 10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})

	return &Limiter{
		store:        store,
		local:        newLocalTable(),
		breaker:      breaker,
		max:          cfg.Max,
		window:       cfg.Window,
		storeTimeout: cfg.StoreTimeout,
		failClosed:   cfg.FailClosed,
		logger:       logger.With().Str("component", "ratelimit").Logger(),
	}
}

// Allow records one request for the identifier and reports whether it is
// within the limit. The decision is false exactly when the post-increment
// count for the current window exceeds the configured max.
func (l *Limiter) Allow(ctx context.Context, identifier string) bool {
	key := "rl:" + identifier

	if l.store != nil {
		count, err := l.breaker.Execute(func() (int64, error) {
			incrCtx, cancel := context.WithTimeout(ctx, l.storeTimeout)
			defer cancel()
			return l.store.Incr(incrCtx, key, l.window)
		})
		if err == nil {
			return l.decide(count, "redis")
		}

		metrics.RateLimitStoreErrors.Inc()
		l.logger.Warn().Err(err).Msg("Shared counter store unreachable, using fallback")

		if l.failClosed {
			metrics.RateLimitDecisions.WithLabelValues("denied", "none").Inc()
			return false
		}
	}

	return l.decide(l.local.incr(key, l.window), "local")
}

func (l *Limiter) decide(count int64, backend string) bool {
	if count > int64(l.max) {
		metrics.RateLimitDecisions.WithLabelValues("denied", backend).Inc()
		return false
	}
	metrics.RateLimitDecisions.WithLabelValues("allowed", backend).Inc()
	return true
}
