// SignalHouse - Multi-Tenant Analytics Ingestion API
// Copyright 2026 SignalHouse contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalhouse/signalhouse

// Package cache implements the read-through aggregation cache that shields
// the event summary query from repeated load.
//
// There is no negative caching and no stampede protection: concurrent misses
// for the same key may each run the compute function. The TTL is short
// (60 seconds by default) and identical filter combinations rarely collide,
// so the extra computes are an accepted trade-off.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/signalhouse/signalhouse/internal/metrics"
)

// DefaultTTL is the default lifetime of a cached aggregation result.
const DefaultTTL = 60 * time.Second

// ErrMiss is returned by a Store when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Store is the shared cache store contract: get and set-with-TTL on a
// single key. Errors other than ErrMiss signal an unreachable store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// ComputeFunc produces the real value on a cache miss.
type ComputeFunc func(ctx context.Context) ([]byte, error)

// Cache memoizes expensive computations in a shared store.
type Cache struct {
	store  Store
	logger zerolog.Logger
}

// New creates a read-through cache on the given store. A nil store disables
// caching: every GetOrCompute runs the compute function.
func New(store Store, logger *zerolog.Logger) *Cache {
	return &Cache{
		store:  store,
		logger: logger.With().Str("component", "summary_cache").Logger(),
	}
}

// GetOrCompute returns the cached value for key when present and unexpired;
// otherwise it runs compute, stores the result with the given TTL, and
// returns it.
//
// A failed read is treated as a miss and a failed write is logged and
// tolerated. The freshly computed value is returned either way, so a cache
// outage degrades to computing every request rather than failing it.
func (c *Cache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute ComputeFunc) ([]byte, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	if c.store == nil {
		metrics.CacheMisses.Inc()
		return compute(ctx)
	}

	cached, err := c.store.Get(ctx, key)
	if err == nil {
		metrics.CacheHits.Inc()
		return cached, nil
	}
	if !errors.Is(err, ErrMiss) {
		c.logger.Warn().Err(err).Str("key", key).Msg("Cache store unreachable, computing directly")
	}
	metrics.CacheMisses.Inc()

	value, err := compute(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.store.Set(ctx, key, value, ttl); err != nil {
		metrics.CacheWriteErrors.Inc()
		c.logger.Warn().Err(err).Str("key", key).Msg("Failed to write cache entry")
	}

	return value, nil
}
