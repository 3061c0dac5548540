// SignalHouse - Multi-Tenant Analytics Ingestion API
// Copyright 2026 SignalHouse contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalhouse/signalhouse

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCounterStore implements CounterStore on Redis. INCR is the atomic
// increment-and-report round trip; the key's expiry is armed with PEXPIRE
// when the increment created the counter, so the window starts at the first
// request and the counter self-destructs when it elapses.
type RedisCounterStore struct {
	client *redis.Client
}

// NewRedisCounterStore wraps a Redis client as a counter store.
func NewRedisCounterStore(client *redis.Client) *RedisCounterStore {
	return &RedisCounterStore{client: client}
}

// Incr atomically increments the counter and returns the new value.
func (s *RedisCounterStore) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("incr %s: %w", key, err)
	}
	if count == 1 {
		if err := s.client.PExpire(ctx, key, window).Err(); err != nil {
			return 0, fmt.Errorf("pexpire %s: %w", key, err)
		}
	}
	return count, nil
}
