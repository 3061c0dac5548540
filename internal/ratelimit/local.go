// SignalHouse - Multi-Tenant Analytics Ingestion API
// Copyright 2026 SignalHouse contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalhouse/signalhouse

package ratelimit

import (
	"sync"
	"time"
)

// localCounter is one identifier's count within the current window.
type localCounter struct {
	count       int64
	windowStart time.Time
}

// localTable is the in-process fallback counter store. It is owned by a
// single Limiter and guarded by one mutex; a shared counter store and the
// local table are never consulted for the same request, so an identifier's
// count lives in exactly one place at a time.
type localTable struct {
	mu       sync.Mutex
	counters map[string]*localCounter
	now      func() time.Time
}

func newLocalTable() *localTable {
	return &localTable{
		counters: make(map[string]*localCounter),
		now:      time.Now,
	}
}

// incr increments the counter for key, rolling the window over when the
// elapsed time since the window start exceeds the window length. Returns the
// post-increment count.
func (t *localTable) incr(key string, window time.Duration) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	c, ok := t.counters[key]
	if !ok || now.Sub(c.windowStart) > window {
		c = &localCounter{windowStart: now}
		t.counters[key] = c
	}
	c.count++
	return c.count
}
