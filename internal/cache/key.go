// SignalHouse - Multi-Tenant Analytics Ingestion API
// Copyright 2026 SignalHouse contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalhouse/signalhouse

package cache

import (
	"strings"
	"time"
)

// SummaryKey builds the deterministic cache key for one aggregation query.
// It encodes the tenant scope, the event-type filter, and the normalized
// date range, so two logically identical queries always collide on the same
// key and two different queries never do. Unset components use sentinels
// ("all", "0", "now") rather than resolved timestamps, so the common
// default-range query stays cacheable across calls.
func SummaryKey(appID, event string, start, end *time.Time) string {
	parts := []string{
		"summary",
		orSentinel(appID, "all"),
		orSentinel(event, "all"),
		timeOrSentinel(start, "0"),
		timeOrSentinel(end, "now"),
	}
	return strings.Join(parts, ":")
}

func orSentinel(v, sentinel string) string {
	if v == "" {
		return sentinel
	}
	return v
}

func timeOrSentinel(t *time.Time, sentinel string) string {
	if t == nil || t.IsZero() {
		return sentinel
	}
	return t.UTC().Format(time.RFC3339)
}
