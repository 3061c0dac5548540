// SignalHouse - Multi-Tenant Analytics Ingestion API
// Copyright 2026 SignalHouse contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalhouse/signalhouse

// Package models defines the core domain types shared across SignalHouse:
// tenant applications, API key credentials, tracking events, and short URLs.
package models

import "time"

// Application is the identity of a registered tenant. Applications are
// created once at registration and never mutated by the admission core;
// their keys cascade-delete with them.
type Application struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	OwnerEmail string         `json:"owner_email"`
	Meta       map[string]any `json:"meta,omitempty"`
	Active     bool           `json:"active"`
	CreatedAt  time.Time      `json:"created_at"`
}

// APIKey is a credential bound to exactly one Application.
//
// The plaintext secret is generated once, returned to the caller exactly
// once at issuance or regeneration, and never persisted or logged. Only the
// bcrypt hash is stored. Revocation is a soft delete: the row is never
// physically removed, so the key ID stays valid for lookup and audit.
type APIKey struct {
	ID        string     `json:"id"`
	AppID     string     `json:"app_id"`
	KeyHash   string     `json:"-"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Revoked   bool       `json:"revoked"`
}

// IsExpired reports whether the key is past its expiry time.
// Keys without an expiry never expire.
func (k *APIKey) IsExpired() bool {
	return k.ExpiresAt != nil && time.Now().After(*k.ExpiresAt)
}

// IsEligible reports whether the key may authenticate requests:
// not revoked and not expired.
func (k *APIKey) IsEligible() bool {
	return !k.Revoked && !k.IsExpired()
}

// Event is a single tracking event submitted by a tenant application.
type Event struct {
	ID        int64          `json:"id,omitempty"`
	AppID     string         `json:"app_id"`
	EventType string         `json:"event_type"`
	URL       string         `json:"url,omitempty"`
	Referrer  string         `json:"referrer,omitempty"`
	Device    string         `json:"device,omitempty"`
	IPAddress string         `json:"ip_address,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	UserID    string         `json:"user_id,omitempty"`
}

// EventSummary is the aggregated statistics response for one tenant scope,
// event-type filter, and date range. It is what the aggregation cache
// memoizes.
type EventSummary struct {
	Event       string           `json:"event"`
	Count       int64            `json:"count"`
	UniqueUsers int64            `json:"uniqueUsers"`
	DeviceData  map[string]int64 `json:"deviceData"`
}

// UserStats describes one end user's recent activity within a tenant.
type UserStats struct {
	UserID       string         `json:"userId"`
	TotalEvents  int64          `json:"totalEvents"`
	RecentEvents []UserEvent    `json:"recentEvents"`
	DeviceInfo   map[string]any `json:"deviceDetails,omitempty"`
}

// UserEvent is the trimmed event shape returned by the user-stats query.
type UserEvent struct {
	ID        int64          `json:"id"`
	Event     string         `json:"event"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ShortURL maps a short code to a target URL owned by an application.
type ShortURL struct {
	ID        string    `json:"id"`
	AppID     string    `json:"app_id"`
	ShortCode string    `json:"short_code"`
	TargetURL string    `json:"target_url"`
	CreatedAt time.Time `json:"created_at"`
	Clicks    int64     `json:"clicks"`
}

// ShortURLClick records one redirect through a short URL.
type ShortURLClick struct {
	ID         int64     `json:"id"`
	ShortURLID string    `json:"short_url_id"`
	IPAddress  string    `json:"ip_address,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
