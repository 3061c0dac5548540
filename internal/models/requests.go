// SignalHouse - Multi-Tenant Analytics Ingestion API
// Copyright 2026 SignalHouse contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalhouse/signalhouse

package models

// Request payloads for the registration and key management endpoints.
// Validation tags are enforced with go-playground/validator at the handler
// boundary.

// RegisterRequest creates a new application and issues its first API key.
type RegisterRequest struct {
	Name       string         `json:"name" validate:"required,max=255"`
	OwnerEmail string         `json:"owner_email" validate:"required,email"`
	Meta       map[string]any `json:"meta,omitempty"`
}

// KeyActionRequest identifies a key for revoke and regenerate operations.
type KeyActionRequest struct {
	KeyID string `json:"key_id" validate:"required,uuid4"`
}

// CreateShortURLRequest creates a short URL. Ownership comes from the
// authenticated credential, never from the payload.
type CreateShortURLRequest struct {
	TargetURL string `json:"target_url" validate:"required,url"`
	ShortCode string `json:"short_code,omitempty" validate:"omitempty,min=4,max=64"`
}

// IssuedKey is the one-time response shape carrying a plaintext secret.
// Token is shown exactly once; afterwards only the hash exists.
type IssuedKey struct {
	ID        string `json:"id"`
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at,omitempty"`
}
