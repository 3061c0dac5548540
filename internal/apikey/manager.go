// SignalHouse - Multi-Tenant Analytics Ingestion API
// Copyright 2026 SignalHouse contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalhouse/signalhouse

// Package apikey implements API key credential issuance and validation.
//
// Security:
//   - Secrets are 32 random bytes, hex encoded (256 bits of entropy)
//   - Secrets are hashed with bcrypt (default cost 12) before storage;
//     the cost makes a single verification deliberately slow to resist
//     offline brute force
//   - The plaintext is returned exactly once at issuance or regeneration
//     and never persisted or logged
//
// Validation scans the most recently created eligible keys and compares the
// presented secret against each stored hash. The scan bound is configurable;
// the linear scan does not extend past a few thousand concurrently active
// keys, at which point a fast-lookup key identifier embedded in the token
// (keyID.secret) is the intended evolution.
package apikey

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/signalhouse/signalhouse/internal/metrics"
	"github.com/signalhouse/signalhouse/internal/models"
)

const (
	// secretLength is the length of the random secret in bytes.
	secretLength = 32

	// DefaultBcryptCost is the bcrypt cost factor for secret hashing.
	DefaultBcryptCost = 12

	// DefaultKeyTTL is the default key lifetime.
	DefaultKeyTTL = 365 * 24 * time.Hour

	// DefaultScanLimit bounds the validator's candidate scan.
	DefaultScanLimit = 1000
)

// KeyStore defines the credential store operations the manager requires.
// The interface allows the manager to be tested independently of Postgres.
type KeyStore interface {
	Insert(ctx context.Context, key *models.APIKey) error
	GetByID(ctx context.Context, id string) (*models.APIKey, error)
	Eligible(ctx context.Context, limit int) ([]models.APIKey, error)
	SetRevoked(ctx context.Context, id string, revoked bool) error
	ReplaceHash(ctx context.Context, id, hash string) (time.Time, error)
}

// AppGetter resolves application identities at issuance time.
type AppGetter interface {
	GetByID(ctx context.Context, id string) (*models.Application, error)
}

// Config tunes the manager. Zero values fall back to the defaults above.
type Config struct {
	BcryptCost int
	KeyTTL     time.Duration
	ScanLimit  int
}

// Manager handles API key lifecycle (issue, revoke, regenerate) and
// validation.
type Manager struct {
	keys   KeyStore
	apps   AppGetter
	cost   int
	ttl    time.Duration
	scan   int
	logger zerolog.Logger
}

// NewManager creates a key manager.
func NewManager(keys KeyStore, apps AppGetter, cfg Config, logger *zerolog.Logger) *Manager {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = DefaultBcryptCost
	}
	if cfg.KeyTTL == 0 {
		cfg.KeyTTL = DefaultKeyTTL
	}
	if cfg.ScanLimit == 0 {
		cfg.ScanLimit = DefaultScanLimit
	}
	return &Manager{
		keys:   keys,
		apps:   apps,
		cost:   cfg.BcryptCost,
		ttl:    cfg.KeyTTL,
		scan:   cfg.ScanLimit,
		logger: logger.With().Str("component", "apikey_manager").Logger(),
	}
}

// Issue generates a new API key for an application and returns the key
// record and the plaintext secret (shown only once). Returns the store's
// ErrNotFound when the application does not exist.
func (m *Manager) Issue(ctx context.Context, appID string) (*models.APIKey, string, error) {
	if _, err := m.apps.GetByID(ctx, appID); err != nil {
		return nil, "", fmt.Errorf("lookup app: %w", err)
	}

	plaintext, err := generateSecret()
	if err != nil {
		return nil, "", err
	}
	hash, err := m.hashSecret(plaintext)
	if err != nil {
		return nil, "", err
	}

	expiresAt := time.Now().Add(m.ttl)
	key := &models.APIKey{
		AppID:     appID,
		KeyHash:   hash,
		ExpiresAt: &expiresAt,
	}
	if err := m.keys.Insert(ctx, key); err != nil {
		return nil, "", fmt.Errorf("store key: %w", err)
	}

	m.logger.Info().
		Str("key_id", key.ID).
		Str("app_id", appID).
		Time("expires_at", expiresAt).
		Msg("API key issued")

	return key, plaintext, nil
}

// Revoke soft-deletes a key. Revoking an already-revoked key succeeds;
// an unknown key ID returns the store's ErrNotFound.
func (m *Manager) Revoke(ctx context.Context, keyID string) error {
	if err := m.keys.SetRevoked(ctx, keyID, true); err != nil {
		return fmt.Errorf("revoke key: %w", err)
	}
	m.logger.Info().Str("key_id", keyID).Msg("API key revoked")
	return nil
}

// Regenerate replaces a key's secret in place: fresh secret, new hash,
// revoked flag cleared, creation time reset. The key keeps its ID and
// application binding, so the previous secret becomes permanently unusable
// the moment this returns. Returns the new plaintext (shown only once).
func (m *Manager) Regenerate(ctx context.Context, keyID string) (string, error) {
	plaintext, err := generateSecret()
	if err != nil {
		return "", err
	}
	hash, err := m.hashSecret(plaintext)
	if err != nil {
		return "", err
	}

	if _, err := m.keys.ReplaceHash(ctx, keyID, hash); err != nil {
		return "", fmt.Errorf("regenerate key: %w", err)
	}

	m.logger.Info().Str("key_id", keyID).Msg("API key regenerated")
	return plaintext, nil
}

// Validate compares a presented secret against the stored hashes of the
// most recently created eligible keys and returns the first match, or nil
// when no eligible key matches. It never returns an error: a store failure
// is indistinguishable from "no match" at the handler boundary and is logged
// here instead.
//
// Candidates are ordered by descending creation time, so two Validate calls
// for the same secret cannot race to different outcomes.
func (m *Manager) Validate(ctx context.Context, presented string) *models.APIKey {
	if presented == "" {
		metrics.KeyValidations.WithLabelValues("empty").Inc()
		return nil
	}

	candidates, err := m.keys.Eligible(ctx, m.scan)
	if err != nil {
		m.logger.Warn().Err(err).Msg("Credential store unreachable during validation")
		metrics.KeyValidations.WithLabelValues("store_error").Inc()
		return nil
	}

	for i := range candidates {
		if ctx.Err() != nil {
			metrics.KeyValidations.WithLabelValues("canceled").Inc()
			return nil
		}
		if verifySecret(presented, candidates[i].KeyHash) {
			metrics.KeyValidations.WithLabelValues("match").Inc()
			return &candidates[i]
		}
	}

	metrics.KeyValidations.WithLabelValues("no_match").Inc()
	return nil
}

// generateSecret returns a hex-encoded 256-bit random secret.
func generateSecret() (string, error) {
	buf := make([]byte, secretLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// hashSecret creates a bcrypt hash of a secret.
// The secret is SHA-256 hashed first to stay under bcrypt's 72-byte input
// limit. This is the same pattern GitHub and GitLab use for token storage.
func (m *Manager) hashSecret(plaintext string) (string, error) {
	sha := sha256.Sum256([]byte(plaintext))
	hash, err := bcrypt.GenerateFromPassword(sha[:], m.cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt failed: %w", err)
	}
	return string(hash), nil
}

// verifySecret checks a plaintext secret against a stored hash.
func verifySecret(plaintext, storedHash string) bool {
	sha := sha256.Sum256([]byte(plaintext))
	return bcrypt.CompareHashAndPassword([]byte(storedHash), sha[:]) == nil
}
