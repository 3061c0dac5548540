// SignalHouse - Multi-Tenant Analytics Ingestion API
// Copyright 2026 SignalHouse contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalhouse/signalhouse

// Package config provides centralized configuration for all SignalHouse
// components: HTTP server, Postgres, Redis, the admission layer (API keys,
// rate limiting), the aggregation cache, and logging.
//
// Configuration loading order (Koanf v2):
//  1. Defaults: built-in sensible defaults for all settings
//  2. Config file: optional YAML config file for persistent settings
//  3. Environment variables: override any setting
//
// Config is immutable after Load() and safe for concurrent reads.
package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Redis    RedisConfig    `koanf:"redis"`
	Security SecurityConfig `koanf:"security"`
	Cache    CacheConfig    `koanf:"cache"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
//
// Environment variables:
//   - HTTP_PORT: listen port (default: 8080)
//   - HTTP_HOST: bind address (default: 0.0.0.0)
//   - HTTP_TIMEOUT: read/write timeout (default: 30s)
//   - CORS_ORIGINS: comma-separated allowed origins
type ServerConfig struct {
	Port        int           `koanf:"port"`
	Host        string        `koanf:"host"`
	Timeout     time.Duration `koanf:"timeout"`
	CORSOrigins []string      `koanf:"cors_origins"`
}

// DatabaseConfig holds Postgres settings.
//
// Environment variables:
//   - DATABASE_URL: pgx connection string
type DatabaseConfig struct {
	URL string `koanf:"url"`
}

// RedisConfig holds the shared counter/cache store settings. Redis is
// optional: with no reachable Redis the rate limiter runs on its local
// table and the aggregation cache computes every request.
//
// Environment variables:
//   - REDIS_URL: redis connection string (redis://host:port)
type RedisConfig struct {
	URL string `koanf:"url"`
}

// SecurityConfig holds the admission layer settings: API key issuance and
// the per-identifier rate limiter.
//
// Environment variables:
//   - API_KEY_TTL_DAYS: default key expiry in days (default: 365)
//   - BCRYPT_COST: hash cost factor (default: 12)
//   - VALIDATION_SCAN_LIMIT: validator candidate bound (default: 1000)
//   - RATE_LIMIT_MAX: requests per window (default: 1000)
//   - RATE_LIMIT_WINDOW_MS: window length in milliseconds (default: 60000)
//   - RATE_LIMIT_FAIL_CLOSED: reject instead of admit on store outage
//   - IP_RATE_LIMIT_MAX / IP_RATE_LIMIT_WINDOW: per-IP limit for the
//     unauthenticated registration and short URL endpoints
type SecurityConfig struct {
	APIKeyTTLDays       int           `koanf:"api_key_ttl_days"`
	BcryptCost          int           `koanf:"bcrypt_cost"`
	ValidationScanLimit int           `koanf:"validation_scan_limit"`
	RateLimitMax        int           `koanf:"rate_limit_max"`
	RateLimitWindowMS   int           `koanf:"rate_limit_window_ms"`
	RateLimitFailClosed bool          `koanf:"rate_limit_fail_closed"`
	IPRateLimitMax      int           `koanf:"ip_rate_limit_max"`
	IPRateLimitWindow   time.Duration `koanf:"ip_rate_limit_window"`
}

// RateLimitWindow returns the rolling window as a duration.
func (s SecurityConfig) RateLimitWindow() time.Duration {
	return time.Duration(s.RateLimitWindowMS) * time.Millisecond
}

// KeyTTL returns the default key lifetime as a duration.
func (s SecurityConfig) KeyTTL() time.Duration {
	return time.Duration(s.APIKeyTTLDays) * 24 * time.Hour
}

// CacheConfig holds the aggregation cache settings.
//
// Environment variables:
//   - SUMMARY_CACHE_TTL: cached aggregation lifetime (default: 60s)
type CacheConfig struct {
	SummaryTTL time.Duration `koanf:"summary_ttl"`
}

// LoggingConfig holds log output settings.
//
// Environment variables:
//   - LOG_LEVEL: debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: include caller info (default: false)
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for values that would misbehave at
// runtime rather than fail fast at startup.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database url is required")
	}
	if c.Security.RateLimitMax < 1 {
		return fmt.Errorf("rate limit max must be positive, got %d", c.Security.RateLimitMax)
	}
	if c.Security.RateLimitWindowMS < 1 {
		return fmt.Errorf("rate limit window must be positive, got %d", c.Security.RateLimitWindowMS)
	}
	// bcrypt rejects costs outside [4, 31]; values below 10 verify too fast
	// to resist offline brute force, so refuse anything below that.
	if c.Security.BcryptCost < 10 || c.Security.BcryptCost > 31 {
		return fmt.Errorf("bcrypt cost must be 10-31, got %d", c.Security.BcryptCost)
	}
	if c.Security.APIKeyTTLDays < 1 {
		return fmt.Errorf("api key ttl must be at least one day, got %d", c.Security.APIKeyTTLDays)
	}
	if c.Security.ValidationScanLimit < 1 {
		return fmt.Errorf("validation scan limit must be positive, got %d", c.Security.ValidationScanLimit)
	}
	if c.Cache.SummaryTTL <= 0 {
		return fmt.Errorf("summary cache ttl must be positive, got %s", c.Cache.SummaryTTL)
	}
	return nil
}
