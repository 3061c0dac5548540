// SignalHouse - Multi-Tenant Analytics Ingestion API
// Copyright 2026 SignalHouse contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalhouse/signalhouse

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Security.RateLimitMax != 1000 {
		t.Errorf("rate limit max = %d, want 1000", cfg.Security.RateLimitMax)
	}
	if cfg.Security.RateLimitWindow() != time.Minute {
		t.Errorf("rate limit window = %s, want 1m", cfg.Security.RateLimitWindow())
	}
	if cfg.Security.BcryptCost != 12 {
		t.Errorf("bcrypt cost = %d, want 12", cfg.Security.BcryptCost)
	}
	if cfg.Security.KeyTTL() != 365*24*time.Hour {
		t.Errorf("key ttl = %s, want 8760h", cfg.Security.KeyTTL())
	}
	if cfg.Cache.SummaryTTL != 60*time.Second {
		t.Errorf("summary ttl = %s, want 60s", cfg.Cache.SummaryTTL)
	}
	if cfg.Security.RateLimitFailClosed {
		t.Error("fail-closed must default to off")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("RATE_LIMIT_MAX", "50")
	t.Setenv("RATE_LIMIT_WINDOW_MS", "5000")
	t.Setenv("RATE_LIMIT_FAIL_CLOSED", "true")
	t.Setenv("VALIDATION_SCAN_LIMIT", "200")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Security.RateLimitMax != 50 {
		t.Errorf("rate limit max = %d, want 50", cfg.Security.RateLimitMax)
	}
	if cfg.Security.RateLimitWindow() != 5*time.Second {
		t.Errorf("window = %s, want 5s", cfg.Security.RateLimitWindow())
	}
	if !cfg.Security.RateLimitFailClosed {
		t.Error("fail-closed override not applied")
	}
	if cfg.Security.ValidationScanLimit != 200 {
		t.Errorf("scan limit = %d, want 200", cfg.Security.ValidationScanLimit)
	}
	want := []string{"https://a.example", "https://b.example"}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[0] != want[0] || cfg.Server.CORSOrigins[1] != want[1] {
		t.Errorf("cors origins = %v, want %v", cfg.Server.CORSOrigins, want)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoadUnknownEnvIgnored(t *testing.T) {
	t.Setenv("SOME_UNRELATED_VAR", "noise")

	if _, err := Load(); err != nil {
		t.Fatalf("unrelated env vars must not break loading: %v", err)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("server:\n  port: 7070\nsecurity:\n  rate_limit_max: 25\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("port = %d, want 7070 from file", cfg.Server.Port)
	}
	if cfg.Security.RateLimitMax != 25 {
		t.Errorf("rate limit max = %d, want 25 from file", cfg.Security.RateLimitMax)
	}
}

func TestEnvWinsOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 7070\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("HTTP_PORT", "6060")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 6060 {
		t.Errorf("port = %d, env must win over file", cfg.Server.Port)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"missing database url", func(c *Config) { c.Database.URL = "" }},
		{"zero rate limit", func(c *Config) { c.Security.RateLimitMax = 0 }},
		{"zero window", func(c *Config) { c.Security.RateLimitWindowMS = 0 }},
		{"weak bcrypt cost", func(c *Config) { c.Security.BcryptCost = 4 }},
		{"zero key ttl", func(c *Config) { c.Security.APIKeyTTLDays = 0 }},
		{"zero scan limit", func(c *Config) { c.Security.ValidationScanLimit = 0 }},
		{"zero cache ttl", func(c *Config) { c.Cache.SummaryTTL = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}
