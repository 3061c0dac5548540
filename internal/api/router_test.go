// SignalHouse - Multi-Tenant Analytics Ingestion API
// Copyright 2026 SignalHouse contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalhouse/signalhouse

package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/signalhouse/signalhouse/internal/models"
)

func decodeJSONBody(resp *http.Response, dst any) error {
	return json.NewDecoder(resp.Body).Decode(dst)
}

func newTestServer(t *testing.T) (*httptest.Server, *fixture) {
	t.Helper()
	f := newFixture(t)
	f.keys.secret = "s3cret"
	f.keys.key = &models.APIKey{ID: "key-1", AppID: "app-1"}

	router := NewRouter(f.handler, &stubLimiter{allow: true}, RouterConfig{
		CORSOrigins:       []string{"*"},
		IPRateLimitMax:    100,
		IPRateLimitWindow: time.Minute,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, f
}

func TestRouterHealthIsOpen(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestRouterMetricsIsOpen(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestRouterAnalyticsRequiresKey(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/v1/analytics/collect", "application/json",
		strings.NewReader(`{"event":"pageview"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestRouterAnalyticsWithKey(t *testing.T) {
	srv, f := newTestServer(t)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/analytics/collect",
		strings.NewReader(`{"event":"pageview","userId":"u1"}`))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("x-api-key", "s3cret")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	if len(f.events.inserted) != 1 || f.events.inserted[0].AppID != "app-1" {
		t.Errorf("event not stamped with credential tenant: %+v", f.events.inserted)
	}
}

func TestRouterRedirectRecordsClick(t *testing.T) {
	srv, f := newTestServer(t)
	f.shortURLs.byCode["abc12345"] = &models.ShortURL{
		ID:        "url-1",
		AppID:     "app-1",
		ShortCode: "abc12345",
		TargetURL: "https://example.com/target",
	}

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.Get(srv.URL + "/r/abc12345")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		t.Fatalf("status = %d, want 302", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "https://example.com/target" {
		t.Errorf("Location = %q", loc)
	}
	if len(f.shortURLs.clicks) != 1 {
		t.Errorf("clicks recorded = %d, want 1", len(f.shortURLs.clicks))
	}
}

func TestRouterRedirectUnknownCode(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/r/missing1")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestRouterShortURLStats(t *testing.T) {
	srv, f := newTestServer(t)
	f.shortURLs.byCode["abc12345"] = &models.ShortURL{
		ID:        "url-1",
		AppID:     "app-1",
		ShortCode: "abc12345",
		TargetURL: "https://example.com/target",
	}
	f.shortURLs.clicks = []models.ShortURLClick{{ShortURLID: "url-1"}, {ShortURLID: "url-1"}}

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/short/stats/abc12345", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "ApiKey s3cret")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var u models.ShortURL
	if err := decodeJSONBody(resp, &u); err != nil {
		t.Fatal(err)
	}
	if u.Clicks != 2 {
		t.Errorf("clicks = %d, want 2", u.Clicks)
	}
}

func TestRouterShortURLStatsQueryParam(t *testing.T) {
	srv, f := newTestServer(t)
	f.shortURLs.byCode["abc12345"] = &models.ShortURL{
		ID:        "url-1",
		AppID:     "app-1",
		ShortCode: "abc12345",
		TargetURL: "https://example.com/target",
	}
	f.shortURLs.clicks = []models.ShortURLClick{{ShortURLID: "url-1"}}

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/short/stats?short_code=abc12345", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "ApiKey s3cret")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var u models.ShortURL
	if err := decodeJSONBody(resp, &u); err != nil {
		t.Fatal(err)
	}
	if u.ShortCode != "abc12345" || u.Clicks != 1 {
		t.Errorf("stats = %+v, want abc12345 with 1 click", u)
	}
}

func TestRouterShortURLStatsMissingCode(t *testing.T) {
	srv, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/short/stats", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "ApiKey s3cret")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestRouterRequestIDHeader(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("expected an X-Request-ID header on every response")
	}
}
