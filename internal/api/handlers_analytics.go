// SignalHouse - Multi-Tenant Analytics Ingestion API
// Copyright 2026 SignalHouse contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalhouse/signalhouse

package api

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"

	"github.com/signalhouse/signalhouse/internal/cache"
	"github.com/signalhouse/signalhouse/internal/logging"
	"github.com/signalhouse/signalhouse/internal/models"
	"github.com/signalhouse/signalhouse/internal/store"
)

// defaultSummaryRange is the look-back window when the caller gives no
// start date.
const defaultSummaryRange = 7 * 24 * time.Hour

// userStatsLimit caps the recent-events list in the user stats response.
const userStatsLimit = 50

// ingestEvent accepts the field aliases browser SDKs send: "event" or
// "event_type", "userId" or "user_id", "ipAddress" or "ip_address".
type ingestEvent struct {
	Event     string         `json:"event"`
	EventType string         `json:"event_type"`
	URL       string         `json:"url"`
	Referrer  string         `json:"referrer"`
	Device    string         `json:"device"`
	IP        string         `json:"ipAddress"`
	IPSnake   string         `json:"ip_address"`
	Timestamp *time.Time     `json:"timestamp"`
	Metadata  map[string]any `json:"metadata"`
	UserID    string         `json:"userId"`
	UserSnake string         `json:"user_id"`
}

// ingestBody is the collect payload: either a single event object or a
// batch under "events".
type ingestBody struct {
	ingestEvent
	Events []ingestEvent `json:"events"`
}

// Collect ingests one event or a batch of events for the authenticated
// application. Every event is stamped with the tenant from the validated
// credential; a client-supplied app ID is ignored.
func (h *Handler) Collect(w http.ResponseWriter, r *http.Request) {
	appID := AppIDFromContext(r.Context())

	var body ingestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid JSON body", err)
		return
	}

	raw := body.Events
	if len(raw) == 0 {
		raw = []ingestEvent{body.ingestEvent}
	}

	now := time.Now().UTC()
	fallbackIP := clientIP(r)
	events := make([]models.Event, 0, len(raw))
	for _, in := range raw {
		events = append(events, in.toEvent(appID, fallbackIP, now))
	}

	accepted, err := h.events.InsertBatch(r.Context(), events)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "failed to store events", err)
		return
	}

	logging.Ctx(r.Context()).Debug().
		Str("app_id", appID).
		Int64("accepted", accepted).
		Msg("Events collected")

	respondJSON(w, http.StatusCreated, map[string]int64{"accepted": accepted})
}

// toEvent normalizes one submitted event. A missing event type is coerced
// to "unknown" and a missing IP falls back to the request's client address,
// so sloppy SDK payloads are still counted instead of rejected.
func (in ingestEvent) toEvent(appID, fallbackIP string, now time.Time) models.Event {
	eventType := in.Event
	if eventType == "" {
		eventType = in.EventType
	}
	if eventType == "" {
		eventType = "unknown"
	}

	userID := in.UserID
	if userID == "" {
		userID = in.UserSnake
	}
	ip := in.IP
	if ip == "" {
		ip = in.IPSnake
	}
	if ip == "" {
		ip = fallbackIP
	}
	ts := now
	if in.Timestamp != nil && !in.Timestamp.IsZero() {
		ts = in.Timestamp.UTC()
	}

	return models.Event{
		AppID:     appID,
		EventType: eventType,
		URL:       in.URL,
		Referrer:  in.Referrer,
		Device:    in.Device,
		IPAddress: ip,
		Timestamp: ts,
		Metadata:  in.Metadata,
		UserID:    userID,
	}
}

// EventSummary returns aggregated statistics for the authenticated
// application, memoized through the read-through cache. Query parameters:
// event (optional type filter), startDate and endDate (RFC3339 or
// YYYY-MM-DD; "start"/"end" are accepted as short aliases; default range is
// the last 7 days).
func (h *Handler) EventSummary(w http.ResponseWriter, r *http.Request) {
	appID := AppIDFromContext(r.Context())
	q := r.URL.Query()
	event := q.Get("event")

	var start, end *time.Time
	if raw := firstParam(q, "startDate", "start"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, "invalid startDate", err)
			return
		}
		start = &t
	}
	if raw := firstParam(q, "endDate", "end"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, "invalid endDate", err)
			return
		}
		end = &t
	}

	// The key is built from the raw parameters, sentinels included, so the
	// common default-range query hits the same entry across calls instead of
	// keying on a resolved wall-clock range.
	key := cache.SummaryKey(appID, event, start, end)

	body, err := h.cache.GetOrCompute(r.Context(), key, h.summaryTTL, func(ctx context.Context) ([]byte, error) {
		filter := store.EventFilter{
			AppID: appID,
			Event: event,
			Start: resolveStart(start),
			End:   resolveEnd(end),
		}
		summary, err := h.events.Summary(ctx, filter)
		if err != nil {
			return nil, err
		}
		return json.Marshal(summary)
	})
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "failed to compute summary", err)
		return
	}

	respondRaw(w, http.StatusOK, body)
}

// firstParam returns the first non-empty query parameter among names.
func firstParam(q url.Values, names ...string) string {
	for _, name := range names {
		if v := q.Get(name); v != "" {
			return v
		}
	}
	return ""
}

func resolveStart(t *time.Time) time.Time {
	if t != nil {
		return *t
	}
	return time.Now().UTC().Add(-defaultSummaryRange)
}

func resolveEnd(t *time.Time) time.Time {
	if t != nil {
		return *t
	}
	return time.Now().UTC()
}

// UserStats returns one end user's event count and recent activity within
// the authenticated application.
func (h *Handler) UserStats(w http.ResponseWriter, r *http.Request) {
	appID := AppIDFromContext(r.Context())

	userID := r.URL.Query().Get("userId")
	if userID == "" {
		userID = r.URL.Query().Get("user_id")
	}
	if userID == "" {
		respondError(w, r, http.StatusBadRequest, "userId is required", nil)
		return
	}

	stats, err := h.events.UserStats(r.Context(), appID, userID, userStatsLimit)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "failed to load user stats", err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}
