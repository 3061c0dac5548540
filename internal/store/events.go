// SignalHouse - Multi-Tenant Analytics Ingestion API
// Copyright 2026 SignalHouse contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalhouse/signalhouse

package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/signalhouse/signalhouse/internal/models"
)

// insertChunkSize bounds the number of rows per multi-row INSERT so the
// statement stays well under the Postgres parameter limit (65535).
const insertChunkSize = 1000

// EventStore persists tracking events and runs the aggregation queries.
type EventStore struct {
	db *DB
}

// NewEventStore creates an event store on the shared pool.
func NewEventStore(db *DB) *EventStore {
	return &EventStore{db: db}
}

// EventFilter scopes the aggregation query: tenant, optional event type,
// and a closed date range.
type EventFilter struct {
	AppID string
	Event string // empty means all event types
	Start time.Time
	End   time.Time
}

// InsertBatch writes events in chunks using multi-row INSERTs.
// Returns the number of rows written.
func (s *EventStore) InsertBatch(ctx context.Context, events []models.Event) (int64, error) {
	if len(events) == 0 {
		return 0, nil
	}

	var total int64
	for start := 0; start < len(events); start += insertChunkSize {
		end := start + insertChunkSize
		if end > len(events) {
			end = len(events)
		}
		n, err := s.insertChunk(ctx, events[start:end])
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (s *EventStore) insertChunk(ctx context.Context, events []models.Event) (int64, error) {
	const cols = 9
	placeholders := make([]string, 0, len(events))
	args := make([]any, 0, len(events)*cols)

	argi := 1
	for _, ev := range events {
		ph := make([]string, 0, cols)
		for range cols {
			ph = append(ph, fmt.Sprintf("$%d", argi))
			argi++
		}
		placeholders = append(placeholders, "("+strings.Join(ph, ", ")+")")
		args = append(args,
			ev.AppID,
			ev.EventType,
			nullable(ev.URL),
			nullable(ev.Referrer),
			nullable(ev.Device),
			nullable(ev.IPAddress),
			ev.Timestamp,
			ev.Metadata,
			nullable(ev.UserID),
		)
	}

	query := `INSERT INTO events
		(app_id, event_type, url, referrer, device, ip_address, timestamp, metadata, user_id)
		VALUES ` + strings.Join(placeholders, ", ")

	tag, err := s.db.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert events: %w", err)
	}
	return tag.RowsAffected(), nil
}

// nullable maps empty strings to SQL NULL.
func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

// Summary runs the aggregation query for one filter combination: total
// count, distinct users, and a device breakdown. This is the expensive query
// the aggregation cache shields.
func (s *EventStore) Summary(ctx context.Context, f EventFilter) (*models.EventSummary, error) {
	where := `app_id = $1 AND timestamp BETWEEN $2 AND $3`
	args := []any{f.AppID, f.Start, f.End}
	if f.Event != "" {
		where += ` AND event_type = $4`
		args = append(args, f.Event)
	}

	summary := &models.EventSummary{
		Event:      f.Event,
		DeviceData: make(map[string]int64),
	}
	if summary.Event == "" {
		summary.Event = "all"
	}

	row := s.db.pool.QueryRow(ctx,
		`SELECT count(*), count(DISTINCT user_id) FROM events WHERE `+where, args...)
	if err := row.Scan(&summary.Count, &summary.UniqueUsers); err != nil {
		return nil, fmt.Errorf("summary counts: %w", err)
	}

	rows, err := s.db.pool.Query(ctx,
		`SELECT coalesce(device, 'unknown'), count(*) FROM events WHERE `+where+` GROUP BY 1`, args...)
	if err != nil {
		return nil, fmt.Errorf("summary devices: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var device string
		var count int64
		if err := rows.Scan(&device, &count); err != nil {
			return nil, fmt.Errorf("scan device row: %w", err)
		}
		summary.DeviceData[device] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate device rows: %w", err)
	}

	return summary, nil
}

// UserStats returns the total event count and the most recent events for one
// end user within a tenant.
func (s *EventStore) UserStats(ctx context.Context, appID, userID string, limit int) (*models.UserStats, error) {
	stats := &models.UserStats{UserID: userID, RecentEvents: []models.UserEvent{}}

	row := s.db.pool.QueryRow(ctx,
		`SELECT count(*) FROM events WHERE app_id = $1 AND user_id = $2`,
		appID, userID,
	)
	if err := row.Scan(&stats.TotalEvents); err != nil {
		return nil, fmt.Errorf("user event count: %w", err)
	}

	rows, err := s.db.pool.Query(ctx,
		`SELECT id, event_type, timestamp, metadata
		 FROM events
		 WHERE app_id = $1 AND user_id = $2
		 ORDER BY timestamp DESC
		 LIMIT $3`,
		appID, userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("user recent events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ev models.UserEvent
		if err := rows.Scan(&ev.ID, &ev.Event, &ev.Timestamp, &ev.Metadata); err != nil {
			return nil, fmt.Errorf("scan user event: %w", err)
		}
		stats.RecentEvents = append(stats.RecentEvents, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user events: %w", err)
	}

	// The newest event's metadata doubles as the device details snapshot.
	if len(stats.RecentEvents) > 0 {
		stats.DeviceInfo = stats.RecentEvents[0].Metadata
	}

	return stats, nil
}
