// SignalHouse - Multi-Tenant Analytics Ingestion API
// Copyright 2026 SignalHouse contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalhouse/signalhouse

package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/signalhouse/signalhouse/internal/logging"
)

// validate is the shared validator instance; it caches struct metadata and
// is safe for concurrent use.
var validate = validator.New()

// respondJSON marshals v and writes it with the given status.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")

	data, err := json.Marshal(v)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondRaw writes pre-serialized JSON, used for cached aggregation bodies.
func respondRaw(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondError writes the flat error envelope the API contract specifies:
// {"error": "<message>"}. Failures are logged with the request ID from the
// context; client errors log at warn, server errors at error.
func respondError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	if err != nil {
		evt := logging.Ctx(r.Context()).Error()
		if status < http.StatusInternalServerError {
			evt = logging.Ctx(r.Context()).Warn()
		}
		evt.Int("status", status).Err(err).Msg("Request failed")
	}
	respondJSON(w, status, map[string]string{"error": message})
}

// decodeBody decodes and validates a JSON request body into dst.
// Returns a user-facing message when the body is malformed or invalid.
func decodeBody(r *http.Request, dst any) (string, error) {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return "invalid JSON body", fmt.Errorf("decode body: %w", err)
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if ok := asValidationErrors(err, &verrs); ok && len(verrs) > 0 {
			field := verrs[0]
			return fmt.Sprintf("%s failed validation (%s)", field.Field(), field.Tag()), err
		}
		return "invalid request", err
	}
	return "", nil
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	verrs, ok := err.(validator.ValidationErrors)
	if ok {
		*target = verrs
	}
	return ok
}

// parseDate accepts RFC3339 timestamps and bare dates.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}
