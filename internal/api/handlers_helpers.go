// Reelfeed - Short-Video Movie Discovery Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package api

import (
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/reelfeed/internal/comments"
	"github.com/tomtom215/reelfeed/internal/feed"
	"github.com/tomtom215/reelfeed/internal/logging"
	"github.com/tomtom215/reelfeed/internal/models"
	"github.com/tomtom215/reelfeed/internal/store"
	"github.com/tomtom215/reelfeed/internal/tmdb"
	"github.com/tomtom215/reelfeed/internal/validation"
)

const maxBodyBytes = 64 << 10

// sanitizeLogValue escapes control characters so user input cannot forge
// log lines.
func sanitizeLogValue(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			fmt.Fprintf(&b, "\\x%02x", r)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// respondJSON writes response with the given status. Responses are per user
// and never cached.
func respondJSON(w http.ResponseWriter, r *http.Request, status int, response *models.APIResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Failed to write JSON response")
	}
}

// respondData wraps data in a success envelope. start feeds query_time_ms.
func respondData(w http.ResponseWriter, r *http.Request, status int, data interface{}, start time.Time) {
	respondJSON(w, r, status, &models.APIResponse{
		Status: "success",
		Data:   data,
		Metadata: models.Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// respondError writes an error envelope. err, when given, is logged but not
// sent to the client.
func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, err error) {
	respondErrorDetails(w, r, status, code, message, nil, err)
}

func respondErrorDetails(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]interface{}, err error) {
	if err != nil {
		event := logging.Ctx(r.Context()).Warn()
		if status >= http.StatusInternalServerError {
			event = logging.Ctx(r.Context()).Error()
		}
		event.Str("code", code).Str("error", sanitizeLogValue(err.Error())).Str("path", r.URL.Path).Msg("API error")
	}

	respondJSON(w, r, status, &models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		Error:    &models.APIError{Code: code, Message: message, Details: details},
	})
}

// respondServiceError maps domain and provider errors onto HTTP statuses.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validation.RequestValidationError
	switch {
	case errors.As(err, &verr):
		apiErr := verr.ToAPIError()
		respondErrorDetails(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details, nil)
	case errors.Is(err, feed.ErrSuperseded):
		respondError(w, r, http.StatusConflict, "SUPERSEDED", "The feed was refreshed while this batch was loading", nil)
	case errors.Is(err, comments.ErrNotFound):
		respondError(w, r, http.StatusNotFound, "NOT_FOUND", "Comment not found", nil)
	case errors.Is(err, comments.ErrNotAuthor):
		respondError(w, r, http.StatusForbidden, "FORBIDDEN", "Only the author may delete this comment", nil)
	case tmdb.IsNotFound(err):
		respondError(w, r, http.StatusNotFound, "NOT_FOUND", "Movie not found", nil)
	case tmdb.IsUnauthorized(err):
		respondError(w, r, http.StatusBadGateway, "PROVIDER_UNAUTHORIZED", "The movie provider rejected the API key", err)
	case errors.Is(err, store.ErrClosed):
		respondError(w, r, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Storage is shutting down", err)
	default:
		if kind, ok := tmdb.KindOf(err); ok {
			if kind == tmdb.KindNetwork {
				respondError(w, r, http.StatusServiceUnavailable, "PROVIDER_UNAVAILABLE", "The movie provider is unreachable", err)
				return
			}
			respondError(w, r, http.StatusBadGateway, "PROVIDER_ERROR", "The movie provider returned an error", err)
			return
		}
		respondError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", err)
	}
}

// decodeJSON reads a size-limited JSON body into v. Callers validate.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return &validation.RequestValidationError{Fields: []validation.FieldError{
				{Field: "body", Tag: "required", Message: "request body is required"},
			}}
		}
		return &validation.RequestValidationError{Fields: []validation.FieldError{
			{Field: "body", Tag: "json", Message: "request body is not valid JSON: " + err.Error()},
		}}
	}
	return nil
}

// validateBody runs struct validation, returning a plain nil on success.
func validateBody(v interface{}) error {
	if verr := validation.ValidateStruct(v); verr != nil {
		return verr
	}
	return nil
}

// userParam returns the validated {user} path parameter.
func userParam(r *http.Request) (string, error) {
	user := chi.URLParam(r, "user")
	if verr := validation.ValidateVar("user", user, "required,user_handle"); verr != nil {
		return "", verr
	}
	return user, nil
}

// movieIDParam returns the validated {movieID} path parameter.
func movieIDParam(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "movieID")
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, &validation.RequestValidationError{Fields: []validation.FieldError{
			{Field: "movie_id", Tag: "gt", Param: "0", Value: raw, Message: "movie_id must be a positive integer"},
		}}
	}
	return id, nil
}

// intQuery parses an optional integer query parameter within [lo, hi].
func intQuery(r *http.Request, key string, def, lo, hi int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < lo || n > hi {
		return 0, &validation.RequestValidationError{Fields: []validation.FieldError{
			{Field: key, Tag: "range", Value: raw, Message: fmt.Sprintf("%s must be an integer between %d and %d", key, lo, hi)},
		}}
	}
	return n, nil
}

// feedFilters parses query, genres and min_rating from the query string.
func feedFilters(r *http.Request) (models.SearchFilters, error) {
	q := r.URL.Query()
	filters := models.SearchFilters{Query: strings.TrimSpace(q.Get("query"))}

	if len(filters.Query) > 200 {
		return filters, &validation.RequestValidationError{Fields: []validation.FieldError{
			{Field: "query", Tag: "max", Param: "200", Message: "query must be at most 200 characters"},
		}}
	}

	if raw := q.Get("genres"); raw != "" {
		ids, err := parseCommaSeparatedInts(raw)
		if err != nil {
			return filters, &validation.RequestValidationError{Fields: []validation.FieldError{
				{Field: "genres", Tag: "ints", Value: raw, Message: "genres must be a comma-separated list of positive ids"},
			}}
		}
		filters.GenreIDs = ids
	}

	if raw := strings.TrimSpace(q.Get("min_rating")); raw != "" {
		rating, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(rating) || rating < 0 || rating > 5 {
			return filters, &validation.RequestValidationError{Fields: []validation.FieldError{
				{Field: "min_rating", Tag: "range", Value: raw, Message: "min_rating must be a number between 0 and 5"},
			}}
		}
		filters.MinRating = rating
	}
	return filters, nil
}

// parseCommaSeparatedInts parses "1, 2,3" into positive ints. Empty parts are skipped.
func parseCommaSeparatedInts(value string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid id %q", part)
		}
		out = append(out, n)
	}
	return out, nil
}
