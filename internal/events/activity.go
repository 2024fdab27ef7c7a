// Reelfeed - Short-Video Movie Discovery Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package events

import (
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/reelfeed/internal/logging"
	"github.com/tomtom215/reelfeed/internal/metrics"
)

// DefaultActivityLimit is the number of events kept per user.
const DefaultActivityLimit = 50

// Activity is one recorded domain event.
type Activity struct {
	ID            string          `json:"id"`
	Topic         string          `json:"topic"`
	User          string          `json:"user"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
}

// userEnvelope pulls the user handle out of any payload.
type userEnvelope struct {
	User string `json:"user"`
}

// ActivityRecorder keeps the most recent events per user, newest first.
type ActivityRecorder struct {
	mu     sync.RWMutex
	byUser map[string][]Activity
	limit  int
	logger zerolog.Logger
}

// NewActivityRecorder creates a recorder keeping limit events per user.
func NewActivityRecorder(limit int) *ActivityRecorder {
	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	return &ActivityRecorder{
		byUser: make(map[string][]Activity),
		limit:  limit,
		logger: logging.WithComponent("activity"),
	}
}

// Handle records msg. Undecodable payloads are logged and acknowledged,
// since redelivery cannot fix them.
func (r *ActivityRecorder) Handle(topic string, msg *message.Message) error {
	metrics.ActivityEventsTotal.WithLabelValues(topic).Inc()

	var env userEnvelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		r.logger.Warn().Err(err).Str("topic", topic).Str("message_id", msg.UUID).Msg("Dropping undecodable event")
		return nil
	}

	occurred := time.Now().UTC()
	if ts := msg.Metadata.Get(MetadataPublishedAt); ts != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			occurred = parsed
		}
	}

	a := Activity{
		ID:            msg.UUID,
		Topic:         topic,
		User:          env.User,
		CorrelationID: msg.Metadata.Get(MetadataCorrelationID),
		OccurredAt:    occurred,
		Payload:       append(json.RawMessage(nil), msg.Payload...),
	}

	r.mu.Lock()
	list := append([]Activity{a}, r.byUser[env.User]...)
	if len(list) > r.limit {
		list = list[:r.limit]
	}
	r.byUser[env.User] = list
	r.mu.Unlock()

	r.logger.Info().
		Str("topic", topic).
		Str("user", env.User).
		Str("correlation_id", a.CorrelationID).
		Msg("Activity recorded")
	return nil
}

// Recent returns up to limit events for user, newest first. limit <= 0
// returns everything kept.
func (r *ActivityRecorder) Recent(user string, limit int) []Activity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.byUser[user]
	if limit <= 0 || limit > len(list) {
		limit = len(list)
	}
	out := make([]Activity, limit)
	copy(out, list[:limit])
	return out
}
