// Reelfeed - Short-Video Movie Discovery Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package events

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/reelfeed/internal/logging"
	"github.com/tomtom215/reelfeed/internal/metrics"
)

// Topics published by the application.
const (
	TopicMovieLiked      = "movie.liked"
	TopicMovieUnliked    = "movie.unliked"
	TopicFeedRefreshed   = "feed.refreshed"
	TopicFavoriteAdded   = "favorite.added"
	TopicFavoriteRemoved = "favorite.removed"
	TopicCommentCreated  = "comment.created"
	TopicCommentDeleted  = "comment.deleted"
)

// AllTopics lists every topic in a stable order.
var AllTopics = []string{
	TopicMovieLiked,
	TopicMovieUnliked,
	TopicFeedRefreshed,
	TopicFavoriteAdded,
	TopicFavoriteRemoved,
	TopicCommentCreated,
	TopicCommentDeleted,
}

// Metadata keys set on every message.
const (
	MetadataCorrelationID = "correlation_id"
	MetadataPublishedAt   = "published_at"
)

// BusConfig configures the in-process pub/sub.
type BusConfig struct {
	// OutputChannelBuffer is the per-subscriber buffer. Default: 256
	OutputChannelBuffer int64
}

// Bus publishes JSON-encoded domain events.
type Bus struct {
	pubsub *gochannel.GoChannel
	logger zerolog.Logger
}

// NewBus creates an in-memory bus.
func NewBus(cfg BusConfig) *Bus {
	if cfg.OutputChannelBuffer <= 0 {
		cfg.OutputChannelBuffer = 256
	}
	logger := logging.WithComponent("events")
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: cfg.OutputChannelBuffer,
		}, logging.NewWatermillAdapter(logger)),
		logger: logger,
	}
}

// Publish encodes payload and publishes it on topic. Failures are logged
// and counted, never returned.
func (b *Bus) Publish(ctx context.Context, topic string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		metrics.EventPublishFailures.WithLabelValues(topic).Inc()
		b.logger.Error().Err(err).Str("topic", topic).Msg("Failed to encode event")
		return
	}

	msg := message.NewMessage(uuid.NewString(), data)
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		msg.Metadata.Set(MetadataCorrelationID, id)
	}
	msg.Metadata.Set(MetadataPublishedAt, time.Now().UTC().Format(time.RFC3339Nano))

	if err := b.pubsub.Publish(topic, msg); err != nil {
		metrics.EventPublishFailures.WithLabelValues(topic).Inc()
		b.logger.Warn().Err(err).Str("topic", topic).Str("message_id", msg.UUID).Msg("Failed to publish event")
		return
	}
	b.logger.Debug().Str("topic", topic).Str("message_id", msg.UUID).Msg("Event published")
}

// Subscriber returns the subscriber side of the bus for router handlers.
func (b *Bus) Subscriber() message.Subscriber {
	return b.pubsub
}

// Close stops delivery. Publishing after Close fails and is counted.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}
