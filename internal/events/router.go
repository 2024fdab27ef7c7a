// Reelfeed - Short-Video Movie Discovery Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/rs/zerolog"

	"github.com/tomtom215/reelfeed/internal/logging"
)

// RouterConfig holds configuration for the event router.
type RouterConfig struct {
	// CloseTimeout is how long to wait for handlers to finish when closing.
	CloseTimeout time.Duration

	RetryMaxRetries      int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
}

// DefaultRouterConfig returns defaults for the event router.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CloseTimeout:         10 * time.Second,
		RetryMaxRetries:      3,
		RetryInitialInterval: 100 * time.Millisecond,
		RetryMaxInterval:     2 * time.Second,
	}
}

// ConsumerFunc handles one message from topic.
type ConsumerFunc func(topic string, msg *message.Message) error

// RouterService runs a Watermill router under a supervisor. A fresh router
// is built on every Serve so the service can be restarted.
type RouterService struct {
	subscriber message.Subscriber
	consumers  map[string]ConsumerFunc
	topics     []string
	cfg        RouterConfig
	logger     zerolog.Logger

	readyOnce sync.Once
	ready     chan struct{}
}

// NewRouterService creates a router service subscribing consumer to topics.
func NewRouterService(subscriber message.Subscriber, topics []string, consumer ConsumerFunc, cfg RouterConfig) *RouterService {
	if cfg.CloseTimeout <= 0 {
		cfg = DefaultRouterConfig()
	}
	consumers := make(map[string]ConsumerFunc, len(topics))
	for _, t := range topics {
		consumers[t] = consumer
	}
	return &RouterService{
		subscriber: subscriber,
		consumers:  consumers,
		topics:     append([]string(nil), topics...),
		cfg:        cfg,
		logger:     logging.WithComponent("event-router"),
		ready:      make(chan struct{}),
	}
}

// Ready is closed once the first router instance is running.
func (s *RouterService) Ready() <-chan struct{} {
	return s.ready
}

func (s *RouterService) build() (*message.Router, error) {
	logger := logging.NewWatermillAdapter(s.logger)
	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: s.cfg.CloseTimeout}, logger)
	if err != nil {
		return nil, fmt.Errorf("create event router: %w", err)
	}

	router.AddMiddleware(middleware.Recoverer)
	retry := middleware.Retry{
		MaxRetries:      s.cfg.RetryMaxRetries,
		InitialInterval: s.cfg.RetryInitialInterval,
		MaxInterval:     s.cfg.RetryMaxInterval,
		Multiplier:      2.0,
		Logger:          logger,
	}
	router.AddMiddleware(retry.Middleware)

	for _, topic := range s.topics {
		consume := s.consumers[topic]
		router.AddConsumerHandler(
			"activity."+topic,
			topic,
			s.subscriber,
			func(msg *message.Message) error {
				return consume(topic, msg)
			},
		)
	}
	return router, nil
}

// Serve implements suture.Service.
func (s *RouterService) Serve(ctx context.Context) error {
	router, err := s.build()
	if err != nil {
		return err
	}

	go func() {
		select {
		case <-router.Running():
			s.readyOnce.Do(func() { close(s.ready) })
		case <-ctx.Done():
		}
	}()

	s.logger.Info().Int("topics", len(s.topics)).Msg("Event router starting")
	if err := router.Run(ctx); err != nil {
		return fmt.Errorf("event router: %w", err)
	}
	return ctx.Err()
}

// String implements fmt.Stringer for suture logging.
func (s *RouterService) String() string {
	return "event-router"
}
