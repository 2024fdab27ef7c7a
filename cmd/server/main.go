// Reelfeed - Short-Video Movie Discovery Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

// Package main is the entry point for the Reelfeed server.
//
// Reelfeed serves an endless, personalized feed of movie trailers backed by
// TMDB. Each user gets batches of unseen movies assembled from search results,
// recommendations seeded by their likes, or trending titles.
//
// # Application Architecture
//
//	reelfeed
//	├── storage-layer   badger value log GC
//	├── events-layer    watermill router feeding the activity recorder
//	└── api-layer       chi HTTP server
//
// Startup order:
//
//  1. Configuration (koanf: defaults, config.yaml, environment)
//  2. Logging (zerolog)
//  3. Badger store for preferences, favorites and comments
//  4. TMDB client with rate limiting and a circuit breaker
//  5. Event bus and activity recorder
//  6. Feed manager, favorites and comments services
//  7. HTTP router and server under the suture tree
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the root context. The HTTP server drains for
// HTTP_SHUTDOWN_TIMEOUT, then the event router and store close.
//
// # Example Usage
//
//	export TMDB_API_KEY=your-key
//	export STORE_PATH=/var/lib/reelfeed
//	./reelfeed
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/tomtom215/reelfeed/internal/api"
	"github.com/tomtom215/reelfeed/internal/cache"
	"github.com/tomtom215/reelfeed/internal/comments"
	"github.com/tomtom215/reelfeed/internal/config"
	"github.com/tomtom215/reelfeed/internal/events"
	"github.com/tomtom215/reelfeed/internal/favorites"
	"github.com/tomtom215/reelfeed/internal/feed"
	"github.com/tomtom215/reelfeed/internal/logging"
	"github.com/tomtom215/reelfeed/internal/preferences"
	"github.com/tomtom215/reelfeed/internal/store"
	"github.com/tomtom215/reelfeed/internal/supervisor"
	"github.com/tomtom215/reelfeed/internal/supervisor/services"
	"github.com/tomtom215/reelfeed/internal/tmdb"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().
		Str("version", version).
		Str("addr", cfg.Server.Addr()).
		Bool("store_in_memory", cfg.Store.InMemory).
		Str("cache_policy", cfg.Cache.Policy).
		Msg("Starting Reelfeed")

	if cfg.HasWildcardCORS() {
		logging.Warn().Msg("CORS allows any origin (CORS_ORIGINS=*). Restrict it in production.")
	}
	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is disabled (DISABLE_RATE_LIMIT=true)")
	}

	st, err := store.Open(store.Config{
		Path:       cfg.Store.Path,
		InMemory:   cfg.Store.InMemory,
		SyncWrites: cfg.Store.SyncWrites,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()

	provider, err := tmdb.New(tmdb.Config{
		APIKey:              cfg.TMDB.APIKey,
		BaseURL:             cfg.TMDB.BaseURL,
		ImageBaseURL:        cfg.TMDB.ImageBaseURL,
		Language:            cfg.TMDB.Language,
		Timeout:             cfg.TMDB.Timeout,
		RateLimit:           cfg.TMDB.RateLimit,
		RateBurst:           cfg.TMDB.RateBurst,
		MaxRetries:          cfg.TMDB.MaxRetries,
		BreakerFailureRatio: cfg.TMDB.BreakerFailureRatio,
		BreakerTimeout:      cfg.TMDB.BreakerTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create TMDB client")
	}

	bus := events.NewBus(events.BusConfig{OutputChannelBuffer: cfg.Events.BufferSize})
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()
	recorder := events.NewActivityRecorder(cfg.Events.ActivityLimit)

	feeds := feed.NewManager(provider, preferences.NewRegistry(st), feed.ManagerConfig{
		CacheCapacity: cfg.Cache.Capacity,
		CachePolicy:   cache.ParsePolicy(strings.ToLower(cfg.Cache.Policy)),
		Options: feed.Options{
			BatchSize:   cfg.Feed.BatchSize,
			MinPool:     cfg.Feed.MinPool,
			Concurrency: cfg.Feed.Concurrency,
			Publisher:   bus,
		},
		Seed: cfg.Feed.Seed,
	}, logging.WithComponent("feed"))

	handler := api.NewHandler(api.Dependencies{
		Feeds:     feeds,
		Favorites: favorites.NewService(st, provider, bus),
		Comments:  comments.NewService(st, bus),
		Activity:  recorder,
		Provider:  provider,
		Store:     st,
		Version:   version,
	})
	mw := api.NewChiMiddlewareFromSecurity(
		cfg.Security.CORSOrigins,
		cfg.Security.RateLimitReqs,
		cfg.Security.RateLimitWindow,
		cfg.Security.RateLimitDisabled,
	)
	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.NewRouter(handler, mw).Setup(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddStorageService(store.NewGCService(st, cfg.Store.GCInterval, cfg.Store.GCDiscardRatio))
	tree.AddEventService(events.NewRouterService(bus.Subscriber(), events.AllTopics, recorder.Handle, events.DefaultRouterConfig()))
	tree.AddAPIService(services.NewHTTPService(server, cfg.Server.ShutdownTimeout))

	if path := config.FilePath(); path != "" {
		watchLogLevel(path)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Info().Msg("Starting supervisor tree")
	if err := <-tree.ServeBackground(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree stopped with error")
	}

	if unstopped, err := tree.UnstoppedServiceReport(); err == nil {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
		}
	}
	logging.Info().Msg("Reelfeed stopped")
}

// watchLogLevel reloads the config when the file changes and applies the new
// log level. Other settings need a restart.
func watchLogLevel(path string) {
	err := config.WatchConfigFile(path, func() {
		cfg, err := config.Load()
		if err != nil {
			logging.Warn().Err(err).Str("path", path).Msg("Ignoring invalid config change")
			return
		}
		logging.SetLevelString(cfg.Logging.Level)
		logging.Info().Str("level", cfg.Logging.Level).Msg("Log level reloaded")
	})
	if err != nil {
		logging.Warn().Err(err).Str("path", path).Msg("Config file watch unavailable")
	}
}
