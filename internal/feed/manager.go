// Reelfeed - Short-Video Movie Discovery Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package feed

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/reelfeed/internal/cache"
	"github.com/tomtom215/reelfeed/internal/models"
	"github.com/tomtom215/reelfeed/internal/preferences"
)

// Cache names used for log lines and metric labels.
const (
	MoviesCacheName = "movies"
	VideosCacheName = "videos"
)

// GenreSource provides the genre catalog.
type GenreSource interface {
	FetchGenreCatalog(ctx context.Context) ([]models.Genre, error)
}

// CatalogProvider is a Provider that can also list genres.
type CatalogProvider interface {
	Provider
	GenreSource
}

// ManagerConfig configures the per-user services created by a Manager.
type ManagerConfig struct {
	CacheCapacity int
	CachePolicy   cache.Policy
	Options       Options
	// Seed fixes the random source of every session when non-zero.
	Seed int64
}

// Manager owns one feed Service per user handle.
type Manager struct {
	provider CatalogProvider
	prefs    *preferences.Registry
	cfg      ManagerConfig
	logger   zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*Service
}

// NewManager creates a manager backed by prefs.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewManager(provider CatalogProvider, prefs *preferences.Registry, cfg ManagerConfig, logger zerolog.Logger) *Manager {
	return &Manager{
		provider: provider,
		prefs:    prefs,
		cfg:      cfg,
		logger:   logger,
		sessions: make(map[string]*Service),
	}
}

// For returns the service for user, creating it on first use.
func (m *Manager) For(user string) *Service {
	m.mu.Lock()
	defer m.mu.Unlock()

	if svc, ok := m.sessions[user]; ok {
		return svc
	}

	opts := m.cfg.Options
	opts.User = user
	seed := m.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	opts.Rand = rand.New(rand.NewSource(seed)) //nolint:gosec // shuffling, not security

	svc := NewService(
		m.provider,
		m.prefs.For(user),
		cache.New[int, models.Movie](MoviesCacheName, m.cfg.CacheCapacity, m.cfg.CachePolicy),
		cache.New[string, string](VideosCacheName, m.cfg.CacheCapacity, m.cfg.CachePolicy),
		opts,
		m.logger,
	)
	m.sessions[user] = svc
	return svc
}

// Preferences returns the preference store for user.
func (m *Manager) Preferences(user string) *preferences.Store {
	return m.prefs.For(user)
}

// Genres returns the provider's genre catalog.
func (m *Manager) Genres(ctx context.Context) ([]models.Genre, error) {
	return m.provider.FetchGenreCatalog(ctx)
}

// Sessions returns the number of active sessions.
func (m *Manager) Sessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
