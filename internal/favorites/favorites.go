// Reelfeed - Short-Video Movie Discovery Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

// Package favorites keeps a per-user list of pinned movies in the local
// store. Each entry is a snapshot of the provider's details at the time it
// was added.
package favorites

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/reelfeed/internal/events"
	"github.com/tomtom215/reelfeed/internal/logging"
	"github.com/tomtom215/reelfeed/internal/models"
	"github.com/tomtom215/reelfeed/internal/store"
	"github.com/tomtom215/reelfeed/internal/validation"
)

const keyspace = "favorite"

// MovieSource resolves movie details for new favorites.
type MovieSource interface {
	MovieDetails(ctx context.Context, movieID int) (models.Movie, error)
}

// Publisher receives favorite.added and favorite.removed events.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload interface{})
}

// Event is the payload of favorite events.
type Event struct {
	User    string `json:"user"`
	MovieID int    `json:"movie_id"`
	Title   string `json:"title,omitempty"`
}

// Service manages favorites.
type Service struct {
	store  *store.Store
	movies MovieSource
	pub    Publisher
	now    func() time.Time
	logger zerolog.Logger

	// mu makes check-then-write in Add atomic.
	mu sync.Mutex
}

// NewService creates a favorites service. pub may be nil.
func NewService(st *store.Store, movies MovieSource, pub Publisher) *Service {
	return &Service{
		store:  st,
		movies: movies,
		pub:    pub,
		now:    time.Now,
		logger: logging.WithComponent("favorites"),
	}
}

func key(user string, movieID int) string {
	return store.Key(keyspace, user, fmt.Sprintf("%010d", movieID))
}

func prefix(user string) string {
	return store.Key(keyspace, user) + ":"
}

func validate(user string, movieID int) error {
	if verr := validation.ValidateVar("user", user, "required,user_handle"); verr != nil {
		return verr
	}
	if verr := validation.ValidateVar("movie_id", movieID, "gt=0"); verr != nil {
		return verr
	}
	return nil
}

// List returns the user's favorites in the order they were added.
func (s *Service) List(user string) ([]models.Favorite, error) {
	if verr := validation.ValidateVar("user", user, "required,user_handle"); verr != nil {
		return nil, verr
	}

	favorites := []models.Favorite{}
	err := s.store.ScanPrefix(prefix(user), func(k string, value []byte) error {
		var f models.Favorite
		if err := json.Unmarshal(value, &f); err != nil {
			s.logger.Warn().Err(err).Str("key", k).Msg("Skipping corrupt favorite")
			return nil
		}
		favorites = append(favorites, f)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}

	sort.SliceStable(favorites, func(i, j int) bool {
		return favorites[i].AddedAt.Before(favorites[j].AddedAt)
	})
	return favorites, nil
}

// Has reports whether movieID is a favorite of user.
func (s *Service) Has(user string, movieID int) (bool, error) {
	if err := validate(user, movieID); err != nil {
		return false, err
	}
	_, err := s.store.Get(key(user, movieID))
	switch {
	case err == nil:
		return true, nil
	case store.IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

// Add pins movieID for user. Adding an existing favorite returns the stored
// entry with created=false and does not call the provider.
func (s *Service) Add(ctx context.Context, user string, movieID int) (fav models.Favorite, created bool, err error) {
	if err := validate(user, movieID); err != nil {
		return models.Favorite{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(user, movieID)
	err = s.store.GetJSON(k, &fav)
	if err == nil {
		return fav, false, nil
	}
	if !store.IsNotFound(err) {
		return models.Favorite{}, false, err
	}

	movie, err := s.movies.MovieDetails(ctx, movieID)
	if err != nil {
		return models.Favorite{}, false, err
	}
	movie.Liked = false

	fav = models.Favorite{TelegramID: user, Movie: movie, AddedAt: s.now().UTC()}
	if err := s.store.SetJSON(k, fav); err != nil {
		return models.Favorite{}, false, fmt.Errorf("save favorite: %w", err)
	}

	s.publish(ctx, events.TopicFavoriteAdded, Event{User: user, MovieID: movieID, Title: movie.Title})
	s.logger.Debug().Str("user", user).Int("movie_id", movieID).Msg("Favorite added")
	return fav, true, nil
}

// Remove unpins movieID and reports whether it was present.
func (s *Service) Remove(ctx context.Context, user string, movieID int) (bool, error) {
	if err := validate(user, movieID); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(user, movieID)
	if _, err := s.store.Get(k); err != nil {
		if store.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	if err := s.store.Delete(k); err != nil {
		return false, fmt.Errorf("remove favorite: %w", err)
	}

	s.publish(ctx, events.TopicFavoriteRemoved, Event{User: user, MovieID: movieID})
	return true, nil
}

// Count returns how many favorites user has.
func (s *Service) Count(user string) (int, error) {
	keys, err := s.store.Keys(prefix(user))
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

func (s *Service) publish(ctx context.Context, topic string, e Event) {
	if s.pub != nil {
		s.pub.Publish(ctx, topic, e)
	}
}
