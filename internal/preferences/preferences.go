// Reelfeed - Short-Video Movie Discovery Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

// Package preferences keeps a user's liked movies, seen movies and sound
// setting.
//
// The store is fail-open. State lives in memory and is loaded once from the
// Backend at construction; every mutation is written through. A missing
// backend, a missing key, a read error or a value that does not decode all
// load as the default. Failed writes are logged and dropped. No method
// returns an error, so the feed keeps working with no persistence at all.
package preferences

import (
	"errors"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/reelfeed/internal/logging"
	"github.com/tomtom215/reelfeed/internal/metrics"
	"github.com/tomtom215/reelfeed/internal/models"
	"github.com/tomtom215/reelfeed/internal/store"
)

// Logical keys in the backend.
const (
	KeyLikedMovies = "liked_movies"
	KeySeenMovies  = "seen_movies"
	KeySoundMuted  = "sound_muted"
)

// Backend is a string-keyed byte store. Get returns store.ErrNotFound for a
// key that was never written.
type Backend interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
}

// Store holds one user's preferences.
type Store struct {
	mu sync.RWMutex

	backend Backend
	prefix  string
	now     func() time.Time
	logger  zerolog.Logger

	liked      []models.LikedMovieRecord
	likedIndex map[int]int // movieID -> position in liked
	seen       map[int]struct{}
	seenOrder  []int
	soundMuted bool
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides time.Now for like timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithNamespace prefixes every backend key with "prefs:<namespace>:".
func WithNamespace(namespace string) Option {
	return func(s *Store) {
		if namespace != "" {
			s.prefix = store.Key("prefs", namespace, "")
		}
	}
}

// New loads preferences from backend. backend may be nil, in which case the
// store is memory-only.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend:    backend,
		now:        time.Now,
		likedIndex: make(map[int]int),
		seen:       make(map[int]struct{}),
		soundMuted: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.With().Str("component", "preferences").Str("namespace", s.prefix).Logger()
	s.load()
	return s
}

func (s *Store) load() {
	var liked []models.LikedMovieRecord
	if s.read(KeyLikedMovies, &liked) {
		for _, r := range liked {
			if _, dup := s.likedIndex[r.MovieID]; dup || r.MovieID == 0 {
				continue
			}
			s.likedIndex[r.MovieID] = len(s.liked)
			s.liked = append(s.liked, r)
		}
	}

	var seen []int
	if s.read(KeySeenMovies, &seen) {
		for _, id := range seen {
			if _, dup := s.seen[id]; !dup {
				s.seen[id] = struct{}{}
				s.seenOrder = append(s.seenOrder, id)
			}
		}
	}

	var muted bool
	if s.read(KeySoundMuted, &muted) {
		s.soundMuted = muted
	}
}

// read decodes key into v and reports success. Any failure means "absent".
func (s *Store) read(key string, v interface{}) bool {
	if s.backend == nil {
		return false
	}
	data, err := s.backend.Get(s.prefix + key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn().Err(err).Str("key", key).Msg("Preference read failed, using default")
		}
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Corrupt preference value, using default")
		return false
	}
	return true
}

// write persists v under key. Must be called with mu held so writes land in
// mutation order.
func (s *Store) write(key string, v interface{}) {
	if s.backend == nil {
		return
	}
	data, err := json.Marshal(v)
	if err == nil {
		err = s.backend.Set(s.prefix+key, data)
	}
	if err != nil {
		metrics.PreferenceWriteFailures.WithLabelValues(key).Inc()
		s.logger.Warn().Err(err).Str("key", key).Msg("Preference write dropped")
	}
}

// LikedMovies returns the liked records in the order they were liked.
func (s *Store) LikedMovies() []models.LikedMovieRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.LikedMovieRecord(nil), s.liked...)
}

// IsLiked reports whether movieID is liked.
func (s *Store) IsLiked(movieID int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.likedIndex[movieID]
	return ok
}

// ToggleLiked flips the liked state of movie and returns the new state.
func (s *Store) ToggleLiked(movie models.Movie) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pos, ok := s.likedIndex[movie.ID]; ok {
		s.liked = append(s.liked[:pos], s.liked[pos+1:]...)
		delete(s.likedIndex, movie.ID)
		for i := pos; i < len(s.liked); i++ {
			s.likedIndex[s.liked[i].MovieID] = i
		}
		s.write(KeyLikedMovies, s.liked)
		return false
	}

	s.likedIndex[movie.ID] = len(s.liked)
	s.liked = append(s.liked, models.LikedMovieRecord{
		MovieID: movie.ID,
		Title:   movie.Title,
		LikedAt: s.now().UnixMilli(),
	})
	s.write(KeyLikedMovies, s.liked)
	return true
}

// SeenMovies returns a copy of the seen set.
func (s *Store) SeenMovies() map[int]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int]struct{}, len(s.seen))
	for id := range s.seen {
		out[id] = struct{}{}
	}
	return out
}

// IsSeen reports whether movieID was already surfaced.
func (s *Store) IsSeen(movieID int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.seen[movieID]
	return ok
}

// MarkSeen adds movieID to the seen set. No-op if already present.
func (s *Store) MarkSeen(movieID int) {
	s.MarkSeenMany([]int{movieID})
}

// MarkSeenMany adds several ids with a single backend write.
func (s *Store) MarkSeenMany(ids []int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for _, id := range ids {
		if _, ok := s.seen[id]; ok {
			continue
		}
		s.seen[id] = struct{}{}
		s.seenOrder = append(s.seenOrder, id)
		changed = true
	}
	if changed {
		s.write(KeySeenMovies, s.seenOrder)
	}
}

// ClearSeen empties the seen set.
func (s *Store) ClearSeen() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = make(map[int]struct{})
	s.seenOrder = nil
	s.write(KeySeenMovies, []int{})
}

// SoundMuted returns the sound flag. Defaults to true.
func (s *Store) SoundMuted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.soundMuted
}

// SetSoundMuted updates the sound flag.
func (s *Store) SetSoundMuted(muted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.soundMuted = muted
	s.write(KeySoundMuted, muted)
}
