// Reelfeed - Short-Video Movie Discovery Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

// Package feed assembles batches of trailer-enriched movies for one user.
//
// A batch is built in five steps:
//
//  1. Source. Non-empty filters use provider search. Otherwise a random
//     liked movie seeds recommendations, padded with trending when the pool
//     is below MinPool.
//  2. Dedup. Movies already in the user's seen set are dropped.
//  3. Shuffle. Fisher-Yates with the injected random source.
//  4. Truncate to BatchSize.
//  5. Enrich. Each movie is resolved through the details cache, with
//     provider lookups for misses running concurrently. A failed lookup
//     keeps the unenriched record.
//
// Refresh clears the seen set and both caches and bumps a generation
// counter. A batch that was started under an older generation does not
// write to the caches or the seen set and reports ErrSuperseded.
package feed

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/reelfeed/internal/cache"
	"github.com/tomtom215/reelfeed/internal/events"
	"github.com/tomtom215/reelfeed/internal/metrics"
	"github.com/tomtom215/reelfeed/internal/models"
	"github.com/tomtom215/reelfeed/internal/tmdb"
)

// ErrSuperseded is returned when a refresh happened while the batch was
// being assembled.
var ErrSuperseded = errors.New("feed: batch superseded by refresh")

// Provider is the subset of the metadata client the feed needs.
type Provider interface {
	FetchTrending(ctx context.Context) ([]models.Movie, error)
	FetchRecommendations(ctx context.Context, movieID int) []models.Movie
	FetchTrailerKey(ctx context.Context, movieID int) (string, bool)
	MovieDetails(ctx context.Context, movieID int) (models.Movie, error)
	SearchMovies(ctx context.Context, filters models.SearchFilters) ([]models.Movie, error)
}

// Preferences is the per-user state the feed reads and updates.
type Preferences interface {
	LikedMovies() []models.LikedMovieRecord
	IsLiked(movieID int) bool
	ToggleLiked(movie models.Movie) bool
	SeenMovies() map[int]struct{}
	MarkSeenMany(ids []int)
	ClearSeen()
}

// Publisher receives domain events. Publishing is best-effort.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload interface{})
}

// Event topics emitted by the feed.
const (
	TopicMovieLiked    = events.TopicMovieLiked
	TopicMovieUnliked  = events.TopicMovieUnliked
	TopicFeedRefreshed = events.TopicFeedRefreshed
)

// LikeEvent is the payload of movie.liked and movie.unliked.
type LikeEvent struct {
	User    string `json:"user"`
	MovieID int    `json:"movie_id"`
	Title   string `json:"title"`
	Liked   bool   `json:"liked"`
}

// RefreshEvent is the payload of feed.refreshed.
type RefreshEvent struct {
	User       string `json:"user"`
	Generation uint64 `json:"generation"`
}

// Options tunes batch assembly.
type Options struct {
	BatchSize   int // default 20
	MinPool     int // default 10
	Concurrency int // concurrent enrichment lookups, default 8
	Rand        *rand.Rand
	Publisher   Publisher
	User        string // label for events and logs
}

func (o *Options) applyDefaults() {
	if o.BatchSize <= 0 {
		o.BatchSize = 20
	}
	if o.MinPool <= 0 {
		o.MinPool = 10
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 8
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // shuffling, not security
	}
}

// Service assembles feed batches for one user.
type Service struct {
	provider Provider
	prefs    Preferences
	movies   *cache.Bounded[int, models.Movie]
	videos   *cache.Bounded[string, string]
	opts     Options
	logger   zerolog.Logger

	rng   *rand.Rand
	rngMu sync.Mutex

	generation atomic.Uint64
	// applyMu serializes generation checks with the state writes they guard.
	applyMu sync.Mutex
}

// NewService wires a feed service. movies and videos must be distinct caches.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewService(
	provider Provider,
	prefs Preferences,
	movies *cache.Bounded[int, models.Movie],
	videos *cache.Bounded[string, string],
	opts Options,
	logger zerolog.Logger,
) *Service {
	opts.applyDefaults()
	return &Service{
		provider: provider,
		prefs:    prefs,
		movies:   movies,
		videos:   videos,
		opts:     opts,
		rng:      opts.Rand,
		logger:   logger.With().Str("component", "feed").Str("user", opts.User).Logger(),
	}
}

// Generation returns the current refresh generation.
func (s *Service) Generation() uint64 {
	return s.generation.Load()
}

// NextBatch assembles the next batch. An empty batch is not an error.
func (s *Service) NextBatch(ctx context.Context, filters models.SearchFilters) (models.FeedBatch, error) {
	start := time.Now()
	gen := s.generation.Load()

	pool, source, err := s.buildPool(ctx, filters)
	if err != nil {
		metrics.RecordFeedBatch(source, "error", 0, time.Since(start))
		return models.FeedBatch{}, err
	}

	pool = excludeSeen(pool, s.prefs.SeenMovies())
	s.shuffle(pool)
	if len(pool) > s.opts.BatchSize {
		pool = pool[:s.opts.BatchSize]
	}

	results := s.enrich(ctx, pool)

	s.applyMu.Lock()
	if s.generation.Load() != gen {
		s.applyMu.Unlock()
		metrics.RecordFeedBatch(source, "superseded", 0, time.Since(start))
		s.logger.Debug().Uint64("generation", gen).Msg("Discarding batch from a superseded generation")
		return models.FeedBatch{}, ErrSuperseded
	}
	if err := ctx.Err(); err != nil {
		s.applyMu.Unlock()
		metrics.RecordFeedBatch(source, "canceled", 0, time.Since(start))
		s.logger.Debug().Err(err).Msg("Discarding batch for a canceled request")
		return models.FeedBatch{}, err
	}
	batch := s.apply(results)
	s.applyMu.Unlock()

	result := "ok"
	if len(batch) == 0 {
		result = "empty"
	}
	metrics.RecordFeedBatch(source, result, len(batch), time.Since(start))
	s.logger.Debug().Str("source", source).Int("size", len(batch)).Dur("took", time.Since(start)).Msg("Feed batch assembled")

	return models.FeedBatch{Movies: batch, Generation: gen, Source: source}, nil
}

// Refresh clears the seen set and both caches, then assembles a batch.
func (s *Service) Refresh(ctx context.Context, filters models.SearchFilters) (models.FeedBatch, error) {
	s.applyMu.Lock()
	gen := s.generation.Add(1)
	s.prefs.ClearSeen()
	s.movies.Clear()
	s.videos.Clear()
	s.applyMu.Unlock()

	metrics.FeedRefreshes.Inc()
	s.publish(ctx, TopicFeedRefreshed, RefreshEvent{User: s.opts.User, Generation: gen})
	s.logger.Info().Uint64("generation", gen).Msg("Feed refreshed")

	return s.NextBatch(ctx, filters)
}

// buildPool picks the candidate source and returns the deduplicated pool.
func (s *Service) buildPool(ctx context.Context, filters models.SearchFilters) ([]models.Movie, string, error) {
	if !filters.IsEmpty() {
		movies, err := s.provider.SearchMovies(ctx, filters)
		if err != nil {
			return nil, models.SourceSearch, err
		}
		return uniqueByID(movies), models.SourceSearch, nil
	}

	var pool []models.Movie
	source := models.SourceTrending

	if liked := s.prefs.LikedMovies(); len(liked) > 0 {
		seed := liked[s.intn(len(liked))]
		pool = s.provider.FetchRecommendations(ctx, seed.MovieID)
		source = models.SourceRecommendations
	}

	if len(pool) < s.opts.MinPool {
		trending, err := s.provider.FetchTrending(ctx)
		switch {
		case err != nil && len(pool) == 0:
			return nil, models.SourceTrending, err
		case err != nil:
			s.logger.Warn().Err(err).Int("pool", len(pool)).Msg("Trending padding failed, serving recommendations only")
		case len(trending) > 0:
			if len(pool) > 0 {
				source = models.SourceMixed
			} else {
				source = models.SourceTrending
			}
			pool = append(pool, trending...)
		}
	}

	return uniqueByID(pool), source, nil
}

// enrichResult carries one enriched movie plus what it should add to the caches.
type enrichResult struct {
	movie    models.Movie
	fresh    bool // fetched from the provider this round
	videoKey string
}

// enrich resolves every movie concurrently and returns results in input order.
func (s *Service) enrich(ctx context.Context, batch []models.Movie) []enrichResult {
	results := make([]enrichResult, len(batch))
	p := newPool(s.opts.Concurrency)
	for i := range batch {
		p.Go(func() {
			results[i] = s.enrichOne(ctx, batch[i])
		})
	}
	p.Wait()
	return results
}

func (s *Service) enrichOne(ctx context.Context, m models.Movie) enrichResult {
	if cached, ok := s.movies.Get(m.ID); ok {
		out := cached.Clone()
		out.Liked = s.prefs.IsLiked(out.ID)
		return enrichResult{movie: out}
	}

	details, err := s.provider.MovieDetails(ctx, m.ID)
	if err != nil {
		metrics.FeedEnrichmentFailures.Inc()
		s.logger.Warn().Err(err).Int("movie_id", m.ID).Msg("Enrichment failed, serving unenriched record")
		out := m.Clone()
		out.Liked = s.prefs.IsLiked(out.ID)
		return enrichResult{movie: out}
	}

	if key, ok := s.provider.FetchTrailerKey(ctx, m.ID); ok {
		details.VideoKey = &key
		details.EmbedURL = models.YouTubeEmbedURL(key)
	}
	details.Liked = s.prefs.IsLiked(details.ID)

	res := enrichResult{movie: details, fresh: true}
	if details.VideoKey != nil {
		res.videoKey = *details.VideoKey
	}
	return res
}

// apply writes caches and the seen set for a batch that is still current.
// Must be called with applyMu held.
func (s *Service) apply(results []enrichResult) []models.Movie {
	batch := make([]models.Movie, len(results))
	ids := make([]int, len(results))

	for i, r := range results {
		batch[i] = r.movie
		ids[i] = r.movie.ID

		if r.fresh {
			cached := r.movie.Clone()
			cached.Liked = false
			s.movies.Set(cached.ID, cached)
		}
		if r.videoKey != "" {
			s.videos.Set(r.videoKey, models.YouTubeEmbedURL(r.videoKey))
		}
	}

	if len(ids) > 0 {
		s.prefs.MarkSeenMany(ids)
	}
	return batch
}

// ResolveVideoURL returns the embed URL for a trailer key, caching it.
func (s *Service) ResolveVideoURL(videoKey string) string {
	if url, ok := s.videos.Get(videoKey); ok {
		return url
	}
	url := models.YouTubeEmbedURL(videoKey)
	s.videos.Set(videoKey, url)
	return url
}

// ToggleLike flips the like state of movieID and returns the new state.
// The title comes from the details cache when possible. Only a provider
// "not found" blocks the toggle; other lookup failures like the movie
// without a title.
func (s *Service) ToggleLike(ctx context.Context, movieID int) (bool, error) {
	movie, ok := s.movies.Get(movieID)
	if !ok && !s.prefs.IsLiked(movieID) {
		details, err := s.provider.MovieDetails(ctx, movieID)
		switch {
		case tmdb.IsNotFound(err):
			return false, err
		case err != nil:
			metrics.RecordSoftFailure("like_details")
			s.logger.Warn().Err(err).Int("movie_id", movieID).Msg("Details unavailable, liking without title")
		default:
			movie = details
		}
	}
	if movie.ID == 0 {
		movie = models.Movie{ID: movieID, Title: s.likedTitle(movieID)}
	}

	liked := s.prefs.ToggleLiked(movie)
	topic := TopicMovieUnliked
	if liked {
		topic = TopicMovieLiked
	}
	s.publish(ctx, topic, LikeEvent{User: s.opts.User, MovieID: movieID, Title: movie.Title, Liked: liked})
	return liked, nil
}

func (s *Service) likedTitle(movieID int) string {
	for _, r := range s.prefs.LikedMovies() {
		if r.MovieID == movieID {
			return r.Title
		}
	}
	return ""
}

// CacheStats reports both caches.
func (s *Service) CacheStats() map[string]cache.Stats {
	return map[string]cache.Stats{
		s.movies.Name(): s.movies.Stats(),
		s.videos.Name(): s.videos.Stats(),
	}
}

func (s *Service) publish(ctx context.Context, topic string, payload interface{}) {
	if s.opts.Publisher != nil {
		s.opts.Publisher.Publish(ctx, topic, payload)
	}
}

func (s *Service) intn(n int) int {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Intn(n)
}

// shuffle is an in-place Fisher-Yates permutation.
func (s *Service) shuffle(movies []models.Movie) {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	for i := len(movies) - 1; i > 0; i-- {
		j := s.rng.Intn(i + 1)
		movies[i], movies[j] = movies[j], movies[i]
	}
}

// uniqueByID keeps the first occurrence of each id.
func uniqueByID(movies []models.Movie) []models.Movie {
	seen := make(map[int]struct{}, len(movies))
	out := make([]models.Movie, 0, len(movies))
	for _, m := range movies {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	return out
}

// excludeSeen drops every movie whose id is in seen.
func excludeSeen(movies []models.Movie, seen map[int]struct{}) []models.Movie {
	if len(seen) == 0 {
		return movies
	}
	out := movies[:0]
	for _, m := range movies {
		if _, ok := seen[m.ID]; !ok {
			out = append(out, m)
		}
	}
	return out
}
