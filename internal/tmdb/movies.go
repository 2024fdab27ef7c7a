// Reelfeed - Short-Video Movie Discovery Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package tmdb

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/tomtom215/reelfeed/internal/metrics"
	"github.com/tomtom215/reelfeed/internal/models"
)

// Wire types

type tmdbMovie struct {
	ID           int            `json:"id"`
	Title        string         `json:"title"`
	Overview     string         `json:"overview"`
	VoteAverage  float64        `json:"vote_average"`
	PosterPath   *string        `json:"poster_path"`
	BackdropPath *string        `json:"backdrop_path"`
	ReleaseDate  string         `json:"release_date"`
	GenreIDs     []int          `json:"genre_ids"`
	Genres       []models.Genre `json:"genres"`
}

type movieListResponse struct {
	Page         int         `json:"page"`
	Results      []tmdbMovie `json:"results"`
	TotalPages   int         `json:"total_pages"`
	TotalResults int         `json:"total_results"`
}

type tmdbVideo struct {
	Key      string `json:"key"`
	Site     string `json:"site"`
	Type     string `json:"type"`
	ISO6391  string `json:"iso_639_1"`
	Official bool   `json:"official"`
}

type videosResponse struct {
	ID      int         `json:"id"`
	Results []tmdbVideo `json:"results"`
}

type genreListResponse struct {
	Genres []models.Genre `json:"genres"`
}

// normalize converts a wire record into a Movie with trailer and genres
// left unresolved.
func normalize(m tmdbMovie) models.Movie {
	return models.Movie{
		ID:           m.ID,
		Title:        m.Title,
		Overview:     m.Overview,
		VoteAverage:  m.VoteAverage,
		PosterPath:   emptyToNil(m.PosterPath),
		BackdropPath: emptyToNil(m.BackdropPath),
		ReleaseDate:  m.ReleaseDate,
		GenreIDs:     m.GenreIDs,
	}
}

func normalizeList(in []tmdbMovie) []models.Movie {
	out := make([]models.Movie, 0, len(in))
	for _, m := range in {
		if m.ID == 0 {
			continue
		}
		out = append(out, normalize(m))
	}
	return out
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

func (c *Client) listParams() url.Values {
	return url.Values{"language": {c.cfg.Language}}
}

// FetchTrending returns today's trending movies.
func (c *Client) FetchTrending(ctx context.Context) ([]models.Movie, error) {
	var resp movieListResponse
	if err := c.getJSON(ctx, "trending", "/trending/movie/day", c.listParams(), &resp); err != nil {
		return nil, err
	}
	return normalizeList(resp.Results), nil
}

// FetchRecommendations returns movies recommended from movieID. Failures are
// logged and yield an empty result.
func (c *Client) FetchRecommendations(ctx context.Context, movieID int) []models.Movie {
	var resp movieListResponse
	path := fmt.Sprintf("/movie/%d/recommendations", movieID)
	if err := c.getJSON(ctx, "recommendations", path, c.listParams(), &resp); err != nil {
		metrics.RecordSoftFailure("recommendations")
		c.logger.Warn().Err(err).Int("movie_id", movieID).Msg("Recommendations unavailable")
		return nil
	}
	return normalizeList(resp.Results)
}

// FetchTrailerKey returns the YouTube key of the movie's trailer.
//
// A trailer in the locale's language wins; otherwise the first YouTube
// trailer in any language. Teasers, clips and featurettes are ignored.
// Failures are logged and reported as no trailer.
func (c *Client) FetchTrailerKey(ctx context.Context, movieID int) (string, bool) {
	lang := c.languageCode()
	params := url.Values{}
	if lang != "" && lang != "en" {
		params.Set("include_video_language", lang+",en,null")
	}

	var resp videosResponse
	path := fmt.Sprintf("/movie/%d/videos", movieID)
	if err := c.getJSON(ctx, "videos", path, params, &resp); err != nil {
		metrics.RecordSoftFailure("trailer")
		c.logger.Warn().Err(err).Int("movie_id", movieID).Msg("Trailer lookup failed")
		return "", false
	}

	key := selectTrailer(resp.Results, lang)
	return key, key != ""
}

// selectTrailer applies the two-tier trailer preference.
func selectTrailer(videos []tmdbVideo, lang string) string {
	fallback := ""
	for _, v := range videos {
		if !strings.EqualFold(v.Site, "YouTube") || v.Type != "Trailer" || v.Key == "" {
			continue
		}
		if lang != "" && strings.EqualFold(v.ISO6391, lang) {
			return v.Key
		}
		if fallback == "" {
			fallback = v.Key
		}
	}
	return fallback
}

// MovieDetails fetches the full record for movieID, genres included.
func (c *Client) MovieDetails(ctx context.Context, movieID int) (models.Movie, error) {
	var resp tmdbMovie
	path := fmt.Sprintf("/movie/%d", movieID)
	if err := c.getJSON(ctx, "details", path, c.listParams(), &resp); err != nil {
		return models.Movie{}, err
	}

	m := normalize(resp)
	m.Genres = make([]models.Genre, len(resp.Genres))
	copy(m.Genres, resp.Genres)
	m.GenreIDs = make([]int, len(resp.Genres))
	for i, g := range resp.Genres {
		m.GenreIDs[i] = g.ID
	}
	return m, nil
}

// FetchGenres returns the genres of movieID, or nothing on failure.
func (c *Client) FetchGenres(ctx context.Context, movieID int) []models.Genre {
	m, err := c.MovieDetails(ctx, movieID)
	if err != nil {
		metrics.RecordSoftFailure("genres")
		c.logger.Warn().Err(err).Int("movie_id", movieID).Msg("Genre lookup failed")
		return nil
	}
	return m.Genres
}

// FetchGenreCatalog returns the provider's movie genre list. The first
// successful result is kept for the life of the client; concurrent first
// calls share one request.
func (c *Client) FetchGenreCatalog(ctx context.Context) ([]models.Genre, error) {
	c.genreMu.RLock()
	cached := c.genreCatalog
	c.genreMu.RUnlock()
	if cached != nil {
		return append([]models.Genre(nil), cached...), nil
	}

	// The shared fetch outlives any single caller; each caller still
	// stops waiting when its own context ends.
	ch := c.genreGroup.DoChan("genres", func() (interface{}, error) {
		c.genreMu.RLock()
		if c.genreCatalog != nil {
			defer c.genreMu.RUnlock()
			return c.genreCatalog, nil
		}
		c.genreMu.RUnlock()

		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.Timeout)
		defer cancel()

		var resp genreListResponse
		if err := c.getJSON(fetchCtx, "genre_list", "/genre/movie/list", c.listParams(), &resp); err != nil {
			return nil, err
		}
		genres := resp.Genres
		if genres == nil {
			genres = []models.Genre{}
		}

		c.genreMu.Lock()
		c.genreCatalog = genres
		c.genreMu.Unlock()
		return genres, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return append([]models.Genre(nil), res.Val.([]models.Genre)...), nil
	}
}

// SearchMovies runs a text search when a query is given, otherwise a
// discover query. MinRating is on a 0 to 5 scale and is doubled for the
// provider's 0 to 10 vote_average.
//
// /search/movie ignores genre and rating parameters, so those filters are
// applied to its results here.
func (c *Client) SearchMovies(ctx context.Context, filters models.SearchFilters) ([]models.Movie, error) {
	minVote := filters.MinRating * 2
	params := c.listParams()
	params.Set("include_adult", "false")
	params.Set("page", "1")

	query := strings.TrimSpace(filters.Query)
	if query == "" {
		params.Set("sort_by", "popularity.desc")
		if len(filters.GenreIDs) > 0 {
			params.Set("with_genres", joinInts(filters.GenreIDs))
		}
		if minVote > 0 {
			params.Set("vote_average.gte", strconv.FormatFloat(minVote, 'f', -1, 64))
		}

		var resp movieListResponse
		if err := c.getJSON(ctx, "discover", "/discover/movie", params, &resp); err != nil {
			return nil, err
		}
		return normalizeList(resp.Results), nil
	}

	params.Set("query", query)
	var resp movieListResponse
	if err := c.getJSON(ctx, "search", "/search/movie", params, &resp); err != nil {
		return nil, err
	}

	out := normalizeList(resp.Results)
	filtered := out[:0]
	for _, m := range out {
		if minVote > 0 && m.VoteAverage < minVote {
			continue
		}
		if !hasAllGenres(m.GenreIDs, filters.GenreIDs) {
			continue
		}
		filtered = append(filtered, m)
	}
	return filtered, nil
}

func hasAllGenres(have, want []int) bool {
	for _, w := range want {
		found := false
		for _, h := range have {
			if h == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func joinInts(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}
