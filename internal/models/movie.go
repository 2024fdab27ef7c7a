// Reelfeed - Short-Video Movie Discovery Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

// Package models defines the data types shared between the metadata client,
// the feed pipeline, the local stores and the HTTP API.
package models

import "time"

// Movie is a catalog item as consumed by the feed.
//
// ID is the provider-assigned identifier and is unique across every source
// (trending, recommendations, search). VideoKey and Genres stay nil until the
// feed enriches the record; Liked is derived from the preference store each
// time the movie is handed out and is never cached as truth.
type Movie struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	Overview     string  `json:"overview"`
	VoteAverage  float64 `json:"vote_average"`
	PosterPath   *string `json:"poster_path"`
	BackdropPath *string `json:"backdrop_path"`
	ReleaseDate  string  `json:"release_date,omitempty"`
	GenreIDs     []int   `json:"genre_ids,omitempty"`
	VideoKey     *string `json:"video_key"`
	Liked        bool    `json:"liked"`
	Genres       []Genre `json:"genres,omitempty"`
	EmbedURL     string  `json:"embed_url,omitempty"`
}

// Clone returns a copy that shares no slices or pointers with m.
func (m Movie) Clone() Movie {
	out := m
	out.PosterPath = cloneString(m.PosterPath)
	out.BackdropPath = cloneString(m.BackdropPath)
	out.VideoKey = cloneString(m.VideoKey)
	if m.GenreIDs != nil {
		out.GenreIDs = append([]int(nil), m.GenreIDs...)
	}
	if m.Genres != nil {
		out.Genres = append([]Genre(nil), m.Genres...)
	}
	return out
}

// HasTrailer reports whether a trailer key has been resolved.
func (m Movie) HasTrailer() bool {
	return m.VideoKey != nil && *m.VideoKey != ""
}

// YouTubeEmbedURL is the player URL for a trailer key, or "" for no key.
func YouTubeEmbedURL(videoKey string) string {
	if videoKey == "" {
		return ""
	}
	return "https://www.youtube.com/embed/" + videoKey
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// Genre is a provider genre.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// LikedMovieRecord is the persisted personalization record for one liked
// movie. LikedAt is epoch milliseconds.
type LikedMovieRecord struct {
	MovieID int    `json:"movie_id"`
	Title   string `json:"title"`
	LikedAt int64  `json:"liked_at"`
}

// LikedTime converts LikedAt to a time.Time.
func (r LikedMovieRecord) LikedTime() time.Time {
	return time.UnixMilli(r.LikedAt)
}

// SearchFilters narrows the feed. MinRating is on a 0 to 5 scale.
type SearchFilters struct {
	Query     string  `json:"query,omitempty"`
	GenreIDs  []int   `json:"genre_ids,omitempty"`
	MinRating float64 `json:"min_rating,omitempty"`
}

// IsEmpty reports whether no filter is set.
func (f SearchFilters) IsEmpty() bool {
	return f.Query == "" && len(f.GenreIDs) == 0 && f.MinRating <= 0
}

// Feed batch sources.
const (
	SourceSearch          = "search"
	SourceRecommendations = "recommendations"
	SourceTrending        = "trending"
	SourceMixed           = "mixed"
)

// FeedBatch is one bounded result of feed assembly.
type FeedBatch struct {
	Movies     []Movie `json:"movies"`
	Generation uint64  `json:"generation"`
	Source     string  `json:"source"`
}
