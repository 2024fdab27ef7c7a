// Reelfeed - Short-Video Movie Discovery Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package models

import "time"

// Favorite is a movie pinned by a user. TelegramID is the opaque user handle
// supplied by the session backend.
type Favorite struct {
	TelegramID string    `json:"telegram_id"`
	Movie      Movie     `json:"movie"`
	AddedAt    time.Time `json:"added_at"`
}

// Comment is a user review attached to a movie. Likes is len(LikedBy).
type Comment struct {
	ID        string    `json:"id"`
	MovieID   int       `json:"movie_id"`
	UserID    string    `json:"user_id"`
	Text      string    `json:"text"`
	Rating    int       `json:"rating"`
	Likes     int       `json:"likes"`
	LikedBy   []string  `json:"liked_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateCommentRequest is the body of POST /movies/{movieID}/comments.
type CreateCommentRequest struct {
	MovieID int    `json:"movie_id" validate:"required,gt=0"`
	UserID  string `json:"user_id" validate:"required,user_handle"`
	Text    string `json:"text" validate:"required,min=1,max=1000"`
	Rating  int    `json:"rating" validate:"required,min=1,max=10"`
}

// AddFavoriteRequest is the body of POST /users/{user}/favorites.
type AddFavoriteRequest struct {
	MovieID int `json:"movie_id" validate:"required,gt=0"`
}

// SoundPreferenceRequest is the body of PUT /users/{user}/sound.
type SoundPreferenceRequest struct {
	Muted *bool `json:"muted" validate:"required"`
}
