// Reelfeed - Short-Video Movie Discovery Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

// Package comments stores user reviews of movies.
//
// Comments live under "comment:<id>" with a secondary index
// "comment_movie:<movieID>:<id>" so a movie's comments can be listed
// without scanning every record. Both keys are written in one transaction.
package comments

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/reelfeed/internal/events"
	"github.com/tomtom215/reelfeed/internal/logging"
	"github.com/tomtom215/reelfeed/internal/models"
	"github.com/tomtom215/reelfeed/internal/store"
	"github.com/tomtom215/reelfeed/internal/validation"
)

var (
	// ErrNotFound is returned for unknown comment ids.
	ErrNotFound = errors.New("comments: not found")

	// ErrNotAuthor is returned when someone other than the author deletes a comment.
	ErrNotAuthor = errors.New("comments: only the author may delete a comment")
)

const (
	recordSpace = "comment"
	indexSpace  = "comment_movie"
)

// Publisher receives comment events.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload interface{})
}

// Event is the payload of comment.created and comment.deleted.
type Event struct {
	User      string `json:"user"`
	CommentID string `json:"comment_id"`
	MovieID   int    `json:"movie_id"`
	Rating    int    `json:"rating,omitempty"`
}

// Service manages comments.
type Service struct {
	store  *store.Store
	pub    Publisher
	now    func() time.Time
	newID  func() string
	logger zerolog.Logger

	// mu serializes read-modify-write on a comment.
	mu sync.Mutex
}

// NewService creates a comments service. pub may be nil.
func NewService(st *store.Store, pub Publisher) *Service {
	return &Service{
		store:  st,
		pub:    pub,
		now:    time.Now,
		newID:  uuid.NewString,
		logger: logging.WithComponent("comments"),
	}
}

func recordKey(id string) string {
	return store.Key(recordSpace, id)
}

func indexPrefix(movieID int) string {
	return store.Key(indexSpace, fmt.Sprintf("%010d", movieID)) + ":"
}

func indexKey(movieID int, id string) string {
	return indexPrefix(movieID) + id
}

// Create validates req and stores a new comment.
func (s *Service) Create(ctx context.Context, req models.CreateCommentRequest) (models.Comment, error) {
	req.Text = strings.TrimSpace(req.Text)
	if verr := validation.ValidateStruct(&req); verr != nil {
		return models.Comment{}, verr
	}

	c := models.Comment{
		ID:        s.newID(),
		MovieID:   req.MovieID,
		UserID:    req.UserID,
		Text:      req.Text,
		Rating:    req.Rating,
		CreatedAt: s.now().UTC(),
	}

	err := s.store.Update(func(b *store.Batch) error {
		if err := b.SetJSON(recordKey(c.ID), c); err != nil {
			return err
		}
		return b.Set(indexKey(c.MovieID, c.ID), []byte(c.UserID))
	})
	if err != nil {
		return models.Comment{}, fmt.Errorf("save comment: %w", err)
	}

	s.publish(ctx, events.TopicCommentCreated, Event{User: c.UserID, CommentID: c.ID, MovieID: c.MovieID, Rating: c.Rating})
	s.logger.Debug().Str("comment_id", c.ID).Int("movie_id", c.MovieID).Msg("Comment created")
	return c, nil
}

// Get returns one comment.
func (s *Service) Get(id string) (models.Comment, error) {
	if verr := validation.ValidateVar("comment_id", id, "required,uuid4"); verr != nil {
		return models.Comment{}, verr
	}
	var c models.Comment
	if err := s.store.GetJSON(recordKey(id), &c); err != nil {
		if store.IsNotFound(err) {
			return models.Comment{}, ErrNotFound
		}
		return models.Comment{}, err
	}
	return c, nil
}

// ListByMovie returns a movie's comments, newest first.
func (s *Service) ListByMovie(movieID int) ([]models.Comment, error) {
	if verr := validation.ValidateVar("movie_id", movieID, "gt=0"); verr != nil {
		return nil, verr
	}

	p := indexPrefix(movieID)
	keys, err := s.store.Keys(p)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}

	out := make([]models.Comment, 0, len(keys))
	for _, k := range keys {
		id := strings.TrimPrefix(k, p)
		var c models.Comment
		if err := s.store.GetJSON(recordKey(id), &c); err != nil {
			s.logger.Warn().Err(err).Str("comment_id", id).Msg("Skipping dangling comment index entry")
			continue
		}
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Delete removes a comment. Only its author may delete it.
func (s *Service) Delete(ctx context.Context, id, userID string) error {
	if verr := validation.ValidateVar("user", userID, "required,user_handle"); verr != nil {
		return verr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.Get(id)
	if err != nil {
		return err
	}
	if c.UserID != userID {
		return ErrNotAuthor
	}

	err = s.store.Update(func(b *store.Batch) error {
		if err := b.Delete(recordKey(id)); err != nil {
			return err
		}
		return b.Delete(indexKey(c.MovieID, id))
	})
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}

	s.publish(ctx, events.TopicCommentDeleted, Event{User: userID, CommentID: id, MovieID: c.MovieID})
	return nil
}

// Like records that userID likes the comment. Repeated likes by the same
// user are ignored.
func (s *Service) Like(id, userID string) (models.Comment, error) {
	if verr := validation.ValidateVar("user", userID, "required,user_handle"); verr != nil {
		return models.Comment{}, verr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.Get(id)
	if err != nil {
		return models.Comment{}, err
	}
	for _, u := range c.LikedBy {
		if u == userID {
			return c, nil
		}
	}

	c.LikedBy = append(c.LikedBy, userID)
	c.Likes = len(c.LikedBy)
	if err := s.store.SetJSON(recordKey(id), c); err != nil {
		return models.Comment{}, fmt.Errorf("like comment: %w", err)
	}
	return c, nil
}

func (s *Service) publish(ctx context.Context, topic string, e Event) {
	if s.pub != nil {
		s.pub.Publish(ctx, topic, e)
	}
}
