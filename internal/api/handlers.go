// Reelfeed - Short-Video Movie Discovery Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/reelfeed/internal/comments"
	"github.com/tomtom215/reelfeed/internal/events"
	"github.com/tomtom215/reelfeed/internal/favorites"
	"github.com/tomtom215/reelfeed/internal/feed"
	"github.com/tomtom215/reelfeed/internal/logging"
	"github.com/tomtom215/reelfeed/internal/models"
	"github.com/tomtom215/reelfeed/internal/validation"
)

// BreakerReporter exposes the provider circuit state for health checks.
type BreakerReporter interface {
	BreakerState() string
}

// StoreStatus reports whether the persistent store is usable.
type StoreStatus interface {
	IsOpen() bool
}

// Dependencies groups everything the handlers need.
type Dependencies struct {
	Feeds     *feed.Manager
	Favorites *favorites.Service
	Comments  *comments.Service
	Activity  *events.ActivityRecorder
	Provider  BreakerReporter
	Store     StoreStatus
	Version   string
}

// Handler serves the HTTP API.
type Handler struct {
	deps      Dependencies
	startTime time.Time
}

// NewHandler creates a handler.
func NewHandler(deps Dependencies) *Handler {
	if deps.Version == "" {
		deps.Version = "dev"
	}
	return &Handler{deps: deps, startTime: time.Now()}
}

// Health reports liveness plus provider and store state. It returns 503
// once the store is closed.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	status := models.HealthStatus{
		Status:        "healthy",
		Version:       h.deps.Version,
		UptimeSeconds: time.Since(h.startTime).Seconds(),
		ProviderState: "unknown",
	}
	if h.deps.Provider != nil {
		status.ProviderState = h.deps.Provider.BreakerState()
		if status.ProviderState == "open" {
			status.Status = "degraded"
		}
	}
	if h.deps.Store != nil {
		status.StoreOpen = h.deps.Store.IsOpen()
	}

	code := http.StatusOK
	if h.deps.Store != nil && !status.StoreOpen {
		status.Status = "unhealthy"
		code = http.StatusServiceUnavailable
	}
	respondData(w, r, code, status, start)
}

// Genres returns the provider's genre catalog for filter pickers.
func (h *Handler) Genres(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	genres, err := h.deps.Feeds.Genres(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, r, http.StatusOK, genres, start)
}

// Feed returns the next batch for the user.
//
// Query parameters: query, genres (comma-separated ids), min_rating (0-5).
func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) {
	h.serveBatch(w, r, false)
}

// RefreshFeed clears seen history and caches, then returns a fresh batch.
func (h *Handler) RefreshFeed(w http.ResponseWriter, r *http.Request) {
	h.serveBatch(w, r, true)
}

func (h *Handler) serveBatch(w http.ResponseWriter, r *http.Request, refresh bool) {
	start := time.Now()

	user, err := userParam(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	filters, err := feedFilters(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	svc := h.deps.Feeds.For(user)
	var batch models.FeedBatch
	if refresh {
		batch, err = svc.Refresh(r.Context(), filters)
	} else {
		batch, err = svc.NextBatch(r.Context(), filters)
	}
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	logging.Ctx(r.Context()).Debug().
		Str("user", user).
		Str("source", batch.Source).
		Int("size", len(batch.Movies)).
		Bool("refresh", refresh).
		Msg("Served feed batch")
	respondData(w, r, http.StatusOK, batch, start)
}

// LikedMovies lists the user's liked movies, oldest first.
func (h *Handler) LikedMovies(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	user, err := userParam(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	liked := h.deps.Feeds.Preferences(user).LikedMovies()
	if liked == nil {
		liked = []models.LikedMovieRecord{}
	}
	respondData(w, r, http.StatusOK, liked, start)
}

// ToggleLike flips the like state of a movie.
func (h *Handler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	user, err := userParam(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	movieID, err := movieIDParam(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	liked, err := h.deps.Feeds.For(user).ToggleLike(r.Context(), movieID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, r, http.StatusOK, map[string]interface{}{
		"movie_id": movieID,
		"liked":    liked,
	}, start)
}

// GetSound returns the user's mute preference.
func (h *Handler) GetSound(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	user, err := userParam(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	muted := h.deps.Feeds.Preferences(user).SoundMuted()
	respondData(w, r, http.StatusOK, map[string]bool{"muted": muted}, start)
}

// PutSound stores the user's mute preference.
func (h *Handler) PutSound(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	user, err := userParam(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	var req models.SoundPreferenceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondServiceError(w, r, err)
		return
	}
	if err := validateBody(&req); err != nil {
		respondServiceError(w, r, err)
		return
	}

	prefs := h.deps.Feeds.Preferences(user)
	prefs.SetSoundMuted(*req.Muted)
	respondData(w, r, http.StatusOK, map[string]bool{"muted": prefs.SoundMuted()}, start)
}

// ResolveVideo returns the embeddable player URL for a trailer key.
func (h *Handler) ResolveVideo(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	user, err := userParam(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	key := chi.URLParam(r, "key")
	if verr := validation.ValidateVar("key", key, "required,video_key"); verr != nil {
		respondServiceError(w, r, verr)
		return
	}

	url := h.deps.Feeds.For(user).ResolveVideoURL(key)
	respondData(w, r, http.StatusOK, map[string]string{"key": key, "url": url}, start)
}

// Activity lists the user's most recent domain events.
func (h *Handler) Activity(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	user, err := userParam(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	limit, err := intQuery(r, "limit", 20, 1, 100)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	recent := []events.Activity{}
	if h.deps.Activity != nil {
		if got := h.deps.Activity.Recent(user, limit); got != nil {
			recent = got
		}
	}
	respondData(w, r, http.StatusOK, recent, start)
}

// ListFavorites lists the user's favorites in the order they were added.
func (h *Handler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	user, err := userParam(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	favs, err := h.deps.Favorites.List(user)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if favs == nil {
		favs = []models.Favorite{}
	}
	respondData(w, r, http.StatusOK, favs, start)
}

// AddFavorite pins a movie. It returns 201 for a new favorite and 200 when
// the movie was already pinned.
func (h *Handler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	user, err := userParam(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	var req models.AddFavoriteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondServiceError(w, r, err)
		return
	}
	if err := validateBody(&req); err != nil {
		respondServiceError(w, r, err)
		return
	}

	fav, created, err := h.deps.Favorites.Add(r.Context(), user, req.MovieID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respondData(w, r, status, fav, start)
}

// RemoveFavorite unpins a movie.
func (h *Handler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	user, err := userParam(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	movieID, err := movieIDParam(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	removed, err := h.deps.Favorites.Remove(r.Context(), user, movieID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if !removed {
		respondError(w, r, http.StatusNotFound, "NOT_FOUND", "Movie is not a favorite", nil)
		return
	}
	respondData(w, r, http.StatusOK, map[string]interface{}{"movie_id": movieID, "removed": true}, start)
}

// ListComments lists a movie's comments, newest first.
func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	movieID, err := movieIDParam(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	list, err := h.deps.Comments.ListByMovie(movieID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, r, http.StatusOK, list, start)
}

// CreateComment adds a comment. The movie id in the path wins over any id
// in the body.
func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	movieID, err := movieIDParam(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	var req models.CreateCommentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondServiceError(w, r, err)
		return
	}
	req.MovieID = movieID

	c, err := h.deps.Comments.Create(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, r, http.StatusCreated, c, start)
}

// DeleteComment removes a comment. The caller identifies with ?user=.
func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := chi.URLParam(r, "commentID")
	user := r.URL.Query().Get("user")

	if err := h.deps.Comments.Delete(r.Context(), id, user); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, r, http.StatusOK, map[string]interface{}{"id": id, "deleted": true}, start)
}

// LikeComment records a like from ?user=.
func (h *Handler) LikeComment(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := chi.URLParam(r, "commentID")
	user := r.URL.Query().Get("user")

	c, err := h.deps.Comments.Like(id, user)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, r, http.StatusOK, c, start)
}
