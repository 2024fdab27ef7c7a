// Reelfeed - Short-Video Movie Discovery Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

// Package api exposes the feed, preferences, favorites and comments over
// HTTP using the chi router.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/reelfeed/internal/middleware"
)

// Router wires handlers to routes.
type Router struct {
	handler *Handler
	mw      *ChiMiddleware
}

// NewRouter creates a router. A nil mw uses the default middleware config.
func NewRouter(handler *Handler, mw *ChiMiddleware) *Router {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	return &Router{handler: handler, mw: mw}
}

// Setup builds the route tree.
func (router *Router) Setup() http.Handler {
	h := router.handler
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.mw.CORS())
	r.Use(middleware.PrometheusMetrics)

	r.Handle("/metrics", promhttp.Handler())

	// Health is exempt from rate limiting so probes never see 429.
	r.With(APISecurityHeaders()).Get("/api/v1/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.mw.RateLimit())
		r.Use(APISecurityHeaders())

		r.Get("/genres", h.Genres)

		r.Route("/users/{user}", func(r chi.Router) {
			r.Get("/feed", h.Feed)
			r.Post("/feed/refresh", h.RefreshFeed)

			r.Get("/likes", h.LikedMovies)
			r.Post("/likes/{movieID}", h.ToggleLike)

			r.Get("/sound", h.GetSound)
			r.Put("/sound", h.PutSound)

			r.Get("/videos/{key}", h.ResolveVideo)
			r.Get("/activity", h.Activity)

			r.Get("/favorites", h.ListFavorites)
			r.Post("/favorites", h.AddFavorite)
			r.Delete("/favorites/{movieID}", h.RemoveFavorite)
		})

		r.Get("/movies/{movieID}/comments", h.ListComments)
		r.Post("/movies/{movieID}/comments", h.CreateComment)
		r.Delete("/comments/{commentID}", h.DeleteComment)
		r.Post("/comments/{commentID}/like", h.LikeComment)
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		respondError(w, req, http.StatusNotFound, "NOT_FOUND", "No such endpoint", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		respondError(w, req, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	return r
}
