// Reelfeed - Short-Video Movie Discovery Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

/*
Package middleware provides the infrastructure HTTP middleware shared by the
API router:

  - RequestID: accepts or generates X-Request-ID, derives a correlation ID
    (X-Correlation-ID is honored when present) and stores both in the
    request context for logging.Ctx and event metadata.
  - PrometheusMetrics: request counts, latencies and in-flight gauge,
    labelled by chi route pattern so path parameters do not explode
    cardinality.

Typical stack:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.PrometheusMetrics)
*/
package middleware
