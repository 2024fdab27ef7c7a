// Reelfeed - Short-Video Movie Discovery Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package store

import (
	"context"
	"time"

	"github.com/tomtom215/reelfeed/internal/logging"
	"github.com/tomtom215/reelfeed/internal/metrics"
)

// GCService runs value log GC on an interval. It implements suture.Service.
type GCService struct {
	store        *Store
	interval     time.Duration
	discardRatio float64
}

// NewGCService creates a GC service. A non-positive interval defaults to
// 10m and a ratio outside (0, 1) to 0.5.
func NewGCService(s *Store, interval time.Duration, discardRatio float64) *GCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if discardRatio <= 0 || discardRatio >= 1 {
		discardRatio = 0.5
	}
	return &GCService{store: s, interval: interval, discardRatio: discardRatio}
}

// Serve implements suture.Service.
func (g *GCService) Serve(ctx context.Context) error {
	logger := logging.WithComponent("store-gc")
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := g.store.RunGC(g.discardRatio)
			switch {
			case err != nil:
				metrics.StoreGCRuns.WithLabelValues("error").Inc()
				logger.Warn().Err(err).Msg("Value log GC failed")
			case n > 0:
				metrics.StoreGCRuns.WithLabelValues("rewritten").Inc()
				logger.Debug().Int("files", n).Msg("Value log GC rewrote files")
			default:
				metrics.StoreGCRuns.WithLabelValues("noop").Inc()
			}
		}
	}
}

// String implements fmt.Stringer for suture logs.
func (g *GCService) String() string {
	return "store-gc"
}
