// Reelfeed - Short-Video Movie Discovery Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

// Package tmdb is the client for The Movie Database API v3.
//
// Operations fall into two groups. Strict operations (FetchTrending,
// SearchMovies, MovieDetails, FetchGenreCatalog) return a *ProviderError the
// caller must handle. Soft operations (FetchTrailerKey, FetchRecommendations,
// FetchGenres) log the failure and return an empty result, because the feed
// can always show a movie without a trailer or extra recommendations.
//
// Every request goes through a token bucket limiter and a circuit breaker.
// HTTP 429 responses are retried with exponential backoff, honouring
// Retry-After.
package tmdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/tomtom215/reelfeed/internal/logging"
	"github.com/tomtom215/reelfeed/internal/metrics"
	"github.com/tomtom215/reelfeed/internal/models"
)

const (
	// DefaultBaseURL is the TMDB v3 API root.
	DefaultBaseURL = "https://api.themoviedb.org/3"

	// DefaultImageBaseURL is the TMDB image CDN root.
	DefaultImageBaseURL = "https://image.tmdb.org/t/p"

	// maxErrorBodySize caps how much of an error response is read.
	maxErrorBodySize = 64 * 1024

	breakerName = "tmdb-api"
)

// Config holds client settings.
type Config struct {
	APIKey       string
	BaseURL      string
	ImageBaseURL string

	// Language is the locale sent with list requests, e.g. "en-US".
	// Its language part also drives trailer selection.
	Language string

	Timeout        time.Duration
	RateLimit      float64 // requests per second
	RateBurst      int
	MaxRetries     int
	RetryBaseDelay time.Duration

	// Breaker tuning. Zero values use the defaults below.
	BreakerMinRequests  uint32
	BreakerFailureRatio float64
	BreakerTimeout      time.Duration

	// HTTPClient overrides the transport (tests).
	HTTPClient *http.Client
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.ImageBaseURL == "" {
		c.ImageBaseURL = DefaultImageBaseURL
	}
	if c.Language == "" {
		c.Language = "en-US"
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.RateLimit <= 0 {
		c.RateLimit = 40
	}
	if c.RateBurst <= 0 {
		c.RateBurst = 20
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = time.Second
	}
	if c.BreakerMinRequests == 0 {
		c.BreakerMinRequests = 10
	}
	if c.BreakerFailureRatio <= 0 {
		c.BreakerFailureRatio = 0.6
	}
	if c.BreakerTimeout <= 0 {
		c.BreakerTimeout = 30 * time.Second
	}
}

// Client talks to TMDB.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[[]byte]
	logger  zerolog.Logger

	// genre catalog memo
	genreMu      sync.RWMutex
	genreCatalog []models.Genre
	genreGroup   singleflight.Group
}

// New creates a client. The API key is required.
func New(cfg Config) (*Client, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, errors.New("tmdb api key is required")
	}
	cfg.applyDefaults()
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.ImageBaseURL = strings.TrimRight(cfg.ImageBaseURL, "/")

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	c := &Client{
		cfg:     cfg,
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		logger:  logging.WithComponent("tmdb"),
	}
	c.cb = c.newBreaker()
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)
	return c, nil
}

func (c *Client) newBreaker() *gobreaker.CircuitBreaker[[]byte] {
	minRequests := c.cfg.BreakerMinRequests
	ratio := c.cfg.BreakerFailureRatio

	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     c.cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			if failureRatio >= ratio {
				c.logger.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_rate", failureRatio*100).Msg("Opening provider circuit")
				return true
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Info().Str("from", from.String()).Str("to", to.String()).Msg("Provider circuit state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
		// Client faults and caller cancellation say nothing about provider health.
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			var pe *ProviderError
			return errors.As(err, &pe) && pe.clientFault()
		},
	})
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// BreakerState returns the circuit state name: closed, half-open or open.
func (c *Client) BreakerState() string {
	return c.cb.State().String()
}

// Language returns the configured locale.
func (c *Client) Language() string {
	return c.cfg.Language
}

// languageCode returns the ISO 639-1 part of the locale ("ru" for "ru-RU").
func (c *Client) languageCode() string {
	lang := strings.ToLower(strings.TrimSpace(c.cfg.Language))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	return lang
}

// getJSON performs GET {BaseURL}{path}?{params} and decodes the body into v.
// name labels metrics and errors.
func (c *Client) getJSON(ctx context.Context, name, path string, params url.Values, v interface{}) error {
	start := time.Now()

	body, err := c.cb.Execute(func() ([]byte, error) {
		return c.doGET(ctx, name, path, params)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = &ProviderError{Kind: KindNetwork, Endpoint: name, Err: err}
		}
		outcome := "network"
		if k, ok := KindOf(err); ok {
			outcome = k.String()
		}
		metrics.RecordProviderRequest(name, outcome, time.Since(start))
		return err
	}

	if err := json.Unmarshal(body, v); err != nil {
		metrics.RecordProviderRequest(name, "decode_error", time.Since(start))
		return &ProviderError{Kind: KindRequestFailed, Status: http.StatusOK, Endpoint: name, Message: "invalid JSON response", Err: err}
	}
	metrics.RecordProviderRequest(name, "ok", time.Since(start))
	return nil
}

// doGET runs the request with rate limiting and 429 retries and returns the
// body of a 2xx response.
func (c *Client) doGET(ctx context.Context, name, path string, params url.Values) ([]byte, error) {
	q := url.Values{}
	for k, vs := range params {
		q[k] = vs
	}
	q.Set("api_key", c.cfg.APIKey)
	reqURL := c.cfg.BaseURL + path + "?" + q.Encode()

	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &ProviderError{Kind: KindNetwork, Endpoint: name, Err: err}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, &ProviderError{Kind: KindNetwork, Endpoint: name, Err: redactKey(err, c.cfg.APIKey)}
		}

		if resp.StatusCode == http.StatusTooManyRequests && attempt < c.cfg.MaxRetries {
			delay := c.cfg.RetryBaseDelay * time.Duration(1<<uint(attempt))
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if secs, perr := strconv.Atoi(ra); perr == nil && secs >= 0 {
					delay = time.Duration(secs) * time.Second
				}
			}
			_ = resp.Body.Close()

			c.logger.Debug().Str("endpoint", name).Int("attempt", attempt+1).Dur("delay", delay).Msg("Rate limited by provider, backing off")
			select {
			case <-time.After(delay):
				continue
			case <-ctx.Done():
				return nil, &ProviderError{Kind: KindNetwork, Endpoint: name, Err: ctx.Err()}
			}
		}

		return c.readResponse(resp, name)
	}
}

func (c *Client) readResponse(resp *http.Response, name string) ([]byte, error) {
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, &ProviderError{Kind: KindNetwork, Endpoint: name, Err: fmt.Errorf("read body: %w", err)}
		}
		return body, nil
	}

	msg := errorMessage(readBodyForError(resp.Body))
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, &ProviderError{Kind: KindUnauthorized, Status: resp.StatusCode, Endpoint: name, Message: msg}
	}
	return nil, &ProviderError{Kind: KindRequestFailed, Status: resp.StatusCode, Endpoint: name, Message: msg}
}

// readBodyForError reads at most maxErrorBodySize bytes of an error body.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	return body
}

// errorMessage extracts TMDB's status_message, falling back to the raw body.
func errorMessage(body []byte) string {
	var payload struct {
		StatusMessage string `json:"status_message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.StatusMessage != "" {
		return payload.StatusMessage
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	return msg
}

// redactKey strips the API key from transport errors, which embed the URL.
func redactKey(err error, key string) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		uerr.URL = strings.ReplaceAll(uerr.URL, key, "REDACTED")
	}
	return err
}

// ImageURL builds a CDN URL for a poster or backdrop path. Empty paths yield "".
func (c *Client) ImageURL(path *string, size string) string {
	if path == nil || *path == "" {
		return ""
	}
	if size == "" {
		size = "w500"
	}
	return c.cfg.ImageBaseURL + "/" + size + *path
}
