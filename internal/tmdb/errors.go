// Reelfeed - Short-Video Movie Discovery Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package tmdb

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies provider failures.
type ErrorKind int

const (
	// KindNetwork covers transport failures, timeouts and an open circuit.
	KindNetwork ErrorKind = iota
	// KindUnauthorized means the API key was rejected (HTTP 401).
	KindUnauthorized
	// KindRequestFailed is any other non-2xx response.
	KindRequestFailed
)

// String implements fmt.Stringer.
func (k ErrorKind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindRequestFailed:
		return "request_failed"
	default:
		return "network"
	}
}

// ProviderError is returned by the strict client operations.
type ProviderError struct {
	Kind     ErrorKind
	Status   int    // HTTP status for KindUnauthorized and KindRequestFailed
	Message  string // provider status_message or a body excerpt
	Endpoint string
	Err      error // underlying transport error for KindNetwork
}

// Error implements error.
func (e *ProviderError) Error() string {
	switch e.Kind {
	case KindUnauthorized:
		return fmt.Sprintf("tmdb %s: unauthorized: %s", e.Endpoint, e.Message)
	case KindRequestFailed:
		return fmt.Sprintf("tmdb %s: request failed with status %d: %s", e.Endpoint, e.Status, e.Message)
	default:
		return fmt.Sprintf("tmdb %s: network error: %v", e.Endpoint, e.Err)
	}
}

// Unwrap exposes the transport error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// clientFault reports a 4xx other than 429: the request itself was wrong
// and retrying or tripping the breaker would not help.
func (e *ProviderError) clientFault() bool {
	return e.Kind != KindNetwork && e.Status >= 400 && e.Status < 500 && e.Status != http.StatusTooManyRequests
}

// KindOf returns the kind of err if it is a *ProviderError.
func KindOf(err error) (ErrorKind, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return 0, false
}

// IsUnauthorized reports whether err is a credential rejection.
func IsUnauthorized(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindUnauthorized
}

// IsNotFound reports whether err is a 404 from the provider.
func IsNotFound(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Kind == KindRequestFailed && pe.Status == http.StatusNotFound
}
