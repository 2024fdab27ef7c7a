// Reelfeed - Short-Video Movie Discovery Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package preferences

import "sync"

// Registry hands out one Store per user handle, created on first use and
// namespaced in the shared backend.
type Registry struct {
	mu      sync.Mutex
	backend Backend
	opts    []Option
	stores  map[string]*Store
}

// NewRegistry creates a registry over backend (which may be nil).
func NewRegistry(backend Backend, opts ...Option) *Registry {
	return &Registry{
		backend: backend,
		opts:    opts,
		stores:  make(map[string]*Store),
	}
}

// For returns the store for user, loading it on first access.
func (r *Registry) For(user string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.stores[user]; ok {
		return s
	}
	opts := append(append([]Option(nil), r.opts...), WithNamespace(user))
	s := New(r.backend, opts...)
	r.stores[user] = s
	return s
}

// Len returns the number of loaded stores.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}
