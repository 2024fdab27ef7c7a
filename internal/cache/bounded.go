// Reelfeed - Short-Video Movie Discovery Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

// Package cache provides the bounded key/value cache used for resolved video
// URLs and enriched movie details.
//
// A Bounded cache never holds more than its capacity. When full, inserting a
// new key evicts exactly one entry, the one at the back of the recency list.
// Under PolicyFIFO reads leave the list untouched, so the victim is the oldest
// insertion. Under PolicyLRU a hit moves the entry to the front.
package cache

import (
	"reflect"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tomtom215/reelfeed/internal/logging"
	"github.com/tomtom215/reelfeed/internal/metrics"
)

// DefaultCapacity is used when a non-positive capacity is requested.
const DefaultCapacity = 50

// Policy selects how reads affect eviction order.
type Policy string

const (
	// PolicyFIFO evicts the oldest-inserted key. Reads do not refresh recency.
	PolicyFIFO Policy = "fifo"
	// PolicyLRU evicts the least recently read or written key.
	PolicyLRU Policy = "lru"
)

// ParsePolicy maps a config string onto a Policy, defaulting to FIFO.
func ParsePolicy(s string) Policy {
	if Policy(s) == PolicyLRU {
		return PolicyLRU
	}
	return PolicyFIFO
}

type entry[K comparable, V any] struct {
	key   K
	value V
	prev  *entry[K, V]
	next  *entry[K, V]
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Size      int   `json:"size"`
	Capacity  int   `json:"capacity"`
}

// Bounded is a thread-safe capacity-bounded map.
//
// head.next is the newest entry, tail.prev the next eviction victim.
type Bounded[K comparable, V any] struct {
	mu sync.Mutex

	name     string
	capacity int
	policy   Policy

	items map[K]*entry[K, V]
	head  *entry[K, V]
	tail  *entry[K, V]

	hits      int64
	misses    int64
	evictions int64

	logger zerolog.Logger
}

// New creates a cache. name labels log lines and Prometheus series.
func New[K comparable, V any](name string, capacity int, policy Policy) *Bounded[K, V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if policy != PolicyLRU {
		policy = PolicyFIFO
	}

	c := &Bounded[K, V]{
		name:     name,
		capacity: capacity,
		policy:   policy,
		items:    make(map[K]*entry[K, V], capacity),
		head:     &entry[K, V]{},
		tail:     &entry[K, V]{},
		logger:   logging.With().Str("component", "cache").Str("cache", name).Logger(),
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// Name returns the label given at construction.
func (c *Bounded[K, V]) Name() string { return c.name }

// Capacity returns the maximum number of entries.
func (c *Bounded[K, V]) Capacity() int { return c.capacity }

// Set stores value under key. A zero key or zero value is rejected with a
// warning and leaves the cache unchanged. Overwriting a key makes it the
// newest entry.
func (c *Bounded[K, V]) Set(key K, value V) {
	if isZero(key) || isZero(value) {
		c.logger.Warn().Interface("key", key).Msg("Rejected cache set with empty key or value")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	if len(c.items) >= c.capacity {
		c.evictOldest()
	}

	e := &entry[K, V]{key: key, value: value}
	c.addToFront(e)
	c.items[key] = e
	metrics.CacheSize.WithLabelValues(c.name).Set(float64(len(c.items)))
}

// Get returns the cached value. A missing key is not an error.
func (c *Bounded[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		c.misses++
		metrics.CacheMisses.WithLabelValues(c.name).Inc()
		var zero V
		return zero, false
	}

	if c.policy == PolicyLRU {
		c.moveToFront(e)
	}
	c.hits++
	metrics.CacheHits.WithLabelValues(c.name).Inc()
	return e.value, true
}

// Has reports membership without touching recency or counters.
func (c *Bounded[K, V]) Has(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	return ok
}

// Delete removes key and reports whether it was present.
func (c *Bounded[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		return false
	}
	c.removeEntry(e)
	metrics.CacheSize.WithLabelValues(c.name).Set(float64(len(c.items)))
	return true
}

// Len returns the number of entries.
func (c *Bounded[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Keys returns keys ordered from next eviction victim to newest.
func (c *Bounded[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]K, 0, len(c.items))
	for e := c.tail.prev; e != c.head; e = e.prev {
		keys = append(keys, e.key)
	}
	return keys
}

// Clear drops every entry. Counters are kept.
func (c *Bounded[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[K]*entry[K, V], c.capacity)
	c.head.next = c.tail
	c.tail.prev = c.head
	metrics.CacheSize.WithLabelValues(c.name).Set(0)
	c.logger.Debug().Msg("Cache cleared")
}

// Stats returns a snapshot of the counters.
func (c *Bounded[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Size:      len(c.items),
		Capacity:  c.capacity,
	}
}

// Internal methods (must be called with lock held)

func (c *Bounded[K, V]) addToFront(e *entry[K, V]) {
	e.prev = c.head
	e.next = c.head.next
	c.head.next.prev = e
	c.head.next = e
}

func (c *Bounded[K, V]) moveToFront(e *entry[K, V]) {
	e.prev.next = e.next
	e.next.prev = e.prev
	c.addToFront(e)
}

func (c *Bounded[K, V]) removeEntry(e *entry[K, V]) {
	e.prev.next = e.next
	e.next.prev = e.prev
	delete(c.items, e.key)
}

func (c *Bounded[K, V]) evictOldest() {
	oldest := c.tail.prev
	if oldest == c.head {
		return
	}
	c.removeEntry(oldest)
	c.evictions++
	metrics.CacheEvictions.WithLabelValues(c.name).Inc()
}

// isZero treats nil interfaces, empty strings, zero numbers and zero structs
// as absent.
func isZero(v any) bool {
	rv := reflect.ValueOf(v)
	return !rv.IsValid() || rv.IsZero()
}
