// ============================================================================
// callexpr - Call Expression Parser Toolkit
// ============================================================================
//
// Package:     cache
// Description: Size-bounded LRU cache with TTL and hit statistics
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package cache

import (
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache is a thread-safe LRU cache whose entries expire after a TTL
type Cache[K comparable, V any] struct {
	lru *expirable.LRU[K, V]

	// Metrics
	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// Config holds cache configuration
type Config struct {
	MaxItems int
	TTL      time.Duration // zero keeps entries until evicted
}

// DefaultConfig returns default cache configuration
func DefaultConfig() Config {
	return Config{
		MaxItems: 10000,
		TTL:      5 * time.Minute,
	}
}

// Stats is a snapshot of cache metrics
type Stats struct {
	Size      int     `json:"size"`
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	HitRate   float64 `json:"hit_rate"` // percent
}

// New creates a new cache instance
func New[K comparable, V any](cfg Config) *Cache[K, V] {
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = DefaultConfig().MaxItems
	}
	if cfg.TTL < 0 {
		cfg.TTL = 0
	}

	c := &Cache[K, V]{}
	c.lru = expirable.NewLRU[K, V](cfg.MaxItems, func(K, V) {
		c.evictions.Add(1)
	}, cfg.TTL)
	return c
}

// Get retrieves a value from the cache
func (c *Cache[K, V]) Get(key K) (V, bool) {
	v, ok := c.lru.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v, ok
}

// Set stores a value, evicting the least recently used entry at capacity
func (c *Cache[K, V]) Set(key K, value V) {
	c.lru.Add(key, value)
}

// Delete removes a value from the cache
func (c *Cache[K, V]) Delete(key K) {
	c.lru.Remove(key)
}

// Clear removes all items from the cache
func (c *Cache[K, V]) Clear() {
	c.lru.Purge()
}

// Size returns the number of items in the cache
func (c *Cache[K, V]) Size() int {
	return c.lru.Len()
}

// Stats returns cache statistics. Evictions include expired and
// explicitly removed entries.
func (c *Cache[K, V]) Stats() Stats {
	s := Stats{
		Size:      c.lru.Len(),
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total) * 100
	}
	return s
}

// GetOrSet returns the cached value or computes and stores it. Errors
// are not cached.
func (c *Cache[K, V]) GetOrSet(key K, fn func() (V, error)) (V, error) {
	if val, ok := c.Get(key); ok {
		return val, nil
	}

	val, err := fn()
	if err != nil {
		return val, err
	}
	c.Set(key, val)
	return val, nil
}
