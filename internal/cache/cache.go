// Package cache holds the non-authoritative lookup tier in front of the news store.
package cache

import (
	"context"
	"time"

	"github.com/bilgisen/newswatch/internal/models"
)

// Cache is a key-value store for news items with per-entry expiration.
// Get reports found=false, with a nil error, for a missing or expired key.
type Cache interface {
	Get(ctx context.Context, key string) (item *models.NewsItem, found bool, err error)
	Set(ctx context.Context, key string, ttl time.Duration, item *models.NewsItem) error
	Close() error
}

// Optional is a cache capability that may be absent. The zero value is absent:
// Get always misses and Set does nothing.
type Optional struct {
	backend Cache
}

// Some wraps a configured cache backend
func Some(c Cache) Optional {
	return Optional{backend: c}
}

// None returns an absent cache capability
func None() Optional {
	return Optional{}
}

// Enabled reports whether a backend is configured
func (o Optional) Enabled() bool {
	return o.backend != nil
}

// Get looks the key up in the backend, or misses when none is configured
func (o Optional) Get(ctx context.Context, key string) (*models.NewsItem, bool, error) {
	if o.backend == nil {
		return nil, false, nil
	}
	return o.backend.Get(ctx, key)
}

// Set writes to the backend, or does nothing when none is configured
func (o Optional) Set(ctx context.Context, key string, ttl time.Duration, item *models.NewsItem) error {
	if o.backend == nil {
		return nil
	}
	return o.backend.Set(ctx, key, ttl, item)
}

// Close closes the backend if there is one
func (o Optional) Close() error {
	if o.backend == nil {
		return nil
	}
	return o.backend.Close()
}
