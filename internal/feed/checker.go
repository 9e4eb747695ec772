package feed

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/bilgisen/newswatch/internal/cache"
	"github.com/bilgisen/newswatch/internal/logger"
	"github.com/bilgisen/newswatch/internal/models"
	"github.com/bilgisen/newswatch/internal/storage"
)

// Existence is the outcome of a duplicate check
type Existence int

const (
	Absent Existence = iota
	Cached
	Persisted
)

func (e Existence) String() string {
	switch e {
	case Cached:
		return "cached"
	case Persisted:
		return "persisted"
	default:
		return "absent"
	}
}

// Checker decides whether an item was already ingested, asking the cache
// before the store.
type Checker struct {
	cache cache.Optional
	store storage.Repository
	log   *zerolog.Logger
}

func NewChecker(c cache.Optional, store storage.Repository) *Checker {
	return &Checker{
		cache: c,
		store: store,
		log:   logger.Component("checker"),
	}
}

// Check reports where item is already known. A cache hit skips the store. A
// cache error is logged and the store decides.
func (c *Checker) Check(ctx context.Context, item *models.NewsItem, key string) (Existence, error) {
	if _, found, err := c.cache.Get(ctx, key); err != nil {
		c.log.Warn().
			Err(err).
			Str("key", key).
			Msg("Cache lookup failed, falling back to store")
	} else if found {
		return Cached, nil
	}

	_, err := c.store.FindByText(ctx, item.Text)
	switch {
	case err == nil:
		return Persisted, nil
	case errors.Is(err, storage.ErrNotFound):
		return Absent, nil
	default:
		return Absent, newBusinessError(CodeNewsProcessing, "failed to look up news: "+item.Text, err)
	}
}
