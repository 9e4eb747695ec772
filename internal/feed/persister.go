package feed

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/bilgisen/newswatch/internal/cache"
	"github.com/bilgisen/newswatch/internal/logger"
	"github.com/bilgisen/newswatch/internal/models"
	"github.com/bilgisen/newswatch/internal/storage"
)

// DefaultCacheTTL is how long a persisted item stays in the cache
const DefaultCacheTTL = time.Hour

// Persister writes new items to the store and then to the cache
type Persister struct {
	cache cache.Optional
	store storage.Repository
	ttl   time.Duration
	log   *zerolog.Logger
}

func NewPersister(c cache.Optional, store storage.Repository, ttl time.Duration) *Persister {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Persister{
		cache: c,
		store: store,
		ttl:   ttl,
		log:   logger.Component("persister"),
	}
}

// Persist saves item and caches it under key. The store write is authoritative;
// a failed cache write is only logged.
func (p *Persister) Persist(ctx context.Context, item *models.NewsItem, key string) error {
	if item.IsSent == nil {
		sent := false
		item.IsSent = &sent
	}

	if err := p.store.Save(ctx, item); err != nil {
		return newBusinessError(CodeDBSave, "failed to save news: "+item.Text, err)
	}
	p.log.Debug().
		Int64("id", item.ID).
		Str("key", key).
		Msg("News saved")

	if err := p.cache.Set(ctx, key, p.ttl, item); err != nil {
		p.log.Warn().
			Err(err).
			Str("key", key).
			Msg("Failed to cache saved news")
	}
	return nil
}
