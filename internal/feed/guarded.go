package feed

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/bilgisen/newswatch/internal/logger"
	"github.com/bilgisen/newswatch/internal/models"
	"github.com/bilgisen/newswatch/internal/resilience"
)

// GuardedFetcher wraps a Source with a circuit breaker. Any failure, including
// a rejected call while the breaker is open, is replaced by an empty list.
type GuardedFetcher struct {
	source  Source
	breaker *resilience.CircuitBreaker
	log     *zerolog.Logger
}

// NewGuardedFetcher decorates source with breaker
func NewGuardedFetcher(source Source, breaker *resilience.CircuitBreaker) *GuardedFetcher {
	return &GuardedFetcher{
		source:  source,
		breaker: breaker,
		log:     logger.Component("fetcher"),
	}
}

// FetchAll never returns an error: the fallback result is an empty list
func (g *GuardedFetcher) FetchAll(ctx context.Context) ([]models.NewsDTO, error) {
	var items []models.NewsDTO
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		items, err = g.source.FetchAll(ctx)
		return err
	})
	if err != nil {
		return g.fallback(err), nil
	}
	return items, nil
}

// State exposes the breaker state for health reporting
func (g *GuardedFetcher) State() resilience.State {
	return g.breaker.State()
}

func (g *GuardedFetcher) fallback(err error) []models.NewsDTO {
	if errors.Is(err, resilience.ErrCircuitOpen) {
		g.log.Warn().Msg("News source circuit is open, using empty fallback")
	} else {
		g.log.Warn().
			Err(err).
			Str("breaker_state", g.breaker.State().String()).
			Msg("Failed to fetch news, using empty fallback")
	}
	return []models.NewsDTO{}
}
