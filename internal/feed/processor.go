package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bilgisen/newswatch/internal/cache"
	"github.com/bilgisen/newswatch/internal/logger"
	"github.com/bilgisen/newswatch/internal/models"
	"github.com/bilgisen/newswatch/internal/storage"
	"github.com/bilgisen/newswatch/internal/utils"
)

// CycleReport summarizes one ingestion cycle
type CycleReport struct {
	CycleID          string         `json:"cycle_id"`
	StartedAt        time.Time      `json:"started_at"`
	Duration         time.Duration  `json:"duration"`
	Fetched          int            `json:"fetched"`
	Mapped           int            `json:"mapped"`
	MappingFailures  int            `json:"mapping_failures"`
	Processed        int            `json:"processed"`
	Persisted        int            `json:"persisted"`
	CachedDuplicates int            `json:"cached_duplicates"`
	StoredDuplicates int            `json:"stored_duplicates"`
	Conflicts        int            `json:"conflicts"`
	Failed           int            `json:"failed"`
	ErrorCodes       map[string]int `json:"error_codes,omitempty"`
}

func (r *CycleReport) recordError(code string) {
	if r.ErrorCodes == nil {
		r.ErrorCodes = make(map[string]int)
	}
	r.ErrorCodes[code]++
}

// Processor runs the fetch, dedup, persist and cache pipeline
type Processor struct {
	source    Source
	parser    *Parser
	checker   *Checker
	persister *Persister

	mu   sync.RWMutex
	last *CycleReport
}

// NewProcessor wires the pipeline. source is usually a GuardedFetcher.
func NewProcessor(source Source, c cache.Optional, store storage.Repository, ttl time.Duration) *Processor {
	return &Processor{
		source:    source,
		parser:    NewParser(),
		checker:   NewChecker(c, store),
		persister: NewPersister(c, store, ttl),
	}
}

// LastReport returns a copy of the most recent cycle report, or nil
func (p *Processor) LastReport() *CycleReport {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.last == nil {
		return nil
	}
	r := *p.last
	if p.last.ErrorCodes != nil {
		r.ErrorCodes = make(map[string]int, len(p.last.ErrorCodes))
		for k, v := range p.last.ErrorCodes {
			r.ErrorCodes[k] = v
		}
	}
	return &r
}

// RunCycle fetches the current news list and ingests every new item. Failures
// of a single item are logged and counted; only fetch errors of an unguarded
// source and context cancellation end the cycle early.
func (p *Processor) RunCycle(ctx context.Context) (*CycleReport, error) {
	report := &CycleReport{
		CycleID:   newCycleID(),
		StartedAt: time.Now().UTC(),
	}
	log := logger.Get().With().Str("cycle_id", report.CycleID).Logger()
	defer p.finish(report)

	log.Info().Msg("Starting news cycle")

	dtos, err := p.source.FetchAll(ctx)
	if err != nil {
		return report, fmt.Errorf("error fetching news: %w", err)
	}
	report.Fetched = len(dtos)
	if len(dtos) == 0 {
		log.Warn().Msg("No news received from source")
		return report, nil
	}

	items, errs := p.parser.MapAll(dtos)
	report.Mapped = len(items)
	report.MappingFailures = len(errs)
	if len(errs) > 0 {
		log.Warn().
			Errs("mapping_errors", errs).
			Msg("Skipped news records that could not be mapped")
	}

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			log.Warn().
				Int("processed", report.Processed).
				Msg("Context cancelled during news cycle")
			return report, err
		}
		p.processItem(ctx, &log, report, item)
		report.Processed++
	}

	report.Duration = time.Since(report.StartedAt)
	log.Info().
		Int("processed", report.Processed).
		Int("persisted", report.Persisted).
		Int("cached_duplicates", report.CachedDuplicates).
		Int("stored_duplicates", report.StoredDuplicates).
		Int("conflicts", report.Conflicts).
		Int("failed", report.Failed).
		Int("mapping_failures", report.MappingFailures).
		Dur("duration", report.Duration).
		Msgf("Processed %d news", report.Processed)

	return report, nil
}

// processItem runs check and persist for a single item. Nothing escapes it,
// not even a panic.
func (p *Processor) processItem(ctx context.Context, log *zerolog.Logger, report *CycleReport, item *models.NewsItem) {
	key := utils.NewsKey(item.Text)

	defer func() {
		if r := recover(); r != nil {
			err := newBusinessError(CodeNewsProcessing, "failed to process news: "+item.Text, fmt.Errorf("panic: %v", r))
			p.fail(log, report, key, item, err)
		}
	}()

	existence, err := p.checker.Check(ctx, item, key)
	if err != nil {
		p.fail(log, report, key, item, err)
		return
	}

	switch existence {
	case Cached:
		report.CachedDuplicates++
		log.Debug().Str("key", key).Msg("News already cached, skipping")
		return
	case Persisted:
		report.StoredDuplicates++
		log.Debug().Str("key", key).Msg("News already stored, skipping")
		return
	}

	if err := p.persister.Persist(ctx, item, key); err != nil {
		if IsConflict(err) {
			report.Conflicts++
			report.recordError(CodeOf(err))
			log.Warn().
				Str("key", key).
				Str("code", CodeOf(err)).
				Msg("News was stored concurrently, skipping")
			return
		}
		p.fail(log, report, key, item, err)
		return
	}

	report.Persisted++
	log.Info().
		Int64("id", item.ID).
		Str("key", key).
		Msg("News saved")
}

func (p *Processor) fail(log *zerolog.Logger, report *CycleReport, key string, item *models.NewsItem, err error) {
	code := CodeOf(err)
	report.Failed++
	report.recordError(code)
	log.Error().
		Err(err).
		Str("code", code).
		Str("key", key).
		Str("text", item.Text).
		Msg("Failed to process news")
}

func (p *Processor) finish(report *CycleReport) {
	if report.Duration == 0 {
		report.Duration = time.Since(report.StartedAt)
	}
	p.mu.Lock()
	p.last = report
	p.mu.Unlock()
}

func newCycleID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
