// Package scheduler runs the news cycle at a fixed rate.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/bilgisen/newswatch/internal/feed"
	"github.com/bilgisen/newswatch/internal/logger"
)

// ErrBusy is returned by RunNow while another run is in progress
var ErrBusy = errors.New("a news cycle is already running")

// Job is one unit of scheduled work
type Job func(ctx context.Context) error

// Scheduler triggers a job immediately on start and then on every tick.
// At most one run is active; ticks that arrive during a run are skipped.
type Scheduler struct {
	job      Job
	interval time.Duration
	log      *zerolog.Logger

	running atomic.Bool
	runs    atomic.Int64
	skipped atomic.Int64

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

func New(job Job, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Scheduler{
		job:      job,
		interval: interval,
		log:      logger.Component("scheduler"),
	}
}

// Start launches the loop. It returns immediately; the loop ends when ctx is
// cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.New("scheduler already started")
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.loop(ctx)

	s.log.Info().
		Dur("interval", s.interval).
		Msg("Scheduler started")
	return nil
}

// Stop cancels the loop and waits for an in-flight run to return
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	s.log.Info().Msg("Scheduler stopped")
}

// RunNow runs the job synchronously through the same error boundary as a
// scheduled run. It returns ErrBusy instead of overlapping a running cycle.
func (s *Scheduler) RunNow(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer s.running.Store(false)
	s.execute(ctx, "manual")
	return nil
}

// Running reports whether a run is in progress
func (s *Scheduler) Running() bool { return s.running.Load() }

// Runs returns the number of runs started
func (s *Scheduler) Runs() int64 { return s.runs.Load() }

// Skipped returns the number of ticks dropped because a run was still active
func (s *Scheduler) Skipped() int64 { return s.skipped.Load() }

// Interval returns the configured rate
func (s *Scheduler) Interval() time.Duration { return s.interval }

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// initial run
	s.trigger(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.trigger(ctx)
		}
	}
}

// trigger starts a run in the background unless one is already active
func (s *Scheduler) trigger(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		n := s.skipped.Add(1)
		s.log.Warn().
			Int64("skipped_total", n).
			Msg("Previous news cycle still running, skipping tick")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)
		s.execute(ctx, "scheduled")
	}()
}

// execute is the error boundary: errors are logged and panics recovered,
// nothing reaches the caller.
func (s *Scheduler) execute(ctx context.Context, trigger string) {
	s.runs.Add(1)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			s.log.Error().
				Err(fmt.Errorf("panic: %v", r)).
				Str("trigger", trigger).
				Bytes("stack", debug.Stack()).
				Msg("Unexpected error while checking news")
		}
	}()

	s.log.Info().Str("trigger", trigger).Msg("Checking news")

	err := s.job(ctx)
	var be *feed.BusinessError
	switch {
	case err == nil:
		s.log.Info().
			Str("trigger", trigger).
			Dur("duration", time.Since(start)).
			Msg("Finished checking news")
	case errors.Is(err, context.Canceled):
		s.log.Warn().
			Str("trigger", trigger).
			Msg("News check cancelled")
	case errors.As(err, &be):
		s.log.Error().
			Err(err).
			Str("code", be.Code).
			Str("trigger", trigger).
			Msg("Error while checking news")
	default:
		s.log.Error().
			Err(err).
			Str("trigger", trigger).
			Msg("Unexpected error while checking news")
	}
}
