package api

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/bilgisen/newswatch/internal/feed"
	"github.com/bilgisen/newswatch/internal/logger"
	"github.com/bilgisen/newswatch/internal/resilience"
	"github.com/bilgisen/newswatch/internal/scheduler"
)

// Pinger checks that the durable store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Reporter exposes the outcome of the most recent cycle
type Reporter interface {
	LastReport() *feed.CycleReport
}

// Runner triggers cycles and exposes scheduling counters
type Runner interface {
	RunNow(ctx context.Context) error
	Running() bool
	Runs() int64
	Skipped() int64
	Interval() time.Duration
}

// BreakerState reports the state of the remote source circuit
type BreakerState interface {
	State() resilience.State
}

// Deps are the collaborators the handlers read from
type Deps struct {
	Store        Pinger
	CacheEnabled bool
	Reports      Reporter
	Runner       Runner
	Breaker      BreakerState
	// CycleTimeout bounds a manually triggered cycle
	CycleTimeout time.Duration
}

type Handlers struct {
	deps Deps
}

func NewHandlers(deps Deps) *Handlers {
	if deps.CycleTimeout <= 0 {
		deps.CycleTimeout = 5 * time.Minute
	}
	return &Handlers{deps: deps}
}

// HealthCheck handles GET /api/v1/health
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	status := "ok"
	code := fiber.StatusOK
	store := "ok"
	if err := h.deps.Store.Ping(ctx); err != nil {
		logger.Get().Error().Err(err).Msg("Store health check failed")
		status, store = "degraded", "unreachable"
		code = fiber.StatusServiceUnavailable
	}

	return c.Status(code).JSON(fiber.Map{
		"status":  status,
		"store":   store,
		"cache":   h.deps.CacheEnabled,
		"breaker": h.deps.Breaker.State().String(),
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Status handles GET /api/v1/status
func (h *Handlers) Status(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"running":     h.deps.Runner.Running(),
		"runs":        h.deps.Runner.Runs(),
		"skipped":     h.deps.Runner.Skipped(),
		"interval":    h.deps.Runner.Interval().String(),
		"breaker":     h.deps.Breaker.State().String(),
		"last_report": h.deps.Reports.LastReport(),
	})
}

// TriggerCycle handles POST /api/v1/admin/cycle. The cycle runs synchronously
// and the response carries its report.
func (h *Handlers) TriggerCycle(c *fiber.Ctx) error {
	log := logger.Get()
	log.Info().
		Str("ip", c.IP()).
		Msg("Received manual cycle request")

	ctx, cancel := context.WithTimeout(context.Background(), h.deps.CycleTimeout)
	defer cancel()

	if err := h.deps.Runner.RunNow(ctx); err != nil {
		if errors.Is(err, scheduler.ErrBusy) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return err
	}

	return c.JSON(fiber.Map{
		"status": "completed",
		"report": h.deps.Reports.LastReport(),
	})
}
