package main

import (
	"context"
	"encoding/json"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/urfave/cli/v2"

	"github.com/bilgisen/newswatch/internal/api"
	"github.com/bilgisen/newswatch/internal/cache"
	"github.com/bilgisen/newswatch/internal/config"
	"github.com/bilgisen/newswatch/internal/feed"
	"github.com/bilgisen/newswatch/internal/logger"
	"github.com/bilgisen/newswatch/internal/resilience"
	"github.com/bilgisen/newswatch/internal/scheduler"
	"github.com/bilgisen/newswatch/internal/storage"
)

func main() {
	app := &cli.App{
		Name:  "newswatch",
		Usage: "Periodic news ingestion with cache and store deduplication",
		// Default action: run the service when no subcommand is provided
		Action: func(c *cli.Context) error {
			return serve(c.Context)
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Run the scheduler and the ops HTTP API",
				Action: func(c *cli.Context) error {
					return serve(c.Context)
				},
			},
			{
				Name:  "once",
				Usage: "Run a single news cycle, print its report and exit",
				Flags: []cli.Flag{
					&cli.DurationFlag{Name: "timeout", Value: 5 * time.Minute, Usage: "Deadline for the cycle"},
				},
				Action: func(c *cli.Context) error {
					return runOnce(c.Context, c.Duration("timeout"))
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		stdlog.Fatal(err)
	}
}

// service holds the wired pipeline shared by both commands
type service struct {
	cfg       *config.Config
	store     *storage.SQLStore
	cache     cache.Optional
	source    *feed.GuardedFetcher
	processor *feed.Processor
}

func bootstrap() (*service, error) {
	// Load and validate configuration
	cfg := config.Load()

	logOutput := "stdout"
	if cfg.LogFile != "" {
		logOutput = cfg.LogFile
	}
	if err := logger.Init(logger.Config{
		Level:  cfg.LogLevel,
		Output: logOutput,
		Pretty: cfg.Env == "development",
	}); err != nil {
		return nil, err
	}

	log := logger.Get()
	log.Info().
		Str("env", cfg.Env).
		Str("source", cfg.NewsSourceURL).
		Msg("Starting newswatch...")

	store, err := storage.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open news store: %w", err)
	}

	breaker := resilience.NewCircuitBreaker(
		resilience.WithWindow(cfg.BreakerWindow),
		resilience.WithMinCalls(cfg.BreakerMinCalls),
		resilience.WithFailureRate(cfg.BreakerFailureRate),
		resilience.WithOpenTimeout(cfg.BreakerOpenTimeout),
		resilience.WithProbes(cfg.BreakerProbes),
		resilience.WithStateListener(func(from, to resilience.State) {
			log.Warn().
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("News source circuit changed state")
		}),
	)

	newsCache := openCache(cfg)
	source := feed.NewGuardedFetcher(feed.NewFetcher(cfg.NewsSourceURL, cfg.HTTPTimeout), breaker)

	return &service{
		cfg:       cfg,
		store:     store,
		cache:     newsCache,
		source:    source,
		processor: feed.NewProcessor(source, newsCache, store, cfg.CacheTTL),
	}, nil
}

func (s *service) close() {
	log := logger.Get()
	if err := s.cache.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing cache")
	}
	if err := s.store.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing news store")
	}
	logger.Close()
}

func serve(parent context.Context) error {
	svc, err := bootstrap()
	if err != nil {
		return err
	}
	defer svc.close()

	cfg := svc.cfg
	log := logger.Get()

	sched := scheduler.New(func(ctx context.Context) error {
		_, err := svc.processor.RunCycle(ctx)
		return err
	}, cfg.FetchRate)

	handlers := api.NewHandlers(api.Deps{
		Store:        svc.store,
		CacheEnabled: svc.cache.Enabled(),
		Reports:      svc.processor,
		Runner:       sched,
		Breaker:      svc.source,
		CycleTimeout: cfg.FetchRate,
	})
	app := api.NewApp(fiber.Config{
		ReadTimeout:  cfg.HTTPTimeout,
		WriteTimeout: cfg.FetchRate + cfg.HTTPTimeout,
		IdleTimeout:  120 * time.Second,
	}, handlers, cfg.AdminAPIKey)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sched.Start(ctx); err != nil {
		return err
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error().Err(err).Msg("Server error")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	sched.Stop()

	log.Info().Msg("Server exited properly")
	return nil
}

func runOnce(parent context.Context, timeout time.Duration) error {
	svc, err := bootstrap()
	if err != nil {
		return err
	}
	defer svc.close()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	report, err := svc.processor.RunCycle(ctx)
	if report != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(report); encErr != nil {
			return encErr
		}
	}
	return err
}

// openCache builds the configured cache backend. An unreachable redis ring
// degrades to running without a cache since the store stays authoritative.
func openCache(cfg *config.Config) cache.Optional {
	log := logger.Get()

	switch cfg.CacheBackend {
	case config.CacheBackendRedis:
		client, err := cache.NewRedisClient(cfg.CacheServers)
		if err != nil {
			log.Error().
				Err(err).
				Strs("servers", cfg.CacheServers).
				Msg("Failed to connect to cache, continuing without it")
			return cache.None()
		}
		log.Info().Strs("servers", cfg.CacheServers).Msg("Using redis cache")
		return cache.Some(client)
	case config.CacheBackendMemory:
		log.Info().Int("capacity", cfg.CacheCapacity).Msg("Using in-process cache")
		return cache.Some(cache.NewMemoryCache(cfg.CacheCapacity))
	default:
		log.Info().Msg("Cache disabled")
		return cache.None()
	}
}
