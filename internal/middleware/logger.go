package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/bilgisen/newswatch/internal/logger"
)

// LoggerConfig defines the config for the request logger
type LoggerConfig struct {
	// Next skips the middleware when it returns true
	Next func(c *fiber.Ctx) bool

	// Logger defaults to the "http" component logger
	Logger *zerolog.Logger
}

// NewLogger logs one structured line per request. Health probes are logged at
// debug so they do not drown the cycle logs.
func NewLogger(config ...LoggerConfig) fiber.Handler {
	var cfg LoggerConfig
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Component("http")
	}

	return func(c *fiber.Ctx) error {
		if cfg.Next != nil && cfg.Next(c) {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()
		latency := time.Since(start)

		status := c.Response().StatusCode()
		var event *zerolog.Event
		switch {
		case status >= fiber.StatusInternalServerError:
			event = cfg.Logger.Error()
		case status >= fiber.StatusBadRequest:
			event = cfg.Logger.Warn()
		case c.Path() == "/api/v1/health":
			event = cfg.Logger.Debug()
		default:
			event = cfg.Logger.Info()
		}

		if err != nil {
			event = event.Err(err)
		}
		event.
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Str("ip", c.IP()).
			Dur("latency", latency).
			Msg("request")

		return err
	}
}

// RequestLogger is the logger middleware with default settings
func RequestLogger() fiber.Handler {
	return NewLogger()
}
