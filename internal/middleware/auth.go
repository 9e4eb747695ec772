package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"

	"github.com/bilgisen/newswatch/internal/logger"
)

// APIKeyHeader carries the admin key
const APIKeyHeader = "X-API-Key"

// AdminOnly rejects requests whose X-API-Key does not match adminKey. An empty
// adminKey disables the protected routes entirely.
func AdminOnly(adminKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		log := logger.Get()

		if adminKey == "" {
			log.Warn().
				Str("path", c.Path()).
				Msg("Admin access attempt while no admin key is configured")
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "Admin access is disabled",
			})
		}

		apiKey := c.Get(APIKeyHeader)
		if apiKey == "" {
			log.Warn().
				Str("method", c.Method()).
				Str("path", c.Path()).
				Str("ip", c.IP()).
				Msg("Admin access attempt without API key")

			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "API key is required",
			})
		}

		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(adminKey)) != 1 {
			log.Warn().
				Str("method", c.Method()).
				Str("path", c.Path()).
				Str("ip", c.IP()).
				Msg("Unauthorized admin access attempt")

			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Admin access required",
			})
		}

		return c.Next()
	}
}
