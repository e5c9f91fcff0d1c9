package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const TokenHeader = "X-Webhook-Token"

// SharedToken guards a route with a shared secret sent either in the
// X-Webhook-Token header or in the "token" query parameter. An empty
// secret disables the check.
func SharedToken(secret string, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if secret == "" {
			return c.Next()
		}

		token := c.Get(TokenHeader)
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			logger.Warn("Missing webhook token", zap.String("path", c.Path()))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Webhook token required",
			})
		}

		if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			logger.Warn("Invalid webhook token", zap.String("path", c.Path()))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid webhook token",
			})
		}

		return c.Next()
	}
}
