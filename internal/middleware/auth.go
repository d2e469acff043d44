package middleware

import (
	"agenthq-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const agentLocal = "agent"

// RequireAuth ensures an agent is in the session. 401 with the standard error
// format otherwise.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		agent := c.Locals(agentLocal)
		if agent == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		return c.Next()
	}
}

// GetAgent returns the session agent from Locals (nil if not logged in).
func GetAgent(c *fiber.Ctx) interface{} {
	return c.Locals(agentLocal)
}
