package auth

import (
	"context"
	"errors"

	"agenthq-backend/internal/directory"
	"agenthq-backend/internal/middleware"
	"agenthq-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const agentSessionsPrefix = "agent_sessions:"

// Handlers holds dependencies for auth endpoints.
type Handlers struct {
	Verifier directory.CredentialVerifier
	Rdb      *redis.Client
	Config   middleware.SessionConfig
}

// Login POST /api/v1/auth/login — verify against the directory, create a
// session, set the cookie.
func (h *Handlers) Login(c *fiber.Ctx) error {
	if h.Verifier == nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil || req.Email == "" || req.Password == "" {
		return response.Error(c, ErrEmailPasswordRequired.Error(), fiber.StatusBadRequest, nil)
	}

	agent, err := Login(c.Context(), h.Verifier, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmailPasswordRequired):
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		case errors.Is(err, ErrInvalidCredentials):
			return response.Error(c, err.Error(), fiber.StatusUnauthorized, nil)
		default:
			return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
		}
	}

	sessionID := middleware.RegenerateSessionID(c)
	middleware.SetSessionAgent(c, middleware.SessionAgent{
		AgentID:  agent.AgentID,
		Fullname: agent.Fullname,
		Email:    agent.Email,
	})

	if h.Rdb != nil {
		if err := h.Rdb.SAdd(context.Background(), agentSessionsPrefix+agent.AgentID, sessionID).Err(); err != nil {
			return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
		}
	}

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = "s:" + sessionID
	c.Cookie(&cookie)

	return response.Success(c, "Login successful", fiber.Map{"agent": agent}, nil)
}

// Me GET /api/v1/auth/me — return the current session agent.
func (h *Handlers) Me(c *fiber.Ctx) error {
	agent, err := VerifyAgent(middleware.GetAgent(c))
	if err != nil {
		return response.Error(c, "Not authenticated", fiber.StatusUnauthorized, nil)
	}
	return response.Success(c, "Authenticated", fiber.Map{"agent": agent}, nil)
}

// Logout DELETE /api/v1/auth/logout — destroy the session and clear the cookie.
func (h *Handlers) Logout(c *fiber.Ctx) error {
	sessionID := middleware.GetSessionID(c)
	agent, _ := VerifyAgent(middleware.GetAgent(c))

	if h.Rdb != nil && sessionID != "" {
		ctx := context.Background()
		h.Rdb.Del(ctx, middleware.SessionRedisPrefix+sessionID)
		if agent != nil {
			h.Rdb.SRem(ctx, agentSessionsPrefix+agent.AgentID, sessionID)
		}
	}
	middleware.DestroySession(c)

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = ""
	cookie.MaxAge = -1
	c.Cookie(&cookie)

	return response.Success(c, "Logged out", nil, nil)
}
