package teams

import (
	"errors"

	"agenthq-backend/internal/directory"
	"agenthq-backend/internal/middleware"
	"agenthq-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *Service
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNoName):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrLeaderImmune), errors.Is(err, ErrOnlyLeader):
		return fiber.StatusForbidden
	case errors.Is(err, ErrNoSuchTeam), errors.Is(err, ErrNotAMember), errors.Is(err, directory.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, directory.ErrUnavailable):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// POST /api/v1/teams/create-team
func (h *Handlers) CreateTeam(c *fiber.Ctx) error {
	var body struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}

	actor := getActor(c)
	if actor == nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	entry, err := h.Service.Create(c.Context(), body.Name, actor.AgentID)
	if err != nil {
		return response.Error(c, err.Error(), statusFor(err), nil)
	}
	return response.SuccessCreated(c, "Team created successfully", entry, nil)
}

// GET /api/v1/teams/view-team/:id
func (h *Handlers) ViewTeam(c *fiber.Ctx) error {
	teamID := c.Params("id")
	if teamID == "" {
		return response.Error(c, "Team id is required", fiber.StatusBadRequest, nil)
	}

	view, err := h.Service.View(c.Context(), teamID)
	if err != nil {
		return response.Error(c, err.Error(), statusFor(err), nil)
	}
	return response.Success(c, "Team fetched successfully", view, nil)
}

// GET /api/v1/teams/my-teams
func (h *Handlers) MyTeams(c *fiber.Ctx) error {
	actor := getActor(c)
	if actor == nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	memberships, err := h.Service.Mine(c.Context(), actor.AgentID)
	if err != nil {
		return response.Error(c, err.Error(), statusFor(err), nil)
	}
	return response.Success(c, "Teams fetched successfully", memberships, nil)
}

// DELETE /api/v1/teams/remove-member
func (h *Handlers) RemoveMember(c *fiber.Ctx) error {
	var body struct {
		TeamID  string `json:"team_id"`
		AgentID string `json:"agent_id"`
	}
	if err := c.BodyParser(&body); err != nil || body.TeamID == "" || body.AgentID == "" {
		return response.Error(c, "Team id and agent id are required", fiber.StatusBadRequest, nil)
	}

	actor := getActor(c)
	if actor == nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	if err := h.Service.RemoveMember(c.Context(), RemoveMemberInput{
		TeamID:  body.TeamID,
		AgentID: body.AgentID,
		ActorID: actor.AgentID,
	}); err != nil {
		return response.Error(c, err.Error(), statusFor(err), nil)
	}
	return response.SuccessCreated(c, "Member removed successfully", nil, nil)
}

type actorInfo struct {
	AgentID  string
	Fullname string
	Email    string
}

func getActor(c *fiber.Ctx) *actorInfo {
	a := middleware.GetAgent(c)
	if a == nil {
		return nil
	}
	m, ok := a.(map[string]interface{})
	if !ok {
		return nil
	}
	agentID, _ := m["agent_id"].(string)
	fullname, _ := m["fullname"].(string)
	email, _ := m["email"].(string)
	if agentID == "" {
		return nil
	}
	return &actorInfo{AgentID: agentID, Fullname: fullname, Email: email}
}
