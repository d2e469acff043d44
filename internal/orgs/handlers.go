package orgs

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
	case errors.Is(err, ErrNoName), errors.Is(err, ErrNoTeam):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrOrganizerImmune), errors.Is(err, ErrOnlyOrganizer):
		return fiber.StatusForbidden
	case errors.Is(err, ErrNoSuchOrganization), errors.Is(err, ErrNoSuchTeam), errors.Is(err, ErrNotAMember), errors.Is(err, directory.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, directory.ErrUnavailable):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// POST /api/v1/orgs/create-org
func (h *Handlers) CreateOrg(c *fiber.Ctx) error {
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
	return response.SuccessCreated(c, "Organization created successfully", entry, nil)
}

// GET /api/v1/orgs/view-org/:id
func (h *Handlers) ViewOrg(c *fiber.Ctx) error {
	orgID := c.Params("id")
	if orgID == "" {
		return response.Error(c, "Organization id is required", fiber.StatusBadRequest, nil)
	}

	view, err := h.Service.View(c.Context(), orgID)
	if err != nil {
		return response.Error(c, err.Error(), statusFor(err), nil)
	}
	return response.Success(c, "Organization fetched successfully", view, nil)
}

// GET /api/v1/orgs/my-orgs
func (h *Handlers) MyOrgs(c *fiber.Ctx) error {
	actor := getActor(c)
	if actor == nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	memberships, err := h.Service.Mine(c.Context(), actor.AgentID)
	if err != nil {
		return response.Error(c, err.Error(), statusFor(err), nil)
	}
	return response.Success(c, "Organizations fetched successfully", memberships, nil)
}

// POST /api/v1/orgs/add-team
func (h *Handlers) AddTeam(c *fiber.Ctx) error {
	var body struct {
		OrgID  string `json:"org_id"`
		TeamID string `json:"team_id"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}

	actor := getActor(c)
	if actor == nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	result, err := h.Service.AffiliateTeam(c.Context(), AffiliateInput{
		OrgID:   body.OrgID,
		TeamID:  body.TeamID,
		ActorID: actor.AgentID,
	})
	if err != nil {
		return response.Error(c, err.Error(), statusFor(err), nil)
	}
	if result.AlreadyAffiliated {
		return response.Success(c, result.Message, nil, nil)
	}
	return response.SuccessCreated(c, "Team added to organization successfully", result, nil)
}

// GET /api/v1/orgs/org-teams/:id
func (h *Handlers) OrgTeams(c *fiber.Ctx) error {
	orgID := c.Params("id")
	if orgID == "" {
		return response.Error(c, "Organization id is required", fiber.StatusBadRequest, nil)
	}

	teams, err := h.Service.ListTeams(c.Context(), orgID)
	if err != nil {
		return response.Error(c, err.Error(), statusFor(err), nil)
	}
	return response.Success(c, "Organization teams fetched successfully", teams, nil)
}

// DELETE /api/v1/orgs/remove-member
func (h *Handlers) RemoveMember(c *fiber.Ctx) error {
	var body struct {
		OrgID   string `json:"org_id"`
		AgentID string `json:"agent_id"`
	}
	if err := c.BodyParser(&body); err != nil || body.OrgID == "" || body.AgentID == "" {
		return response.Error(c, "Organization id and agent id are required", fiber.StatusBadRequest, nil)
	}

	actor := getActor(c)
	if actor == nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	if err := h.Service.RemoveMember(c.Context(), RemoveMemberInput{
		OrgID:   body.OrgID,
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
