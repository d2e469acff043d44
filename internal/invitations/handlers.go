package invitations

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
	case errors.Is(err, ErrNoEmail), errors.Is(err, ErrInvalidEmail), errors.Is(err, ErrInvalidType):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrNotTeamLeader), errors.Is(err, ErrNotOrganizer):
		return fiber.StatusForbidden
	case errors.Is(err, ErrNoSuchTeam), errors.Is(err, ErrNoSuchOrganization), errors.Is(err, ErrNoSuchInvitation):
		return fiber.StatusNotFound
	case errors.Is(err, directory.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, directory.ErrUnavailable):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// POST /api/v1/invitations/create-invite — create and resend share this route;
// the storage layer is idempotent, the email is not.
func (h *Handlers) CreateInvite(c *fiber.Ctx) error {
	var body struct {
		TargetID string `json:"target_id"`
		Type     string `json:"type"`
		Email    string `json:"email"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}

	actor := getActor(c)
	if actor == nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	receipt, err := h.Service.CreateInvite(c.Context(), CreateInviteInput{
		TargetID: body.TargetID,
		Type:     body.Type,
		Email:    body.Email,
		ActorID:  actor.AgentID,
	})
	if err != nil {
		return response.Error(c, err.Error(), statusFor(err), nil)
	}
	return response.SuccessCreated(c, "Invitation sent successfully", receipt, nil)
}

// POST /api/v1/invitations/accept-invite
func (h *Handlers) AcceptInvite(c *fiber.Ctx) error {
	var body struct {
		TargetID string `json:"target_id"`
	}
	if err := c.BodyParser(&body); err != nil || body.TargetID == "" {
		return response.Error(c, "Target id is required", fiber.StatusBadRequest, nil)
	}

	actor := getActor(c)
	if actor == nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	result, err := h.Service.Accept(c.Context(), RespondInput{TargetID: body.TargetID, AgentID: actor.AgentID})
	if err != nil {
		return response.Error(c, err.Error(), statusFor(err), nil)
	}
	if result.AlreadyMember {
		return response.Success(c, result.Message, nil, nil)
	}
	return response.SuccessCreated(c, "Invitation accepted successfully", result, nil)
}

// POST /api/v1/invitations/reject-invite
func (h *Handlers) RejectInvite(c *fiber.Ctx) error {
	var body struct {
		TargetID string `json:"target_id"`
	}
	if err := c.BodyParser(&body); err != nil || body.TargetID == "" {
		return response.Error(c, "Target id is required", fiber.StatusBadRequest, nil)
	}

	actor := getActor(c)
	if actor == nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	if _, err := h.Service.Reject(c.Context(), RespondInput{TargetID: body.TargetID, AgentID: actor.AgentID}); err != nil {
		return response.Error(c, err.Error(), statusFor(err), nil)
	}
	return response.SuccessCreated(c, "Invitation rejected successfully", nil, nil)
}

// POST /api/v1/invitations/rescind-invite
func (h *Handlers) RescindInvite(c *fiber.Ctx) error {
	var body struct {
		TargetID string `json:"target_id"`
		Email    string `json:"email"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}

	actor := getActor(c)
	if actor == nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	receipt, err := h.Service.Rescind(c.Context(), RescindInput{
		TargetID: body.TargetID,
		Email:    body.Email,
		ActorID:  actor.AgentID,
	})
	if err != nil {
		return response.Error(c, err.Error(), statusFor(err), nil)
	}
	return response.SuccessCreated(c, "Invitation rescinded successfully", receipt, nil)
}

// GET /api/v1/invitations/view-invites?target_id=&type=
func (h *Handlers) ListForTarget(c *fiber.Ctx) error {
	targetID := c.Query("target_id")
	if targetID == "" {
		return response.Error(c, "Target id is required", fiber.StatusBadRequest, nil)
	}

	actor := getActor(c)
	if actor == nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	rows, err := h.Service.ListForTarget(c.Context(), targetID, c.Query("type"), actor.AgentID)
	if err != nil {
		return response.Error(c, err.Error(), statusFor(err), nil)
	}
	return response.Success(c, "Invitations fetched successfully", rows, nil)
}

// GET /api/v1/invitations/my-rsvps — the caller's outstanding invites, read
// straight off their metadata blob.
func (h *Handlers) MyRsvps(c *fiber.Ctx) error {
	actor := getActor(c)
	if actor == nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	profile, err := h.Service.Directory.ReadProfile(c.Context(), actor.AgentID)
	if err != nil {
		return response.Error(c, err.Error(), statusFor(err), nil)
	}
	return response.Success(c, "Rsvps fetched successfully", fiber.Map{
		"rsvps":              profile.Metadata.Rsvps,
		"pendingInvitations": profile.Metadata.PendingInvitations,
	}, nil)
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
