package invitations

import "errors"

var (
	ErrNoEmail      = errors.New("No email provided")
	ErrInvalidEmail = errors.New("A valid email address is required")
	ErrInvalidType  = errors.New("Invitation type must be team or organization")

	ErrNoSuchTeam         = errors.New("No such team")
	ErrNoSuchOrganization = errors.New("No such organization")
	ErrNoSuchInvitation   = errors.New("No such invitation")

	ErrNotTeamLeader = errors.New("Only the team leader can manage invitations")
	ErrNotOrganizer  = errors.New("Only the organization organizer can manage invitations")
)
