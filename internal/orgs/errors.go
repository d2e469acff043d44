package orgs

import "errors"

var (
	ErrNoName             = errors.New("No organization name provided")
	ErrNoTeam             = errors.New("No team provided")
	ErrNoSuchOrganization = errors.New("No such organization")
	ErrNoSuchTeam         = errors.New("No such team")
	ErrOrganizerImmune    = errors.New("Organization organizer cannot be removed from organization")
	ErrOnlyOrganizer      = errors.New("Only the organization organizer can do that")
	ErrNotAMember         = errors.New("That agent is not a member")
)
