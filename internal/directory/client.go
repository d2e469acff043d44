package directory

import (
	"context"
	"errors"

	"agenthq-backend/internal/models"
)

// Profile is an agent's directory record: root claims plus the metadata blob.
type Profile struct {
	AgentID  string          `json:"agent_id"`
	Email    string          `json:"email"`
	Fullname string          `json:"fullname"`
	Metadata models.Metadata `json:"metadata"`
}

// ErrNotFound is returned by lookups when no directory record matches. It is a
// normal outcome for FindByEmail (unregistered recipient), not a failure.
var ErrNotFound = errors.New("Agent not found in directory")

// ErrUnavailable wraps transport or upstream failures. Fatal for the current
// request only; no partial-state cleanup is attempted.
var ErrUnavailable = errors.New("Identity directory unavailable")

// Client is the directory capability consumed by the core. All calls require a
// machine-to-machine credential held by the implementation.
type Client interface {
	ReadProfile(ctx context.Context, agentID string) (*Profile, error)
	FindByEmail(ctx context.Context, email string) (*Profile, error)
	// UpdateMetadata replaces the agent's metadata blob wholesale.
	UpdateMetadata(ctx context.Context, agentID string, md models.Metadata) (*Profile, error)
	// ListTeamRoster returns every agent whose metadata references the team.
	ListTeamRoster(ctx context.Context, teamID string) ([]Profile, error)
	// ListOrganizationRoster is the organization analog of ListTeamRoster.
	ListOrganizationRoster(ctx context.Context, orgID string) ([]Profile, error)
	// ListAffiliatedTeamLeaders returns the agents whose team entries carry
	// organizationId equal to orgID. An organization's team list is derived
	// from this scan; organizations hold no team list of their own.
	ListAffiliatedTeamLeaders(ctx context.Context, orgID string) ([]Profile, error)
}

// CredentialVerifier checks an agent's own credentials against the directory.
// Only the session login surface uses it; the core never sees passwords.
type CredentialVerifier interface {
	VerifyCredentials(ctx context.Context, email, password string) (*Profile, error)
}

// RosterFor dispatches to the team or organization roster scan by target type.
func RosterFor(ctx context.Context, c Client, targetType, id string) ([]Profile, error) {
	if targetType == models.TargetOrganization {
		return c.ListOrganizationRoster(ctx, id)
	}
	return c.ListTeamRoster(ctx, id)
}

// LeaderOf derives the leader/organizer of a target from its roster: the first
// agent whose own membership entry for the target does not point at a distinct
// other agent. A non-empty roster always yields a leader this way, because the
// creator's entry is self-referential from the moment the target is minted.
func LeaderOf(roster []Profile, targetType, id string) *Profile {
	for i := range roster {
		entry := roster[i].Metadata.MembershipFor(targetType, id)
		if entry == nil {
			continue
		}
		if owner := entry.Owner(); owner == "" || owner == roster[i].AgentID {
			return &roster[i]
		}
	}
	return nil
}
