package teams

import (
	"context"

	"agenthq-backend/internal/directory"
	"agenthq-backend/internal/models"
	"agenthq-backend/internal/notifications"
	"agenthq-backend/internal/pkg/validation"

	"github.com/google/uuid"
)

// Service manages teams. A team is not a row anywhere: it exists exactly as
// long as some agent's metadata references its id, and its roster is derived
// by scanning the directory.
type Service struct {
	Directory directory.Client
	Notifier  *notifications.Dispatcher
}

// Create mints a team id and appends a self-led membership entry to the
// creator's metadata. That entry is what later roster scans derive the leader
// from.
func (s *Service) Create(ctx context.Context, name, actorID string) (*models.Membership, error) {
	if !validation.IsValidName(name) {
		return nil, ErrNoName
	}

	profile, err := s.Directory.ReadProfile(ctx, actorID)
	if err != nil {
		return nil, err
	}

	entry := models.Membership{
		ID:     uuid.New().String(),
		Name:   name,
		Leader: actorID,
	}
	profile.Metadata.AddMembership(models.TargetTeam, entry)
	if _, err := s.Directory.UpdateMetadata(ctx, actorID, profile.Metadata); err != nil {
		return nil, err
	}
	return &entry, nil
}

// MemberView is one roster entry in a team view.
type MemberView struct {
	AgentID  string `json:"agent_id"`
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
}

// TeamView is the derived state of a team: everything comes from the roster
// scan, nothing from local storage.
type TeamView struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Leader         string       `json:"leader"`
	OrganizationID string       `json:"organizationId,omitempty"`
	Members        []MemberView `json:"members"`
}

// View resolves a team by scanning the directory for agents referencing its id.
func (s *Service) View(ctx context.Context, teamID string) (*TeamView, error) {
	roster, err := s.Directory.ListTeamRoster(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if len(roster) == 0 {
		return nil, ErrNoSuchTeam
	}

	leader := directory.LeaderOf(roster, models.TargetTeam, teamID)
	if leader == nil {
		return nil, ErrNoSuchTeam
	}
	entry := leader.Metadata.MembershipFor(models.TargetTeam, teamID)

	view := &TeamView{
		ID:             teamID,
		Name:           entry.Name,
		Leader:         leader.AgentID,
		OrganizationID: entry.OrganizationID,
	}
	for _, p := range roster {
		view.Members = append(view.Members, MemberView{AgentID: p.AgentID, Fullname: p.Fullname, Email: p.Email})
	}
	return view, nil
}

// Mine returns the caller's team memberships off their metadata.
func (s *Service) Mine(ctx context.Context, agentID string) ([]models.Membership, error) {
	profile, err := s.Directory.ReadProfile(ctx, agentID)
	if err != nil {
		return nil, err
	}
	return profile.Metadata.Teams, nil
}

type RemoveMemberInput struct {
	TeamID  string
	AgentID string
	ActorID string
}

// RemoveMember revokes an agent's team membership. The leader is immune
// regardless of who asks; only the leader may remove anyone else.
func (s *Service) RemoveMember(ctx context.Context, in RemoveMemberInput) error {
	roster, err := s.Directory.ListTeamRoster(ctx, in.TeamID)
	if err != nil {
		return err
	}
	if len(roster) == 0 {
		return ErrNoSuchTeam
	}

	leader := directory.LeaderOf(roster, models.TargetTeam, in.TeamID)
	if leader == nil {
		return ErrNoSuchTeam
	}
	if in.AgentID == leader.AgentID {
		return ErrLeaderImmune
	}
	if in.ActorID != leader.AgentID {
		return ErrOnlyLeader
	}

	var member *directory.Profile
	for i := range roster {
		if roster[i].AgentID == in.AgentID {
			member = &roster[i]
			break
		}
	}
	if member == nil {
		return ErrNotAMember
	}

	entry := member.Metadata.MembershipFor(models.TargetTeam, in.TeamID)
	member.Metadata.RemoveMembership(models.TargetTeam, in.TeamID)
	if _, err := s.Directory.UpdateMetadata(ctx, member.AgentID, member.Metadata); err != nil {
		return err
	}

	s.Notifier.Dispatch(ctx, notifications.Notice{
		Kind:       models.NoticeMemberRemoved,
		Recipient:  member.Email,
		TargetID:   in.TeamID,
		TargetName: entry.Name,
		TargetType: models.TargetTeam,
	})
	return nil
}
