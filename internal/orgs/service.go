package orgs

import (
	"context"

	"agenthq-backend/internal/directory"
	"agenthq-backend/internal/invitations"
	"agenthq-backend/internal/models"
	"agenthq-backend/internal/notifications"
	"agenthq-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Service manages organizations and the organization<->team affiliation. Like
// teams, an organization exists only through the metadata entries referencing
// its id; its team list is derived, never stored.
type Service struct {
	Directory   directory.Client
	Notifier    *notifications.Dispatcher
	Invitations *invitations.Service
}

// Create mints an organization id on the creator's metadata, organizer = creator.
func (s *Service) Create(ctx context.Context, name, actorID string) (*models.Membership, error) {
	if !validation.IsValidName(name) {
		return nil, ErrNoName
	}

	profile, err := s.Directory.ReadProfile(ctx, actorID)
	if err != nil {
		return nil, err
	}

	entry := models.Membership{
		ID:        uuid.New().String(),
		Name:      name,
		Organizer: actorID,
	}
	profile.Metadata.AddMembership(models.TargetOrganization, entry)
	if _, err := s.Directory.UpdateMetadata(ctx, actorID, profile.Metadata); err != nil {
		return nil, err
	}
	return &entry, nil
}

// MemberView is one roster entry in an organization view.
type MemberView struct {
	AgentID  string `json:"agent_id"`
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
}

// OrgView is the derived state of an organization.
type OrgView struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Organizer string              `json:"organizer"`
	Members   []MemberView        `json:"members"`
	Teams     []models.Membership `json:"teams"`
}

// View resolves an organization by roster scan, including its derived team
// list: the team entries across the directory stamped with this organization.
func (s *Service) View(ctx context.Context, orgID string) (*OrgView, error) {
	roster, err := s.Directory.ListOrganizationRoster(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if len(roster) == 0 {
		return nil, ErrNoSuchOrganization
	}

	organizer := directory.LeaderOf(roster, models.TargetOrganization, orgID)
	if organizer == nil {
		return nil, ErrNoSuchOrganization
	}
	entry := organizer.Metadata.MembershipFor(models.TargetOrganization, orgID)

	view := &OrgView{
		ID:        orgID,
		Name:      entry.Name,
		Organizer: organizer.AgentID,
	}
	for _, p := range roster {
		view.Members = append(view.Members, MemberView{AgentID: p.AgentID, Fullname: p.Fullname, Email: p.Email})
	}
	teams, err := s.ListTeams(ctx, orgID)
	if err != nil {
		return nil, err
	}
	view.Teams = teams
	return view, nil
}

// ListTeams derives an organization's team list from the directory: every
// team entry stamped with this organization's id, one per team leader.
func (s *Service) ListTeams(ctx context.Context, orgID string) ([]models.Membership, error) {
	leaders, err := s.Directory.ListAffiliatedTeamLeaders(ctx, orgID)
	if err != nil {
		return nil, err
	}
	var teams []models.Membership
	for _, p := range leaders {
		for _, t := range p.Metadata.Teams {
			if t.OrganizationID == orgID && t.Owner() == p.AgentID {
				teams = append(teams, t)
			}
		}
	}
	return teams, nil
}

// Mine returns the caller's organization memberships off their metadata.
func (s *Service) Mine(ctx context.Context, agentID string) ([]models.Membership, error) {
	profile, err := s.Directory.ReadProfile(ctx, agentID)
	if err != nil {
		return nil, err
	}
	return profile.Metadata.Organizations, nil
}

type AffiliateInput struct {
	OrgID   string
	TeamID  string
	ActorID string
}

// AffiliationResult is the outcome of AffiliateTeam. The two AlreadyAffiliated
// variants are successful outcomes with a message: affiliation conflicts are
// expected, recoverable states, not errors.
type AffiliationResult struct {
	AlreadyAffiliated bool   `json:"-"`
	Message           string `json:"-"`
	OrganizationID    string `json:"organizationId,omitempty"`
	TeamID            string `json:"teamId,omitempty"`
	Leader            string `json:"leader,omitempty"`
	Invited           int    `json:"invited"`
}

// AffiliateTeam attaches a team to an organization. A team belongs to at most
// one organization; the stamp lands on the team leader's membership entry, and
// every other roster member gets an organization invitation.
func (s *Service) AffiliateTeam(ctx context.Context, in AffiliateInput) (*AffiliationResult, error) {
	if in.TeamID == "" {
		return nil, ErrNoTeam
	}

	orgRoster, err := s.Directory.ListOrganizationRoster(ctx, in.OrgID)
	if err != nil {
		return nil, err
	}
	if len(orgRoster) == 0 {
		return nil, ErrNoSuchOrganization
	}
	organizer := directory.LeaderOf(orgRoster, models.TargetOrganization, in.OrgID)
	if organizer == nil {
		return nil, ErrNoSuchOrganization
	}
	if organizer.AgentID != in.ActorID {
		return nil, ErrOnlyOrganizer
	}

	teamRoster, err := s.Directory.ListTeamRoster(ctx, in.TeamID)
	if err != nil {
		return nil, err
	}
	if len(teamRoster) == 0 {
		return nil, ErrNoSuchTeam
	}
	leader := directory.LeaderOf(teamRoster, models.TargetTeam, in.TeamID)
	if leader == nil {
		return nil, ErrNoSuchTeam
	}

	entry := leader.Metadata.MembershipFor(models.TargetTeam, in.TeamID)
	if entry.OrganizationID == in.OrgID {
		return &AffiliationResult{AlreadyAffiliated: true, Message: "That team is already a member of the organization"}, nil
	}
	if entry.OrganizationID != "" {
		return &AffiliationResult{AlreadyAffiliated: true, Message: "That team is already a member of another organization"}, nil
	}

	entry.OrganizationID = in.OrgID
	if _, err := s.Directory.UpdateMetadata(ctx, leader.AgentID, leader.Metadata); err != nil {
		return nil, err
	}

	// Every roster member except the leader gets an organization invite.
	invited := 0
	for _, member := range teamRoster {
		if member.AgentID == leader.AgentID {
			continue
		}
		_, err := s.Invitations.CreateInvite(ctx, invitations.CreateInviteInput{
			TargetID: in.OrgID,
			Type:     models.TargetOrganization,
			Email:    member.Email,
			ActorID:  organizer.AgentID,
		})
		if err != nil {
			log.Warn().Err(err).Str("agent", member.AgentID).Str("org", in.OrgID).Msg("Affiliation invite failed")
			continue
		}
		invited++
	}

	return &AffiliationResult{
		OrganizationID: in.OrgID,
		TeamID:         in.TeamID,
		Leader:         leader.AgentID,
		Invited:        invited,
	}, nil
}

type RemoveMemberInput struct {
	OrgID   string
	AgentID string
	ActorID string
}

// RemoveMember revokes an agent's organization membership. The organizer is
// immune regardless of who asks.
func (s *Service) RemoveMember(ctx context.Context, in RemoveMemberInput) error {
	roster, err := s.Directory.ListOrganizationRoster(ctx, in.OrgID)
	if err != nil {
		return err
	}
	if len(roster) == 0 {
		return ErrNoSuchOrganization
	}

	organizer := directory.LeaderOf(roster, models.TargetOrganization, in.OrgID)
	if organizer == nil {
		return ErrNoSuchOrganization
	}
	if in.AgentID == organizer.AgentID {
		return ErrOrganizerImmune
	}
	if in.ActorID != organizer.AgentID {
		return ErrOnlyOrganizer
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

	entry := member.Metadata.MembershipFor(models.TargetOrganization, in.OrgID)
	member.Metadata.RemoveMembership(models.TargetOrganization, in.OrgID)
	if _, err := s.Directory.UpdateMetadata(ctx, member.AgentID, member.Metadata); err != nil {
		return err
	}

	s.Notifier.Dispatch(ctx, notifications.Notice{
		Kind:       models.NoticeMemberRemoved,
		Recipient:  member.Email,
		TargetID:   in.OrgID,
		TargetName: entry.Name,
		TargetType: models.TargetOrganization,
	})
	return nil
}
