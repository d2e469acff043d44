package invitations

import (
	"context"

	"agenthq-backend/internal/directory"
	"agenthq-backend/internal/models"
	"agenthq-backend/internal/notifications"
	"agenthq-backend/internal/pkg/validation"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Service is the invitation lifecycle controller. State machine per
// (target id, recipient) pair: none -> pending -> accepted | rejected, with
// rescinded collapsing pending back to none by inviter action.
type Service struct {
	DB         *gorm.DB
	Directory  directory.Client
	Reconciler *Reconciler
	Notifier   *notifications.Dispatcher
}

func notFoundFor(targetType string) error {
	if targetType == models.TargetOrganization {
		return ErrNoSuchOrganization
	}
	return ErrNoSuchTeam
}

func notLeaderFor(targetType string) error {
	if targetType == models.TargetOrganization {
		return ErrNotOrganizer
	}
	return ErrNotTeamLeader
}

type CreateInviteInput struct {
	TargetID string
	Type     string
	Email    string
	ActorID  string
}

// InviteReceipt mirrors the persisted invitation shape regardless of which
// store holds it.
type InviteReceipt struct {
	TargetID   string `json:"uuid"`
	TargetName string `json:"name"`
	Type       string `json:"type"`
	Recipient  string `json:"recipient"`
}

// CreateInvite issues or re-issues an invitation. The actor must be the
// leader/organizer of the target. Re-inviting the same recipient for the same
// target touches the existing record and still sends a fresh email; that holds
// for addresses differing only in case, which collapse to one lower-cased
// recipient.
func (s *Service) CreateInvite(ctx context.Context, in CreateInviteInput) (*InviteReceipt, error) {
	if in.Email == "" {
		return nil, ErrNoEmail
	}
	email := validation.NormalizeEmail(in.Email)
	if !validation.IsValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	targetType := in.Type
	if targetType == "" {
		targetType = models.TargetTeam
	}
	if targetType != models.TargetTeam && targetType != models.TargetOrganization {
		return nil, ErrInvalidType
	}

	actor, err := s.Directory.ReadProfile(ctx, in.ActorID)
	if err != nil {
		return nil, err
	}

	roster, err := directory.RosterFor(ctx, s.Directory, targetType, in.TargetID)
	if err != nil {
		return nil, err
	}
	if len(roster) == 0 {
		s.selfHeal(ctx, actor, in.TargetID)
		return nil, notFoundFor(targetType)
	}

	leader := directory.LeaderOf(roster, targetType, in.TargetID)
	if leader == nil || leader.AgentID != in.ActorID {
		return nil, notLeaderFor(targetType)
	}
	entry := leader.Metadata.MembershipFor(targetType, in.TargetID)
	key := InviteKey{
		TargetID:   in.TargetID,
		TargetName: entry.Name,
		Type:       targetType,
		Recipient:  email,
	}

	target, err := s.Reconciler.Resolve(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := target.Upsert(ctx, key); err != nil {
		return nil, err
	}

	// Shadow the invite on the inviter so outstanding invites are visible
	// without a join. A resend finds the shadow already in place.
	if leader.Metadata.AddPending(models.PendingInvitation{
		Name:      key.TargetName,
		UUID:      key.TargetID,
		Type:      key.Type,
		Recipient: key.Recipient,
	}) {
		if _, err := s.Directory.UpdateMetadata(ctx, leader.AgentID, leader.Metadata); err != nil {
			return nil, err
		}
	}

	s.Notifier.Dispatch(ctx, notifications.Notice{
		Kind:       models.NoticeInviteSent,
		Recipient:  email,
		TargetID:   key.TargetID,
		TargetName: key.TargetName,
		TargetType: key.Type,
	})

	return &InviteReceipt{TargetID: key.TargetID, TargetName: key.TargetName, Type: key.Type, Recipient: key.Recipient}, nil
}

type RespondInput struct {
	TargetID string
	AgentID  string
}

// RespondResult is the outcome of accept/reject. AlreadyMember is a friendly
// 200-with-message outcome, not an error.
type RespondResult struct {
	AlreadyMember bool               `json:"-"`
	Message       string             `json:"-"`
	Membership    *models.Membership `json:"membership,omitempty"`
}

// Accept transfers a pending invitation into a membership entry on the
// recipient. The rsvp/row for the pair ceases to exist in the same operation;
// the inviter's pending shadow is cleared best-effort afterwards.
func (s *Service) Accept(ctx context.Context, in RespondInput) (*RespondResult, error) {
	profile, err := s.Directory.ReadProfile(ctx, in.AgentID)
	if err != nil {
		return nil, err
	}

	// Already a member: skip every mutation, including the directory update.
	if profile.Metadata.MembershipFor(models.TargetTeam, in.TargetID) != nil {
		return &RespondResult{AlreadyMember: true, Message: "You are already a member of this team"}, nil
	}
	if profile.Metadata.MembershipFor(models.TargetOrganization, in.TargetID) != nil {
		return &RespondResult{AlreadyMember: true, Message: "You are already a member of this organization"}, nil
	}

	pending, leader, err := s.locate(ctx, profile, in.TargetID)
	if err != nil {
		return nil, err
	}

	if _, err := pending.Clear(ctx, &profile.Metadata); err != nil {
		return nil, err
	}
	leaderEntry := leader.Metadata.MembershipFor(pending.Key.Type, in.TargetID)
	membership := models.Membership{
		ID:             in.TargetID,
		Name:           leaderEntry.Name,
		OrganizationID: leaderEntry.OrganizationID,
	}
	if pending.Key.Type == models.TargetOrganization {
		membership.Organizer = leader.AgentID
	} else {
		membership.Leader = leader.AgentID
	}
	profile.Metadata.AddMembership(pending.Key.Type, membership)
	if _, err := s.Directory.UpdateMetadata(ctx, profile.AgentID, profile.Metadata); err != nil {
		return nil, err
	}

	s.clearInviterShadow(ctx, leader, in.TargetID, pending.Key.Recipient)

	s.Notifier.Dispatch(ctx, notifications.Notice{
		Kind:          models.NoticeInviteAccepted,
		Recipient:     leader.Email,
		RecipientName: profile.Fullname,
		TargetID:      in.TargetID,
		TargetName:    leaderEntry.Name,
		TargetType:    pending.Key.Type,
	})

	return &RespondResult{Membership: &membership}, nil
}

// Reject clears the pending invitation without creating a membership entry.
func (s *Service) Reject(ctx context.Context, in RespondInput) (*RespondResult, error) {
	profile, err := s.Directory.ReadProfile(ctx, in.AgentID)
	if err != nil {
		return nil, err
	}

	pending, leader, err := s.locate(ctx, profile, in.TargetID)
	if err != nil {
		return nil, err
	}

	changed, err := pending.Clear(ctx, &profile.Metadata)
	if err != nil {
		return nil, err
	}
	if changed {
		if _, err := s.Directory.UpdateMetadata(ctx, profile.AgentID, profile.Metadata); err != nil {
			return nil, err
		}
	}

	s.clearInviterShadow(ctx, leader, in.TargetID, pending.Key.Recipient)

	s.Notifier.Dispatch(ctx, notifications.Notice{
		Kind:          models.NoticeInviteRejected,
		Recipient:     leader.Email,
		RecipientName: profile.Fullname,
		TargetID:      in.TargetID,
		TargetName:    pending.Key.TargetName,
		TargetType:    pending.Key.Type,
	})

	return &RespondResult{}, nil
}

// locate finds the pending invitation for the requester and verifies the
// referenced target still resolves to a roster. Both failure modes report
// "No such invitation" after the orphan self-heal has run.
func (s *Service) locate(ctx context.Context, profile *directory.Profile, targetID string) (*Pending, *directory.Profile, error) {
	pending, err := s.Reconciler.PendingFor(ctx, profile, targetID)
	if err != nil {
		return nil, nil, err
	}
	if pending == nil {
		s.selfHeal(ctx, profile, targetID)
		return nil, nil, ErrNoSuchInvitation
	}

	roster, err := directory.RosterFor(ctx, s.Directory, pending.Key.Type, targetID)
	if err != nil {
		return nil, nil, err
	}
	leader := directory.LeaderOf(roster, pending.Key.Type, targetID)
	if len(roster) == 0 || leader == nil {
		s.selfHeal(ctx, profile, targetID)
		return nil, nil, ErrNoSuchInvitation
	}
	return pending, leader, nil
}

// clearInviterShadow removes the inviter-side pending entry. Best-effort: the
// recipient-side transition already committed and a failed shadow write is
// repaired by the next orphan pass touching the pair.
func (s *Service) clearInviterShadow(ctx context.Context, leader *directory.Profile, targetID, recipient string) {
	if !leader.Metadata.RemovePending(targetID, recipient) {
		return
	}
	if _, err := s.Directory.UpdateMetadata(ctx, leader.AgentID, leader.Metadata); err != nil {
		log.Warn().Err(err).Str("agent", leader.AgentID).Str("target", targetID).Msg("Inviter shadow cleanup failed")
	}
}

type RescindInput struct {
	TargetID string
	Email    string
	ActorID  string
}

// Rescind withdraws a pending invitation by inviter action, collapsing the
// pair back to none. Calling it twice is tolerated: the second call 404s
// cleanly.
func (s *Service) Rescind(ctx context.Context, in RescindInput) (*InviteReceipt, error) {
	if in.Email == "" {
		return nil, ErrNoEmail
	}
	email := validation.NormalizeEmail(in.Email)

	actor, err := s.Directory.ReadProfile(ctx, in.ActorID)
	if err != nil {
		return nil, err
	}

	targetType, targetName, err := s.typeOf(ctx, actor, in.TargetID, email)
	if err != nil {
		return nil, err
	}

	roster, err := directory.RosterFor(ctx, s.Directory, targetType, in.TargetID)
	if err != nil {
		return nil, err
	}
	if len(roster) == 0 {
		s.selfHeal(ctx, actor, in.TargetID)
		return nil, ErrNoSuchInvitation
	}
	leader := directory.LeaderOf(roster, targetType, in.TargetID)
	if leader == nil || leader.AgentID != in.ActorID {
		return nil, notLeaderFor(targetType)
	}

	target, err := s.Reconciler.Resolve(ctx, email)
	if err != nil {
		return nil, err
	}
	removed, err := target.Remove(ctx, in.TargetID)
	if err != nil {
		return nil, err
	}

	if leader.Metadata.RemovePending(in.TargetID, email) {
		if _, err := s.Directory.UpdateMetadata(ctx, leader.AgentID, leader.Metadata); err != nil {
			return nil, err
		}
	}

	if !removed {
		return nil, ErrNoSuchInvitation
	}

	s.Notifier.Dispatch(ctx, notifications.Notice{
		Kind:       models.NoticeInviteRescinded,
		Recipient:  email,
		TargetID:   in.TargetID,
		TargetName: targetName,
		TargetType: targetType,
	})

	return &InviteReceipt{TargetID: in.TargetID, TargetName: targetName, Type: targetType, Recipient: email}, nil
}

// typeOf recovers the target type (and display name) for a rescind, which
// names only the target id: the actor's own membership entry first, then
// their pending shadow, then the local record store.
func (s *Service) typeOf(ctx context.Context, actor *directory.Profile, targetID, email string) (string, string, error) {
	if entry := actor.Metadata.MembershipFor(models.TargetTeam, targetID); entry != nil {
		return models.TargetTeam, entry.Name, nil
	}
	if entry := actor.Metadata.MembershipFor(models.TargetOrganization, targetID); entry != nil {
		return models.TargetOrganization, entry.Name, nil
	}
	if p := actor.Metadata.PendingFor(targetID, email); p != nil {
		return p.Type, p.Name, nil
	}

	var row models.Invitation
	err := s.DB.WithContext(ctx).Where("uuid = ? AND recipient = ?", targetID, email).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return "", "", ErrNoSuchInvitation
	}
	if err != nil {
		return "", "", err
	}
	return row.Type, row.Name, nil
}

// ListForTarget returns the locally stored invitation rows for a target
// (unregistered recipients only; registered recipients' rsvps live on their
// directory records). Leader-only.
func (s *Service) ListForTarget(ctx context.Context, targetID, targetType, actorID string) ([]models.Invitation, error) {
	if targetType == "" {
		targetType = models.TargetTeam
	}
	roster, err := directory.RosterFor(ctx, s.Directory, targetType, targetID)
	if err != nil {
		return nil, err
	}
	if len(roster) == 0 {
		return nil, notFoundFor(targetType)
	}
	leader := directory.LeaderOf(roster, targetType, targetID)
	if leader == nil || leader.AgentID != actorID {
		return nil, notLeaderFor(targetType)
	}

	var rows []models.Invitation
	if err := s.DB.WithContext(ctx).
		Where("uuid = ?", targetID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
