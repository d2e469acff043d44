package invitations

import (
	"context"
	"testing"
	"time"

	"agenthq-backend/internal/directory"
	"agenthq-backend/internal/directory/directorytest"
	"agenthq-backend/internal/models"
	"agenthq-backend/internal/notifications"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupInviteService(t *testing.T) (*Service, *directorytest.Fake, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Invitation{}, &models.NotificationLog{}))

	dir := directorytest.New()
	svc := &Service{
		DB:         db,
		Directory:  dir,
		Reconciler: &Reconciler{DB: db, Directory: dir},
		Notifier:   &notifications.Dispatcher{DB: db},
	}
	return svc, dir, db
}

func teamLeader(agentID, email, teamID, teamName string) directory.Profile {
	return directory.Profile{
		AgentID:  agentID,
		Email:    email,
		Fullname: "Leader " + agentID,
		Metadata: models.Metadata{
			Teams: []models.Membership{{ID: teamID, Name: teamName, Leader: agentID}},
		},
	}
}

func TestCreateInvite_UnregisteredRecipient(t *testing.T) {
	svc, dir, db := setupInviteService(t)
	dir.Add(teamLeader("a1", "leader@example.com", "t1", "Rocket Crew"))

	receipt, err := svc.CreateInvite(context.Background(), CreateInviteInput{
		TargetID: "t1", Email: "newguy@example.com", ActorID: "a1",
	})
	require.NoError(t, err)
	assert.Equal(t, "t1", receipt.TargetID)
	assert.Equal(t, "Rocket Crew", receipt.TargetName)
	assert.Equal(t, models.TargetTeam, receipt.Type)
	assert.Equal(t, "newguy@example.com", receipt.Recipient)

	var rows []models.Invitation
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "t1", rows[0].UUID)
	assert.Equal(t, "newguy@example.com", rows[0].Recipient)

	// Inviter carries the shadow entry
	leader, _ := dir.Stored("a1")
	require.Len(t, leader.Metadata.PendingInvitations, 1)
	assert.Equal(t, "newguy@example.com", leader.Metadata.PendingInvitations[0].Recipient)

	var notices []models.NotificationLog
	require.NoError(t, db.Find(&notices).Error)
	require.Len(t, notices, 1)
	assert.Equal(t, models.NoticeInviteSent, notices[0].Kind)
	assert.Equal(t, "newguy@example.com", notices[0].Recipient)
}

func TestCreateInvite_ResendTouchesExistingRow(t *testing.T) {
	svc, dir, db := setupInviteService(t)
	dir.Add(teamLeader("a1", "leader@example.com", "t1", "Rocket Crew"))

	in := CreateInviteInput{TargetID: "t1", Email: "newguy@example.com", ActorID: "a1"}
	_, err := svc.CreateInvite(context.Background(), in)
	require.NoError(t, err)

	var first models.Invitation
	require.NoError(t, db.First(&first).Error)

	time.Sleep(10 * time.Millisecond)
	_, err = svc.CreateInvite(context.Background(), in)
	require.NoError(t, err)

	var rows []models.Invitation
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].UpdatedAt.After(first.UpdatedAt))
	assert.Equal(t, first.ID, rows[0].ID)

	// Each send mails again even though storage is idempotent
	var notices []models.NotificationLog
	require.NoError(t, db.Find(&notices).Error)
	assert.Len(t, notices, 2)
}

func TestCreateInvite_NormalizesRecipientCase(t *testing.T) {
	svc, dir, db := setupInviteService(t)
	dir.Add(teamLeader("a1", "leader@example.com", "t1", "Rocket Crew"))

	_, err := svc.CreateInvite(context.Background(), CreateInviteInput{
		TargetID: "t1", Email: "  Foo@Example.COM ", ActorID: "a1",
	})
	require.NoError(t, err)
	_, err = svc.CreateInvite(context.Background(), CreateInviteInput{
		TargetID: "t1", Email: "foo@example.com", ActorID: "a1",
	})
	require.NoError(t, err)

	var rows []models.Invitation
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "foo@example.com", rows[0].Recipient)
}

func TestCreateInvite_RegisteredRecipientGetsRsvp(t *testing.T) {
	svc, dir, db := setupInviteService(t)
	dir.Add(teamLeader("a1", "leader@example.com", "t1", "Rocket Crew"))
	dir.Add(directory.Profile{AgentID: "a2", Email: "member@example.com", Fullname: "Member"})

	_, err := svc.CreateInvite(context.Background(), CreateInviteInput{
		TargetID: "t1", Email: "member@example.com", ActorID: "a1",
	})
	require.NoError(t, err)

	// No local row: the invitation lives on the recipient's record
	var count int64
	require.NoError(t, db.Model(&models.Invitation{}).Count(&count).Error)
	assert.Zero(t, count)

	stored, _ := dir.Stored("a2")
	require.Len(t, stored.Metadata.Rsvps, 1)
	assert.Equal(t, "t1", stored.Metadata.Rsvps[0].UUID)
	assert.Equal(t, "Rocket Crew", stored.Metadata.Rsvps[0].Name)
	assert.Equal(t, models.TargetTeam, stored.Metadata.Rsvps[0].Type)
}

func TestCreateInvite_ValidationErrors(t *testing.T) {
	svc, dir, _ := setupInviteService(t)
	dir.Add(teamLeader("a1", "leader@example.com", "t1", "Rocket Crew"))
	ctx := context.Background()

	_, err := svc.CreateInvite(ctx, CreateInviteInput{TargetID: "t1", ActorID: "a1"})
	assert.ErrorIs(t, err, ErrNoEmail)

	_, err = svc.CreateInvite(ctx, CreateInviteInput{TargetID: "t1", Email: "not-an-email", ActorID: "a1"})
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = svc.CreateInvite(ctx, CreateInviteInput{TargetID: "t1", Email: "x@y.com", Type: "guild", ActorID: "a1"})
	assert.ErrorIs(t, err, ErrInvalidType)
}

func TestCreateInvite_OnlyLeaderMayInvite(t *testing.T) {
	svc, dir, _ := setupInviteService(t)
	dir.Add(teamLeader("a1", "leader@example.com", "t1", "Rocket Crew"))
	dir.Add(directory.Profile{
		AgentID: "a2", Email: "member@example.com",
		Metadata: models.Metadata{Teams: []models.Membership{{ID: "t1", Name: "Rocket Crew", Leader: "a1"}}},
	})

	_, err := svc.CreateInvite(context.Background(), CreateInviteInput{
		TargetID: "t1", Email: "x@y.com", ActorID: "a2",
	})
	assert.ErrorIs(t, err, ErrNotTeamLeader)
}

func TestCreateInvite_UnknownTeamSelfHeals(t *testing.T) {
	svc, dir, db := setupInviteService(t)
	// Actor shadows an invite for a team nobody references anymore.
	dir.Add(directory.Profile{
		AgentID: "a1", Email: "leader@example.com",
		Metadata: models.Metadata{
			PendingInvitations: []models.PendingInvitation{
				{Name: "Ghost Team", UUID: "gone", Type: models.TargetTeam, Recipient: "x@y.com"},
			},
		},
	})
	require.NoError(t, db.Create(&models.Invitation{
		UUID: "gone", Name: "Ghost Team", Recipient: "x@y.com", Type: models.TargetTeam,
	}).Error)

	_, err := svc.CreateInvite(context.Background(), CreateInviteInput{
		TargetID: "gone", Email: "x@y.com", ActorID: "a1",
	})
	assert.ErrorIs(t, err, ErrNoSuchTeam)

	stored, _ := dir.Stored("a1")
	assert.Empty(t, stored.Metadata.PendingInvitations)
	var count int64
	require.NoError(t, db.Model(&models.Invitation{}).Where("uuid = ?", "gone").Count(&count).Error)
	assert.Zero(t, count)
}

func TestAccept_TransfersRsvpIntoMembership(t *testing.T) {
	svc, dir, db := setupInviteService(t)
	leader := teamLeader("a1", "leader@example.com", "t1", "Rocket Crew")
	leader.Metadata.PendingInvitations = []models.PendingInvitation{
		{Name: "Rocket Crew", UUID: "t1", Type: models.TargetTeam, Recipient: "member@example.com"},
	}
	dir.Add(leader)
	dir.Add(directory.Profile{
		AgentID: "a2", Email: "member@example.com", Fullname: "Member",
		Metadata: models.Metadata{
			Rsvps: []models.Rsvp{{Name: "Rocket Crew", UUID: "t1", Type: models.TargetTeam, Recipient: "member@example.com"}},
		},
	})

	result, err := svc.Accept(context.Background(), RespondInput{TargetID: "t1", AgentID: "a2"})
	require.NoError(t, err)
	assert.False(t, result.AlreadyMember)
	require.NotNil(t, result.Membership)
	assert.Equal(t, "Rocket Crew", result.Membership.Name)
	assert.Equal(t, "a1", result.Membership.Leader)

	stored, _ := dir.Stored("a2")
	assert.Empty(t, stored.Metadata.Rsvps)
	require.Len(t, stored.Metadata.Teams, 1)
	assert.Equal(t, "t1", stored.Metadata.Teams[0].ID)

	// Rsvp removal and membership append land in one metadata write
	assert.Equal(t, 1, dir.UpdateCalls["a2"])

	// Inviter shadow is gone
	storedLeader, _ := dir.Stored("a1")
	assert.Empty(t, storedLeader.Metadata.PendingInvitations)

	var notices []models.NotificationLog
	require.NoError(t, db.Find(&notices).Error)
	require.Len(t, notices, 1)
	assert.Equal(t, models.NoticeInviteAccepted, notices[0].Kind)
	assert.Equal(t, "leader@example.com", notices[0].Recipient)
}

func TestAccept_ConsumesLocalRowAfterRegistration(t *testing.T) {
	svc, dir, db := setupInviteService(t)
	dir.Add(teamLeader("a1", "leader@example.com", "t1", "Rocket Crew"))

	// Invite issued before the recipient registered
	_, err := svc.CreateInvite(context.Background(), CreateInviteInput{
		TargetID: "t1", Email: "newguy@example.com", ActorID: "a1",
	})
	require.NoError(t, err)

	dir.Add(directory.Profile{AgentID: "a3", Email: "newguy@example.com", Fullname: "New Guy"})

	result, err := svc.Accept(context.Background(), RespondInput{TargetID: "t1", AgentID: "a3"})
	require.NoError(t, err)
	require.NotNil(t, result.Membership)
	assert.Equal(t, "a1", result.Membership.Leader)

	var count int64
	require.NoError(t, db.Model(&models.Invitation{}).Count(&count).Error)
	assert.Zero(t, count)

	stored, _ := dir.Stored("a3")
	require.Len(t, stored.Metadata.Teams, 1)
	assert.Equal(t, "Rocket Crew", stored.Metadata.Teams[0].Name)
}

func TestAccept_AlreadyMemberIsFriendly(t *testing.T) {
	svc, dir, _ := setupInviteService(t)
	dir.Add(teamLeader("a1", "leader@example.com", "t1", "Rocket Crew"))
	dir.Add(directory.Profile{
		AgentID: "a2", Email: "member@example.com",
		Metadata: models.Metadata{Teams: []models.Membership{{ID: "t1", Name: "Rocket Crew", Leader: "a1"}}},
	})

	result, err := svc.Accept(context.Background(), RespondInput{TargetID: "t1", AgentID: "a2"})
	require.NoError(t, err)
	assert.True(t, result.AlreadyMember)
	assert.Equal(t, "You are already a member of this team", result.Message)

	// No mutation touched the directory
	assert.Zero(t, dir.Updates)
}

func TestAccept_OrganizationSetsOrganizer(t *testing.T) {
	svc, dir, _ := setupInviteService(t)
	dir.Add(directory.Profile{
		AgentID: "o1", Email: "organizer@example.com",
		Metadata: models.Metadata{
			Organizations: []models.Membership{{ID: "org1", Name: "Mega Org", Organizer: "o1"}},
		},
	})
	dir.Add(directory.Profile{
		AgentID: "a2", Email: "member@example.com",
		Metadata: models.Metadata{
			Rsvps: []models.Rsvp{{Name: "Mega Org", UUID: "org1", Type: models.TargetOrganization, Recipient: "member@example.com"}},
		},
	})

	result, err := svc.Accept(context.Background(), RespondInput{TargetID: "org1", AgentID: "a2"})
	require.NoError(t, err)
	require.NotNil(t, result.Membership)
	assert.Equal(t, "o1", result.Membership.Organizer)
	assert.Empty(t, result.Membership.Leader)

	stored, _ := dir.Stored("a2")
	require.Len(t, stored.Metadata.Organizations, 1)
}

func TestAccept_OrphanedInvitationSelfHeals(t *testing.T) {
	svc, dir, _ := setupInviteService(t)
	dir.Add(directory.Profile{
		AgentID: "a2", Email: "member@example.com",
		Metadata: models.Metadata{
			Rsvps: []models.Rsvp{{Name: "Ghost Team", UUID: "gone", Type: models.TargetTeam, Recipient: "member@example.com"}},
		},
	})

	_, err := svc.Accept(context.Background(), RespondInput{TargetID: "gone", AgentID: "a2"})
	assert.ErrorIs(t, err, ErrNoSuchInvitation)

	// The dangling rsvp has been purged
	stored, _ := dir.Stored("a2")
	assert.Empty(t, stored.Metadata.Rsvps)
	assert.Empty(t, stored.Metadata.Teams)
}

func TestAccept_NoInvitation(t *testing.T) {
	svc, dir, _ := setupInviteService(t)
	dir.Add(teamLeader("a1", "leader@example.com", "t1", "Rocket Crew"))
	dir.Add(directory.Profile{AgentID: "a2", Email: "member@example.com"})

	_, err := svc.Accept(context.Background(), RespondInput{TargetID: "t1", AgentID: "a2"})
	assert.ErrorIs(t, err, ErrNoSuchInvitation)
}

func TestReject_ClearsWithoutMembership(t *testing.T) {
	svc, dir, db := setupInviteService(t)
	leader := teamLeader("a1", "leader@example.com", "t1", "Rocket Crew")
	leader.Metadata.PendingInvitations = []models.PendingInvitation{
		{Name: "Rocket Crew", UUID: "t1", Type: models.TargetTeam, Recipient: "member@example.com"},
	}
	dir.Add(leader)
	dir.Add(directory.Profile{
		AgentID: "a2", Email: "member@example.com", Fullname: "Member",
		Metadata: models.Metadata{
			Rsvps: []models.Rsvp{{Name: "Rocket Crew", UUID: "t1", Type: models.TargetTeam, Recipient: "member@example.com"}},
		},
	})

	_, err := svc.Reject(context.Background(), RespondInput{TargetID: "t1", AgentID: "a2"})
	require.NoError(t, err)

	stored, _ := dir.Stored("a2")
	assert.Empty(t, stored.Metadata.Rsvps)
	assert.Empty(t, stored.Metadata.Teams)

	storedLeader, _ := dir.Stored("a1")
	assert.Empty(t, storedLeader.Metadata.PendingInvitations)

	var notices []models.NotificationLog
	require.NoError(t, db.Find(&notices).Error)
	require.Len(t, notices, 1)
	assert.Equal(t, models.NoticeInviteRejected, notices[0].Kind)
	assert.Equal(t, "leader@example.com", notices[0].Recipient)
}

func TestRescind_RemovesLocalRow(t *testing.T) {
	svc, dir, db := setupInviteService(t)
	dir.Add(teamLeader("a1", "leader@example.com", "t1", "Rocket Crew"))

	_, err := svc.CreateInvite(context.Background(), CreateInviteInput{
		TargetID: "t1", Email: "newguy@example.com", ActorID: "a1",
	})
	require.NoError(t, err)

	receipt, err := svc.Rescind(context.Background(), RescindInput{
		TargetID: "t1", Email: "newguy@example.com", ActorID: "a1",
	})
	require.NoError(t, err)
	assert.Equal(t, models.TargetTeam, receipt.Type)

	var count int64
	require.NoError(t, db.Model(&models.Invitation{}).Count(&count).Error)
	assert.Zero(t, count)

	stored, _ := dir.Stored("a1")
	assert.Empty(t, stored.Metadata.PendingInvitations)

	// Rescinding again finds nothing
	_, err = svc.Rescind(context.Background(), RescindInput{
		TargetID: "t1", Email: "newguy@example.com", ActorID: "a1",
	})
	assert.ErrorIs(t, err, ErrNoSuchInvitation)
}

func TestRescind_RemovesRsvpFromRegisteredRecipient(t *testing.T) {
	svc, dir, _ := setupInviteService(t)
	dir.Add(teamLeader("a1", "leader@example.com", "t1", "Rocket Crew"))
	dir.Add(directory.Profile{AgentID: "a2", Email: "member@example.com"})

	_, err := svc.CreateInvite(context.Background(), CreateInviteInput{
		TargetID: "t1", Email: "member@example.com", ActorID: "a1",
	})
	require.NoError(t, err)

	_, err = svc.Rescind(context.Background(), RescindInput{
		TargetID: "t1", Email: "member@example.com", ActorID: "a1",
	})
	require.NoError(t, err)

	stored, _ := dir.Stored("a2")
	assert.Empty(t, stored.Metadata.Rsvps)
}

func TestRescind_OnlyLeader(t *testing.T) {
	svc, dir, _ := setupInviteService(t)
	dir.Add(teamLeader("a1", "leader@example.com", "t1", "Rocket Crew"))
	dir.Add(directory.Profile{
		AgentID: "a2", Email: "member@example.com",
		Metadata: models.Metadata{Teams: []models.Membership{{ID: "t1", Name: "Rocket Crew", Leader: "a1"}}},
	})

	_, err := svc.Rescind(context.Background(), RescindInput{
		TargetID: "t1", Email: "x@y.com", ActorID: "a2",
	})
	assert.ErrorIs(t, err, ErrNotTeamLeader)
}

func TestListForTarget_LeaderOnly(t *testing.T) {
	svc, dir, _ := setupInviteService(t)
	dir.Add(teamLeader("a1", "leader@example.com", "t1", "Rocket Crew"))
	dir.Add(directory.Profile{
		AgentID: "a2", Email: "member@example.com",
		Metadata: models.Metadata{Teams: []models.Membership{{ID: "t1", Name: "Rocket Crew", Leader: "a1"}}},
	})

	_, err := svc.CreateInvite(context.Background(), CreateInviteInput{
		TargetID: "t1", Email: "one@example.com", ActorID: "a1",
	})
	require.NoError(t, err)

	rows, err := svc.ListForTarget(context.Background(), "t1", models.TargetTeam, "a1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "one@example.com", rows[0].Recipient)

	_, err = svc.ListForTarget(context.Background(), "t1", models.TargetTeam, "a2")
	assert.ErrorIs(t, err, ErrNotTeamLeader)
}

func TestCreateInvite_DirectoryDown(t *testing.T) {
	svc, dir, _ := setupInviteService(t)
	dir.Add(teamLeader("a1", "leader@example.com", "t1", "Rocket Crew"))
	dir.Err = directory.ErrUnavailable

	_, err := svc.CreateInvite(context.Background(), CreateInviteInput{
		TargetID: "t1", Email: "x@y.com", ActorID: "a1",
	})
	assert.ErrorIs(t, err, directory.ErrUnavailable)
}
