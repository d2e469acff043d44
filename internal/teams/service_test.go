package teams

import (
	"context"
	"testing"

	"agenthq-backend/internal/directory"
	"agenthq-backend/internal/directory/directorytest"
	"agenthq-backend/internal/models"
	"agenthq-backend/internal/notifications"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTeamService(t *testing.T) (*Service, *directorytest.Fake) {
	dir := directorytest.New()
	return &Service{Directory: dir, Notifier: &notifications.Dispatcher{}}, dir
}

func addTeamMember(dir *directorytest.Fake, agentID, email, teamID, teamName, leaderID string) {
	dir.Add(directory.Profile{
		AgentID: agentID, Email: email, Fullname: "Agent " + agentID,
		Metadata: models.Metadata{
			Teams: []models.Membership{{ID: teamID, Name: teamName, Leader: leaderID}},
		},
	})
}

func TestCreateTeam(t *testing.T) {
	svc, dir := setupTeamService(t)
	dir.Add(directory.Profile{AgentID: "a1", Email: "founder@example.com"})

	entry, err := svc.Create(context.Background(), "Rocket Crew", "a1")
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, "Rocket Crew", entry.Name)
	assert.Equal(t, "a1", entry.Leader)

	stored, _ := dir.Stored("a1")
	require.Len(t, stored.Metadata.Teams, 1)
	assert.Equal(t, entry.ID, stored.Metadata.Teams[0].ID)
}

func TestCreateTeam_RequiresName(t *testing.T) {
	svc, dir := setupTeamService(t)
	dir.Add(directory.Profile{AgentID: "a1", Email: "founder@example.com"})

	_, err := svc.Create(context.Background(), "  ", "a1")
	assert.ErrorIs(t, err, ErrNoName)
}

func TestViewTeam_DerivedFromRoster(t *testing.T) {
	svc, dir := setupTeamService(t)
	addTeamMember(dir, "a1", "leader@example.com", "t1", "Rocket Crew", "a1")
	addTeamMember(dir, "a2", "member@example.com", "t1", "Rocket Crew", "a1")

	view, err := svc.View(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "Rocket Crew", view.Name)
	assert.Equal(t, "a1", view.Leader)
	assert.Len(t, view.Members, 2)
}

func TestViewTeam_NoReferencesMeansNoTeam(t *testing.T) {
	svc, _ := setupTeamService(t)
	_, err := svc.View(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNoSuchTeam)
}

func TestRemoveMember(t *testing.T) {
	svc, dir := setupTeamService(t)
	addTeamMember(dir, "a1", "leader@example.com", "t1", "Rocket Crew", "a1")
	addTeamMember(dir, "a2", "member@example.com", "t1", "Rocket Crew", "a1")

	err := svc.RemoveMember(context.Background(), RemoveMemberInput{
		TeamID: "t1", AgentID: "a2", ActorID: "a1",
	})
	require.NoError(t, err)

	stored, _ := dir.Stored("a2")
	assert.Empty(t, stored.Metadata.Teams)
}

func TestRemoveMember_LeaderImmune(t *testing.T) {
	svc, dir := setupTeamService(t)
	addTeamMember(dir, "a1", "leader@example.com", "t1", "Rocket Crew", "a1")
	addTeamMember(dir, "a2", "member@example.com", "t1", "Rocket Crew", "a1")

	// Immunity holds regardless of who asks, the leader included
	err := svc.RemoveMember(context.Background(), RemoveMemberInput{
		TeamID: "t1", AgentID: "a1", ActorID: "a1",
	})
	assert.ErrorIs(t, err, ErrLeaderImmune)

	err = svc.RemoveMember(context.Background(), RemoveMemberInput{
		TeamID: "t1", AgentID: "a1", ActorID: "a2",
	})
	assert.ErrorIs(t, err, ErrLeaderImmune)

	stored, _ := dir.Stored("a1")
	assert.Len(t, stored.Metadata.Teams, 1)
}

func TestRemoveMember_OnlyLeaderMayRemove(t *testing.T) {
	svc, dir := setupTeamService(t)
	addTeamMember(dir, "a1", "leader@example.com", "t1", "Rocket Crew", "a1")
	addTeamMember(dir, "a2", "member@example.com", "t1", "Rocket Crew", "a1")
	addTeamMember(dir, "a3", "other@example.com", "t1", "Rocket Crew", "a1")

	err := svc.RemoveMember(context.Background(), RemoveMemberInput{
		TeamID: "t1", AgentID: "a3", ActorID: "a2",
	})
	assert.ErrorIs(t, err, ErrOnlyLeader)
}

func TestRemoveMember_NotAMember(t *testing.T) {
	svc, dir := setupTeamService(t)
	addTeamMember(dir, "a1", "leader@example.com", "t1", "Rocket Crew", "a1")
	dir.Add(directory.Profile{AgentID: "a9", Email: "stranger@example.com"})

	err := svc.RemoveMember(context.Background(), RemoveMemberInput{
		TeamID: "t1", AgentID: "a9", ActorID: "a1",
	})
	assert.ErrorIs(t, err, ErrNotAMember)
}

func TestMine(t *testing.T) {
	svc, dir := setupTeamService(t)
	addTeamMember(dir, "a1", "leader@example.com", "t1", "Rocket Crew", "a1")

	mine, err := svc.Mine(context.Background(), "a1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "t1", mine[0].ID)
}
