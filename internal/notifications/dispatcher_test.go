package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"agenthq-backend/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingSender struct {
	calls []string
	err   error
}

func (r *recordingSender) SendInvite(ctx context.Context, to, targetName, targetType, link string) error {
	r.calls = append(r.calls, "invite:"+to)
	return r.err
}
func (r *recordingSender) SendAccepted(ctx context.Context, to, who, targetName string) error {
	r.calls = append(r.calls, "accepted:"+to)
	return r.err
}
func (r *recordingSender) SendRejected(ctx context.Context, to, who, targetName string) error {
	r.calls = append(r.calls, "rejected:"+to)
	return r.err
}
func (r *recordingSender) SendRescinded(ctx context.Context, to, targetName string) error {
	r.calls = append(r.calls, "rescinded:"+to)
	return r.err
}
func (r *recordingSender) SendRemoved(ctx context.Context, to, targetName, targetType string) error {
	r.calls = append(r.calls, "removed:"+to)
	return r.err
}

func setupDispatcher(t *testing.T) (*Dispatcher, *recordingSender, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.NotificationLog{}))
	sender := &recordingSender{}
	return &Dispatcher{DB: db, Sender: sender, InviteBaseURL: "https://app.example.com"}, sender, db
}

func TestDispatch_RecordsAndSends(t *testing.T) {
	d, sender, db := setupDispatcher(t)

	d.Dispatch(context.Background(), Notice{
		Kind: models.NoticeInviteSent, Recipient: "x@y.com",
		TargetID: "t1", TargetName: "Rocket Crew", TargetType: models.TargetTeam,
	})

	var rows []models.NotificationLog
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, models.NoticeInviteSent, rows[0].Kind)
	assert.Equal(t, "x@y.com", rows[0].Recipient)

	var payload Notice
	require.NoError(t, json.Unmarshal(rows[0].Payload, &payload))
	assert.Equal(t, "Rocket Crew", payload.TargetName)

	assert.Equal(t, []string{"invite:x@y.com"}, sender.calls)
}

func TestDispatch_OneRowPerTransition(t *testing.T) {
	d, sender, db := setupDispatcher(t)
	ctx := context.Background()

	d.Dispatch(ctx, Notice{Kind: models.NoticeInviteAccepted, Recipient: "leader@y.com", TargetID: "t1"})
	d.Dispatch(ctx, Notice{Kind: models.NoticeInviteRejected, Recipient: "leader@y.com", TargetID: "t1"})
	d.Dispatch(ctx, Notice{Kind: models.NoticeInviteRescinded, Recipient: "x@y.com", TargetID: "t1"})
	d.Dispatch(ctx, Notice{Kind: models.NoticeMemberRemoved, Recipient: "x@y.com", TargetID: "t1"})

	var count int64
	require.NoError(t, db.Model(&models.NotificationLog{}).Count(&count).Error)
	assert.EqualValues(t, 4, count)
	assert.Len(t, sender.calls, 4)
}

func TestDispatch_SendFailureDoesNotPropagate(t *testing.T) {
	d, sender, db := setupDispatcher(t)
	sender.err = errors.New("smtp down")

	// Must not panic or roll anything back
	d.Dispatch(context.Background(), Notice{Kind: models.NoticeInviteSent, Recipient: "x@y.com", TargetID: "t1"})

	var count int64
	require.NoError(t, db.Model(&models.NotificationLog{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestDispatch_NilSinksAreTolerated(t *testing.T) {
	d := &Dispatcher{}
	d.Dispatch(context.Background(), Notice{Kind: models.NoticeInviteSent, Recipient: "x@y.com"})
}
