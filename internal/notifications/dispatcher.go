package notifications

import (
	"context"
	"encoding/json"

	"agenthq-backend/internal/emails"
	"agenthq-backend/internal/models"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Notice is one notification decision: which transition happened, who hears
// about it, and the template data.
type Notice struct {
	Kind          string `json:"kind"`
	Recipient     string `json:"recipient"`
	RecipientName string `json:"recipientName,omitempty"`
	TargetID      string `json:"targetId"`
	TargetName    string `json:"targetName"`
	TargetType    string `json:"targetType"`
}

// Dispatcher records exactly one NotificationLog row per state transition and
// hands delivery to the email sender. Delivery is fire-and-forget: a failed
// send is logged and never rolls back the transition that requested it.
type Dispatcher struct {
	DB            *gorm.DB
	Sender        emails.Sender
	InviteBaseURL string
}

// Dispatch records and delivers one notice.
func (d *Dispatcher) Dispatch(ctx context.Context, n Notice) {
	d.record(ctx, n)

	if d.Sender == nil {
		return
	}
	var err error
	switch n.Kind {
	case models.NoticeInviteSent:
		link := d.InviteBaseURL + "/invitations"
		err = d.Sender.SendInvite(ctx, n.Recipient, n.TargetName, n.TargetType, link)
	case models.NoticeInviteAccepted:
		err = d.Sender.SendAccepted(ctx, n.Recipient, n.RecipientName, n.TargetName)
	case models.NoticeInviteRejected:
		err = d.Sender.SendRejected(ctx, n.Recipient, n.RecipientName, n.TargetName)
	case models.NoticeInviteRescinded:
		err = d.Sender.SendRescinded(ctx, n.Recipient, n.TargetName)
	case models.NoticeMemberRemoved:
		err = d.Sender.SendRemoved(ctx, n.Recipient, n.TargetName, n.TargetType)
	default:
		log.Warn().Str("kind", n.Kind).Msg("Unknown notification kind")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("kind", n.Kind).Str("recipient", n.Recipient).Msg("Notification delivery failed")
	}
}

func (d *Dispatcher) record(ctx context.Context, n Notice) {
	if d.DB == nil {
		return
	}
	payload, err := json.Marshal(n)
	if err != nil {
		log.Error().Err(err).Str("kind", n.Kind).Msg("Notification payload marshal failed")
		return
	}
	row := models.NotificationLog{
		Kind:      n.Kind,
		Recipient: n.Recipient,
		TargetID:  n.TargetID,
		Payload:   payload,
	}
	if err := d.DB.WithContext(ctx).Create(&row).Error; err != nil {
		log.Error().Err(err).Str("kind", n.Kind).Msg("Notification log write failed")
	}
}
