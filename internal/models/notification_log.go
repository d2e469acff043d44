package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Notification kinds, one per lifecycle transition.
const (
	NoticeInviteSent     = "invite-sent"
	NoticeInviteAccepted = "invite-accepted"
	NoticeInviteRejected = "invite-rejected"
	NoticeInviteRescinded = "invite-rescinded"
	NoticeMemberRemoved  = "member-removed"
)

// NotificationLog is the audit row written when a state transition requests a
// notification. Exactly one row is written per transition; delivery itself is
// fire-and-forget and never rolls the transition back.
type NotificationLog struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Kind      string         `gorm:"column:kind;not null;index" json:"kind"`
	Recipient string         `gorm:"column:recipient;not null" json:"recipient"`
	TargetID  string         `gorm:"column:target_id;type:uuid;not null;index" json:"target_id"`
	Payload   datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload"`
	CreatedAt time.Time      `json:"createdAt"`
}

func (NotificationLog) TableName() string {
	return "NotificationLogs"
}

func (n *NotificationLog) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
