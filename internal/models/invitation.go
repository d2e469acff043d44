package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Target types an invitation or membership can point at.
const (
	TargetTeam         = "team"
	TargetOrganization = "organization"
)

// Invitation is the locally persisted record for an invite whose recipient is
// not (yet) a registered agent in the directory. Registered recipients carry an
// embedded Rsvp on their directory record instead; both are treated as one
// concept behind the reconciler.
//
// Unique on (uuid, recipient): re-inviting the same address for the same target
// touches the existing row rather than duplicating it.
type Invitation struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UUID      string    `gorm:"column:uuid;type:uuid;not null;uniqueIndex:idx_invitations_target_recipient" json:"uuid"`
	Name      string    `gorm:"column:name;not null" json:"name"`
	Recipient string    `gorm:"column:recipient;not null;uniqueIndex:idx_invitations_target_recipient" json:"recipient"`
	Type      string    `gorm:"column:type;not null;check:type IN ('team','organization')" json:"type"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Invitation) TableName() string {
	return "Invitations"
}

func (i *Invitation) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
