package invitations

import (
	"context"
	"errors"

	"agenthq-backend/internal/directory"
	"agenthq-backend/internal/models"
	"agenthq-backend/internal/pkg/validation"

	"gorm.io/gorm"
)

// InviteKey identifies one live invitation: the (target, recipient) pair plus
// the display data captured at invite time.
type InviteKey struct {
	TargetID   string `json:"uuid"`
	TargetName string `json:"name"`
	Type       string `json:"type"`
	Recipient  string `json:"recipient"`
}

// Target is where a recipient's pending invitation state lives: the local
// record store for unregistered recipients, the embedded rsvp list on the
// agent's directory record for registered ones. The lifecycle service operates
// on this interface and never branches on storage kind.
type Target interface {
	// Upsert creates the pending state or refreshes it if the (target,
	// recipient) pair is already live. Never duplicates.
	Upsert(ctx context.Context, key InviteKey) error
	// Remove deletes the pending state for the target id, reporting whether
	// anything was there to remove.
	Remove(ctx context.Context, targetID string) (bool, error)
}

// Reconciler routes invitation storage by registration status: recipients
// reachable by email in the directory use the embedded rsvp path, everyone
// else the local record store.
type Reconciler struct {
	DB        *gorm.DB
	Directory directory.Client
}

// Resolve decides the storage target for a recipient email. The email must
// already be normalized. A directory miss is the unregistered path, not an
// error; directory failures propagate.
func (r *Reconciler) Resolve(ctx context.Context, email string) (Target, error) {
	profile, err := r.Directory.FindByEmail(ctx, email)
	if errors.Is(err, directory.ErrNotFound) {
		return &localRecord{db: r.DB, recipient: email}, nil
	}
	if err != nil {
		return nil, err
	}
	return &embeddedRsvp{dir: r.Directory, profile: profile}, nil
}

// Pending is a live invitation located for a specific recipient profile, with
// enough state to clear it during accept/reject.
type Pending struct {
	Key InviteKey

	db     *gorm.DB
	stored bool // true when backed by a local Invitation row
}

// Clear removes the pending state. The embedded rsvp is stripped from md so
// the caller can fold it into the same metadata write as the membership
// append; a local row is deleted immediately. Returns whether md changed.
func (p *Pending) Clear(ctx context.Context, md *models.Metadata) (bool, error) {
	if p.stored {
		err := p.db.WithContext(ctx).
			Where("uuid = ? AND recipient = ?", p.Key.TargetID, p.Key.Recipient).
			Delete(&models.Invitation{}).Error
		return false, err
	}
	return md.RemoveRsvp(p.Key.TargetID), nil
}

// PendingFor locates the live invitation for (targetID, profile): the agent's
// embedded rsvp first, then the local record store (covers invites issued
// before the agent registered). Nil when neither store holds one.
func (r *Reconciler) PendingFor(ctx context.Context, profile *directory.Profile, targetID string) (*Pending, error) {
	if rsvp := profile.Metadata.RsvpFor(targetID); rsvp != nil {
		return &Pending{
			Key: InviteKey{TargetID: rsvp.UUID, TargetName: rsvp.Name, Type: rsvp.Type, Recipient: rsvp.Recipient},
		}, nil
	}

	email := validation.NormalizeEmail(profile.Email)
	var row models.Invitation
	err := r.DB.WithContext(ctx).Where("uuid = ? AND recipient = ?", targetID, email).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &Pending{
		Key:    InviteKey{TargetID: row.UUID, TargetName: row.Name, Type: row.Type, Recipient: row.Recipient},
		db:     r.DB,
		stored: true,
	}, nil
}

type localRecord struct {
	db        *gorm.DB
	recipient string
}

func (l *localRecord) Upsert(ctx context.Context, key InviteKey) error {
	var existing models.Invitation
	err := l.db.WithContext(ctx).Where("uuid = ? AND recipient = ?", key.TargetID, l.recipient).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		inv := models.Invitation{
			UUID:      key.TargetID,
			Name:      key.TargetName,
			Recipient: l.recipient,
			Type:      key.Type,
		}
		return l.db.WithContext(ctx).Create(&inv).Error
	} else if err != nil {
		return err
	}

	// Re-invite: touch the existing row, no duplicate.
	existing.Name = key.TargetName
	return l.db.WithContext(ctx).Save(&existing).Error
}

func (l *localRecord) Remove(ctx context.Context, targetID string) (bool, error) {
	res := l.db.WithContext(ctx).
		Where("uuid = ? AND recipient = ?", targetID, l.recipient).
		Delete(&models.Invitation{})
	return res.RowsAffected > 0, res.Error
}

type embeddedRsvp struct {
	dir     directory.Client
	profile *directory.Profile
}

func (e *embeddedRsvp) Upsert(ctx context.Context, key InviteKey) error {
	md := &e.profile.Metadata
	if existing := md.RsvpFor(key.TargetID); existing != nil {
		if existing.Name == key.TargetName {
			// Re-invite of a registered recipient: state is already in
			// lockstep, a fresh notification still goes out.
			return nil
		}
		existing.Name = key.TargetName
	} else {
		md.AddRsvp(models.Rsvp{
			Name:      key.TargetName,
			UUID:      key.TargetID,
			Type:      key.Type,
			Recipient: key.Recipient,
		})
	}
	_, err := e.dir.UpdateMetadata(ctx, e.profile.AgentID, *md)
	return err
}

func (e *embeddedRsvp) Remove(ctx context.Context, targetID string) (bool, error) {
	if !e.profile.Metadata.RemoveRsvp(targetID) {
		return false, nil
	}
	if _, err := e.dir.UpdateMetadata(ctx, e.profile.AgentID, e.profile.Metadata); err != nil {
		return false, err
	}
	return true, nil
}
