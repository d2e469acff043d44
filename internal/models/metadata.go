package models

// Metadata is the JSON blob attached to an agent's directory record. It is the
// authoritative membership state for registered agents: teams and organizations
// have no local rows, so an agent's memberships, the invites they have received
// (rsvps) and the invites they have sent (pendingInvitations) all live here.
//
// The blob is replaced wholesale on update; read-modify-write is three separate
// steps and the last writer wins.
type Metadata struct {
	Teams              []Membership        `json:"teams,omitempty"`
	Organizations      []Membership        `json:"organizations,omitempty"`
	Rsvps              []Rsvp              `json:"rsvps,omitempty"`
	PendingInvitations []PendingInvitation `json:"pendingInvitations,omitempty"`
}

// Membership is one team or organization entry on an agent's metadata. Leader
// is set for team entries, Organizer for organization entries; an entry whose
// leader/organizer equals its owner marks that owner as the distinguished
// principal of the target. OrganizationID is stamped on a team entry when the
// team is affiliated to an organization.
type Membership struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Leader         string `json:"leader,omitempty"`
	Organizer      string `json:"organizer,omitempty"`
	OrganizationID string `json:"organizationId,omitempty"`
}

// Owner returns the distinguished principal of the entry's target.
func (m Membership) Owner() string {
	if m.Leader != "" {
		return m.Leader
	}
	return m.Organizer
}

// Rsvp mirrors an Invitation but lives on the invited registered agent's
// directory record instead of the local table.
type Rsvp struct {
	Name      string `json:"name"`
	UUID      string `json:"uuid"`
	Type      string `json:"type"`
	Recipient string `json:"recipient"`
}

// PendingInvitation is the inviter-side shadow of an Invitation or Rsvp, kept
// on the inviting agent's metadata so outstanding invites are visible without
// a join. Kept in lockstep with the recipient-side record.
type PendingInvitation struct {
	Name      string `json:"name"`
	UUID      string `json:"uuid"`
	Type      string `json:"type"`
	Recipient string `json:"recipient"`
}

func (md *Metadata) memberships(targetType string) *[]Membership {
	if targetType == TargetOrganization {
		return &md.Organizations
	}
	return &md.Teams
}

// MembershipFor returns the membership entry for (targetType, id), or nil.
func (md *Metadata) MembershipFor(targetType, id string) *Membership {
	list := *md.memberships(targetType)
	for i := range list {
		if list[i].ID == id {
			return &list[i]
		}
	}
	return nil
}

// AddMembership appends an entry unless one for the same id already exists.
func (md *Metadata) AddMembership(targetType string, m Membership) bool {
	if md.MembershipFor(targetType, m.ID) != nil {
		return false
	}
	list := md.memberships(targetType)
	*list = append(*list, m)
	return true
}

// RemoveMembership deletes the entry for (targetType, id), reporting whether
// anything was removed.
func (md *Metadata) RemoveMembership(targetType, id string) bool {
	list := md.memberships(targetType)
	for i := range *list {
		if (*list)[i].ID == id {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return true
		}
	}
	return false
}

// RsvpFor returns the rsvp for the target id, or nil.
func (md *Metadata) RsvpFor(id string) *Rsvp {
	for i := range md.Rsvps {
		if md.Rsvps[i].UUID == id {
			return &md.Rsvps[i]
		}
	}
	return nil
}

// AddRsvp appends an rsvp unless one for the same target already exists.
// A recipient has at most one live rsvp per target id.
func (md *Metadata) AddRsvp(r Rsvp) bool {
	if md.RsvpFor(r.UUID) != nil {
		return false
	}
	md.Rsvps = append(md.Rsvps, r)
	return true
}

// RemoveRsvp deletes the rsvp for the target id.
func (md *Metadata) RemoveRsvp(id string) bool {
	for i := range md.Rsvps {
		if md.Rsvps[i].UUID == id {
			md.Rsvps = append(md.Rsvps[:i], md.Rsvps[i+1:]...)
			return true
		}
	}
	return false
}

// PendingFor returns the pending invitation for (target id, recipient), or nil.
func (md *Metadata) PendingFor(id, recipient string) *PendingInvitation {
	for i := range md.PendingInvitations {
		if md.PendingInvitations[i].UUID == id && md.PendingInvitations[i].Recipient == recipient {
			return &md.PendingInvitations[i]
		}
	}
	return nil
}

// AddPending appends a pending invitation unless the same (target, recipient)
// pair is already shadowed.
func (md *Metadata) AddPending(p PendingInvitation) bool {
	if md.PendingFor(p.UUID, p.Recipient) != nil {
		return false
	}
	md.PendingInvitations = append(md.PendingInvitations, p)
	return true
}

// RemovePending deletes the pending invitation for (target id, recipient).
func (md *Metadata) RemovePending(id, recipient string) bool {
	for i := range md.PendingInvitations {
		if md.PendingInvitations[i].UUID == id && md.PendingInvitations[i].Recipient == recipient {
			md.PendingInvitations = append(md.PendingInvitations[:i], md.PendingInvitations[i+1:]...)
			return true
		}
	}
	return false
}

// PurgeTarget strips every rsvp and pending invitation referencing the target
// id. Used by the orphan self-heal when a stated target no longer resolves to
// any roster; returns whether the blob changed.
func (md *Metadata) PurgeTarget(id string) bool {
	changed := false
	rsvps := md.Rsvps[:0]
	for _, r := range md.Rsvps {
		if r.UUID == id {
			changed = true
			continue
		}
		rsvps = append(rsvps, r)
	}
	md.Rsvps = rsvps

	pendings := md.PendingInvitations[:0]
	for _, p := range md.PendingInvitations {
		if p.UUID == id {
			changed = true
			continue
		}
		pendings = append(pendings, p)
	}
	md.PendingInvitations = pendings
	return changed
}
