// Package directorytest provides an in-memory directory.Client for tests.
package directorytest

import (
	"context"
	"encoding/json"
	"sync"

	"agenthq-backend/internal/directory"
	"agenthq-backend/internal/models"
)

// Fake is an in-memory identity directory. Reads return deep copies so a
// service mutating a profile without calling UpdateMetadata leaves the store
// untouched, mirroring the real read-modify-write boundary.
type Fake struct {
	mu       sync.Mutex
	order    []string
	profiles map[string]directory.Profile

	// Err, when set, is returned by every call (directory-unavailable paths).
	Err error
	// UpdateCalls counts UpdateMetadata invocations, per agent and in total.
	UpdateCalls map[string]int
	Updates     int
}

func New() *Fake {
	return &Fake{
		profiles:    make(map[string]directory.Profile),
		UpdateCalls: make(map[string]int),
	}
}

// Add registers a profile. Insertion order is preserved by roster scans, which
// is what gives the first-registered leader its determinism.
func (f *Fake) Add(p directory.Profile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.profiles[p.AgentID]; !ok {
		f.order = append(f.order, p.AgentID)
	}
	f.profiles[p.AgentID] = clone(p)
}

// Stored returns the stored profile (copy) for assertions.
func (f *Fake) Stored(agentID string) (directory.Profile, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[agentID]
	if !ok {
		return directory.Profile{}, false
	}
	return clone(p), true
}

func clone(p directory.Profile) directory.Profile {
	b, _ := json.Marshal(p)
	var out directory.Profile
	_ = json.Unmarshal(b, &out)
	return out
}

func (f *Fake) ReadProfile(ctx context.Context, agentID string) (*directory.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	p, ok := f.profiles[agentID]
	if !ok {
		return nil, directory.ErrNotFound
	}
	c := clone(p)
	return &c, nil
}

func (f *Fake) FindByEmail(ctx context.Context, email string) (*directory.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	for _, id := range f.order {
		if f.profiles[id].Email == email {
			c := clone(f.profiles[id])
			return &c, nil
		}
	}
	return nil, directory.ErrNotFound
}

func (f *Fake) UpdateMetadata(ctx context.Context, agentID string, md models.Metadata) (*directory.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	p, ok := f.profiles[agentID]
	if !ok {
		return nil, directory.ErrNotFound
	}
	p.Metadata = md
	f.profiles[agentID] = clone(p)
	f.UpdateCalls[agentID]++
	f.Updates++
	c := clone(p)
	return &c, nil
}

func (f *Fake) scan(match func(directory.Profile) bool) []directory.Profile {
	var out []directory.Profile
	for _, id := range f.order {
		if match(f.profiles[id]) {
			out = append(out, clone(f.profiles[id]))
		}
	}
	return out
}

func (f *Fake) ListTeamRoster(ctx context.Context, teamID string) ([]directory.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	return f.scan(func(p directory.Profile) bool {
		return p.Metadata.MembershipFor(models.TargetTeam, teamID) != nil
	}), nil
}

func (f *Fake) ListOrganizationRoster(ctx context.Context, orgID string) ([]directory.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	return f.scan(func(p directory.Profile) bool {
		return p.Metadata.MembershipFor(models.TargetOrganization, orgID) != nil
	}), nil
}

func (f *Fake) ListAffiliatedTeamLeaders(ctx context.Context, orgID string) ([]directory.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	return f.scan(func(p directory.Profile) bool {
		for _, t := range p.Metadata.Teams {
			if t.OrganizationID == orgID {
				return true
			}
		}
		return false
	}), nil
}
