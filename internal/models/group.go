package models

import "time"

// Group is a set of members sharing expenses, as returned by the backend.
type Group struct {
	ID        string
	Name      string
	Members   []Member
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Member is one person in a group.
type Member struct {
	// ID is the membership identifier.
	ID string

	// UserID is the account behind the membership.
	UserID string

	Name  string
	Email string
}

// MemberIDs returns member ids in group order.
func (g *Group) MemberIDs() []string {
	ids := make([]string, len(g.Members))
	for i, m := range g.Members {
		ids[i] = m.ID
	}
	return ids
}

// HasMember reports whether id matches a member id.
func (g *Group) HasMember(id string) bool {
	for _, m := range g.Members {
		if m.ID == id {
			return true
		}
	}
	return false
}
