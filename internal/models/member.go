package models

// Member is one membership row. A person may belong to several groups through
// several rows; IsAdmin is scoped to GroupID only.
type Member struct {
	// ID is the unique identifier for the membership row (UUID format).
	ID string

	// GroupID is the group this row belongs to.
	GroupID string

	// UserID is the identity-provider subject, empty for members who have not signed up.
	UserID string

	Name  string
	Phone string
	Email string

	// IsAdmin grants admin rights in GroupID.
	IsAdmin bool

	// Position is the 1-based join order inside the group.
	// Rotation order is derived from it.
	Position int

	// JoinedAt is the Unix timestamp when the member joined.
	JoinedAt int64

	// RemovedAt is the Unix timestamp of removal, 0 while the member is active.
	RemovedAt int64
}

// Active reports whether the member has not been removed.
func (m *Member) Active() bool {
	return m.RemovedAt == 0
}
