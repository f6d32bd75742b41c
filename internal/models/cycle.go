package models

import "time"

// Rotation freezes the payout order for one full turn of a group.
type Rotation struct {
	ID      string
	GroupID string

	// Number is 1-based and contiguous per group.
	Number int

	// MemberIDs is the payout order, taken from active members by join order
	// when the rotation started.
	MemberIDs []string

	StartedAt int64
}

// Cycle is one rotation step with a single payout recipient.
type Cycle struct {
	// ID is the unique identifier for the cycle (UUID format).
	ID      string
	GroupID string

	// Rotation is the number of the rotation this cycle belongs to.
	Rotation int

	// Number is the 1-based cycle number, contiguous and unique per group.
	Number int

	// StartDate and EndDate bound the cycle. EndDate is the contribution due date.
	StartDate time.Time
	EndDate   time.Time

	// PayoutRecipientID receives the pool. Unique within a rotation.
	PayoutRecipientID string

	// ContributorCount is the number of members expected to contribute,
	// frozen when the cycle starts.
	ContributorCount int

	IsCompleted bool

	// CompletedAt is the Unix timestamp of completion, 0 while open.
	CompletedAt int64

	CreatedAt int64
}
