package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Frequency is how often a group collects contributions.
type Frequency string

const (
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// ParseFrequency converts a user-supplied string into a Frequency.
func ParseFrequency(s string) (Frequency, error) {
	switch f := Frequency(s); f {
	case FrequencyWeekly, FrequencyMonthly:
		return f, nil
	default:
		return "", fmt.Errorf("unknown frequency %q", s)
	}
}

// Group represents a rotating-savings group.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group (e.g., "Family Savings").
	Name string

	// Description is optional free text shown on the group page.
	Description string

	// ContributionAmount is what every member pays per cycle. Always positive.
	ContributionAmount decimal.Decimal

	// Frequency is the cycle length.
	Frequency Frequency

	// StartDate is the first day of the first cycle (UTC midnight).
	StartDate time.Time

	// AdminID is the member ID of the group owner.
	// Co-admins are expressed with Member.IsAdmin.
	AdminID string

	// IsActive is false once the group has been deactivated.
	IsActive bool

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64

	// UpdatedAt is the Unix timestamp of the last change to the group row.
	UpdatedAt int64
}

// Pool returns the payout amount for a cycle with n contributors.
func (g *Group) Pool(n int) decimal.Decimal {
	return g.ContributionAmount.Mul(decimal.NewFromInt(int64(n)))
}
